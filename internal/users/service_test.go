package users

import (
	"context"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlas-iam/atlas-iam/internal/permissions"
	"github.com/atlas-iam/atlas-iam/internal/platform/cache"
	"github.com/atlas-iam/atlas-iam/internal/roles"
	"github.com/atlas-iam/atlas-iam/internal/shared"
)

type memoryUserRepo struct {
	users       map[int64]*User
	userRoles   map[int64][]int64
	userPerms   map[int64][]int64
	nextID      int64
	listCalls   int
	findCalls   int
	saveCalls   int
	deleteCalls int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:     make(map[int64]*User),
		userRoles: make(map[int64][]int64),
		userPerms: make(map[int64][]int64),
	}
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	r.findCalls++
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUserRepo) FindByEmailWithAccess(ctx context.Context, email string) (*User, error) {
	return r.FindByEmail(ctx, email)
}

func (r *memoryUserRepo) List(ctx context.Context, params ListParams) ([]User, int, error) {
	r.listCalls++
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *memoryUserRepo) Create(ctx context.Context, u *User, roleIDs []int64) (*User, error) {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, shared.ErrDuplicateEmail
		}
	}
	r.nextID++
	clone := *u
	clone.ID = r.nextID
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	r.users[clone.ID] = &clone
	r.userRoles[clone.ID] = append([]int64(nil), roleIDs...)
	out := clone
	return &out, nil
}

func (r *memoryUserRepo) Save(ctx context.Context, u *User) error {
	r.saveCalls++
	if _, ok := r.users[u.ID]; !ok {
		return shared.ErrNotFound
	}
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, id int64, digest string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = digest
	return nil
}

func (r *memoryUserRepo) UpdateLoginDate(ctx context.Context, id int64, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	r.deleteCalls++
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	r.userRoles[userID] = append([]int64(nil), roleIDs...)
	return nil
}

func (r *memoryUserRepo) ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	r.userPerms[userID] = append([]int64(nil), permissionIDs...)
	return nil
}

type mockRoleResolver struct {
	known map[int64]roles.Role
	seen  []int64
}

func (m *mockRoleResolver) FindByIDs(ctx context.Context, ids []int64) ([]roles.Role, error) {
	m.seen = append([]int64(nil), ids...)
	out := make([]roles.Role, 0, len(ids))
	for _, id := range ids {
		if role, ok := m.known[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

type mockPermResolver struct {
	known map[int64]permissions.Permission
}

func (m *mockPermResolver) FindByIDs(ctx context.Context, ids []int64) ([]permissions.Permission, error) {
	out := make([]permissions.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.known[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type userTestEnv struct {
	svc     *Service
	repo    *memoryUserRepo
	roleRes *mockRoleResolver
	permRes *mockPermResolver
	redis   *miniredis.Miniredis
	store   *cache.Store
}

func newUserTestEnv(t *testing.T) *userTestEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewStore(client)
	repo := newMemoryUserRepo()
	roleRes := &mockRoleResolver{known: map[int64]roles.Role{
		roles.AdminID: {ID: roles.AdminID, Name: "Admin"},
		roles.UserID:  {ID: roles.UserID, Name: "User"},
	}}
	permRes := &mockPermResolver{known: map[int64]permissions.Permission{
		1: {ID: 1, Name: "user.view"},
		2: {ID: 2, Name: "user.update"},
	}}
	return &userTestEnv{
		svc:     NewService(repo, roleRes, permRes, store, slog.Default()),
		repo:    repo,
		roleRes: roleRes,
		permRes: permRes,
		redis:   mr,
		store:   store,
	}
}

func (e *userTestEnv) seedUser(t *testing.T, name, email, password string) *User {
	t.Helper()
	created, err := e.svc.Create(context.Background(), CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		IsActive: true,
	})
	require.NoError(t, err)
	return created
}

func TestCreateDropsUnassignableRoles(t *testing.T) {
	env := newUserTestEnv(t)

	created, err := env.svc.Create(context.Background(), CreateUserInput{
		Name:     "Jo",
		Email:    "jo@atlas.local",
		Password: "password123",
		IsActive: true,
		Roles:    []int64{roles.SuperAdminID, roles.AdminID},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{roles.AdminID}, env.repo.userRoles[created.ID])
}

func TestCreateHashesPassword(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	stored := env.repo.users[created.ID]
	require.NotEqual(t, "password123", stored.PasswordHash)
	require.True(t, shared.ComparePassword("password123", stored.PasswordHash))
}

func TestCreateInvalidatesListings(t *testing.T) {
	env := newUserTestEnv(t)
	env.seedUser(t, "A", "a@atlas.local", "password123")

	_, err := env.svc.List(context.Background(), ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, 1, env.repo.listCalls)

	// Cached now.
	_, err = env.svc.List(context.Background(), ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, 1, env.repo.listCalls)

	env.seedUser(t, "B", "b@atlas.local", "password123")

	_, err = env.svc.List(context.Background(), ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, 2, env.repo.listCalls)
}

func TestListCachesPerParamCombination(t *testing.T) {
	env := newUserTestEnv(t)
	env.seedUser(t, "A", "a@atlas.local", "password123")

	_, err := env.svc.List(context.Background(), ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	_, err = env.svc.List(context.Background(), ListParams{Page: 2, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, 2, env.repo.listCalls)
}

func TestFindOneCachesResult(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	env.repo.findCalls = 0
	found, err := env.svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Email, found.Email)
	require.Equal(t, 1, env.repo.findCalls)

	again, err := env.svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, found.Email, again.Email)
	require.Equal(t, 1, env.repo.findCalls)
}

func TestFindOneUnknownUser(t *testing.T) {
	env := newUserTestEnv(t)
	_, err := env.svc.FindOne(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateRejectsUnchangeableUserBeforeStore(t *testing.T) {
	env := newUserTestEnv(t)
	name := "New Name"

	_, err := env.svc.Update(context.Background(), 1, UpdateUserInput{Name: &name})
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Zero(t, env.repo.findCalls)
	require.Zero(t, env.repo.saveCalls)
}

func TestUpdateStripsPasswordAndRoles(t *testing.T) {
	env := newUserTestEnv(t)
	env.seedUser(t, "first", "first@atlas.local", "password123")
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")
	originalHash := env.repo.users[created.ID].PasswordHash

	name := "Joanna"
	sneaky := "hunter2hunter2"
	_, err := env.svc.Update(context.Background(), created.ID, UpdateUserInput{
		Name:     &name,
		Password: &sneaky,
		Roles:    []int64{roles.AdminID},
	})
	require.NoError(t, err)

	stored := env.repo.users[created.ID]
	require.Equal(t, "Joanna", stored.Name)
	require.Equal(t, originalHash, stored.PasswordHash)
	require.Empty(t, env.repo.userRoles[created.ID])
}

func TestUpdateInvalidatesUserCache(t *testing.T) {
	env := newUserTestEnv(t)
	env.seedUser(t, "first", "first@atlas.local", "password123")
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	_, err := env.svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)

	name := "Joanna"
	_, err = env.svc.Update(context.Background(), created.ID, UpdateUserInput{Name: &name})
	require.NoError(t, err)

	found, err := env.svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "Joanna", found.Name)
}

func TestChangeSelfPasswordMismatchMakesNoMutation(t *testing.T) {
	env := newUserTestEnv(t)
	env.seedUser(t, "first", "first@atlas.local", "password123")
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")
	originalHash := env.repo.users[created.ID].PasswordHash

	err := env.svc.ChangeSelfPassword(context.Background(), created.ID, ChangeSelfPasswordInput{
		CurrentPassword: "wrong-password",
		Password:        "newpassword123",
	})
	require.ErrorIs(t, err, shared.ErrPasswordMismatch)
	require.Equal(t, originalHash, env.repo.users[created.ID].PasswordHash)
}

func TestChangeSelfPasswordRotates(t *testing.T) {
	env := newUserTestEnv(t)
	env.seedUser(t, "first", "first@atlas.local", "password123")
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	err := env.svc.ChangeSelfPassword(context.Background(), created.ID, ChangeSelfPasswordInput{
		CurrentPassword: "password123",
		Password:        "newpassword123",
	})
	require.NoError(t, err)
	require.True(t, shared.ComparePassword("newpassword123", env.repo.users[created.ID].PasswordHash))
}

func TestRemoveUnknownUser(t *testing.T) {
	env := newUserTestEnv(t)
	err := env.svc.Remove(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Zero(t, env.repo.deleteCalls)
}

func TestRemoveClearsCachedViews(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	_, err := env.svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.Remove(context.Background(), created.ID))

	_, err = env.svc.FindOne(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRolesReplacesSet(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	_, err := env.svc.AssignRoles(context.Background(), created.ID, []int64{roles.AdminID})
	require.NoError(t, err)
	require.Equal(t, []int64{roles.AdminID}, env.repo.userRoles[created.ID])

	updated, err := env.svc.AssignRoles(context.Background(), created.ID, []int64{roles.UserID})
	require.NoError(t, err)
	require.Equal(t, []int64{roles.UserID}, env.repo.userRoles[created.ID])
	require.Len(t, updated.Roles, 1)
	require.Equal(t, roles.UserID, updated.Roles[0].ID)
}

func TestAssignRolesDropsUnassignableAndUnknown(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	updated, err := env.svc.AssignRoles(context.Background(), created.ID, []int64{roles.SuperAdminID, roles.AdminID, 999})
	require.NoError(t, err)
	require.NotContains(t, env.roleRes.seen, roles.SuperAdminID)
	require.Equal(t, []int64{roles.AdminID}, env.repo.userRoles[created.ID])
	require.Len(t, updated.Roles, 1)
}

func TestAssignRolesUnknownUser(t *testing.T) {
	env := newUserTestEnv(t)
	_, err := env.svc.AssignRoles(context.Background(), 404, []int64{roles.AdminID})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRolesInvalidatesPermissionCache(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	require.NoError(t, env.store.Set(context.Background(), cache.UserPermissionsKey(created.ID), []string{"user.view"}, cache.UserPermissionsTTL))

	_, err := env.svc.AssignRoles(context.Background(), created.ID, []int64{roles.AdminID})
	require.NoError(t, err)

	exists, err := env.store.Exists(context.Background(), cache.UserPermissionsKey(created.ID))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAssignPermissionsReplacesSet(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	_, err := env.svc.AssignPermissions(context.Background(), created.ID, []int64{1, 2, 999})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, env.repo.userPerms[created.ID])

	updated, err := env.svc.AssignPermissions(context.Background(), created.ID, []int64{2})
	require.NoError(t, err)
	require.Equal(t, []int64{2}, env.repo.userPerms[created.ID])
	require.Len(t, updated.Permissions, 1)
}

func TestUpdateLoginDateClearsListingCache(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	_, err := env.svc.List(context.Background(), ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	calls := env.repo.listCalls

	require.NoError(t, env.svc.UpdateLoginDate(context.Background(), created.ID))

	_, err = env.svc.List(context.Background(), ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, calls+1, env.repo.listCalls)
}

func TestCacheOutageDoesNotVetoReads(t *testing.T) {
	env := newUserTestEnv(t)
	created := env.seedUser(t, "Jo", "jo@atlas.local", "password123")

	env.redis.SetError("connection refused")

	found, err := env.svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Email, found.Email)
}
