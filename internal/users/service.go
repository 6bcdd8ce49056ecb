package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlas-iam/atlas-iam/internal/permissions"
	"github.com/atlas-iam/atlas-iam/internal/platform/cache"
	"github.com/atlas-iam/atlas-iam/internal/roles"
	"github.com/atlas-iam/atlas-iam/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailWithAccess(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, params ListParams) ([]User, int, error)
	Create(ctx context.Context, u *User, roleIDs []int64) (*User, error)
	Save(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, digest string) error
	UpdateLoginDate(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error
}

// RoleResolver bulk-resolves role ids to roles.
type RoleResolver interface {
	FindByIDs(ctx context.Context, ids []int64) ([]roles.Role, error)
}

// PermissionResolver bulk-resolves permission ids to permissions.
type PermissionResolver interface {
	FindByIDs(ctx context.Context, ids []int64) ([]permissions.Permission, error)
}

// Service handles user business logic, including the role/permission
// assignment protocol and the cache invalidation that keeps derived views
// consistent with the store of record.
type Service struct {
	repo    RepositoryPort
	roleRes RoleResolver
	permRes PermissionResolver
	cache   *cache.Store
	logger  *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roleRes RoleResolver, permRes PermissionResolver, store *cache.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, roleRes: roleRes, permRes: permRes, cache: store, logger: logger}
}

func filterAssignable(roleIDs []int64) []int64 {
	assignable := make([]int64, 0, len(roleIDs))
	for _, id := range roleIDs {
		if roles.IsUnassignable(id) {
			continue
		}
		assignable = append(assignable, id)
	}
	return assignable
}

// Create provisions a local account. Unassignable role ids are dropped
// silently and the paginated listing cache is cleared so new accounts show
// up immediately.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	digest, err := shared.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: digest,
		IsActive:     input.IsActive,
	}
	created, err := s.repo.Create(ctx, user, filterAssignable(input.Roles))
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return created, nil
}

// CreateOAuth provisions an account from a verified external identity.
func (s *Service) CreateOAuth(ctx context.Context, input CreateOAuthUserInput) (*User, error) {
	googleID := input.GoogleID
	user := &User{
		Name:     input.Name,
		Email:    input.Email,
		GoogleID: &googleID,
		IsActive: input.IsActive,
	}
	created, err := s.repo.Create(ctx, user, filterAssignable(input.Roles))
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return created, nil
}

// List returns one listing page, cache-first. Each distinct
// filter/sort/page combination caches independently.
func (s *Service) List(ctx context.Context, params ListParams) (*PaginatedList, error) {
	key := cache.UserListKey(params.CacheKeyPart())
	var cached PaginatedList
	if hit, err := s.cacheGet(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	data, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	meta := shared.NewPagination(params.Page, params.PerPage, total)
	result := &PaginatedList{
		Data: data,
		Meta: Meta{Page: meta.Page, PerPage: meta.PerPage, Total: meta.Total, TotalPages: meta.TotalPages},
	}
	s.cacheSet(ctx, key, result, cache.UserListTTL)
	return result, nil
}

// FindOne returns a user by id, cache-first.
func (s *Service) FindOne(ctx context.Context, id int64) (*User, error) {
	key := cache.UserKey(id)
	var cached User
	if hit, err := s.cacheGet(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, user, cache.UserTTL)
	return user, nil
}

// FindByEmail returns a bare user record, used by uniqueness checks.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// FindByEmailWithAccess returns a user with roles and direct permissions
// loaded, used by the authentication flow. Never cached: it carries the
// password digest.
func (s *Service) FindByEmailWithAccess(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmailWithAccess(ctx, email)
}

// Update applies a generic admin patch. The unchangeable account is
// rejected before any store access, and password/roles are stripped from
// the patch no matter what was supplied.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput) (*User, error) {
	if IsUnchangeable(id) {
		return nil, shared.ErrForbidden
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	input.Password = nil
	input.Roles = nil
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.cacheDel(ctx, cache.UserKey(id))
	return user, nil
}

// UpdateProfile applies a self-service patch.
func (s *Service) UpdateProfile(ctx context.Context, id int64, input ProfileUpdateInput) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = input.Name
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.cacheDel(ctx, cache.UserKey(id))
	return user, nil
}

// UpdateLoginDate stamps the last login time. The paginated listing may
// sort or filter on it, so the listing cache is cleared too.
func (s *Service) UpdateLoginDate(ctx context.Context, id int64) error {
	if err := s.repo.UpdateLoginDate(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.cacheDel(ctx, cache.UserKey(id))
	s.invalidateListings(ctx)
	return nil
}

// ChangePassword sets a new password on behalf of a user.
func (s *Service) ChangePassword(ctx context.Context, id int64, input ChangePasswordInput) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	digest, err := shared.HashPassword(input.Password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, digest)
}

// ChangeSelfPassword rotates the caller's own password after verifying the
// current one. A mismatch makes no mutation.
func (s *Service) ChangeSelfPassword(ctx context.Context, id int64, input ChangeSelfPasswordInput) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !shared.ComparePassword(input.CurrentPassword, user.PasswordHash) {
		return shared.ErrPasswordMismatch
	}
	digest, err := shared.HashPassword(input.Password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, digest)
}

// Remove hard-deletes a user and clears its cached views.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	s.cacheDel(ctx, cache.UserKey(id))
	s.invalidateListings(ctx)
	return s.repo.Delete(ctx, id)
}

// AssignRoles replaces the user's role set with the resolvable, assignable
// subset of roleIDs. Unassignable roles and unknown ids are dropped
// silently; this is set replacement, not a merge.
func (s *Service) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) (*User, error) {
	assignable := filterAssignable(roleIDs)
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.roleRes.FindByIDs(ctx, assignable)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(resolved))
	for i, role := range resolved {
		ids[i] = role.ID
	}
	if err := s.repo.ReplaceRoles(ctx, userID, ids); err != nil {
		return nil, err
	}
	user.Roles = resolved
	s.cacheDel(ctx, cache.UserKey(userID), cache.UserPermissionsKey(userID))
	return user, nil
}

// AssignPermissions replaces the user's direct permission set with the
// resolvable subset of permissionIDs.
func (s *Service) AssignPermissions(ctx context.Context, userID int64, permissionIDs []int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.permRes.FindByIDs(ctx, permissionIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(resolved))
	for i, p := range resolved {
		ids[i] = p.ID
	}
	if err := s.repo.ReplacePermissions(ctx, userID, ids); err != nil {
		return nil, err
	}
	user.Permissions = resolved
	s.cacheDel(ctx, cache.UserKey(userID), cache.UserPermissionsKey(userID))
	return user, nil
}

// Cache failures never veto a read or a mutation; the next read falls
// through to the store of record.

func (s *Service) cacheGet(ctx context.Context, key string, dest any) (bool, error) {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("cache read", slog.Any("error", err), slog.String("key", key))
		return false, err
	}
	return hit, nil
}

func (s *Service) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache write", slog.Any("error", err), slog.String("key", key))
	}
}

func (s *Service) cacheDel(ctx context.Context, keys ...string) {
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate", slog.Any("error", err))
	}
}

func (s *Service) invalidateListings(ctx context.Context) {
	if err := s.cache.DelAllMatching(ctx, cache.UserListPattern()); err != nil {
		s.logger.Warn("cache invalidate listings", slog.Any("error", err))
	}
}
