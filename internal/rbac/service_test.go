package rbac

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlas-iam/atlas-iam/internal/platform/cache"
)

type mockGrantRepo struct {
	grants map[int64][]Grant
	err    error
	calls  int
}

func (m *mockGrantRepo) UserGrants(ctx context.Context, userID int64) ([]Grant, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.grants[userID], nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, cache.NewStore(client), slog.Default())
}

func TestEffectivePermissionsMergesDirectAndRoleGrants(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{
		7: {
			{PermissionID: 3, Name: "user.view"},
			{PermissionID: 1, Name: "role.view"},
			{PermissionID: 3, Name: "user.view"},
			{PermissionID: 5, Name: "user.update"},
		},
	}}
	svc := newTestService(t, repo)

	names, err := svc.EffectivePermissions(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"user.view", "role.view", "user.update"}, names)
}

func TestEffectivePermissionsEmptyForUnknownUser(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{}}
	svc := newTestService(t, repo)

	names, err := svc.EffectivePermissions(context.Background(), 999)
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestEffectivePermissionsUsesCacheOnSecondCall(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{
		4: {{PermissionID: 1, Name: "user.view"}},
	}}
	svc := newTestService(t, repo)

	first, err := svc.EffectivePermissions(context.Background(), 4)
	require.NoError(t, err)
	second, err := svc.EffectivePermissions(context.Background(), 4)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, repo.calls)
}

func TestEffectivePermissionsPropagatesRepoError(t *testing.T) {
	repo := &mockGrantRepo{err: errors.New("boom")}
	svc := newTestService(t, repo)

	_, err := svc.EffectivePermissions(context.Background(), 1)
	require.Error(t, err)
}

func TestHasPermissionToEmptyRequirementAllows(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{}}
	svc := newTestService(t, repo)

	allowed, err := svc.HasPermissionTo(context.Background(), 12, nil)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, repo.calls)
}

func TestHasPermissionToRequiresEveryPermission(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{
		2: {
			{PermissionID: 1, Name: "user.view"},
			{PermissionID: 2, Name: "user.update"},
		},
	}}
	svc := newTestService(t, repo)

	allowed, err := svc.HasPermissionTo(context.Background(), 2, []string{"user.view", "user.update"})
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = svc.HasPermissionTo(context.Background(), 2, []string{"user.view", "user.delete"})
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestHasPermissionToDeniesUnknownUser(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{}}
	svc := newTestService(t, repo)

	allowed, err := svc.HasPermissionTo(context.Background(), 404, []string{"user.view"})
	require.NoError(t, err)
	require.False(t, allowed)
}
