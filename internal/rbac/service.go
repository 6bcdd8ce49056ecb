package rbac

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/atlas-iam/atlas-iam/internal/platform/cache"
)

// Service resolves effective permission sets and answers authorization
// checks. It never mutates authorization state; mutations live with the
// user/role services, which are responsible for invalidating the cached
// views this service populates.
type Service struct {
	repo   Repository
	cache  *cache.Store
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, store *cache.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: store, logger: logger}
}

// EffectivePermissions returns the deduplicated permission names a user
// holds, directly or through roles, in first-seen order. A nonexistent user
// resolves to an empty set rather than an error. Concurrent misses for the
// same user collapse into one store query.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	key := cache.UserPermissionsKey(userID)
	var cached []string
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("permissions cache read", slog.Any("error", err), slog.Int64("user_id", userID))
	} else if hit {
		return cached, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		grants, err := s.repo.UserGrants(ctx, userID)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]struct{}, len(grants))
		names := make([]string, 0, len(grants))
		for _, g := range grants {
			if _, ok := seen[g.PermissionID]; ok {
				continue
			}
			seen[g.PermissionID] = struct{}{}
			names = append(names, g.Name)
		}

		if err := s.cache.Set(ctx, key, names, cache.UserPermissionsTTL); err != nil {
			s.logger.Warn("permissions cache write", slog.Any("error", err), slog.Int64("user_id", userID))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// HasPermissionTo reports whether the user holds every required permission.
// An empty requirement list models an unguarded operation and always allows.
// There is no super-admin shortcut: an all-powerful account is simply one
// that was seeded with every permission.
func (s *Service) HasPermissionTo(ctx context.Context, userID int64, required []string) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}
	granted, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	set := make(map[string]struct{}, len(granted))
	for _, name := range granted {
		set[name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := set[name]; !ok {
			return false, nil
		}
	}
	return true, nil
}
