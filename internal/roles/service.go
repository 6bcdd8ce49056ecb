package roles

import (
	"context"
	"strings"

	"github.com/atlas-iam/atlas-iam/internal/permissions"
	"github.com/atlas-iam/atlas-iam/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	FindByIDs(ctx context.Context, ids []int64) ([]Role, error)
	Create(ctx context.Context, name, description string, permissionIDs []int64) (Role, error)
	Delete(ctx context.Context, id int64) error
}

// CreateRoleInput carries the fields for a new role. Permission ids that do
// not resolve are dropped, not errored. Duplicate role names are permitted.
type CreateRoleInput struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Permissions []int64 `json:"permissions"`
}

// Service handles role business logic.
type Service struct {
	repo  RepositoryPort
	perms permissions.RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms permissions.RepositoryPort) *Service {
	return &Service{repo: repo, perms: perms}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Create inserts a role with the resolvable subset of the requested
// permissions.
func (s *Service) Create(ctx context.Context, input CreateRoleInput) (Role, error) {
	resolved, err := s.perms.FindByIDs(ctx, input.Permissions)
	if err != nil {
		return Role{}, err
	}
	ids := make([]int64, len(resolved))
	for i, p := range resolved {
		ids[i] = p.ID
	}
	role, err := s.repo.Create(ctx, strings.TrimSpace(input.Name), strings.TrimSpace(input.Description), ids)
	if err != nil {
		return Role{}, err
	}
	role.Permissions = resolved
	return role, nil
}

// Delete removes a role. System roles are rejected before any lookup so the
// protection holds even if the row were missing.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if IsSystemRole(id) {
		return shared.ErrSystemRoleImmutable
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
