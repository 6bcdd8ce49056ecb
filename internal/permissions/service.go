package permissions

import "context"

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	List(ctx context.Context) ([]Permission, error)
	FindByIDs(ctx context.Context, ids []int64) ([]Permission, error)
}

// Service handles permission reference data. Permissions are immutable after
// provisioning, so there are no mutating operations here.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all permissions.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}
