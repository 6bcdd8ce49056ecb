package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads the raw authorization state for a user.
type Repository interface {
	UserGrants(ctx context.Context, userID int64) ([]Grant, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// UserGrants fetches a user's direct permissions and the permissions of
// every role the user holds in one round trip. A nonexistent user simply
// yields no rows.
func (r *PGRepository) UserGrants(ctx context.Context, userID int64) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name
		FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1
		UNION ALL
		SELECT p.id, p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.PermissionID, &g.Name); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

var _ Repository = (*PGRepository)(nil)
