package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-iam/atlas-iam/internal/permissions"
	"github.com/atlas-iam/atlas-iam/internal/platform/db"
	"github.com/atlas-iam/atlas-iam/internal/roles"
	"github.com/atlas-iam/atlas-iam/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, COALESCE(password_hash, ''), google_id, is_active, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.GoogleID, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByID fetches a user with its role set loaded.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if u.Roles, err = r.userRoles(ctx, id); err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail fetches a user without relations.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByEmailWithAccess fetches a user together with its roles and direct
// permissions, the eager shape the login flow responds with.
func (r *Repository) FindByEmailWithAccess(ctx context.Context, email string) (*User, error) {
	u, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Roles, err = r.userRoles(ctx, u.ID); err != nil {
		return nil, err
	}
	if u.Permissions, err = r.directPermissions(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

var orderColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"email":     "email",
	"createdAt": "created_at",
}

// List returns one page of users matching params, with roles loaded, plus
// the unpaginated total.
func (r *Repository) List(ctx context.Context, params ListParams) ([]User, int, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage < 1 {
		perPage = 10
	}
	orderBy, ok := orderColumns[params.OrderBy]
	if !ok {
		orderBy = "id"
	}
	direction := "ASC"
	if params.OrderDirection == "desc" || params.OrderDirection == "DESC" {
		direction = "DESC"
	}

	where := ""
	args := []any{}
	if params.Search != "" {
		where = `WHERE name ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userColumns, where, orderBy, direction, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.GoogleID, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range result {
		if result[i].Roles, err = r.userRoles(ctx, result[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return result, total, nil
}

// Create inserts a user and its initial role set in one transaction.
func (r *Repository) Create(ctx context.Context, u *User, roleIDs []int64) (*User, error) {
	var created *User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		created, err = scanUser(tx.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, google_id, is_active, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, now(), now())
			RETURNING `+userColumns, u.Name, u.Email, u.PasswordHash, u.GoogleID, u.IsActive))
		if err != nil {
			return mapUniqueViolation(err)
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, created.ID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created.Roles, err = r.userRoles(ctx, created.ID); err != nil {
		return nil, err
	}
	return created, nil
}

// Save persists the mutable profile columns of an existing user.
func (r *Repository) Save(ctx context.Context, u *User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, is_active = $4, updated_at = now()
		WHERE id = $1`, u.ID, u.Name, u.Email, u.IsActive)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces a user's password digest.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, digest string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, digest)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateLoginDate stamps the user's last login time.
func (r *Repository) UpdateLoginDate(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete hard-removes a user and its relation rows.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ReplaceRoles overwrites the user's role set. This is set replacement, not
// a merge.
func (r *Repository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return r.replaceRelation(ctx, `user_roles`, `role_id`, userID, roleIDs)
}

// ReplacePermissions overwrites the user's direct permission set.
func (r *Repository) ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	return r.replaceRelation(ctx, `user_permissions`, `permission_id`, userID, permissionIDs)
}

func (r *Repository) replaceRelation(ctx context.Context, table, column string, userID int64, ids []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, table), userID); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (user_id, %s) VALUES ($1, $2)`, table, column), userID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) userRoles(ctx context.Context, userID int64) ([]roles.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, COALESCE(r.description, ''), r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []roles.Role
	for rows.Next() {
		var role roles.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *Repository) directPermissions(ctx context.Context, userID int64) ([]permissions.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, '')
		FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1
		ORDER BY p.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []permissions.Permission
	for rows.Next() {
		var p permissions.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.ErrDuplicateEmail
	}
	return err
}
