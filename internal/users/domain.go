package users

import (
	"time"

	"github.com/atlas-iam/atlas-iam/internal/permissions"
	"github.com/atlas-iam/atlas-iam/internal/roles"
)

// UnchangeableUserIDs lists accounts the generic update operation refuses
// to touch, conventionally the seeded SuperAdmin account.
var UnchangeableUserIDs = []int64{1}

// User represents a user account. PasswordHash is empty for OAuth-only
// accounts and never serialized.
type User struct {
	ID           int64                    `json:"id"`
	Name         string                   `json:"name"`
	Email        string                   `json:"email"`
	PasswordHash string                   `json:"-"`
	GoogleID     *string                  `json:"-"`
	IsActive     bool                     `json:"isActive"`
	LastLoginAt  *time.Time               `json:"lastLoginAt,omitempty"`
	Roles        []roles.Role             `json:"roles,omitempty"`
	Permissions  []permissions.Permission `json:"permissions,omitempty"`
	CreatedAt    time.Time                `json:"createdAt"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

// IsUnchangeable reports whether id denotes a protected account.
func IsUnchangeable(id int64) bool {
	for _, protected := range UnchangeableUserIDs {
		if id == protected {
			return true
		}
	}
	return false
}

// PaginatedList is the cached shape of one listing page.
type PaginatedList struct {
	Data []User `json:"data"`
	Meta Meta   `json:"meta"`
}

// Meta carries pagination metadata for a listing page.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
