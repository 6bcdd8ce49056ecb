package users

import (
	"fmt"
	"strings"
)

// CreateUserInput carries the fields for a new local account.
type CreateUserInput struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	IsActive bool    `json:"isActive"`
	Roles    []int64 `json:"roles"`
}

// CreateOAuthUserInput carries the fields for a first-login OAuth account.
// No password is involved.
type CreateOAuthUserInput struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	GoogleID string  `json:"googleId" validate:"required"`
	IsActive bool    `json:"isActive"`
	Roles    []int64 `json:"roles"`
}

// UpdateUserInput is the generic admin patch. Password and Roles are
// accepted on the wire but always stripped: those fields only change through
// the dedicated password-change and role-assignment operations.
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password"`
	Roles    []int64 `json:"roles"`
}

// ProfileUpdateInput is the self-service patch.
type ProfileUpdateInput struct {
	Name string `json:"name" validate:"required"`
}

// ChangePasswordInput sets a new password on behalf of another user.
type ChangePasswordInput struct {
	Password string `json:"password" validate:"required,min=8"`
}

// ChangeSelfPasswordInput rotates the caller's own password after
// re-verification of the current one.
type ChangeSelfPasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
}

// ListParams selects a page of the user listing.
type ListParams struct {
	Page           int    `json:"page"`
	PerPage        int    `json:"perPage"`
	Search         string `json:"search"`
	OrderBy        string `json:"orderBy"`
	OrderDirection string `json:"orderDirection"`
}

// CacheKeyPart serializes the params deterministically; each distinct
// combination caches its own listing page.
func (p ListParams) CacheKeyPart() string {
	return fmt.Sprintf("page=%d&perPage=%d&search=%s&orderBy=%s&orderDirection=%s",
		p.Page, p.PerPage, p.Search, p.OrderBy, strings.ToLower(p.OrderDirection))
}
