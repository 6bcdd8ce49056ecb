package auth

import (
	"github.com/atlas-iam/atlas-iam/internal/users"
)

// LoginResult is the authenticated shape returned to a successful caller:
// the user with roles and direct permissions loaded, plus a signed access
// token.
type LoginResult struct {
	User        *users.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

// GoogleLoginInput carries a frontend-obtained Google credential.
type GoogleLoginInput struct {
	GoogleID string `json:"googleId" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	IDToken  string `json:"idToken" validate:"required"`
}
