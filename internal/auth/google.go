package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/atlas-iam/atlas-iam/internal/shared"
)

const googleIssuer = "https://accounts.google.com"

// GoogleVerifier checks that an externally obtained Google token belongs to
// the claimed subject and email. Implementations fail closed.
type GoogleVerifier interface {
	VerifyGoogleToken(ctx context.Context, rawToken, expectedSubject, expectedEmail string) error
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// OIDCGoogleVerifier validates Google ID tokens against the Google OIDC
// issuer.
type OIDCGoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier builds a verifier for the given OAuth client id. It
// performs issuer discovery, so it needs network access at construction.
func NewGoogleVerifier(ctx context.Context, clientID string) (*OIDCGoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("auth: google discovery: %w", err)
	}
	return &OIDCGoogleVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// VerifyGoogleToken checks signature, subject, email and email_verified.
// Every failure maps to a validation error so the caller reveals nothing
// about which check failed beyond a generic rejection.
func (v *OIDCGoogleVerifier) VerifyGoogleToken(ctx context.Context, rawToken, expectedSubject, expectedEmail string) error {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return fmt.Errorf("%w: google token is invalid", shared.ErrValidation)
	}
	if token.Subject != expectedSubject {
		return fmt.Errorf("%w: google subject mismatch", shared.ErrValidation)
	}
	var claims googleClaims
	if err := token.Claims(&claims); err != nil {
		return fmt.Errorf("%w: google token is invalid", shared.ErrValidation)
	}
	if !claims.EmailVerified {
		return fmt.Errorf("%w: google email is not verified", shared.ErrValidation)
	}
	if claims.Email == "" || claims.Email != expectedEmail {
		return fmt.Errorf("%w: google email mismatch", shared.ErrValidation)
	}
	return nil
}

var _ GoogleVerifier = (*OIDCGoogleVerifier)(nil)
