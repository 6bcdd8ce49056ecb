package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlas-iam/atlas-iam/internal/roles"
	"github.com/atlas-iam/atlas-iam/internal/shared"
	"github.com/atlas-iam/atlas-iam/internal/users"
)

// UserDirectory is the slice of the user service the auth flows need.
type UserDirectory interface {
	FindByEmailWithAccess(ctx context.Context, email string) (*users.User, error)
	CreateOAuth(ctx context.Context, input users.CreateOAuthUserInput) (*users.User, error)
	UpdateLoginDate(ctx context.Context, id int64) error
}

// AlertNotifier enqueues a login alert email. Delivery is fire-and-forget:
// authentication never waits on it and never fails because of it.
type AlertNotifier interface {
	EnqueueLoginAlert(ctx context.Context, to, name string, at time.Time) error
}

// Service wraps authentication business rules.
type Service struct {
	directory UserDirectory
	tokens    *TokenIssuer
	google    GoogleVerifier
	alerts    AlertNotifier
	logger    *slog.Logger
}

// NewService constructs a new Service.
func NewService(directory UserDirectory, tokens *TokenIssuer, google GoogleVerifier, alerts AlertNotifier, logger *slog.Logger) *Service {
	return &Service{directory: directory, tokens: tokens, google: google, alerts: alerts, logger: logger}
}

// Login validates email/password credentials and issues an access token.
// Every failure collapses into ErrInvalidCredentials so a caller cannot
// probe which part was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.directory.FindByEmailWithAccess(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || !shared.ComparePassword(password, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return s.finishLogin(ctx, user)
}

// GoogleLogin verifies a frontend-obtained Google credential and signs the
// user in, auto-provisioning an account with the standard user role on
// first login.
func (s *Service) GoogleLogin(ctx context.Context, input GoogleLoginInput) (*LoginResult, error) {
	if s.google == nil {
		return nil, fmt.Errorf("google sign-in is not configured: %w", shared.ErrValidation)
	}
	if err := s.google.VerifyGoogleToken(ctx, input.IDToken, input.GoogleID, input.Email); err != nil {
		return nil, err
	}
	user, err := s.directory.FindByEmailWithAccess(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		user, err = s.directory.CreateOAuth(ctx, users.CreateOAuthUserInput{
			Name:     input.Name,
			Email:    input.Email,
			GoogleID: input.GoogleID,
			IsActive: true,
			Roles:    []int64{roles.UserID},
		})
		if err != nil {
			return nil, err
		}
	}
	return s.finishLogin(ctx, user)
}

func (s *Service) finishLogin(ctx context.Context, user *users.User) (*LoginResult, error) {
	if err := s.directory.UpdateLoginDate(ctx, user.ID); err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.alerts.EnqueueLoginAlert(ctx, user.Email, user.Name, time.Now().UTC()); err != nil {
		s.logger.Warn("enqueue login alert", slog.Any("error", err), slog.String("email", user.Email))
	}
	return &LoginResult{User: user, AccessToken: token}, nil
}
