package auth

import (
	"net/http"
	"strings"

	"github.com/atlas-iam/atlas-iam/internal/platform/httpx"
	"github.com/atlas-iam/atlas-iam/internal/shared"
)

// RequireToken parses the bearer token and attaches the identity to the
// request context, rejecting requests without a valid token.
func RequireToken(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			identity, err := tokens.Parse(raw)
			if err != nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
