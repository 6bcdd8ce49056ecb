package rbac

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-iam/atlas-iam/internal/shared"
)

func okHandler() (http.Handler, *bool) {
	reached := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}), &reached
}

func TestRequireWithoutPermissionsPassesThrough(t *testing.T) {
	mw := Middleware{Service: newTestService(t, &mockGrantRepo{}), Logger: slog.Default()}
	next, reached := okHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mw.Require()(next).ServeHTTP(rec, req)

	require.True(t, *reached)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireWithoutIdentityRejects(t *testing.T) {
	mw := Middleware{Service: newTestService(t, &mockGrantRepo{}), Logger: slog.Default()}
	next, reached := okHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mw.Require("user.view")(next).ServeHTTP(rec, req)

	require.False(t, *reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireDeniedWithoutDetail(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{}}
	mw := Middleware{Service: newTestService(t, repo), Logger: slog.Default()}
	next, reached := okHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 9, Email: "a@b.c"})
	mw.Require("user.delete")(next).ServeHTTP(rec, req.WithContext(ctx))

	require.False(t, *reached)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotContains(t, rec.Body.String(), "user.delete")
}

func TestRequireAllowsWhenAllPermissionsHeld(t *testing.T) {
	repo := &mockGrantRepo{grants: map[int64][]Grant{
		9: {
			{PermissionID: 1, Name: "user.view"},
			{PermissionID: 2, Name: "user.delete"},
		},
	}}
	mw := Middleware{Service: newTestService(t, repo), Logger: slog.Default()}
	next, reached := okHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/users/3", nil)
	ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 9, Email: "a@b.c"})
	mw.Require("user.view", "user.delete")(next).ServeHTTP(rec, req.WithContext(ctx))

	require.True(t, *reached)
	require.Equal(t, http.StatusOK, rec.Code)
}
