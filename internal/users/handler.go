package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-iam/atlas-iam/internal/permissions"
	"github.com/atlas-iam/atlas-iam/internal/platform/httpx"
	"github.com/atlas-iam/atlas-iam/internal/rbac"
	"github.com/atlas-iam/atlas-iam/internal/shared"
)

// Handler wires HTTP endpoints for user management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbacSvc   *rbac.Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacSvc *rbac.Service, rbacMiddleware rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbacSvc:   rbacSvc,
		rbac:      rbacMiddleware,
		validator: validator.New(),
	}
}

// MountRoutes registers user routes on the provided router. Self-service
// routes precede the parameterized ones so chi matches them first.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profile", h.profile)
	r.With(h.rbac.Require(permissions.UserUpdate)).Patch("/profile", h.updateProfile)
	r.Patch("/change-password", h.changeSelfPassword)
	r.Get("/permissions", h.ownPermissions)

	r.With(h.rbac.Require(permissions.UserCreate)).Post("/", h.create)
	r.With(h.rbac.Require(permissions.UserViewAll)).Get("/", h.list)
	r.With(h.rbac.Require(permissions.UserView)).Get("/{id}", h.findOne)
	r.With(h.rbac.Require(permissions.UserUpdate)).Patch("/{id}/change-password", h.changePassword)
	r.With(h.rbac.Require(permissions.UserUpdate)).Patch("/{id}", h.update)
	r.With(h.rbac.Require(permissions.UserDelete)).Delete("/{id}", h.remove)
	r.With(h.rbac.Require(permissions.UserACL)).Post("/{id}/roles", h.assignRoles)
	r.With(h.rbac.Require(permissions.UserACL)).Post("/{id}/permissions", h.assignPermissions)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateUserInput
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": user})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	params := ListParams{
		Page:           page,
		PerPage:        perPage,
		Search:         q.Get("search"),
		OrderBy:        q.Get("orderBy"),
		OrderDirection: q.Get("orderDirection"),
	}
	result, err := h.service.List(r.Context(), params)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) findOne(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	user, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	user, err := h.service.FindOne(r.Context(), identity.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) ownPermissions(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	perms, err := h.rbacSvc.EffectivePermissions(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("resolve own permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": perms})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	var input UpdateUserInput
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update user", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var input ProfileUpdateInput
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), identity.UserID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	var input ChangePasswordInput
	if !h.decode(w, r, &input) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": true})
}

func (h *Handler) changeSelfPassword(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var input ChangeSelfPasswordInput
	if !h.decode(w, r, &input) {
		return
	}
	if err := h.service.ChangeSelfPassword(r.Context(), identity.UserID, input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": true})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": true})
}

type roleAssignInput struct {
	Roles []int64 `json:"roles" validate:"required"`
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	var input roleAssignInput
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.service.AssignRoles(r.Context(), id, input.Roles)
	if err != nil {
		h.logger.Error("assign roles", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": user})
}

type permissionAssignInput struct {
	Permissions []int64 `json:"permissions" validate:"required"`
}

func (h *Handler) assignPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	var input permissionAssignInput
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.service.AssignPermissions(r.Context(), id, input.Permissions)
	if err != nil {
		h.logger.Error("assign permissions", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handler) urlID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid user id", shared.ErrValidation))
		return 0, false
	}
	return id, true
}
