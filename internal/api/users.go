package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/store"
	"github.com/foruapp/foru/internal/validation"
)

// UsersHandler handles the owner's user management endpoints.
type UsersHandler struct {
	DB        *sql.DB
	Validator *validation.Validator
}

type updateRoleRequest struct {
	UserID  int64  `json:"userId" validate:"required,gt=0"`
	NewRole string `json:"newRole" validate:"required"`
}

// List handles GET /api/owner/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// UpdateRole handles PATCH /api/owner/users/update-role.
func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	actor := auth.CurrentSession(r.Context())
	target, err := store.GetUser(r.Context(), h.DB, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	role := model.Role(req.NewRole)
	if err := auth.CanChangeRole(actor, target, role); err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.UpdateUserRole(r.Context(), h.DB, target.ID, role); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user role updated", "user", target.Email, "from", target.Role, "to", role, "by", actor.Email)
	target.Role = role
	jsonResponse(w, http.StatusOK, target)
}
