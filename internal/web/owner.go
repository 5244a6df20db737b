package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/foruapp/foru/internal/auth"
	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/store"
)

type ownerUserRow struct {
	model.User
	// Locked rows cannot have their role changed: the owner's own row and
	// any other owner.
	Locked bool
}

type ownerPageData struct {
	PageData
	Users    []ownerUserRow
	Bouquets *model.BouquetPage
}

// OwnerPage handles GET /owner.
func (s *Server) OwnerPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{}
	if r.URL.Query().Get("updated") != "" {
		data.Success = "Role updated."
	}
	s.renderOwner(w, r, http.StatusOK, data)
}

// OwnerRoleSubmit handles POST /owner/users/{id}/role.
func (s *Server) OwnerRoleSubmit(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentSession(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.renderOwner(w, r, http.StatusBadRequest, &PageData{Error: "Invalid user."})
		return
	}

	target, err := store.GetUser(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to load user", "id", id, "error", err)
		s.renderOwner(w, r, http.StatusInternalServerError, &PageData{Error: "Could not load the user."})
		return
	}

	role := model.Role(r.FormValue("role"))
	if err := auth.CanChangeRole(actor, target, role); err != nil {
		s.renderOwner(w, r, domainerrors.CodeOf(err).HTTPStatus(), &PageData{Error: domainerrors.MessageOf(err)})
		return
	}
	if err := store.UpdateUserRole(r.Context(), s.DB, id, role); err != nil {
		status := domainerrors.CodeOf(err).HTTPStatus()
		msg := domainerrors.MessageOf(err)
		if status >= http.StatusInternalServerError {
			slog.Error("failed to update role", "id", id, "error", err)
			msg = "Could not update the role."
		}
		s.renderOwner(w, r, status, &PageData{Error: msg})
		return
	}

	slog.Info("user role updated", "user", target.Email, "from", target.Role, "to", role, "by", actor.Email)
	http.Redirect(w, r, "/owner?updated=1", http.StatusSeeOther)
}

func (s *Server) renderOwner(w http.ResponseWriter, r *http.Request, status int, base *PageData) {
	session := auth.CurrentSession(r.Context())
	base.Title = "Owner"
	base.Session = session

	users, err := store.ListUsers(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
	}
	rows := make([]ownerUserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, ownerUserRow{User: u, Locked: u.ID == session.UserID || u.Role == model.RoleOwner})
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	bouquets, err := store.ListBouquets(r.Context(), s.DB, page, store.DefaultPageSize)
	if err != nil {
		slog.Error("failed to list bouquets", "error", err)
	}

	s.Templates.RenderStatus(w, status, "owner.html", &ownerPageData{
		PageData: *base,
		Users:    rows,
		Bouquets: bouquets,
	})
}
