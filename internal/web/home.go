package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/composition"
	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/store"
)

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "home.html", &struct {
		PageData
		Flowers []model.FlowerDefinition
	}{
		PageData: PageData{Title: "FORU", Session: auth.CurrentSession(r.Context())},
		Flowers:  s.Catalog.All(),
	})
}

type createPageData struct {
	PageData
	Flowers  []model.FlowerDefinition
	MaxItems int
	Form     url.Values
}

// CreatePage handles GET /create.
func (s *Server) CreatePage(w http.ResponseWriter, r *http.Request) {
	s.renderCreate(w, r, http.StatusOK, nil, "")
}

// CreateSubmit handles POST /create. Flower counts are applied to a fresh
// composition so the item cap and placement match the interactive editor.
func (s *Server) CreateSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderCreate(w, r, http.StatusBadRequest, nil, "Invalid form.")
		return
	}
	form := r.PostForm

	comp := composition.New(composition.Options{MaxItems: s.maxItems(), Flowers: s.Catalog})
	for _, f := range s.Catalog.All() {
		n, err := strconv.Atoi(form.Get("count_" + f.ID))
		if err != nil || n <= 0 {
			continue
		}
		comp.SetCount(f.ID, n)
	}

	nb := model.NewBouquet{
		Kind:           model.Kind(form.Get("type")),
		Items:          comp.Items(),
		Letter:         form.Get("letter"),
		Theme:          model.Theme(form.Get("theme")),
		GiftType:       model.GiftType(form.Get("giftType")),
		ScratchMessage: form.Get("scratchMessage"),
		SecretCode:     form.Get("secretCode"),
		SenderName:     form.Get("senderName"),
		RecipientName:  form.Get("recipientName"),
		RecipientEmail: form.Get("recipientEmail"),
	}
	if session := auth.CurrentSession(r.Context()); session != nil {
		nb.CreatedBy = &session.UserID
	}

	b, err := store.CreateBouquet(r.Context(), s.DB, nb)
	if err != nil {
		status := domainerrors.CodeOf(err).HTTPStatus()
		msg := domainerrors.MessageOf(err)
		if status >= http.StatusInternalServerError {
			msg = "Could not save your creation. Please try again."
		}
		s.renderCreate(w, r, status, form, msg)
		return
	}

	http.Redirect(w, r, "/share/"+b.ID, http.StatusSeeOther)
}

func (s *Server) renderCreate(w http.ResponseWriter, r *http.Request, status int, form url.Values, errMsg string) {
	s.Templates.RenderStatus(w, status, "create.html", &createPageData{
		PageData: PageData{Title: "Create", Session: auth.CurrentSession(r.Context()), Error: errMsg},
		Flowers:  s.Catalog.All(),
		MaxItems: s.maxItems(),
		Form:     form,
	})
}

func (s *Server) maxItems() int {
	if s.MaxItems < 1 {
		return composition.DefaultMaxItems
	}
	return s.MaxItems
}
