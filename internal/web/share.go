package web

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/reveal"
	"github.com/foruapp/foru/internal/store"
)

// Scratch posts carry every sample so far. Up to maxScratchPayload samples
// are accepted; the echo is compacted to at most maxScratchSamples.
const (
	maxScratchSamples = 5000
	maxScratchPayload = 50000
)

type shareItem struct {
	model.PlacedItem
	Flower model.FlowerDefinition
}

type sharePageData struct {
	PageData
	Bouquet  *model.Bouquet
	Items    []shareItem
	Revealed bool
	View     reveal.View
	Effect   reveal.Effect
	Shake    bool
	Progress int
	// Points echoes the scratch samples so far; each post carries all of them.
	Points string
}

// SharePage handles GET /share/{id}.
func (s *Server) SharePage(w http.ResponseWriter, r *http.Request) {
	b, m, ok := s.loadShare(w, r)
	if !ok {
		return
	}
	s.renderShare(w, r, http.StatusOK, b, m, reveal.Outcome{}, "", "")
}

// RevealSubmit handles POST /share/{id}/reveal. The form's action field picks
// the interaction: tap, code or scratch (samples as "x,y;x,y" in canvas
// percent). A successful reveal is remembered in a signed cookie.
func (s *Server) RevealSubmit(w http.ResponseWriter, r *http.Request) {
	b, m, ok := s.loadShare(w, r)
	if !ok {
		return
	}
	if m.Revealed() {
		http.Redirect(w, r, "/share/"+b.ID, http.StatusSeeOther)
		return
	}

	var out reveal.Outcome
	switch r.FormValue("action") {
	case "tap":
		out = m.Tap()
	case "code":
		out = m.SubmitCode(r.FormValue("code"))
	case "scratch":
		points, err := parsePoints(r.FormValue("points"))
		if err != nil {
			s.renderShare(w, r, http.StatusBadRequest, b, m, reveal.Outcome{}, "Invalid scratch data.", "")
			return
		}
		out = m.ScratchPath(points)
		if !out.Changed {
			s.renderShare(w, r, http.StatusOK, b, m, out, "", formatPoints(compactPoints(points)))
			return
		}
	default:
		s.renderShare(w, r, http.StatusBadRequest, b, m, reveal.Outcome{}, "Unknown action.", "")
		return
	}

	if out.Changed {
		token, err := auth.GenerateRevealToken(s.Auth.Secret, b.ID, m.RevealedAt())
		if err != nil {
			slog.Error("failed to sign reveal", "share", b.ID, "error", err)
		} else {
			http.SetCookie(w, &http.Cookie{
				Name:     revealCookieName(b.ID),
				Value:    token,
				Path:     "/share/" + b.ID,
				MaxAge:   int(auth.RevealTTL.Seconds()),
				HttpOnly: true,
				Secure:   s.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		slog.Info("share revealed", "share", b.ID, "gift", b.GiftType)
	}

	s.renderShare(w, r, http.StatusOK, b, m, out, "", "")
}

// loadShare fetches the record and builds its reveal machine, resuming an
// earlier reveal from the cookie. It renders the not-found page when the
// record is missing or cannot be read.
func (s *Server) loadShare(w http.ResponseWriter, r *http.Request) (*model.Bouquet, *reveal.Machine, bool) {
	id := r.PathValue("id")
	b, err := store.GetBouquet(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to load share", "share", id, "error", err)
	}
	if b == nil {
		s.NotFound(w, r)
		return nil, nil, false
	}

	opts := reveal.Options{Kind: b.Kind}
	if b.GiftType == model.GiftCode {
		hash, _, err := store.GetBouquetSecretHash(r.Context(), s.DB, id)
		if err != nil {
			slog.Error("failed to load secret", "share", id, "error", err)
			s.NotFound(w, r)
			return nil, nil, false
		}
		opts.Secret = reveal.HashMatcher(hash)
	}
	m := reveal.New(b.GiftType, opts)

	if c, err := r.Cookie(revealCookieName(id)); err == nil {
		if at, err := auth.ValidateRevealToken(s.Auth.Secret, c.Value, id); err == nil {
			m.Resume(at)
		}
	}
	return b, m, true
}

func (s *Server) renderShare(w http.ResponseWriter, r *http.Request, status int, b *model.Bouquet, m *reveal.Machine, out reveal.Outcome, errMsg, points string) {
	items := make([]shareItem, 0, len(b.Items))
	for _, it := range b.Items {
		f, ok := s.Catalog.Get(it.FlowerID)
		if !ok {
			continue
		}
		items = append(items, shareItem{PlacedItem: it, Flower: f})
	}

	title := "A gift for you"
	if b.RecipientName != "" {
		title = "A gift for " + b.RecipientName
	}

	s.Templates.RenderStatus(w, status, "share.html", &sharePageData{
		PageData: PageData{
			Title:   title,
			Theme:   b.Theme,
			Session: auth.CurrentSession(r.Context()),
			Error:   errMsg,
		},
		Bouquet:  b,
		Items:    items,
		Revealed: m.Revealed(),
		View:     m.View(),
		Effect:   out.Effect,
		Shake:    out.Shake,
		Progress: int(m.Progress()*100 + 0.5),
		Points:   points,
	})
}

func revealCookieName(id string) string {
	return "revealed_" + id
}

// parsePoints decodes "x,y;x,y" pointer samples.
func parsePoints(s string) ([]reveal.Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	pairs := strings.Split(s, ";")
	if len(pairs) > maxScratchPayload {
		return nil, fmt.Errorf("too many samples: %d", len(pairs))
	}

	points := make([]reveal.Point, 0, len(pairs))
	for _, pair := range pairs {
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("malformed sample %q", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed sample %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed sample %q: %w", pair, err)
		}
		points = append(points, reveal.Point{X: x, Y: y})
	}
	return points, nil
}

// compactPoints drops samples that land on a whole-percent spot already
// sampled, then keeps the newest maxScratchSamples. Rubbing one area over and
// over therefore never grows the echoed set.
func compactPoints(points []reveal.Point) []reveal.Point {
	type spot struct{ x, y int }
	seen := make(map[spot]bool, len(points))
	out := make([]reveal.Point, 0, len(points))
	for _, p := range points {
		k := spot{int(math.Round(p.X)), int(math.Round(p.Y))}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	if len(out) > maxScratchSamples {
		out = out[len(out)-maxScratchSamples:]
	}
	return out
}

// formatPoints encodes samples in the form parsePoints reads.
func formatPoints(points []reveal.Point) string {
	var sb strings.Builder
	for i, p := range points {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	return sb.String()
}
