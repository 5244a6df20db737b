package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/catalog"
	"github.com/foruapp/foru/internal/db"
	"github.com/foruapp/foru/internal/drafts"
	"github.com/foruapp/foru/internal/email"
	"github.com/foruapp/foru/internal/imagegen"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/ratelimit"
	"github.com/foruapp/foru/internal/store"
)

const (
	testSecret  = "test-secret"
	testBaseURL = "https://foru.test"
)

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	auth   *auth.Service
	owner  *model.User
	token  string

	mu   sync.Mutex
	sent []string
}

type envOption func(*Deps, *testEnv)

func withEmail() envOption {
	return func(d *Deps, env *testEnv) {
		d.Email = email.NewService(email.Config{Host: "smtp.test", Port: "25", From: "foru@test"},
			func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
				env.mu.Lock()
				defer env.mu.Unlock()
				env.sent = append(env.sent, to...)
				return nil
			})
	}
}

func withLimiter(burst int) envOption {
	return func(d *Deps, env *testEnv) {
		d.Limiter = ratelimit.New(0.001, burst)
	}
}

func setupTestServer(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	cat := catalog.Default()

	env := &testEnv{db: database}
	env.auth = &auth.Service{DB: database, Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour}

	d := Deps{
		DB:       database,
		Auth:     env.auth,
		Catalog:  cat,
		Drafts:   &drafts.Service{Store: drafts.NewMemoryStore(time.Hour), Flowers: cat, MaxItems: 5},
		Email:    email.NewService(email.Config{}, nil),
		Images:   imagegen.New(""),
		BaseURL:  testBaseURL,
		MaxItems: 30,
	}
	for _, opt := range opts {
		opt(&d, env)
	}
	if d.Limiter != nil {
		t.Cleanup(d.Limiter.Stop)
	}

	env.server = httptest.NewServer(NewRouter(d))
	t.Cleanup(env.server.Close)

	// The first account to sign in becomes the owner.
	env.owner, env.token = signIn(t, env, "owner@example.com")
	if env.owner.Role != model.RoleOwner {
		t.Fatalf("first user role = %s, want owner", env.owner.Role)
	}
	return env
}

func signIn(t *testing.T, env *testEnv, addr string) (*model.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := env.auth.CompleteSignIn(ctx, &auth.Profile{Email: addr, Name: strings.Split(addr, "@")[0], EmailVerified: true})
	if err != nil {
		t.Fatalf("sign in %s: %v", addr, err)
	}
	tokens, err := env.auth.IssueSession(ctx, user)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return user, tokens.AccessToken
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		t.Fatalf("%s %s: status %d, want %d (body %v)", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func roseBouquet(gift string) map[string]any {
	return map[string]any{
		"type":     "bouquet",
		"theme":    "love",
		"giftType": gift,
		"letter":   "Happy anniversary",
		"items": []map[string]any{
			{"id": "a", "flowerId": "rose", "x": 40, "y": 60, "rotation": 10, "scale": 1},
			{"id": "b", "flowerId": "tulip", "x": 55, "y": 45, "rotation": -5, "scale": 1.1},
		},
	}
}

func createBouquet(t *testing.T, env *testEnv, body map[string]any) string {
	t.Helper()
	resp := env.do(t, "POST", "/api/bouquet", "", body)
	expectStatus(t, resp, http.StatusCreated)
	created := decodeBody[createBouquetResponse](t, resp)
	if created.ID == "" {
		t.Fatal("empty id")
	}
	if created.ShareURL != testBaseURL+"/share/"+created.ID {
		t.Errorf("shareUrl = %q", created.ShareURL)
	}
	return created.ID
}

func TestCreateAndGetBouquet(t *testing.T) {
	env := setupTestServer(t)
	body := roseBouquet("envelope")
	body["senderName"] = "Ana"
	body["letter"] = "  Dear you,\n\nlove\n"
	body["items"] = []map[string]any{
		{"id": "a", "flowerId": "rose", "x": 33.3333, "y": 66.6666, "rotation": 12.345, "scale": 1.005},
		{"id": "b", "flowerId": "tulip", "x": 55, "y": 45, "rotation": -5, "scale": 1.1},
	}
	id := createBouquet(t, env, body)

	resp := env.do(t, "GET", "/api/bouquet/"+id, "", nil)
	expectStatus(t, resp, http.StatusOK)
	b := decodeBody[model.Bouquet](t, resp)

	if b.ID != id || b.Theme != model.ThemeLove || b.GiftType != model.GiftEnvelope {
		t.Errorf("unexpected bouquet: %+v", b)
	}
	wantItems := []model.PlacedItem{
		{ID: "a", FlowerID: "rose", X: 33.3333, Y: 66.6666, Rotation: 12.345, Scale: 1.005},
		{ID: "b", FlowerID: "tulip", X: 55, Y: 45, Rotation: -5, Scale: 1.1},
	}
	if diff := cmp.Diff(wantItems, b.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if b.Letter != "  Dear you,\n\nlove\n" || b.SenderName != "Ana" {
		t.Errorf("letter/sender = %q/%q", b.Letter, b.SenderName)
	}
	if b.CreatedBy != nil {
		t.Error("anonymous creation should have no creator")
	}
}

func TestCreateBouquetRejectsTooManyItems(t *testing.T) {
	env := setupTestServer(t)
	items := make([]map[string]any, 31)
	for i := range items {
		items[i] = map[string]any{"flowerId": "rose", "x": 50, "y": 50, "scale": 1}
	}
	body := roseBouquet("none")
	body["items"] = items

	resp := env.do(t, "POST", "/api/bouquet", "", body)
	expectStatus(t, resp, http.StatusBadRequest)

	page, err := store.ListBouquets(context.Background(), env.db, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 {
		t.Errorf("stored %d bouquets, want none", page.Total)
	}
}

func TestCreateBouquetRecordsCreator(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/bouquet", env.token, roseBouquet("none"))
	expectStatus(t, resp, http.StatusCreated)
	created := decodeBody[createBouquetResponse](t, resp)

	b, err := store.GetBouquet(context.Background(), env.db, created.ID)
	if err != nil || b == nil {
		t.Fatalf("get bouquet: %v", err)
	}
	if b.CreatedBy == nil || *b.CreatedBy != env.owner.ID {
		t.Errorf("createdBy = %v, want %d", b.CreatedBy, env.owner.ID)
	}
}

func TestCreateBouquetDropsUnknownFlowers(t *testing.T) {
	env := setupTestServer(t)
	body := roseBouquet("none")
	body["items"] = []map[string]any{
		{"flowerId": "rose", "x": 140, "y": -3, "scale": 1},
		{"flowerId": "plastic-fern", "x": 10, "y": 10, "scale": 1},
	}
	id := createBouquet(t, env, body)

	resp := env.do(t, "GET", "/api/bouquet/"+id, "", nil)
	b := decodeBody[model.Bouquet](t, resp)
	if len(b.Items) != 1 {
		t.Fatalf("items = %+v, want only the rose", b.Items)
	}
	if b.Items[0].X != 100 || b.Items[0].Y != 0 || b.Items[0].ID == "" {
		t.Errorf("item not normalized: %+v", b.Items[0])
	}
}

func TestCreateBouquetValidation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing theme", func(b map[string]any) { delete(b, "theme") }},
		{"unknown theme", func(b map[string]any) { b["theme"] = "halloween" }},
		{"unknown gift", func(b map[string]any) { b["giftType"] = "lottery" }},
		{"bad email", func(b map[string]any) { b["recipientEmail"] = "not-an-email" }},
		{"no flowers", func(b map[string]any) { b["items"] = []any{} }},
		{"empty letter", func(b map[string]any) { b["type"] = "letter"; b["letter"] = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := roseBouquet("none")
			tt.mutate(body)
			resp := env.do(t, "POST", "/api/bouquet", "", body)
			expectStatus(t, resp, http.StatusBadRequest)
		})
	}
}

func TestCreateBouquetMalformedJSON(t *testing.T) {
	env := setupTestServer(t)
	resp, err := http.Post(env.server.URL+"/api/bouquet", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestGetBouquetNotFound(t *testing.T) {
	env := setupTestServer(t)
	resp := env.do(t, "GET", "/api/bouquet/doesnotexist", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestListBouquetsOwnerOnly(t *testing.T) {
	env := setupTestServer(t)
	for range 3 {
		createBouquet(t, env, roseBouquet("none"))
	}
	_, userToken := signIn(t, env, "guest@example.com")

	expectStatus(t, env.do(t, "GET", "/api/bouquet", "", nil), http.StatusUnauthorized)
	expectStatus(t, env.do(t, "GET", "/api/bouquet", userToken, nil), http.StatusUnauthorized)

	resp := env.do(t, "GET", "/api/bouquet?page=1&limit=2", env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	page := decodeBody[model.BouquetPage](t, resp)
	if page.Total != 3 || len(page.Bouquets) != 2 || !page.HasMore || page.TotalPages != 2 {
		t.Errorf("page = %+v", page)
	}
}

func TestUnlockCodeGift(t *testing.T) {
	env := setupTestServer(t)
	body := roseBouquet("code")
	body["secretCode"] = "Rosebud"
	id := createBouquet(t, env, body)

	resp := env.do(t, "GET", "/api/bouquet/"+id, "", nil)
	b := decodeBody[model.Bouquet](t, resp)
	if !b.HasSecret {
		t.Error("hasSecret should be true")
	}

	for range 3 {
		resp = env.do(t, "POST", "/api/bouquet/"+id+"/unlock", "", map[string]string{"code": "daisy"})
		expectStatus(t, resp, http.StatusOK)
		out := decodeBody[unlockResponse](t, resp)
		if out.Revealed || !out.Shake {
			t.Fatalf("wrong code: %+v", out)
		}
	}

	resp = env.do(t, "POST", "/api/bouquet/"+id+"/unlock", "", map[string]string{"code": " rosebud "})
	expectStatus(t, resp, http.StatusOK)
	if out := decodeBody[unlockResponse](t, resp); !out.Revealed || out.Shake {
		t.Errorf("right code: %+v", out)
	}
}

func TestUnlockRejectsOtherGifts(t *testing.T) {
	env := setupTestServer(t)
	id := createBouquet(t, env, roseBouquet("envelope"))

	resp := env.do(t, "POST", "/api/bouquet/"+id+"/unlock", "", map[string]string{"code": "x"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, "POST", "/api/bouquet/missing/unlock", "", map[string]string{"code": "x"})
	expectStatus(t, resp, http.StatusNotFound)
}

func TestUpdateRole(t *testing.T) {
	env := setupTestServer(t)
	guest, _ := signIn(t, env, "guest@example.com")
	if guest.Role != model.RoleUser {
		t.Fatalf("second user role = %s, want user", guest.Role)
	}

	resp := env.do(t, "PATCH", "/api/owner/users/update-role", env.token,
		map[string]any{"userId": guest.ID, "newRole": "premium"})
	expectStatus(t, resp, http.StatusOK)
	if updated := decodeBody[model.User](t, resp); updated.Role != model.RolePremium {
		t.Errorf("role = %s, want premium", updated.Role)
	}

	stored, _ := store.GetUser(context.Background(), env.db, guest.ID)
	if stored.Role != model.RolePremium {
		t.Errorf("stored role = %s", stored.Role)
	}
}

func TestUpdateRoleRejections(t *testing.T) {
	env := setupTestServer(t)
	guest, guestToken := signIn(t, env, "guest@example.com")

	tests := []struct {
		name  string
		token string
		body  map[string]any
		want  int
	}{
		{"anonymous", "", map[string]any{"userId": guest.ID, "newRole": "premium"}, http.StatusUnauthorized},
		{"non-owner", guestToken, map[string]any{"userId": guest.ID, "newRole": "premium"}, http.StatusUnauthorized},
		{"own role", env.token, map[string]any{"userId": env.owner.ID, "newRole": "user"}, http.StatusBadRequest},
		{"grant owner", env.token, map[string]any{"userId": guest.ID, "newRole": "owner"}, http.StatusBadRequest},
		{"unknown role", env.token, map[string]any{"userId": guest.ID, "newRole": "admin"}, http.StatusBadRequest},
		{"missing user", env.token, map[string]any{"userId": 9999, "newRole": "premium"}, http.StatusNotFound},
		{"missing fields", env.token, map[string]any{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, "PATCH", "/api/owner/users/update-role", tt.token, tt.body)
			expectStatus(t, resp, tt.want)
		})
	}

	stored, _ := store.GetUser(context.Background(), env.db, guest.ID)
	if stored.Role != model.RoleUser {
		t.Errorf("role changed to %s by a rejected request", stored.Role)
	}
}

func TestListUsers(t *testing.T) {
	env := setupTestServer(t)
	signIn(t, env, "guest@example.com")

	resp := env.do(t, "GET", "/api/owner/users", env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	users := decodeBody[[]model.User](t, resp)
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
}

func TestSessionEndpoint(t *testing.T) {
	env := setupTestServer(t)

	expectStatus(t, env.do(t, "GET", "/api/auth/session", "", nil), http.StatusUnauthorized)
	expectStatus(t, env.do(t, "GET", "/api/auth/session", "garbage", nil), http.StatusUnauthorized)

	resp := env.do(t, "GET", "/api/auth/session", env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	s := decodeBody[model.Session](t, resp)
	if s.Email != "owner@example.com" || s.Role != model.RoleOwner || s.UserID != env.owner.ID {
		t.Errorf("session = %+v", s)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	env := setupTestServer(t)
	tokens, err := env.auth.IssueSession(context.Background(), env.owner)
	if err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": tokens.RefreshToken})
	expectStatus(t, resp, http.StatusOK)
	var hasCookie bool
	for _, c := range resp.Cookies() {
		if c.Name == auth.TokenCookie && c.HttpOnly {
			hasCookie = true
		}
	}
	if !hasCookie {
		t.Error("refresh should set the session cookie")
	}
	fresh := decodeBody[sessionResponse](t, resp)
	if fresh.Tokens == nil || fresh.AccessToken == "" || fresh.RefreshToken == tokens.RefreshToken {
		t.Fatalf("refresh did not rotate: %+v", fresh.Tokens)
	}

	// Refresh tokens are single use.
	resp = env.do(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": tokens.RefreshToken})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = env.do(t, "POST", "/api/auth/logout", fresh.AccessToken, map[string]string{"refreshToken": fresh.RefreshToken})
	expectStatus(t, resp, http.StatusNoContent)

	expectStatus(t, env.do(t, "GET", "/api/auth/session", fresh.AccessToken, nil), http.StatusUnauthorized)
	resp = env.do(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": fresh.RefreshToken})
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestGenerateImage(t *testing.T) {
	env := setupTestServer(t)

	expectStatus(t, env.do(t, "POST", "/api/generate-image", "", map[string]string{"prompt": "  "}), http.StatusBadRequest)

	resp := env.do(t, "POST", "/api/generate-image", "", map[string]string{"prompt": "pink peonies at dawn"})
	expectStatus(t, resp, http.StatusOK)
	out := decodeBody[generateImageResponse](t, resp)
	if !strings.HasPrefix(out.ImageURL, imagegen.DefaultBaseURL+"/prompt/pink%20peonies%20at%20dawn?") {
		t.Errorf("imageUrl = %q", out.ImageURL)
	}
}

func TestRateLimit(t *testing.T) {
	env := setupTestServer(t, withLimiter(2))
	body := map[string]string{"prompt": "roses"}

	expectStatus(t, env.do(t, "POST", "/api/generate-image", "", body), http.StatusOK)
	expectStatus(t, env.do(t, "POST", "/api/generate-image", "", body), http.StatusOK)
	resp := env.do(t, "POST", "/api/generate-image", "", body)
	expectStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Reads are not throttled.
	expectStatus(t, env.do(t, "GET", "/api/flowers", "", nil), http.StatusOK)
}

func TestShareNotifyUnconfigured(t *testing.T) {
	env := setupTestServer(t)
	resp := env.do(t, "POST", "/api/share-notify", "", map[string]string{"email": "friend@example.com", "bbqName": "Ana"})
	expectStatus(t, resp, http.StatusInternalServerError)
}

func TestShareNotify(t *testing.T) {
	env := setupTestServer(t, withEmail())
	id := createBouquet(t, env, roseBouquet("none"))

	expectStatus(t, env.do(t, "POST", "/api/share-notify", "",
		map[string]string{"email": "nope", "bbqName": "Ana"}), http.StatusBadRequest)
	expectStatus(t, env.do(t, "POST", "/api/share-notify", "",
		map[string]string{"email": "friend@example.com", "bbqName": "Ana", "shareId": "missing"}), http.StatusNotFound)

	resp := env.do(t, "POST", "/api/share-notify", "",
		map[string]string{"email": "friend@example.com", "bbqName": "Ana", "shareId": id})
	expectStatus(t, resp, http.StatusOK)

	env.mu.Lock()
	defer env.mu.Unlock()
	if len(env.sent) != 1 || env.sent[0] != "friend@example.com" {
		t.Errorf("sent = %v", env.sent)
	}
	b, _ := store.GetBouquet(context.Background(), env.db, id)
	if !b.IsSent {
		t.Error("bouquet should be marked sent")
	}
}

func TestFlowers(t *testing.T) {
	env := setupTestServer(t)
	resp := env.do(t, "GET", "/api/flowers", "", nil)
	expectStatus(t, resp, http.StatusOK)
	flowers := decodeBody[[]model.FlowerDefinition](t, resp)
	if len(flowers) != len(catalog.Default().All()) {
		t.Errorf("got %d flowers", len(flowers))
	}
}

func TestDrafts(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/drafts", "", nil)
	expectStatus(t, resp, http.StatusCreated)
	d := decodeBody[drafts.Draft](t, resp)
	base := "/api/drafts/" + d.ID

	resp = env.do(t, "PUT", base+"/flowers/rose", "", map[string]int{"count": 3})
	expectStatus(t, resp, http.StatusOK)
	d = decodeBody[drafts.Draft](t, resp)
	if len(d.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(d.Items))
	}

	// The cap is five in this setup.
	resp = env.do(t, "PUT", base+"/flowers/tulip", "", map[string]int{"count": 4})
	d = decodeBody[drafts.Draft](t, resp)
	if len(d.Items) != 5 {
		t.Errorf("items = %d, want capped at 5", len(d.Items))
	}

	expectStatus(t, env.do(t, "PUT", base+"/flowers/plastic-fern", "", map[string]int{"count": 1}), http.StatusBadRequest)
	expectStatus(t, env.do(t, "PUT", base+"/flowers/rose", "", map[string]int{"count": -1}), http.StatusBadRequest)
	expectStatus(t, env.do(t, "PUT", base+"/flowers/rose", "", map[string]any{}), http.StatusBadRequest)

	itemID := d.Items[0].ID
	resp = env.do(t, "PATCH", base+"/items/"+itemID, "", map[string]float64{"x": 150, "rotation": 45})
	expectStatus(t, resp, http.StatusOK)
	d = decodeBody[drafts.Draft](t, resp)
	if d.Items[0].X != 100 || d.Items[0].Rotation != 45 {
		t.Errorf("patched item = %+v", d.Items[0])
	}

	resp = env.do(t, "DELETE", base+"/items/"+itemID, "", nil)
	expectStatus(t, resp, http.StatusOK)
	d = decodeBody[drafts.Draft](t, resp)
	if len(d.Items) != 4 {
		t.Errorf("items = %d after delete, want 4", len(d.Items))
	}

	expectStatus(t, env.do(t, "DELETE", base, "", nil), http.StatusNoContent)
	expectStatus(t, env.do(t, "GET", base, "", nil), http.StatusNotFound)
}

func TestUnknownAPIRoute(t *testing.T) {
	env := setupTestServer(t)
	expectStatus(t, env.do(t, "GET", "/api/nothing-here", "", nil), http.StatusNotFound)
}

func TestHealth(t *testing.T) {
	database := db.NewTestDB(t)
	rec := httptest.NewRecorder()
	Health(database)(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
