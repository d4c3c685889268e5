//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/emotext/internal/credentials"
	"github.com/ashureev/emotext/internal/domain"
	"github.com/ashureev/emotext/internal/router"
	"github.com/ashureev/emotext/internal/store"
	"github.com/go-chi/chi/v5"
)

// fakeRepo implements store.Repository in memory.
type fakeRepo struct {
	mu          sync.Mutex
	accounts    []*domain.Account
	visits      []*domain.PageVisitRecord
	predictions []*domain.PredictionRecord
}

func (f *fakeRepo) CreateAccount(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == account.Username {
			return store.ErrDuplicateUsername
		}
	}
	copy := *account
	f.accounts = append(f.accounts, &copy)
	return nil
}

func (f *fakeRepo) GetAccountByUsername(_ context.Context, username string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == username {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListAccounts(_ context.Context) ([]*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Account(nil), f.accounts...), nil
}

func (f *fakeRepo) AddPageVisit(_ context.Context, page string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, &domain.PageVisitRecord{PageName: page, VisitedAt: at})
	return nil
}

func (f *fakeRepo) AddPrediction(_ context.Context, rec *domain.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *rec
	f.predictions = append(f.predictions, &copy)
	return nil
}

func (f *fakeRepo) ListPageVisits(_ context.Context) ([]*domain.PageVisitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.PageVisitRecord(nil), f.visits...), nil
}

func (f *fakeRepo) ListPredictions(_ context.Context) ([]*domain.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.PredictionRecord(nil), f.predictions...), nil
}

func (f *fakeRepo) CountVisitsByPage(_ context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, v := range f.visits {
		counts[v.PageName]++
	}
	return counts, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

// testClient drives the API as one browser session, carrying the
// session cookie across requests.
type testClient struct {
	t      *testing.T
	srv    http.Handler
	cookie *http.Cookie
}

func newTestClient(t *testing.T) (*testClient, *fakeRepo) {
	t.Helper()

	repo := &fakeRepo{}
	creds := credentials.New(repo, "@gmail.com")
	rtr := router.New(creds, repo, nil, "admin", "admin", nil)
	sessions := NewSessionManager()
	handler := NewHandler(rtr, creds, repo, sessions)

	r := chi.NewRouter()
	r.Use(SessionMiddleware(true))
	handler.RegisterRoutes(r)

	return &testClient{t: t, srv: r}, repo
}

func (c *testClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.srv.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			c.cookie = cookie
		}
	}
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func sessionOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	s, ok := body["session"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no session: %v", body)
	}
	return s
}

var aliceForm = map[string]interface{}{
	"username":         "alice",
	"first_name":       "Alice",
	"last_name":        "Lee",
	"age":              30,
	"gender":           "Female",
	"email":            "alice@gmail.com",
	"password":         "abcd1234",
	"confirm_password": "abcd1234",
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestInitialState(t *testing.T) {
	client, _ := newTestClient(t)

	w := client.do(http.MethodGet, "/api/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	s := sessionOf(t, decodeBody(t, w))
	if s["role"] != "anonymous" || s["view"] != "home" {
		t.Errorf("Expected anonymous/home, got %v", s)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	client, _ := newTestClient(t)

	w := client.do(http.MethodPost, "/api/register", aliceForm)
	if w.Code != http.StatusOK {
		t.Fatalf("Register: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	s := sessionOf(t, decodeBody(t, w))
	if s["role"] != "anonymous" || s["view"] != "login" {
		t.Errorf("Expected anonymous/login after registration, got %v", s)
	}

	w = client.do(http.MethodPost, "/api/login", map[string]string{
		"username": "alice", "password": "abcd1234",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	s = sessionOf(t, decodeBody(t, w))
	if s["role"] != "user" || s["view"] != "home" || s["username"] != "alice" {
		t.Errorf("Expected alice on unlocked home, got %v", s)
	}
}

func TestRegisterValidationSurfacesError(t *testing.T) {
	client, _ := newTestClient(t)

	form := map[string]interface{}{}
	for k, v := range aliceForm {
		form[k] = v
	}
	form["email"] = "alice@yahoo.com"

	w := client.do(http.MethodPost, "/api/register", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	// The session stays on the registration view.
	w = client.do(http.MethodGet, "/api/state", nil)
	s := sessionOf(t, decodeBody(t, w))
	if s["view"] != "registration" {
		t.Errorf("Expected registration view, got %v", s)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	client, _ := newTestClient(t)
	client.do(http.MethodPost, "/api/register", aliceForm)

	w := client.do(http.MethodPost, "/api/login", map[string]string{
		"username": "alice", "password": "wrong123",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}

func TestPredictRequiresLogin(t *testing.T) {
	client, _ := newTestClient(t)

	w := client.do(http.MethodPost, "/api/predict", map[string]string{"text": "hello"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}

func TestPredictUnavailableWithoutClassifier(t *testing.T) {
	client, _ := newTestClient(t)
	client.do(http.MethodPost, "/api/register", aliceForm)
	client.do(http.MethodPost, "/api/login", map[string]string{
		"username": "alice", "password": "abcd1234",
	})

	w := client.do(http.MethodPost, "/api/predict", map[string]string{"text": "hello"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}
}

func TestAdminLoginAndUserData(t *testing.T) {
	client, _ := newTestClient(t)
	client.do(http.MethodPost, "/api/register", aliceForm)

	// Anonymous sessions may not read user data.
	w := client.do(http.MethodGet, "/api/users", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for anonymous, got %d", w.Code)
	}

	w = client.do(http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin", "password": "admin",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Admin login: expected 200, got %d", w.Code)
	}
	s := sessionOf(t, decodeBody(t, w))
	if s["role"] != "admin" || s["view"] != "view_user_data" {
		t.Errorf("Expected admin on user-data view, got %v", s)
	}

	w = client.do(http.MethodGet, "/api/users", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	users, ok := body["users"].([]interface{})
	if !ok || len(users) != 1 {
		t.Fatalf("Expected 1 user, got %v", body["users"])
	}
	user := users[0].(map[string]interface{})
	if user["password_hash"] == "" {
		t.Error("Expected password hash in admin payload")
	}
}

func TestAdminLoginMismatch(t *testing.T) {
	client, _ := newTestClient(t)

	w := client.do(http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin", "password": "letmein1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}

	w = client.do(http.MethodGet, "/api/state", nil)
	s := sessionOf(t, decodeBody(t, w))
	if s["role"] != "anonymous" || s["view"] != "admin" {
		t.Errorf("Expected anonymous on admin prompt, got %v", s)
	}
}

func TestNavigateUnreachableRerendersCurrentView(t *testing.T) {
	client, _ := newTestClient(t)

	w := client.do(http.MethodPost, "/api/navigate", map[string]string{"view": "view_user_data"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	s := sessionOf(t, decodeBody(t, w))
	if s["role"] != "anonymous" || s["view"] != "home" {
		t.Errorf("Expected unchanged anonymous/home, got %v", s)
	}
}

func TestMonitorPayload(t *testing.T) {
	client, repo := newTestClient(t)

	client.do(http.MethodPost, "/api/navigate", map[string]string{"view": "about"})
	client.do(http.MethodPost, "/api/navigate", map[string]string{"view": "monitor"})

	w := client.do(http.MethodGet, "/api/monitor", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)

	visits, ok := body["visits"].([]interface{})
	if !ok || len(visits) != len(repo.visits) {
		t.Errorf("Expected %d visits, got %v", len(repo.visits), body["visits"])
	}
	counts, ok := body["visit_counts"].(map[string]interface{})
	if !ok || counts["about"] != float64(1) || counts["monitor"] != float64(1) {
		t.Errorf("Unexpected counts: %v", body["visit_counts"])
	}
}

func TestMonitorForbiddenForAdmin(t *testing.T) {
	client, _ := newTestClient(t)
	client.do(http.MethodPost, "/api/admin/login", map[string]string{
		"username": "admin", "password": "admin",
	})

	w := client.do(http.MethodGet, "/api/monitor", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for admin role, got %d", w.Code)
	}
}

func TestLogoutResetsSession(t *testing.T) {
	client, _ := newTestClient(t)
	client.do(http.MethodPost, "/api/register", aliceForm)
	client.do(http.MethodPost, "/api/login", map[string]string{
		"username": "alice", "password": "abcd1234",
	})

	w := client.do(http.MethodPost, "/api/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	s := sessionOf(t, decodeBody(t, w))
	if s["role"] != "anonymous" || s["view"] != "home" {
		t.Errorf("Expected initial state after logout, got %v", s)
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	client, _ := newTestClient(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	client.srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

// Guard against the fake drifting from the real interface.
var _ store.Repository = (*fakeRepo)(nil)
