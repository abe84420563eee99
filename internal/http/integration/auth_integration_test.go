package integration__test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	apphttp "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func testConfigAuth(t *testing.T) config.Config {
	return config.Config{
		Env:                config.EnvTest,
		Port:               0,
		JWTSecret:          "test-secret-key-that-is-long-enough!",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		StaticDir:          t.TempDir(),
		TemplatesDir:       t.TempDir(),
		ServiceName:        "authhub-test",
	}
}

func setupAuthTestRouter(t *testing.T) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()
	return setupAuthTestRouterWith(t, testConfigAuth(t))
}

func setupAuthTestRouterWith(t *testing.T, cfg config.Config) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewUsersRepo()

	hash, err := security.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash seed password: %v", err)
	}

	_, err = repo.Create(context.Background(), user.User{
		UserID:       "alice01",
		Email:        "a@x.com",
		Name:         "Alice",
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg := prometheus.NewRegistry()

	router := apphttp.NewRouter(logger, cfg, apphttp.Deps{
		Users:    repo,
		Ping:     repo.Ping,
		Prom:     observability.NewProm(reg),
		Gatherer: reg,
	})

	return router, repo
}

// helpers

type loginResponse struct {
	Token string       `json:"token"`
	User  user.Profile `json:"user"`
}

func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func login(t *testing.T, router http.Handler, identifier, password string) loginResponse {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"`+identifier+`","password":"`+password+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	mustReadJSON(t, w, &resp)

	if strings.TrimSpace(resp.Token) == "" {
		t.Fatalf("login expected token, got empty")
	}

	return resp
}

func TestAuthIntegration_Login_Profile_Update_ChangePassword(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	// LOGIN

	first := login(t, router, "a@x.com", "secret1")

	if first.User.Email != "a@x.com" || first.User.UserID != "alice01" || first.User.Name != "Alice" {
		t.Fatalf("unexpected login user: %+v", first.User)
	}

	// VALIDATE

	w := doRequest(router, http.MethodGet, "/api/auth/validate-token", "", first.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("validate got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var validated struct {
		Valid bool `json:"valid"`
		User  struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	mustReadJSON(t, w, &validated)

	if !validated.Valid || validated.User.ID != first.User.ID || validated.User.Email != "a@x.com" {
		t.Fatalf("unexpected validate body: %s", w.Body.String())
	}

	// PROFILE

	w = doRequest(router, http.MethodGet, "/api/auth/profile", "", first.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("profile got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Fatalf("profile must not expose password material: %s", w.Body.String())
	}

	// UPDATE NAME

	w = doRequest(router, http.MethodPut, "/api/auth/update-profile", `{"name":"  Bob "}`, first.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("update-profile got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var updated struct {
		User user.Profile `json:"user"`
	}
	mustReadJSON(t, w, &updated)

	if updated.User.Name != "Bob" {
		t.Fatalf("expected trimmed name Bob, got %q", updated.User.Name)
	}

	// CHANGE PASSWORD

	w = doRequest(router, http.MethodPost, "/api/auth/change-password", `{"currentPassword":"secret1","newPassword":"abc12"}`, first.Token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short password got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doRequest(router, http.MethodPost, "/api/auth/change-password", `{"currentPassword":"secret1","newPassword":"newpass1"}`, first.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("change-password got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	// old password no longer works, new one does, by user id too

	w = doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"secret1"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password login got status %d, want %d", w.Code, http.StatusUnauthorized)
	}

	second := login(t, router, "alice01", "newpass1")
	if second.User.Name != "Bob" {
		t.Fatalf("expected renamed user after relogin, got %q", second.User.Name)
	}

	// tokens issued before the change keep working until they expire
	w = doRequest(router, http.MethodGet, "/api/auth/profile", "", first.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("pre-change token got status %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthIntegration_GuardAndCredentialFailures(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	unknown := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"nobody@x.com","password":"secret1"}`, "")
	wrong := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"wrong"}`, "")

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got unknown=%d wrong=%d", unknown.Code, wrong.Code)
	}

	var unknownErr, wrongErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	mustReadJSON(t, unknown, &unknownErr)
	mustReadJSON(t, wrong, &wrongErr)

	if unknownErr.Error != wrongErr.Error {
		t.Fatalf("unknown user and wrong password must look identical: %+v vs %+v", unknownErr.Error, wrongErr.Error)
	}

	if w := doRequest(router, http.MethodGet, "/api/auth/profile", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token got status %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if w := doRequest(router, http.MethodGet, "/api/auth/profile", "", "garbage"); w.Code != http.StatusForbidden {
		t.Fatalf("bad token got status %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestAuthIntegration_AmbientRoutes(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	login(t, router, "a@x.com", "secret1")

	if w := doRequest(router, http.MethodGet, "/readyz", "", ""); w.Code != http.StatusOK {
		t.Fatalf("readyz got status %d, want %d", w.Code, http.StatusOK)
	}

	w := doRequest(router, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics got status %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `authhub_auth_outcomes_total{op="login",result="ok"} 1`) {
		t.Fatalf("expected login outcome in metrics, body=%s", w.Body.String())
	}

	if w := doRequest(router, http.MethodGet, "/docs/openapi.yaml", "", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/auth/login") {
		t.Fatalf("openapi got status %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("preflight got status %d, allow-origin=%q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestAuthIntegration_RootServesIndexPage(t *testing.T) {
	cfg := testConfigAuth(t)
	const body = "<html><body>sign in</body></html>"
	if err := os.WriteFile(filepath.Join(cfg.TemplatesDir, "index.html"), []byte(body), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	router, _ := setupAuthTestRouterWith(t, cfg)

	w := doRequest(router, http.MethodGet, "/", "", "")
	if w.Code != http.StatusFound {
		t.Fatalf("GET / got status %d, want %d", w.Code, http.StatusFound)
	}
	loc := w.Header().Get("Location")
	if loc != "/templates/index.html" {
		t.Fatalf("GET / location = %q", loc)
	}

	w = doRequest(router, http.MethodGet, loc, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s got status %d, want %d, location=%q", loc, w.Code, http.StatusOK, w.Header().Get("Location"))
	}
	if w.Body.String() != body {
		t.Fatalf("GET %s body = %q", loc, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("GET %s content-type = %q", loc, ct)
	}
}

func TestAuthIntegration_LoginWithoutContentType(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusUnsupportedMediaType {
		t.Fatalf("login without content-type was rejected as %d, body=%s", w.Code, w.Body.String())
	}
	if w.Code != http.StatusOK {
		t.Fatalf("login without content-type got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`email=a@x.com`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("undecodable body got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}
