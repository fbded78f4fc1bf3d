package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chaintask-client/pkg/app"
	"chaintask-client/pkg/backend"
	"chaintask-client/pkg/config"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, backendURL string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		ServerURL:   backendURL,
		StateFile:   filepath.Join(t.TempDir(), "state.json"),
		KeystoreDir: filepath.Join(t.TempDir(), "keystore"),
		ChainID:     97,
		SnapshotTTL: time.Second,
	}
	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })

	router := gin.New()
	Routes(router, a)
	return router
}

func doRequest(router *gin.Engine, method string, path string, body string) (*httptest.ResponseRecorder, ApiResponse) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp ApiResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestSessionEndpoint_EmptyWhenLoggedOut(t *testing.T) {
	router := newTestRouter(t, "http://localhost:1")

	w, resp := doRequest(router, http.MethodGet, "/api/v1/session", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !resp.Success || resp.Body != nil {
		t.Fatalf("expected empty success envelope, got %+v", resp)
	}
}

func TestProtectedRoutes_RequireLogin(t *testing.T) {
	router := newTestRouter(t, "http://localhost:1")

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodPost, "/api/v1/wallet/connect"},
		{http.MethodGet, "/api/v1/tasks/"},
		{http.MethodGet, "/api/v1/notifications"},
	} {
		w, resp := doRequest(router, route.method, route.path, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, w.Code)
		}
		if resp.Success {
			t.Fatalf("%s %s: expected error envelope", route.method, route.path)
		}
	}
}

func TestTaskRoutes_RequireWalletAfterLogin(t *testing.T) {
	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.LoginResult{Token: "tok", Identity: "alice"})
	}))
	defer backendServer.Close()

	router := newTestRouter(t, backendServer.URL)

	w, _ := doRequest(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.c","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}

	w, _ = doRequest(router, http.MethodGet, "/api/v1/tasks/", "")
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 without wallet, got %d", w.Code)
	}
}

func TestLogin_BadBodyIsRejected(t *testing.T) {
	router := newTestRouter(t, "http://localhost:1")

	w, _ := doRequest(router, http.MethodPost, "/api/v1/auth/login", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLogin_AuthFailureIsUnauthorized(t *testing.T) {
	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"msg": "Wrong credentials"})
	}))
	defer backendServer.Close()

	router := newTestRouter(t, backendServer.URL)

	w, resp := doRequest(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.c","password":"bad"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if resp.Error != "Wrong credentials" {
		t.Fatalf("expected backend message passed through, got %v", resp.Error)
	}
}
