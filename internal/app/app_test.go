package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edtproxy/edtproxy/internal/config"
	"github.com/edtproxy/edtproxy/internal/utils"
	"github.com/edtproxy/edtproxy/pkg/feed"
	"github.com/edtproxy/edtproxy/pkg/portal"
)

const (
	e2eLoginURL = "https://portal.example/planning/index.php"
	e2eBaseURL  = "https://portal.example/planning/"
)

func newTestApplication(t *testing.T) (*mux.Router, *Dependencies, *portal.ClientStub, *utils.MockClock) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Application{
		Listen:          ":0",
		CacheDir:        filepath.Join(dir, "cache"),
		TokenFile:       filepath.Join(dir, "tokens.json"),
		AdminSecret:     "admin-secret",
		RefreshInterval: 5 * time.Minute,
		Portal: config.Portal{
			LoginURL: e2eLoginURL,
			BaseURL:  e2eBaseURL,
			Username: "student",
			Password: "secret",
			Timeout:  time.Second,
		},
		Sections: map[string]string{"CS1": "suffix1"},
	}
	require.NoError(t, cfg.Validate())

	deps, err := BuildDependencies(cfg)
	require.NoError(t, err)

	// Swap in a stubbed portal and a fixed clock for determinism.
	client := portal.NewClientStub()
	clock := &utils.MockClock{FixedNow: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	deps.Clock = clock
	deps.PortalClient = client
	deps.Fetcher = portal.NewFetcher(client, deps.Registry, deps.Cache, clock, cfg.Portal)
	deps.FeedHandler = feed.NewHandler(deps.Registry, deps.Cache, deps.TokenStore, clock)

	r := mux.NewRouter()
	SetupMiddleware(r, deps, cfg)
	RegisterRoutes(r, deps, cfg)
	return r, deps, client, clock
}

func createToken(t *testing.T, router *mux.Router, owner string) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/admin/create_token", strings.NewReader(`{"owner":"`+owner+`"}`))
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var dto struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	return dto.Token
}

func TestFetchThenServe(t *testing.T) {
	router, deps, client, clock := newTestApplication(t)
	accessToken := createToken(t, router, "alice")

	// Before any cycle the section is configured but unavailable.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/CS1?token="+accessToken, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	client.SetGetResponse(e2eLoginURL, http.StatusOK, []byte("<html>Connexion</html>"))
	client.SetGetResponse(e2eBaseURL+"suffix1", http.StatusOK,
		[]byte("BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:1\r\nDESCRIPTION:Lecture\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"))
	deps.Fetcher.RunOnce(context.Background())

	cached, err := deps.Cache.Load("CS1")
	require.NoError(t, err)
	assert.Contains(t, string(cached), `DESCRIPTION:Lecture\n(Scrap le 01/01/2024 10:00:00)`)

	clock.SetNow(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/cs1?token="+accessToken, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`DESCRIPTION:Lecture\n(Scrap le 01/01/2024 10:00:00)\n(Importé le 01/01/2024 12:00:00)`)

	// Serving must not have touched the cache file.
	onDisk, err := deps.Cache.Load("CS1")
	require.NoError(t, err)
	assert.Equal(t, string(cached), string(onDisk))
}

func TestServeRejectsRevokedToken(t *testing.T) {
	router, _, client, _ := newTestApplication(t)
	accessToken := createToken(t, router, "alice")

	client.SetGetResponse(e2eLoginURL, http.StatusOK, []byte("<html>Connexion</html>"))
	client.SetGetResponse(e2eBaseURL+"suffix1", http.StatusOK,
		[]byte("BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:1\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"))

	req := httptest.NewRequest("DELETE", "/admin/token/alice", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/CS1?token="+accessToken, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIndexListsSections(t *testing.T) {
	router, _, _, _ := newTestApplication(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["CS1"]`, rec.Body.String())
}
