package echo_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connectapi "github.com/appgrid/platform-connect/api/echo"
	"github.com/appgrid/platform-connect/cache"
	"github.com/appgrid/platform-connect/domain"
	"github.com/appgrid/platform-connect/internal/crypto"
	"github.com/appgrid/platform-connect/internal/flow"
	"github.com/appgrid/platform-connect/internal/platform"
	"github.com/appgrid/platform-connect/log"
)

type recordingRepo struct {
	mu       sync.Mutex
	inserted []*domain.Credential
}

func (r *recordingRepo) Insert(_ context.Context, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, cred)
	return nil
}

// fakePlatform serves the token endpoint and the orgs endpoint. The id_token
// it issues carries whatever nonce the test assigns before the exchange.
type fakePlatform struct {
	mu    sync.Mutex
	nonce string
}

func (p *fakePlatform) setNonce(n string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonce = n
}

func (p *fakePlatform) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		nonce := p.nonce
		p.mu.Unlock()

		idToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"nonce": nonce,
			"sub":   "user-42",
		})
		raw, err := idToken.SignedString([]byte("platform-key"))
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "plain-access",
			"refresh_token": "plain-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "read write",
			"id_token":      raw,
		})
	})
	mux.HandleFunc("/apps/app-123/orgs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"org-1","name":"First Org"}]}`)
	})
	return mux
}

type testHarness struct {
	api      *connectapi.ConnectAPI
	echo     *echo.Echo
	repo     *recordingRepo
	platform *fakePlatform
	store    *cache.MemoryAttemptStore
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	fp := &fakePlatform{}
	server := httptest.NewServer(fp.handler(t))
	t.Cleanup(server.Close)

	cipher, err := crypto.NewTokenCipher("harness-key")
	require.NoError(t, err)

	repo := &recordingRepo{}
	orgs := platform.NewOrgResolver(server.Client(), server.URL, "app-123", "2024-01")

	f := flow.NewFlow(flow.Config{
		AuthorizationEndpoint: server.URL + "/oauth/authorize",
		TokenEndpoint:         server.URL + "/oauth/token",
		ClientID:              "app-123",
		ClientSecret:          "shhh",
		CallbackURL:           "http://app.local/connect/callback",
		Scope:                 "read write",
	}, orgs, nil, cipher, repo, log.NewNopLogger())

	store := cache.NewMemoryAttemptStore(time.Minute)
	t.Cleanup(store.Stop)

	api := connectapi.NewConnectAPI(f, store)
	e := echo.New()
	api.RegisterRoutes(e)

	return &testHarness{api: api, echo: e, repo: repo, platform: fp, store: store}
}

// startConnect drives GET /connect and returns the state and nonce embedded in
// the redirect.
func (h *testHarness) startConnect(t *testing.T) (state, nonce string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/connect", nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	query := location.Query()
	state = query.Get("state")
	nonce = query.Get("nonce")
	require.NotEmpty(t, state)
	require.NotEmpty(t, nonce)
	return state, nonce
}

func TestConnectThenCallback(t *testing.T) {
	h := newHarness(t)

	state, nonce := h.startConnect(t)
	h.platform.setNonce(nonce)

	req := httptest.NewRequest(http.MethodGet, "/connect/callback?code=auth-code&state="+state, nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "connected", body["status"])
	assert.Equal(t, nonce, body["nonce"])

	require.Len(t, h.repo.inserted, 1)
	cred := h.repo.inserted[0]
	assert.Equal(t, "org-1", cred.OrgID)
	assert.Equal(t, "user-42", cred.UserID)
	assert.NotEqual(t, "plain-access", cred.AccessToken)
	assert.NotEqual(t, "plain-refresh", cred.RefreshToken)
}

func TestCallback_ReplayedAssertion(t *testing.T) {
	h := newHarness(t)

	state, _ := h.startConnect(t)
	// The platform echoes back a nonce from some other attempt.
	h.platform.setNonce("stolen-nonce-from-elsewhere")

	req := httptest.NewRequest(http.MethodGet, "/connect/callback?code=auth-code&state="+state, nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.repo.inserted)
}

func TestCallback_UnknownState(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/connect/callback?code=auth-code&state=never-issued", nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.repo.inserted)
}

func TestCallback_StateSingleUse(t *testing.T) {
	h := newHarness(t)

	state, nonce := h.startConnect(t)
	h.platform.setNonce(nonce)

	first := httptest.NewRecorder()
	h.echo.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/connect/callback?code=auth-code&state="+state, nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.echo.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/connect/callback?code=auth-code&state="+state, nil))
	assert.Equal(t, http.StatusUnauthorized, second.Code)
	assert.Len(t, h.repo.inserted, 1)
}

func TestCallback_ProviderError(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/connect/callback?error=access_denied", nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallback_MissingParams(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/connect/callback", nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
