package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-relay/internal/handlers"
	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/middleware"
	"resume-relay/internal/relay"
	"resume-relay/internal/websocket"
)

func newTestRouter(t *testing.T, withAdmin bool, limiter *middleware.RateLimiter, trustProxy ...bool) (http.Handler, *middleware.AdminAuth) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat":
			io.WriteString(w, `{"reply":"hello","handled":true}`)
		default:
			io.WriteString(w, `{"status":"ok"}`)
		}
	}))
	t.Cleanup(upstream.Close)

	log := logging.NewNop()
	m := metrics.New()
	rl := relay.New(relay.Config{BaseURL: upstream.URL, Metrics: m})

	deps := Deps{
		Chat:           handlers.NewChatHandler(rl, log, m),
		Contact:        handlers.NewContactHandler(rl, log, m),
		System:         handlers.NewSystemHandler(rl, "https://api.example.com", log, m),
		Debug:          handlers.NewDebugHandler(rl, log, m),
		WSHub:          websocket.NewHub(rl, []string{"*"}, log, m),
		Limiter:        limiter,
		Metrics:        m,
		Logger:         log,
		AllowedOrigins: []string{"https://resume.example.com"},
		TrustProxy:     len(trustProxy) > 0 && trustProxy[0],
	}
	var auth *middleware.AdminAuth
	if withAdmin {
		auth = middleware.NewAdminAuth("secret")
		deps.AdminAuth = auth
	}
	return New(deps), auth
}

func serve(h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	h, _ := newTestRouter(t, false, nil)

	rec := serve(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"hello","handled":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/api/config", "", nil)
	assert.JSONEq(t, `{"public_api_url":"https://api.example.com"}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "relay_http_requests_total")

	rec = serve(h, http.MethodGet, "/api/chat", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_DebugRoutesNeedAdminSecret(t *testing.T) {
	h, _ := newTestRouter(t, false, nil)
	rec := serve(h, http.MethodGet, "/api/debug/resume", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h, auth := newTestRouter(t, true, nil)
	rec = serve(h, http.MethodGet, "/api/debug/resume", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.GenerateToken("ops", time.Minute)
	require.NoError(t, err)
	rec = serve(h, http.MethodGet, "/api/debug/resume", "", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RateLimitsRelayRoutes(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.NewMemoryStore(0.001, 1), logging.NewNop(), nil)
	h, _ := newTestRouter(t, false, limiter)

	rec := serve(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = serve(h, http.MethodGet, "/api/config", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "config is not rate limited")
}

func TestRouter_CORS(t *testing.T) {
	h, _ := newTestRouter(t, false, nil)

	rec := serve(h, http.MethodOptions, "/api/chat", "", http.Header{
		"Origin":                        {"https://resume.example.com"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, "https://resume.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, http.Header{"Origin": {"https://other.example.com"}})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ForwardedForIgnoredUnlessProxyTrusted(t *testing.T) {
	chat := func(h http.Handler, forwardedFor string) int {
		return serve(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, http.Header{"X-Forwarded-For": {forwardedFor}}).Code
	}

	direct := middleware.NewRateLimiter(middleware.NewMemoryStore(0.001, 1), logging.NewNop(), nil)
	h, _ := newTestRouter(t, false, direct)
	assert.Equal(t, http.StatusOK, chat(h, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, chat(h, "203.0.113.2"), "rotating the header must not reset the limit")

	proxied := middleware.NewRateLimiter(middleware.NewMemoryStore(0.001, 1), logging.NewNop(), nil)
	h, _ = newTestRouter(t, false, proxied, true)
	assert.Equal(t, http.StatusOK, chat(h, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, chat(h, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, chat(h, "203.0.113.1"))
}
