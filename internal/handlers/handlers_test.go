package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/middleware"
	"resume-relay/internal/models"
	"resume-relay/internal/relay"
)

type fakeUpstream struct {
	calls atomic.Int32
	srv   *httptest.Server
}

func newFakeUpstream(t *testing.T, h http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func replyJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChat_Success(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, `{"reply":"Paris","handled":true,"trace":"x"}`)
	})
	m := metrics.New()
	h := NewChatHandler(relay.New(relay.Config{BaseURL: up.srv.URL}), logging.NewNop(), m)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"Where do you live?","history":[]}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"reply":"Paris","handled":true}`, rec.Body.String())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Outcomes.WithLabelValues("chat", "200")))
}

func TestChat_InvalidPayloadNeverReachesUpstream(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, `{"reply":"x","handled":true}`)
	})
	h := NewChatHandler(relay.New(relay.Config{BaseURL: up.srv.URL}), logging.NewNop(), nil)

	bodies := []string{
		`{"message":""}`,
		`{"message":"hi","history":[{"role":"bot","content":"x"}]}`,
		`not json`,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		resp := decodeError(t, rec)
		assert.Equal(t, "Invalid request data", resp.Error)
		assert.NotEmpty(t, resp.Issues)
	}
	assert.Equal(t, int32(0), up.calls.Load())
}

func TestChat_OversizedBody(t *testing.T) {
	h := NewChatHandler(relay.New(relay.Config{BaseURL: "http://127.0.0.1:1"}), logging.NewNop(), nil)
	big := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(big)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is too large", decodeError(t, rec).Issues[0].Message)
}

func TestChat_UpstreamFailures(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			replyJSON(w, http.StatusServiceUnavailable, `{"error":"overloaded"}`)
		})
		h := NewChatHandler(relay.New(relay.Config{BaseURL: up.srv.URL}), logging.NewNop(), nil)

		rec := httptest.NewRecorder()
		h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "overloaded", decodeError(t, rec).Error)
	})

	t.Run("timeout", func(t *testing.T) {
		up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		h := NewChatHandler(relay.New(relay.Config{BaseURL: up.srv.URL, Timeout: 50 * time.Millisecond}), logging.NewNop(), nil)

		rec := httptest.NewRecorder()
		h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, "Upstream request timed out", decodeError(t, rec).Error)
	})

	t.Run("not configured", func(t *testing.T) {
		h := NewChatHandler(relay.New(relay.Config{}), logging.NewNop(), nil)

		rec := httptest.NewRecorder()
		h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "Unexpected error", resp.Error)
		assert.NotEmpty(t, resp.Detail)
	})
}

func TestContact_Submit(t *testing.T) {
	var got models.ContactRequest
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contact", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		replyJSON(w, http.StatusOK, `{"success":true}`)
	})
	h := NewContactHandler(relay.New(relay.Config{BaseURL: up.srv.URL}), logging.NewNop(), nil)

	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/contact",
		strings.NewReader(`{"name":"Ada","email":"ada@example.com","message":"Hello"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "Ada", got.Name)

	rec = httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"name":"Ada","email":"nope","message":"Hello"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decodeError(t, rec).Issues[0].Field)
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestSystem(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		replyJSON(w, http.StatusOK, `{"status":"ok","model":"tfidf"}`)
	})
	h := NewSystemHandler(relay.New(relay.Config{BaseURL: up.srv.URL}), "https://api.example.com", logging.NewNop(), nil)

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.UpstreamHealth(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","model":"tfidf"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.PublicConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	assert.JSONEq(t, `{"public_api_url":"https://api.example.com"}`, rec.Body.String())
}

func TestDebug(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/debug/resume":
			assert.Equal(t, http.MethodGet, r.Method)
			replyJSON(w, http.StatusOK, `{"chars":10}`)
		case "/debug/reload-resume":
			assert.Equal(t, http.MethodPost, r.Method)
			replyJSON(w, http.StatusOK, `{"reloaded":true}`)
		case "/debug/retrieve":
			assert.Equal(t, "go", r.URL.Query().Get("q"))
			assert.Equal(t, "2", r.URL.Query().Get("k"))
			replyJSON(w, http.StatusOK, `{"query":"go","results":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	h := NewDebugHandler(relay.New(relay.Config{BaseURL: up.srv.URL}), logging.NewNop(), nil)

	rec := httptest.NewRecorder()
	h.Resume(rec, httptest.NewRequest(http.MethodGet, "/api/debug/resume", nil))
	assert.JSONEq(t, `{"chars":10}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ReloadResume(rec, httptest.NewRequest(http.MethodPost, "/api/debug/reload-resume", nil))
	assert.JSONEq(t, `{"reloaded":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Retrieve(rec, httptest.NewRequest(http.MethodGet, "/api/debug/retrieve?q=go&k=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Retrieve(rec, httptest.NewRequest(http.MethodGet, "/api/debug/retrieve?k=2", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(3), up.calls.Load())
}

func TestChat_FailureLogCarriesRequestID(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusBadGateway, `{"error":"down"}`)
	})
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewChatHandler(relay.New(relay.Config{BaseURL: up.srv.URL}), &logging.Logger{Logger: zap.New(core)}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("X-Request-ID", "7b0c8a4e-3f43-4c36-9a57-0c5e2b1f7d11")
	rec := httptest.NewRecorder()
	middleware.RequestID(http.HandlerFunc(h.Chat)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	entries := logs.FilterMessage("relay call failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "7b0c8a4e-3f43-4c36-9a57-0c5e2b1f7d11", fields["request_id"])
	assert.Equal(t, "chat", fields["route"])
	assert.Equal(t, int64(http.StatusBadGateway), fields["status"])
}
