package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/middleware"
	"resume-relay/internal/models"
	"resume-relay/internal/normalize"
	"resume-relay/internal/relay"
	"resume-relay/internal/validation"
)

// maxBodyBytes caps inbound payloads; chat history is the largest field.
const maxBodyBytes = 1 << 20

// Upstream is the relay as seen by handlers.
type Upstream interface {
	Chat(ctx context.Context, req models.ChatRequest) (*relay.Result, error)
	Contact(ctx context.Context, req models.ContactRequest) (*relay.Result, error)
	Health(ctx context.Context) (*relay.Result, error)
	Forward(ctx context.Context, method, path string, query url.Values, body []byte) (*relay.Result, error)
}

// responder writes normalized envelopes and keeps logs and metrics in step.
type responder struct {
	log     *logging.Logger
	metrics *metrics.Metrics
}

func (p responder) respond(w http.ResponseWriter, r *http.Request, route string, env normalize.Envelope, err error) {
	p.metrics.RecordEnvelope(route, env.Status)

	if err != nil {
		log := p.log.With(
			zap.String("route", route),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
		var verr *validation.Error
		if errors.As(err, &verr) {
			log.Debug("rejected invalid payload", zap.Int("status", env.Status), zap.Error(err))
		} else {
			log.Warn("relay call failed", zap.Int("status", env.Status), zap.Error(err))
		}
	}

	env.Write(w)
}

// readBody reads at most maxBodyBytes. Failures are reported as validation
// errors so they never reach the upstream.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := "Request body could not be read"
		if errors.As(err, &tooLarge) {
			msg = "Request body is too large"
		}
		return nil, &validation.Error{Issues: []models.Issue{{Message: msg}}}
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
