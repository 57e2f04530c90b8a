// Package normalize maps relay outcomes to the envelopes returned to callers.
// The mapping is total: every (result, error) pair yields exactly one envelope.
package normalize

import (
	"encoding/json"
	"errors"
	"net/http"

	"resume-relay/internal/models"
	"resume-relay/internal/relay"
	"resume-relay/internal/validation"
)

const (
	MsgInvalidRequest = "Invalid request data"
	MsgTimeout        = "Upstream request timed out"
	MsgUnexpected     = "Unexpected error"
)

// Envelope is a ready-to-write HTTP response.
type Envelope struct {
	Status      int
	ContentType string
	Body        []byte
}

// Normalize builds the envelope for a relay outcome. A nil error with a nil
// result is treated as an unexpected failure.
func Normalize(res *relay.Result, err error) Envelope {
	if err != nil {
		return FromError(err)
	}
	if res == nil {
		return unexpected("relay returned no result")
	}

	switch {
	case res.Chat != nil:
		return jsonEnvelope(http.StatusOK, res.Chat)
	case res.Contact != nil:
		return jsonEnvelope(res.Status, res.Contact)
	case res.JSON:
		return Envelope{Status: res.Status, ContentType: "application/json", Body: res.Body}
	default:
		return Envelope{Status: res.Status, ContentType: res.ContentType, Body: res.Body}
	}
}

// FromError maps a failure to its envelope.
func FromError(err error) Envelope {
	var (
		verr    *validation.Error
		upErr   *relay.UpstreamError
		timeout *relay.TimeoutError
	)

	switch {
	case errors.As(err, &verr):
		return jsonEnvelope(http.StatusBadRequest, models.ErrorResponse{Error: MsgInvalidRequest, Issues: verr.Issues})
	case errors.As(err, &upErr):
		return jsonEnvelope(upErr.Status, models.ErrorResponse{Error: upErr.Message})
	case errors.As(err, &timeout):
		return jsonEnvelope(http.StatusGatewayTimeout, models.ErrorResponse{Error: MsgTimeout})
	default:
		// ConnectivityError, ConfigurationError, MalformedResponseError and
		// anything unforeseen.
		return unexpected(err.Error())
	}
}

func unexpected(detail string) Envelope {
	return jsonEnvelope(http.StatusInternalServerError, models.ErrorResponse{Error: MsgUnexpected, Detail: detail})
}

func jsonEnvelope(status int, v any) Envelope {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Unexpected error","detail":"failed to encode response"}`)
	}
	return Envelope{Status: status, ContentType: "application/json", Body: body}
}

// Write sends the envelope.
func (e Envelope) Write(w http.ResponseWriter) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.WriteHeader(e.Status)
	w.Write(e.Body)
}
