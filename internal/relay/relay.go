// Package relay forwards validated requests to the upstream resume service.
//
// Every call is a single attempt bounded by the relay timeout and by the
// caller's context, whichever ends first. Outcomes are returned as a Result or
// as one of the typed errors in errors.go; turning them into HTTP envelopes is
// the normalizer's job.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"resume-relay/internal/metrics"
	"resume-relay/internal/models"
	"resume-relay/internal/validation"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 20 * time.Second

// Config is injected at construction. An empty BaseURL is allowed so a
// misconfigured deployment still answers with a diagnostic envelope.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  resty.Logger
}

// Result is a successful (2xx) upstream answer.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
	// JSON is true when the body was declared as JSON by the upstream.
	JSON bool
	// Chat and Contact are set when the reply passed its shape check.
	Chat    *models.ChatResponse
	Contact *models.ContactResponse
}

type Relay struct {
	baseURL string
	timeout time.Duration
	http    *resty.Client
	metrics *metrics.Metrics
}

func New(cfg Config) *Relay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "resume-relay/1.0")
	if cfg.Logger != nil {
		client.SetLogger(cfg.Logger)
	}

	return &Relay{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: timeout,
		http:    client,
		metrics: cfg.Metrics,
	}
}

// Timeout reports the bound applied to each call.
func (r *Relay) Timeout() time.Duration { return r.timeout }

// Configured reports whether an upstream base URL is set.
func (r *Relay) Configured() bool { return r.baseURL != "" }

// Chat posts a chat turn to {base}/chat and re-validates the reply shape.
func (r *Relay) Chat(ctx context.Context, req models.ChatRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	res, err := r.Forward(ctx, http.MethodPost, "/chat", nil, body)
	if err != nil {
		return nil, err
	}
	if !res.JSON {
		return res, nil
	}

	reply, err := validation.ValidateChatResponse(res.Body)
	if err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	res.Chat = &reply
	return res, nil
}

// Contact posts a lead to {base}/contact and checks the acknowledgement shape.
func (r *Relay) Contact(ctx context.Context, req models.ContactRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode contact request: %w", err)
	}

	res, err := r.Forward(ctx, http.MethodPost, "/contact", nil, body)
	if err != nil {
		return nil, err
	}
	if !res.JSON {
		return res, nil
	}

	ack, err := validation.ValidateContactResponse(res.Body)
	if err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	res.Contact = &ack
	return res, nil
}

// Health probes {base}/healthz.
func (r *Relay) Health(ctx context.Context) (*Result, error) {
	return r.Forward(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Forward performs exactly one upstream call. body, when non-nil, is sent as
// JSON.
func (r *Relay) Forward(ctx context.Context, method, path string, query url.Values, body []byte) (*Result, error) {
	if r.baseURL == "" {
		return nil, &ConfigurationError{Message: "upstream API URL is not configured"}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := r.http.R().SetContext(callCtx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, r.baseURL+path)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := callCtx.Err(); ctxErr != nil {
			r.metrics.RecordUpstream(path, "timeout", elapsed)
			return nil, &TimeoutError{Err: timeoutCause(ctx, ctxErr)}
		}
		r.metrics.RecordUpstream(path, "unreachable", elapsed)
		return nil, &ConnectivityError{Err: err}
	}

	status := resp.StatusCode()
	raw := resp.Body()
	contentType := resp.Header().Get("Content-Type")

	if status < 200 || status > 299 {
		r.metrics.RecordUpstream(path, "error_status", elapsed)
		return nil, &UpstreamError{Status: status, Message: upstreamMessage(status, raw)}
	}
	r.metrics.RecordUpstream(path, "ok", elapsed)

	if contentType == "" && len(raw) > 0 {
		contentType = mimetype.Detect(raw).String()
	}
	return &Result{
		Status:      status,
		ContentType: contentType,
		Body:        raw,
		JSON:        isJSON(contentType),
	}, nil
}

// timeoutCause tells a caller disconnect apart from the relay's own deadline.
func timeoutCause(parent context.Context, ctxErr error) error {
	if parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("caller cancelled: %w", parent.Err())
	}
	return ctxErr
}

// upstreamMessage pulls a human message out of an error body. FastAPI puts
// it in "detail"; other services use "error" or "message".
func upstreamMessage(status int, raw []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("Upstream error %d", status)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
