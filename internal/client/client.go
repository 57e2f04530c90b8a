// Package client talks to the relay's HTTP surface.
package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"resume-relay/internal/models"
)

// APIError is any non-200 envelope returned by the relay.
type APIError struct {
	Status  int
	Message string
	Detail  string
	Issues  []models.Issue
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	for _, is := range e.Issues {
		if is.Field == "" {
			msg += "; " + is.Message
			continue
		}
		msg += "; " + is.Field + ": " + is.Message
	}
	return msg
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Token is sent as a bearer token when set.
	Token string
}

type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	return &Client{http: rc}
}

// Chat sends one turn. It satisfies conversation.Sender.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	var out models.ChatResponse
	if err := c.post(ctx, "/api/chat", req, &out); err != nil {
		return models.ChatResponse{}, err
	}
	return out, nil
}

func (c *Client) Contact(ctx context.Context, req models.ContactRequest) (models.ContactResponse, error) {
	var out models.ContactResponse
	if err := c.post(ctx, "/api/contact", req, &out); err != nil {
		return models.ContactResponse{}, err
	}
	return out, nil
}

// Health returns the upstream health payload as proxied by the relay.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Get("/api/healthz")
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&models.ErrorResponse{}).
		Post(path)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if resp.StatusCode() == http.StatusOK {
		if !isJSON(resp.Header().Get("Content-Type")) {
			return &APIError{Status: resp.StatusCode(), Message: "unexpected non-JSON reply", Detail: preview(resp.Body())}
		}
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	if env, ok := resp.Error().(*models.ErrorResponse); ok && env.Error != "" {
		apiErr.Message = env.Error
		apiErr.Detail = env.Detail
		apiErr.Issues = env.Issues
		return apiErr
	}
	apiErr.Message = preview(resp.Body())
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}
