package handlers

import (
	"net/http"

	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/models"
	"resume-relay/internal/normalize"
)

// SystemHandler serves liveness, upstream health and public config.
type SystemHandler struct {
	upstream     Upstream
	publicAPIURL string
	responder
}

func NewSystemHandler(upstream Upstream, publicAPIURL string, log *logging.Logger, m *metrics.Metrics) *SystemHandler {
	return &SystemHandler{
		upstream:     upstream,
		publicAPIURL: publicAPIURL,
		responder:    responder{log: log, metrics: m},
	}
}

// Live reports that the relay process is serving.
func (h *SystemHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UpstreamHealth proxies the upstream's health probe.
func (h *SystemHandler) UpstreamHealth(w http.ResponseWriter, r *http.Request) {
	res, err := h.upstream.Health(r.Context())
	h.respond(w, r, "healthz", normalize.Normalize(res, err), err)
}

// PublicConfig exposes the browser-visible base URL only.
func (h *SystemHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.PublicConfig{PublicAPIURL: h.publicAPIURL})
}
