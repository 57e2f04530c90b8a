package handlers

import (
	"net/http"

	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/normalize"
	"resume-relay/internal/validation"
)

// DebugHandler proxies the upstream's operator routes. It is mounted behind
// admin auth.
type DebugHandler struct {
	upstream Upstream
	responder
}

func NewDebugHandler(upstream Upstream, log *logging.Logger, m *metrics.Metrics) *DebugHandler {
	return &DebugHandler{
		upstream:  upstream,
		responder: responder{log: log, metrics: m},
	}
}

func (h *DebugHandler) Resume(w http.ResponseWriter, r *http.Request) {
	res, err := h.upstream.Forward(r.Context(), http.MethodGet, "/debug/resume", nil, nil)
	h.respond(w, r, "debug_resume", normalize.Normalize(res, err), err)
}

func (h *DebugHandler) ReloadResume(w http.ResponseWriter, r *http.Request) {
	res, err := h.upstream.Forward(r.Context(), http.MethodPost, "/debug/reload-resume", nil, nil)
	h.respond(w, r, "debug_reload", normalize.Normalize(res, err), err)
}

func (h *DebugHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	query, err := validation.ValidateRetrieveQuery(r.URL.Query())
	if err != nil {
		h.respond(w, r, "debug_retrieve", normalize.FromError(err), err)
		return
	}

	res, err := h.upstream.Forward(r.Context(), http.MethodGet, "/debug/retrieve", query, nil)
	h.respond(w, r, "debug_retrieve", normalize.Normalize(res, err), err)
}
