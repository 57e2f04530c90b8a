package handlers

import (
	"net/http"

	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/normalize"
	"resume-relay/internal/validation"
)

type ContactHandler struct {
	upstream Upstream
	responder
}

func NewContactHandler(upstream Upstream, log *logging.Logger, m *metrics.Metrics) *ContactHandler {
	return &ContactHandler{
		upstream:  upstream,
		responder: responder{log: log, metrics: m},
	}
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		h.respond(w, r, "contact", normalize.FromError(err), err)
		return
	}

	req, err := validation.ValidateContactRequest(raw)
	if err != nil {
		h.respond(w, r, "contact", normalize.FromError(err), err)
		return
	}

	res, err := h.upstream.Contact(r.Context(), req)
	h.respond(w, r, "contact", normalize.Normalize(res, err), err)
}
