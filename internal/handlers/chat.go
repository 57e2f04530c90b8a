package handlers

import (
	"net/http"

	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/normalize"
	"resume-relay/internal/validation"
)

type ChatHandler struct {
	upstream Upstream
	responder
}

func NewChatHandler(upstream Upstream, log *logging.Logger, m *metrics.Metrics) *ChatHandler {
	return &ChatHandler{
		upstream:  upstream,
		responder: responder{log: log, metrics: m},
	}
}

// Chat validates the turn, relays it and writes the normalized envelope.
// Invalid payloads never reach the upstream.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		h.respond(w, r, "chat", normalize.FromError(err), err)
		return
	}

	req, err := validation.ValidateChatRequest(raw)
	if err != nil {
		h.respond(w, r, "chat", normalize.FromError(err), err)
		return
	}

	res, err := h.upstream.Chat(r.Context(), req)
	h.respond(w, r, "chat", normalize.Normalize(res, err), err)
}
