package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/examwatch/noticebot/internal/eventbus"
)

// Handler turns pipeline events into operator notifications.
type Handler struct {
	provider Provider
	logger   *slog.Logger
}

// NewHandler creates a Handler that delivers through the given provider.
func NewHandler(provider Provider, logger *slog.Logger) *Handler {
	return &Handler{provider: provider, logger: logger}
}

// Handle processes one event. Only cycle aborts are reported; routine events
// are ignored.
func (h *Handler) Handle(e eventbus.Event) {
	if e.Type != eventbus.EventCycleAborted {
		return
	}

	keys := make([]string, 0, len(e.Payload))
	for k := range e.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, e.Payload[k]))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := h.provider.Send(ctx, Message{
		Subject: "[noticebot] Polling cycle aborted",
		Body:    strings.Join(lines, "\n"),
	})
	if err != nil {
		h.logger.Error("failed to send operator notification",
			"provider", h.provider.Name(), "error", err)
		return
	}
	h.logger.Info("operator notification sent", "provider", h.provider.Name())
}
