// Package bot holds the Telegram-facing parts of the pipeline: the alert
// dispatcher that fans a processed notice out to subscribers, and the command
// listener that answers chat commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examwatch/noticebot/internal/storage"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Dispatcher fans notice alerts out to subscribers.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// SendAlerts delivers exactly two messages per subscriber, header first and
// summary second, sequentially in subscriber-list order. A failure for one
// recipient is logged and does not affect the others. It returns the number
// of recipients that received an incomplete alert.
func (d *Dispatcher) SendAlerts(ctx context.Context, notice *storage.Notice, summary string, chatIDs []int64) int {
	header := fmt.Sprintf("🚨 New Notice! 🚨\nTitle: %s\nPDF Link: %s", notice.Title, notice.Link)
	body := fmt.Sprintf("📋 Notice Summary:\n%s", summary)

	failed := 0
	for _, chatID := range chatIDs {
		if err := d.sender.SendMessage(ctx, chatID, header); err != nil {
			d.logger.Error("failed to send alert header", "chat_id", chatID, "error", err)
			failed++
			continue
		}
		if err := d.sender.SendMessage(ctx, chatID, body); err != nil {
			d.logger.Error("failed to send alert summary", "chat_id", chatID, "error", err)
			failed++
		}
	}
	return failed
}
