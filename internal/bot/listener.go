package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/examwatch/noticebot/internal/telegram"
)

const pollTimeoutSeconds = 90

// SubscriberRegistry registers chats that interact with the bot.
type SubscriberRegistry interface {
	AddSubscriber(ctx context.Context, chatID int64, username string) bool
}

// API is the slice of the Telegram client the listener needs.
type API interface {
	Sender
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
	DeleteWebhook(ctx context.Context) error
}

// HandlerFunc produces the reply text for a command message.
type HandlerFunc func(msg *telegram.Message) string

// Listener long-polls for inbound commands and answers them. Every handled
// command also registers the sender as a subscriber.
type Listener struct {
	api      API
	registry SubscriberRegistry
	logger   *slog.Logger
	handlers map[string]HandlerFunc
	offset   int64
}

// NewListener creates a Listener with the default command set.
func NewListener(api API, registry SubscriberRegistry, logger *slog.Logger) *Listener {
	l := &Listener{
		api:      api,
		registry: registry,
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
	}
	l.Handle("/start", func(*telegram.Message) string {
		return "Welcome! You'll now receive notice alerts!"
	})
	l.Handle("/status", func(*telegram.Message) string {
		return "Bot Status: ✅ Running"
	})
	l.Handle("/help", func(*telegram.Message) string {
		return "Notice Bot Commands:\n" +
			"/start - Begin receiving notice alerts\n" +
			"/status - Check current bot status\n" +
			"/help - Display this help message"
	})
	return l
}

// Handle registers (or replaces) the handler for a command name.
func (l *Listener) Handle(command string, fn HandlerFunc) {
	l.handlers[command] = fn
}

// Run polls for updates until ctx is canceled. Before the first poll any
// leftover webhook is removed, since getUpdates is rejected while a webhook
// is configured.
func (l *Listener) Run(ctx context.Context) {
	if err := l.api.DeleteWebhook(ctx); err != nil {
		l.logger.Error("failed to reset webhook", "error", err)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := l.api.GetUpdates(ctx, l.offset, pollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("failed to poll updates", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= l.offset {
				l.offset = u.UpdateID + 1
			}
			l.handleUpdate(ctx, u)
		}
	}
}

// handleUpdate dispatches one update through the command registry.
func (l *Listener) handleUpdate(ctx context.Context, u telegram.Update) {
	msg := u.Message
	if msg == nil || msg.Text == "" {
		return
	}

	command := strings.Fields(msg.Text)[0]
	// Commands may carry a bot-name suffix in group chats.
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}

	fn, ok := l.handlers[command]
	if !ok {
		return
	}

	var username string
	if msg.From != nil {
		username = msg.From.Username
	}
	if l.registry.AddSubscriber(ctx, msg.Chat.ID, username) {
		l.logger.Info("new subscriber from command", "chat_id", msg.Chat.ID, "command", command)
	}

	if err := l.api.SendMessage(ctx, msg.Chat.ID, fn(msg)); err != nil {
		l.logger.Error("failed to reply to command", "chat_id", msg.Chat.ID, "command", command, "error", err)
	}
}
