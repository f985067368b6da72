// Package gateway provides a caching facade over the subscriber and notice
// stores. Reads of the subscriber-id list and the known-link set are served
// from in-memory snapshots with a fixed TTL; writes that would change a
// snapshot either invalidate it or update it in place. All snapshot access
// goes through a single mutex so the polling loop, the command listener, and
// the health server can share one Gateway.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/examwatch/noticebot/internal/storage"
)

// DefaultTTL is how long a cache snapshot is trusted before being refreshed
// from the store.
const DefaultTTL = 2 * time.Hour

// Gateway wraps the stores with TTL-cached reads.
type Gateway struct {
	notices     storage.NoticeStore
	subscribers storage.SubscriberStore
	logger      *slog.Logger
	ttl         time.Duration

	// now is swappable in tests.
	now func() time.Time

	mu             sync.Mutex
	chatIDs        []int64
	chatIDsAt      time.Time
	knownLinks     map[string]struct{}
	knownLinksAt   time.Time
	haveChatIDs    bool
	haveKnownLinks bool
}

// New creates a Gateway over the given stores. A ttl of 0 uses DefaultTTL.
func New(notices storage.NoticeStore, subscribers storage.SubscriberStore, logger *slog.Logger, ttl time.Duration) *Gateway {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gateway{
		notices:     notices,
		subscribers: subscribers,
		logger:      logger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// AddSubscriber inserts the subscriber if absent and reports whether a new
// row was created. On insert the subscriber-id snapshot is invalidated so the
// next read reflects the new subscriber even within the TTL window.
func (g *Gateway) AddSubscriber(ctx context.Context, chatID int64, username string) bool {
	created, err := g.subscribers.CreateSubscriber(ctx, &storage.Subscriber{
		ChatID:     chatID,
		Username:   username,
		JoinedDate: g.now().UTC(),
	})
	if err != nil {
		g.logger.Error("failed to add subscriber", "chat_id", chatID, "error", err)
		return false
	}
	if created {
		g.mu.Lock()
		g.haveChatIDs = false
		g.chatIDs = nil
		g.mu.Unlock()
		g.logger.Info("subscriber added", "chat_id", chatID)
	}
	return created
}

// SubscriberIDs returns the chat IDs of all subscribers, served from the
// snapshot while it is fresh. Store failures yield an empty list.
func (g *Gateway) SubscriberIDs(ctx context.Context) []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.haveChatIDs && g.now().Sub(g.chatIDsAt) < g.ttl {
		out := make([]int64, len(g.chatIDs))
		copy(out, g.chatIDs)
		return out
	}

	ids, err := g.subscribers.ListChatIDs(ctx)
	if err != nil {
		g.logger.Error("failed to list subscribers", "error", err)
		return nil
	}
	g.chatIDs = ids
	g.chatIDsAt = g.now()
	g.haveChatIDs = true

	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// KnownLinks returns the set of links of all stored notices, served from the
// snapshot while it is fresh. Store failures yield an empty set.
func (g *Gateway) KnownLinks(ctx context.Context) map[string]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.haveKnownLinks && g.now().Sub(g.knownLinksAt) < g.ttl {
		return copyLinkSet(g.knownLinks)
	}

	links, err := g.notices.ListLinks(ctx)
	if err != nil {
		g.logger.Error("failed to list notice links", "error", err)
		return map[string]struct{}{}
	}

	set := make(map[string]struct{}, len(links))
	for _, l := range links {
		set[l] = struct{}{}
	}
	g.knownLinks = set
	g.knownLinksAt = g.now()
	g.haveKnownLinks = true

	return copyLinkSet(set)
}

// AddNotice persists a candidate notice with status New. It returns
// (nil, false) without error when a notice with the same title or link
// already exists, or when the store fails. On success the new link is added
// to a live link snapshot in place instead of forcing a full refresh.
func (g *Gateway) AddNotice(ctx context.Context, candidate *storage.Notice) (*storage.Notice, bool) {
	exists, err := g.notices.NoticeExists(ctx, candidate.Title, candidate.Link)
	if err != nil {
		g.logger.Error("failed to check for existing notice", "title", candidate.Title, "error", err)
		return nil, false
	}
	if exists {
		g.logger.Info("notice already exists, skipping", "title", candidate.Title)
		return nil, false
	}

	n := *candidate
	n.Status = storage.StatusNew

	created, err := g.notices.CreateNotice(ctx, &n)
	if err != nil {
		g.logger.Error("failed to add notice", "title", candidate.Title, "error", err)
		return nil, false
	}

	g.mu.Lock()
	if g.haveKnownLinks {
		g.knownLinks[created.Link] = struct{}{}
	}
	g.mu.Unlock()

	g.logger.Info("notice added", "id", created.ID, "title", created.Title)
	return created, true
}

// UpdateNoticeStatus sets the status of a stored notice. Failures, including
// an unknown ID, are logged and reported as false.
func (g *Gateway) UpdateNoticeStatus(ctx context.Context, id int64, status string) bool {
	ok, err := g.notices.UpdateStatus(ctx, id, status)
	if err != nil {
		g.logger.Error("failed to update notice status", "id", id, "status", status, "error", err)
		return false
	}
	if !ok {
		g.logger.Error("notice not found for status update", "id", id, "status", status)
		return false
	}
	g.logger.Info("notice status updated", "id", id, "status", status)
	return true
}

func copyLinkSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
