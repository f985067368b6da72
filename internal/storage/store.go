package storage

import "context"

// NoticeStore defines persistence operations for notices.
type NoticeStore interface {
	// CreateNotice inserts a new notice and returns it with its assigned ID.
	CreateNotice(ctx context.Context, n *Notice) (*Notice, error)
	// NoticeExists reports whether a notice with the given title or link
	// already exists.
	NoticeExists(ctx context.Context, title, link string) (bool, error)
	// ListLinks returns the link column of every stored notice.
	ListLinks(ctx context.Context) ([]string, error)
	// UpdateStatus sets the status of the notice with the given ID.
	// Returns false if no such notice exists.
	UpdateStatus(ctx context.Context, id int64, status string) (bool, error)
}

// SubscriberStore defines persistence operations for subscribers.
type SubscriberStore interface {
	// CreateSubscriber inserts a subscriber if absent. Returns true if a new
	// row was created.
	CreateSubscriber(ctx context.Context, s *Subscriber) (bool, error)
	// ListChatIDs returns the chat_id column of every stored subscriber.
	ListChatIDs(ctx context.Context) ([]int64, error)
}
