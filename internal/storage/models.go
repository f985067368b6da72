package storage

import "time"

// Notice status values. A notice is created as New and moves to Sent only
// after its summary has been delivered to subscribers.
const (
	StatusNew  = "New"
	StatusSent = "Sent"
)

// Notice is a discovered announcement entry. Link is the authoritative
// dedup key; Title is enforced unique at the application level as a
// secondary guard against republished entries.
type Notice struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Date      *time.Time `json:"date,omitempty"`
	Summary   string     `json:"summary"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Subscriber is a chat that receives notice alerts. Subscribers are created
// on first interaction and never mutated or deleted.
type Subscriber struct {
	ChatID     int64     `json:"chat_id"`
	Username   string    `json:"username,omitempty"`
	JoinedDate time.Time `json:"joined_date"`
}
