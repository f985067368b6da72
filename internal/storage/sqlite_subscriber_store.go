package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteSubscriberStore implements SubscriberStore backed by SQLite.
type SQLiteSubscriberStore struct {
	db *sql.DB
}

// NewSQLiteSubscriberStore returns a new SQLiteSubscriberStore.
func NewSQLiteSubscriberStore(db *sql.DB) *SQLiteSubscriberStore {
	return &SQLiteSubscriberStore{db: db}
}

// CreateSubscriber inserts the subscriber if no row with the same chat_id
// exists. Returns true when a new row was created.
func (s *SQLiteSubscriberStore) CreateSubscriber(ctx context.Context, sub *Subscriber) (bool, error) {
	joined := sub.JoinedDate
	if joined.IsZero() {
		joined = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO subscribers (chat_id, username, joined_date)
		VALUES (?, ?, ?)`,
		sub.ChatID, sub.Username, joined,
	)
	if err != nil {
		return false, fmt.Errorf("inserting subscriber %d: %w", sub.ChatID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}

// ListChatIDs returns the chat_id of every stored subscriber.
func (s *SQLiteSubscriberStore) ListChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chat_id FROM subscribers ORDER BY joined_date")
	if err != nil {
		return nil, fmt.Errorf("querying subscriber chat ids: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning subscriber chat id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriber rows: %w", err)
	}
	return ids, nil
}

var _ SubscriberStore = (*SQLiteSubscriberStore)(nil)
var _ NoticeStore = (*SQLiteNoticeStore)(nil)
