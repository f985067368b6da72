package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteNoticeStore implements NoticeStore backed by SQLite.
type SQLiteNoticeStore struct {
	db *sql.DB
}

// NewSQLiteNoticeStore returns a new SQLiteNoticeStore.
func NewSQLiteNoticeStore(db *sql.DB) *SQLiteNoticeStore {
	return &SQLiteNoticeStore{db: db}
}

// CreateNotice inserts a new notice row and returns the notice with its
// assigned ID and creation timestamp filled in.
func (s *SQLiteNoticeStore) CreateNotice(ctx context.Context, n *Notice) (*Notice, error) {
	createdAt := time.Now().UTC()

	var date any
	if n.Date != nil {
		date = n.Date.UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notices (title, link, date, summary, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.Title, n.Link, date, n.Summary, n.Status, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting notice: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted notice id: %w", err)
	}

	out := *n
	out.ID = id
	out.CreatedAt = createdAt
	return &out, nil
}

// NoticeExists reports whether any notice shares the given title or link.
func (s *SQLiteNoticeStore) NoticeExists(ctx context.Context, title, link string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM notices WHERE title = ? OR link = ? LIMIT 1",
		title, link,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking notice existence: %w", err)
	}
	return true, nil
}

// ListLinks returns the link of every stored notice.
func (s *SQLiteNoticeStore) ListLinks(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT link FROM notices")
	if err != nil {
		return nil, fmt.Errorf("querying notice links: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scanning notice link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notice links: %w", err)
	}
	return links, nil
}

// UpdateStatus sets the status of the notice with the given ID. Returns false
// (without error) when the notice does not exist.
func (s *SQLiteNoticeStore) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notices SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return false, fmt.Errorf("updating notice %d status: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}
