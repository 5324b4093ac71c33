package cache

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandon/zoho-mail/pkg/types"
)

// Store provides methods for storing and retrieving search results from the
// cache. Cache writes are best-effort; mail operations never fail because a
// cache write did.
type Store struct {
	cache  *Cache
	logger *logrus.Logger
}

// NewStore creates a new store instance.
func NewStore(cache *Cache, logger *logrus.Logger) *Store {
	return &Store{
		cache:  cache,
		logger: logger,
	}
}

// UpsertResults records the summaries a search returned, tagged with the
// transport whose id space they belong to.
func (s *Store) UpsertResults(transport, folder string, summaries []types.MessageSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	tx, err := s.cache.DB().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO messages (transport, folder, message_id, subject, sender, recipient, date, snippet, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(transport, folder, message_id) DO UPDATE SET
			subject = excluded.subject,
			sender = excluded.sender,
			recipient = excluded.recipient,
			date = excluded.date,
			snippet = excluded.snippet,
			cached_at = CURRENT_TIMESTAMP
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range summaries {
		if _, err := stmt.Exec(transport, folder, m.ID, m.Subject, m.From, m.To, m.Date, m.Snippet); err != nil {
			return fmt.Errorf("failed to upsert message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"count": len(summaries), "folder": folder}).Debug("Cached search results")
	return nil
}

// Recent returns the most recently cached messages, newest cache entry first.
func (s *Store) Recent(limit int) ([]types.CachedMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT transport, folder, message_id, subject, sender, recipient, date, snippet, cached_at
		FROM messages
		ORDER BY cached_at DESC, message_id DESC
		LIMIT ?
	`
	rows, err := s.cache.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	var results []types.CachedMessage
	for rows.Next() {
		var m types.CachedMessage
		if err := rows.Scan(&m.Transport, &m.Folder, &m.ID, &m.Subject, &m.From, &m.To, &m.Date, &m.Snippet, &m.CachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached message: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
