package query

import (
	"context"
	"fmt"
	"net"
	"time"
)

// RecordView counts one view of postID per ip per window. A view is counted
// when no view from ip for the post exists after since; the counter moves with
// an in-place increment so concurrent viewers never lose updates.
func (s *Store) RecordView(ctx context.Context, ip string, postID int, since time.Time) (bool, error) {
	if net.ParseIP(ip) == nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seen bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM post_views WHERE ip = ? AND post_id = ? AND created_at > ?
		)`, ip, postID, since.UTC()).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("lookup view: %w", err)
	}
	if seen {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO post_views (ip, post_id, created_at) VALUES (?, ?, ?)",
		ip, postID, s.clock()); err != nil {
		return false, fmt.Errorf("insert view: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET view_count = view_count + 1 WHERE id = ?", postID); err != nil {
		return false, fmt.Errorf("increment view count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
