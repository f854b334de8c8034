package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"postforum/models"
)

// RecentVotesCache stores the recent votes sidebar between requests.
type RecentVotesCache interface {
	Get(ctx context.Context, limit int) ([]models.RecentVote, bool, error)
	Set(ctx context.Context, limit int, votes []models.RecentVote) error
	Invalidate(ctx context.Context) error
}

// RecentVotes returns the latest upvotes and accepts across the site.
// Cache failures are logged and fall through to the database.
func (s *Store) RecentVotes(ctx context.Context, limit int) ([]models.RecentVote, error) {
	if limit <= 0 {
		return nil, nil
	}
	if s.cache != nil {
		votes, ok, err := s.cache.Get(ctx, limit)
		if err != nil {
			s.logger.Warn("recent votes cache read failed", zap.Error(err))
		} else if ok {
			return votes, nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.author_id, v.post_id, v.type, v.created_at, u.name,
			r.title, p.id, COALESCE(p.root_id, p.id), COALESCE(p.parent_id, 0)
		FROM votes v
		INNER JOIN users u ON u.id = v.author_id
		INNER JOIN posts p ON p.id = v.post_id
		INNER JOIN posts r ON r.id = COALESCE(p.root_id, p.id)
		WHERE v.type IN (?, ?) AND p.status != ?
		ORDER BY v.created_at DESC, v.id DESC
		LIMIT ?`, models.VoteUp, models.VoteAccept, models.StatusDeleted, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent votes: %w", err)
	}
	defer rows.Close()

	votes := []models.RecentVote{}
	for rows.Next() {
		var rv models.RecentVote
		var p models.Post
		err := rows.Scan(&rv.ID, &rv.AuthorID, &rv.PostID, &rv.Type, &rv.CreatedAt, &rv.AuthorName,
			&rv.PostTitle, &p.ID, &p.RootID, &p.ParentID)
		if err != nil {
			return nil, err
		}
		rv.PostURL = p.AbsoluteURL()
		votes = append(votes, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, limit, votes); err != nil {
			s.logger.Warn("recent votes cache write failed", zap.Error(err))
		}
	}
	return votes, nil
}

// VoteStore maps vote type to the set of postIDs user voted on with that type.
func (s *Store) VoteStore(ctx context.Context, user *models.User, postIDs []int) (map[int]map[int]bool, error) {
	store := map[int]map[int]bool{
		models.VoteUp:       {},
		models.VoteBookmark: {},
	}
	if !user.IsAuthenticated() || len(postIDs) == 0 {
		return store, nil
	}

	args := []any{user.ID}
	for _, id := range postIDs {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, type FROM votes
		WHERE author_id = ? AND post_id IN (`+placeholders(len(postIDs))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, voteType int
		if err := rows.Scan(&postID, &voteType); err != nil {
			return nil, err
		}
		if store[voteType] == nil {
			store[voteType] = map[int]bool{}
		}
		store[voteType][postID] = true
	}
	return store, rows.Err()
}

// ToggleVote adds the vote when absent and removes it when present. Upvotes
// move the post's vote_count in the same transaction. It reports whether the
// vote exists afterwards.
func (s *Store) ToggleVote(ctx context.Context, userID, postID, voteType int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var voteID int
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM votes WHERE author_id = ? AND post_id = ? AND type = ?",
		userID, postID, voteType).Scan(&voteID)

	added := false
	delta := 0
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO votes (author_id, post_id, type, created_at) VALUES (?, ?, ?, ?)",
			userID, postID, voteType, s.clock()); err != nil {
			return false, fmt.Errorf("insert vote: %w", err)
		}
		added, delta = true, 1
	case err != nil:
		return false, fmt.Errorf("lookup vote: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, "DELETE FROM votes WHERE id = ?", voteID); err != nil {
			return false, fmt.Errorf("delete vote: %w", err)
		}
		delta = -1
	}

	if voteType == models.VoteUp {
		if _, err := tx.ExecContext(ctx,
			"UPDATE posts SET vote_count = vote_count + ? WHERE id = ?", delta, postID); err != nil {
			return false, fmt.Errorf("update vote count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	s.invalidateCache(ctx)
	return added, nil
}

func (s *Store) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("recent votes cache invalidation failed", zap.Error(err))
	}
}
