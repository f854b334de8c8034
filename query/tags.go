package query

import (
	"context"
	"fmt"

	"postforum/models"
)

// TagQuery lists tags by name, optionally narrowed to names containing a substring.
type TagQuery struct {
	store *Store
	where string
	args  []any
}

// Tags matches every tag when q is empty, otherwise tags whose name contains q
// ignoring case.
func (s *Store) Tags(q string) *TagQuery {
	tq := &TagQuery{store: s}
	if q != "" {
		tq.where = ` WHERE LOWER(name) LIKE ? ESCAPE '\'`
		tq.args = []any{containsPattern(q)}
	}
	return tq
}

func (q *TagQuery) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags"+q.where, q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return n, nil
}

func (q *TagQuery) Fetch(ctx context.Context, limit, offset int) ([]models.Tag, error) {
	args := append(append([]any{}, q.args...), limit, offset)
	rows, err := q.store.db.QueryContext(ctx,
		"SELECT id, name FROM tags"+q.where+" ORDER BY name LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
