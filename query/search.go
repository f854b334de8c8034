package query

import (
	"strings"

	"postforum/models"
)

// Search is the plain search backend: open toplevel posts whose title or
// content contains every whitespace separated term of q, ignoring case.
func (s *Store) Search(q string) *PostQuery {
	pq := s.posts().
		filter("p.parent_id IS NULL").
		filter("p.status != ?", models.StatusDeleted)

	terms := strings.Fields(q)
	if len(terms) == 0 {
		return pq.filter("0 = 1")
	}
	for _, term := range terms {
		pattern := containsPattern(term)
		pq.filter(`(LOWER(p.title) LIKE ? ESCAPE '\' OR LOWER(p.content) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	return pq
}
