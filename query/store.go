// Package query holds every read and write the forum handlers make against the database.
package query

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidIP = errors.New("invalid ip address")
	ErrNoParent  = errors.New("answers and comments need a parent post")
)

// Store wraps the database handle. A nil cache disables recent-vote caching.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	cache  RecentVotesCache
	now    func() time.Time
}

type Option func(*Store)

// WithCache caches RecentVotes results.
func WithCache(c RecentVotesCache) Option {
	return func(s *Store) { s.cache = c }
}

// WithClock replaces time.Now for timestamps the store writes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(db *sql.DB, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere, lower-cased.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
