package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"postforum/database"
	"postforum/models"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "forum.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewStore(db, zap.NewNop(), opts...), clock
}

func mustUser(t *testing.T, s *Store, name string, moderator bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-"+name), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := s.CreateUser(context.Background(), name, name+"@example.com", string(hash), moderator)
	require.NoError(t, err)
	return u
}

func mustPost(t *testing.T, s *Store, np NewPost) *models.Post {
	t.Helper()
	if np.GroupID == 0 {
		np.GroupID = database.DefaultGroupID
	}
	if np.Content == "" {
		np.Content = "content of " + np.Title
	}
	p, err := s.CreatePost(context.Background(), np)
	require.NoError(t, err)
	return p
}

func ids(posts []*models.Post) []int {
	out := make([]int, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}
