package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"postforum/config"
	"postforum/database"
	"postforum/models"
	"postforum/query"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	t      *testing.T
	store  *query.Store
	clock  *fakeClock
	hub    *ThreadHub
	routes http.Handler
}

func testForumConfig() config.ForumConfig {
	return config.ForumConfig{
		PostsPerPage:     2,
		TagsPerPage:      100,
		PostViewInterval: 30 * time.Minute,
		RecentVotes:      5,
		SessionTTL:       time.Hour,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "forum.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := query.NewStore(db, zap.NewNop(), query.WithClock(clock.Now))
	hub := NewThreadHub(zap.NewNop())

	h, err := New(store, zap.NewNop(), testForumConfig(), hub, WithClock(clock.Now))
	require.NoError(t, err)

	return &testEnv{t: t, store: store, clock: clock, hub: hub, routes: h.Routes()}
}

func (e *testEnv) user(name string, moderator bool) *models.User {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password-"+name), bcrypt.MinCost)
	require.NoError(e.t, err)
	u, err := e.store.CreateUser(context.Background(), name, name+"@example.com", string(hash), moderator)
	require.NoError(e.t, err)
	return u
}

// session logs u in directly and returns the cookie to send.
func (e *testEnv) session(u *models.User) *http.Cookie {
	e.t.Helper()
	token := fmt.Sprintf("token-%d", u.ID)
	require.NoError(e.t, e.store.SetSession(context.Background(), u.ID, token, e.clock.Now().Add(time.Hour)))
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (e *testEnv) post(np query.NewPost) *models.Post {
	e.t.Helper()
	if np.GroupID == 0 {
		np.GroupID = database.DefaultGroupID
	}
	if np.Content == "" {
		np.Content = "content of " + np.Title
	}
	p, err := e.store.CreatePost(context.Background(), np)
	require.NoError(e.t, err)
	e.clock.Advance(time.Second)
	return p
}

func (e *testEnv) vote(u *models.User, p *models.Post, voteType int) {
	e.t.Helper()
	_, err := e.store.ToggleVote(context.Background(), u.ID, p.ID, voteType)
	require.NoError(e.t, err)
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookies...)
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.routes.ServeHTTP(w, req)
	return w
}

func (e *testEnv) reload(p *models.Post) *models.Post {
	e.t.Helper()
	got, err := e.store.PostByID(context.Background(), p.ID)
	require.NoError(e.t, err)
	return got
}
