package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postforum/models"
	"postforum/query"
)

type replyResponse struct {
	Message string       `json:"message"`
	Post    *models.Post `json:"post"`
	URL     string       `json:"url"`
}

func TestCommentSubmitRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	root := env.post(query.NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID})

	w := env.postForm(fmt.Sprintf("/p/%d/comment", root.ID), url.Values{"content": {"hello"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, env.reload(root).ReplyCount)
}

func TestCommentSubmitCreatesSanitizedComment(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	bob := env.user("bob", false)
	root := env.post(query.NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID})

	form := url.Values{"content": {`<script>alert(1)</script><b>looks fine</b>`}}
	w := env.postForm(fmt.Sprintf("/p/%d/comment", root.ID), form, env.session(bob))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp replyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Reply submitted successfully", resp.Message)
	require.NotNil(t, resp.Post)
	assert.Equal(t, models.PostComment, resp.Post.Type)
	assert.Equal(t, "<b>looks fine</b>", resp.Post.Content)
	assert.Equal(t, root.ID, resp.Post.ParentID)
	assert.Equal(t, root.ID, resp.Post.RootID)
	assert.Equal(t, fmt.Sprintf("/p/%d/#%d", root.ID, resp.Post.ID), resp.URL)
	assert.Equal(t, 1, env.reload(root).ReplyCount)

	event := <-env.hub.events
	assert.Equal(t, "reply", event.Type)
	assert.Equal(t, root.ID, event.RootID)
	assert.Equal(t, resp.Post.ID, event.Post.ID)
}

func TestCommentSubmitAnswerAttachesToRoot(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	root := env.post(query.NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID})
	comment := env.post(query.NewPost{Type: models.PostComment, AuthorID: alice.ID, ParentID: root.ID, Content: "c"})

	form := url.Values{"content": {"an answer"}, "type": {"answer"}}
	w := env.postForm(fmt.Sprintf("/p/%d/comment", comment.ID), form, env.session(alice))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp replyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.PostAnswer, resp.Post.Type)
	assert.Equal(t, root.ID, resp.Post.ParentID)
	assert.Equal(t, 2, env.reload(root).ReplyCount)
}

func TestCommentSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	root := env.post(query.NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID})
	path := fmt.Sprintf("/p/%d/comment", root.ID)
	cookie := env.session(alice)

	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{"empty content", url.Values{"content": {"   "}}, "content"},
		{"only markup", url.Values{"content": {"<script>x</script>"}}, "content"},
		{"unknown type", url.Values{"content": {"ok"}, "type": {"poll"}}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postForm(path, tt.form, cookie)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Error  string            `json:"error"`
				Fields map[string]string `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Validation error", resp.Error)
			assert.Contains(t, resp.Fields, tt.field)
		})
	}
	assert.Zero(t, env.reload(root).ReplyCount)
}

func TestCommentSubmitClosedThread(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	mod := env.user("mod", true)
	root := env.post(query.NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID})
	require.NoError(t, env.store.SetStatus(context.Background(), root.ID, models.StatusClosed))
	path := fmt.Sprintf("/p/%d/comment", root.ID)

	w := env.postForm(path, url.Values{"content": {"late"}}, env.session(alice))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.postForm(path, url.Values{"content": {"closing note"}}, env.session(mod))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCommentSubmitUnknownPost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	w := env.postForm("/p/42/comment", url.Values{"content": {"x"}}, env.session(alice))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVoteSubmitToggles(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	bob := env.user("bob", false)
	root := env.post(query.NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID})
	path := fmt.Sprintf("/p/%d/vote", root.ID)

	type voteResponse struct {
		Added     bool   `json:"added"`
		Type      string `json:"type"`
		VoteCount int    `json:"vote_count"`
	}
	vote := func(voteType string) voteResponse {
		w := env.postForm(path, url.Values{"type": {voteType}}, env.session(bob))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp voteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	assert.Equal(t, voteResponse{Added: true, Type: "up", VoteCount: 1}, vote("up"))
	assert.Equal(t, voteResponse{Added: true, Type: "bookmark", VoteCount: 1}, vote("bookmark"))
	assert.Equal(t, voteResponse{Added: false, Type: "up", VoteCount: 0}, vote("up"))

	votes, err := env.store.VoteStore(context.Background(), bob, []int{root.ID})
	require.NoError(t, err)
	assert.False(t, votes[models.VoteUp][root.ID])
	assert.True(t, votes[models.VoteBookmark][root.ID])
}

func TestVoteSubmitRejects(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	root := env.post(query.NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID})
	path := fmt.Sprintf("/p/%d/vote", root.ID)

	assert.Equal(t, http.StatusUnauthorized, env.postForm(path, url.Values{"type": {"up"}}).Code)
	assert.Equal(t, http.StatusBadRequest, env.postForm(path, url.Values{"type": {"down"}}, env.session(alice)).Code)
}
