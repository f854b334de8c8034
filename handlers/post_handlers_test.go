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

	"postforum/database"
	"postforum/models"
)

func TestPostSubmitRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.postForm("/p/new", url.Values{"title": {"t"}, "content": {"c"}, "tags": {"x"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fp%2Fnew", w.Header().Get("Location"))
}

func TestPostSubmitCreatesThread(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)

	form := url.Values{
		"title":   {"<b>Trimming</b> reads"},
		"content": {`<p>Which tool?</p><script>alert(1)</script>`},
		"type":    {"Tutorial"},
		"tags":    {"fastq, qc  trimming,fastq"},
	}
	w := env.postForm("/p/new", form, env.session(alice))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	var id int
	_, err := fmt.Sscanf(w.Header().Get("Location"), "/p/%d/", &id)
	require.NoError(t, err)

	post, err := env.store.PostByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Trimming reads", post.Title)
	assert.Equal(t, "<p>Which tool?</p>", post.Content)
	assert.Equal(t, models.PostTutorial, post.Type)
	assert.Equal(t, alice.ID, post.AuthorID)
	assert.Equal(t, database.DefaultGroupID, post.GroupID)
	assert.True(t, post.IsToplevel())
	assert.Equal(t, []string{"fastq", "qc", "trimming"}, post.Tags)

	w = env.get("/tags/fastq+qc")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Trimming reads")

	w = env.get("/", env.session(alice))
	assert.Contains(t, w.Body.String(), "Trimming reads")
	assert.Contains(t, w.Body.String(), `action="/p/new"`)
}

func TestPostSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", false)
	cookie := env.session(alice)

	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{"missing title", url.Values{"title": {"<i></i>"}, "content": {"c"}, "tags": {"x"}}, "title"},
		{"missing content", url.Values{"title": {"t"}, "content": {""}, "tags": {"x"}}, "content"},
		{"no tags", url.Values{"title": {"t"}, "content": {"c"}, "tags": {" , "}}, "tags"},
		{"too many tags", url.Values{"title": {"t"}, "content": {"c"}, "tags": {"a b c d e f"}}, "tags"},
		{"plus in tag", url.Values{"title": {"t"}, "content": {"c"}, "tags": {"rna+seq"}}, "tags[0]"},
		{"reply type", url.Values{"title": {"t"}, "content": {"c"}, "tags": {"x"}, "type": {"answer"}}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postForm("/p/new", tt.form, cookie)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Error  string            `json:"error"`
				Fields map[string]string `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Fields, tt.field)
		})
	}

	count, err := env.store.ToplevelPosts(alice, database.DefaultGroupID).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTags(" a,b\tc ,"))
	assert.Equal(t, []string{"x"}, splitTags("<b>x</b>"))
	assert.Nil(t, splitTags(" , "))
}
