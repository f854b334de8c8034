package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"postforum/metrics"
	"postforum/models"
	"postforum/query"
	"postforum/templates"
)

type tagListPage struct {
	Base
	Page *query.Page[models.Tag]
	Tags []models.Tag
	Q    string
}

type postListPage struct {
	Base
	Page        *query.Page[*models.Post]
	Posts       []*models.Post
	RecentVotes []models.RecentVote
	Q           string
}

type groupListPage struct {
	Base
	PublicGroups []models.UserGroup
}

type postDetailPage struct {
	Base
	Thread *models.Thread
}

// TagList lists tags by name, narrowed by the q parameter.
func (h *Handler) TagList(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	page, err := query.Paginate[models.Tag](r.Context(), h.store.Tags(q), r.URL.Query().Get("page"), h.cfg.TagsPerPage)
	if err != nil {
		h.serverError(w, r, "Error retrieving tags", err)
		return
	}

	h.render(w, r, http.StatusOK, templates.TagList, tagListPage{
		Base: h.base(r, "Tags"),
		Page: page,
		Tags: page.Items,
		Q:    q,
	})
}

// TagFilter lists toplevel posts carrying every tag in name, joined by "+".
func (h *Handler) TagFilter(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	names := strings.Split(name, "+")
	posts := h.store.PostsByTags(CurrentUser(r), CurrentGroup(r).ID, names)
	h.postList(w, r, posts, "Filtering for tags: "+name)
}

// PostsByUser lists everything the user wrote.
func (h *Handler) PostsByUser(w http.ResponseWriter, r *http.Request, user *models.User) {
	posts := h.store.AllPosts(user, CurrentGroup(r).ID)
	h.postList(w, r, posts, "Posts by: "+user.Name)
}

// UpvotedPosts lists the posts the user upvoted or bookmarked.
func (h *Handler) UpvotedPosts(w http.ResponseWriter, r *http.Request, user *models.User) {
	posts := h.store.PostsByVote(user, CurrentGroup(r).ID, []int{models.VoteBookmark, models.VoteUp})
	h.postList(w, r, posts, "Upvoted posts by: "+user.Name)
}

// MyBookmarks lists the current user's bookmarks.
func (h *Handler) MyBookmarks(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	posts := h.store.MyBookmarks(user, CurrentGroup(r).ID)
	h.postList(w, r, posts, "Bookmarks for: "+user.Name)
}

// PostList is the front page: toplevel posts of the current group.
func (h *Handler) PostList(w http.ResponseWriter, r *http.Request) {
	h.postList(w, r, nil)
}

// postList renders any post query; a nil query means the group's toplevel posts.
func (h *Handler) postList(w http.ResponseWriter, r *http.Request, posts *query.PostQuery, messages ...string) {
	if posts == nil {
		posts = h.store.ToplevelPosts(CurrentUser(r), CurrentGroup(r).ID)
	}

	page, votes, err := h.postPage(r, posts)
	if err != nil {
		h.serverError(w, r, "Error retrieving posts", err)
		return
	}

	h.render(w, r, http.StatusOK, templates.PostList, postListPage{
		Base:        h.base(r, "Post List", messages...),
		Page:        page,
		Posts:       page.Items,
		RecentVotes: votes,
	})
}

func (h *Handler) postPage(r *http.Request, posts *query.PostQuery) (*query.Page[*models.Post], []models.RecentVote, error) {
	page, err := query.Paginate[*models.Post](r.Context(), posts, r.URL.Query().Get("page"), h.cfg.PostsPerPage)
	if err != nil {
		return nil, nil, err
	}
	votes, err := h.store.RecentVotes(r.Context(), h.cfg.RecentVotes)
	if err != nil {
		return nil, nil, err
	}
	return page, votes, nil
}

// GroupList shows the public groups.
func (h *Handler) GroupList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.PublicGroups(r.Context())
	if err != nil {
		h.serverError(w, r, "Error retrieving groups", err)
		return
	}
	h.render(w, r, http.StatusOK, templates.GroupList, groupListPage{
		Base:         h.base(r, "Groups"),
		PublicGroups: groups,
	})
}

// SearchResults runs the plain search for q. An empty q goes back home.
func (h *Handler) SearchResults(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	page, votes, err := h.postPage(r, h.store.Search(q))
	if err != nil {
		h.serverError(w, r, "Error searching posts", err)
		return
	}

	h.render(w, r, http.StatusOK, templates.PostSearchResults, postListPage{
		Base:        h.base(r, "Post List"),
		Page:        page,
		Posts:       page.Items,
		RecentVotes: votes,
		Q:           q,
	})
}

// updatePostViews counts one view per address per interval. Failures, such as
// a spoofed or malformed address, are logged and never reach the reader.
func (h *Handler) updatePostViews(ctx context.Context, r *http.Request, post *models.Post) {
	ip := RemoteIP(r)
	since := h.now().Add(-h.cfg.PostViewInterval)

	counted, err := h.store.RecordView(ctx, ip, post.ID, since)
	if err != nil {
		metrics.PostViewErrors.Inc()
		h.logger.Error("Error recording post view",
			zap.Int("post_id", post.ID), zap.String("ip", ip), zap.Error(err))
		return
	}
	if counted {
		metrics.PostViewsCounted.Inc()
		post.ViewCount++
	}
}

// PostView renders a full thread. Replies redirect to their anchor on the root page.
func (h *Handler) PostView(w http.ResponseWriter, r *http.Request, post *models.Post) {
	user := CurrentUser(r)

	if !post.IsToplevel() {
		http.Redirect(w, r, post.AbsoluteURL(), http.StatusFound)
		return
	}

	h.updatePostViews(r.Context(), r, post)

	thread, err := h.store.Thread(r.Context(), post, user)
	if err != nil {
		h.serverError(w, r, "Error retrieving thread", err)
		return
	}

	ids := make([]int, 0, len(thread)+1)
	ids = append(ids, post.ID)
	for _, p := range thread {
		ids = append(ids, p.ID)
	}
	votes, err := h.store.VoteStore(r.Context(), user, ids)
	if err != nil {
		h.serverError(w, r, "Error retrieving votes", err)
		return
	}

	h.render(w, r, http.StatusOK, templates.PostDetail, postDetailPage{
		Base:   h.base(r, post.Title),
		Thread: DecorateThread(post, thread, user, votes),
	})
}

// DecorateThread marks every post with its status relative to user, then
// splits answers out and buckets comments under their parent id.
func DecorateThread(root *models.Post, thread []*models.Post, user *models.User, votes map[int]map[int]bool) *models.Thread {
	upvotes := votes[models.VoteUp]
	bookmarks := votes[models.VoteBookmark]
	editable := ThreadWriteAccess(user, root)

	decorate := func(p *models.Post) {
		p.Editable = editable(p)
		p.HasVote = upvotes[p.ID]
		p.HasBookmark = bookmarks[p.ID]
	}

	t := &models.Thread{
		Post:      root,
		Upvotes:   upvotes,
		Bookmarks: bookmarks,
		Comments:  models.NewCommentMap(),
	}
	decorate(root)
	for _, p := range thread {
		decorate(p)
		switch p.Type {
		case models.PostAnswer:
			t.Answers = append(t.Answers, p)
		case models.PostComment:
			t.Comments.Add(p)
		}
	}
	return t
}
