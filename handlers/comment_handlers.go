package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"postforum/models"
	"postforum/query"
	"postforum/utils"
)

// CommentSubmit adds a comment under the {pk} post, or an answer to its thread,
// and pushes the new post to everyone watching the thread.
func (h *Handler) CommentSubmit(w http.ResponseWriter, r *http.Request, parent *models.Post) {
	user := CurrentUser(r)
	if !user.IsAuthenticated() {
		jsonError(w, http.StatusUnauthorized, "You need to log in to post a reply.")
		return
	}

	form := commentForm{
		Content: utils.SanitizeContent(r.FormValue("content")),
		Type:    r.FormValue("type"),
	}
	if form.Type == "" {
		form.Type = "comment"
	}
	if err := h.validate.Struct(form); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation error",
			"fields": fieldErrors(err),
		})
		return
	}

	root := parent
	if !parent.IsToplevel() {
		var err error
		root, err = h.store.PostByID(r.Context(), parent.RootID)
		if err != nil {
			h.logger.Error("Error loading thread root", zap.Int("root_id", parent.RootID), zap.Error(err))
			jsonError(w, http.StatusInternalServerError, "Failed to submit reply.")
			return
		}
	}
	if root.Status == models.StatusClosed && !user.IsModerator {
		jsonError(w, http.StatusForbidden, "This thread is closed.")
		return
	}

	np := query.NewPost{
		Type:     models.PostComment,
		Content:  form.Content,
		AuthorID: user.ID,
		ParentID: parent.ID,
	}
	if form.Type == "answer" {
		np.Type = models.PostAnswer
		np.ParentID = root.ID
	}

	post, err := h.store.CreatePost(r.Context(), np)
	if err != nil {
		h.logger.Error("Error inserting reply", zap.Int("parent_id", parent.ID), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Failed to submit reply.")
		return
	}

	if h.hub != nil {
		h.hub.Publish(post)
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Reply submitted successfully",
		"post":    post,
		"url":     post.AbsoluteURL(),
	})
}

// VoteSubmit toggles an upvote or bookmark of the current user on the {pk} post.
func (h *Handler) VoteSubmit(w http.ResponseWriter, r *http.Request, post *models.Post) {
	user := CurrentUser(r)
	if !user.IsAuthenticated() {
		jsonError(w, http.StatusUnauthorized, "You need to log in to vote.")
		return
	}

	form := voteForm{Type: r.FormValue("type")}
	if err := h.validate.Struct(form); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation error",
			"fields": fieldErrors(err),
		})
		return
	}

	voteType := models.VoteUp
	if form.Type == "bookmark" {
		voteType = models.VoteBookmark
	}

	added, err := h.store.ToggleVote(r.Context(), user.ID, post.ID, voteType)
	if err != nil {
		h.logger.Error("Error toggling vote", zap.Int("post_id", post.ID), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Failed to record vote.")
		return
	}

	updated, err := h.store.PostByID(r.Context(), post.ID)
	if err != nil {
		h.logger.Error("Error reloading post", zap.Int("post_id", post.ID), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Failed to record vote.")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"added":      added,
		"type":       form.Type,
		"vote_count": updated.VoteCount,
	})
}
