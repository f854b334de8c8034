package handlers

import (
	"net/http"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"postforum/models"
	"postforum/query"
	"postforum/utils"
)

var toplevelTypes = map[string]int{
	"question": models.PostQuestion,
	"forum":    models.PostForum,
	"tutorial": models.PostTutorial,
	"news":     models.PostNews,
	"job":      models.PostJob,
}

// splitTags reads a free-form tag field: names separated by commas or spaces.
func splitTags(raw string) []string {
	var tags []string
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	for _, f := range fields {
		if name := utils.StripTags(f); name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}

// PostSubmit starts a new thread in the current group and redirects to it.
func (h *Handler) PostSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)

	form := newPostForm{
		Title:   utils.StripTags(r.FormValue("title")),
		Content: utils.SanitizeContent(r.FormValue("content")),
		Type:    strings.ToLower(strings.TrimSpace(r.FormValue("type"))),
		Tags:    splitTags(r.FormValue("tags")),
	}
	if form.Type == "" {
		form.Type = "question"
	}
	if err := h.validate.Struct(form); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation error",
			"fields": fieldErrors(err),
		})
		return
	}

	post, err := h.store.CreatePost(r.Context(), query.NewPost{
		Type:     toplevelTypes[form.Type],
		Title:    form.Title,
		Content:  form.Content,
		AuthorID: user.ID,
		GroupID:  CurrentGroup(r).ID,
		Tags:     form.Tags,
	})
	if err != nil {
		h.logger.Error("Error inserting post", zap.Int("user_id", user.ID), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Failed to create post.")
		return
	}
	h.logger.Info("post created", zap.Int("post_id", post.ID), zap.Int("user_id", user.ID))

	http.Redirect(w, r, post.AbsoluteURL(), http.StatusSeeOther)
}
