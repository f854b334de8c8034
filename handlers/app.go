package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"postforum/config"
	"postforum/models"
	"postforum/query"
	"postforum/templates"
)

// Handler serves every forum route. Build it with New and mount Routes.
type Handler struct {
	store    *query.Store
	logger   *zap.Logger
	cfg      config.ForumConfig
	pages    *templates.Renderer
	hub      *ThreadHub
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Handler)

// WithClock replaces time.Now, e.g. for view interval tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func New(store *query.Store, logger *zap.Logger, cfg config.ForumConfig, hub *ThreadHub, opts ...Option) (*Handler, error) {
	pages, err := templates.New()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		store:    store,
		logger:   logger,
		cfg:      cfg,
		pages:    pages,
		hub:      hub,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes returns the forum mux. Every route is timed and sees the current user and group.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, fn))
	}

	route("GET /{$}", h.PostList)
	route("GET /tags", h.TagList)
	route("GET /tags/{name}", h.TagFilter)
	route("GET /u/{pk}/posts", h.validUser(h.PostsByUser))
	route("GET /u/{pk}/upvoted", h.validUser(h.UpvotedPosts))
	route("GET /bookmarks", h.loginRequired(h.MyBookmarks))
	route("GET /groups", h.GroupList)
	route("GET /search", h.SearchResults)
	route("GET /p/{pk}", h.validPost(h.PostView))
	route("GET /p/{pk}/{$}", h.validPost(h.PostView))

	route("POST /p/new", h.loginRequired(h.PostSubmit))
	route("POST /p/{pk}/comment", h.validPost(h.CommentSubmit))
	route("POST /p/{pk}/vote", h.validPost(h.VoteSubmit))
	route("GET /ws/thread/{pk}", h.validPost(h.ThreadFeed))

	route("GET /login", h.LoginPage)
	route("POST /login", h.LoginHandler)
	route("POST /register", h.RegisterHandler)
	route("GET /logout", h.LogoutHandler)

	mux.Handle("GET /metrics", promhttp.Handler())

	return h.withRequestContext(mux)
}

// Base is the part of every page context the layout reads.
type Base struct {
	Title    string
	User     *models.User
	Group    *models.UserGroup
	Messages []string
}

func (h *Handler) base(r *http.Request, title string, messages ...string) Base {
	return Base{
		Title:    title,
		User:     CurrentUser(r),
		Group:    CurrentGroup(r),
		Messages: messages,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.Render(w, name, data); err != nil {
		h.logger.Error("Error executing template",
			zap.String("template", name), zap.String("path", r.URL.Path), zap.Error(err))
	}
}

type notFoundPage struct {
	Base
	Detail string
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, detail string) {
	h.render(w, r, http.StatusNotFound, templates.NotFound, notFoundPage{
		Base:   h.base(r, "Page Not Found"),
		Detail: detail,
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "Internal server error.", http.StatusInternalServerError)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("Error encoding JSON response", zap.Error(err))
	}
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

// pathID parses the {pk} wildcard.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("pk"))
	return id, err == nil && id > 0
}

func isNotFound(err error) bool {
	return errors.Is(err, query.ErrNotFound)
}
