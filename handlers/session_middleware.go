package handlers

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"postforum/database"
	"postforum/metrics"
	"postforum/models"
)

const sessionCookie = "session_token"

type ctxKey int

const (
	userKey ctxKey = iota
	groupKey
)

// withRequestContext resolves the session user and the group the request host
// belongs to before any route runs.
func (h *Handler) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := h.sessionUser(w, r)
		group := h.requestGroup(r)
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, groupKey, group)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionUser looks the cookie up in users.session_token. Stale cookies are
// cleared and the request continues anonymously.
func (h *Handler) sessionUser(w http.ResponseWriter, r *http.Request) *models.User {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return models.Anonymous
	}

	user, err := h.store.UserBySession(r.Context(), cookie.Value)
	if isNotFound(err) {
		http.SetCookie(w, &http.Cookie{
			Name:    sessionCookie,
			Value:   "",
			Path:    "/",
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
		return models.Anonymous
	}
	if err != nil {
		h.logger.Error("Database error resolving session", zap.Error(err))
		return models.Anonymous
	}
	return user
}

func (h *Handler) requestGroup(r *http.Request) *models.UserGroup {
	host := r.Host
	if hostname, _, err := net.SplitHostPort(host); err == nil {
		host = hostname
	}
	if host != "" {
		group, err := h.store.GroupByDomain(r.Context(), host)
		if err == nil {
			return group
		}
		if !isNotFound(err) {
			h.logger.Error("Database error resolving group", zap.String("host", host), zap.Error(err))
		}
	}

	group, err := h.store.GroupByID(r.Context(), database.DefaultGroupID)
	if err != nil {
		h.logger.Error("Default group missing", zap.Error(err))
		return &models.UserGroup{ID: database.DefaultGroupID, Name: "Default", Domain: models.DefaultDomain, Public: true}
	}
	return group
}

// CurrentUser returns the session user, or models.Anonymous.
func CurrentUser(r *http.Request) *models.User {
	if u, ok := r.Context().Value(userKey).(*models.User); ok && u != nil {
		return u
	}
	return models.Anonymous
}

// CurrentGroup returns the group resolved for the request host.
func CurrentGroup(r *http.Request) *models.UserGroup {
	if g, ok := r.Context().Value(groupKey).(*models.UserGroup); ok && g != nil {
		return g
	}
	return &models.UserGroup{ID: database.DefaultGroupID, Name: "Default", Domain: models.DefaultDomain, Public: true}
}

// RemoteIP prefers the first X-Forwarded-For hop over the socket address.
// The result is not validated here.
func RemoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (h *Handler) loginRequired(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r).IsAuthenticated() {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		fn(w, r)
	}
}

// validUser loads the {pk} user or answers 404.
func (h *Handler) validUser(fn func(http.ResponseWriter, *http.Request, *models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			h.notFound(w, r, "User not found.")
			return
		}
		user, err := h.store.UserByID(r.Context(), id)
		if isNotFound(err) {
			h.notFound(w, r, "User not found.")
			return
		}
		if err != nil {
			h.serverError(w, r, "Error loading user", err)
			return
		}
		fn(w, r, user)
	}
}

// validPost loads the {pk} post or answers 404. Deleted posts, and every reply
// in a deleted thread, exist only for moderators.
func (h *Handler) validPost(fn func(http.ResponseWriter, *http.Request, *models.Post)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			h.notFound(w, r, "Post not found.")
			return
		}
		post, err := h.store.PostByID(r.Context(), id)
		if isNotFound(err) {
			h.notFound(w, r, "Post not found.")
			return
		}
		if err != nil {
			h.serverError(w, r, "Error loading post", err)
			return
		}

		if !CurrentUser(r).IsModerator {
			hidden, err := h.inDeletedThread(r, post)
			if err != nil {
				h.serverError(w, r, "Error loading thread root", err)
				return
			}
			if hidden {
				h.notFound(w, r, "Post not found.")
				return
			}
		}
		fn(w, r, post)
	}
}

func (h *Handler) inDeletedThread(r *http.Request, post *models.Post) (bool, error) {
	if post.IsDeleted() {
		return true, nil
	}
	if post.IsToplevel() {
		return false, nil
	}
	root, err := h.store.PostByID(r.Context(), post.RootID)
	if isNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return root.IsDeleted(), nil
}

// ThreadWriteAccess returns the edit check for posts under root. Moderators
// may edit anything, authors their own posts unless the thread is closed.
func ThreadWriteAccess(user *models.User, root *models.Post) func(*models.Post) bool {
	return func(p *models.Post) bool {
		switch {
		case !user.IsAuthenticated():
			return false
		case user.IsModerator:
			return true
		case root.Status == models.StatusClosed:
			return false
		default:
			return p.AuthorID == user.ID
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RequestDuration.
			WithLabelValues(route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
