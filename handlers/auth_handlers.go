package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"postforum/templates"
	"postforum/utils"
)

type loginPage struct {
	Base
	Next string
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, templates.Login, loginPage{
		Base: h.base(r, "Login"),
		Next: safeNext(r.URL.Query().Get("next")),
	})
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID int) bool {
	token, err := uuid.NewV4()
	if err != nil {
		h.logger.Error("Error generating session token", zap.Error(err))
		return false
	}
	expires := h.now().Add(h.cfg.SessionTTL)
	if err := h.store.SetSession(r.Context(), userID, token.String(), expires); err != nil {
		h.logger.Error("Error updating session token", zap.Int("user_id", userID), zap.Error(err))
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token.String(),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// LoginHandler checks the email and password. Browsers posting the login form
// with a next target are redirected there, everything else gets JSON.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if err := h.validate.Struct(form); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation error",
			"fields": fieldErrors(err),
		})
		return
	}

	user, hash, err := h.store.Credentials(r.Context(), form.Email)
	if isNotFound(err) {
		jsonError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("Database error", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(form.Password)); err != nil {
		jsonError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !h.startSession(w, r, user.ID) {
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if next := safeNext(r.FormValue("next")); next != "" {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Login successful!",
		"name":    user.Name,
	})
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	form := registerForm{
		Name:     utils.StripTags(r.FormValue("name")),
		Email:    strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password: r.FormValue("password"),
	}
	if err := h.validate.Struct(form); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation error",
			"fields": fieldErrors(err),
		})
		return
	}

	taken, err := h.store.EmailTaken(r.Context(), form.Email)
	if err != nil {
		h.logger.Error("Database error", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		jsonResponse(w, http.StatusConflict, map[string]string{
			"error": "Email already exists",
			"field": "email",
		})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), form.Name, form.Email, string(hashed), false)
	if err != nil {
		h.logger.Error("Error inserting user", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	h.logger.Info("user registered", zap.Int("user_id", user.ID))

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Registration successful! Please log in."})
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := h.store.ClearSession(r.Context(), cookie.Value); err != nil {
			h.logger.Error("Error clearing session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:    sessionCookie,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
