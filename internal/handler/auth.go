package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/maildeck/maildeck/internal/auth"
	"github.com/maildeck/maildeck/internal/handler/dto"
	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/service"
)

// stateCookieName carries the OAuth state between login and callback.
const stateCookieName = "md_oauth_state"

// stateTTL bounds how long a login redirect may stay pending.
const stateTTL = 10 * time.Minute

// SessionStore writes and invalidates session records.
// *cache.Cache implements it.
type SessionStore interface {
	SetSession(ctx context.Context, tokenHash string, auth *model.AuthContext, ttl time.Duration) error
	DeleteSession(ctx context.Context, tokenHash string) error
}

// LoginURLBuilder builds the provider consent URL for a login attempt.
// *identity.Client implements it.
type LoginURLBuilder interface {
	AuthCodeURL(state string) string
}

// AuthConfig holds the cookie and redirect settings of the auth flow.
type AuthConfig struct {
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	// ClientURL is the frontend; the callback redirects there on success.
	ClientURL string
}

// AuthHandler handles the sign-in flow and session lifecycle.
type AuthHandler struct {
	accounts *service.AccountService
	sessions SessionStore
	urls     LoginURLBuilder
	cfg      AuthConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AccountService, sessions SessionStore, urls LoginURLBuilder, cfg AuthConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		urls:     urls,
		cfg:      cfg,
		logger:   logger.With("handler", "auth"),
	}
}

// Login handles GET /auth/login.
// Issues a fresh state token and redirects the browser to the provider's
// consent screen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateSessionToken()
	if err != nil {
		h.logger.Error("state generation failed", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.urls.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /auth/callback.
// Verifies the state echo, runs the sign-in exchange, and issues the
// session cookie before bouncing back to the frontend.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		h.logger.Warn("callback state mismatch", "ip", r.RemoteAddr)
		writeErrorJSON(w, http.StatusBadRequest, "STATE_MISMATCH", "OAuth state validation failed")
		return
	}
	clearCookie(w, stateCookieName, h.cfg.CookieSecure)

	code := query.Get("code")
	if code == "" {
		writeErrorJSON(w, http.StatusBadRequest, "MISSING_CODE", "Authorization code is required")
		return
	}

	user, err := h.accounts.SignIn(r.Context(), code)
	if err != nil {
		h.handleSignInError(w, err)
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		h.logger.Error("session token generation failed", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	authCtx := &model.AuthContext{
		UserID:  user.ID.Hex(),
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}
	if err := h.sessions.SetSession(r.Context(), auth.HashToken(token), authCtx, h.cfg.SessionTTL); err != nil {
		h.logger.Error("session store failed", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login succeeded", "user_id", authCtx.UserID)
	http.Redirect(w, r, h.cfg.ClientURL, http.StatusTemporaryRedirect)
}

// Logout handles POST /auth/logout.
// Invalidates the server-side session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cfg.CookieName)
	if err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteSession(r.Context(), auth.HashToken(cookie.Value)); err != nil {
			h.logger.Error("session delete failed", "error", err)
		}
	}

	clearCookie(w, h.cfg.CookieName, h.cfg.CookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
// Returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	user, err := h.accounts.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			// Session outlived the account.
			writeErrorJSON(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		h.logger.Error("internal_error", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

func (h *AuthHandler) handleSignInError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDomainNotAllowed):
		writeErrorJSON(w, http.StatusForbidden, "DOMAIN_NOT_ALLOWED", "Only consumer mail accounts may sign in")
	case errors.Is(err, identity.ErrExchangeFailed):
		writeErrorJSON(w, http.StatusBadGateway, "EXCHANGE_FAILED", "Identity provider exchange failed")
	default:
		h.logger.Error("internal_error", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// clearCookie expires a cookie immediately.
func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
