package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maildeck/maildeck/internal/auth"
	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/service"
)

func newAuthFixture(exch *fakeExchanger) (*fakeUserStore, *fakeSessionStore, *AuthHandler) {
	store := newFakeUserStore()
	sessions := newFakeSessionStore()
	accounts := service.NewAccountService(store, exch, "gmail.com", "", nil)
	h := NewAuthHandler(accounts, sessions, fakeURLBuilder{}, AuthConfig{
		CookieName:   "md_session",
		CookieSecure: false,
		SessionTTL:   time.Hour,
		ClientURL:    "http://localhost:3000",
	}, discardLogger())
	return store, sessions, h
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	res := rec.Result()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandlerLoginRedirects(t *testing.T) {
	_, _, h := newAuthFixture(&fakeExchanger{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}

	state := cookieByName(rec, stateCookieName)
	if state == nil || state.Value == "" {
		t.Fatal("expected a state cookie")
	}
	if !state.HttpOnly {
		t.Error("state cookie must be HttpOnly")
	}

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "state="+state.Value) {
		t.Errorf("consent URL %q does not carry the state cookie value", location)
	}
}

func TestAuthHandlerCallbackIssuesSession(t *testing.T) {
	exch := &fakeExchanger{
		profile: &identity.Profile{ID: "g-1", Email: "alice@gmail.com", Name: "Alice"},
		creds:   &identity.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"},
	}
	store, sessions, h := newAuthFixture(exch)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=code-1&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307, body %s", rec.Code, rec.Body)
	}
	if loc := rec.Header().Get("Location"); loc != "http://localhost:3000" {
		t.Errorf("Location = %q, want the frontend URL", loc)
	}

	session := cookieByName(rec, "md_session")
	if session == nil || session.Value == "" {
		t.Fatal("expected a session cookie")
	}
	if !session.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	// The stored session is keyed by the token hash, not the token.
	authCtx := sessions.byHash[auth.HashToken(session.Value)]
	if authCtx == nil {
		t.Fatal("session not stored under the hashed token")
	}
	if authCtx.Email != "alice@gmail.com" {
		t.Errorf("session email = %q", authCtx.Email)
	}

	// The exchange created the account.
	if _, err := store.GetUserByGoogleID(req.Context(), "g-1"); err != nil {
		t.Errorf("user not created: %v", err)
	}
}

func TestAuthHandlerCallbackRejections(t *testing.T) {
	tests := []struct {
		name   string
		target string
		cookie *http.Cookie
		exch   *fakeExchanger
		want   int
	}{
		{
			name:   "missing state cookie",
			target: "/auth/callback?code=c&state=xyz",
			exch:   &fakeExchanger{},
			want:   http.StatusBadRequest,
		},
		{
			name:   "state mismatch",
			target: "/auth/callback?code=c&state=other",
			cookie: &http.Cookie{Name: stateCookieName, Value: "xyz"},
			exch:   &fakeExchanger{},
			want:   http.StatusBadRequest,
		},
		{
			name:   "missing code",
			target: "/auth/callback?state=xyz",
			cookie: &http.Cookie{Name: stateCookieName, Value: "xyz"},
			exch:   &fakeExchanger{},
			want:   http.StatusBadRequest,
		},
		{
			name:   "exchange failure",
			target: "/auth/callback?code=bad&state=xyz",
			cookie: &http.Cookie{Name: stateCookieName, Value: "xyz"},
			exch:   &fakeExchanger{err: identity.ErrExchangeFailed},
			want:   http.StatusBadGateway,
		},
		{
			name:   "wrong domain",
			target: "/auth/callback?code=c&state=xyz",
			cookie: &http.Cookie{Name: stateCookieName, Value: "xyz"},
			exch: &fakeExchanger{
				profile: &identity.Profile{ID: "g-2", Email: "mallory@corp.example"},
				creds:   &identity.Credentials{AccessToken: "a"},
			},
			want: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, sessions, h := newAuthFixture(tt.exch)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			h.Callback(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if len(sessions.byHash) != 0 {
				t.Error("refused callback must not create a session")
			}
		})
	}
}

func TestAuthHandlerLogout(t *testing.T) {
	_, sessions, h := newAuthFixture(&fakeExchanger{})
	token := "tok-1"
	sessions.byHash[auth.HashToken(token)] = &model.AuthContext{UserID: "u-1"}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "md_session", Value: token})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(sessions.byHash) != 0 {
		t.Error("session not invalidated")
	}

	cleared := cookieByName(rec, "md_session")
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("expected the session cookie to be cleared")
	}
}

func TestAuthHandlerMe(t *testing.T) {
	store, _, h := newAuthFixture(&fakeExchanger{})
	user := store.seed(&model.User{
		GoogleID:    "g-1",
		Email:       "alice@gmail.com",
		DisplayName: "Alice",
		AccessToken: "secret-access",
	})

	req := authedRequest(t, http.MethodGet, "/me", nil, user.ID.Hex())
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["email"] != "alice@gmail.com" {
		t.Errorf("email = %v", response["email"])
	}
	if _, leaked := response["access_token"]; leaked {
		t.Error("provider credentials must never appear in responses")
	}
}

func TestAuthHandlerMeStaleSession(t *testing.T) {
	_, _, h := newAuthFixture(&fakeExchanger{})

	req := authedRequest(t, http.MethodGet, "/me", nil, "65f000000000000000000000")
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
