package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// HeaderUserID and HeaderUserEmail carry the identity resolved by Gate.
	// Gate removes any client-supplied copy before setting them.
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"

	DefaultCookieName = "token"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// Sessions resolves the caller of a request and manages the session cookie.
type Sessions struct {
	Tokens     TokenService
	Users      UserStore
	CookieName string
	Secure     bool
	Log        *slog.Logger
}

func NewSessions(tokens TokenService, users UserStore, secure bool, log *slog.Logger) *Sessions {
	return &Sessions{
		Tokens:     tokens,
		Users:      users,
		CookieName: DefaultCookieName,
		Secure:     secure,
		Log:        log,
	}
}

// Resolve returns the authenticated user, checking in order the trusted
// identity header, an Authorization bearer token and the session cookie.
// Every failure reads as "no identity".
func (s *Sessions) Resolve(ctx context.Context, req Request) (*User, bool) {
	if id := strings.TrimSpace(req.Header(HeaderUserID)); id != "" {
		return s.load(ctx, id, nil)
	}

	raw := bearerToken(req.Header("Authorization"))
	if raw == "" {
		raw = req.Cookie(s.cookieName())
	}
	if raw == "" {
		return nil, false
	}

	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return nil, false
	}
	return s.load(ctx, claims.Subject, claims)
}

func (s *Sessions) load(ctx context.Context, id string, claims *Claims) (*User, bool) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if s.Log != nil {
			s.Log.Warn("session user lookup failed", "user_id", id, "error", err)
		}
		return nil, false
	}
	if u == nil {
		return nil, false
	}
	if claims != nil && claims.TokenVersion != u.TokenVersion {
		return nil, false
	}
	return u, true
}

// Issue signs a token for u.
func (s *Sessions) Issue(u *User) (string, time.Time, error) {
	return s.Tokens.Issue(u)
}

// SetCookie stores token in the session cookie.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.maxAge().Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear tells the client to drop the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) cookieName() string {
	if s.CookieName == "" {
		return DefaultCookieName
	}
	return s.CookieName
}

func (s *Sessions) maxAge() time.Duration {
	if s.Tokens.Duration <= 0 {
		return DefaultTokenDuration
	}
	return s.Tokens.Duration
}

func bearerToken(h string) string {
	if len(h) < len("bearer ") || !strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("bearer "):])
}
