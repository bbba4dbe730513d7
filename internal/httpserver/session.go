// internal/httpserver/session.go
//
// Anonymous player identity.
// Every browser gets a random player id on first contact, carried in an
// HS256-signed JWT cookie. Tokens are also accepted as a Bearer header so
// non-browser clients can keep their identity.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var errNoPlayer = errors.New("token carries no player id")

// Sessions issues and verifies player tokens.
type Sessions struct {
	secret []byte
	cookie string
	ttl    time.Duration
	secure bool
}

// NewSessions builds a token issuer. secure marks cookies Secure and
// SameSite=None, as production deployments sit behind HTTPS on another origin.
func NewSessions(secret, cookie string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), cookie: cookie, ttl: ttl, secure: secure}
}

type ctxPlayerKey struct{}

// PlayerID returns the id attached by Sessions.Middleware.
func PlayerID(ctx context.Context) string {
	id, _ := ctx.Value(ctxPlayerKey{}).(string)
	return id
}

// Issue signs a token for playerID.
func (s *Sessions) Issue(playerID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// Verify returns the player id inside a valid token.
func (s *Sessions) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("verify session: %w", err)
	}
	if claims.Subject == "" {
		return "", errNoPlayer
	}
	return claims.Subject, nil
}

// Middleware attaches the caller's player id, minting a new identity (and
// cookie) when the request carries no valid token.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if tok := s.bearerOrCookie(r); tok != "" {
			var err error
			if id, err = s.Verify(tok); err != nil {
				log.Debug().Err(err).Msg("discarding session token")
			}
		}
		if id == "" {
			id = uuid.NewString()
			tok, exp, err := s.Issue(id)
			if err != nil {
				log.Error().Err(err).Msg("sign session")
				http.Error(w, `{"error":"session_failed"}`, http.StatusInternalServerError)
				return
			}
			s.setCookie(w, tok, exp)
			w.Header().Set("X-Session-Token", tok)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, id)))
	})
}

// setCookie writes the session cookie with appropriate security attributes.
func (s *Sessions) setCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a token from the Authorization header or cookie.
func (s *Sessions) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cookie); err == nil {
		return c.Value
	}
	return ""
}
