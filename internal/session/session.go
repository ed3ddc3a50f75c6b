// Package session stores the admin credentials issued by the student API,
// keyed by the browser session cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotFound is returned by a Store when no data exists for an ID.
var ErrNotFound = errors.New("session not found")

// User is the authenticated admin returned by the auth endpoints.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Data is what a Store persists per browser session.
type Data struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Store persists session data. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, id string) (Data, error)
	Save(ctx context.Context, id string, data Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Session is the credentials handle for one browser. It satisfies the
// token source the API client reads on every request.
type Session struct {
	id    string
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// New binds a session ID to a store. ttl bounds how long credentials are
// kept; tokens carrying an earlier exp claim expire with the token.
func New(id string, store Store, ttl time.Duration) *Session {
	return &Session{id: id, store: store, ttl: ttl, now: time.Now}
}

// ID returns the browser session identifier.
func (s *Session) ID() string { return s.id }

// Token returns the stored bearer token, or "" when none is stored. An
// expired token is cleared and reported as absent.
func (s *Session) Token(ctx context.Context) (string, error) {
	data, err := s.load(ctx)
	if err != nil || data.Token == "" {
		return "", err
	}
	if exp, ok := TokenExpiry(data.Token); ok && !s.now().Before(exp) {
		return "", s.Clear(ctx)
	}
	return data.Token, nil
}

// User returns the cached admin, if signed in.
func (s *Session) User(ctx context.Context) (User, bool, error) {
	data, err := s.load(ctx)
	if err != nil {
		return User{}, false, err
	}
	return data.User, data.Token != "", nil
}

// SetToken stores the token and the user it was issued to.
func (s *Session) SetToken(ctx context.Context, token string, user User) error {
	ttl := s.ttl
	if exp, ok := TokenExpiry(token); ok {
		if left := exp.Sub(s.now()); left < ttl || ttl <= 0 {
			ttl = left
		}
	}
	if ttl <= 0 {
		return fmt.Errorf("store session %s: token already expired", s.id)
	}
	if err := s.store.Save(ctx, s.id, Data{Token: token, User: user}, ttl); err != nil {
		return fmt.Errorf("store session %s: %w", s.id, err)
	}
	return nil
}

// Clear forgets the token and user.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear session %s: %w", s.id, err)
	}
	return nil
}

func (s *Session) load(ctx context.Context) (Data, error) {
	data, err := s.store.Load(ctx, s.id)
	if errors.Is(err, ErrNotFound) {
		return Data{}, nil
	}
	if err != nil {
		return Data{}, fmt.Errorf("load session %s: %w", s.id, err)
	}
	return data, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The API is the only party able to verify it; the front end only needs to
// know when to stop presenting it.
func TokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
