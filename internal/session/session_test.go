package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "admin-1"}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func newMemorySession(ttl time.Duration, now *time.Time) (*Session, *MemoryStore) {
	store := NewMemoryStore()
	store.now = func() time.Time { return *now }
	s := New("sid-1", store, ttl)
	s.now = func() time.Time { return *now }
	return s, store
}

func TestTokenExpiry(t *testing.T) {
	exp := testNow.Add(time.Hour).Truncate(time.Second)

	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry(signedToken(t, time.Time{}))
	assert.False(t, ok, "token without exp")

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestSession_SetTokenAndRead(t *testing.T) {
	now := testNow
	s, _ := newMemorySession(time.Hour, &now)
	ctx := context.Background()

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SetToken(ctx, "opaque-token", User{ID: "1", Username: "admin", Role: "admin"}))

	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", tok)

	u, ok, err := s.User(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", u.Username)
}

func TestSession_Clear(t *testing.T) {
	now := testNow
	s, _ := newMemorySession(time.Hour, &now)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "opaque-token", User{Username: "admin"}))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx), "clearing twice is fine")

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	_, ok, err := s.User(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_ExpiredJWTIsCleared(t *testing.T) {
	now := testNow
	s, store := newMemorySession(24*time.Hour, &now)
	ctx := context.Background()

	token := signedToken(t, testNow.Add(30*time.Minute))
	require.NoError(t, s.SetToken(ctx, token, User{Username: "admin"}))

	got, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	now = testNow.Add(31 * time.Minute)
	got, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, store.Len())
}

func TestSession_SetTokenRejectsExpired(t *testing.T) {
	now := testNow
	s, _ := newMemorySession(time.Hour, &now)

	err := s.SetToken(context.Background(), signedToken(t, testNow.Add(-time.Minute)), User{})
	assert.Error(t, err)
}

func TestMemoryStore_Sweep(t *testing.T) {
	now := testNow
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", Data{Token: "a"}, time.Minute))
	require.NoError(t, store.Save(ctx, "b", Data{Token: "b"}, time.Hour))

	require.NoError(t, store.Save(ctx, "c", Data{Token: "c"}, time.Minute))

	now = testNow.Add(2 * time.Minute)
	_, err := store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, store.Len(), "expired entry is dropped on read")

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	ctx := context.Background()

	_, err := store.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)

	want := Data{Token: "tok", User: User{ID: "7", Username: "secretaria", Role: "admin"}}
	require.NoError(t, store.Save(ctx, "sid", want, 10*time.Minute))
	assert.Equal(t, 10*time.Minute, mr.TTL(defaultKeyPrefix+"sid"))

	got, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mr.FastForward(11 * time.Minute)
	_, err = store.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "sid", want, time.Minute))
	require.NoError(t, store.Delete(ctx, "sid"))
	assert.False(t, mr.Exists(defaultKeyPrefix+"sid"))
	assert.NoError(t, store.Health(ctx))
}

func TestSession_RedisBackedTTLFollowsToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := New("sid-2", NewRedisStore(client), 12*time.Hour)
	s.now = func() time.Time { return testNow }

	token := signedToken(t, testNow.Add(2*time.Hour))
	require.NoError(t, s.SetToken(context.Background(), token, User{Username: "admin"}))

	assert.Equal(t, 2*time.Hour, mr.TTL(defaultKeyPrefix+"sid-2"))
}
