package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{Username: "admin", Password: "secret"}.Validate())
	assert.ErrorIs(t, Credentials{Username: "  ", Password: "secret"}.Validate(), ErrEmptyCredentials)
	assert.ErrorIs(t, Credentials{Username: "admin"}.Validate(), ErrEmptyCredentials)
}

func TestLogin(t *testing.T) {
	var got Credentials
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"access_token":"jwt-token","user":{"id":"1","username":"admin","role":"admin"}}`))
	})

	resp, err := c.Login(context.Background(), Credentials{Username: " admin ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", resp.AccessToken)
	assert.True(t, resp.User.IsAdmin())
	assert.Equal(t, "admin", got.Username)
}

func TestLogin_EmptyCredentialsMakeNoRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})

	_, err := c.Login(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrEmptyCredentials)
}

func TestSignupFirstAdmin_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/signup-admin", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
	})

	_, err := c.SignupFirstAdmin(context.Background(), Credentials{Username: "a", Password: "b"})
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"1","username":"admin","role":"admin"}`))
	})

	u, err := c.WithSession(&fakeTokens{token: "tok"}).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
}
