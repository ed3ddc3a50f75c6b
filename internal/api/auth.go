package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Credentials are posted to the login and first-admin signup endpoints.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate reports ErrEmptyCredentials when either field is blank.
func (c Credentials) Validate() error {
	trimmed := Credentials{Username: strings.TrimSpace(c.Username), Password: c.Password}
	if err := validate.Struct(trimmed); err != nil {
		return ErrEmptyCredentials
	}
	return nil
}

// User is the account attached to an access token.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the account may use the admin panel.
func (u User) IsAdmin() bool { return u.Role == "admin" }

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// SignupFirstAdmin creates the first administrator. The API answers 409 once
// an administrator exists.
func (c *Client) SignupFirstAdmin(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/signup-admin", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds Credentials) (*AuthResponse, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	creds.Username = strings.TrimSpace(creds.Username)

	var out AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, route: path, path: path, body: JSONPayload(creds)}, &out)
	if err != nil {
		logRequestError(ctx, "authentication failed", err, "route", path, "username", creds.Username)
		return nil, err
	}
	return &out, nil
}

// Profile returns the user the session token belongs to.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, request{method: http.MethodGet, route: "/auth/profile", path: "/auth/profile"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
