package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nhle/taskmaster/internal/model"
)

type meResponse struct {
	User model.User `json:"user"`
}

// Register creates an account and returns the issued user and tokens.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: reg}, &resp)
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", reg.Email, err)
	}
	return &resp, nil
}

// Login exchanges credentials for the user and a token pair.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: creds}, &resp)
	if err != nil {
		return nil, fmt.Errorf("logging in %s: %w", creds.Email, err)
	}
	return &resp, nil
}

// Logout notifies the server that accessToken is no longer in use. The
// token is passed explicitly because local storage is cleared before the
// notification is sent.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	r := request{method: http.MethodPost, path: "/auth/logout", auth: true, bearer: accessToken}
	if err := c.do(ctx, r, nil); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// Me returns the user owning the stored access token.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var resp meResponse
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me", auth: true}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	return &resp.User, nil
}
