package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/session"
)

// LoginResult is a successful login exchange.
type LoginResult struct {
	User         *domain.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"` // seconds
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &result, nil)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &result, nil
}

// Renew exchanges a refresh credential for fresh session credentials.
// Implements the session manager's Renewer contract.
func (c *Client) Renew(ctx context.Context, refreshToken string) (*session.Credentials, error) {
	var creds session.Credentials
	err := c.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, &creds, nil)
	if err != nil {
		return nil, fmt.Errorf("renew session: %w", err)
	}
	return &creds, nil
}
