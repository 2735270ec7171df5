package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNoRefreshToken   = errors.New("no refresh token available")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired, please login again")
)

// SessionGateway renews a token pair.
type SessionGateway interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// RefreshTokens exchanges the stored refresh token for a new pair and stores it.
type RefreshTokens struct {
	storage TokenStorage
	gateway SessionGateway
}

func NewRefreshTokens(storage TokenStorage, gateway SessionGateway) *RefreshTokens {
	return &RefreshTokens{storage: storage, gateway: gateway}
}

func (u *RefreshTokens) Execute(ctx context.Context) error {
	refreshToken, ok := u.storage.RefreshToken()
	if !ok {
		return ErrNoRefreshToken
	}

	pair, err := u.gateway.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := u.storage.SaveAccessToken(pair.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := u.storage.SaveRefreshToken(pair.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Authenticator runs the login and logout flows against storage.
type Authenticator struct {
	gateway *HTTPGateway
	storage TokenStorage
}

func NewAuthenticator(gateway *HTTPGateway, storage TokenStorage) *Authenticator {
	return &Authenticator{gateway: gateway, storage: storage}
}

func (a *Authenticator) RequestOTP(ctx context.Context, email string) error {
	return a.gateway.RequestOTP(ctx, email)
}

func (a *Authenticator) Verify(ctx context.Context, email, code string) (*User, error) {
	result, err := a.gateway.VerifyOTP(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if err := a.storage.SaveAccessToken(result.AccessToken); err != nil {
		return nil, fmt.Errorf("store access token: %w", err)
	}
	if err := a.storage.SaveRefreshToken(result.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &result.User, nil
}

// Logout ends the server session when a token is stored and always clears storage.
func (a *Authenticator) Logout(ctx context.Context) error {
	var logoutErr error
	if token, ok := a.storage.AccessToken(); ok {
		logoutErr = a.gateway.Logout(ctx, token)
	}
	if err := a.storage.Clear(); err != nil {
		return err
	}
	return logoutErr
}

// AuthenticatedClient renews the access token when needed before each call.
type AuthenticatedClient struct {
	gateway   *HTTPGateway
	storage   TokenStorage
	refresher *RefreshTokens
	now       func() time.Time
}

func NewAuthenticatedClient(gateway *HTTPGateway, storage TokenStorage, now func() time.Time) *AuthenticatedClient {
	if now == nil {
		now = time.Now
	}
	return &AuthenticatedClient{
		gateway:   gateway,
		storage:   storage,
		refresher: NewRefreshTokens(storage, gateway),
		now:       now,
	}
}

func (c *AuthenticatedClient) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *AuthenticatedClient) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *AuthenticatedClient) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *AuthenticatedClient) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *AuthenticatedClient) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.Get(ctx, "/api/profile/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AuthenticatedClient) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.ensureValidToken(ctx)
	if err != nil {
		return err
	}
	return c.gateway.Do(ctx, method, path, token, body, out)
}

func (c *AuthenticatedClient) ensureValidToken(ctx context.Context) (string, error) {
	raw, ok := c.storage.AccessToken()
	if !ok {
		return "", ErrNotAuthenticated
	}

	token, err := NewAccessToken(raw)
	if err != nil {
		return "", ErrNotAuthenticated
	}
	if !token.NeedsRefresh(c.now()) {
		return raw, nil
	}

	if err := c.refresher.Execute(ctx); err != nil {
		_ = c.storage.Clear()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	raw, ok = c.storage.AccessToken()
	if !ok {
		return "", ErrSessionExpired
	}
	return raw, nil
}
