package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type LoginResult struct {
	TokenPair
	User User `json:"user"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// HTTPGateway talks to the otp-auth HTTP API.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPGateway(baseURL string, httpClient *http.Client, log *zap.Logger) *HTTPGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log.With(zap.String("component", "gateway")),
	}
}

func (g *HTTPGateway) RequestOTP(ctx context.Context, email string) error {
	return g.Do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email}, nil)
}

func (g *HTTPGateway) VerifyOTP(ctx context.Context, email, code string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "code": code}
	if err := g.Do(ctx, http.MethodPost, "/api/auth/verify", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var out TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	if err := g.Do(ctx, http.MethodPost, "/api/auth/refresh", "", body, &out); err != nil {
		return TokenPair{}, err
	}
	return out, nil
}

func (g *HTTPGateway) Logout(ctx context.Context, accessToken string) error {
	return g.Do(ctx, http.MethodPost, "/api/auth/logout", accessToken, nil, nil)
}

func (g *HTTPGateway) Me(ctx context.Context, accessToken string) (*User, error) {
	var out User
	if err := g.Do(ctx, http.MethodGet, "/api/profile/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Do sends body as JSON and decodes the envelope's data into out.
// A non-empty accessToken is sent as a Bearer credential.
func (g *HTTPGateway) Do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	g.log.Debug("API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
