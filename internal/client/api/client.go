package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pulseboard/realtime-backend/internal/client/cache"
	"github.com/pulseboard/realtime-backend/internal/config"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
)

// Client talks to the backend's REST surface and maintains the token pair
// the realtime connection authenticates with. It doubles as a
// client.CredentialSource via AccessToken.
type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	// Optional offline cache; nil when the client runs without one.
	cache       *cache.Cache
	cacheTenant uuid.UUID
	cacheTTL    time.Duration

	// refreshGroup collapses concurrent refresh attempts: when several
	// requests hit a 401 at once, exactly one refresh call goes out and
	// everyone shares its result.
	refreshGroup singleflight.Group
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewCachedClient creates an API client with the offline cache described by
// cfg. An empty cfg.Path yields a plain client.
func NewCachedClient(baseURL string, tenantID uuid.UUID, cfg config.CacheConfig) (*Client, error) {
	c := NewClient(baseURL)
	if cfg.Path == "" {
		return c, nil
	}
	store, err := cache.Open(cfg.Path, tenantID)
	if err != nil {
		return nil, err
	}
	return c.WithCache(store, tenantID, cfg.TTL), nil
}

// WithCache attaches an offline cache. Successful GETs are stored under
// their path and a transport failure falls back to the last fresh copy, so
// a surface can render stale-but-known state while the backend is
// unreachable. The tenant must match the one the cache was opened for.
func (c *Client) WithCache(store *cache.Cache, tenantID uuid.UUID, ttl time.Duration) *Client {
	c.cache = store
	c.cacheTenant = tenantID
	c.cacheTTL = ttl
	return c
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates and stores the issued token pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var tokens tokenResponse
	if err := c.postJSON(ctx, "/api/v1/auth/login", loginRequest{Email: email, Password: password}, &tokens); err != nil {
		return err
	}
	c.setTokens(tokens)
	return nil
}

// AccessToken returns the current access token. Satisfies
// client.CredentialSource.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token == "" {
		return "", apperrors.ErrUnauthorized
	}
	return token, nil
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers
// share a single refresh round trip.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		c.mu.RLock()
		refresh := c.refreshToken
		c.mu.RUnlock()
		if refresh == "" {
			return nil, apperrors.ErrUnauthorized
		}

		var tokens tokenResponse
		if err := c.postJSON(ctx, "/api/v1/auth/refresh", refreshRequest{RefreshToken: refresh}, &tokens); err != nil {
			return nil, err
		}
		c.setTokens(tokens)
		return nil, nil
	})
	return err
}

// GetJSON fetches a resource with the access token. A 401 triggers one
// refresh followed by one retry; a second 401 surfaces as an error. When a
// cache is attached, a transport failure falls back to the last cached copy
// and a success refreshes it.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	status, body, err := c.getOnce(ctx, path)
	if err != nil {
		return c.fromCache(ctx, path, out, err)
	}
	if status == http.StatusUnauthorized {
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		status, body, err = c.getOnce(ctx, path)
		if err != nil {
			return c.fromCache(ctx, path, out, err)
		}
	}
	if status == http.StatusUnauthorized {
		return apperrors.ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("unexpected status %d for %s", status, path)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	if c.cache != nil {
		// Best effort; a cache write failure must not fail the read.
		_ = c.cache.Put(ctx, path, body, c.cacheTTL)
	}
	return nil
}

// fromCache serves a GET from the offline cache after a transport failure.
// Misses and cache errors surface the original network error.
func (c *Client) fromCache(ctx context.Context, path string, out any, cause error) error {
	if c.cache == nil {
		return cause
	}
	value, ok, err := c.cache.Get(ctx, c.cacheTenant, path)
	if err != nil || !ok {
		return cause
	}
	if out != nil {
		if err := json.Unmarshal(value, out); err != nil {
			return cause
		}
	}
	return nil
}

func (c *Client) getOnce(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	c.mu.RLock()
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, resp.Body)
		return apperrors.ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) setTokens(tokens tokenResponse) {
	c.mu.Lock()
	c.accessToken = tokens.AccessToken
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()
}
