package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// authHeader carries the opaque session token on authenticated calls.
const authHeader = "x-auth-token"

// Client talks to the ChainTask REST backend. One client per backend; the
// session token is set after login and attached to every authenticated
// request.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken installs the session token used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ClearToken drops the session token; subsequent authenticated calls fail
// fast client-side.
func (c *Client) ClearToken() {
	c.SetToken("")
}

type errorBody struct {
	Msg string `json:"msg"`
}

// do issues one JSON request. Authenticated requests without a token fail
// before touching the network.
func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body interface{}, out interface{}, authed bool) error {
	token := c.Token()
	if authed && token == "" {
		return &AuthError{Message: "not logged in"}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if authed {
		req.Header.Set(authHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err == nil && eb.Msg != "" {
			return &apiError{status: resp.StatusCode, msg: eb.Msg}
		}
		return &apiError{status: resp.StatusCode, msg: resp.Status}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to decode backend response")
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// apiError is a non-2xx backend response.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.status, e.msg)
}
