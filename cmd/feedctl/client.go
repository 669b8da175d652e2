package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/anonto42/buddyfeed/internal/handlers"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/gorilla/websocket"
)

// apiClient talks to a running buddyfeed server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *apiClient) login(ctx context.Context, email, password string) (*models.Credentials, error) {
	body, err := json.Marshal(models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var creds models.Credentials
	if err := c.do(req, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// profile returns the identity behind token.
func (c *apiClient) profile(ctx context.Context, token string) (*models.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/profile", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var result struct {
		Identity *models.Identity `json:"identity"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result.Identity, nil
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &statusError{Status: resp.StatusCode, Message: body.Message}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// dialFeed opens the live feed stream.
func (c *apiClient) dialFeed(ctx context.Context, token string) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/feed/stream"
	u.RawQuery = url.Values{"access_token": {token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &statusError{Status: resp.StatusCode, Message: "stream rejected"}
		}
		return nil, err
	}
	return conn, nil
}

type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// remoteSession reports the identity behind a stored token to a session.Provider.
// A rejected or unreachable token reads as signed out.
type remoteSession struct {
	api   *apiClient
	token string
}

func (r *remoteSession) OnAuthStateChanged(fn func(*models.Identity)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if r.token == "" {
			fn(nil)
			return
		}
		identity, err := r.api.profile(ctx, r.token)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			fn(nil)
			return
		}
		fn(identity)
	}()
	return cancel
}

// readFrame reads one stream frame and decodes snapshot data into out.
func readFrame(conn *websocket.Conn, out interface{}) error {
	var frame struct {
		Type    string          `json:"type"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		return err
	}
	if frame.Type == handlers.FrameError {
		return fmt.Errorf("stream error: %s", frame.Message)
	}
	return json.Unmarshal(frame.Data, out)
}
