package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// Client talks to a GoTrue-style token endpoint. It owns the current
// session and fans auth state transitions out to registered listeners,
// the same contract the UI's identity SDK exposes.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	store   TokenStore

	mu        sync.Mutex
	session   *Session
	callbacks []func(event string, session *Session)
}

func NewClient(baseURL, apiKey string, store TokenStore) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		store:   store,
	}
}

// GetSession returns the current session, or nil when signed out.
func (c *Client) GetSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.Expired() {
		return nil
	}
	s := *c.session
	return &s
}

// OnAuthStateChange registers a listener for session transitions. Listeners
// are invoked synchronously in registration order.
func (c *Client) OnAuthStateChange(cb func(event string, session *Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// Restore rehydrates a persisted session, refreshing it if expired. A
// restored session emits EventInitialSession, not EventSignedIn, so
// consumers can tell rehydration apart from a fresh login.
func (c *Client) Restore(ctx context.Context) error {
	raw, err := c.store.LoadSession()
	if err != nil {
		return fmt.Errorf("error loading persisted session: %w", err)
	}
	if raw == "" {
		return nil
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		log.Printf("Warning: discarding unreadable persisted session: %v", err)
		c.store.ClearSession()
		return nil
	}

	if s.Expired() {
		refreshed, err := c.refresh(ctx, s.RefreshToken)
		if err != nil {
			log.Printf("Warning: session refresh failed, sign-in required: %v", err)
			c.store.ClearSession()
			return nil
		}
		c.setSession(refreshed, EventInitialSession)
		return nil
	}

	c.setSession(&s, EventInitialSession)
	return nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token")
	}
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	return c.tokenRequest(ctx, "refresh_token", body)
}

// SignIn exchanges credentials for a session and emits EventSignedIn.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	s, err := c.tokenRequest(ctx, "password", body)
	if err != nil {
		return nil, err
	}
	c.setSession(s, EventSignedIn)
	return s, nil
}

// SignOut drops the session, best-effort revokes it remotely, and emits
// EventSignedOut.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session != nil {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/auth/v1/logout", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+session.AccessToken)
			req.Header.Set("apikey", c.apiKey)
			if resp, err := c.http.Do(req); err != nil {
				log.Printf("Warning: remote sign-out failed: %v", err)
			} else {
				resp.Body.Close()
			}
		}
	}

	if err := c.store.ClearSession(); err != nil {
		log.Printf("Warning: failed to clear persisted session: %v", err)
	}
	c.setSession(nil, EventSignedOut)
	return nil
}

func (c *Client) setSession(s *Session, event string) {
	c.mu.Lock()
	c.session = s
	if s != nil {
		if raw, err := json.Marshal(s); err == nil {
			if err := c.store.SaveSession(string(raw)); err != nil {
				log.Printf("Warning: failed to persist session: %v", err)
			}
		}
	}
	callbacks := make([]func(string, *Session), len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(event, s)
	}
}

func (c *Client) tokenRequest(ctx context.Context, grantType string, body []byte) (*Session, error) {
	url := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", c.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint error: %s - %s", resp.Status, respBody)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		User         struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("error parsing token response: %w", err)
	}
	if payload.AccessToken == "" || payload.User.ID == "" {
		return nil, fmt.Errorf("token response missing access token or user id")
	}

	return &Session{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		UserID:       payload.User.ID,
		Email:        payload.User.Email,
		ExpiresAt:    time.Now().Unix() + payload.ExpiresIn,
	}, nil
}
