package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmplx-xyttmt/personal-finance-tracker/auth"
)

// SessionSource supplies the bearer token for remote calls.
type SessionSource interface {
	GetSession() *auth.Session
}

// Client is the REST client for the remote data backend. The remote schema
// uses snake_case column names and scopes every row to the authenticated
// user server-side; this client only speaks raw JSON rows, the sync
// package's mappers are the translation boundary.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	sessions SessionSource
}

func NewClient(baseURL, apiKey string, sessions SessionSource) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
	}
}

// Select fetches rows whose updated_at is strictly greater than the given
// RFC3339 timestamp.
func (c *Client) Select(ctx context.Context, table, updatedAfter string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("updated_at", "gt."+updatedAfter)
	return c.selectRows(ctx, table, q)
}

// SelectAll fetches every row of a table.
func (c *Client) SelectAll(ctx context.Context, table string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("select", "*")
	return c.selectRows(ctx, table, q)
}

// SelectByIDs fetches the rows matching the given ids.
func (c *Client) SelectByIDs(ctx context.Context, table string, ids []string) ([]json.RawMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "in.("+strings.Join(ids, ",")+")")
	return c.selectRows(ctx, table, q)
}

// Upsert writes a batch of rows, merging on the primary key.
func (c *Client) Upsert(ctx context.Context, table string, rows interface{}) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("error encoding %s payload: %w", table, err)
	}

	req, err := c.newRequest(ctx, "POST", c.tableURL(table, nil), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error upserting %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upsert %s failed: %s - %s", table, resp.Status, respBody)
	}
	return nil
}

// DeleteByID removes one row by primary key.
func (c *Client) DeleteByID(ctx context.Context, table, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	req, err := c.newRequest(ctx, "DELETE", c.tableURL(table, q), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error deleting %s/%s: %w", table, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete %s/%s failed: %s - %s", table, id, resp.Status, respBody)
	}
	return nil
}

func (c *Client) selectRows(ctx context.Context, table string, q url.Values) ([]json.RawMessage, error) {
	req, err := c.newRequest(ctx, "GET", c.tableURL(table, q), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error selecting %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("select %s failed: %s - %s", table, resp.Status, respBody)
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("error parsing %s response: %w", table, err)
	}
	return rows, nil
}

func (c *Client) tableURL(table string, q url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	session := c.sessions.GetSession()
	if session == nil {
		return nil, fmt.Errorf("no authenticated session")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("apikey", c.apiKey)
	return req, nil
}
