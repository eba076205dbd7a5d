// Package readwise saves bookmarks to Readwise Reader's reading list.
package readwise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SaveEndpoint is the Readwise Reader save API.
const SaveEndpoint = "https://readwise.io/api/v3/save/"

// TokenConfigKey is the config-table key holding the Readwise API token.
const TokenConfigKey = "readwise_access_token"

// Client talks to the Readwise Reader API.
type Client struct {
	http     *http.Client
	endpoint string
	apiToken string
}

// NewClient creates a Client using the given API token.
func NewClient(apiToken string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		endpoint: SaveEndpoint,
		apiToken: apiToken,
	}
}

// NewClientWith is NewClient with a custom HTTP client and endpoint, for tests.
func NewClientWith(httpClient *http.Client, endpoint, apiToken string) *Client {
	return &Client{http: httpClient, endpoint: endpoint, apiToken: apiToken}
}

// SaveToReader saves a URL to the Readwise Reader "later" list.
func (c *Client) SaveToReader(ctx context.Context,
	url, title, summary string, tags []string) error {

	payload := map[string]any{
		"url":      url,
		"title":    title,
		"location": "later",
	}
	if summary != "" {
		payload["summary"] = summary
	}
	if len(tags) > 0 {
		payload["tags"] = tags
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("save to Readwise Reader: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("readwise Reader returned %d: %s",
			resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
