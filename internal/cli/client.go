package cli

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

	"reftourney/internal/tournament"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (c *Client) Activate(ctx context.Context, userID, displayName, payload string) (tournament.Activation, error) {
	var out tournament.Activation
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/activations", map[string]any{
		"user_id":      userID,
		"display_name": displayName,
		"payload":      payload,
	}, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context) (tournament.Snapshot, error) {
	var out tournament.Snapshot
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard", nil, &out)
	return out, err
}

func (c *Client) ReferralInfo(ctx context.Context, userID string) (tournament.ReferralInfo, error) {
	var out tournament.ReferralInfo
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/participants/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var structured struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &structured) == nil && structured.Error != "" {
			msg = structured.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
