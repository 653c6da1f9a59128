// Package platform holds the HTTP clients for the external collaborators:
// identity, leaderboard storage, and the payment processor. The engine
// only sees their narrow contracts; failures here degrade features,
// never rounds.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pixelrush-games/rocket-crash-server/leaderboard"
)

// Client calls the platform progression APIs using a service token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) authHeader() string {
	return "Bearer " + c.token
}

// FetchRanking returns the stored ranking for the given app scope.
func (c *Client) FetchRanking(ctx context.Context, appScope string) ([]leaderboard.Entry, error) {
	u := c.baseURL + "/api/leaderboard?app=" + url.QueryEscape(appScope)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var data struct {
		Entries []leaderboard.Entry `json:"entries"`
		Error   string              `json:"error"`
	}
	_ = json.Unmarshal(body, &data)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform: %s", data.Error)
	}
	return data.Entries, nil
}

// SubmitEntry pushes the local player's summary to the stored ranking.
func (c *Client) SubmitEntry(ctx context.Context, appScope string, e leaderboard.Entry) error {
	payload := map[string]interface{}{
		"app":   appScope,
		"entry": e,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/leaderboard", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader())
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	var data struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(respBody, &data)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("platform: %s", data.Error)
	}
	return nil
}
