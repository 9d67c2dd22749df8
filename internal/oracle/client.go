package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// AskRequest is the body POSTed to a remote decision-maker.
type AskRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
}

// AskResponse carries either the preferred vector itself or the index of
// the preferred side (0 for x, 1 for y).
type AskResponse struct {
	Preferred []float64 `json:"preferred,omitempty"`
	Choice    *int      `json:"choice,omitempty"`
}

// HTTPClient forwards queries to a decision-maker service.
type HTTPClient struct {
	baseURL    string
	token      string
	sessionID  string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ForSession returns a copy that tags requests with a session id.
func (c *HTTPClient) ForSession(id string) *HTTPClient {
	cp := *c
	cp.sessionID = id
	return &cp
}

func (c *HTTPClient) Ask(ctx context.Context, x, y scoring.Alternative) (scoring.Alternative, error) {
	payload, err := json.Marshal(AskRequest{SessionID: c.sessionID, X: x, Y: y})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("oracle POST /ask: %d %s", resp.StatusCode, string(body))
	}

	var ar AskResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("decode oracle answer: %w", err)
	}
	switch {
	case len(ar.Preferred) > 0:
		return scoring.Alternative(ar.Preferred), nil
	case ar.Choice != nil && *ar.Choice == 0:
		return x, nil
	case ar.Choice != nil && *ar.Choice == 1:
		return y, nil
	case ar.Choice != nil:
		return nil, fmt.Errorf("oracle choice %d out of range", *ar.Choice)
	}
	return nil, fmt.Errorf("oracle answer carries neither preferred nor choice")
}
