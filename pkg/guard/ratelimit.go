package guard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Decision is the verdict of the remote rate-limit counting service.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RateLimiterClient consults a remote counting service over a single
// limit-check call. The service owns the counters; this side only asks.
type RateLimiterClient struct {
	baseURL string
	client  *http.Client
}

func NewRateLimiterClient(baseURL string, timeout time.Duration) *RateLimiterClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RateLimiterClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type checkRequest struct {
	Identifier string `json:"identifier"`
	Action     string `json:"action"`
}

// Check asks the remote service whether identifier may perform action.
func (c *RateLimiterClient) Check(ctx context.Context, identifier, action string) (Decision, error) {
	body, err := json.Marshal(checkRequest{Identifier: identifier, Action: action})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/check", bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter: check %s/%s: %w", identifier, action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Decision{}, fmt.Errorf("rate limiter: unexpected status %d", resp.StatusCode)
	}
	var d Decision
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return Decision{}, fmt.Errorf("rate limiter: decode response: %w", err)
	}
	return d, nil
}

// AllowAllLimiter satisfies the limiter contract when no remote service is
// configured.
type AllowAllLimiter struct{}

func (AllowAllLimiter) Check(ctx context.Context, identifier, action string) (Decision, error) {
	return Decision{Allowed: true, Remaining: -1}, nil
}
