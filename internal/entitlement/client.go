package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Decision is a user's allowance for one feature.
type Decision struct {
	Allowed    bool  `json:"allowed"`
	Usage      int64 `json:"usage"`
	Allocation int64 `json:"allocation"`
}

// Denied reports whether the metered action must be refused.
// An allocation of zero means unmetered.
func (d Decision) Denied() bool {
	return !d.Allowed || (d.Allocation > 0 && d.Usage >= d.Allocation)
}

// Checker is the entitlement surface the services depend on.
type Checker interface {
	Check(ctx context.Context, userID, feature string) (*Decision, error)
	Track(ctx context.Context, userID, event string, quantity int) error
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the hosted feature-flag and billing API.
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates a new entitlement Client. It is stateless after construction.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetHeader("X-Api-Key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &Client{client: client, baseURL: strings.TrimSuffix(cfg.BaseURL, "/")}
}

type checkRequest struct {
	Company map[string]string `json:"company"`
	User    map[string]string `json:"user"`
}

type checkResponse struct {
	Data struct {
		Value             bool   `json:"value"`
		FeatureUsage      *int64 `json:"featureUsage"`
		FeatureAllocation *int64 `json:"featureAllocation"`
	} `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Check evaluates feature for userID.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: authenticated user id.
//   - feature: feature flag key.
//
// Returns:
//   - *Decision: allowed flag with current usage and allocation.
//   - error: non-nil if the API call fails.
func (c *Client) Check(ctx context.Context, userID, feature string) (*Decision, error) {
	var resp checkResponse
	var apiErr errorResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(checkRequest{
			Company: map[string]string{"userId": userID},
			User:    map[string]string{"userId": userID},
		}).
		SetResult(&resp).
		SetError(&apiErr).
		Post(fmt.Sprintf("%s/flags/%s/check", c.baseURL, feature))
	if err != nil {
		return nil, fmt.Errorf("failed to call entitlement API: %w", err)
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("entitlement API returned HTTP %d: %s", httpResp.StatusCode(), apiErr.Error)
	}

	d := &Decision{Allowed: resp.Data.Value}
	if resp.Data.FeatureUsage != nil {
		d.Usage = *resp.Data.FeatureUsage
	}
	if resp.Data.FeatureAllocation != nil {
		d.Allocation = *resp.Data.FeatureAllocation
	}
	return d, nil
}

type trackRequest struct {
	EventType string    `json:"event_type"`
	Body      trackBody `json:"body"`
}

type trackBody struct {
	Event    string            `json:"event"`
	Company  map[string]string `json:"company"`
	User     map[string]string `json:"user"`
	Quantity int               `json:"quantity"`
}

// Track records usage of a metered event.
func (c *Client) Track(ctx context.Context, userID, event string, quantity int) error {
	var apiErr errorResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(trackRequest{
			EventType: "track",
			Body: trackBody{
				Event:    event,
				Company:  map[string]string{"userId": userID},
				User:     map[string]string{"userId": userID},
				Quantity: quantity,
			},
		}).
		SetError(&apiErr).
		Post(c.baseURL + "/events")
	if err != nil {
		return fmt.Errorf("failed to track entitlement event: %w", err)
	}
	if httpResp.IsError() {
		return fmt.Errorf("entitlement event API returned HTTP %d: %s", httpResp.StatusCode(), apiErr.Error)
	}
	return nil
}
