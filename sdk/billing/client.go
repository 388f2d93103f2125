package billing

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
)

// Client is the billing API client. A Client without a token calls the
// anonymous endpoints only.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option is a function that configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(client *Client) {
		client.token = token
	}
}

// NewClient creates a new billing API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func contentPath(prefix, contentType, contentID string) string {
	return fmt.Sprintf("%s/%s/%s", prefix, url.PathEscape(contentType), url.PathEscape(contentID))
}

// Decide returns the server's verdict for the caller.
func (c *Client) Decide(ctx context.Context, contentType, contentID string) (*Decision, error) {
	var d Decision
	if err := c.doRequest(ctx, http.MethodGet, contentPath("/access", contentType, contentID), nil, &d); err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	return &d, nil
}

// Reconstruct returns the verdict the server derives from the three separate reads.
func (c *Client) Reconstruct(ctx context.Context, contentType, contentID string) (*Decision, error) {
	var d Decision
	if err := c.doRequest(ctx, http.MethodGet, contentPath("/access", contentType, contentID)+"/reconstruct", nil, &d); err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	return &d, nil
}

func (c *Client) Plan(ctx context.Context) (*Plan, error) {
	var p Plan
	if err := c.doRequest(ctx, http.MethodGet, "/me/plan", nil, &p); err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

func (c *Client) Rule(ctx context.Context, contentType, contentID string) (*Rule, error) {
	var r Rule
	if err := c.doRequest(ctx, http.MethodGet, contentPath("/catalog", contentType, contentID), nil, &r); err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return &r, nil
}

func (c *Client) Grants(ctx context.Context, contentType, contentID string) (*Grants, error) {
	var g Grants
	if err := c.doRequest(ctx, http.MethodGet, contentPath("/me/grants", contentType, contentID), nil, &g); err != nil {
		return nil, fmt.Errorf("get grants: %w", err)
	}
	return &g, nil
}

// CreateOrder starts checkout for one content item. A non-nil priceOverride
// replaces the catalog price; zero makes the item free.
func (c *Client) CreateOrder(ctx context.Context, contentType, contentID string, priceOverride *int64) (*Order, error) {
	body := map[string]any{
		"action":       "create",
		"content_type": contentType,
		"content_id":   contentID,
	}
	if priceOverride != nil {
		body["price_override"] = *priceOverride
	}

	var o Order
	if err := c.doRequest(ctx, http.MethodPost, "/payments", body, &o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &o, nil
}

// CreatePlanOrder starts checkout for a plan tier.
func (c *Client) CreatePlanOrder(ctx context.Context, tier string) (*Order, error) {
	var o Order
	if err := c.doRequest(ctx, http.MethodPost, "/payments", map[string]any{"action": "create", "plan": tier}, &o); err != nil {
		return nil, fmt.Errorf("create plan order: %w", err)
	}
	return &o, nil
}

// VerifyPayment reports a completed checkout. Repeating it is harmless.
func (c *Client) VerifyPayment(ctx context.Context, v Verification) (*VerifyResult, error) {
	body := struct {
		Action string `json:"action"`
		Verification
	}{Action: "verify", Verification: v}

	var r VerifyResult
	if err := c.doRequest(ctx, http.MethodPost, "/payments", body, &r); err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	return &r, nil
}

// doRequest performs an HTTP request and decodes the response.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var apiResp apiResponse
	decodeErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && apiResp.Error != nil {
			apiResp.Error.Status = resp.StatusCode
			return apiResp.Error
		}
		return &APIError{Status: resp.StatusCode, Type: "http_error", Message: string(respBody)}
	}

	if decodeErr != nil {
		return fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if result == nil || apiResp.Data == nil {
		return nil
	}

	// Re-marshal and unmarshal to convert Data to the target type
	dataBytes, err := json.Marshal(apiResp.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if err := json.Unmarshal(dataBytes, result); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}

	return nil
}
