package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wardenhq/warden/internal/models"
)

// Client talks to the gateway service on behalf of a short-lived hook
// process. Submissions use a short timeout; the long-poll deliberately has
// none, because the wait deadline is owned by the service.
type Client struct {
	baseURL string
	token   string
	submit  *http.Client
	poll    *http.Client
}

// NewClient returns a client for the gateway at baseURL.
func NewClient(baseURL, token string, submitTimeout time.Duration) *Client {
	if submitTimeout <= 0 {
		submitTimeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		submit:  &http.Client{Timeout: submitTimeout},
		poll:    &http.Client{},
	}
}

type submitResponse struct {
	RequestID string `json:"requestId"`
}

// Submit posts the prompt to the gateway and returns the request id to poll.
// Any non-2xx status is an error; the adapter must deny, never allow, on a
// failed submission for a gated tool.
func (c *Client) Submit(ctx context.Context, p *models.Prompt) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/plan/request", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.submit.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit prompt: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("submit prompt: gateway returned status %d", resp.StatusCode)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if sr.RequestID == "" {
		return "", fmt.Errorf("submit prompt: gateway returned empty request id")
	}
	return sr.RequestID, nil
}

// Await blocks on the gateway's long-poll route until the decision arrives or
// the service-side deadline produces a synthesized denial.
func (c *Client) Await(ctx context.Context, requestID string) (*models.PromptResponse, error) {
	u := c.baseURL + "/plan/response/" + url.PathEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	c.auth(req)

	resp, err := c.poll.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll decision: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("poll decision: gateway returned status %d", resp.StatusCode)
	}

	var pr models.PromptResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	return &pr, nil
}

func (c *Client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
