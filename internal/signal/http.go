package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPChannel delegates marks to the gateway service over its signal routes.
// Used by short-lived hook processes that share no filesystem with the
// resolver (e.g. the resolver runs in a container).
type HTTPChannel struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPChannel returns a channel talking to the gateway at baseURL. The
// token is sent as a bearer credential when non-empty.
func NewHTTPChannel(baseURL, token string) *HTTPChannel {
	return &HTTPChannel{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type signalState struct {
	Present  bool `json:"present"`
	Consumed bool `json:"consumed"`
}

func (c *HTTPChannel) do(method, sessionID string) (signalState, error) {
	u := c.baseURL + "/signal/" + url.PathEscape(sessionID)
	req, err := http.NewRequest(method, u, bytes.NewReader(nil))
	if err != nil {
		return signalState{}, fmt.Errorf("build signal request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return signalState{}, fmt.Errorf("signal %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return signalState{}, fmt.Errorf("signal %s: unexpected status %d", method, resp.StatusCode)
	}
	var st signalState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return signalState{}, fmt.Errorf("decode signal response: %w", err)
	}
	return st, nil
}

func (c *HTTPChannel) Mark(sessionID string) error {
	_, err := c.do(http.MethodPost, sessionID)
	return err
}

func (c *HTTPChannel) Check(sessionID string) (bool, error) {
	st, err := c.do(http.MethodGet, sessionID)
	if err != nil {
		return false, err
	}
	return st.Present, nil
}

func (c *HTTPChannel) Consume(sessionID string) (bool, error) {
	st, err := c.do(http.MethodDelete, sessionID)
	if err != nil {
		return false, err
	}
	return st.Consumed, nil
}
