package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BudgetDuration is the budget renewal window applied to every key
const BudgetDuration = "30d"

// KeyLimits are the rate and budget limits enforced by the proxy on a key
type KeyLimits struct {
	MaxBudget           *float64
	MaxParallelRequests int
	TPMLimit            int
	RPMLimit            int
}

// StatusError is returned when the proxy answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("litellm returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the proxy admin API
type Client interface {
	GenerateKey(ctx context.Context, alias string, limits KeyLimits) (string, error)
	UpdateKey(ctx context.Context, key string, limits KeyLimits) error
	DeleteKey(ctx context.Context, key string) error
	SpendLogs(ctx context.Context, apiKey string, limit, offset int) (json.RawMessage, error)
	Health(ctx context.Context) (int, error)
}

type client struct {
	baseURL      string
	adminKey     string
	httpClient   *http.Client
	healthClient *http.Client
}

// NewClient creates a proxy admin API client
func NewClient(baseURL, adminKey string, timeout, healthTimeout time.Duration) Client {
	return &client{
		baseURL:      baseURL,
		adminKey:     adminKey,
		httpClient:   &http.Client{Timeout: timeout},
		healthClient: &http.Client{Timeout: healthTimeout},
	}
}

type keyRequest struct {
	Key                 string   `json:"key,omitempty"`
	KeyAlias            string   `json:"key_alias,omitempty"`
	MaxBudget           *float64 `json:"max_budget,omitempty"`
	BudgetDuration      string   `json:"budget_duration"`
	MaxParallelRequests int      `json:"max_parallel_requests"`
	TPMLimit            int      `json:"tpm_limit"`
	RPMLimit            int      `json:"rpm_limit"`
}

func newKeyRequest(limits KeyLimits) keyRequest {
	return keyRequest{
		MaxBudget:           limits.MaxBudget,
		BudgetDuration:      BudgetDuration,
		MaxParallelRequests: limits.MaxParallelRequests,
		TPMLimit:            limits.TPMLimit,
		RPMLimit:            limits.RPMLimit,
	}
}

// GenerateKey creates a key aliased to the phone number
func (c *client) GenerateKey(ctx context.Context, alias string, limits KeyLimits) (string, error) {
	payload := newKeyRequest(limits)
	payload.KeyAlias = alias

	body, err := c.post(ctx, "/key/generate", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode key/generate response: %w", err)
	}
	if resp.Key == "" {
		return "", errors.New("key/generate response has no key")
	}
	return resp.Key, nil
}

// UpdateKey replaces the limits of an existing key
func (c *client) UpdateKey(ctx context.Context, key string, limits KeyLimits) error {
	payload := newKeyRequest(limits)
	payload.Key = key

	_, err := c.post(ctx, "/key/update", payload)
	return err
}

// DeleteKey removes a key from the proxy
func (c *client) DeleteKey(ctx context.Context, key string) error {
	_, err := c.post(ctx, "/key/delete", map[string][]string{"keys": {key}})
	return err
}

// SpendLogs returns the raw spend-log payload for a key
func (c *client) SpendLogs(ctx context.Context, apiKey string, limit, offset int) (json.RawMessage, error) {
	params := url.Values{}
	params.Add("api_key", apiKey)
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/spend/logs?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	body, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Health calls the proxy health endpoint and returns its HTTP status
func (c *client) Health(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return 0, err
	}
	c.authorize(req)

	resp, err := c.healthClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (c *client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(c.httpClient, req)
}

func (c *client) authorize(req *http.Request) {
	if c.adminKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminKey)
	}
}

func (c *client) do(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("litellm %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
