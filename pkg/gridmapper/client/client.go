// Package client is a Go client for the gridmapper HTTP API.
//
//	c, err := client.New("http://localhost:8080", client.WithAPIKey(key))
//	res, err := c.Generate(ctx, &models.GenerationRequest{
//	    Callsign:    "W1ABC",
//	    Continents:  []string{"EU"},
//	    FileContent: base64.StdEncoding.EncodeToString(logBytes),
//	    FileName:    "w1abc.cbr",
//	})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"evalgo.org/gridmapper/internal/validation"
	"evalgo.org/gridmapper/models"
)

// DefaultTimeout leaves room for the server's own generation deadline.
const DefaultTimeout = 5 * time.Minute

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer JWT.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Error is a non-result error response from the API.
type Error struct {
	StatusCode  int               `json:"-"`
	Message     string            `json:"error"`
	Details     string            `json:"details,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// Generate submits a log for map generation. Generation failures the server
// reports in a result body (no contacts, storage errors) come back as a
// result with Success false and a nil error.
func (c *Client) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	status, data, err := c.post(ctx, "/api/generate-map", body)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusUnprocessableEntity, http.StatusBadGateway:
	case http.StatusInternalServerError:
		// a generation result or a plain API error
		var res models.GenerationResult
		if json.Unmarshal(data, &res) == nil && res.LogOutput != "" {
			return &res, nil
		}
		return nil, decodeError(status, data)
	default:
		return nil, decodeError(status, data)
	}

	var res models.GenerationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &res, nil
}

// Validate checks a request document on the server without generating maps.
func (c *Client) Validate(ctx context.Context, document []byte) (*validation.ValidationResult, error) {
	status, data, err := c.post(ctx, "/api/validate", document)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusBadRequest {
		return nil, decodeError(status, data)
	}

	var result validation.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to connect to API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func decodeError(status int, data []byte) error {
	apiErr := &Error{StatusCode: status}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
		apiErr.Details = strings.TrimSpace(string(data))
	}
	return apiErr
}
