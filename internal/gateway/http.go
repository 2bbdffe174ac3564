package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/models/dto"
)

// RequestError describes a failed read against one endpoint.
type RequestError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *RequestError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	default:
		return e.Endpoint + ": request failed"
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

func wrapEndpoint(name string, err error) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Endpoint == "" {
			reqErr.Endpoint = name
		}
		return reqErr
	}
	return &RequestError{Endpoint: name, Err: err}
}

// envelope mirrors the API's response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HTTPClient talks to the field-data API over HTTP with bearer tokens.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL. Timeouts are the transport's.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Get issues an authenticated GET and decodes the envelope's data into out.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values, token string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &RequestError{Endpoint: path, Err: err}
	}
	return c.do(req, path, token, out)
}

// Login exchanges credentials for a token.
func (c *HTTPClient) Login(ctx context.Context, identifier, password string) (dto.LoginResponse, error) {
	var out dto.LoginResponse
	err := c.post(ctx, "/login", "", dto.LoginRequest{Identifier: identifier, Password: password}, &out)
	return out, err
}

// CreateUser registers a user on behalf of the token's holder.
func (c *HTTPClient) CreateUser(ctx context.Context, token string, req dto.RegisterRequest) (models.SystemUser, error) {
	var out models.Account
	if err := c.post(ctx, "/register", token, req, &out); err != nil {
		return models.SystemUser{}, err
	}
	return out.SystemUser, nil
}

func (c *HTTPClient) post(ctx context.Context, path, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &RequestError{Endpoint: path, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &RequestError{Endpoint: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, token, out)
}

func (c *HTTPClient) do(req *http.Request, path, token string, out any) error {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Endpoint: path, Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return &RequestError{Endpoint: path, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &RequestError{Endpoint: path, Status: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
