// API service for making authenticated HTTP requests to the marketplace backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

const (
	defaultBaseURL  = "https://api.marquee.test"
	requestIDHeader = "X-Request-ID"
)

// APIService makes requests to the marketplace REST API.
//
// Requests carry the bearer token (through an [oauth2.Transport]), an
// X-Request-ID header and wait on the rate limiter when one is configured.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewAPIService creates a new API service instance for the marketplace backend.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     shared.DiscardLogger(),
	}
}

// NewAuthenticatedAPIService builds an APIService from config, attaching the
// configured bearer token, timeout and rate limit.
func NewAuthenticatedAPIService(ctx context.Context, cfg shared.APIConfig, logger *log.Logger) *APIService {
	var client *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		client = oauth2.NewClient(ctx, ts)
	} else {
		client = &http.Client{}
	}
	client.Timeout = cfg.Timeout()

	a := NewAPIService(cfg.BaseURL, client).WithRateLimit(cfg.RateLimit)
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func (a *APIService) WithRateLimit(rps float64) *APIService {
	if rps > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	} else {
		a.limiter = nil
	}
	return a
}

// WithLogger sets the logger used for request tracing.
func (a *APIService) WithLogger(l *log.Logger) *APIService {
	if l != nil {
		a.logger = l
	}
	return a
}

// BaseURL returns the API root without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// URL joins path (and an optional query) onto the base URL.
func (a *APIService) URL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do sends req once. It waits on the rate limiter, stamps a request id and
// asks for JSON. Nothing is retried.
func (a *APIService) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			if req.Body != nil {
				req.Body.Close()
			}
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.NewString())
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	a.logger.Debug("request", "method", req.Method, "url", req.URL.String(), "request_id", req.Header.Get(requestIDHeader))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	a.logger.Debug("response", "status", resp.StatusCode, "request_id", req.Header.Get(requestIDHeader))
	return resp, nil
}

func (a *APIService) raw(ctx context.Context, method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.URL(path, nil), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.raw(ctx, http.MethodGet, path, nil, "")
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.raw(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// GetJSON performs a GET with query and decodes a 2xx body into out.
// Non-2xx statuses map onto the shared sentinel errors.
func (a *APIService) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL(path, query), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := StatusError(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// User is the signed-in account.
type User struct {
	ID    models.ID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role,omitempty"`
}

// Me returns the account the bearer token belongs to.
func (a *APIService) Me(ctx context.Context) (*User, error) {
	var envelope struct {
		Data *User `json:"data"`
		User
	}
	if err := a.GetJSON(ctx, "/api/user", nil, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return &envelope.User, nil
}
