// API client for the Persona service
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/persona/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:5001/api"

// APIService issues requests against the Persona backend.
//
// Every request passes through the [Authorizer] (if one is set) before it is sent,
// and a 401 response is handed back to it to decide whether the request is retried.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *log.Logger

	mu   sync.RWMutex
	auth Authorizer
}

// Option configures an [APIService].
type Option func(*APIService)

// WithLimiter throttles outgoing requests.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *APIService) { a.limiter = l }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(a *APIService) { a.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(a *APIService) { a.userAgent = ua }
}

// NewAPIService creates a new API client for the given base URL.
func NewAPIService(baseURL string, client *http.Client, opts ...Option) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		userAgent:  "persona-cli",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	return a
}

// NewLimiter builds the request limiter described by the API config.
//
// A non-positive rate disables throttling.
func NewLimiter(cfg shared.APIConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// SetAuthorizer installs the credential hook. Passing nil makes every request anonymous.
func (a *APIService) SetAuthorizer(auth Authorizer) {
	a.mu.Lock()
	a.auth = auth
	a.mu.Unlock()
}

func (a *APIService) authorizer() Authorizer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.auth
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

// call describes one logical request. Retries rebuild the HTTP request from it.
type call struct {
	method    string
	path      string
	body      any  // []byte is sent verbatim, anything else is JSON encoded
	anonymous bool // never attach a credential or run the refresh protocol
}

// Get performs an authenticated GET and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.send(ctx, call{method: http.MethodGet, path: path}, 0)
}

// Post performs an authenticated POST with the given JSON body and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.send(ctx, call{method: http.MethodPost, path: path, body: data}, 0)
}

// send performs c. attempt counts how many times the refresh protocol already ran for it.
func (a *APIService) send(ctx context.Context, c call, attempt int) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := encodeBody(c.body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, c.method, a.baseURL+c.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	auth := a.authorizer()
	used := ""
	if !c.anonymous && auth != nil {
		used = auth.AttachCredential(req)
	}

	a.logger.Debug("request", "method", c.method, "path", c.path, "request_id", requestID, "attempt", attempt)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	if resp.StatusCode != http.StatusUnauthorized || c.anonymous {
		return apiResp, nil
	}

	if auth == nil || used == "" {
		return nil, fmt.Errorf("%w: %s %s requires a session", shared.ErrNotAuthenticated, c.method, c.path)
	}

	a.logger.Debug("credential rejected", "path", c.path, "request_id", requestID, "attempt", attempt)
	if err := auth.HandleUnauthorized(ctx, used, attempt); err != nil {
		return nil, err
	}

	return a.send(ctx, c, attempt+1)
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// envelope is the { success, data, error, message } wrapper every endpoint returns.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// do sends c and decodes the envelope into out (which may be nil).
//
// A non-2xx status or success:false becomes an [shared.APIError] carrying the server's message.
// When the payload is not nested under "data" the whole body is decoded into out.
func (a *APIService) do(ctx context.Context, c call, out any) (*APIResponse, error) {
	resp, err := a.send(ctx, c, 0)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		if !resp.OK() {
			return resp, &shared.APIError{StatusCode: resp.StatusCode, Message: shared.Truncate(strings.TrimSpace(string(resp.Body)), 200)}
		}
		if out == nil {
			return resp, nil
		}
		return resp, fmt.Errorf("%w: malformed response from %s: %v", shared.ErrAPIRequest, c.path, err)
	}

	if !resp.OK() || (env.Success != nil && !*env.Success) {
		return resp, &shared.APIError{StatusCode: resp.StatusCode, Message: env.text()}
	}

	if out == nil {
		return resp, nil
	}

	payload := []byte(env.Data)
	if len(payload) == 0 || string(payload) == "null" {
		payload = resp.Body
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return resp, fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, c.path, err)
	}

	return resp, nil
}

// IsStatus reports whether err is a server rejection with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *shared.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
