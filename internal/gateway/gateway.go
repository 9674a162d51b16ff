// Package gateway provides the HTTP client used to talk to the citizen
// services backend.
package gateway

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
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
	"github.com/sirosfoundation/go-citizen-client/internal/endpoint"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
)

// Backend endpoints
const (
	PathLogin        = "/api/auth/login"
	PathMe           = "/api/auth/me"
	PathRegister     = "/api/auth/register"
	PathHealth       = "/api/health"
	PathApplications = "/applications/"
)

const maxResponseBytes = 1 << 20

// Gateway issues requests against the primary backend candidate and
// classifies failures into the domain error taxonomy.
type Gateway struct {
	baseURL       string
	timeout       time.Duration
	healthTimeout time.Duration
	httpClient    *http.Client
	logger        *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a new Gateway. Request logging is only installed for
// development builds.
func New(resolver *endpoint.Resolver, cfg *config.Config, logger *zap.Logger) *Gateway {
	logger = logger.Named("gateway")

	transport := http.DefaultTransport
	if cfg.IsDevelopment() {
		transport = &loggingTransport{next: transport, logger: logger}
	}

	return &Gateway{
		baseURL:       resolver.Primary(),
		timeout:       cfg.API.RequestTimeout(),
		healthTimeout: cfg.API.ProbeTimeout(),
		httpClient:    &http.Client{Transport: transport},
		logger:        logger,
	}
}

// BaseURL returns the base URL requests are sent to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// SetAuthToken sets the bearer token for subsequent requests. An empty
// token removes the Authorization header. Locally minted demo tokens are
// never attached.
func (g *Gateway) SetAuthToken(token string) {
	if domain.IsDemoToken(token) {
		g.logger.Warn("Refusing to attach a demo token to backend requests")
		token = ""
	}

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
}

// HasAuthToken reports whether an Authorization header is being sent.
func (g *Gateway) HasAuthToken() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != ""
}

// Login exchanges credentials for an access token.
func (g *Gateway) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	req := domain.LoginRequest{Email: email, Password: password}
	if err := g.do(ctx, http.MethodPost, PathLogin, req, &resp, g.timeout); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response did not contain an access token")
	}
	return &resp, nil
}

// Me fetches the profile of the authenticated user. It returns a nil
// profile when the backend answers without a body.
func (g *Gateway) Me(ctx context.Context) (*domain.UserProfile, error) {
	var raw json.RawMessage
	if err := g.do(ctx, http.MethodGet, PathMe, nil, &raw, g.timeout); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	var user domain.UserProfile
	if err := json.Unmarshal(trimmed, &user); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &user, nil
}

// Register creates a new citizen account.
func (g *Gateway) Register(ctx context.Context, req *domain.RegisterRequest) error {
	return g.do(ctx, http.MethodPost, PathRegister, req, nil, g.timeout)
}

// Health probes the backend with the short health timeout.
func (g *Gateway) Health(ctx context.Context) error {
	return g.do(ctx, http.MethodGet, PathHealth, nil, nil, g.healthTimeout)
}

// Applications returns the raw application list for collaborators.
func (g *Gateway) Applications(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := g.do(ctx, http.MethodGet, PathApplications, nil, &raw, g.timeout); err != nil {
		return nil, err
	}
	return raw, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return ClassifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if serr := ClassifyStatus(resp.StatusCode, nil, path); serr != nil {
			return serr
		}
		// the status line arrived, so this is not a missing response
		return &domain.ServerError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response body: %v", err)}
	}

	if err := ClassifyStatus(resp.StatusCode, respBody, path); err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = respBody
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// loggingTransport logs method, URL and status of every exchange. Headers
// and bodies are never logged.
type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	target := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	t.logger.Info("API request", zap.String("method", req.Method), zap.String("url", target))

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Info("API request failed",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	t.logger.Info("API response",
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// trimPath keeps error messages short for unknown endpoints.
func trimPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
