package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/metrics"
)

// DefaultTimeout bounds a single backend call. Generation is slow.
const DefaultTimeout = 120 * time.Second

const maxResponseBytes = 20 << 20

// Client calls the backend over HTTP/JSON. Calls are never retried.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Service = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithToken sends a bearer token on every call.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l.Named("backend") }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[CharacterResponse](ctx, c, EndpointCharacter, req)
}

func (c *Client) GenerateCharacterImage(ctx context.Context, req CharacterImageRequest) (*CharacterImageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[CharacterImageResponse](ctx, c, EndpointCharacterImage, req)
}

func (c *Client) GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[OutlineResponse](ctx, c, EndpointOutline, req.withDefaults())
}

func (c *Client) ContinueChapter(ctx context.Context, req ContinueRequest) (*ContinueResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[ContinueResponse](ctx, c, EndpointContinue, req.withDefaults())
}

func (c *Client) AdjustStyle(ctx context.Context, req StyleRequest) (*StyleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[StyleResponse](ctx, c, EndpointRewrite, req)
}

func (c *Client) ConvertToScript(ctx context.Context, req ScriptRequest) (*ScriptResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[ScriptResponse](ctx, c, EndpointScript, req.withDefaults())
}

func (c *Client) GenerateStoryboard(ctx context.Context, req StoryboardRequest) (*StoryboardResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[StoryboardResponse](ctx, c, EndpointStoryboard, req.withDefaults())
}

func (c *Client) AnalyzeImage(ctx context.Context, req ImageAnalysisRequest) (*AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[AnalysisResponse](ctx, c, EndpointAnalyzeImage, req.withDefaults())
}

func (c *Client) AnalyzeVideo(ctx context.Context, req VideoAnalysisRequest) (*AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[AnalysisResponse](ctx, c, EndpointAnalyzeVideo, req.withDefaults())
}

func (c *Client) EnhancedSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[SearchResponse](ctx, c, EndpointSearch, req.withDefaults())
}

func (c *Client) HotTopics(ctx context.Context, req HotTopicsRequest) (*HotTopicsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return send[HotTopicsResponse](ctx, c, EndpointHotTopics, req.withDefaults())
}

func (c *Client) Inspiration(ctx context.Context, req InspirationRequest) (*InspirationResponse, error) {
	return send[InspirationResponse](ctx, c, EndpointInspiration, req)
}

func send[T any, P interface {
	*T
	enveloped
}](ctx context.Context, c *Client, endpoint Endpoint, req any) (*T, error) {
	resp := P(new(T))
	if err := c.call(ctx, endpoint, req, resp); err != nil {
		return nil, err
	}
	return (*T)(resp), nil
}

// call posts req to endpoint and decodes the reply into resp.
func (c *Client) call(ctx context.Context, endpoint Endpoint, req any, resp enveloped) error {
	start := time.Now()
	err := c.do(ctx, endpoint, req, resp)

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	metrics.BackendCalls.WithLabelValues(string(endpoint), result).Inc()
	metrics.BackendLatency.WithLabelValues(string(endpoint)).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("backend call failed",
			zap.String("endpoint", string(endpoint)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	c.logger.Debug("backend call", zap.String("endpoint", string(endpoint)), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Client) do(ctx context.Context, endpoint Endpoint, req any, resp enveloped) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint.Path(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", endpoint, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return &HTTPError{Status: httpResp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, resp); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", endpoint, err)
	}
	if env := resp.envelope(); !env.Success {
		return &BackendError{Endpoint: endpoint, Message: env.Error}
	}
	return nil
}
