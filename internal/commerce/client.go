package commerce

import (
	"bytes"
	"context"
	"datapack/internal/config"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	restPrefix   = "/rest/V1"
	maxBodyBytes = 8 << 20
)

var tracer = otel.Tracer("datapack/internal/commerce")

// Client is a thin JSON client for the commerce platform REST API.
type Client struct {
	baseURL    string
	token      string
	requestID  string
	httpClient *retryablehttp.Client
}

// NewClient builds a client from cfg. Retries are off unless cfg.RetryMax is set.
func NewClient(cfg config.CommerceConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid commerce base URL %q", cfg.BaseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = slog.Default()
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		rc.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		requestID:  uuid.NewString(),
		httpClient: rc,
	}, nil
}

// RequestID is sent as X-Request-ID on every call from this client.
func (c *Client) RequestID() string {
	return c.requestID
}

func resolvePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if strings.HasPrefix(path, "/rest/") {
		return path
	}
	return restPrefix + path
}

// Get issues a GET and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post marshals body as JSON and returns the raw JSON response.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (_ json.RawMessage, err error) {
	path = resolvePath(path)

	ctx, span := tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	slog.DebugContext(ctx, "commerce request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.Int("http.response.status_code", resp.StatusCode),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			NotJSON:    len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw),
		}
	}
	if !json.Valid(raw) {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    "response was not valid JSON: " + snippet(raw),
			NotJSON:    true,
		}
	}
	return raw, nil
}

// ErrNotArray is wrapped when a list endpoint returns something other than a JSON array.
var ErrNotArray = errors.New("response is not an array")

func decodeList[T any](what string, raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%s: %w: %s", what, ErrNotArray, snippet(trimmed))
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return items, nil
}
