// Package transport carries every SDK client's unary and streaming HTTP
// traffic: request building, header conventions, body-size limiting, and
// response error classification.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-sdkcore/sdkerr"
)

const (
	defaultClientTimeout         = 30 * time.Second
	defaultResponseBodyLimit     int64 = 10 << 20 // 10 MiB
	headerUserAgent                    = "User-Agent"
	headerContentType                  = "Content-Type"
	headerAccept                       = "Accept"
)

// Doer is the subset of *http.Client this package depends on, so callers can
// substitute instrumented or mocked transports.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is a provider-agnostic description of an outbound HTTP call.
type Request struct {
	Method               string
	URL                  string
	Query                map[string]string
	Headers              map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

// Response is the normalized result of a unary call.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Client sends unary and streaming HTTP requests on behalf of an SDK,
// applying a consistent User-Agent and response-size ceiling.
type Client struct {
	Doer                 Doer
	UserAgent            string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

// NewClient builds a Client; a nil doer falls back to a sane-default
// *http.Client.
func NewClient(doer Doer, userAgent string) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{
		Doer:                 doer,
		UserAgent:            userAgent,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

// Send executes a single request/response round trip, classifying responses
// with status 400 or above and transport failures into *sdkerr.Error.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	if c == nil || c.Doer == nil {
		return Response{}, sdkerr.New(sdkerr.KindConfiguration, "transport client requires an http doer")
	}
	httpReq, cancel, err := c.build(ctx, req)
	defer cancel()
	if err != nil {
		return Response{}, err
	}

	started := time.Now()
	httpRes, err := c.Doer.Do(httpReq)
	if err != nil {
		if ctxErr := sdkerr.FromContext(ctx); ctxErr != nil {
			return Response{}, ctxErr
		}
		return Response{}, sdkerr.ClassifyNetworkError(err)
	}
	defer httpRes.Body.Close()

	limit := req.MaxResponseBodyBytes
	if limit <= 0 {
		limit = c.MaxResponseBodyBytes
	}
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return Response{}, sdkerr.Wrap(sdkerr.KindNetwork, "reading response body", err)
	}
	if int64(len(body)) > limit {
		return Response{}, sdkerr.New(sdkerr.KindProtocol, "response body exceeds configured size limit").
			WithMetadata(map[string]any{"limit_bytes": limit})
	}

	duration := time.Since(started)
	if httpRes.StatusCode >= 400 {
		return Response{StatusCode: httpRes.StatusCode, Headers: httpRes.Header, Body: body, Duration: duration},
			sdkerr.Classify(httpRes.StatusCode, body, httpRes.Header)
	}

	return Response{
		StatusCode: httpRes.StatusCode,
		Headers:    httpRes.Header,
		Body:       body,
		Duration:   duration,
	}, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, context.CancelFunc, error) {
	cancel := func() {}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	parsed, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || parsed.String() == "" {
		return nil, cancel, sdkerr.Wrap(sdkerr.KindConfiguration, "invalid request url", err)
	}

	query := parsed.Query()
	for k, v := range req.Query {
		if strings.TrimSpace(k) == "" {
			continue
		}
		query.Set(k, v)
	}
	parsed.RawQuery = query.Encode()

	reqCtx := ctx
	if req.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, parsed.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, cancel, sdkerr.Wrap(sdkerr.KindConfiguration, "building http request", err)
	}

	if c.UserAgent != "" {
		httpReq.Header.Set(headerUserAgent, c.UserAgent)
	}
	if len(req.Body) > 0 {
		httpReq.Header.Set(headerContentType, "application/json")
	}
	httpReq.Header.Set(headerAccept, "application/json")
	for k, v := range c.DefaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, cancel, nil
}
