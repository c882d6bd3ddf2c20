// Package cohere is a thin, resilient client for Cohere's chat and
// embedding APIs, built on the shared transport, resilience, and
// credential substrate. Chat supports both a unary response and a
// pull-based server-sent-events stream of incremental tokens.
package cohere

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-sdkcore/credential"
	"github.com/goliatone/go-sdkcore/resilience"
	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/transport"
)

const (
	// DefaultBaseURL is Cohere's production API root.
	DefaultBaseURL   = "https://api.cohere.com"
	defaultUserAgent = "go-sdkcore-cohere/1"
)

// Config wires a Client's dependencies. Credential is typically
// credential.NewStatic(apiKey) or credential.NewEnv("CO_API_KEY").
type Config struct {
	BaseURL      string
	Credential   credential.Provider
	HTTP         transport.Doer
	Orchestrator *resilience.Orchestrator
	UserAgent    string
}

// Client is a Cohere API client.
type Client struct {
	baseURL      string
	credential   credential.Provider
	transport    *transport.Client
	orchestrator *resilience.Orchestrator
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Credential == nil {
		return nil, sdkerr.New(sdkerr.KindConfiguration, "providers/cohere: credential provider is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:      baseURL,
		credential:   cfg.Credential,
		transport:    transport.NewClient(cfg.HTTP, userAgent),
		orchestrator: cfg.Orchestrator,
	}, nil
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest drives a chat completion call.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse is a completed (non-streaming) chat response.
type ChatResponse struct {
	ID      string  `json:"id"`
	Message Message `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// EmbedRequest drives an embedding call.
type EmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type,omitempty"`
}

// EmbedResponse carries one embedding vector per input text, in order.
type EmbedResponse struct {
	ID         string      `json:"id"`
	Embeddings [][]float64 `json:"embeddings"`
}

func (c *Client) authHeaders(ctx context.Context) (map[string]string, error) {
	cred, err := c.credential.Get(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": "Bearer " + cred.Value,
		"Content-Type":  "application/json",
	}, nil
}

// Chat runs a single, non-streaming chat completion.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return ChatResponse{}, sdkerr.New(sdkerr.KindValidation, "providers/cohere: model is required")
	}
	if len(req.Messages) == 0 {
		return ChatResponse{}, sdkerr.New(sdkerr.KindValidation, "providers/cohere: at least one message is required")
	}
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return ChatResponse{}, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ChatResponse{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/cohere: encode chat request", err)
	}

	httpReq := transport.Request{
		Method:  "POST",
		URL:     c.baseURL + "/v2/chat",
		Headers: headers,
		Body:    body,
	}
	res, err := resilience.Do(ctx, c.orchestrator, func(ctx context.Context) (transport.Response, error) {
		return c.transport.Send(ctx, httpReq)
	})
	if err != nil {
		return ChatResponse{}, err
	}
	c.orchestrator.ReconcileHeaders(res.Headers)

	var out ChatResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return ChatResponse{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/cohere: decode chat response", err)
	}
	return out, nil
}

// ChatStreamEvent is one incremental token or lifecycle marker from a
// streaming chat completion.
type ChatStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Message Message `json:"message"`
	} `json:"delta"`
}

// ChatStream is a pull-based iterator over a streaming chat completion's
// incremental events.
type ChatStream struct {
	inner *transport.EventStream
	event ChatStreamEvent
}

// ChatStream starts a streaming chat completion. The caller must call Close
// on the returned stream when done.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) (*ChatStream, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, sdkerr.New(sdkerr.KindValidation, "providers/cohere: model is required")
	}
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	wire := struct {
		ChatRequest
		Stream bool `json:"stream"`
	}{ChatRequest: req, Stream: true}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.KindSerialization, "providers/cohere: encode chat stream request", err)
	}

	httpReq := transport.Request{
		Method:  "POST",
		URL:     c.baseURL + "/v2/chat",
		Headers: headers,
		Body:    body,
	}
	inner, err := c.transport.Stream(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	return &ChatStream{inner: inner}, nil
}

// Next advances the stream, returning false when it has ended or failed.
func (s *ChatStream) Next() bool {
	if s == nil {
		return false
	}
	for s.inner.Next() {
		raw := s.inner.Event().Data
		if strings.TrimSpace(raw) == "" || raw == "[DONE]" {
			continue
		}
		var event ChatStreamEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		s.event = event
		return true
	}
	return false
}

// Event returns the event most recently parsed by Next.
func (s *ChatStream) Event() ChatStreamEvent {
	if s == nil {
		return ChatStreamEvent{}
	}
	return s.event
}

// Err returns the error that stopped the stream, if any.
func (s *ChatStream) Err() error {
	if s == nil {
		return nil
	}
	return s.inner.Err()
}

// Close releases the underlying HTTP response body.
func (s *ChatStream) Close() error {
	if s == nil {
		return nil
	}
	return s.inner.Close()
}

// Embed computes embedding vectors for a batch of input texts.
func (c *Client) Embed(ctx context.Context, req EmbedRequest) (EmbedResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return EmbedResponse{}, sdkerr.New(sdkerr.KindValidation, "providers/cohere: model is required")
	}
	if len(req.Texts) == 0 {
		return EmbedResponse{}, sdkerr.New(sdkerr.KindValidation, "providers/cohere: at least one input text is required")
	}
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return EmbedResponse{}, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return EmbedResponse{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/cohere: encode embed request", err)
	}

	httpReq := transport.Request{
		Method:  "POST",
		URL:     c.baseURL + "/v2/embed",
		Headers: headers,
		Body:    body,
	}
	res, err := resilience.Do(ctx, c.orchestrator, func(ctx context.Context) (transport.Response, error) {
		return c.transport.Send(ctx, httpReq)
	})
	if err != nil {
		return EmbedResponse{}, err
	}
	c.orchestrator.ReconcileHeaders(res.Headers)

	var out EmbedResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return EmbedResponse{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/cohere: decode embed response", err)
	}
	return out, nil
}
