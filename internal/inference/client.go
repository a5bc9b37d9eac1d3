// Package inference is a minimal client for OpenAI-compatible chat
// completion endpoints. It covers exactly one shape of exchange: a system
// prompt plus one user message, deterministic settings, first choice back.
package inference

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/telemetryforge/agent/config"
	"github.com/telemetryforge/agent/internal/api"
	"github.com/telemetryforge/agent/internal/auth"
	"github.com/telemetryforge/agent/internal/defs"
	"github.com/telemetryforge/agent/internal/jsontok"
	"github.com/telemetryforge/agent/internal/transport"
	"github.com/telemetryforge/agent/internal/wire"
)

// Completion settings are fixed. Classification needs reproducible answers,
// so the temperature stays at zero, and the answer format is short lines,
// so a small completion budget is enough.
const (
	completionTemperature = 0.0
	completionMaxTokens   = 100
)

// Config carries what the completion client needs to reach its endpoint.
type Config struct {
	// Endpoint URL. The path defaults to /v1/chat/completions when the
	// URL carries none.
	Endpoint string
	// API key sent as a bearer token. Empty means no Authorization header.
	APIKey string
	// Optional forward proxy, http://host:port with an explicit port.
	Proxy string
	// TLS material for https endpoints.
	TLS config.TLSConfig

	UserAgent string
}

// Client issues chat completions. Safe for concurrent use.
type Client struct {
	endpoint transport.Endpoint
	upstream transport.Upstream
	auth     auth.HeaderProvider
	log      *zap.SugaredLogger
}

// NewClient validates cfg and returns a completion client.
func NewClient(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	endpoint, err := transport.ParseEndpoint(cfg.Endpoint, defs.PathChatCompletions)
	if err != nil {
		return nil, err
	}

	var opts transport.Options
	if cfg.Proxy != defs.EmptyString {
		proxy, err := transport.ParseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		opts.Proxy = &proxy
		log.Debugf("inference: requests go through proxy %s", proxy.URL())
	}
	if endpoint.UseTLS {
		tlsConf, err := transport.NewTLSConfig(&cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.TLS = tlsConf
	}

	return &Client{
		endpoint: endpoint,
		upstream: transport.NewUpstream(endpoint, opts),
		auth:     auth.NewBearerTokenProvider(cfg.APIKey, cfg.UserAgent),
		log:      log,
	}, nil
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.upstream.Close()
}

// ChatCompletionSimple sends one system prompt plus one user message and
// returns the first choice's content together with the HTTP status. A
// timeout of zero means no per-call deadline.
func (c *Client) ChatCompletionSimple(ctx context.Context, modelID, systemPrompt, userMessage string, timeout time.Duration) (*api.ChatResponse, error) {
	if modelID == defs.EmptyString {
		return nil, defs.ErrValidation().WithDetail("model id is required")
	}
	if systemPrompt == defs.EmptyString || userMessage == defs.EmptyString {
		return nil, defs.ErrValidation().WithDetail("system prompt and user message are required")
	}

	blob, err := wire.EncodeVariables(wire.Variables{
		"model": modelID,
		"messages": []interface{}{
			map[string]interface{}{"role": "system", "content": systemPrompt},
			map[string]interface{}{"role": "user", "content": userMessage},
		},
		"temperature": completionTemperature,
		"max_tokens":  completionMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	body, err := wire.BuildBody(blob)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.upstream.Post(ctx, c.endpoint.Path, body, c.auth.GetAuthHeader())
	if err != nil {
		return nil, err
	}
	// Deliberately strict: completion endpoints answer 200, not the 2xx range.
	if resp.StatusCode != http.StatusOK {
		c.log.Debugf("inference: completion failed with status %d: %s", resp.StatusCode, resp.Body)
		return nil, defs.ErrProtocol(resp.StatusCode)
	}

	content, err := extractContent(resp.Body)
	if err != nil {
		return nil, err
	}
	return &api.ChatResponse{Content: content, StatusCode: resp.StatusCode}, nil
}

// extractContent pulls choices[0].message.content out of the response.
func extractContent(buf []byte) (string, error) {
	toks, err := jsontok.Parse(buf)
	if err != nil {
		return defs.EmptyString, err
	}
	if len(toks) == 0 || toks[0].Type != jsontok.TypeObject {
		return defs.EmptyString, defs.ErrParse(0).WithDetail("response root is not an object")
	}

	choices, ok := jsontok.ObjectKey(buf, toks, 0, "choices")
	if !ok || toks[choices].Type != jsontok.TypeArray || toks[choices].Size == 0 {
		return defs.EmptyString, defs.ErrMapping().WithDetail("response has no choices")
	}
	first, ok := jsontok.ArrayElem(toks, choices, 0)
	if !ok || toks[first].Type != jsontok.TypeObject {
		return defs.EmptyString, defs.ErrMapping().WithDetail("choices[0] is not an object")
	}
	message, ok := jsontok.ObjectKey(buf, toks, first, "message")
	if !ok || toks[message].Type != jsontok.TypeObject {
		return defs.EmptyString, defs.ErrMapping().WithDetail("choices[0] has no message object")
	}
	content, ok := jsontok.ObjectKey(buf, toks, message, "content")
	if !ok || toks[content].Type != jsontok.TypeString {
		return defs.EmptyString, defs.ErrMapping().WithDetail("message has no content string")
	}
	return jsontok.Unquote(buf, toks[content])
}
