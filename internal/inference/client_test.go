package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/test-go/testify/assert"

	"github.com/telemetryforge/agent/internal/auth"
	"github.com/telemetryforge/agent/internal/defs"
	"github.com/telemetryforge/agent/internal/transport"
	"github.com/telemetryforge/agent/internal/util"
)

type mockUpstream struct {
	PostCalled   int
	LastPath     string
	LastBody     []byte
	LastHeader   http.Header
	NextResponse *transport.Response
	NextError    error
	Delay        time.Duration
}

func (m *mockUpstream) Post(ctx context.Context, path string, body []byte, header http.Header) (*transport.Response, error) {
	m.PostCalled++
	m.LastPath = path
	m.LastBody = body
	m.LastHeader = header
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, defs.ErrTransport().WithDetail("request deadline exceeded").WithCause(ctx.Err())
		}
	}
	if m.NextError != nil {
		return nil, m.NextError
	}
	return m.NextResponse, nil
}

func (m *mockUpstream) Close() {}

func newTestClient(up transport.Upstream) *Client {
	return &Client{
		endpoint: transport.Endpoint{Host: "llm.example.com", Port: 443, Path: defs.PathChatCompletions, UseTLS: true},
		upstream: up,
		auth:     auth.NewBearerTokenProvider("sk-test", "telemetryforge-test"),
		log:      util.NewTestLogger(),
	}
}

func TestClient_ChatCompletionSimple(t *testing.T) {
	// Arrange
	up := &mockUpstream{NextResponse: &transport.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"choices":[{"message":{"role":"assistant","content":"1: yes\n2: no"}}]}`),
	}}
	client := newTestClient(up)

	// Act
	resp, err := client.ChatCompletionSimple(context.Background(),
		"gpt-4o-mini", "Answer EXACTLY.", "Is this an error line?", 0)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "1: yes\n2: no", resp.Content)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, defs.PathChatCompletions, up.LastPath)
	assert.Equal(t, "Bearer sk-test", up.LastHeader.Get("Authorization"))

	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}
	assert.NoError(t, json.Unmarshal(up.LastBody, &body))
	assert.Equal(t, "gpt-4o-mini", body.Model)
	assert.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Equal(t, 0.0, body.Temperature)
	assert.Equal(t, 100, body.MaxTokens)
}

func TestClient_ChatCompletionSimple_requires_model(t *testing.T) {
	// Arrange
	up := &mockUpstream{}
	client := newTestClient(up)

	// Act
	_, err := client.ChatCompletionSimple(context.Background(), "", "prompt", "message", 0)

	// Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindValidation, defs.KindOf(err))
	assert.Equal(t, 0, up.PostCalled)
}

func TestClient_ChatCompletionSimple_timeout(t *testing.T) {
	// Arrange
	up := &mockUpstream{Delay: 500 * time.Millisecond}
	client := newTestClient(up)

	// Act
	start := time.Now()
	_, err := client.ChatCompletionSimple(context.Background(),
		"gpt-4o-mini", "prompt", "message", 20*time.Millisecond)

	// Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindTransport, defs.KindOf(err))
	assert.True(t, time.Since(start) < 500*time.Millisecond)
}

func TestClient_ChatCompletionSimple_http_error_keeps_status(t *testing.T) {
	// Arrange
	up := &mockUpstream{NextResponse: &transport.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       []byte(`{"error":{"message":"rate limited"}}`),
	}}
	client := newTestClient(up)

	// Act
	_, err := client.ChatCompletionSimple(context.Background(),
		"gpt-4o-mini", "prompt", "message", 0)

	// Assert
	assert.Error(t, err)
	ce, ok := err.(*defs.ClientError)
	assert.True(t, ok)
	assert.Equal(t, defs.ErrorKindProtocol, ce.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ce.Status)
}

func TestClient_ChatCompletionSimple_empty_choices(t *testing.T) {
	// Arrange
	up := &mockUpstream{NextResponse: &transport.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"choices":[]}`),
	}}
	client := newTestClient(up)

	// Act
	_, err := client.ChatCompletionSimple(context.Background(),
		"gpt-4o-mini", "prompt", "message", 0)

	// Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindMapping, defs.KindOf(err))
}
