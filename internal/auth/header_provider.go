package auth

import (
	"net/http"

	"github.com/telemetryforge/agent/internal/defs"
)

const (
	authHeader        = "Authorization"
	contentTypeHeader = "Content-Type"
	userAgentHeader   = "User-Agent"

	contentTypeJSON = "application/json"
)

// HeaderProvider supplies the headers attached to every upstream request.
type HeaderProvider interface {
	GetAuthHeader() http.Header
}

type bearerTokenProvider struct {
	token     string
	userAgent string
}

// NewBearerTokenProvider returns a HeaderProvider carrying a static bearer
// token. An empty token produces no Authorization header, for endpoints
// that do not require auth.
func NewBearerTokenProvider(token, userAgent string) HeaderProvider {
	return &bearerTokenProvider{
		token:     token,
		userAgent: userAgent,
	}
}

func (p *bearerTokenProvider) GetAuthHeader() http.Header {
	header := http.Header{}
	header.Set(contentTypeHeader, contentTypeJSON)
	header.Set(userAgentHeader, p.userAgent)

	if p.token != defs.EmptyString {
		header.Set(authHeader, "Bearer "+p.token)
	}
	return header
}
