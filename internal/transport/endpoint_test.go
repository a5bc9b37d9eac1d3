package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telemetryforge/agent/internal/defs"
)

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		expected Endpoint
	}{
		{
			name:     "https with default port and path",
			raw:      "https://api.fluent.do",
			expected: Endpoint{Host: "api.fluent.do", Port: 443, Path: defs.PathGraphQL, UseTLS: true},
		},
		{
			name:     "http with default port",
			raw:      "http://localhost",
			expected: Endpoint{Host: "localhost", Port: 80, Path: defs.PathGraphQL},
		},
		{
			name:     "explicit port and path",
			raw:      "https://api.fluent.do:8443/api/graphql",
			expected: Endpoint{Host: "api.fluent.do", Port: 8443, Path: "/api/graphql", UseTLS: true},
		},
		{
			name:     "path kept even when empty segment",
			raw:      "http://localhost:4000/",
			expected: Endpoint{Host: "localhost", Port: 4000, Path: "/"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ep, err := ParseEndpoint(tc.raw, defs.PathGraphQL)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ep)
		})
	}
}

func TestParseEndpoint_errors(t *testing.T) {
	for _, raw := range []string{
		"ftp://api.fluent.do",
		"api.fluent.do",
		"https://",
		"https://host:notaport",
		"https://host:0",
		"https://host:70000",
	} {
		_, err := ParseEndpoint(raw, defs.PathGraphQL)
		assert.Error(t, err, raw)
		assert.Equal(t, defs.ErrorKindConfig, defs.KindOf(err), raw)
	}
}

func TestEndpoint_Addr(t *testing.T) {
	ep := Endpoint{Host: "api.fluent.do", Port: 443}
	assert.Equal(t, "api.fluent.do:443", ep.Addr())
}

func TestParseProxy(t *testing.T) {
	//Act
	proxy, err := ParseProxy("http://proxy.local:3128")

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, Proxy{Host: "proxy.local", Port: 3128}, proxy)
	assert.Equal(t, "http://proxy.local:3128", proxy.URL())
}

func TestParseProxy_errors(t *testing.T) {
	for _, raw := range []string{
		"https://proxy.local:3128", // only plain http proxies
		"proxy.local:3128",
		"http://proxy.local", // port is mandatory
		"http://:3128",
		"http://proxy.local:abc",
	} {
		_, err := ParseProxy(raw)
		assert.Error(t, err, raw)
		assert.Equal(t, defs.ErrorKindConfig, defs.KindOf(err), raw)
	}
}
