// Package transport provides the upstream connection the protocol clients
// send their requests over: a pooled, optionally TLS-wrapped, optionally
// proxied HTTP exchange. The clients never manage socket lifecycle directly.
package transport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/telemetryforge/agent/internal/defs"
)

// Endpoint is the decomposed form of a configured endpoint URL.
type Endpoint struct {
	Host   string
	Port   int
	Path   string
	UseTLS bool
}

// Addr returns the host:port pair of the endpoint.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Proxy is the decomposed form of a configured proxy URL.
type Proxy struct {
	Host string
	Port int
}

// URL rebuilds the proxy URL for the HTTP transport.
func (p Proxy) URL() string {
	return fmt.Sprintf("http://%s:%d", p.Host, p.Port)
}

// ParseEndpoint splits an http(s) URL into host, port, path and TLS flag.
// defaultPath is used when the URL carries no path of its own; default ports
// are 80 and 443 by scheme. Anything other than http or https fails with a
// configuration error.
func ParseEndpoint(raw, defaultPath string) (Endpoint, error) {
	var ep Endpoint

	var rest string
	switch {
	case strings.HasPrefix(raw, "https://"):
		ep.UseTLS = true
		ep.Port = 443
		rest = raw[len("https://"):]
	case strings.HasPrefix(raw, "http://"):
		ep.Port = 80
		rest = raw[len("http://"):]
	default:
		return Endpoint{}, defs.ErrConfig().WithDetail(fmt.Sprintf("invalid endpoint URL: %s", raw))
	}

	hostport := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostport = rest[:i]
		ep.Path = rest[i:]
	} else {
		ep.Path = defaultPath
	}

	ep.Host = hostport
	if i := strings.IndexByte(hostport, ':'); i >= 0 {
		ep.Host = hostport[:i]
		port, err := strconv.Atoi(hostport[i+1:])
		if err != nil || port <= 0 || port > 65535 {
			return Endpoint{}, defs.ErrConfig().WithDetail(fmt.Sprintf("invalid endpoint port: %s", raw))
		}
		ep.Port = port
	}

	if ep.Host == defs.EmptyString {
		return Endpoint{}, defs.ErrConfig().WithDetail(fmt.Sprintf("invalid endpoint URL: %s", raw))
	}

	return ep, nil
}

// ParseProxy splits a proxy URL into host and port. Only the
// http://host:port form is accepted and the port is mandatory.
func ParseProxy(raw string) (Proxy, error) {
	if !strings.HasPrefix(raw, "http://") {
		return Proxy{}, defs.ErrConfig().WithDetail(fmt.Sprintf("invalid proxy format: %s", raw))
	}

	hostport := strings.TrimSuffix(raw[len("http://"):], "/")
	i := strings.IndexByte(hostport, ':')
	if i < 0 {
		return Proxy{}, defs.ErrConfig().WithDetail(fmt.Sprintf("proxy port is required: %s", raw))
	}

	port, err := strconv.Atoi(hostport[i+1:])
	if err != nil || port <= 0 || port > 65535 {
		return Proxy{}, defs.ErrConfig().WithDetail(fmt.Sprintf("invalid proxy port: %s", raw))
	}

	host := hostport[:i]
	if host == defs.EmptyString {
		return Proxy{}, defs.ErrConfig().WithDetail(fmt.Sprintf("invalid proxy format: %s", raw))
	}

	return Proxy{Host: host, Port: port}, nil
}
