package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/telemetryforge/agent/config"
	"github.com/telemetryforge/agent/internal/defs"
)

// Response is the outcome of one request/response exchange. A non-2xx
// status is not a transport failure; the caller decides what it means.
type Response struct {
	StatusCode int
	Body       []byte
}

// Upstream is the request/response exchange the protocol clients send over.
// Implementations pool connections; callers never see socket lifecycle.
// Closing the upstream fails any in-flight call with a transport error.
type Upstream interface {
	Post(ctx context.Context, path string, body []byte, header http.Header) (*Response, error)
	Close()
}

// Options carries the optional pieces of an upstream: a proxy, a TLS
// context and the per-call response timeout.
type Options struct {
	Proxy   *Proxy
	TLS     *tls.Config
	Timeout time.Duration
}

type httpUpstream struct {
	base   string
	client *http.Client
}

// NewUpstream builds a pooled HTTP upstream for the endpoint. TLS is wired
// when the endpoint scheme demands it; the proxy, when set, carries the
// whole exchange.
func NewUpstream(ep Endpoint, opts Options) Upstream {
	tp := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        8,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if ep.UseTLS {
		tp.TLSClientConfig = opts.TLS
	}
	if opts.Proxy != nil {
		proxyURL, _ := url.Parse(opts.Proxy.URL())
		tp.Proxy = http.ProxyURL(proxyURL)
	}

	scheme := "http"
	if ep.UseTLS {
		scheme = "https"
	}

	return &httpUpstream{
		base: fmt.Sprintf("%s://%s", scheme, ep.Addr()),
		client: &http.Client{
			Transport: tp,
			Timeout:   opts.Timeout,
		},
	}
}

func (u *httpUpstream) Post(ctx context.Context, path string, body []byte, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, defs.ErrTransport().WithDetail("failed to build request").WithCause(err)
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, defs.ErrTransport().WithDetail("request failed").WithCause(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, defs.ErrTransport().WithDetail("failed to read response").WithCause(err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: payload}, nil
}

func (u *httpUpstream) Close() {
	u.client.CloseIdleConnections()
}

// NewTLSConfig builds a tls.Config from the TLS config section. Unreadable
// material is a configuration error surfaced at client-creation time.
func NewTLSConfig(cfg *config.TLSConfig) (*tls.Config, error) {
	tlsConf := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CAFile != defs.EmptyString {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, defs.ErrConfig().WithDetail("failed to read CA file").WithCause(err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, defs.ErrConfig().WithDetail(fmt.Sprintf("no certificates found in %s", cfg.CAFile))
		}
		tlsConf.RootCAs = pool
	}

	if cfg.CertFile != defs.EmptyString || cfg.KeyFile != defs.EmptyString {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, defs.ErrConfig().WithDetail("failed to load client certificate").WithCause(err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}

	return tlsConf, nil
}
