package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/telemetryforge/agent/internal/defs"
)

func testEndpoint(t *testing.T, srv *httptest.Server) Endpoint {
	t.Helper()
	hostport := strings.TrimPrefix(srv.URL, "http://")
	host, portStr, found := strings.Cut(hostport, ":")
	assert.True(t, found)
	port, err := strconv.Atoi(portStr)
	assert.NoError(t, err)
	return Endpoint{Host: host, Port: port, Path: defs.PathGraphQL}
}

func TestUpstream_Post(t *testing.T) {
	//Arrange
	var gotPath, gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	sut := NewUpstream(testEndpoint(t, srv), Options{})
	defer sut.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer tok")
	header.Set("Content-Type", "application/json")

	//Act
	resp, err := sut.Post(context.Background(), defs.PathGraphQL, []byte(`{"query":"{}"}`), header)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"data":{}}`, string(resp.Body))
	assert.Equal(t, defs.PathGraphQL, gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"query":"{}"}`, string(gotBody))
}

func TestUpstream_Post_non_2xx_is_not_a_transport_error(t *testing.T) {
	//Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	sut := NewUpstream(testEndpoint(t, srv), Options{})
	defer sut.Close()

	//Act
	resp, err := sut.Post(context.Background(), "/x", nil, nil)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "boom", string(resp.Body))
}

func TestUpstream_Post_connection_refused(t *testing.T) {
	//Arrange, a server that is already gone
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ep := testEndpoint(t, srv)
	srv.Close()

	sut := NewUpstream(ep, Options{})
	defer sut.Close()

	//Act
	_, err := sut.Post(context.Background(), "/x", nil, nil)

	//Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindTransport, defs.KindOf(err))
}

func TestUpstream_Post_honors_context_deadline(t *testing.T) {
	//Arrange
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	sut := NewUpstream(testEndpoint(t, srv), Options{})
	defer sut.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	//Act
	_, err := sut.Post(ctx, "/x", nil, nil)

	//Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindTransport, defs.KindOf(err))
}
