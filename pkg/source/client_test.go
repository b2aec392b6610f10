package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(opts ...ClientOption) *Client {
	return NewClient(append([]ClientOption{WithBaseDelay(time.Millisecond)}, opts...)...)
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "versions-check-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"acme/tools"}`))
	}))
	defer server.Close()

	var got struct {
		Name string `json:"name"`
	}
	err := newTestClient(WithUserAgent("versions-check-test")).GetJSON(context.Background(), server.URL+"/p2/acme/tools.json", &got)
	require.NoError(t, err)
	assert.Equal(t, "acme/tools", got.Name)
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient()
	for i := 0; i < 7; i++ {
		var v map[string]any
		err := c.GetJSON(context.Background(), server.URL+"/missing", &v)
		assert.True(t, errors.Is(err, ErrNotFound))
	}
	assert.Equal(t, int32(7), hits.Load())
	for _, state := range c.BreakerStates() {
		assert.Equal(t, "closed", state, "404s must not trip the breaker")
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var v struct {
		OK bool `json:"ok"`
	}
	err := newTestClient(WithMaxRetries(3)).GetJSON(context.Background(), server.URL, &v)
	require.NoError(t, err)
	assert.True(t, v.OK)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_ClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	var v map[string]any
	err := newTestClient(WithMaxRetries(3)).GetJSON(context.Background(), server.URL, &v)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "nope", httpErr.Body)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(WithMaxRetries(0))
	for i := 0; i < 5; i++ {
		var v map[string]any
		require.Error(t, c.GetJSON(context.Background(), server.URL, &v))
	}
	require.Equal(t, int32(5), hits.Load())

	var v map[string]any
	err := c.GetJSON(context.Background(), server.URL, &v)
	assert.True(t, errors.Is(err, ErrUpstreamDown))
	assert.Equal(t, int32(5), hits.Load(), "an open breaker must not reach the server")
	assert.Equal(t, map[string]string{hostOf(server.URL): "open"}, c.BreakerStates())
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	var v map[string]any
	err := newTestClient().GetJSON(context.Background(), server.URL, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}
