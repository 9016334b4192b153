package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		client := New(nil)

		require.NotNil(t, client, "expected non-nil client")
		assert.Equal(t, DefaultTimeout, client.defaultTimeout, "expected default timeout")
		assert.Equal(t, defaultUserAgent, client.userAgent, "expected default user agent")
	})

	t.Run("custom config", func(t *testing.T) {
		cfg := Config{
			DefaultTimeout: 5 * time.Second,
			UserAgent:      "TestAgent/1.0",
		}
		client := New(&cfg)

		assert.Equal(t, 5*time.Second, client.defaultTimeout, "expected timeout 5s")
		assert.Equal(t, "TestAgent/1.0", client.userAgent, "expected user agent 'TestAgent/1.0'")
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		client := New(&Config{})

		assert.Equal(t, DefaultTimeout, client.defaultTimeout, "expected default timeout")
		assert.NotEmpty(t, client.userAgent, "expected non-empty user agent")
	})
}

func TestGet_BasicRequest(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method, "expected GET method")
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("success"))
	})

	client := newTestClient(t)

	resp, cancel, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err, "request failed")
	defer cancel()
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected status 200")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read body")
	assert.Equal(t, "success", string(body), "expected body 'success'")
}

func TestGet_Options(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "expected basic auth")
		assert.Equal(t, "camera", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "image/jpeg", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t)
	resp, cancel, err := client.Get(t.Context(), server.URL,
		WithBasicAuth("camera", "secret"),
		WithHeader("Accept", "image/jpeg"))
	require.NoError(t, err)
	defer cancel()
	defer closeResponseBody(t, resp)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGet_EmptyUsernameSkipsAuth(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
	})

	client := newTestClient(t)
	resp, cancel, err := client.Get(t.Context(), server.URL, WithBasicAuth("", "ignored"))
	require.NoError(t, err)
	defer cancel()
	closeResponseBody(t, resp)
}

func TestDo_DefaultTimeout(t *testing.T) {
	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, cancel, err := client.Get(context.Background(), server.URL)
	defer cancel()
	require.Error(t, err, "expected timeout error")
	assert.Less(t, time.Since(start), 5*time.Second, "default timeout should apply")
}

func TestDo_Hooks(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	client := newTestClient(t)
	var calls atomic.Int32
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, d time.Duration, err error) {
		calls.Add(1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	})

	resp, cancel, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	defer cancel()
	closeResponseBody(t, resp)
	assert.Equal(t, int32(1), calls.Load(), "after hook should be called once")
}

func TestDo_NilRequest(t *testing.T) {
	client := newTestClient(t)
	_, cancel, err := client.Do(t.Context(), nil)
	defer cancel()
	require.Error(t, err)
}
