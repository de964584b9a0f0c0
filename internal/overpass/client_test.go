package overpass

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientQuerySuccess(t *testing.T) {
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithSleep(func(time.Duration) {}))
	body, err := c.Query(context.Background(), `[out:json];out body geom;`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"elements":[]}`, string(body))
	assert.Equal(t, `[out:json];out body geom;`, gotBody.Load())
}

func TestClientRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	var slept atomic.Int32
	c := NewClient(srv.URL, WithSleep(func(time.Duration) { slept.Add(1) }))
	// Loosen the limiter so the retries don't take seconds.
	c.limiter.SetLimit(1000)

	body, err := c.Query(context.Background(), "query")
	require.NoError(t, err)
	assert.JSONEq(t, `{"elements":[]}`, string(body))
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, int32(3), slept.Load())
}

func TestClientTerminalStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithSleep(func(time.Duration) {}))
	_, err := c.Query(context.Background(), "query")
	assert.ErrorContains(t, err, "status 400")
}

func TestClientContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL, WithSleep(func(time.Duration) { cancel() }))
	c.limiter.SetLimit(1000)

	_, err := c.Query(ctx, "query")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithSleep(func(time.Duration) {}))
	_, err := c.Query(context.Background(), "query")
	assert.Error(t, err)
}
