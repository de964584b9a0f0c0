package workspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/mapscope/internal/geo"
	"github.com/MeKo-Tech/mapscope/internal/overpass"
)

const overpassTwoHouses = `{
  "elements": [
    {"type": "way", "id": 1, "tags": {"building": "house"}, "geometry": [
      {"lat": 52.196, "lon": 0.121}, {"lat": 52.196, "lon": 0.122},
      {"lat": 52.197, "lon": 0.122}, {"lat": 52.197, "lon": 0.121}]},
    {"type": "way", "id": 2, "tags": {"building": "house"}, "geometry": [
      {"lat": 52.201, "lon": 0.140}, {"lat": 52.201, "lon": 0.141},
      {"lat": 52.202, "lon": 0.141}, {"lat": 52.202, "lon": 0.140}]}
  ]
}`

// newTestContext wires a context against a mock Overpass endpoint.
func newTestContext(t *testing.T, handler http.HandlerFunc, opts ...Option) *Context {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := overpass.NewClient(srv.URL,
		overpass.WithSleep(func(time.Duration) {}),
		overpass.WithRateLimit(1000))
	opts = append([]Option{WithOverpassClient(client)}, opts...)
	return NewContext(t.TempDir(), opts...)
}

func TestQueueRequestLifecycle(t *testing.T) {
	ctx := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(overpassTwoHouses))
	})

	ctx.CreateWorkspace("cambridge", testSelection())

	req := NewRequest(NewOverpassKind(`[out:json];way["building"="house"];out body geom;`))
	require.NoError(t, ctx.QueueRequest(req))

	assert.True(t, ctx.Active().HasRequest(req.ID))
	require.NoError(t, ctx.Worker().Drain(context.Background()))

	loaded, ok := ctx.LoadedRequest(req.ID)
	require.True(t, ok)
	assert.NotEmpty(t, loaded.RawData)
	assert.False(t, loaded.LastQuery.IsZero())

	// Completed but not yet processed.
	require.Len(t, ctx.UnrenderedRequests(), 1)
	assert.Empty(t, ctx.RenderedRequests())

	ctx.ProcessTick()

	rendered := ctx.RenderedRequests()
	require.Len(t, rendered, 1)
	assert.Equal(t, 2, rendered[0].FeatureCount())
	assert.Empty(t, ctx.UnrenderedRequests())
}

func TestProcessTickEmitsZoomChanged(t *testing.T) {
	var signals atomic.Int32
	ctx := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(overpassTwoHouses))
	}, WithSignalHandler(func(s Signal) {
		if s == SignalZoomChanged {
			signals.Add(1)
		}
	}))

	ctx.CreateWorkspace("w", testSelection())
	req := NewRequest(NewOverpassKind("query"))
	require.NoError(t, ctx.QueueRequest(req))
	require.NoError(t, ctx.Worker().Drain(context.Background()))

	ctx.ProcessTick()
	assert.Equal(t, int32(1), signals.Load())

	// Nothing left to process; no further signal.
	ctx.ProcessTick()
	assert.Equal(t, int32(1), signals.Load())
}

func TestProcessTickParseErrorKeepsRawData(t *testing.T) {
	ctx := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`this is not json`))
	})

	ctx.CreateWorkspace("w", testSelection())
	req := NewRequest(NewOverpassKind("query"))
	require.NoError(t, ctx.QueueRequest(req))
	require.NoError(t, ctx.Worker().Drain(context.Background()))

	ctx.ProcessTick()

	loaded, ok := ctx.LoadedRequest(req.ID)
	require.True(t, ok)
	assert.NotEmpty(t, loaded.RawData, "raw bytes are retained on parse error")
	assert.False(t, loaded.IsProcessed())
	assert.Zero(t, loaded.FeatureCount())
}

func TestTransportErrorLeavesRequestUnloaded(t *testing.T) {
	ctx := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	})

	ctx.CreateWorkspace("w", testSelection())
	req := NewRequest(NewOverpassKind("query"))
	require.NoError(t, ctx.QueueRequest(req))
	require.NoError(t, ctx.Worker().Drain(context.Background()))

	_, ok := ctx.LoadedRequest(req.ID)
	assert.False(t, ok)
	assert.Empty(t, req.RawData)
	assert.Equal(t, int64(1), ctx.Worker().Failed())
}

func TestRateLimitedRequestEventuallyCompletes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"elements":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := overpass.NewClient(srv.URL,
		overpass.WithSleep(func(time.Duration) {}),
		overpass.WithRateLimit(1000))
	ctx := NewContext(t.TempDir(), WithOverpassClient(client))

	ctx.CreateWorkspace("w", testSelection())
	req := NewRequest(NewOverpassKind("query"))
	require.NoError(t, ctx.QueueRequest(req))

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, ctx.Worker().Drain(drainCtx))

	_, ok := ctx.LoadedRequest(req.ID)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int32
	ctx := newTestContext(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		w.Write([]byte(`{"elements":[]}`))
	}, WithWorkerSlots(3))

	ctx.CreateWorkspace("w", testSelection())

	reqs := make([]*Request, 10)
	for i := range reqs {
		reqs[i] = NewRequest(NewOverpassKind("query"))
		require.NoError(t, ctx.QueueRequest(reqs[i]))
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, ctx.Worker().Drain(drainCtx))

	assert.LessOrEqual(t, peak.Load(), int32(3))
	for _, req := range reqs {
		_, ok := ctx.LoadedRequest(req.ID)
		assert.True(t, ok, "request %s missing from loaded map", req.ID)
	}
}

func TestQueueRequestWithoutWorkspace(t *testing.T) {
	ctx := NewContext(t.TempDir())
	assert.Error(t, ctx.QueueRequest(NewRequest(NewOverpassKind("query"))))
}

func TestWorkspacesIn(t *testing.T) {
	ctx := NewContext(t.TempDir())
	ctx.CreateWorkspace("cambridge", testSelection())
	ctx.CreateWorkspace("sydney", newSydneySelection())

	hits := ctx.WorkspacesIn(testSelection().Bound())
	require.Len(t, hits, 1)
	assert.Equal(t, "cambridge", hits[0].Name)
}

func newSydneySelection() geo.Selection {
	return geo.NewRectangle(geo.NewCoord(-33.87, 151.20), geo.NewCoord(-33.86, 151.22))
}
