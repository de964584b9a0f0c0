package meteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cambridgeResponse = `{
  "results": [
    {"id": 1, "name": "Cambridge", "latitude": 52.2, "longitude": 0.1167,
     "country": "United Kingdom", "admin1": "England", "timezone": "Europe/London"}
  ]
}`

func TestClientSearch(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Encode())
		w.Write([]byte(cambridgeResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	body, err := c.Search(context.Background(), GeocodingParams{Name: "Cambridge", Count: 1})
	require.NoError(t, err)

	resp, err := ParseResponse(body)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Cambridge", resp.Results[0].Name)
	assert.InDelta(t, 52.2, resp.Results[0].Latitude, 1e-6)

	q := gotQuery.Load().(string)
	assert.Contains(t, q, "name=Cambridge")
	assert.Contains(t, q, "count=1")
	assert.Contains(t, q, "language=en")
	assert.Contains(t, q, "format=json")
}

func TestClientSearchCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(cambridgeResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	params := GeocodingParams{Name: "Cambridge"}

	_, err := c.Search(context.Background(), params)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Search(context.Background(), GeocodingParams{Name: "x"})
	assert.ErrorContains(t, err, "status 503")
}

func TestParseResponseMalformed(t *testing.T) {
	_, err := ParseResponse([]byte(`{"results":`))
	assert.Error(t, err)
}
