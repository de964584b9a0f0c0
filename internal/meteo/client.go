// Package meteo talks to the Open-Meteo geocoding service.
package meteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEndpoint is the public Open-Meteo geocoding search endpoint.
const DefaultEndpoint = "https://geocoding-api.open-meteo.com/v1/search"

// GeocodingParams are the typed parameters of a geocoding request.
type GeocodingParams struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Language string `json:"language"`
}

// Values renders the parameters as the service's query string.
func (p GeocodingParams) Values() url.Values {
	v := url.Values{}
	v.Set("name", p.Name)
	count := p.Count
	if count <= 0 {
		count = 10
	}
	v.Set("count", strconv.Itoa(count))
	lang := p.Language
	if lang == "" {
		lang = "en"
	}
	v.Set("language", lang)
	v.Set("format", "json")
	return v
}

// Result is one geocoding match.
type Result struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Timezone  string  `json:"timezone"`
}

// Response is the service's top-level response shape.
type Response struct {
	Results []Result `json:"results"`
}

// ParseResponse decodes raw geocoding bytes.
func ParseResponse(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geocoding response: %w", err)
	}
	return &resp, nil
}

type cacheEntry struct {
	body   []byte
	expiry time.Time
}

// Client performs rate-limited geocoding lookups with a small TTL cache, the
// raw response bytes are returned so requests can persist them.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter

	mu    sync.RWMutex
	cache map[string]cacheEntry
	ttl   time.Duration
}

// NewClient creates a geocoding client. An empty endpoint uses the public
// service.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 5 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		cache:    make(map[string]cacheEntry),
		ttl:      24 * time.Hour,
	}
}

// Search performs a geocoding lookup and returns the raw response bytes.
func (c *Client) Search(ctx context.Context, params GeocodingParams) ([]byte, error) {
	key := params.Values().Encode()

	c.mu.RLock()
	entry, found := c.cache[key]
	c.mu.RUnlock()
	if found && time.Now().Before(entry.expiry) {
		return entry.body, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+key, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{body: body, expiry: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return body, nil
}
