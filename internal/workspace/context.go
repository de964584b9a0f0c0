package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/mapscope/internal/feature"
	"github.com/MeKo-Tech/mapscope/internal/geo"
	"github.com/MeKo-Tech/mapscope/internal/meteo"
	"github.com/MeKo-Tech/mapscope/internal/osm"
	"github.com/MeKo-Tech/mapscope/internal/overpass"
	"github.com/MeKo-Tech/mapscope/internal/worker"
)

// Signal identifies an event emitted by the context toward the host runtime.
type Signal string

// SignalZoomChanged asks the renderer to rebuild, fired after lazy processing
// adds features.
const SignalZoomChanged Signal = "ZoomChanged"

// Context is the process-wide workspace state: the loaded workspaces and
// requests, the active workspace, the request worker and the provider
// clients. Created at startup, drained at shutdown; the internal maps are
// mutex-guarded and shared between the event loop and worker goroutines.
type Context struct {
	mu         sync.Mutex
	workspaces map[uuid.UUID]*Data
	loaded     map[uuid.UUID]*Request
	active     uuid.UUID

	worker   *worker.Worker
	overpass *overpass.Client
	meteo    *meteo.Client
	settings overpass.Settings

	dir      string
	logger   *slog.Logger
	onSignal func(Signal)
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the context logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithOverpassClient replaces the Overpass client (tests point it at a mock).
func WithOverpassClient(cl *overpass.Client) Option {
	return func(c *Context) { c.overpass = cl }
}

// WithMeteoClient replaces the geocoding client.
func WithMeteoClient(cl *meteo.Client) Option {
	return func(c *Context) { c.meteo = cl }
}

// WithSignalHandler registers the host callback for emitted signals.
func WithSignalHandler(fn func(Signal)) Option {
	return func(c *Context) { c.onSignal = fn }
}

// WithWorkerSlots overrides the request worker's concurrency cap.
func WithWorkerSlots(n int) Option {
	return func(c *Context) { c.worker = worker.New(n, c.logger) }
}

// NewContext creates the workspace context persisting into dir.
func NewContext(dir string, opts ...Option) *Context {
	c := &Context{
		workspaces: make(map[uuid.UUID]*Data),
		loaded:     make(map[uuid.UUID]*Request),
		settings:   overpass.DefaultSettings(),
		dir:        dir,
		logger:     slog.Default(),
		onSignal:   func(Signal) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.worker == nil {
		c.worker = worker.New(worker.DefaultWorkspaceSlots, c.logger)
	}
	if c.overpass == nil {
		c.overpass = overpass.NewClient("", overpass.WithLogger(c.logger))
	}
	if c.meteo == nil {
		c.meteo = meteo.NewClient("")
	}
	return c
}

// Settings returns the overpass settings tree used to build queries.
func (c *Context) Settings() overpass.Settings {
	return c.settings
}

// Worker exposes the request worker for the host's scheduling tick.
func (c *Context) Worker() *worker.Worker {
	return c.worker
}

// CreateWorkspace creates a workspace from a finalized selection and makes it
// active.
func (c *Context) CreateWorkspace(name string, sel geo.Selection) *Data {
	d := NewData(name, sel)
	c.mu.Lock()
	c.workspaces[d.ID] = d
	c.active = d.ID
	c.mu.Unlock()

	c.logger.Info("workspace created", "id", d.ID, "name", name, "selection", string(sel.Kind))
	return d
}

// Active returns the active workspace, or nil.
func (c *Context) Active() *Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workspaces[c.active]
}

// SetActive switches the active workspace.
func (c *Context) SetActive(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.workspaces[id]; !ok {
		return fmt.Errorf("unknown workspace %s", id)
	}
	c.active = id
	return nil
}

// Workspaces returns all loaded workspaces sorted by name.
func (c *Context) Workspaces() []*Data {
	c.mu.Lock()
	out := make([]*Data, 0, len(c.workspaces))
	for _, d := range c.workspaces {
		out = append(out, d)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WorkspacesIn returns the workspaces whose selection envelope intersects the
// bound.
func (c *Context) WorkspacesIn(b geo.Bound) []*Data {
	var out []*Data
	for _, d := range c.Workspaces() {
		if d.Bound().Intersects(b) {
			out = append(out, d)
		}
	}
	return out
}

// QueueRequest binds the request to the active workspace and submits it to
// the worker. The submit returns immediately; the request completes on a
// later scheduling tick. Reusing a request id overwrites the loaded entry.
func (c *Context) QueueRequest(req *Request) error {
	c.mu.Lock()
	active := c.workspaces[c.active]
	c.mu.Unlock()
	if active == nil {
		return fmt.Errorf("no active workspace")
	}

	active.AddRequest(req.ID)

	c.worker.Submit(worker.Task{
		Name: req.ID.String(),
		Run: func(ctx context.Context) error {
			return c.execute(ctx, req)
		},
	})

	c.logger.Debug("request queued", "id", req.ID, "kind", string(req.Kind.Type))
	return nil
}

// execute runs one request against its provider and publishes the result
// into the loaded map. Processing into features stays lazy.
func (c *Context) execute(ctx context.Context, req *Request) error {
	var (
		raw []byte
		err error
	)

	switch req.Kind.Type {
	case KindOverpassTurbo:
		raw, err = c.overpass.Query(ctx, req.Kind.Query)
	case KindOpenMeteo:
		if req.Kind.Meteo == nil {
			return fmt.Errorf("open-meteo request without parameters")
		}
		raw, err = c.meteo.Search(ctx, *req.Kind.Meteo)
	case KindOpenRouter:
		// Chat requests are executed by the LLM integration, not here.
		return nil
	default:
		return fmt.Errorf("unknown request kind %q", req.Kind.Type)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	req.RawData = raw
	req.LastQuery = time.Now().UTC()
	c.loaded[req.ID] = req
	c.mu.Unlock()

	c.logger.Info("request completed", "id", req.ID, "bytes", len(raw))
	return nil
}

// Tick runs one scheduling tick of the request worker.
func (c *Context) Tick(ctx context.Context) {
	c.worker.Tick(ctx)
}

// ProcessTick is the per-frame lazy processing pass: any loaded request with
// raw bytes and no feature index gets parsed and indexed, then a ZoomChanged
// signal triggers a re-render. Parse failures keep the raw bytes and leave
// the request unprocessed.
func (c *Context) ProcessTick() {
	c.mu.Lock()
	var pending []*Request
	for _, req := range c.loaded {
		if len(req.RawData) > 0 && !req.IsProcessed() {
			pending = append(pending, req)
		}
	}
	c.mu.Unlock()

	processed := 0
	for _, req := range pending {
		features, err := parseRaw(req)
		if err != nil {
			c.logger.Error("failed to process request data", "id", req.ID, "error", err)
			continue
		}

		store := feature.NewStore()
		store.InsertAll(features)

		c.mu.Lock()
		req.Processed = store
		c.mu.Unlock()

		processed++
		c.logger.Debug("request processed", "id", req.ID, "features", store.Len())
	}

	if processed > 0 {
		c.onSignal(SignalZoomChanged)
	}
}

// parseRaw turns a request's raw bytes into features per its kind.
func parseRaw(req *Request) ([]*feature.Feature, error) {
	switch req.Kind.Type {
	case KindOpenMeteo:
		resp, err := meteo.ParseResponse(req.RawData)
		if err != nil {
			return nil, err
		}
		features := make([]*feature.Feature, 0, len(resp.Results))
		for _, r := range resp.Results {
			features = append(features, &feature.Feature{
				ID: fmt.Sprintf("geocode/%d", r.ID),
				Properties: map[string]any{
					"name":    r.Name,
					"country": r.Country,
					"admin1":  r.Admin1,
				},
				Ring: []geo.Coord{geo.NewCoord(r.Latitude, r.Longitude)},
			})
		}
		return features, nil
	default:
		return osm.ParseOverpass(req.RawData)
	}
}

// Requests returns the loaded requests whose ids belong to the active
// workspace, sorted by layer then id.
func (c *Context) Requests() []*Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestsLocked()
}

func (c *Context) requestsLocked() []*Request {
	active := c.workspaces[c.active]
	if active == nil {
		return nil
	}

	var out []*Request
	for id := range active.Requests {
		if req, ok := c.loaded[id]; ok {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// RenderedRequests returns the active workspace's requests with a built
// feature index.
func (c *Context) RenderedRequests() []*Request {
	var out []*Request
	for _, req := range c.Requests() {
		if req.IsProcessed() {
			out = append(out, req)
		}
	}
	return out
}

// UnrenderedRequests returns the active workspace's requests still waiting
// for processing.
func (c *Context) UnrenderedRequests() []*Request {
	var out []*Request
	for _, req := range c.Requests() {
		if !req.IsProcessed() {
			out = append(out, req)
		}
	}
	return out
}

// LoadedRequest looks up a request by id across all workspaces.
func (c *Context) LoadedRequest(id uuid.UUID) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.loaded[id]
	return req, ok
}
