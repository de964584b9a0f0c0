// Package workspace holds the workspace data model, the loaded-request map
// and the request lifecycle: queued, in-flight, completed, lazily processed,
// persisted.
package workspace

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/mapscope/internal/geo"
)

// TagPair keys the per-workspace styling map: an OSM (key, value) pair.
type TagPair struct {
	Key   string
	Value string
}

// Color is an RGBA display color.
type Color [4]uint8

// Message is one chat turn kept with a workspace.
type Message struct {
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Refusal   *string `json:"refusal,omitempty"`
	Reasoning *string `json:"reasoning,omitempty"`
}

// Data is a named, persistent geographic region with the ids of its data
// requests, per-tag styling and chat history. LastModified moves on every
// mutation.
type Data struct {
	ID           uuid.UUID
	Name         string
	Selection    geo.Selection
	CreationDate time.Time
	LastModified time.Time
	Requests     map[uuid.UUID]struct{}
	Properties   map[TagPair]Color
	Messages     []Message

	// Dirty marks a loaded workspace referencing request files that were
	// missing on disk; its data wants a re-fetch. Not serialized.
	Dirty bool
}

// NewData creates a workspace from a finalized selection.
func NewData(name string, sel geo.Selection) *Data {
	now := time.Now().UTC()
	return &Data{
		ID:           uuid.New(),
		Name:         name,
		Selection:    sel,
		CreationDate: now,
		LastModified: now,
		Requests:     make(map[uuid.UUID]struct{}),
		Properties:   make(map[TagPair]Color),
	}
}

// Bound returns the selection envelope, letting workspaces themselves be
// spatially indexed.
func (d *Data) Bound() geo.Bound {
	return d.Selection.Bound()
}

func (d *Data) touch() {
	d.LastModified = time.Now().UTC()
}

// AddRequest adds a request id to the membership set.
func (d *Data) AddRequest(id uuid.UUID) {
	d.Requests[id] = struct{}{}
	d.touch()
}

// RemoveRequest drops a request id from the membership set.
func (d *Data) RemoveRequest(id uuid.UUID) {
	delete(d.Requests, id)
	d.touch()
}

// HasRequest reports membership of a request id.
func (d *Data) HasRequest(id uuid.UUID) bool {
	_, ok := d.Requests[id]
	return ok
}

// SetProperty assigns a display color to features matching the tag pair.
func (d *Data) SetProperty(key, value string, c Color) {
	d.Properties[TagPair{Key: key, Value: value}] = c
	d.touch()
}

// PropertyColor looks up the display color for a tag pair.
func (d *Data) PropertyColor(key, value string) (Color, bool) {
	c, ok := d.Properties[TagPair{Key: key, Value: value}]
	return c, ok
}

// AppendMessage appends a chat turn; the message list is append-only.
func (d *Data) AppendMessage(m Message) {
	d.Messages = append(d.Messages, m)
	d.touch()
}

// dataJSON is the on-disk shape: snake_case fields, requests as a sorted id
// array, properties as sorted {key:[k,v], value:[r,g,b,a]} pairs. Sorting
// keeps repeated saves byte-identical.
type dataJSON struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Selection    geo.Selection  `json:"selection"`
	CreationDate time.Time      `json:"creation_date"`
	LastModified time.Time      `json:"last_modified"`
	Requests     []uuid.UUID    `json:"requests"`
	Properties   []propertyJSON `json:"properties"`
	Messages     []Message      `json:"messages"`
}

type propertyJSON struct {
	Key   [2]string `json:"key"`
	Value Color     `json:"value"`
}

// MarshalJSON implements the deterministic on-disk encoding.
func (d *Data) MarshalJSON() ([]byte, error) {
	requests := make([]uuid.UUID, 0, len(d.Requests))
	for id := range d.Requests {
		requests = append(requests, id)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].String() < requests[j].String()
	})

	properties := make([]propertyJSON, 0, len(d.Properties))
	for pair, color := range d.Properties {
		properties = append(properties, propertyJSON{
			Key:   [2]string{pair.Key, pair.Value},
			Value: color,
		})
	}
	sort.Slice(properties, func(i, j int) bool {
		if properties[i].Key[0] != properties[j].Key[0] {
			return properties[i].Key[0] < properties[j].Key[0]
		}
		return properties[i].Key[1] < properties[j].Key[1]
	})

	messages := d.Messages
	if messages == nil {
		messages = []Message{}
	}

	return json.Marshal(dataJSON{
		ID:           d.ID,
		Name:         d.Name,
		Selection:    d.Selection,
		CreationDate: d.CreationDate,
		LastModified: d.LastModified,
		Requests:     requests,
		Properties:   properties,
		Messages:     messages,
	})
}

// UnmarshalJSON decodes the on-disk encoding back into the in-memory maps.
func (d *Data) UnmarshalJSON(data []byte) error {
	var raw dataJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.ID = raw.ID
	d.Name = raw.Name
	d.Selection = raw.Selection
	d.CreationDate = raw.CreationDate
	d.LastModified = raw.LastModified
	d.Messages = raw.Messages

	d.Requests = make(map[uuid.UUID]struct{}, len(raw.Requests))
	for _, id := range raw.Requests {
		d.Requests[id] = struct{}{}
	}

	d.Properties = make(map[TagPair]Color, len(raw.Properties))
	for _, p := range raw.Properties {
		d.Properties[TagPair{Key: p.Key[0], Value: p.Key[1]}] = p.Value
	}
	return nil
}
