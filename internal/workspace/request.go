package workspace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/mapscope/internal/feature"
	"github.com/MeKo-Tech/mapscope/internal/meteo"
)

// KindType discriminates the request variants.
type KindType string

const (
	KindOverpassTurbo KindType = "OverpassTurboRequest"
	KindOpenMeteo     KindType = "OpenMeteoRequest"
	KindOpenRouter    KindType = "OpenRouterRequest"
)

// Kind is the tagged request variant. Adding a kind means adding a field, a
// tag constant and a dispatch arm in the executor.
type Kind struct {
	Type  KindType
	Query string                 // OverpassTurbo: the Overpass QL body
	Meteo *meteo.GeocodingParams // OpenMeteo: typed search parameters
}

// NewOverpassKind returns an Overpass request kind for a prepared query.
func NewOverpassKind(query string) Kind {
	return Kind{Type: KindOverpassTurbo, Query: query}
}

// NewOpenMeteoKind returns a geocoding request kind.
func NewOpenMeteoKind(params meteo.GeocodingParams) Kind {
	return Kind{Type: KindOpenMeteo, Meteo: &params}
}

// MarshalJSON encodes the kind as a single-key tagged object, e.g.
// {"OverpassTurboRequest":"<query>"}.
func (k Kind) MarshalJSON() ([]byte, error) {
	switch k.Type {
	case KindOverpassTurbo:
		return json.Marshal(map[string]string{string(KindOverpassTurbo): k.Query})
	case KindOpenMeteo:
		return json.Marshal(map[string]*meteo.GeocodingParams{string(KindOpenMeteo): k.Meteo})
	case KindOpenRouter:
		return json.Marshal(map[string]any{string(KindOpenRouter): nil})
	default:
		return nil, fmt.Errorf("unknown request kind %q", k.Type)
	}
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid request kind: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("request kind must have exactly one variant, got %d", len(raw))
	}

	for tag, body := range raw {
		switch KindType(tag) {
		case KindOverpassTurbo:
			var query string
			if err := json.Unmarshal(body, &query); err != nil {
				return fmt.Errorf("invalid overpass request: %w", err)
			}
			*k = NewOverpassKind(query)
		case KindOpenMeteo:
			var params meteo.GeocodingParams
			if err := json.Unmarshal(body, &params); err != nil {
				return fmt.Errorf("invalid open-meteo request: %w", err)
			}
			*k = NewOpenMeteoKind(params)
		case KindOpenRouter:
			*k = Kind{Type: KindOpenRouter}
		default:
			return fmt.Errorf("unknown request kind %q", tag)
		}
	}
	return nil
}

// Request is one typed, persistent unit of work bound to a workspace. RawData
// holds the provider's response verbatim; Processed is the derived feature
// index, rebuilt lazily from RawData and never serialized.
type Request struct {
	ID        uuid.UUID `json:"id"`
	Layer     uint32    `json:"layer"`
	Visible   bool      `json:"visible"`
	Kind      Kind      `json:"request"`
	RawData   []byte    `json:"raw_data"`
	LastQuery time.Time `json:"last_query_date"`

	Processed *feature.Store `json:"-"`
}

// NewRequest creates a visible request on layer 0 with a fresh id.
func NewRequest(kind Kind) *Request {
	return &Request{
		ID:      uuid.New(),
		Visible: true,
		Kind:    kind,
	}
}

// IsProcessed reports whether the derived feature index has been built. A
// request can be processed with zero features (empty provider response).
func (r *Request) IsProcessed() bool {
	return r.Processed != nil
}

// FeatureCount returns the number of indexed features, 0 when unprocessed.
func (r *Request) FeatureCount() int {
	if r.Processed == nil {
		return 0
	}
	return r.Processed.Len()
}
