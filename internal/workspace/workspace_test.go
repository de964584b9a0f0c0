package workspace

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/mapscope/internal/geo"
	"github.com/MeKo-Tech/mapscope/internal/meteo"
)

func testSelection() geo.Selection {
	return geo.NewRectangle(geo.NewCoord(52.195, 0.12), geo.NewCoord(52.205, 0.145))
}

func TestNewDataTimestamps(t *testing.T) {
	d := NewData("cambridge", testSelection())

	assert.False(t, d.CreationDate.IsZero())
	assert.False(t, d.LastModified.Before(d.CreationDate))

	before := d.LastModified
	time.Sleep(time.Millisecond)
	d.AddRequest(uuid.New())
	assert.True(t, d.LastModified.After(before))
	assert.False(t, d.LastModified.Before(d.CreationDate))
}

func TestDataRequestMembership(t *testing.T) {
	d := NewData("w", testSelection())
	id := uuid.New()

	d.AddRequest(id)
	assert.True(t, d.HasRequest(id))

	d.RemoveRequest(id)
	assert.False(t, d.HasRequest(id))
}

func TestDataProperties(t *testing.T) {
	d := NewData("w", testSelection())
	d.SetProperty("building", "house", Color{255, 0, 0, 255})

	c, ok := d.PropertyColor("building", "house")
	require.True(t, ok)
	assert.Equal(t, Color{255, 0, 0, 255}, c)

	_, ok = d.PropertyColor("building", "church")
	assert.False(t, ok)
}

func TestDataBoundEqualsSelectionBound(t *testing.T) {
	d := NewData("w", testSelection())
	assert.Equal(t, d.Selection.Bound(), d.Bound())
}

func TestDataJSONRoundTrip(t *testing.T) {
	d := NewData("cambridge", testSelection())
	d.AddRequest(uuid.New())
	d.AddRequest(uuid.New())
	d.SetProperty("building", "house", Color{255, 0, 0, 255})
	d.SetProperty("amenity", "pub", Color{0, 128, 0, 255})
	d.AppendMessage(Message{Role: "user", Content: "what pubs are nearby?"})

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var got Data
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, d.Selection.Kind, got.Selection.Kind)
	assert.True(t, d.CreationDate.Equal(got.CreationDate))
	assert.Equal(t, d.Requests, got.Requests)
	assert.Equal(t, d.Properties, got.Properties)
	assert.Equal(t, d.Messages, got.Messages)
}

func TestDataJSONDeterministic(t *testing.T) {
	d := NewData("w", testSelection())
	for i := 0; i < 8; i++ {
		d.AddRequest(uuid.New())
	}
	d.SetProperty("building", "house", Color{1, 2, 3, 4})
	d.SetProperty("building", "church", Color{5, 6, 7, 8})
	d.SetProperty("amenity", "pub", Color{9, 10, 11, 12})

	first, err := json.Marshal(d)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestDataJSONFieldNames(t *testing.T) {
	d := NewData("w", testSelection())
	data, err := json.Marshal(d)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{
		"id", "name", "selection", "creation_date", "last_modified",
		"requests", "properties", "messages",
	} {
		assert.Contains(t, raw, field)
	}
}

func TestKindJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		tag  string
	}{
		{"overpass", NewOverpassKind(`[out:json];out body geom;`), "OverpassTurboRequest"},
		{"meteo", NewOpenMeteoKind(meteo.GeocodingParams{Name: "Cambridge", Count: 3}), "OpenMeteoRequest"},
		{"router", Kind{Type: KindOpenRouter}, "OpenRouterRequest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.kind)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.tag)

			var got Kind
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tt.kind.Type, got.Type)
			assert.Equal(t, tt.kind.Query, got.Query)
			if tt.kind.Meteo != nil {
				require.NotNil(t, got.Meteo)
				assert.Equal(t, *tt.kind.Meteo, *got.Meteo)
			}
		})
	}
}

func TestKindJSONUnknownTag(t *testing.T) {
	var k Kind
	assert.Error(t, json.Unmarshal([]byte(`{"CarrierPigeonRequest":null}`), &k))
}

func TestRequestJSONElidesProcessed(t *testing.T) {
	req := NewRequest(NewOverpassKind("query"))
	req.RawData = []byte(`{"elements":[]}`)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "processed")

	var got Request
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.RawData, got.RawData)
	assert.Nil(t, got.Processed)
	assert.False(t, got.IsProcessed())
}
