// Package overpass builds Overpass QL queries from a workspace selection and
// a hierarchical tag settings tree, and executes them against an Overpass
// endpoint.
package overpass

import "sort"

// Wildcard matches every value of a category key, emitting clauses without a
// value filter.
const Wildcard = "*"

// notApplicable marks subkeys that exist in the settings UI but never emit
// query clauses.
const notApplicable = "n/a"

// Item is the per-subkey state of a category: whether it is enabled and the
// display color used for matching features.
type Item struct {
	Enabled bool     `json:"enabled"`
	Color   [4]uint8 `json:"color"`
}

// Category tracks the selection state of one OSM tag key. All and None are
// mutually exclusive bulk toggles governing the children; Disabled removes
// the whole category from query building.
type Category struct {
	Disabled bool            `json:"disabled"`
	All      bool            `json:"all"`
	None     bool            `json:"none"`
	Items    map[string]Item `json:"items"`
}

// Settings is the fixed hierarchy of categories, keyed by display name
// (e.g. "Highway"). Keys are lowercased when emitted into queries.
type Settings map[string]*Category

// categorySubkeys is the fixed enumeration of subkeys per category, taken
// from the OSM wiki's common values.
var categorySubkeys = map[string][]string{
	"Highway": {Wildcard, "motorway", "trunk", "primary", "secondary", "tertiary",
		"unclassified", "residential", "service", "living_street", "pedestrian",
		"track", "footway", "cycleway", "path", "steps", "bridleway", "bus_guideway"},
	"Building": {Wildcard, "yes", "house", "apartments", "detached", "residential",
		"commercial", "industrial", "retail", "office", "church", "school",
		"university", "hospital", "garage", "shed", "hut", "farm"},
	"Amenity": {Wildcard, "restaurant", "cafe", "pub", "bar", "fast_food",
		"school", "university", "hospital", "pharmacy", "bank", "atm",
		"parking", "fuel", "library", "place_of_worship", "police", "post_office",
		"cinema", "theatre", "marketplace"},
	"Landuse": {Wildcard, "residential", "commercial", "industrial", "retail",
		"farmland", "farmyard", "forest", "meadow", "orchard", "vineyard",
		"grass", "cemetery", "allotments", "quarry", "landfill"},
	"Leisure": {Wildcard, "park", "garden", "playground", "pitch", "sports_centre",
		"stadium", "swimming_pool", "golf_course", "nature_reserve", "marina",
		"dog_park", "fitness_centre"},
	"Railway": {Wildcard, "rail", "light_rail", "subway", "tram", "monorail",
		"narrow_gauge", "station", "halt", "platform", "level_crossing"},
	"Natural": {Wildcard, "wood", "tree", "tree_row", "scrub", "heath",
		"grassland", "water", "wetland", "beach", "sand", "rock", "cliff",
		"peak", "spring"},
	"Water": {Wildcard, "river", "lake", "pond", "reservoir", "canal",
		"basin", "lagoon", "stream_pool", "oxbow"},
	"Waterway": {Wildcard, "river", "stream", "canal", "drain", "ditch",
		"weir", "dam", "dock", "waterfall"},
	"Power": {Wildcard, "line", "minor_line", "cable", "pole", "tower",
		"substation", "generator", "plant", "transformer"},
	"Boundary": {Wildcard, "administrative", "national_park", "protected_area",
		"postal_code", "political", notApplicable},
	"Shop": {Wildcard, "supermarket", "convenience", "bakery", "butcher",
		"clothes", "hairdresser", "car", "bicycle", "electronics", "furniture",
		"greengrocer", "kiosk", "mall", "books"},
	"Tourism": {Wildcard, "hotel", "hostel", "guest_house", "camp_site",
		"caravan_site", "attraction", "museum", "gallery", "viewpoint",
		"information", "picnic_site", "zoo", "theme_park"},
	"Man_made": {Wildcard, "bridge", "tunnel", "pier", "tower", "chimney",
		"lighthouse", "water_tower", "windmill", "works", "pipeline",
		"embankment", "surveillance"},
	"Aeroway": {Wildcard, "aerodrome", "runway", "taxiway", "apron",
		"helipad", "terminal", "gate", "hangar"},
	"Barrier": {Wildcard, "fence", "wall", "hedge", "gate", "bollard",
		"kerb", "retaining_wall", "guard_rail", "city_wall"},
}

// defaultColors cycles display colors assigned to subkeys in order.
var defaultColors = [][4]uint8{
	{230, 57, 70, 255},
	{69, 123, 157, 255},
	{42, 157, 143, 255},
	{233, 196, 106, 255},
	{144, 190, 109, 255},
	{149, 125, 173, 255},
}

// DefaultSettings returns the full settings tree with every category present
// and everything disabled.
func DefaultSettings() Settings {
	st := make(Settings, len(categorySubkeys))
	for name, subkeys := range categorySubkeys {
		items := make(map[string]Item, len(subkeys))
		for i, sub := range subkeys {
			items[sub] = Item{Color: defaultColors[i%len(defaultColors)]}
		}
		st[name] = &Category{Items: items}
	}
	return st
}

// CategoryNames returns the category names in sorted order.
func (s Settings) CategoryNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enable switches on a single (category, subkey) pair. Unknown categories or
// subkeys are ignored.
func (s Settings) Enable(category, subkey string) {
	cat, ok := s[category]
	if !ok {
		return
	}
	item, ok := cat.Items[subkey]
	if !ok {
		return
	}
	item.Enabled = true
	cat.None = false
	cat.Items[subkey] = item
}

// SetAll bulk-enables a category. Clears None: the two toggles are mutually
// exclusive.
func (s Settings) SetAll(category string) {
	if cat, ok := s[category]; ok {
		cat.All = true
		cat.None = false
	}
}

// SetNone bulk-disables a category's children. Clears All.
func (s Settings) SetNone(category string) {
	if cat, ok := s[category]; ok {
		cat.None = true
		cat.All = false
	}
}

// pair is one enabled (category, subkey) combination.
type pair struct {
	category string
	subkey   string
}

// enabledPairs returns the enabled pairs in deterministic order, applying the
// Disabled/All/None category flags and skipping "n/a" subkeys.
func (s Settings) enabledPairs() []pair {
	var pairs []pair
	for _, name := range s.CategoryNames() {
		cat := s[name]
		if cat.Disabled || cat.None {
			continue
		}

		subkeys := make([]string, 0, len(cat.Items))
		for sub := range cat.Items {
			subkeys = append(subkeys, sub)
		}
		sort.Strings(subkeys)

		for _, sub := range subkeys {
			if sub == notApplicable {
				continue
			}
			if cat.All || cat.Items[sub].Enabled {
				pairs = append(pairs, pair{category: name, subkey: sub})
			}
		}
	}
	return pairs
}
