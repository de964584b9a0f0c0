package geo

import (
	"fmt"
	"math"
)

// Haversine returns the great-circle distance between two coordinates in meters.
func Haversine(a, b Coord) float64 {
	lat1 := float64(a.Lat) * math.Pi / 180
	lat2 := float64(b.Lat) * math.Pi / 180
	dLat := (float64(b.Lat) - float64(a.Lat)) * math.Pi / 180
	dLon := (float64(b.Lon) - float64(a.Lon)) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadius * c
}

// Unit is the length unit of an auto-ranged Distance.
type Unit string

const (
	UnitCentimeters Unit = "cm"
	UnitMeters      Unit = "m"
	UnitKilometers  Unit = "km"
)

// Distance is a length auto-ranged to a human-friendly unit.
type Distance struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Meters returns the distance normalized back to meters.
func (d Distance) Meters() float64 {
	switch d.Unit {
	case UnitCentimeters:
		return d.Value / 100
	case UnitKilometers:
		return d.Value * 1000
	default:
		return d.Value
	}
}

func (d Distance) String() string {
	return fmt.Sprintf("%.2f %s", d.Value, d.Unit)
}

// DistanceBetween returns the great-circle distance between two coordinates,
// auto-ranged: below one meter in centimeters, below one kilometer in meters,
// otherwise in kilometers.
func DistanceBetween(a, b Coord) Distance {
	meters := Haversine(a, b)
	switch {
	case meters < 1:
		return Distance{Value: meters * 100, Unit: UnitCentimeters}
	case meters < 1000:
		return Distance{Value: meters, Unit: UnitMeters}
	default:
		return Distance{Value: meters / 1000, Unit: UnitKilometers}
	}
}
