// Package geo ranks entities by great-circle distance from a reference point.
package geo

import (
	"fmt"
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Distance returns the haversine great-circle distance in kilometers.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push a past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// FormatDistance renders whole meters below one kilometer and kilometers
// with one decimal otherwise.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}

// Locatable is anything with optional coordinates.
type Locatable interface {
	Coordinates() (lat, lng float64, ok bool)
}

// Point is a bare coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Coordinates() (float64, float64, bool) {
	return p.Lat, p.Lng, true
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Ranked is an item annotated with its distance from the reference point.
// Items without coordinates carry +Inf.
type Ranked[T any] struct {
	Item     T
	Distance float64
}

func (r Ranked[T]) HasDistance() bool {
	return !math.IsInf(r.Distance, 1)
}

// Annotate computes distances without reordering.
func Annotate[T Locatable](items []T, refLat, refLng float64) []Ranked[T] {
	out := make([]Ranked[T], len(items))
	for i, item := range items {
		out[i] = Ranked[T]{Item: item, Distance: math.Inf(1)}
		if lat, lng, ok := item.Coordinates(); ok {
			out[i].Distance = Distance(refLat, refLng, lat, lng)
		}
	}
	return out
}

// SortByDistance annotates items and returns them nearest first. The sort is
// stable so equidistant items keep their input order.
func SortByDistance[T Locatable](items []T, refLat, refLng float64) []Ranked[T] {
	out := Annotate(items, refLat, refLng)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	return out
}

// FilterByRadius returns the sorted items whose distance is at most radiusKm.
func FilterByRadius[T Locatable](items []T, refLat, refLng, radiusKm float64) []Ranked[T] {
	sorted := SortByDistance(items, refLat, refLng)

	cut := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Distance > radiusKm
	})
	return sorted[:cut]
}
