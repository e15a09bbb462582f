package requests

import (
	"math"
	"sort"

	"smartplate/internal/geo"
	"smartplate/pkg/types"
)

// Listing is a request as shown in a list view, with its distance from the
// viewer when both sides have coordinates.
type Listing struct {
	*types.FoodRequest
	DistanceKm *float64 `json:"distanceKm,omitempty"`
	Distance   string   `json:"distance,omitempty"`
}

// Rank orders requests by urgency and then by distance from origin. Requests
// without a distance sort after those with one at the same urgency. With a
// positive radius, requests farther away or without coordinates are dropped.
func Rank(requests []*types.FoodRequest, origin *geo.Point, radiusKm float64) []Listing {
	var ranked []geo.Ranked[*types.FoodRequest]

	switch {
	case origin == nil:
		ranked = make([]geo.Ranked[*types.FoodRequest], len(requests))
		for i, request := range requests {
			ranked[i] = geo.Ranked[*types.FoodRequest]{Item: request, Distance: math.Inf(1)}
		}
	case radiusKm > 0:
		ranked = geo.FilterByRadius(requests, origin.Lat, origin.Lng, radiusKm)
	default:
		ranked = geo.Annotate(requests, origin.Lat, origin.Lng)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := ranked[i].Item.Urgency.Priority(), ranked[j].Item.Urgency.Priority()
		if pi != pj {
			return pi < pj
		}
		return ranked[i].Distance < ranked[j].Distance
	})

	listings := make([]Listing, len(ranked))
	for i, r := range ranked {
		listings[i] = Listing{FoodRequest: r.Item}
		if r.HasDistance() {
			km := r.Distance
			listings[i].DistanceKm = &km
			listings[i].Distance = geo.FormatDistance(km)
		}
	}
	return listings
}
