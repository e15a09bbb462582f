package requests

import (
	"math"
	"testing"

	"smartplate/internal/geo"
	"smartplate/internal/utils"
	"smartplate/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetNorth returns a request dist km due north of the equator origin.
func offsetNorth(id string, urgency types.Urgency, km float64) *types.FoodRequest {
	lat := km / (geo.EarthRadiusKm * math.Pi / 180)
	return &types.FoodRequest{ID: id, Urgency: urgency, Latitude: utils.Float64Ptr(lat), Longitude: utils.Float64Ptr(0)}
}

func ids(listings []Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func TestRankUrgencyBeatsDistance(t *testing.T) {
	requests := []*types.FoodRequest{
		offsetNorth("low", types.UrgencyLow, 1),
		offsetNorth("critical", types.UrgencyCritical, 100),
	}

	ranked := Rank(requests, &geo.Point{Lat: 0, Lng: 0}, 0)
	assert.Equal(t, []string{"critical", "low"}, ids(ranked))

	require.NotNil(t, ranked[1].DistanceKm)
	assert.InDelta(t, 1.0, *ranked[1].DistanceKm, 0.001)
	assert.Equal(t, "100.0 km", ranked[0].Distance)
}

func TestRankDistanceWithinUrgency(t *testing.T) {
	requests := []*types.FoodRequest{
		{ID: "no-coords", Urgency: types.UrgencyHigh},
		offsetNorth("far", types.UrgencyHigh, 40),
		offsetNorth("near", types.UrgencyHigh, 0.4),
		offsetNorth("normal", types.UrgencyNormal, 0.1),
	}

	ranked := Rank(requests, &geo.Point{}, 0)
	assert.Equal(t, []string{"near", "far", "no-coords", "normal"}, ids(ranked))
	assert.Equal(t, "400 m", ranked[0].Distance)
	assert.Nil(t, ranked[2].DistanceKm)
}

func TestRankWithoutOriginIsStableByUrgency(t *testing.T) {
	requests := []*types.FoodRequest{
		{ID: "a", Urgency: types.UrgencyNormal},
		{ID: "b", Urgency: types.UrgencyCritical},
		{ID: "c", Urgency: types.UrgencyNormal},
		{ID: "d", Urgency: types.UrgencyLow},
	}

	assert.Equal(t, []string{"b", "a", "c", "d"}, ids(Rank(requests, nil, 0)))
}

func TestRankRadiusDropsUnknownAndFar(t *testing.T) {
	requests := []*types.FoodRequest{
		{ID: "no-coords", Urgency: types.UrgencyCritical},
		offsetNorth("edge", types.UrgencyLow, 10),
		offsetNorth("outside", types.UrgencyCritical, 10.5),
	}

	ranked := Rank(requests, &geo.Point{}, 10.0001)
	assert.Equal(t, []string{"edge"}, ids(ranked))
}
