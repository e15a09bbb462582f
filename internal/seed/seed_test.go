package seed

import (
	"math/rand"
	"testing"

	"smartplate/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsToFollowsLifecycle(t *testing.T) {
	tests := []struct {
		target types.RequestStatus
		want   []types.RequestStatus
	}{
		{types.RequestStatusPending, nil},
		{types.RequestStatusCancelled, []types.RequestStatus{types.RequestStatusCancelled}},
		{types.RequestStatusApproved, []types.RequestStatus{types.RequestStatusApproved}},
		{types.RequestStatusMatched, []types.RequestStatus{types.RequestStatusApproved, types.RequestStatusMatched}},
		{types.RequestStatusInProgress, []types.RequestStatus{types.RequestStatusApproved, types.RequestStatusMatched, types.RequestStatusInProgress}},
		{types.RequestStatusCompleted, []types.RequestStatus{types.RequestStatusApproved, types.RequestStatusMatched, types.RequestStatusInProgress, types.RequestStatusCompleted}},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			var got []types.RequestStatus
			for _, step := range stepsTo(tt.target) {
				got = append(got, step.Status)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStepsToAssignsParticipants(t *testing.T) {
	steps := stepsTo(types.RequestStatusCompleted)
	require.Len(t, steps, 4)

	require.NotNil(t, steps[1].DonorID)
	assert.Equal(t, demoUserByRole(types.RoleDonor).ID, *steps[1].DonorID)
	require.NotNil(t, steps[2].VolunteerID)
	assert.Equal(t, demoUserByRole(types.RoleVolunteer).ID, *steps[2].VolunteerID)
	assert.NotNil(t, steps[3].CompletedAt)
}

func TestPickWeightedStatusCoversEveryStatus(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[types.RequestStatus]bool{}
	for i := 0; i < 2000; i++ {
		seen[pickWeightedStatus(rng)] = true
	}
	assert.Len(t, seen, len(types.RequestStatuses))
}

func TestJitterStaysWithinSpread(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		lat, lng := jitter(rng, 12.9763, 77.5929, 0.05)
		assert.InDelta(t, 12.9763, lat, 0.05)
		assert.InDelta(t, 77.5929, lng, 0.05)
	}
}

func TestDemoUsersCoverEveryRole(t *testing.T) {
	for _, role := range []types.Role{types.RoleAdmin, types.RoleNGO, types.RoleDonor, types.RoleVolunteer} {
		assert.Equal(t, role, demoUserByRole(role).Role)
	}
}
