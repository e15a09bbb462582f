package store

import (
	"testing"
	"time"

	"smartplate/internal/utils"
	"smartplate/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareAndSwapQueryGuardsDonor(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	query, args, err := compareAndSwapQuery("req-1", types.RequestStatusApproved, types.RequestUpdate{
		Status:    types.RequestStatusMatched,
		DonorID:   utils.StringPtr("donor-a"),
		MatchedAt: &now,
	}, now).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE food_requests SET")
	assert.Contains(t, query, "donor_id IS NULL")
	assert.NotContains(t, query, "volunteer_id")
	assert.Contains(t, query, "id = $")
	assert.Contains(t, query, "status = $")

	assert.Contains(t, args, "donor-a")
	assert.Contains(t, args, "req-1")
	assert.Contains(t, args, types.RequestStatusApproved)
	assert.Contains(t, args, types.RequestStatusMatched)
}

func TestCompareAndSwapQueryGuardsVolunteer(t *testing.T) {
	now := time.Now()

	query, args, err := compareAndSwapQuery("req-2", types.RequestStatusMatched, types.RequestUpdate{
		Status:      types.RequestStatusInProgress,
		VolunteerID: utils.StringPtr("vol-1"),
		PickedUpAt:  &now,
	}, now).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "volunteer_id IS NULL")
	assert.NotContains(t, query, "donor_id")
	assert.Contains(t, query, "picked_up_at = $")
	assert.Contains(t, args, "vol-1")
}

func TestCompareAndSwapQueryStatusOnly(t *testing.T) {
	query, _, err := compareAndSwapQuery("req-3", types.RequestStatusPending, types.RequestUpdate{
		Status:          types.RequestStatusCancelled,
		RejectionReason: utils.StringPtr("duplicate"),
	}, time.Now()).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, query, "IS NULL")
	assert.Contains(t, query, "rejection_reason = $")
}

func TestResubmitQueryClearsPreviousReview(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	query, args, err := resubmitQuery("ngo_details", "details-1", map[string]any{
		"organization_name": "Annapurna",
		"status":            types.VerificationApproved,
		"verified_by":       "admin-1",
		"rejection_reason":  "blurry scan",
	}, now).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE ngo_details SET")
	assert.Contains(t, query, "rejection_reason = $")
	assert.Contains(t, query, "verified_by = $")
	assert.Contains(t, query, "verified_at = $")
	assert.Contains(t, query, "status <> $")

	assert.Contains(t, args, "Annapurna")
	assert.Contains(t, args, types.VerificationPending)
	assert.NotContains(t, args, "admin-1")
	assert.NotContains(t, args, "blurry scan")
	assert.Contains(t, args, "details-1")
}

func TestBuildUpdateClauseIsSorted(t *testing.T) {
	clause := buildUpdateClause(map[string]any{"phone": 1, "full_name": 2, "updated_at": 3})
	assert.Equal(t, "full_name = EXCLUDED.full_name, phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at", clause)
}

func TestColumnsIncludeEmbeddedVerification(t *testing.T) {
	assert.Contains(t, ngoDetailsColumns, "status")
	assert.Contains(t, ngoDetailsColumns, "verified_by")
	assert.Contains(t, volunteerDetailsColumns, "id_number")
	assert.Contains(t, foodRequestColumns, "donor_id")
}
