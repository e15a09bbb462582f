package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"smartplate/internal/store"
	"smartplate/internal/utils"
	"smartplate/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

const seedTitlePrefix = "[seed] "

type demoMeal struct {
	Title    string
	Quantity float64
	Unit     string
}

var demoMeals = []demoMeal{
	{Title: "Lunch for 50", Quantity: 50, Unit: "meals"},
	{Title: "Rice and dal for the night shelter", Quantity: 30, Unit: "kg"},
	{Title: "Breakfast packets for school children", Quantity: 120, Unit: "packets"},
	{Title: "Fresh vegetables for community kitchen", Quantity: 40, Unit: "kg"},
	{Title: "Milk for the orphanage", Quantity: 25, Unit: "litres"},
	{Title: "Dinner for flood relief camp", Quantity: 200, Unit: "meals"},
}

var demoUrgencies = []types.Urgency{types.UrgencyLow, types.UrgencyNormal, types.UrgencyHigh, types.UrgencyCritical}

type weightedRequestStatus struct {
	Status types.RequestStatus
	Weight int
}

var weightedStatuses = []weightedRequestStatus{
	{Status: types.RequestStatusPending, Weight: 20},
	{Status: types.RequestStatusApproved, Weight: 30},
	{Status: types.RequestStatusMatched, Weight: 20},
	{Status: types.RequestStatusInProgress, Weight: 10},
	{Status: types.RequestStatusCompleted, Weight: 15},
	{Status: types.RequestStatusCancelled, Weight: 5},
}

// SeedRequests creates count requests for the demo NGO spread around its
// location and walks each one to a randomly picked status.
func SeedRequests(
	ctx context.Context,
	pool *pgxpool.Pool,
	requestRepo *store.FoodRequestRepository,
	ngo *types.NGODetails,
	count int,
	reset bool,
) ([]*types.FoodRequest, error) {
	if count <= 0 {
		fmt.Println("Skipping demo requests seed because count <= 0")
		return nil, nil
	}

	if reset {
		result, err := pool.Exec(ctx, `DELETE FROM food_requests WHERE title LIKE $1`, seedTitlePrefix+"%")
		if err != nil {
			return nil, fmt.Errorf("failed to reset seeded requests: %w", err)
		}
		fmt.Printf("Reset seeded requests: %d deleted\n", result.RowsAffected())
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ngoUser := demoUserByRole(types.RoleNGO)

	created := make([]*types.FoodRequest, 0, count)
	for i := 0; i < count; i++ {
		meal := demoMeals[rng.Intn(len(demoMeals))]
		lat, lng := jitter(rng, utils.PtrFloat64(ngo.Latitude), utils.PtrFloat64(ngo.Longitude), 0.05)

		request := &types.FoodRequest{
			NGOID:     ngo.ID,
			CreatedBy: ngoUser.ID,
			Title:     seedTitlePrefix + meal.Title,
			Quantity:  meal.Quantity,
			Unit:      meal.Unit,
			Urgency:   demoUrgencies[rng.Intn(len(demoUrgencies))],
			Latitude:  utils.Float64Ptr(lat),
			Longitude: utils.Float64Ptr(lng),
			Address:   utils.StringPtr(ngo.Address),
			Deadline:  utils.TimePtr(time.Now().Add(time.Duration(rng.Intn(72)+6) * time.Hour)),
		}

		if err := requestRepo.CreateRequest(ctx, request); err != nil {
			return nil, fmt.Errorf("failed to create demo request %d: %w", i+1, err)
		}

		target := pickWeightedStatus(rng)
		for _, step := range stepsTo(target) {
			ok, err := requestRepo.CompareAndSwap(ctx, request.ID, request.Status, step)
			if err != nil {
				return nil, fmt.Errorf("failed to move demo request %s to %s: %w", request.ID, step.Status, err)
			}
			if !ok {
				return nil, fmt.Errorf("demo request %s changed while seeding", request.ID)
			}
			request.Status = step.Status
		}

		created = append(created, request)
	}

	fmt.Printf("Demo requests seeded: %d created\n", len(created))
	return created, nil
}

// stepsTo lists the transitions that take a pending request to target.
func stepsTo(target types.RequestStatus) []types.RequestUpdate {
	var (
		now       = time.Now()
		donor     = demoUserByRole(types.RoleDonor)
		volunteer = demoUserByRole(types.RoleVolunteer)
		steps     []types.RequestUpdate
	)

	if target == types.RequestStatusPending {
		return nil
	}
	if target == types.RequestStatusCancelled {
		return []types.RequestUpdate{{
			Status:          types.RequestStatusCancelled,
			RejectionReason: utils.StringPtr("Duplicate of an earlier request."),
		}}
	}

	steps = append(steps, types.RequestUpdate{Status: types.RequestStatusApproved})
	if target == types.RequestStatusApproved {
		return steps
	}

	steps = append(steps, types.RequestUpdate{Status: types.RequestStatusMatched, DonorID: utils.StringPtr(donor.ID), MatchedAt: utils.TimePtr(now)})
	if target == types.RequestStatusMatched {
		return steps
	}

	steps = append(steps, types.RequestUpdate{Status: types.RequestStatusInProgress, VolunteerID: utils.StringPtr(volunteer.ID), PickedUpAt: utils.TimePtr(now)})
	if target == types.RequestStatusInProgress {
		return steps
	}

	return append(steps, types.RequestUpdate{Status: types.RequestStatusCompleted, CompletedAt: utils.TimePtr(now)})
}

func pickWeightedStatus(rng *rand.Rand) types.RequestStatus {
	total := 0
	for _, item := range weightedStatuses {
		total += item.Weight
	}

	roll := rng.Intn(total)
	for _, item := range weightedStatuses {
		if roll < item.Weight {
			return item.Status
		}
		roll -= item.Weight
	}

	return types.RequestStatusPending
}

// jitter moves a point by up to spread degrees on each axis.
func jitter(rng *rand.Rand, lat, lng, spread float64) (float64, float64) {
	return lat + (rng.Float64()*2-1)*spread, lng + (rng.Float64()*2-1)*spread
}
