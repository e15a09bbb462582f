package store

import (
	"context"
	"fmt"
	"time"

	"smartplate/internal/utils"
	"smartplate/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foodRequestTableName = "food_requests"

var foodRequestColumns = utils.StructTagValues(types.FoodRequest{})

type FoodRequestRepository struct {
	pool *pgxpool.Pool
}

func NewFoodRequestRepository(pool *pgxpool.Pool) *FoodRequestRepository {
	return &FoodRequestRepository{pool: pool}
}

func (r *FoodRequestRepository) Request(ctx context.Context, requestID string) (*types.FoodRequest, error) {
	query, args, err := psql().Select(foodRequestColumns...).From(foodRequestTableName).
		Where(sq.Eq{"id": requestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate food request query: %w", err)
	}

	var request = new(types.FoodRequest)
	err = pgxscan.Get(ctx, r.pool, request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch food request: %w", err)
	}

	return request, nil
}

func (r *FoodRequestRepository) RequestsByNGO(ctx context.Context, ngoID string) ([]*types.FoodRequest, error) {
	return r.list(ctx, sq.Eq{"ngo_id": ngoID})
}

func (r *FoodRequestRepository) RequestsByStatus(ctx context.Context, statuses ...types.RequestStatus) ([]*types.FoodRequest, error) {
	if len(statuses) == 0 {
		return r.list(ctx, nil)
	}
	return r.list(ctx, sq.Eq{"status": statuses})
}

func (r *FoodRequestRepository) RequestsByDonor(ctx context.Context, donorID string) ([]*types.FoodRequest, error) {
	return r.list(ctx, sq.Eq{"donor_id": donorID})
}

func (r *FoodRequestRepository) RequestsByVolunteer(ctx context.Context, volunteerID string) ([]*types.FoodRequest, error) {
	return r.list(ctx, sq.Eq{"volunteer_id": volunteerID})
}

func (r *FoodRequestRepository) list(ctx context.Context, where sq.Sqlizer) ([]*types.FoodRequest, error) {
	builder := psql().Select(foodRequestColumns...).From(foodRequestTableName).OrderBy("created_at DESC")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate food request list query: %w", err)
	}

	var requests = make([]*types.FoodRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch food requests: %w", err)
	}

	return requests, nil
}

func (r *FoodRequestRepository) CreateRequest(ctx context.Context, request *types.FoodRequest) error {

	now := time.Now()
	request.ID = utils.NanoID()
	request.Status = types.RequestStatusPending
	request.CreatedAt = now
	request.UpdatedAt = now

	_, err := exec(ctx, r.pool, psql().Insert(foodRequestTableName).SetMap(utils.StructToMap(request)), "create food request")
	return err

}

// CompareAndSwap applies update only while the row is still in the expected
// status (and the assignee column being set is still NULL). It reports
// whether the write happened; false means another writer got there first.
func (r *FoodRequestRepository) CompareAndSwap(ctx context.Context, requestID string, expect types.RequestStatus, update types.RequestUpdate) (bool, error) {
	builder := compareAndSwapQuery(requestID, expect, update, time.Now())

	affected, err := exec(ctx, r.pool, builder, "transition food request")
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func compareAndSwapQuery(requestID string, expect types.RequestStatus, update types.RequestUpdate, now time.Time) sq.UpdateBuilder {
	set := map[string]any{
		"status":     update.Status,
		"updated_at": now,
	}
	where := sq.And{
		sq.Eq{"id": requestID},
		sq.Eq{"status": expect},
	}

	if update.DonorID != nil {
		set["donor_id"] = *update.DonorID
		where = append(where, sq.Eq{"donor_id": nil})
	}
	if update.VolunteerID != nil {
		set["volunteer_id"] = *update.VolunteerID
		where = append(where, sq.Eq{"volunteer_id": nil})
	}
	if update.RejectionReason != nil {
		set["rejection_reason"] = *update.RejectionReason
	}
	if update.MatchedAt != nil {
		set["matched_at"] = *update.MatchedAt
	}
	if update.PickedUpAt != nil {
		set["picked_up_at"] = *update.PickedUpAt
	}
	if update.CompletedAt != nil {
		set["completed_at"] = *update.CompletedAt
	}

	return psql().Update(foodRequestTableName).SetMap(set).Where(where)
}

// DeletePendingRequest deletes the NGO's request only while it is pending.
func (r *FoodRequestRepository) DeletePendingRequest(ctx context.Context, requestID, ngoID string) (bool, error) {
	affected, err := exec(ctx, r.pool, psql().Delete(foodRequestTableName).Where(sq.Eq{
		"id":     requestID,
		"ngo_id": ngoID,
		"status": types.RequestStatusPending,
	}), "delete food request")
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (r *FoodRequestRepository) CountByStatus(ctx context.Context) ([]types.StatusCount, error) {
	query, args, err := psql().
		Select("status", "count(*) AS count").
		From(foodRequestTableName).
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate food request count query: %w", err)
	}

	var counts = make([]types.StatusCount, 0, len(types.RequestStatuses))
	err = pgxscan.Select(ctx, r.pool, &counts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count food requests: %w", err)
	}

	return counts, nil
}
