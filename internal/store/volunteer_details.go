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

const volunteerDetailsTableName = "volunteer_details"

var volunteerDetailsColumns = utils.StructTagValues(types.VolunteerDetails{})

type VolunteerDetailsRepository struct {
	pool *pgxpool.Pool
}

func NewVolunteerDetailsRepository(pool *pgxpool.Pool) *VolunteerDetailsRepository {
	return &VolunteerDetailsRepository{pool: pool}
}

func (r *VolunteerDetailsRepository) VolunteerDetails(ctx context.Context, id string) (*types.VolunteerDetails, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

func (r *VolunteerDetailsRepository) VolunteerDetailsByUser(ctx context.Context, userID string) (*types.VolunteerDetails, error) {
	return r.getBy(ctx, sq.Eq{"user_id": userID})
}

func (r *VolunteerDetailsRepository) getBy(ctx context.Context, where sq.Eq) (*types.VolunteerDetails, error) {
	query, args, err := psql().
		Select(volunteerDetailsColumns...).
		From(volunteerDetailsTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate volunteer details query: %w", err)
	}

	var details = new(types.VolunteerDetails)
	err = pgxscan.Get(ctx, r.pool, details, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDetailsNotFound
		}
		return nil, fmt.Errorf("failed to fetch volunteer details: %w", err)
	}

	return details, nil
}

func (r *VolunteerDetailsRepository) VolunteerDetailsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.VolunteerDetails, error) {
	query, args, err := psql().
		Select(volunteerDetailsColumns...).
		From(volunteerDetailsTableName).
		Where(sq.Eq{"status": status}).
		OrderBy("updated_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate volunteer details by status query: %w", err)
	}

	var details = make([]*types.VolunteerDetails, 0)
	err = pgxscan.Select(ctx, r.pool, &details, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteer details by status: %w", err)
	}

	return details, nil
}

func (r *VolunteerDetailsRepository) CreateVolunteerDetails(ctx context.Context, details *types.VolunteerDetails) error {
	now := time.Now()
	details.ID = utils.NanoID()
	details.Verification = types.Verification{Status: types.VerificationPending}
	details.CreatedAt = now
	details.UpdatedAt = now

	_, err := exec(ctx, r.pool, psql().
		Insert(volunteerDetailsTableName).
		SetMap(utils.StructToMap(details)), "create volunteer details")
	return err
}

func (r *VolunteerDetailsRepository) ResubmitVolunteerDetails(ctx context.Context, details *types.VolunteerDetails) (bool, error) {
	return resubmit(ctx, r.pool, volunteerDetailsTableName, details.ID, utils.StructToMap(details))
}

func (r *VolunteerDetailsRepository) ReviewVolunteerDetails(ctx context.Context, id string, verification types.Verification) error {
	return review(ctx, r.pool, volunteerDetailsTableName, id, verification)
}
