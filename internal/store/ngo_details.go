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

const ngoDetailsTableName = "ngo_details"

var ngoDetailsColumns = utils.StructTagValues(types.NGODetails{})

type NGODetailsRepository struct {
	pool *pgxpool.Pool
}

func NewNGODetailsRepository(pool *pgxpool.Pool) *NGODetailsRepository {
	return &NGODetailsRepository{pool: pool}
}

func (r *NGODetailsRepository) NGODetails(ctx context.Context, id string) (*types.NGODetails, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

func (r *NGODetailsRepository) NGODetailsByUser(ctx context.Context, userID string) (*types.NGODetails, error) {
	return r.getBy(ctx, sq.Eq{"user_id": userID})
}

func (r *NGODetailsRepository) getBy(ctx context.Context, where sq.Eq) (*types.NGODetails, error) {
	query, args, err := psql().
		Select(ngoDetailsColumns...).
		From(ngoDetailsTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ngo details query: %w", err)
	}

	var details = new(types.NGODetails)
	err = pgxscan.Get(ctx, r.pool, details, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDetailsNotFound
		}
		return nil, fmt.Errorf("failed to fetch ngo details: %w", err)
	}

	return details, nil
}

func (r *NGODetailsRepository) NGODetailsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.NGODetails, error) {
	query, args, err := psql().
		Select(ngoDetailsColumns...).
		From(ngoDetailsTableName).
		Where(sq.Eq{"status": status}).
		OrderBy("updated_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ngo details by status query: %w", err)
	}

	var details = make([]*types.NGODetails, 0)
	err = pgxscan.Select(ctx, r.pool, &details, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ngo details by status: %w", err)
	}

	return details, nil
}

func (r *NGODetailsRepository) CreateNGODetails(ctx context.Context, details *types.NGODetails) error {
	now := time.Now()
	details.ID = utils.NanoID()
	details.Verification = types.Verification{Status: types.VerificationPending}
	details.CreatedAt = now
	details.UpdatedAt = now

	_, err := exec(ctx, r.pool, psql().
		Insert(ngoDetailsTableName).
		SetMap(utils.StructToMap(details)), "create ngo details")
	return err
}

func (r *NGODetailsRepository) ResubmitNGODetails(ctx context.Context, details *types.NGODetails) (bool, error) {
	return resubmit(ctx, r.pool, ngoDetailsTableName, details.ID, utils.StructToMap(details))
}

func (r *NGODetailsRepository) ReviewNGODetails(ctx context.Context, id string, verification types.Verification) error {
	return review(ctx, r.pool, ngoDetailsTableName, id, verification)
}
