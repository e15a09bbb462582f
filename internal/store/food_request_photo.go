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

const foodRequestPhotoTableName = "food_request_photos"

var foodRequestPhotoColumns = utils.StructTagValues(types.FoodRequestPhoto{})

type FoodRequestPhotoRepository struct {
	pool *pgxpool.Pool
}

func NewFoodRequestPhotoRepository(pool *pgxpool.Pool) *FoodRequestPhotoRepository {
	return &FoodRequestPhotoRepository{pool: pool}
}

// CreatePhoto records an uploaded photo. Photos are immutable afterwards.
func (r *FoodRequestPhotoRepository) CreatePhoto(ctx context.Context, photo *types.FoodRequestPhoto) error {
	if photo.ID == "" {
		photo.ID = utils.NanoID()
	}
	photo.CreatedAt = time.Now()

	_, err := exec(ctx, r.pool, psql().
		Insert(foodRequestPhotoTableName).
		SetMap(utils.StructToMap(photo)), "create food request photo")
	return err
}

func (r *FoodRequestPhotoRepository) PhotosByRequest(ctx context.Context, requestID string) ([]*types.FoodRequestPhoto, error) {
	query, args, err := psql().
		Select(foodRequestPhotoColumns...).
		From(foodRequestPhotoTableName).
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("captured_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate photos query: %w", err)
	}

	var photos = make([]*types.FoodRequestPhoto, 0)
	err = pgxscan.Select(ctx, r.pool, &photos, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photos: %w", err)
	}

	return photos, nil
}
