package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartplate/internal/utils"
	"smartplate/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	userTableName     = "users"
	profileTableName  = "profiles"
	userRoleTableName = "user_roles"
)

var (
	userColumns    = utils.StructTagValues(types.User{})
	profileColumns = utils.StructTagValues(types.Profile{})
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	query, args, err := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile query: %w", err)
	}

	var profile types.Profile
	err = pgxscan.Get(ctx, r.pool, &profile, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return &profile, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, profile *types.Profile) error {
	profile.UpdatedAt = time.Now()

	affected, err := exec(ctx, r.pool, psql().
		Update(profileTableName).
		SetMap(utils.StructToMapExcept(profile, "user_id", "created_at")).
		Where(sq.Eq{"user_id": profile.UserID}), "update profile")
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrProfileNotFound
	}
	return nil
}

func (r *UserRepository) RoleByUser(ctx context.Context, userID string) (types.Role, error) {
	query, args, err := psql().
		Select("role").
		From(userRoleTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to generate role query: %w", err)
	}

	var role types.Role
	err = r.pool.QueryRow(ctx, query, args...).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", types.ErrRoleNotFound
		}
		return "", fmt.Errorf("failed to fetch role: %w", err)
	}

	return role, nil
}

// CreateAccount writes the user, profile and role rows in one transaction.
// Existing user and profile rows are refreshed; an existing role is kept,
// since roles are immutable once assigned.
func (r *UserRepository) CreateAccount(ctx context.Context, user *types.User, profile *types.Profile, role types.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin account transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	profile.UserID = user.ID
	profile.CreatedAt, profile.UpdatedAt = now, now

	userMap := utils.StructToMap(user)
	_, err = exec(ctx, tx, psql().
		Insert(userTableName).
		SetMap(userMap).
		Suffix("ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, updated_at = EXCLUDED.updated_at"),
		"upsert user")
	if err != nil {
		return err
	}

	profileMap := utils.StructToMap(profile)
	_, err = exec(ctx, tx, psql().
		Insert(profileTableName).
		SetMap(profileMap).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET "+buildUpdateClause(map[string]any{
			"full_name":  nil,
			"phone":      nil,
			"updated_at": nil,
		})),
		"upsert profile")
	if err != nil {
		return err
	}

	_, err = exec(ctx, tx, psql().
		Insert(userRoleTableName).
		Columns("user_id", "role", "created_at").
		Values(user.ID, role, now).
		Suffix("ON CONFLICT (user_id) DO NOTHING"),
		"assign role")
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account transaction: %w", err)
	}

	return nil
}
