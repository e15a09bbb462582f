package store

import (
	"context"
	"time"

	"smartplate/pkg/types"

	sq "github.com/Masterminds/squirrel"
)

// Columns the owner may not write through a submission.
var reviewColumns = []string{"id", "user_id", "status", "rejection_reason", "verified_by", "verified_at", "created_at"}

// resubmit overwrites the owner's fields and puts the row back into review.
// Approved rows are left untouched and report false.
func resubmit(ctx context.Context, q querier, table, id string, fields map[string]any) (bool, error) {
	affected, err := exec(ctx, q, resubmitQuery(table, id, fields, time.Now()), "resubmit "+table)
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// resubmitQuery clears the previous review so the row reads as unreviewed.
func resubmitQuery(table, id string, fields map[string]any, now time.Time) sq.UpdateBuilder {
	for _, column := range reviewColumns {
		delete(fields, column)
	}
	fields["status"] = types.VerificationPending
	fields["rejection_reason"] = nil
	fields["verified_by"] = nil
	fields["verified_at"] = nil
	fields["updated_at"] = now

	return psql().
		Update(table).
		SetMap(fields).
		Where(sq.And{
			sq.Eq{"id": id},
			sq.NotEq{"status": types.VerificationApproved},
		})
}

// review stamps an admin decision. Approval clears any earlier rejection reason.
func review(ctx context.Context, q querier, table, id string, v types.Verification) error {
	reason := v.RejectionReason
	if v.Status == types.VerificationApproved {
		reason = nil
	}

	affected, err := exec(ctx, q, psql().
		Update(table).
		SetMap(map[string]any{
			"status":           v.Status,
			"rejection_reason": reason,
			"verified_by":      v.VerifiedBy,
			"verified_at":      v.VerifiedAt,
			"updated_at":       time.Now(),
		}).
		Where(sq.Eq{"id": id}), "review "+table)
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrDetailsNotFound
	}

	return nil
}
