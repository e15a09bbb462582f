package verification

import (
	"context"
	"strings"

	"smartplate/internal/metrics"
	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

type Kind string

const (
	KindNGO       Kind = "ngo"
	KindVolunteer Kind = "volunteer"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(s)) {
	case KindNGO:
		return KindNGO, true
	case KindVolunteer:
		return KindVolunteer, true
	}
	return "", false
}

// Review is an admin decision. Reason is only kept for rejections.
type Review struct {
	Approve bool
	Reason  string
}

func (s *Service) decision(actor types.Actor, review Review) types.Verification {
	now := s.now()
	v := types.Verification{
		Status:     types.VerificationRejected,
		VerifiedBy: utils.StringPtr(actor.UserID),
		VerifiedAt: &now,
	}
	if review.Approve {
		v.Status = types.VerificationApproved
	} else {
		v.RejectionReason = utils.TrimmedStringPtr(review.Reason)
	}
	return v
}

func (s *Service) ReviewNGO(ctx context.Context, actor types.Actor, id string, review Review) (*types.NGODetails, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}

	v := s.decision(actor, review)
	if err := s.ngos.ReviewNGODetails(ctx, id, v); err != nil {
		return nil, err
	}

	metrics.VerificationReviews.WithLabelValues(string(KindNGO), string(v.Status)).Inc()
	s.logger.WithField("details_id", id).WithField("status", v.Status).WithField("admin_id", actor.UserID).Info("ngo verification reviewed")

	return s.ngos.NGODetails(ctx, id)
}

func (s *Service) ReviewVolunteer(ctx context.Context, actor types.Actor, id string, review Review) (*types.VolunteerDetails, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}

	v := s.decision(actor, review)
	if err := s.volunteers.ReviewVolunteerDetails(ctx, id, v); err != nil {
		return nil, err
	}

	metrics.VerificationReviews.WithLabelValues(string(KindVolunteer), string(v.Status)).Inc()
	s.logger.WithField("details_id", id).WithField("status", v.Status).WithField("admin_id", actor.UserID).Info("volunteer verification reviewed")

	return s.volunteers.VolunteerDetails(ctx, id)
}

// PendingNGOs lists NGO details in the given status, pending when empty.
func (s *Service) PendingNGOs(ctx context.Context, actor types.Actor, status types.VerificationStatus) ([]*types.NGODetails, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}
	if status == "" {
		status = types.VerificationPending
	}
	return s.ngos.NGODetailsByStatus(ctx, status)
}

func (s *Service) PendingVolunteers(ctx context.Context, actor types.Actor, status types.VerificationStatus) ([]*types.VolunteerDetails, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}
	if status == "" {
		status = types.VerificationPending
	}
	return s.volunteers.VolunteerDetailsByStatus(ctx, status)
}
