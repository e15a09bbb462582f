// Package requests runs the food request lifecycle:
// pending → approved → matched → in_progress → completed, with cancelled
// reachable from pending or approved. Every status change is a conditional
// write, so concurrent actors get exactly one winner.
package requests

import (
	"context"
	"errors"
	"io"
	"time"

	"smartplate/internal/metrics"
	"smartplate/pkg/types"

	"github.com/sirupsen/logrus"
)

type Store interface {
	CreateRequest(ctx context.Context, request *types.FoodRequest) error
	Request(ctx context.Context, requestID string) (*types.FoodRequest, error)
	RequestsByNGO(ctx context.Context, ngoID string) ([]*types.FoodRequest, error)
	RequestsByStatus(ctx context.Context, statuses ...types.RequestStatus) ([]*types.FoodRequest, error)
	RequestsByDonor(ctx context.Context, donorID string) ([]*types.FoodRequest, error)
	RequestsByVolunteer(ctx context.Context, volunteerID string) ([]*types.FoodRequest, error)
	CompareAndSwap(ctx context.Context, requestID string, expect types.RequestStatus, update types.RequestUpdate) (bool, error)
	DeletePendingRequest(ctx context.Context, requestID, ngoID string) (bool, error)
	CountByStatus(ctx context.Context) ([]types.StatusCount, error)
}

type PhotoStore interface {
	CreatePhoto(ctx context.Context, photo *types.FoodRequestPhoto) error
	PhotosByRequest(ctx context.Context, requestID string) ([]*types.FoodRequestPhoto, error)
}

// Gate is the verification check for NGOs and volunteers.
type Gate interface {
	Require(ctx context.Context, actor types.Actor) error
	ApprovedNGO(ctx context.Context, actor types.Actor) (*types.NGODetails, error)
}

type BlobStore interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

type Service struct {
	store       Store
	photos      PhotoStore
	gate        Gate
	blobs       BlobStore
	photoBucket string
	maxUpload   int64
	logger      logrus.FieldLogger
	now         func() time.Time
}

func New(store Store, photos PhotoStore, gate Gate, blobs BlobStore, photoBucket string, maxUpload int64, logger logrus.FieldLogger) *Service {
	return &Service{
		store:       store,
		photos:      photos,
		gate:        gate,
		blobs:       blobs,
		photoBucket: photoBucket,
		maxUpload:   maxUpload,
		logger:      logger,
		now:         time.Now,
	}
}

// transition applies update only while the request is still in from. A lost
// race surfaces as ErrRequestUnavailable.
func (s *Service) transition(ctx context.Context, actor types.Actor, requestID string, from types.RequestStatus, update types.RequestUpdate) (*types.FoodRequest, error) {
	applied, err := s.store.CompareAndSwap(ctx, requestID, from, update)
	if err != nil {
		return nil, err
	}

	if !applied {
		if _, err := s.store.Request(ctx, requestID); errors.Is(err, types.ErrRequestNotFound) {
			return nil, err
		}
		metrics.Conflicts.WithLabelValues(string(from), string(update.Status)).Inc()
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"from":       from,
			"to":         update.Status,
			"user_id":    actor.UserID,
		}).Info("food request transition lost to a concurrent update")
		return nil, types.ErrRequestUnavailable
	}

	metrics.Transitions.WithLabelValues(string(from), string(update.Status)).Inc()
	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"from":       from,
		"to":         update.Status,
		"user_id":    actor.UserID,
	}).Info("food request transitioned")

	return s.store.Request(ctx, requestID)
}

func (s *Service) Approve(ctx context.Context, actor types.Actor, requestID string) (*types.FoodRequest, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}

	return s.transition(ctx, actor, requestID, types.RequestStatusPending, types.RequestUpdate{
		Status: types.RequestStatusApproved,
	})
}

// Reject cancels a request that has not been matched yet.
func (s *Service) Reject(ctx context.Context, actor types.Actor, requestID, reason string) (*types.FoodRequest, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}

	current, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if current.Status != types.RequestStatusPending && current.Status != types.RequestStatusApproved {
		return nil, types.ErrInvalidTransition
	}

	update := types.RequestUpdate{Status: types.RequestStatusCancelled}
	if reason != "" {
		update.RejectionReason = &reason
	}

	return s.transition(ctx, actor, requestID, current.Status, update)
}

// Accept matches an approved request to the donor. The first donor wins.
func (s *Service) Accept(ctx context.Context, actor types.Actor, requestID string) (*types.FoodRequest, error) {
	if actor.Role != types.RoleDonor {
		return nil, types.ErrForbidden
	}

	now := s.now()
	return s.transition(ctx, actor, requestID, types.RequestStatusApproved, types.RequestUpdate{
		Status:    types.RequestStatusMatched,
		DonorID:   &actor.UserID,
		MatchedAt: &now,
	})
}

// AcceptDelivery assigns a matched request to a verified volunteer.
func (s *Service) AcceptDelivery(ctx context.Context, actor types.Actor, requestID string) (*types.FoodRequest, error) {
	if actor.Role != types.RoleVolunteer {
		return nil, types.ErrForbidden
	}
	if err := s.gate.Require(ctx, actor); err != nil {
		return nil, err
	}

	now := s.now()
	return s.transition(ctx, actor, requestID, types.RequestStatusMatched, types.RequestUpdate{
		Status:      types.RequestStatusInProgress,
		VolunteerID: &actor.UserID,
		PickedUpAt:  &now,
	})
}

// Complete closes a delivery. Only the assigned volunteer or an admin may.
func (s *Service) Complete(ctx context.Context, actor types.Actor, requestID string) (*types.FoodRequest, error) {
	if actor.Role != types.RoleVolunteer && actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}

	current, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if actor.Role == types.RoleVolunteer {
		if current.VolunteerID == nil || *current.VolunteerID != actor.UserID {
			return nil, types.ErrForbidden
		}
	}

	if current.Status != types.RequestStatusInProgress {
		return nil, types.ErrRequestUnavailable
	}

	now := s.now()
	return s.transition(ctx, actor, requestID, types.RequestStatusInProgress, types.RequestUpdate{
		Status:      types.RequestStatusCompleted,
		CompletedAt: &now,
	})
}

// Delete removes the NGO's own request while it is still pending.
func (s *Service) Delete(ctx context.Context, actor types.Actor, requestID string) error {
	if actor.Role != types.RoleNGO {
		return types.ErrForbidden
	}

	ngo, err := s.gate.ApprovedNGO(ctx, actor)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeletePendingRequest(ctx, requestID, ngo.ID)
	if err != nil {
		return err
	}

	if !deleted {
		current, err := s.store.Request(ctx, requestID)
		if err != nil {
			return err
		}
		if current.NGOID != ngo.ID {
			return types.ErrRequestNotFound
		}
		return types.ErrRequestNotDeletable
	}

	s.logger.WithField("request_id", requestID).WithField("user_id", actor.UserID).Info("food request deleted")

	return nil
}

// Stats counts requests per status, including zero counts.
func (s *Service) Stats(ctx context.Context, actor types.Actor) (map[types.RequestStatus]int64, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := make(map[types.RequestStatus]int64, len(types.RequestStatuses))
	for _, status := range types.RequestStatuses {
		stats[status] = 0
	}
	for _, c := range counts {
		stats[c.Status] = c.Count
	}
	return stats, nil
}
