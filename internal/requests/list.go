package requests

import (
	"context"

	"smartplate/internal/geo"
	"smartplate/pkg/types"
)

type ListOptions struct {
	Origin   *geo.Point
	RadiusKm float64
}

// List returns the requests the actor's role works with, ranked.
func (s *Service) List(ctx context.Context, actor types.Actor, opts ListOptions) ([]Listing, error) {
	var (
		requests []*types.FoodRequest
		err      error
	)

	switch actor.Role {
	case types.RoleAdmin:
		requests, err = s.store.RequestsByStatus(ctx)
	case types.RoleNGO:
		requests, err = s.ngoRequests(ctx, actor)
	case types.RoleDonor:
		requests, err = s.donorRequests(ctx, actor)
	case types.RoleVolunteer:
		requests, err = s.volunteerRequests(ctx, actor)
	default:
		return nil, types.ErrForbidden
	}
	if err != nil {
		return nil, err
	}

	return Rank(requests, opts.Origin, opts.RadiusKm), nil
}

func (s *Service) ngoRequests(ctx context.Context, actor types.Actor) ([]*types.FoodRequest, error) {
	ngo, err := s.gate.ApprovedNGO(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.store.RequestsByNGO(ctx, ngo.ID)
}

// donorRequests is every approved request plus the donor's own matched ones.
func (s *Service) donorRequests(ctx context.Context, actor types.Actor) ([]*types.FoodRequest, error) {
	open, err := s.store.RequestsByStatus(ctx, types.RequestStatusApproved)
	if err != nil {
		return nil, err
	}

	own, err := s.store.RequestsByDonor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	return merge(open, own, func(r *types.FoodRequest) bool {
		return r.Status == types.RequestStatusMatched
	}), nil
}

// volunteerRequests is every matched request awaiting a volunteer plus the
// volunteer's own deliveries in progress.
func (s *Service) volunteerRequests(ctx context.Context, actor types.Actor) ([]*types.FoodRequest, error) {
	if err := s.gate.Require(ctx, actor); err != nil {
		return nil, err
	}

	matched, err := s.store.RequestsByStatus(ctx, types.RequestStatusMatched)
	if err != nil {
		return nil, err
	}

	open := make([]*types.FoodRequest, 0, len(matched))
	for _, r := range matched {
		if r.VolunteerID == nil {
			open = append(open, r)
		}
	}

	own, err := s.store.RequestsByVolunteer(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	return merge(open, own, func(r *types.FoodRequest) bool {
		return r.Status == types.RequestStatusInProgress
	}), nil
}

func merge(base, extra []*types.FoodRequest, keep func(*types.FoodRequest) bool) []*types.FoodRequest {
	seen := make(map[string]struct{}, len(base))
	out := make([]*types.FoodRequest, 0, len(base)+len(extra))

	for _, r := range base {
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	for _, r := range extra {
		if _, ok := seen[r.ID]; ok || !keep(r) {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

type Detail struct {
	*types.FoodRequest
	Photos []*types.FoodRequestPhoto `json:"photos"`
}

// Get returns a request the actor is allowed to see. Requests outside the
// actor's view are reported as not found.
func (s *Service) Get(ctx context.Context, actor types.Actor, requestID string) (*Detail, error) {
	request, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	visible, err := s.visible(ctx, actor, request)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, types.ErrRequestNotFound
	}

	photos, err := s.photos.PhotosByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	return &Detail{FoodRequest: request, Photos: photos}, nil
}

func (s *Service) visible(ctx context.Context, actor types.Actor, r *types.FoodRequest) (bool, error) {
	switch actor.Role {
	case types.RoleAdmin:
		return true, nil
	case types.RoleNGO:
		ngo, err := s.gate.ApprovedNGO(ctx, actor)
		if err != nil {
			return false, err
		}
		return r.NGOID == ngo.ID, nil
	case types.RoleDonor:
		return r.Status == types.RequestStatusApproved || isUser(r.DonorID, actor.UserID), nil
	case types.RoleVolunteer:
		return (r.Status == types.RequestStatusMatched && r.VolunteerID == nil) || isUser(r.VolunteerID, actor.UserID), nil
	}
	return false, nil
}

func isUser(id *string, userID string) bool {
	return id != nil && *id == userID
}
