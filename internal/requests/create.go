package requests

import (
	"context"
	"strings"
	"time"

	"smartplate/internal/geo"
	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

func (s *Service) validate(form *types.FoodRequestForm) (*types.FoodRequest, error) {
	errs := map[string]string{}

	title := strings.TrimSpace(form.Title)
	if title == "" {
		errs["title"] = "Title is required."
	}

	if !geo.Finite(form.Quantity) || form.Quantity <= 0 {
		errs["quantity"] = "Quantity must be greater than zero."
	}

	unit := strings.TrimSpace(form.Unit)
	if unit == "" {
		errs["unit"] = "Unit is required."
	}

	urgency := types.ParseUrgency(form.Urgency)
	if !urgency.Valid() {
		errs["urgency"] = "Urgency must be low, normal, high or critical."
	}

	if (form.Latitude == nil) != (form.Longitude == nil) {
		errs["latitude"] = "Latitude and longitude must be provided together."
	} else if form.Latitude != nil && !geo.ValidCoordinates(*form.Latitude, *form.Longitude) {
		errs["latitude"] = "Coordinates are out of range."
	}

	var deadline *time.Time
	if raw := strings.TrimSpace(form.Deadline); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		switch {
		case err != nil:
			errs["deadline"] = "Deadline must be a valid date and time."
		case parsed.Before(s.now()):
			errs["deadline"] = "Deadline cannot be in the past."
		default:
			deadline = &parsed
		}
	}

	if err := types.NewValidationError(errs); err != nil {
		return nil, err
	}

	return &types.FoodRequest{
		Title:       title,
		Description: utils.TrimmedStringPtr(form.Description),
		Quantity:    form.Quantity,
		Unit:        unit,
		Urgency:     urgency,
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
		Address:     utils.TrimmedStringPtr(form.Address),
		Deadline:    deadline,
	}, nil
}

// Create files a new pending request on behalf of an approved NGO.
func (s *Service) Create(ctx context.Context, actor types.Actor, form *types.FoodRequestForm) (*types.FoodRequest, error) {
	if actor.Role != types.RoleNGO {
		return nil, types.ErrForbidden
	}

	request, err := s.validate(form)
	if err != nil {
		return nil, err
	}

	ngo, err := s.gate.ApprovedNGO(ctx, actor)
	if err != nil {
		return nil, err
	}

	request.NGOID = ngo.ID
	request.CreatedBy = actor.UserID

	// fall back to the NGO's own location
	if request.Latitude == nil && ngo.Latitude != nil && ngo.Longitude != nil {
		request.Latitude, request.Longitude = ngo.Latitude, ngo.Longitude
	}
	if request.Address == nil {
		request.Address = utils.TrimmedStringPtr(ngo.Address)
	}

	if err := s.store.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	s.logger.WithField("request_id", request.ID).WithField("ngo_id", ngo.ID).Info("food request created")

	return request, nil
}
