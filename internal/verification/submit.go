package verification

import (
	"context"
	"errors"
	"slices"

	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

func validateNGOForm(form *types.NGODetailsForm) error {
	errs := map[string]string{}

	required(errs, "organization_name", form.OrganizationName, "Organization name is required.")
	required(errs, "registration_number", form.RegistrationNumber, "Registration number is required.")
	required(errs, "address", form.Address, "Address is required.")
	validCoordinates(errs, form.Latitude, form.Longitude)

	return types.NewValidationError(errs)
}

func validateVolunteerForm(form *types.VolunteerDetailsForm) error {
	errs := map[string]string{}

	required(errs, "full_name", form.FullName, "Full name is required.")
	required(errs, "phone", form.Phone, "Phone number is required.")
	required(errs, "address", form.Address, "Address is required.")
	required(errs, "id_number", form.IDNumber, "ID number is required.")
	if !slices.Contains(types.VolunteerIDTypes, form.IDType) {
		errs["id_type"] = "Choose a valid ID type."
	}
	validCoordinates(errs, form.Latitude, form.Longitude)

	return types.NewValidationError(errs)
}

// SubmitNGO creates the NGO's details on first submission and otherwise
// overwrites them and puts them back into review. Approved details are locked.
func (s *Service) SubmitNGO(ctx context.Context, actor types.Actor, form *types.NGODetailsForm) (*types.NGODetails, error) {
	if actor.Role != types.RoleNGO {
		return nil, types.ErrForbidden
	}
	if err := validateNGOForm(form); err != nil {
		return nil, err
	}

	existing, err := s.ngos.NGODetailsByUser(ctx, actor.UserID)
	if err != nil && !errors.Is(err, types.ErrDetailsNotFound) {
		return nil, err
	}

	details := &types.NGODetails{
		UserID:             actor.UserID,
		OrganizationName:   form.OrganizationName,
		RegistrationNumber: form.RegistrationNumber,
		Description:        utils.TrimmedStringPtr(form.Description),
		ContactPhone:       utils.TrimmedStringPtr(form.ContactPhone),
		Address:            form.Address,
		City:               utils.TrimmedStringPtr(form.City),
		State:              utils.TrimmedStringPtr(form.State),
		PostalCode:         utils.TrimmedStringPtr(form.PostalCode),
		Latitude:           form.Latitude,
		Longitude:          form.Longitude,
	}

	if existing == nil {
		if err := s.ngos.CreateNGODetails(ctx, details); err != nil {
			return nil, err
		}
		s.logger.WithField("user_id", actor.UserID).Info("ngo details submitted")
		return details, nil
	}

	if existing.Status == types.VerificationApproved {
		return nil, types.ErrVerificationLocked
	}

	details.ID = existing.ID
	details.CreatedAt = existing.CreatedAt
	applied, err := s.ngos.ResubmitNGODetails(ctx, details)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, types.ErrVerificationLocked
	}

	s.logger.WithField("user_id", actor.UserID).Info("ngo details resubmitted")

	return s.ngos.NGODetails(ctx, existing.ID)
}

func (s *Service) SubmitVolunteer(ctx context.Context, actor types.Actor, form *types.VolunteerDetailsForm) (*types.VolunteerDetails, error) {
	if actor.Role != types.RoleVolunteer {
		return nil, types.ErrForbidden
	}
	if err := validateVolunteerForm(form); err != nil {
		return nil, err
	}

	existing, err := s.volunteers.VolunteerDetailsByUser(ctx, actor.UserID)
	if err != nil && !errors.Is(err, types.ErrDetailsNotFound) {
		return nil, err
	}

	details := &types.VolunteerDetails{
		UserID:       actor.UserID,
		FullName:     form.FullName,
		Phone:        form.Phone,
		Address:      form.Address,
		City:         utils.TrimmedStringPtr(form.City),
		Latitude:     form.Latitude,
		Longitude:    form.Longitude,
		VehicleType:  utils.TrimmedStringPtr(form.VehicleType),
		Availability: utils.TrimmedStringPtr(form.Availability),
		IDType:       form.IDType,
		IDNumber:     form.IDNumber,
	}

	if existing == nil {
		if err := s.volunteers.CreateVolunteerDetails(ctx, details); err != nil {
			return nil, err
		}
		s.logger.WithField("user_id", actor.UserID).Info("volunteer details submitted")
		return details, nil
	}

	if existing.Status == types.VerificationApproved {
		return nil, types.ErrVerificationLocked
	}

	details.ID = existing.ID
	details.CreatedAt = existing.CreatedAt
	applied, err := s.volunteers.ResubmitVolunteerDetails(ctx, details)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, types.ErrVerificationLocked
	}

	s.logger.WithField("user_id", actor.UserID).Info("volunteer details resubmitted")

	return s.volunteers.VolunteerDetails(ctx, existing.ID)
}
