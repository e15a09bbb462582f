package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartplate/internal/store"
	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

func approval() types.Verification {
	admin := demoUserByRole(types.RoleAdmin)
	return types.Verification{
		Status:     types.VerificationApproved,
		VerifiedBy: utils.StringPtr(admin.ID),
		VerifiedAt: utils.TimePtr(time.Now()),
	}
}

// SeedNGO makes sure the demo NGO has approved details and returns them.
func SeedNGO(ctx context.Context, ngoRepo *store.NGODetailsRepository) (*types.NGODetails, error) {
	user := demoUserByRole(types.RoleNGO)

	details, err := ngoRepo.NGODetailsByUser(ctx, user.ID)
	if errors.Is(err, types.ErrDetailsNotFound) {
		details = &types.NGODetails{
			UserID:             user.ID,
			OrganizationName:   "Annapurna Food Bank",
			RegistrationNumber: "KA/NGO/2019/0042",
			Description:        utils.StringPtr("Community kitchen serving shelters across central Bengaluru."),
			ContactPhone:       utils.StringPtr(user.Phone),
			Address:            "14 Cubbon Road",
			City:               utils.StringPtr("Bengaluru"),
			State:              utils.StringPtr("Karnataka"),
			PostalCode:         utils.StringPtr("560001"),
			Latitude:           utils.Float64Ptr(12.9763),
			Longitude:          utils.Float64Ptr(77.5929),
		}
		if err := ngoRepo.CreateNGODetails(ctx, details); err != nil {
			return nil, fmt.Errorf("failed to create demo ngo details: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch demo ngo details: %w", err)
	}

	if !details.Verification.State().Approved() {
		details.Verification = approval()
		if err := ngoRepo.ReviewNGODetails(ctx, details.ID, details.Verification); err != nil {
			return nil, fmt.Errorf("failed to approve demo ngo: %w", err)
		}
	}

	fmt.Printf("Demo NGO ready: %s\n", details.OrganizationName)
	return details, nil
}

// SeedVolunteer makes sure the demo volunteer has approved details.
func SeedVolunteer(ctx context.Context, volunteerRepo *store.VolunteerDetailsRepository) (*types.VolunteerDetails, error) {
	user := demoUserByRole(types.RoleVolunteer)

	details, err := volunteerRepo.VolunteerDetailsByUser(ctx, user.ID)
	if errors.Is(err, types.ErrDetailsNotFound) {
		details = &types.VolunteerDetails{
			UserID:       user.ID,
			FullName:     user.FullName,
			Phone:        user.Phone,
			Address:      "221 Indiranagar 100ft Road",
			City:         utils.StringPtr("Bengaluru"),
			Latitude:     utils.Float64Ptr(12.9719),
			Longitude:    utils.Float64Ptr(77.6412),
			VehicleType:  utils.StringPtr("scooter"),
			Availability: utils.StringPtr("weekday evenings"),
			IDType:       types.IDTypeDrivingLicense,
			IDNumber:     "KA0120190001234",
		}
		if err := volunteerRepo.CreateVolunteerDetails(ctx, details); err != nil {
			return nil, fmt.Errorf("failed to create demo volunteer details: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch demo volunteer details: %w", err)
	}

	if !details.Verification.State().Approved() {
		details.Verification = approval()
		if err := volunteerRepo.ReviewVolunteerDetails(ctx, details.ID, details.Verification); err != nil {
			return nil, fmt.Errorf("failed to approve demo volunteer: %w", err)
		}
	}

	fmt.Printf("Demo volunteer ready: %s\n", details.FullName)
	return details, nil
}
