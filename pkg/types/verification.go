package types

import "time"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// Verification is the review state shared by NGO and volunteer details.
type Verification struct {
	Status          VerificationStatus `db:"status" json:"status"`
	RejectionReason *string            `db:"rejection_reason" json:"rejectionReason,omitempty"`
	VerifiedBy      *string            `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt      *time.Time         `db:"verified_at" json:"verifiedAt,omitempty"`
}

// State converts the stored columns into the tagged variant.
func (v Verification) State() VerificationState {
	switch v.Status {
	case VerificationApproved:
		return VerificationState{Kind: StateApproved}
	case VerificationRejected:
		state := VerificationState{Kind: StateRejected}
		if v.RejectionReason != nil {
			state.Reason = *v.RejectionReason
		}
		return state
	case VerificationPending:
		return VerificationState{Kind: StatePending}
	}
	return VerificationState{Kind: StateUnsubmitted}
}

type VerificationKind string

const (
	StateUnsubmitted VerificationKind = "unsubmitted"
	StatePending     VerificationKind = "pending"
	StateApproved    VerificationKind = "approved"
	StateRejected    VerificationKind = "rejected"
)

// VerificationState is Unsubmitted, Pending, Approved or Rejected{Reason}.
// Reason is only meaningful for StateRejected.
type VerificationState struct {
	Kind   VerificationKind `json:"kind"`
	Reason string           `json:"reason,omitempty"`
}

func (s VerificationState) Approved() bool { return s.Kind == StateApproved }

// CanSubmit reports whether the owner may create or edit their details.
func (s VerificationState) CanSubmit() bool { return s.Kind != StateApproved }

type NGODetails struct {
	ID                 string   `db:"id" json:"id"`
	UserID             string   `db:"user_id" json:"userId"`
	OrganizationName   string   `db:"organization_name" json:"organizationName"`
	RegistrationNumber string   `db:"registration_number" json:"registrationNumber"`
	Description        *string  `db:"description" json:"description,omitempty"`
	ContactPhone       *string  `db:"contact_phone" json:"contactPhone,omitempty"`
	Address            string   `db:"address" json:"address"`
	City               *string  `db:"city" json:"city,omitempty"`
	State              *string  `db:"state" json:"state,omitempty"`
	PostalCode         *string  `db:"postal_code" json:"postalCode,omitempty"`
	Latitude           *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64 `db:"longitude" json:"longitude,omitempty"`

	Verification

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type VolunteerDetails struct {
	ID           string   `db:"id" json:"id"`
	UserID       string   `db:"user_id" json:"userId"`
	FullName     string   `db:"full_name" json:"fullName"`
	Phone        string   `db:"phone" json:"phone"`
	Address      string   `db:"address" json:"address"`
	City         *string  `db:"city" json:"city,omitempty"`
	Latitude     *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64 `db:"longitude" json:"longitude,omitempty"`
	VehicleType  *string  `db:"vehicle_type" json:"vehicleType,omitempty"`
	Availability *string  `db:"availability" json:"availability,omitempty"`
	IDType       string   `db:"id_type" json:"idType"`
	IDNumber     string   `db:"id_number" json:"idNumber"`

	Verification

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NGODetailsForm is the owner-editable part of NGO details.
type NGODetailsForm struct {
	OrganizationName   string   `form:"organization_name"`
	RegistrationNumber string   `form:"registration_number"`
	Description        string   `form:"description"`
	ContactPhone       string   `form:"contact_phone"`
	Address            string   `form:"address"`
	City               string   `form:"city"`
	State              string   `form:"state"`
	PostalCode         string   `form:"postal_code"`
	Latitude           *float64 `form:"latitude"`
	Longitude          *float64 `form:"longitude"`
}

type VolunteerDetailsForm struct {
	FullName     string   `form:"full_name"`
	Phone        string   `form:"phone"`
	Address      string   `form:"address"`
	City         string   `form:"city"`
	Latitude     *float64 `form:"latitude"`
	Longitude    *float64 `form:"longitude"`
	VehicleType  string   `form:"vehicle_type"`
	Availability string   `form:"availability"`
	IDType       string   `form:"id_type"`
	IDNumber     string   `form:"id_number"`
}

// Government ID types accepted for volunteers
const (
	IDTypeAadhaar        = "aadhaar"
	IDTypePAN            = "pan"
	IDTypeDrivingLicense = "driving_license"
	IDTypeVoterID        = "voter_id"
	IDTypePassport       = "passport"
)

var VolunteerIDTypes = []string{IDTypeAadhaar, IDTypePAN, IDTypeDrivingLicense, IDTypeVoterID, IDTypePassport}
