package types

import (
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusMatched    RequestStatus = "matched"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

var RequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusMatched,
	RequestStatusInProgress,
	RequestStatusCompleted,
	RequestStatusCancelled,
}

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Priority orders urgencies ascending: critical sorts first.
func (u Urgency) Priority() int {
	switch u {
	case UrgencyCritical:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyNormal:
		return 3
	case UrgencyLow:
		return 4
	}
	return 5
}

func (u Urgency) Valid() bool {
	return u.Priority() < 5
}

func ParseUrgency(s string) Urgency {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UrgencyNormal
	}
	return Urgency(s)
}

type FoodRequest struct {
	ID              string        `db:"id" json:"id"`
	NGOID           string        `db:"ngo_id" json:"ngoId"`
	CreatedBy       string        `db:"created_by" json:"createdBy"`
	Title           string        `db:"title" json:"title"`
	Description     *string       `db:"description" json:"description,omitempty"`
	Quantity        float64       `db:"quantity" json:"quantity"`
	Unit            string        `db:"unit" json:"unit"`
	Urgency         Urgency       `db:"urgency" json:"urgency"`
	Latitude        *float64      `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64      `db:"longitude" json:"longitude,omitempty"`
	Address         *string       `db:"address" json:"address,omitempty"`
	Deadline        *time.Time    `db:"deadline" json:"deadline,omitempty"`
	Status          RequestStatus `db:"status" json:"status"`
	DonorID         *string       `db:"donor_id" json:"donorId,omitempty"`
	VolunteerID     *string       `db:"volunteer_id" json:"volunteerId,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejectionReason,omitempty"`
	MatchedAt       *time.Time    `db:"matched_at" json:"matchedAt,omitempty"`
	PickedUpAt      *time.Time    `db:"picked_up_at" json:"pickedUpAt,omitempty"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// Coordinates satisfies geo.Locatable.
func (r *FoodRequest) Coordinates() (float64, float64, bool) {
	if r == nil || r.Latitude == nil || r.Longitude == nil {
		return 0, 0, false
	}
	return *r.Latitude, *r.Longitude, true
}

// FoodRequestForm is the NGO-supplied payload for a new request.
type FoodRequestForm struct {
	Title       string   `form:"title"`
	Description string   `form:"description"`
	Quantity    float64  `form:"quantity"`
	Unit        string   `form:"unit"`
	Urgency     string   `form:"urgency"`
	Latitude    *float64 `form:"latitude"`
	Longitude   *float64 `form:"longitude"`
	Address     string   `form:"address"`
	Deadline    string   `form:"deadline"` // RFC 3339
}

// RequestUpdate is applied by a conditional transition. Nil fields are
// left untouched. A non-nil DonorID or VolunteerID also requires the
// column to still be NULL at write time.
type RequestUpdate struct {
	Status          RequestStatus
	DonorID         *string
	VolunteerID     *string
	RejectionReason *string
	MatchedAt       *time.Time
	PickedUpAt      *time.Time
	CompletedAt     *time.Time
}

type FoodRequestPhoto struct {
	ID         string    `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"requestId"`
	UploadedBy string    `db:"uploaded_by" json:"uploadedBy"`
	StorageKey string    `db:"storage_key" json:"storageKey"`
	PhotoURL   string    `db:"photo_url" json:"photoUrl"`
	Latitude   float64   `db:"latitude" json:"latitude"`
	Longitude  float64   `db:"longitude" json:"longitude"`
	CapturedAt time.Time `db:"captured_at" json:"capturedAt"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type StatusCount struct {
	Status RequestStatus `db:"status" json:"status"`
	Count  int64         `db:"count" json:"count"`
}
