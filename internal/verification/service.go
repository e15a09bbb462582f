// Package verification gates NGO and volunteer features behind an admin
// reviewed submission of their details and documents.
package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"smartplate/internal/geo"
	"smartplate/pkg/types"

	"github.com/sirupsen/logrus"
)

type NGODetailsStore interface {
	NGODetails(ctx context.Context, id string) (*types.NGODetails, error)
	NGODetailsByUser(ctx context.Context, userID string) (*types.NGODetails, error)
	NGODetailsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.NGODetails, error)
	CreateNGODetails(ctx context.Context, details *types.NGODetails) error
	ResubmitNGODetails(ctx context.Context, details *types.NGODetails) (bool, error)
	ReviewNGODetails(ctx context.Context, id string, verification types.Verification) error
}

type VolunteerDetailsStore interface {
	VolunteerDetails(ctx context.Context, id string) (*types.VolunteerDetails, error)
	VolunteerDetailsByUser(ctx context.Context, userID string) (*types.VolunteerDetails, error)
	VolunteerDetailsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.VolunteerDetails, error)
	CreateVolunteerDetails(ctx context.Context, details *types.VolunteerDetails) error
	ResubmitVolunteerDetails(ctx context.Context, details *types.VolunteerDetails) (bool, error)
	ReviewVolunteerDetails(ctx context.Context, id string, verification types.Verification) error
}

type DocumentStore interface {
	DocumentByID(ctx context.Context, id string) (*types.VerificationDocument, error)
	DocumentsByUserID(ctx context.Context, userID string) ([]*types.VerificationDocument, error)
	CreateDocument(ctx context.Context, doc *types.VerificationDocument) error
	SetDocumentVerified(ctx context.Context, id string, verified bool) error
}

type BlobStore interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

type Service struct {
	ngos       NGODetailsStore
	volunteers VolunteerDetailsStore
	documents  DocumentStore
	blobs      BlobStore
	bucket     string
	maxUpload  int64
	logger     logrus.FieldLogger
	now        func() time.Time
}

func New(
	ngos NGODetailsStore,
	volunteers VolunteerDetailsStore,
	documents DocumentStore,
	blobs BlobStore,
	bucket string,
	maxUpload int64,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		ngos:       ngos,
		volunteers: volunteers,
		documents:  documents,
		blobs:      blobs,
		bucket:     bucket,
		maxUpload:  maxUpload,
		logger:     logger,
		now:        time.Now,
	}
}

const (
	MessageUnsubmitted = "Complete your verification to get access to this feature."
	MessagePending     = "Your verification is under review. You will get access once an admin approves it."
	MessageRejected    = "Your verification was rejected. Please review your details and submit again."
)

// Decision is what the caller should show for a gated feature.
type Decision struct {
	State     types.VerificationState `json:"state"`
	Access    bool                    `json:"access"`
	CanSubmit bool                    `json:"canSubmit"`
	Message   string                  `json:"message,omitempty"`
}

func Decide(state types.VerificationState) Decision {
	decision := Decision{State: state, CanSubmit: state.CanSubmit()}

	switch state.Kind {
	case types.StateApproved:
		decision.Access = true
	case types.StatePending:
		decision.Message = MessagePending
	case types.StateRejected:
		decision.Message = state.Reason
		if decision.Message == "" {
			decision.Message = MessageRejected
		}
	default:
		decision.Message = MessageUnsubmitted
	}

	return decision
}

// State returns the actor's verification state. Roles that are never gated
// are reported as approved.
func (s *Service) State(ctx context.Context, actor types.Actor) (types.VerificationState, error) {
	var (
		v   types.Verification
		err error
	)

	switch actor.Role {
	case types.RoleNGO:
		var details *types.NGODetails
		details, err = s.ngos.NGODetailsByUser(ctx, actor.UserID)
		if details != nil {
			v = details.Verification
		}
	case types.RoleVolunteer:
		var details *types.VolunteerDetails
		details, err = s.volunteers.VolunteerDetailsByUser(ctx, actor.UserID)
		if details != nil {
			v = details.Verification
		}
	default:
		return types.VerificationState{Kind: types.StateApproved}, nil
	}

	if errors.Is(err, types.ErrDetailsNotFound) {
		return types.VerificationState{Kind: types.StateUnsubmitted}, nil
	}
	if err != nil {
		return types.VerificationState{}, err
	}

	return v.State(), nil
}

func (s *Service) Gate(ctx context.Context, actor types.Actor) (Decision, error) {
	state, err := s.State(ctx, actor)
	if err != nil {
		return Decision{}, err
	}
	return Decide(state), nil
}

// Require returns ErrVerificationRequired unless the actor may use gated
// features.
func (s *Service) Require(ctx context.Context, actor types.Actor) error {
	decision, err := s.Gate(ctx, actor)
	if err != nil {
		return err
	}
	if !decision.Access {
		return fmt.Errorf("%w: %s", types.ErrVerificationRequired, decision.Message)
	}
	return nil
}

// ApprovedNGO returns the actor's NGO details if they are approved.
func (s *Service) ApprovedNGO(ctx context.Context, actor types.Actor) (*types.NGODetails, error) {
	if actor.Role != types.RoleNGO {
		return nil, types.ErrForbidden
	}

	details, err := s.ngos.NGODetailsByUser(ctx, actor.UserID)
	if errors.Is(err, types.ErrDetailsNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrVerificationRequired, MessageUnsubmitted)
	}
	if err != nil {
		return nil, err
	}

	decision := Decide(details.Verification.State())
	if !decision.Access {
		return nil, fmt.Errorf("%w: %s", types.ErrVerificationRequired, decision.Message)
	}

	return details, nil
}

func validCoordinates(errs map[string]string, lat, lng *float64) {
	if (lat == nil) != (lng == nil) {
		errs["latitude"] = "Latitude and longitude must be provided together."
		return
	}
	if lat != nil && !geo.ValidCoordinates(*lat, *lng) {
		errs["latitude"] = "Coordinates are out of range."
	}
}

func required(errs map[string]string, field, value, message string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = message
	}
}
