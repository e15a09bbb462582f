package verification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"smartplate/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNGOStore struct {
	mu   sync.Mutex
	byID map[string]*types.NGODetails
	seq  int
}

func (f *fakeNGOStore) NGODetails(_ context.Context, id string) (*types.NGODetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, types.ErrDetailsNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeNGOStore) NGODetailsByUser(_ context.Context, userID string) (*types.NGODetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.byID {
		if d.UserID == userID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, types.ErrDetailsNotFound
}

func (f *fakeNGOStore) NGODetailsByStatus(_ context.Context, status types.VerificationStatus) ([]*types.NGODetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.NGODetails
	for _, d := range f.byID {
		if d.Status == status {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeNGOStore) CreateNGODetails(_ context.Context, d *types.NGODetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	d.ID = "ngo-" + string(rune('0'+f.seq))
	d.Verification = types.Verification{Status: types.VerificationPending}
	copied := *d
	f.byID[d.ID] = &copied
	return nil
}

func (f *fakeNGOStore) ResubmitNGODetails(_ context.Context, d *types.NGODetails) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[d.ID]
	if !ok || existing.Status == types.VerificationApproved {
		return false, nil
	}
	copied := *d
	copied.Verification = existing.Verification
	copied.Status = types.VerificationPending
	f.byID[d.ID] = &copied
	return true, nil
}

func (f *fakeNGOStore) ReviewNGODetails(_ context.Context, id string, v types.Verification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return types.ErrDetailsNotFound
	}
	if v.Status == types.VerificationApproved {
		v.RejectionReason = nil
	}
	d.Verification = v
	return nil
}

type fakeVolunteerStore struct {
	mu   sync.Mutex
	byID map[string]*types.VolunteerDetails
}

func (f *fakeVolunteerStore) VolunteerDetails(_ context.Context, id string) (*types.VolunteerDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, types.ErrDetailsNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeVolunteerStore) VolunteerDetailsByUser(_ context.Context, userID string) (*types.VolunteerDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.byID {
		if d.UserID == userID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, types.ErrDetailsNotFound
}

func (f *fakeVolunteerStore) VolunteerDetailsByStatus(context.Context, types.VerificationStatus) ([]*types.VolunteerDetails, error) {
	return nil, nil
}

func (f *fakeVolunteerStore) CreateVolunteerDetails(_ context.Context, d *types.VolunteerDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = "vol-" + d.UserID
	d.Verification = types.Verification{Status: types.VerificationPending}
	copied := *d
	f.byID[d.ID] = &copied
	return nil
}

func (f *fakeVolunteerStore) ResubmitVolunteerDetails(context.Context, *types.VolunteerDetails) (bool, error) {
	return false, nil
}

func (f *fakeVolunteerStore) ReviewVolunteerDetails(_ context.Context, id string, v types.Verification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return types.ErrDetailsNotFound
	}
	d.Verification = v
	return nil
}

type fakeDocumentStore struct {
	docs      map[string]*types.VerificationDocument
	createErr error
}

func (f *fakeDocumentStore) DocumentByID(_ context.Context, id string) (*types.VerificationDocument, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, types.ErrDocumentNotFound
	}
	return d, nil
}

func (f *fakeDocumentStore) DocumentsByUserID(_ context.Context, userID string) ([]*types.VerificationDocument, error) {
	var out []*types.VerificationDocument
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) CreateDocument(_ context.Context, d *types.VerificationDocument) error {
	if f.createErr != nil {
		return f.createErr
	}
	d.ID = "doc-" + d.FileName
	f.docs[d.ID] = d
	return nil
}

func (f *fakeDocumentStore) SetDocumentVerified(_ context.Context, id string, verified bool) error {
	d, ok := f.docs[id]
	if !ok {
		return types.ErrDocumentNotFound
	}
	d.Verified = verified
	return nil
}

type fakeBlobs struct {
	keys    []string
	deleted []string
}

func (f *fakeBlobs) Delete(_ context.Context, _, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) Upload(_ context.Context, bucket, key string, body io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://blobs.test/" + bucket + "/" + key, nil
}

type fixture struct {
	svc        *Service
	ngos       *fakeNGOStore
	volunteers *fakeVolunteerStore
	documents  *fakeDocumentStore
	blobs      *fakeBlobs
}

func newFixture() *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		ngos:       &fakeNGOStore{byID: map[string]*types.NGODetails{}},
		volunteers: &fakeVolunteerStore{byID: map[string]*types.VolunteerDetails{}},
		documents:  &fakeDocumentStore{docs: map[string]*types.VerificationDocument{}},
		blobs:      &fakeBlobs{},
	}
	f.svc = New(f.ngos, f.volunteers, f.documents, f.blobs, "verification-documents", 1024, logger)
	f.svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

var (
	ngoActor       = types.Actor{UserID: "user-ngo", Role: types.RoleNGO}
	volunteerActor = types.Actor{UserID: "user-vol", Role: types.RoleVolunteer}
	adminActor     = types.Actor{UserID: "user-admin", Role: types.RoleAdmin}
	donorActor     = types.Actor{UserID: "user-donor", Role: types.RoleDonor}
)

func ngoForm(name string) *types.NGODetailsForm {
	return &types.NGODetailsForm{
		OrganizationName:   name,
		RegistrationNumber: "REG-001",
		Address:            "12 Hill Road",
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		state   types.VerificationState
		access  bool
		submit  bool
		message string
	}{
		{"unsubmitted", types.VerificationState{Kind: types.StateUnsubmitted}, false, true, MessageUnsubmitted},
		{"pending", types.VerificationState{Kind: types.StatePending}, false, true, MessagePending},
		{"rejected with reason", types.VerificationState{Kind: types.StateRejected, Reason: "blurry ID"}, false, true, "blurry ID"},
		{"rejected without reason", types.VerificationState{Kind: types.StateRejected}, false, true, MessageRejected},
		{"approved", types.VerificationState{Kind: types.StateApproved}, true, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.state)
			assert.Equal(t, tt.access, d.Access)
			assert.Equal(t, tt.submit, d.CanSubmit)
			assert.Equal(t, tt.message, d.Message)
		})
	}
}

func TestUnsubmittedVolunteerIsGated(t *testing.T) {
	f := newFixture()

	decision, err := f.svc.Gate(context.Background(), volunteerActor)
	require.NoError(t, err)
	assert.Equal(t, types.StateUnsubmitted, decision.State.Kind)
	assert.False(t, decision.Access)
	assert.Equal(t, MessageUnsubmitted, decision.Message)

	err = f.svc.Require(context.Background(), volunteerActor)
	assert.ErrorIs(t, err, types.ErrVerificationRequired)
}

func TestDonorAndAdminAreNeverGated(t *testing.T) {
	f := newFixture()

	for _, actor := range []types.Actor{donorActor, adminActor} {
		decision, err := f.svc.Gate(context.Background(), actor)
		require.NoError(t, err)
		assert.True(t, decision.Access)
	}
}

func TestRejectResubmitApproveClearsReason(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	details, err := f.svc.SubmitNGO(ctx, ngoActor, ngoForm("Food Bank"))
	require.NoError(t, err)
	assert.Equal(t, types.VerificationPending, details.Status)

	rejected, err := f.svc.ReviewNGO(ctx, adminActor, details.ID, Review{Reason: "Registration number does not match"})
	require.NoError(t, err)
	assert.Equal(t, types.VerificationRejected, rejected.Status)
	require.NotNil(t, rejected.VerifiedBy)
	assert.Equal(t, adminActor.UserID, *rejected.VerifiedBy)
	require.NotNil(t, rejected.VerifiedAt)

	decision, err := f.svc.Gate(ctx, ngoActor)
	require.NoError(t, err)
	assert.Equal(t, "Registration number does not match", decision.Message)
	assert.True(t, decision.CanSubmit)

	resubmitted, err := f.svc.SubmitNGO(ctx, ngoActor, ngoForm("Food Bank Trust"))
	require.NoError(t, err)
	assert.Equal(t, types.VerificationPending, resubmitted.Status)
	assert.Equal(t, "Food Bank Trust", resubmitted.OrganizationName)

	approved, err := f.svc.ReviewNGO(ctx, adminActor, details.ID, Review{Approve: true, Reason: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, types.VerificationApproved, approved.Status)
	assert.Nil(t, approved.RejectionReason)

	_, err = f.svc.SubmitNGO(ctx, ngoActor, ngoForm("Renamed"))
	assert.ErrorIs(t, err, types.ErrVerificationLocked)

	ngo, err := f.svc.ApprovedNGO(ctx, ngoActor)
	require.NoError(t, err)
	assert.Equal(t, details.ID, ngo.ID)
}

func TestOnlyAdminsReview(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	details, err := f.svc.SubmitNGO(ctx, ngoActor, ngoForm("Food Bank"))
	require.NoError(t, err)

	_, err = f.svc.ReviewNGO(ctx, ngoActor, details.ID, Review{Approve: true})
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = f.svc.PendingNGOs(ctx, donorActor, "")
	assert.ErrorIs(t, err, types.ErrForbidden)

	pending, err := f.svc.PendingNGOs(ctx, adminActor, "")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SubmitNGO(ctx, ngoActor, &types.NGODetailsForm{Latitude: func() *float64 { v := 91.0; return &v }()})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FieldErrors, "organization_name")
	assert.Contains(t, verr.FieldErrors, "latitude")

	_, err = f.svc.SubmitVolunteer(ctx, volunteerActor, &types.VolunteerDetailsForm{
		FullName: "Ravi", Phone: "98200", Address: "Lane 4", IDType: "library_card", IDNumber: "X1",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FieldErrors, "id_type")

	_, err = f.svc.SubmitVolunteer(ctx, ngoActor, &types.VolunteerDetailsForm{})
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestUploadDocument(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	body := []byte("%PDF-1.7")

	doc, err := f.svc.UploadDocument(ctx, ngoActor, &Upload{
		DocumentType: types.DocTypeRegistrationCertificate,
		FileName:     "certificate.pdf",
		ContentType:  "application/pdf",
		Size:         int64(len(body)),
		Body:         bytes.NewReader(body),
	})
	require.NoError(t, err)
	require.Len(t, f.blobs.keys, 1)
	assert.Regexp(t, `^user-ngo/[0-9A-Za-z]{12}-certificate\.pdf$`, f.blobs.keys[0])
	assert.Equal(t, "https://blobs.test/verification-documents/"+f.blobs.keys[0], doc.FileURL)

	_, err = f.svc.UploadDocument(ctx, donorActor, &Upload{})
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = f.svc.UploadDocument(ctx, ngoActor, &Upload{
		DocumentType: types.DocTypeOther, FileName: "big.pdf", ContentType: "application/pdf", Size: 4096,
		Body: bytes.NewReader(nil),
	})
	assert.True(t, types.IsValidation(err))

	_, err = f.svc.Documents(ctx, volunteerActor, ngoActor.UserID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	docs, err := f.svc.Documents(ctx, adminActor, ngoActor.UserID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	verified, err := f.svc.MarkDocumentVerified(ctx, adminActor, doc.ID, true)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
}

func TestUploadDocumentRemovesOrphanedObject(t *testing.T) {
	f := newFixture()
	f.documents.createErr = errors.New("insert failed")
	body := []byte("%PDF-1.7")

	_, err := f.svc.UploadDocument(context.Background(), ngoActor, &Upload{
		DocumentType: types.DocTypeTaxExemption,
		FileName:     "80g.pdf",
		ContentType:  "application/pdf",
		Size:         int64(len(body)),
		Body:         bytes.NewReader(body),
	})
	require.Error(t, err)
	require.Len(t, f.blobs.keys, 1)
	assert.Equal(t, f.blobs.keys, f.blobs.deleted)
}
