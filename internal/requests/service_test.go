package requests

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"smartplate/internal/geo"
	"smartplate/internal/utils"
	"smartplate/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore applies CompareAndSwap under one lock, which is what the
// conditional UPDATE gives us in Postgres.
type memoryStore struct {
	mu       sync.Mutex
	requests map[string]*types.FoodRequest
	seq      int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{requests: map[string]*types.FoodRequest{}}
}

func (m *memoryStore) CreateRequest(_ context.Context, r *types.FoodRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.ID = fmt.Sprintf("req-%d", m.seq)
	r.Status = types.RequestStatusPending
	r.CreatedAt = time.Now()
	copied := *r
	m.requests[r.ID] = &copied
	return nil
}

func (m *memoryStore) Request(_ context.Context, id string) (*types.FoodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memoryStore) filter(keep func(*types.FoodRequest) bool) []*types.FoodRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.FoodRequest, 0)
	for _, r := range m.requests {
		if keep(r) {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) RequestsByNGO(_ context.Context, ngoID string) ([]*types.FoodRequest, error) {
	return m.filter(func(r *types.FoodRequest) bool { return r.NGOID == ngoID }), nil
}

func (m *memoryStore) RequestsByStatus(_ context.Context, statuses ...types.RequestStatus) ([]*types.FoodRequest, error) {
	return m.filter(func(r *types.FoodRequest) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (m *memoryStore) RequestsByDonor(_ context.Context, donorID string) ([]*types.FoodRequest, error) {
	return m.filter(func(r *types.FoodRequest) bool { return isUser(r.DonorID, donorID) }), nil
}

func (m *memoryStore) RequestsByVolunteer(_ context.Context, volunteerID string) ([]*types.FoodRequest, error) {
	return m.filter(func(r *types.FoodRequest) bool { return isUser(r.VolunteerID, volunteerID) }), nil
}

func (m *memoryStore) CompareAndSwap(_ context.Context, id string, expect types.RequestStatus, u types.RequestUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok || r.Status != expect {
		return false, nil
	}
	if u.DonorID != nil && r.DonorID != nil {
		return false, nil
	}
	if u.VolunteerID != nil && r.VolunteerID != nil {
		return false, nil
	}

	r.Status = u.Status
	if u.DonorID != nil {
		r.DonorID = u.DonorID
	}
	if u.VolunteerID != nil {
		r.VolunteerID = u.VolunteerID
	}
	if u.RejectionReason != nil {
		r.RejectionReason = u.RejectionReason
	}
	if u.MatchedAt != nil {
		r.MatchedAt = u.MatchedAt
	}
	if u.PickedUpAt != nil {
		r.PickedUpAt = u.PickedUpAt
	}
	if u.CompletedAt != nil {
		r.CompletedAt = u.CompletedAt
	}
	return true, nil
}

func (m *memoryStore) DeletePendingRequest(_ context.Context, id, ngoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.NGOID != ngoID || r.Status != types.RequestStatusPending {
		return false, nil
	}
	delete(m.requests, id)
	return true, nil
}

func (m *memoryStore) CountByStatus(context.Context) ([]types.StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[types.RequestStatus]int64{}
	for _, r := range m.requests {
		counts[r.Status]++
	}
	out := make([]types.StatusCount, 0, len(counts))
	for status, count := range counts {
		out = append(out, types.StatusCount{Status: status, Count: count})
	}
	return out, nil
}

type memoryPhotos struct {
	photos []*types.FoodRequestPhoto
}

func (m *memoryPhotos) CreatePhoto(_ context.Context, p *types.FoodRequestPhoto) error {
	p.ID = fmt.Sprintf("photo-%d", len(m.photos)+1)
	m.photos = append(m.photos, p)
	return nil
}

func (m *memoryPhotos) PhotosByRequest(_ context.Context, requestID string) ([]*types.FoodRequestPhoto, error) {
	out := make([]*types.FoodRequestPhoto, 0)
	for _, p := range m.photos {
		if p.RequestID == requestID {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeGate approves every NGO and volunteer listed in it.
type fakeGate struct {
	ngos       map[string]*types.NGODetails
	volunteers map[string]bool
}

func (g *fakeGate) Require(_ context.Context, actor types.Actor) error {
	if actor.Role == types.RoleVolunteer && !g.volunteers[actor.UserID] {
		return types.ErrVerificationRequired
	}
	return nil
}

func (g *fakeGate) ApprovedNGO(_ context.Context, actor types.Actor) (*types.NGODetails, error) {
	ngo, ok := g.ngos[actor.UserID]
	if !ok {
		return nil, types.ErrVerificationRequired
	}
	return ngo, nil
}

type fakeBlobs struct{}

func (fakeBlobs) Delete(context.Context, string, string) error { return nil }

func (fakeBlobs) Upload(_ context.Context, bucket, key string, body io.Reader, _ int64, _ string) (string, error) {
	_, err := io.Copy(io.Discard, body)
	return "https://blobs.test/" + bucket + "/" + key, err
}

var (
	ngoActor   = types.Actor{UserID: "user-ngo", Role: types.RoleNGO}
	otherNGO   = types.Actor{UserID: "user-ngo-2", Role: types.RoleNGO}
	adminActor = types.Actor{UserID: "user-admin", Role: types.RoleAdmin}
	donorA     = types.Actor{UserID: "donor-a", Role: types.RoleDonor}
	donorB     = types.Actor{UserID: "donor-b", Role: types.RoleDonor}
	volunteer  = types.Actor{UserID: "vol-1", Role: types.RoleVolunteer}
	unverified = types.Actor{UserID: "vol-2", Role: types.RoleVolunteer}
)

type fixture struct {
	svc    *Service
	store  *memoryStore
	photos *memoryPhotos
	gate   *fakeGate
}

func newFixture() *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	gate := &fakeGate{
		ngos: map[string]*types.NGODetails{
			ngoActor.UserID: {ID: "ngo-1", UserID: ngoActor.UserID, Address: "1 Dock Road",
				Latitude: utils.Float64Ptr(19.07), Longitude: utils.Float64Ptr(72.87)},
			otherNGO.UserID: {ID: "ngo-2", UserID: otherNGO.UserID},
		},
		volunteers: map[string]bool{volunteer.UserID: true},
	}

	f := &fixture{store: newMemoryStore(), photos: &memoryPhotos{}, gate: gate}
	f.svc = New(f.store, f.photos, gate, fakeBlobs{}, "food-request-photos", 1<<20, logger)
	return f
}

func lunchForm() *types.FoodRequestForm {
	return &types.FoodRequestForm{Title: "Lunch for 50", Quantity: 50, Unit: "meals", Urgency: "critical"}
}

func TestLunchForFiftyScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusPending, request.Status)
	assert.Equal(t, "ngo-1", request.NGOID)
	assert.Equal(t, types.UrgencyCritical, request.Urgency)

	donorView, err := f.svc.List(ctx, donorA, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, donorView)

	approved, err := f.svc.Approve(ctx, adminActor, request.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusApproved, approved.Status)

	donorView, err = f.svc.List(ctx, donorA, ListOptions{})
	require.NoError(t, err)
	require.Len(t, donorView, 1)
	assert.Equal(t, request.ID, donorView[0].ID)

	matched, err := f.svc.Accept(ctx, donorA, request.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusMatched, matched.Status)
	require.NotNil(t, matched.DonorID)
	assert.Equal(t, donorA.UserID, *matched.DonorID)
	assert.NotNil(t, matched.MatchedAt)

	_, err = f.svc.Accept(ctx, donorB, request.ID)
	assert.ErrorIs(t, err, types.ErrRequestUnavailable)
	assert.Equal(t, "this request is no longer available", err.Error())

	_, err = f.svc.AcceptDelivery(ctx, unverified, request.ID)
	assert.ErrorIs(t, err, types.ErrVerificationRequired)

	inProgress, err := f.svc.AcceptDelivery(ctx, volunteer, request.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusInProgress, inProgress.Status)
	assert.Equal(t, volunteer.UserID, *inProgress.VolunteerID)

	_, err = f.svc.Complete(ctx, types.Actor{UserID: "vol-3", Role: types.RoleVolunteer}, request.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	completed, err := f.svc.Complete(ctx, volunteer, request.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	_, err = f.svc.Complete(ctx, adminActor, request.ID)
	assert.ErrorIs(t, err, types.ErrRequestUnavailable)
}

func TestConcurrentDonorsExactlyOneWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, adminActor, request.ID)
	require.NoError(t, err)

	const donors = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  int
	)

	start := make(chan struct{})
	for i := 0; i < donors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := types.Actor{UserID: fmt.Sprintf("donor-%d", i), Role: types.RoleDonor}
			<-start

			_, err := f.svc.Accept(ctx, actor, request.ID)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, actor.UserID)
				return
			}
			assert.ErrorIs(t, err, types.ErrRequestUnavailable)
			losers++
		}(i)
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, donors-1, losers)

	stored, err := f.store.Request(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], *stored.DonorID)
}

func TestConcurrentVolunteersExactlyOneWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, adminActor, request.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, donorA, request.ID)
	require.NoError(t, err)

	const volunteers = 8
	actors := make([]types.Actor, volunteers)
	for i := range actors {
		actors[i] = types.Actor{UserID: fmt.Sprintf("courier-%d", i), Role: types.RoleVolunteer}
		f.gate.volunteers[actors[i].UserID] = true
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  int
	)

	start := make(chan struct{})
	for _, actor := range actors {
		wg.Add(1)
		go func(actor types.Actor) {
			defer wg.Done()
			<-start

			_, err := f.svc.AcceptDelivery(ctx, actor, request.ID)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, actor.UserID)
				return
			}
			assert.ErrorIs(t, err, types.ErrRequestUnavailable)
			losers++
		}(actor)
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, volunteers-1, losers)

	_, err = f.svc.AcceptDelivery(ctx, volunteer, request.ID)
	assert.ErrorIs(t, err, types.ErrRequestUnavailable)

	stored, err := f.store.Request(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusInProgress, stored.Status)
	require.NotNil(t, stored.VolunteerID)
	assert.Equal(t, winners[0], *stored.VolunteerID)
}

func TestDeleteOnlyWhilePending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, otherNGO, first.ID), types.ErrRequestNotFound)
	require.NoError(t, f.svc.Delete(ctx, ngoActor, first.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, ngoActor, first.ID), types.ErrRequestNotFound)

	second, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, adminActor, second.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, ngoActor, second.ID), types.ErrRequestNotDeletable)
}

func TestRejectCancelsPendingOrApproved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pending, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)

	cancelled, err := f.svc.Reject(ctx, adminActor, pending.ID, "duplicate request")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusCancelled, cancelled.Status)
	assert.Equal(t, "duplicate request", *cancelled.RejectionReason)

	_, err = f.svc.Reject(ctx, adminActor, pending.ID, "again")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	approved, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, adminActor, approved.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, donorA, approved.ID, "")
	assert.ErrorIs(t, err, types.ErrForbidden)

	cancelled, err = f.svc.Reject(ctx, adminActor, approved.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cancelled.RejectionReason)

	_, err = f.svc.Approve(ctx, adminActor, "missing")
	assert.ErrorIs(t, err, types.ErrRequestNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	f.svc.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	_, err := f.svc.Create(context.Background(), ngoActor, &types.FoodRequestForm{
		Quantity:  0,
		Urgency:   "whenever",
		Latitude:  utils.Float64Ptr(10),
		Deadline:  "2026-05-01T00:00:00Z",
		Longitude: nil,
	})

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"title", "quantity", "unit", "urgency", "latitude", "deadline"} {
		assert.Contains(t, verr.FieldErrors, field)
	}

	for _, quantity := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -3} {
		form := lunchForm()
		form.Quantity = quantity

		_, err = f.svc.Create(context.Background(), ngoActor, form)
		require.ErrorAs(t, err, &verr, "quantity %v", quantity)
		assert.Len(t, verr.FieldErrors, 1, "quantity %v", quantity)
		assert.Contains(t, verr.FieldErrors, "quantity", "quantity %v", quantity)
	}
	assert.Empty(t, f.store.requests)

	_, err = f.svc.Create(context.Background(), donorA, lunchForm())
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = f.svc.Create(context.Background(), types.Actor{UserID: "new-ngo", Role: types.RoleNGO}, lunchForm())
	assert.ErrorIs(t, err, types.ErrVerificationRequired)
}

func TestCreateFallsBackToNGOLocation(t *testing.T) {
	f := newFixture()

	request, err := f.svc.Create(context.Background(), ngoActor, lunchForm())
	require.NoError(t, err)
	require.NotNil(t, request.Latitude)
	assert.Equal(t, 19.07, *request.Latitude)
	assert.Equal(t, "1 Dock Road", *request.Address)
}

func TestVolunteerListAndVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ids := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		r, err := f.svc.Create(ctx, ngoActor, lunchForm())
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, adminActor, r.ID)
		require.NoError(t, err)
		_, err = f.svc.Accept(ctx, donorA, r.ID)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	_, err := f.svc.AcceptDelivery(ctx, volunteer, ids[0])
	require.NoError(t, err)

	listed, err := f.svc.List(ctx, volunteer, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	other := types.Actor{UserID: "vol-9", Role: types.RoleVolunteer}
	f.svc.gate.(*fakeGate).volunteers[other.UserID] = true

	listed, err = f.svc.List(ctx, other, ListOptions{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, ids[1], listed[0].ID)

	_, err = f.svc.Get(ctx, other, ids[0])
	assert.ErrorIs(t, err, types.ErrRequestNotFound)

	_, err = f.svc.List(ctx, unverified, ListOptions{})
	assert.ErrorIs(t, err, types.ErrVerificationRequired)

	donorList, err := f.svc.List(ctx, donorA, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, donorList, 1)
	assert.Equal(t, ids[1], donorList[0].ID)
}

func TestAddPhoto(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)

	body := []byte{0xff, 0xd8, 0xff}
	photo, err := f.svc.AddPhoto(ctx, ngoActor, request.ID, &PhotoUpload{
		FileName:    "pickup.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
		Latitude:    utils.Float64Ptr(19.1),
		Longitude:   utils.Float64Ptr(72.9),
	})
	require.NoError(t, err)
	assert.False(t, photo.CapturedAt.IsZero())
	assert.Contains(t, photo.PhotoURL, "food-request-photos/user-ngo/")

	_, err = f.svc.AddPhoto(ctx, otherNGO, request.ID, &PhotoUpload{
		FileName: "x.jpg", ContentType: "image/jpeg", Size: 1, Body: bytes.NewReader([]byte{1}),
		Latitude: utils.Float64Ptr(1), Longitude: utils.Float64Ptr(1),
	})
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = f.svc.AddPhoto(ctx, ngoActor, request.ID, &PhotoUpload{FileName: "x.jpg", ContentType: "image/jpeg", Size: 1})
	assert.True(t, types.IsValidation(err))

	detail, err := f.svc.Get(ctx, ngoActor, request.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Photos, 1)
}

func TestStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, ngoActor, lunchForm())
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, adminActor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[types.RequestStatusPending])
	assert.Equal(t, int64(0), stats[types.RequestStatusCompleted])
	assert.Len(t, stats, len(types.RequestStatuses))

	_, err = f.svc.Stats(ctx, donorA)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestListFiltersByRadius(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	near, err := f.svc.Create(ctx, ngoActor, &types.FoodRequestForm{
		Title: "Near", Quantity: 1, Unit: "kg",
		Latitude: utils.Float64Ptr(19.08), Longitude: utils.Float64Ptr(72.88),
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, ngoActor, &types.FoodRequestForm{
		Title: "Far", Quantity: 1, Unit: "kg",
		Latitude: utils.Float64Ptr(28.61), Longitude: utils.Float64Ptr(77.21),
	})
	require.NoError(t, err)

	listed, err := f.svc.List(ctx, adminActor, ListOptions{Origin: &geo.Point{Lat: 19.07, Lng: 72.87}, RadiusKm: 25})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, near.ID, listed[0].ID)
	assert.NotEmpty(t, listed[0].Distance)
}
