package requests

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"smartplate/internal/geo"
	"smartplate/internal/metrics"
	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

// PhotoUpload is a geo-tagged photo taken at upload time.
type PhotoUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	Latitude    *float64
	Longitude   *float64
	CapturedAt  time.Time
}

var allowedPhotoMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

func (s *Service) validatePhoto(upload *PhotoUpload) error {
	errs := map[string]string{}

	switch {
	case strings.TrimSpace(upload.FileName) == "":
		errs["photo"] = "A photo is required."
	case upload.Size <= 0:
		errs["photo"] = "The photo is empty."
	case s.maxUpload > 0 && upload.Size > s.maxUpload:
		errs["photo"] = "The photo is too large."
	case !slices.Contains(allowedPhotoMimeTypes, upload.ContentType):
		errs["photo"] = "Upload a JPEG, PNG, WebP or HEIC image."
	}

	if upload.Latitude == nil || upload.Longitude == nil {
		errs["latitude"] = "Photo location is required."
	} else if !geo.ValidCoordinates(*upload.Latitude, *upload.Longitude) {
		errs["latitude"] = "Coordinates are out of range."
	}

	return types.NewValidationError(errs)
}

// AddPhoto attaches a geo-tagged photo to one of the NGO's requests.
func (s *Service) AddPhoto(ctx context.Context, actor types.Actor, requestID string, upload *PhotoUpload) (*types.FoodRequestPhoto, error) {
	if actor.Role != types.RoleNGO {
		return nil, types.ErrForbidden
	}
	if err := s.validatePhoto(upload); err != nil {
		return nil, err
	}

	ngo, err := s.gate.ApprovedNGO(ctx, actor)
	if err != nil {
		return nil, err
	}

	request, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.NGOID != ngo.ID {
		return nil, types.ErrForbidden
	}

	capturedAt := upload.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}

	key := utils.ObjectKey(actor.UserID, upload.FileName)
	url, err := s.blobs.Upload(ctx, s.photoBucket, key, upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		return nil, err
	}
	metrics.Uploads.WithLabelValues(s.photoBucket).Inc()

	photo := &types.FoodRequestPhoto{
		RequestID:  requestID,
		UploadedBy: actor.UserID,
		StorageKey: key,
		PhotoURL:   url,
		Latitude:   *upload.Latitude,
		Longitude:  *upload.Longitude,
		CapturedAt: capturedAt,
	}
	if err := s.photos.CreatePhoto(ctx, photo); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), s.photoBucket, key); derr != nil {
			s.logger.WithError(derr).WithField("key", key).Warn("failed to remove orphaned photo")
		}
		return nil, err
	}

	return photo, nil
}
