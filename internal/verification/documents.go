package verification

import (
	"context"
	"io"
	"slices"
	"strings"

	"smartplate/internal/metrics"
	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

type Upload struct {
	DocumentType string
	FileName     string
	ContentType  string
	Size         int64
	Body         io.Reader
}

var allowedDocumentMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/webp",
}

func (s *Service) validateUpload(upload *Upload) error {
	errs := map[string]string{}

	if !slices.Contains(types.DocumentTypes, upload.DocumentType) {
		errs["document_type"] = "Choose a valid document type."
	}
	if strings.TrimSpace(upload.FileName) == "" {
		errs["file"] = "A file is required."
	} else if upload.Size <= 0 {
		errs["file"] = "The file is empty."
	} else if s.maxUpload > 0 && upload.Size > s.maxUpload {
		errs["file"] = "The file is too large."
	} else if !slices.Contains(allowedDocumentMimeTypes, upload.ContentType) {
		errs["file"] = "Upload a PDF or an image."
	}

	return types.NewValidationError(errs)
}

// UploadDocument stores the file under the owner's prefix and records it.
func (s *Service) UploadDocument(ctx context.Context, actor types.Actor, upload *Upload) (*types.VerificationDocument, error) {
	if !actor.Role.Verified() {
		return nil, types.ErrForbidden
	}
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	key := utils.ObjectKey(actor.UserID, upload.FileName)
	url, err := s.blobs.Upload(ctx, s.bucket, key, upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		return nil, err
	}
	metrics.Uploads.WithLabelValues(s.bucket).Inc()

	doc := &types.VerificationDocument{
		UserID:        actor.UserID,
		DocumentType:  upload.DocumentType,
		FileName:      upload.FileName,
		FileSizeBytes: upload.Size,
		MimeType:      upload.ContentType,
		StorageKey:    key,
		FileURL:       url,
	}
	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), s.bucket, key); derr != nil {
			s.logger.WithError(derr).WithField("key", key).Warn("failed to remove orphaned document")
		}
		return nil, err
	}

	s.logger.WithField("user_id", actor.UserID).WithField("document_type", doc.DocumentType).Info("verification document uploaded")

	return doc, nil
}

// Documents lists a user's documents. Users see their own; admins see anyone's.
func (s *Service) Documents(ctx context.Context, actor types.Actor, userID string) ([]*types.VerificationDocument, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}
	return s.documents.DocumentsByUserID(ctx, userID)
}

func (s *Service) MarkDocumentVerified(ctx context.Context, actor types.Actor, id string, verified bool) (*types.VerificationDocument, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}
	if err := s.documents.SetDocumentVerified(ctx, id, verified); err != nil {
		return nil, err
	}
	return s.documents.DocumentByID(ctx, id)
}
