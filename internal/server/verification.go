package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"smartplate/internal/verification"
	"smartplate/pkg/types"

	"github.com/alexedwards/flow"
)

// multipartFile is an uploaded form file with the size and type the client
// declared for it.
type multipartFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// formFile parses a multipart body and opens the named file. A missing file
// is returned as a zero multipartFile so validation can report it per field.
func (s *Service) formFile(w http.ResponseWriter, r *http.Request, field string) (multipartFile, error) {
	limit := s.config.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	if err := r.ParseMultipartForm(limit); err != nil {
		return multipartFile{}, err
	}

	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return multipartFile{}, nil
	}
	if err != nil {
		return multipartFile{}, err
	}

	return multipartFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, nil
}

func (s *Service) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	decision, err := s.verification.Gate(ctx, actorFromContext(ctx))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, decision)
}

func (s *Service) handlePutNGODetails(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var form types.NGODetailsForm
	if err := s.decodeForm(r, &form); err != nil {
		s.badRequest(w, "Unable to read the organization details.")
		return
	}

	details, err := s.verification.SubmitNGO(ctx, actorFromContext(ctx), &form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, details)
}

func (s *Service) handlePutVolunteerDetails(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var form types.VolunteerDetailsForm
	if err := s.decodeForm(r, &form); err != nil {
		s.badRequest(w, "Unable to read the volunteer details.")
		return
	}

	details, err := s.verification.SubmitVolunteer(ctx, actorFromContext(ctx), &form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, details)
}

func (s *Service) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	documents, err := s.verification.Documents(ctx, actor, actor.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, documents)
}

func (s *Service) handlePostDocument(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	file, err := s.formFile(w, r, "file")
	if err != nil {
		s.logger.WithError(err).Info("failed to parse document upload")
		s.badRequest(w, "Unable to read the uploaded file.")
		return
	}
	if file.Body != nil {
		defer file.Body.Close()
	}

	document, err := s.verification.UploadDocument(ctx, actorFromContext(ctx), &verification.Upload{
		DocumentType: strings.TrimSpace(r.FormValue("document_type")),
		FileName:     file.Name,
		ContentType:  file.ContentType,
		Size:         file.Size,
		Body:         file.Body,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, document)
}

func (s *Service) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	kind, ok := verification.ParseKind(flow.Param(ctx, "kind"))
	if !ok {
		s.writeError(w, r, types.ErrDetailsNotFound)
		return
	}

	status := types.VerificationStatus(strings.ToLower(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		s.badRequest(w, "Unknown verification status.")
		return
	}

	var (
		result any
		err    error
	)
	switch kind {
	case verification.KindNGO:
		result, err = s.verification.PendingNGOs(ctx, actor, status)
	case verification.KindVolunteer:
		result, err = s.verification.PendingVolunteers(ctx, actor, status)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleApproveVerification(w http.ResponseWriter, r *http.Request) {
	s.reviewVerification(w, r, verification.Review{Approve: true})
}

func (s *Service) handleRejectVerification(w http.ResponseWriter, r *http.Request) {
	s.reviewVerification(w, r, verification.Review{Reason: r.FormValue("reason")})
}

func (s *Service) reviewVerification(w http.ResponseWriter, r *http.Request, review verification.Review) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	kind, ok := verification.ParseKind(flow.Param(ctx, "kind"))
	if !ok {
		s.writeError(w, r, types.ErrDetailsNotFound)
		return
	}

	var (
		result any
		err    error
	)
	switch kind {
	case verification.KindNGO:
		result, err = s.verification.ReviewNGO(ctx, actor, idParam(r), review)
	case verification.KindVolunteer:
		result, err = s.verification.ReviewVolunteer(ctx, actor, idParam(r), review)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleListUserDocuments(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	documents, err := s.verification.Documents(ctx, actorFromContext(ctx), idParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, documents)
}

func (s *Service) handlePostVerifyDocument(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	verified := true
	if value := r.FormValue("verified"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			s.badRequest(w, "verified must be true or false.")
			return
		}
		verified = parsed
	}

	document, err := s.verification.MarkDocumentVerified(ctx, actorFromContext(ctx), idParam(r), verified)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, document)
}
