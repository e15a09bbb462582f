package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartplate/internal/geo"
	"smartplate/internal/requests"
	"smartplate/pkg/types"
)

// listOptions reads the optional origin and radius from the query string.
func listOptions(r *http.Request) (requests.ListOptions, map[string]string) {
	var (
		opts  requests.ListOptions
		errs  = map[string]string{}
		query = r.URL.Query()
	)

	lat, lng := strings.TrimSpace(query.Get("lat")), strings.TrimSpace(query.Get("lng"))
	if lat != "" || lng != "" {
		latitude, latErr := strconv.ParseFloat(lat, 64)
		longitude, lngErr := strconv.ParseFloat(lng, 64)
		switch {
		case latErr != nil || lngErr != nil:
			errs["lat"] = "lat and lng must both be numbers."
		case !geo.ValidCoordinates(latitude, longitude):
			errs["lat"] = "Coordinates are out of range."
		default:
			opts.Origin = &geo.Point{Lat: latitude, Lng: longitude}
		}
	}

	if radius := strings.TrimSpace(query.Get("radius_km")); radius != "" {
		value, err := strconv.ParseFloat(radius, 64)
		if err != nil || !geo.Finite(value) || value < 0 {
			errs["radius_km"] = "radius_km must be a positive number."
		} else {
			opts.RadiusKm = value
		}
	}

	return opts, errs
}

func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	opts, errs := listOptions(r)
	if len(errs) > 0 {
		s.writeError(w, r, types.NewValidationError(errs))
		return
	}

	listings, err := s.requests.List(ctx, actorFromContext(ctx), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, listings)
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	detail, err := s.requests.Get(ctx, actorFromContext(ctx), idParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Service) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var form types.FoodRequestForm
	if err := s.decodeForm(r, &form); err != nil {
		s.badRequest(w, "Unable to read the request form.")
		return
	}

	request, err := s.requests.Create(ctx, actorFromContext(ctx), &form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, request)
}

func (s *Service) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	if err := s.requests.Delete(ctx, actorFromContext(ctx), idParam(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handlePostApproveRequest(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	s.writeTransition(w, r)(s.requests.Approve(ctx, actorFromContext(ctx), idParam(r)))
}

func (s *Service) handlePostRejectRequest(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	s.writeTransition(w, r)(s.requests.Reject(ctx, actorFromContext(ctx), idParam(r), r.FormValue("reason")))
}

func (s *Service) handlePostAccept(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	s.writeTransition(w, r)(s.requests.Accept(ctx, actorFromContext(ctx), idParam(r)))
}

func (s *Service) handlePostDeliver(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	s.writeTransition(w, r)(s.requests.AcceptDelivery(ctx, actorFromContext(ctx), idParam(r)))
}

func (s *Service) handlePostComplete(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	s.writeTransition(w, r)(s.requests.Complete(ctx, actorFromContext(ctx), idParam(r)))
}

func (s *Service) writeTransition(w http.ResponseWriter, r *http.Request) func(*types.FoodRequest, error) {
	return func(request *types.FoodRequest, err error) {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, request)
	}
}

func (s *Service) handlePostRequestPhoto(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	file, err := s.formFile(w, r, "photo")
	if err != nil {
		s.logger.WithError(err).Info("failed to parse photo upload")
		s.badRequest(w, "Unable to read the uploaded photo.")
		return
	}
	if file.Body != nil {
		defer file.Body.Close()
	}

	upload := &requests.PhotoUpload{
		FileName:    file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        file.Body,
	}

	errs := map[string]string{}
	upload.Latitude = formFloat(r, "latitude", errs)
	upload.Longitude = formFloat(r, "longitude", errs)
	if value := strings.TrimSpace(r.FormValue("captured_at")); value != "" {
		capturedAt, err := time.Parse(time.RFC3339, value)
		if err != nil {
			errs["captured_at"] = "captured_at must be an RFC 3339 timestamp."
		}
		upload.CapturedAt = capturedAt
	}
	if len(errs) > 0 {
		s.writeError(w, r, types.NewValidationError(errs))
		return
	}

	photo, err := s.requests.AddPhoto(ctx, actorFromContext(ctx), idParam(r), upload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, photo)
}

func (s *Service) handleGetStats(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	stats, err := s.requests.Stats(ctx, actorFromContext(ctx))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func formFloat(r *http.Request, field string, errs map[string]string) *float64 {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || !geo.Finite(parsed) {
		errs[field] = "Must be a number."
		return nil
	}
	return &parsed
}
