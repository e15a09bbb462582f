package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartplate/internal/geo"
	"smartplate/internal/location"
	"smartplate/pkg/types"
)

// handleGetLocation waits for the caller's device to report a fix, reusing
// a recent one unless refresh is set.
func (s *Service) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	acquirer := s.locations.For(ctx, actor.UserID)

	var err error
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		_, err = acquirer.Refresh(ctx)
	} else {
		_, err = acquirer.Acquire(ctx)
	}

	status := http.StatusOK
	if err != nil {
		status, _, _ = errorStatus(err)
	}

	s.writeJSON(w, status, acquirer.State())
}

// handlePostLocation records what the caller's device reported: a fix, or
// the error code it got instead.
func (s *Service) handlePostLocation(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	report, errs := locationReport(r, time.Now())
	if len(errs) > 0 {
		s.writeError(w, r, types.NewValidationError(errs))
		return
	}

	if err := s.fixes.Save(ctx, actor.UserID, report); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func locationReport(r *http.Request, now time.Time) (location.Report, map[string]string) {
	errs := map[string]string{}
	report := location.Report{ReportedAt: now}

	if code := location.Code(strings.TrimSpace(r.FormValue("error"))); code != "" {
		if !code.Valid() {
			errs["error"] = "Unknown location error code."
		}
		report.Code = code
		return report, errs
	}

	lat := formFloat(r, "latitude", errs)
	lng := formFloat(r, "longitude", errs)
	if len(errs) > 0 {
		return report, errs
	}
	if lat == nil || lng == nil {
		errs["latitude"] = "Latitude and longitude are required."
		return report, errs
	}
	if !geo.ValidCoordinates(*lat, *lng) {
		errs["latitude"] = "Coordinates are out of range."
		return report, errs
	}

	report.Fix = location.Fix{Latitude: *lat, Longitude: *lng, Timestamp: now}
	if accuracy := formFloat(r, "accuracy", errs); accuracy != nil {
		report.Fix.Accuracy = *accuracy
	}
	if value := strings.TrimSpace(r.FormValue("timestamp")); value != "" {
		timestamp, err := time.Parse(time.RFC3339, value)
		if err != nil {
			errs["timestamp"] = "timestamp must be an RFC 3339 timestamp."
		} else {
			report.Fix.Timestamp = timestamp
		}
	}

	return report, errs
}
