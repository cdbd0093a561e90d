package auth

import (
	"math"
	"time"

	"github.com/jansathi/portal/internal/models"
	apperrors "github.com/jansathi/portal/pkg/errors"
)

// RequireLocation validates the client-asserted geolocation that must
// accompany every authentication completion. The value is not
// cryptographically verified; it exists as an audit trail of where logins
// occurred and as a UX gate, not as proof of physical presence.
func RequireLocation(candidate *models.Location) (*models.Location, error) {
	if candidate == nil {
		return nil, apperrors.ErrLocationRequired
	}

	if !isFinite(candidate.Latitude) || !isFinite(candidate.Longitude) || !isFinite(candidate.Accuracy) {
		return nil, apperrors.ErrLocationRequired
	}
	if candidate.Latitude < -90 || candidate.Latitude > 90 {
		return nil, apperrors.ErrLocationRequired
	}
	if candidate.Longitude < -180 || candidate.Longitude > 180 {
		return nil, apperrors.ErrLocationRequired
	}
	if candidate.Accuracy < 0 {
		return nil, apperrors.ErrLocationRequired
	}

	loc := *candidate
	if loc.Timestamp.IsZero() {
		loc.Timestamp = time.Now().UTC()
	}
	return &loc, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
