package registry

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// Resolve fills gaps left by the listing: facilities without coordinates are
// forward-geocoded from their name within state, and facilities without a place
// name are reverse-geocoded. Lookups that fail or come back empty leave the
// facility as it was; the pipeline then reports it. The input is not modified.
func Resolve(ctx context.Context, geo domain.Geocoder, facilities []domain.Facility, state string, logger *slog.Logger) []domain.Facility {
	out := make([]domain.Facility, len(facilities))
	copy(out, facilities)
	if geo == nil {
		return out
	}

	for i := range out {
		if ctx.Err() != nil {
			break
		}
		f := &out[i]
		if f.Coordinates.IsZero() {
			res, err := geo.ForwardGeocode(ctx, f.Name, state)
			switch {
			case err != nil:
				logger.Warn("forward geocode failed", "facility", f.ID, "name", f.Name, "error", err)
				continue
			case res.Coordinates.IsZero():
				logger.Warn("forward geocode found nothing", "facility", f.ID, "name", f.Name)
				continue
			}
			f.Coordinates = res.Coordinates
			if f.Place == "" {
				f.Place = res.PlaceName
			}
			logger.Debug("facility located", "facility", f.ID, "lat", f.Coordinates.Lat, "lon", f.Coordinates.Lon,
				"confidence", res.Confidence)
		}
		if f.Place == "" {
			res, err := geo.ReverseGeocode(ctx, f.Coordinates.Lat, f.Coordinates.Lon)
			if err != nil {
				logger.Warn("reverse geocode failed", "facility", f.ID, "error", err)
				continue
			}
			f.Place = res.PlaceName
		}
	}
	return out
}
