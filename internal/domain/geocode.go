package domain

import (
	"context"
	"log/slog"
)

// BackfillCoordinates fills missing coordinates from a forward geocode of the
// row's State. If geocoder is nil or a lookup fails or finds nothing, the row
// keeps HasCoordinates=false (graceful degradation). Each state is looked up
// at most once per call. The input slice is not modified.
func BackfillCoordinates(ctx context.Context, rows []Observation, geocoder Geocoder, logger *slog.Logger) []Observation {
	out := make([]Observation, len(rows))
	copy(out, rows)
	if geocoder == nil {
		return out
	}

	type lookup struct {
		result GeocodingResult
		ok     bool
	}
	seen := make(map[string]lookup)

	for i := range out {
		obs := &out[i]
		if obs.HasCoordinates || obs.State == "" {
			continue
		}

		l, done := seen[obs.State]
		if !done {
			result, err := geocoder.ForwardGeocode(ctx, obs.State, GeocodeRegion)
			switch {
			case err != nil:
				logger.Warn("forward geocoding failed",
					"state", obs.State,
					"error", err,
				)
			case result.Lat != 0 || result.Lon != 0:
				l = lookup{result: result, ok: true}
			}
			seen[obs.State] = l
		}
		if !l.ok {
			continue
		}
		obs.Latitude = l.result.Lat
		obs.Longitude = l.result.Lon
		obs.HasCoordinates = true
	}
	return out
}
