package geocode

import (
	"context"

	"github.com/rs/zerolog/log"
	"googlemaps.github.io/maps"
)

// Region holds the administrative region names resolved for a coordinate
// pair. Unresolved fields stay empty; geocoding failure never blocks
// ingestion of the underlying image.
type Region struct {
	District string `json:"district"`
	Tehsil   string `json:"tehsil"`
	Village  string `json:"village"`
	Country  string `json:"country"`
}

// Geocoder resolves a coordinate pair to administrative region names.
type Geocoder interface {
	Geocode(ctx context.Context, lat, lng float64) Region
}

// GoogleGeocoder calls the Google Geocoding API through the official client.
type GoogleGeocoder struct {
	client *maps.Client
}

// NewGoogleGeocoder creates a geocoder backed by the Google Geocoding API.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleGeocoder{client: client}, nil
}

// Geocode reverse-geocodes the coordinates. Any failure (network error,
// empty result set) resolves to an all-empty Region.
func (g *GoogleGeocoder) Geocode(ctx context.Context, lat, lng float64) Region {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		log.Warn().Err(err).Float64("lat", lat).Float64("lng", lng).
			Msg("reverse geocoding failed")
		return Region{}
	}
	if len(results) == 0 {
		return Region{}
	}
	return regionFromComponents(results[0].AddressComponents)
}

// regionFromComponents maps Google address components to the four region
// fields. Each field has a fixed fallback order:
//
//	district = administrative_area_level_2, else administrative_area_level_1
//	tehsil   = administrative_area_level_3, else sublocality_level_1
//	village  = locality, else sublocality, else neighborhood
//	country  = country
func regionFromComponents(components []maps.AddressComponent) Region {
	byType := make(map[string]string)
	for _, comp := range components {
		for _, t := range comp.Types {
			if _, seen := byType[t]; !seen {
				byType[t] = comp.LongName
			}
		}
	}

	pick := func(types ...string) string {
		for _, t := range types {
			if name := byType[t]; name != "" {
				return name
			}
		}
		return ""
	}

	return Region{
		District: pick("administrative_area_level_2", "administrative_area_level_1"),
		Tehsil:   pick("administrative_area_level_3", "sublocality_level_1"),
		Village:  pick("locality", "sublocality", "neighborhood"),
		Country:  pick("country"),
	}
}

// Disabled is a geocoder used when no API key is configured; every lookup
// resolves to an empty Region.
type Disabled struct{}

func (Disabled) Geocode(context.Context, float64, float64) Region {
	return Region{}
}
