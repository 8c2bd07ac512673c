package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/batch-geocoder/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of the Google Maps client used by the
// provider, extracted for mocking in tests.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider initializes a new GoogleProvider with the given client and logger.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode resolves an address query to a location using the Google Maps
// Geocoding API. An empty response maps to ErrNoMatch.
func (gp *GoogleProvider) Geocode(ctx context.Context, query string) (*models.Location, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "query", query)

	req := maps.GeocodingRequest{Address: query}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrNoMatch
	}
	best := geocodeResponse[0]
	coords := best.Geometry.Location

	return &models.Location{
		Latitude:         coords.Lat,
		Longitude:        coords.Lng,
		FormattedAddress: best.FormattedAddress,
	}, nil
}
