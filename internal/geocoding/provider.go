package geocoding

import (
	"context"
	"errors"

	"github.com/Houeta/batch-geocoder/internal/models"
)

// ErrNoMatch is returned when the provider found no location for the query.
// It is terminal for the current run but never cached, so the address is
// attempted again on the next run. Any other error is treated as transient.
var ErrNoMatch = errors.New("no location found for address")

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address query string as input,
// and returns the matched location and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, query string) (*models.Location, error)
}
