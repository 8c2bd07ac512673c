package normalize

import (
	"errors"
	"strings"

	"github.com/Houeta/batch-geocoder/internal/models"
)

// ErrNoAddressFields is returned when a record has no usable address fields
// after trimming whitespace.
var ErrNoAddressFields = errors.New("address record has no usable fields")

// Query builds the deterministic query string for an address record. Present
// fields are joined in fixed priority order (street, city, state, zip,
// country) with a comma separator. The result doubles as the cache key and
// as the literal query sent to the geocoding provider.
func Query(record models.AddressRecord) (string, error) {
	parts := make([]string, 0, 5)

	if street := strings.TrimSpace(record.StreetLine1); street != "" {
		parts = append(parts, street)
	}
	if city := strings.TrimSpace(record.City); city != "" {
		parts = append(parts, city)
	}
	if state := strings.TrimSpace(record.State); state != "" {
		parts = append(parts, state)
	}
	if zip := strings.TrimSpace(record.Zip); zip != "" {
		parts = append(parts, zip)
	}
	if country := strings.ToUpper(strings.TrimSpace(record.CountryCode)); country != "" {
		parts = append(parts, country)
	}

	if len(parts) == 0 {
		return "", ErrNoAddressFields
	}

	return strings.Join(parts, ", "), nil
}
