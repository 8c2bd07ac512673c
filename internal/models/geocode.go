package models

// Location represents a geocoded point returned by a provider.
type Location struct {
	Latitude         float64 // Latitude of the geographical point.
	Longitude        float64 // Longitude of the geographical point.
	FormattedAddress string  // FormattedAddress is the provider's canonical form of the address.
}

// GeocodeResult is the per-record outcome attached to the output. Absent
// fields marshal as null. Exactly one of coordinates or Error is set.
type GeocodeResult struct {
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	FormattedAddress *string  `json:"formatted_address"`
	Cached           bool     `json:"cached"`
	Timestamp        string   `json:"timestamp"`
	Error            *string  `json:"error"`
}

// CacheEntry is the persisted form of a successful lookup. Failures have no
// cache representation, which is what makes them retryable on the next run.
type CacheEntry struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	Timestamp        string  `json:"timestamp"`
}

// SuccessResult builds a fresh (non-cached) successful result.
func SuccessResult(loc Location, timestamp string) GeocodeResult {
	return GeocodeResult{
		Latitude:         &loc.Latitude,
		Longitude:        &loc.Longitude,
		FormattedAddress: &loc.FormattedAddress,
		Cached:           false,
		Timestamp:        timestamp,
	}
}

// CachedResult builds a successful result served from the cache.
func CachedResult(entry CacheEntry, timestamp string) GeocodeResult {
	return GeocodeResult{
		Latitude:         &entry.Latitude,
		Longitude:        &entry.Longitude,
		FormattedAddress: &entry.FormattedAddress,
		Cached:           true,
		Timestamp:        timestamp,
	}
}

// FailureResult builds a failed result carrying only an error message.
func FailureResult(message, timestamp string) GeocodeResult {
	return GeocodeResult{
		Cached:    false,
		Timestamp: timestamp,
		Error:     &message,
	}
}

// Entry converts a successful result into its persisted cache form.
func (r GeocodeResult) Entry() CacheEntry {
	return CacheEntry{
		Latitude:         *r.Latitude,
		Longitude:        *r.Longitude,
		FormattedAddress: *r.FormattedAddress,
		Timestamp:        r.Timestamp,
	}
}
