package models

// AddressRecord is a single input address. Records are read once from the
// input file and are not mutated during processing.
type AddressRecord struct {
	ID          string `json:"id"`            // ID is the unique identifier for the record.
	StreetLine1 string `json:"street_line_1"` // StreetLine1 is the street address.
	City        string `json:"city"`          // City name.
	Zip         string `json:"zip"`           // Zip is the postal code.
	State       string `json:"state"`         // State or region (optional).
	CountryCode string `json:"country_code"`  // CountryCode is the ISO country code.
}

// OutputRecord is an AddressRecord annotated with its geocoding result.
type OutputRecord struct {
	AddressRecord

	Geocoding GeocodeResult `json:"geocoding"`
}
