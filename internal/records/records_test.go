package records_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/Houeta/batch-geocoder/internal/models"
	"github.com/Houeta/batch-geocoder/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	defer filet.CleanUp(t)

	t.Run("valid input file", func(t *testing.T) {
		content := `[
			{"id":"a1","street_line_1":"1600 Pennsylvania Ave","city":"Washington","zip":"20500","country_code":"US"},
			{"id":"a2","city":"Kyiv","country_code":"UA"}
		]`
		file := filet.TmpFile(t, "", content)

		addresses, err := records.Load(file.Name())

		require.NoError(t, err)
		require.Len(t, addresses, 2)
		assert.Equal(t, "a1", addresses[0].ID)
		assert.Equal(t, "1600 Pennsylvania Ave", addresses[0].StreetLine1)
		assert.Equal(t, "Kyiv", addresses[1].City)
	})

	t.Run("missing file", func(t *testing.T) {
		addresses, err := records.Load("does-not-exist.json")

		require.Nil(t, addresses)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read input file")
	})

	t.Run("malformed json", func(t *testing.T) {
		file := filet.TmpFile(t, "", `{"not": "a list"}`)

		addresses, err := records.Load(file.Name())

		require.Nil(t, addresses)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse input file")
	})
}

func TestWrite(t *testing.T) {
	defer filet.CleanUp(t)

	latitude := 38.8977
	longitude := -77.0365
	formatted := "1600 Pennsylvania Ave NW, Washington, DC 20500"
	errMsg := "no location found for address"

	results := []models.OutputRecord{
		{
			AddressRecord: models.AddressRecord{ID: "a1", City: "Washington", CountryCode: "US"},
			Geocoding: models.GeocodeResult{
				Latitude:         &latitude,
				Longitude:        &longitude,
				FormattedAddress: &formatted,
				Cached:           false,
				Timestamp:        "2026-08-30T12:00:00Z",
			},
		},
		{
			AddressRecord: models.AddressRecord{ID: "a2", City: "Nowhere"},
			Geocoding: models.GeocodeResult{
				Cached:    false,
				Timestamp: "2026-08-30T12:00:02Z",
				Error:     &errMsg,
			},
		},
	}

	t.Run("writes all records with null absent fields", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "out.json")

		require.NoError(t, records.Write(path, results))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		var parsed []map[string]any
		require.NoError(t, json.Unmarshal(raw, &parsed))
		require.Len(t, parsed, 2)

		first, ok := parsed[0]["geocoding"].(map[string]any)
		require.True(t, ok)
		assert.InEpsilon(t, 38.8977, first["latitude"], 0.0001)
		assert.Nil(t, first["error"])

		second, ok := parsed[1]["geocoding"].(map[string]any)
		require.True(t, ok)
		assert.Nil(t, second["latitude"])
		assert.Nil(t, second["longitude"])
		assert.Nil(t, second["formatted_address"])
		assert.Equal(t, errMsg, second["error"])
	})

	t.Run("overwrites previous output", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "out.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"stale":true}]`), 0o600))

		require.NoError(t, records.Write(path, results))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "stale")
	})

	t.Run("unwritable destination", func(t *testing.T) {
		err := records.Write(filepath.Join("no", "such", "dir", "out.json"), results)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create temp output file")
	})
}
