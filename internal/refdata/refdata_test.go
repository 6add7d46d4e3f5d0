package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/gridmapper/models"
)

func TestResolveBand(t *testing.T) {
	tables := Default()

	tests := []struct {
		field string
		want  string
	}{
		{"20m", "20m"},
		{"20M", "20m"},
		{"14074", "20m"},
		{"14.074", "20m"},
		{"7000", "40m"},
		{"3.5", "80m"},
		{"1800", "160m"},
		{"50", "6m"},
		{"144", "2m"},
		{"222", "1.25m"},
		{"432", "70cm"},
		{"1.2G", "23cm"},
		{"10G", "3cm"},
		{"24g", "1.25cm"},
		{"241G", "1mm"},
		{"137.0", "2190m"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := tables.ResolveBand(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveBand_Unknown(t *testing.T) {
	tables := Default()

	for _, field := range []string{"", "99m", "6500", "-14", "abc"} {
		_, err := tables.ResolveBand(field)
		assert.ErrorIs(t, err, ErrUnknownBand, field)
	}
}

func TestBandOrder(t *testing.T) {
	tables := Default()

	assert.Less(t, tables.BandOrder("160m"), tables.BandOrder("80m"))
	assert.Less(t, tables.BandOrder("40m"), tables.BandOrder("20m"))
	assert.Less(t, tables.BandOrder("10m"), tables.BandOrder("6m"))
	assert.Less(t, tables.BandOrder("70cm"), tables.BandOrder("23cm"))
	assert.Equal(t, len(tables.Bands()), tables.BandOrder("nope"))
}

func TestBand_Attributes(t *testing.T) {
	tables := Default()

	b := tables.Band("2m")
	require.NotNil(t, b)
	assert.True(t, b.VHF)
	assert.Equal(t, uint8(0xff), b.RGBA().A)

	hf := tables.Band("20m")
	require.NotNil(t, hf)
	assert.False(t, hf.VHF)
}

func TestNormalizeContinent(t *testing.T) {
	tables := Default()

	tests := []struct {
		in   string
		want string
	}{
		{"EU", "EU"},
		{"eu", "EU"},
		{"europe", "EU"},
		{"north_america", "NA"},
		{"North America", "NA"},
		{"south-america", "SA"},
		{"OT", "OT"},
		{"other", "OT"},
	}

	for _, tt := range tests {
		got, err := tables.NormalizeContinent(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := tables.NormalizeContinent("atlantis")
	assert.ErrorIs(t, err, ErrUnknownContinent)
}

func TestContinentOf(t *testing.T) {
	tables := Default()

	assert.Equal(t, "NA", tables.ContinentOf(models.Coordinate{Lat: 40.5, Lon: -75}))
	assert.Equal(t, "EU", tables.ContinentOf(models.Coordinate{Lat: 51.5, Lon: 7}))
	assert.Equal(t, "SA", tables.ContinentOf(models.Coordinate{Lat: -23.5, Lon: -47}))
	assert.Equal(t, "OC", tables.ContinentOf(models.Coordinate{Lat: -33.5, Lon: 151}))
	assert.Equal(t, "OT", tables.ContinentOf(models.Coordinate{Lat: -70, Lon: 0}))
	assert.Equal(t, []string{"NA", "SA", "EU", "AF", "AS", "OC"}, tables.ContinentCodes())
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	bands := filepath.Join(dir, "bands.yaml")
	require.NoError(t, os.WriteFile(bands, []byte(`
bands:
  - name: 2m
    color: "#112233"
    vhf: true
    ranges_khz: [{min: 144000, max: 146000}]
`), 0o644))

	tables, err := Load(bands, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"2m"}, tables.Bands())
	got, err := tables.ResolveBand("145.5")
	require.NoError(t, err)
	assert.Equal(t, "2m", got)

	_, err = tables.ResolveBand("14074")
	assert.ErrorIs(t, err, ErrUnknownBand)

	// continents still come from the embedded table
	assert.Len(t, tables.ContinentCodes(), 6)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"), "")
	assert.Error(t, err)

	badColor := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badColor, []byte("bands:\n  - name: 2m\n    color: red\n"), 0o644))
	_, err = Load(badColor, "")
	assert.Error(t, err)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte(`
bands:
  - {name: 2m, color: "#000000"}
  - {name: 70cm, color: "#000000", aliases: ["2M"]}
`), 0o644))
	_, err = Load(dup, "")
	assert.Error(t, err)
}
