package models

import (
	"strings"
)

// ScopeAll is the continent scope of a map that applies no continent filter.
const ScopeAll = "ALL"

// MapArtifact is one rendered map.
type MapArtifact struct {
	Band     string `json:"band"`
	Scope    string `json:"scope"`
	Filename string `json:"filename"`
	Image    []byte `json:"-"`

	// Contacts and Grids count what was plotted
	Contacts int `json:"contacts"`
	Grids    int `json:"grids"`
}

// MapFilename builds the artifact filename {callsign}_{band}_{region}.png.
// Spaces inside the region are joined with underscores; a '/' in the callsign
// (portable or region suffixes) becomes '-' so the name stays a single path segment
// and the callsign never contains the '_' separator.
func MapFilename(callsign, band, region string) string {
	call := strings.NewReplacer("/", "-", "_", "-", " ", "").Replace(strings.ToUpper(callsign))
	region = strings.Join(strings.Fields(region), "_")
	if region == "" {
		region = ScopeAll
	}
	return call + "_" + band + "_" + region + ".png"
}

// ParseMapFilename recovers band and region from a map filename the way the
// presentation layer does: the second '_' part is the band, the rest is the region.
func ParseMapFilename(filename string) (callsign, band, region string, ok bool) {
	if !strings.HasSuffix(filename, ".png") {
		return "", "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(filename, ".png"), "_")
	if len(parts) < 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], strings.Join(parts[2:], " "), true
}
