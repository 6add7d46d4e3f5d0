package models

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ContactRecord is one logged QSO.
type ContactRecord struct {
	// OperatorCallsign is the requesting station's own callsign, uppercase
	OperatorCallsign string `json:"operatorCallsign"`

	// ContactCallsign is the worked station as logged
	ContactCallsign string `json:"contactCallsign"`

	// Band is a band name from the band table (e.g. "20m", "70cm")
	Band string `json:"band"`

	// Grid is the logged Maidenhead locator, uppercase; empty when the log carried none
	Grid string `json:"grid,omitempty"`

	// Continent is the 2-letter continent code, set once the locator is resolved
	Continent string `json:"continent,omitempty"`

	// Location is the centre of the Grid cell; nil until resolved or when Grid does not decode
	Location *Coordinate `json:"location,omitempty"`

	// LineNumber is the 1-based source line, kept for diagnostics
	LineNumber int `json:"lineNumber"`
}

// Located reports whether the contact can be plotted.
func (c ContactRecord) Located() bool {
	return c.Location != nil
}
