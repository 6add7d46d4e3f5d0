package models

import "strings"

// GenerationRequest is one API invocation's input.
type GenerationRequest struct {
	// Callsign of the operating station; normalised to uppercase
	Callsign string `json:"callsign" validate:"required,max=20,callsign"`

	// Continents restricts maps to these continents; empty means all continents
	Continents []string `json:"continents" validate:"max=8,dive,continent"`

	// FileContent is the log, base64 or data-URL encoded (plain text is accepted too)
	FileContent string `json:"fileContent" validate:"required"`

	// FileName selects the parsing dialect by extension
	FileName string `json:"fileName" validate:"max=255"`

	// GridLocator is the operator's own locator; overrides one found in the log
	GridLocator string `json:"gridLocator,omitempty" validate:"omitempty,locator"`
}

// DefaultFileName is used when the caller does not name the log.
const DefaultFileName = "contest_log"

// Normalize trims and upper-cases the identifying fields in place.
func (r *GenerationRequest) Normalize() {
	r.Callsign = strings.ToUpper(strings.TrimSpace(r.Callsign))
	r.GridLocator = strings.ToUpper(strings.TrimSpace(r.GridLocator))
	r.FileName = strings.TrimSpace(r.FileName)
	if r.FileName == "" {
		r.FileName = DefaultFileName
	}

	continents := make([]string, 0, len(r.Continents))
	for _, c := range r.Continents {
		if c = strings.TrimSpace(c); c != "" {
			continents = append(continents, c)
		}
	}
	r.Continents = continents
}
