package models

// FailureKind classifies a failed generation for transport mapping.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureValidation
	FailureNoContacts
	FailureStore
	FailureInternal
)

// MapLink is one downloadable map in a GenerationResult.
type MapLink struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
	StorageKey  string `json:"storageKey,omitempty"`
}

// GenerationResult is the response contract of a map generation.
type GenerationResult struct {
	Success       bool      `json:"success"`
	Callsign      string    `json:"callsign,omitempty"`
	MapsGenerated int       `json:"mapsGenerated"`
	Maps          []MapLink `json:"maps"`
	LogOutput     string    `json:"logOutput,omitempty"`
	Error         string    `json:"error,omitempty"`

	// Failure is not serialised; transports use it to pick a status code
	Failure FailureKind `json:"-"`
}
