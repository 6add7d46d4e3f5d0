package api

import "evalgo.org/gridmapper/internal/refdata"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	Storage    string `json:"storage"`
	Bands      int    `json:"bands"`
	Continents int    `json:"continents"`
	Uptime     string `json:"uptime"`
}

// BandInfo describes one band of the band plan.
type BandInfo struct {
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	VHF     bool     `json:"vhf"`
	Aliases []string `json:"aliases,omitempty"`
}

// ReferenceResponse lists the bands and continents requests may use.
type ReferenceResponse struct {
	Bands      []BandInfo          `json:"bands"`
	Continents []refdata.Continent `json:"continents"`
}
