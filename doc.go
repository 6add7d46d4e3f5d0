// Package gridmapper draws Maidenhead grid square maps from amateur radio
// contest logs.
//
// # Overview
//
// A contest log (Cabrillo or a CSV export) is decoded, parsed into contact
// records, located and split into one group per band and continent. Each
// group is rendered as a PNG map with the worked grid squares shaded and
// every contact marked, then stored behind a time-limited download link.
//
//	┌─────────────────┐
//	│  HTTP API       │  POST /api/generate-map
//	│  (Echo REST)    │
//	└────────┬────────┘
//	         │
//	┌────────▼────────┐   decode, parse, locate, classify
//	│  Generator      │
//	└────────┬────────┘
//	         │  errgroup, one task per band/continent
//	┌────────▼────────┐       ┌─────────────────┐
//	│  Renderer       ├──────►│  Store          │
//	│  (x/image)      │       │  (S3 or files)  │
//	└─────────────────┘       └─────────────────┘
//
// # Usage
//
// Start the API server:
//
//	gridmapper server --config configs/config.yaml
//
// Render maps from a local log:
//
//	gridmapper generate w1abc.cbr --callsign W1ABC --continents EU,NA
//
// Look up a locator:
//
//	gridmapper locate FN42
//
// # Configuration
//
// Configuration can be provided via:
//   - YAML file (config.yaml, see "gridmapper config init")
//   - Environment variables (GM_ prefix)
//   - .env file
//
// # API Endpoints
//
//   - POST /api/generate-map   - Generate maps for a log
//   - POST /api/validate       - Validate a request without generating
//   - GET  /api/reference      - Band plan and continent table
//   - GET  /maps/*             - Signed downloads (filesystem backend)
//   - GET  /health             - Health check
//
// # Development
//
// Run tests:
//
//	go test ./...
//
// Build the binary:
//
//	go build -o gridmapper ./cmd/gridmapper
package gridmapper
