// Package refdata holds the immutable reference tables the engine works from:
// the amateur band plan (display order, colours, frequency ranges, aliases)
// and the continent bounding boxes.
//
// Tables are loaded once, from the embedded YAML or from override files, and
// shared by reference. Nothing mutates a Tables after Load returns.
package refdata

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"evalgo.org/gridmapper/internal/maidenhead"
	"evalgo.org/gridmapper/models"
)

//go:embed bands.yaml
var embeddedBands []byte

//go:embed continents.yaml
var embeddedContinents []byte

var (
	// ErrUnknownBand is returned when a band field or frequency matches no band.
	ErrUnknownBand = errors.New("unknown band")

	// ErrUnknownContinent is returned for continent codes or names not in the table.
	ErrUnknownContinent = errors.New("unknown continent")
)

// Range is an inclusive frequency range in kHz.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Band is one entry of the band plan.
type Band struct {
	Name    string   `yaml:"name"`
	Color   string   `yaml:"color"`
	VHF     bool     `yaml:"vhf"`
	Aliases []string `yaml:"aliases"`
	Ranges  []Range  `yaml:"ranges_khz"`

	rgba  color.RGBA
	order int
}

// RGBA returns the band colour.
func (b *Band) RGBA() color.RGBA { return b.rgba }

// Order returns the position of the band in the band plan.
func (b *Band) Order() int { return b.order }

// Continent is one continent boundary.
type Continent struct {
	Code  string         `yaml:"code" json:"code"`
	Name  string         `yaml:"name" json:"name"`
	Label string         `yaml:"label" json:"label"`
	Box   maidenhead.Box `yaml:"box" json:"box"`
}

type bandsFile struct {
	Bands []*Band `yaml:"bands"`
}

type continentsFile struct {
	Continents []Continent `yaml:"continents"`
	Other      Continent   `yaml:"other"`
}

// Tables is the loaded reference data.
type Tables struct {
	bands      []*Band
	bandIndex  map[string]*Band
	continents []Continent
	other      Continent
	contIndex  map[string]*Continent
	regions    []maidenhead.Region
}

var defaultTables = sync.OnceValue(func() *Tables {
	t, err := parse(embeddedBands, embeddedContinents)
	if err != nil {
		panic(fmt.Sprintf("refdata: embedded tables are invalid: %v", err))
	}
	return t
})

// Default returns the shared tables built from the embedded data.
func Default() *Tables {
	return defaultTables()
}

// Load reads the tables. An empty path selects the embedded file for that table.
func Load(bandsPath, continentsPath string) (*Tables, error) {
	bands, conts := embeddedBands, embeddedContinents

	if bandsPath != "" {
		data, err := os.ReadFile(bandsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read band table: %w", err)
		}
		bands = data
	}
	if continentsPath != "" {
		data, err := os.ReadFile(continentsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read continent table: %w", err)
		}
		conts = data
	}

	return parse(bands, conts)
}

func parse(bandsData, continentsData []byte) (*Tables, error) {
	var bf bandsFile
	if err := yaml.Unmarshal(bandsData, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse band table: %w", err)
	}
	if len(bf.Bands) == 0 {
		return nil, fmt.Errorf("band table is empty")
	}

	var cf continentsFile
	if err := yaml.Unmarshal(continentsData, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse continent table: %w", err)
	}
	if cf.Other.Code == "" {
		cf.Other = Continent{Code: "OT", Name: "other", Label: "Other"}
	}

	t := &Tables{
		bands:      bf.Bands,
		bandIndex:  make(map[string]*Band),
		continents: cf.Continents,
		other:      cf.Other,
		contIndex:  make(map[string]*Continent),
	}

	for i, b := range t.bands {
		if b.Name == "" {
			return nil, fmt.Errorf("band %d has no name", i+1)
		}
		rgba, err := parseHexColor(b.Color)
		if err != nil {
			return nil, fmt.Errorf("band %s: %w", b.Name, err)
		}
		b.rgba = rgba
		b.order = i

		for _, key := range append([]string{b.Name}, b.Aliases...) {
			key = strings.ToLower(key)
			if prev, ok := t.bandIndex[key]; ok {
				return nil, fmt.Errorf("band key %q used by both %s and %s", key, prev.Name, b.Name)
			}
			t.bandIndex[key] = b
		}
	}

	for i := range t.continents {
		c := &t.continents[i]
		c.Code = strings.ToUpper(c.Code)
		if len(c.Code) != 2 {
			return nil, fmt.Errorf("continent %q: code must have two letters", c.Code)
		}
		if c.Box.MinLat > c.Box.MaxLat || c.Box.MinLon > c.Box.MaxLon {
			return nil, fmt.Errorf("continent %s: box is inverted", c.Code)
		}
		t.index(c)
		t.regions = append(t.regions, maidenhead.Region{Code: c.Code, Box: c.Box})
	}
	t.other.Code = strings.ToUpper(t.other.Code)
	t.other.Box = maidenhead.World
	t.index(&t.other)

	return t, nil
}

func (t *Tables) index(c *Continent) {
	for _, key := range []string{c.Code, c.Name, c.Label} {
		if key != "" {
			t.contIndex[strings.ToLower(key)] = c
		}
	}
}

// ResolveBand maps a band field to a band name. It accepts band names and
// aliases ("20m", "1.2G"), Cabrillo band shorthands in MHz ("50", "144"),
// kHz frequencies ("14074") and MHz frequencies ("14.074").
func (t *Tables) ResolveBand(field string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(field))
	if key == "" {
		return "", fmt.Errorf("%w: empty band", ErrUnknownBand)
	}
	if b, ok := t.bandIndex[key]; ok {
		return b.Name, nil
	}

	f, err := strconv.ParseFloat(key, 64)
	if err != nil || f <= 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownBand, field)
	}
	if b := t.bandForKHz(f); b != nil {
		return b.Name, nil
	}
	if b := t.bandForKHz(f * 1000); b != nil {
		return b.Name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBand, field)
}

func (t *Tables) bandForKHz(khz float64) *Band {
	for _, b := range t.bands {
		for _, r := range b.Ranges {
			if khz >= r.Min && khz <= r.Max {
				return b
			}
		}
	}
	return nil
}

// Band returns the named band, or nil.
func (t *Tables) Band(name string) *Band {
	return t.bandIndex[strings.ToLower(name)]
}

// BandOrder returns the display position of a band; unknown bands sort last.
func (t *Tables) BandOrder(name string) int {
	if b := t.Band(name); b != nil {
		return b.order
	}
	return len(t.bands)
}

// Bands returns the band names in display order.
func (t *Tables) Bands() []string {
	names := make([]string, len(t.bands))
	for i, b := range t.bands {
		names[i] = b.Name
	}
	return names
}

// ContinentOf returns the continent code for a coordinate.
func (t *Tables) ContinentOf(c models.Coordinate) string {
	return maidenhead.ContinentOf(c, t.regions, t.other.Code)
}

// NormalizeContinent resolves a code, name or label ("EU", "europe",
// "North America") to a continent code.
func (t *Tables) NormalizeContinent(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	if c, ok := t.contIndex[key]; ok {
		return c.Code, nil
	}
	if c, ok := t.contIndex[strings.ReplaceAll(key, " ", "_")]; ok {
		return c.Code, nil
	}
	if c, ok := t.contIndex[strings.ReplaceAll(key, "_", " ")]; ok {
		return c.Code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContinent, s)
}

// Continent returns the continent for a code, including the catch-all.
func (t *Tables) Continent(code string) (Continent, bool) {
	c, ok := t.contIndex[strings.ToLower(code)]
	if !ok {
		return Continent{}, false
	}
	return *c, true
}

// ContinentCodes returns the codes of the bounded continents in match order.
func (t *Tables) ContinentCodes() []string {
	codes := make([]string, len(t.continents))
	for i, c := range t.continents {
		codes[i] = c.Code
	}
	return codes
}

// OtherCode returns the catch-all continent code.
func (t *Tables) OtherCode() string {
	return t.other.Code
}

func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
