// Package maidenhead converts Maidenhead grid locators to and from coordinates
// and maps coordinates onto continent regions.
//
// Locators are accepted at 4-character (field + square) and 6-character
// (field + square + subsquare) precision. Decoding yields the centre of the
// cell, never a corner.
package maidenhead

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"evalgo.org/gridmapper/models"
)

// ErrInvalidLocator is returned for locators of the wrong length or alphabet.
var ErrInvalidLocator = errors.New("invalid maidenhead locator")

const (
	fieldLon     = 20.0
	fieldLat     = 10.0
	squareLon    = 2.0
	squareLat    = 1.0
	subsquareLon = squareLon / 24
	subsquareLat = squareLat / 24
)

// Box is a latitude/longitude rectangle, bounds inclusive.
type Box struct {
	MinLat float64 `yaml:"min_lat" json:"minLat"`
	MaxLat float64 `yaml:"max_lat" json:"maxLat"`
	MinLon float64 `yaml:"min_lon" json:"minLon"`
	MaxLon float64 `yaml:"max_lon" json:"maxLon"`
}

// World covers the whole globe.
var World = Box{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

// Contains reports whether c lies inside the box.
func (b Box) Contains(c models.Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b Box) Center() models.Coordinate {
	return models.Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// Valid reports whether locator is a well-formed 4 or 6 character locator.
func Valid(locator string) bool {
	_, err := Normalize(locator)
	return err == nil
}

// Normalize validates locator and returns it trimmed and upper-cased.
func Normalize(locator string) (string, error) {
	loc := strings.ToUpper(strings.TrimSpace(locator))
	if len(loc) != 4 && len(loc) != 6 {
		return "", fmt.Errorf("%w: %q has %d characters, want 4 or 6", ErrInvalidLocator, locator, len(loc))
	}
	for i := 0; i < len(loc); i++ {
		ch := loc[i]
		var ok bool
		switch i {
		case 0, 1:
			ok = ch >= 'A' && ch <= 'R'
		case 2, 3:
			ok = ch >= '0' && ch <= '9'
		default:
			ok = ch >= 'A' && ch <= 'X'
		}
		if !ok {
			return "", fmt.Errorf("%w: %q has %q at position %d", ErrInvalidLocator, locator, ch, i+1)
		}
	}
	return loc, nil
}

// Bounds returns the cell covered by locator.
func Bounds(locator string) (Box, error) {
	loc, err := Normalize(locator)
	if err != nil {
		return Box{}, err
	}

	lon := float64(loc[0]-'A')*fieldLon - 180
	lat := float64(loc[1]-'A')*fieldLat - 90
	lon += float64(loc[2]-'0') * squareLon
	lat += float64(loc[3]-'0') * squareLat
	width, height := squareLon, squareLat

	if len(loc) == 6 {
		lon += float64(loc[4]-'A') * subsquareLon
		lat += float64(loc[5]-'A') * subsquareLat
		width, height = subsquareLon, subsquareLat
	}

	return Box{MinLat: lat, MaxLat: lat + height, MinLon: lon, MaxLon: lon + width}, nil
}

// Decode returns the centre of the cell named by locator.
func Decode(locator string) (models.Coordinate, error) {
	b, err := Bounds(locator)
	if err != nil {
		return models.Coordinate{}, err
	}
	return b.Center(), nil
}

// Encode returns the locator of the cell containing c at the given precision (4 or 6).
func Encode(c models.Coordinate, precision int) (string, error) {
	if precision != 4 && precision != 6 {
		return "", fmt.Errorf("%w: precision %d, want 4 or 6", ErrInvalidLocator, precision)
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return "", fmt.Errorf("%w: coordinate %.4f,%.4f out of range", ErrInvalidLocator, c.Lat, c.Lon)
	}

	// The north pole and antimeridian belong to the last cell.
	lon := math.Min(c.Lon+180, 360-1e-9)
	lat := math.Min(c.Lat+90, 180-1e-9)

	b := []byte{
		'A' + byte(lon/fieldLon),
		'A' + byte(lat/fieldLat),
		'0' + byte(math.Mod(lon, fieldLon)/squareLon),
		'0' + byte(math.Mod(lat, fieldLat)/squareLat),
	}
	if precision == 6 {
		b = append(b,
			'A'+byte(math.Mod(lon, squareLon)/subsquareLon),
			'A'+byte(math.Mod(lat, squareLat)/subsquareLat),
		)
	}
	return string(b), nil
}

// Field returns the two-letter field of a locator, or "" if it is invalid.
func Field(locator string) string {
	loc, err := Normalize(locator)
	if err != nil {
		return ""
	}
	return loc[:2]
}
