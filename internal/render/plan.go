package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"evalgo.org/gridmapper/internal/classify"
	"evalgo.org/gridmapper/internal/maidenhead"
	"evalgo.org/gridmapper/models"
)

var (
	colorBackground = color.NRGBA{R: 0xf4, G: 0xf6, B: 0xf8, A: 0xff}
	colorGraticule  = color.NRGBA{R: 0x9a, G: 0xa5, B: 0xb1, A: 0xff}
	colorSquares    = color.NRGBA{R: 0xc8, G: 0xd0, B: 0xd8, A: 0xff}
	colorLabel      = color.NRGBA{R: 0x6b, G: 0x76, B: 0x82, A: 0xff}
	colorText       = color.NRGBA{R: 0x1f, G: 0x29, B: 0x33, A: 0xff}
	colorOperator   = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorOutline    = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	colorFallback   = color.NRGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
)

const (
	cellAlphaMin = 0x30
	cellAlphaMax = 0xb0
)

// Point is a pixel position.
type Point struct {
	X, Y float64
}

// Line is a stroked segment.
type Line struct {
	From, To Point
	Width    float64
	Color    color.NRGBA
}

// Cell is a worked grid square shaded by how many contacts it holds.
type Cell struct {
	Grid     string
	Count    int
	Min, Max Point
	Fill     color.NRGBA
}

// Marker is a filled circle.
type Marker struct {
	At       Point
	Radius   float64
	Color    color.NRGBA
	Callsign string
	Grid     string
}

// Label is text centred on At.
type Label struct {
	At   Point
	Text string
}

// LegendEntry is one swatch in the legend.
type LegendEntry struct {
	Text  string
	Color color.NRGBA
}

// Plan is the complete set of draw instructions for one map.
type Plan struct {
	Title    string
	Subtitle string
	Width    int
	Height   int
	Extent   maidenhead.Box

	Background color.NRGBA
	BandColor  color.NRGBA

	Graticule   []Line
	SquareLines []Line
	FieldLabels []Label
	Cells       []Cell

	// SquareLabels name the 4-character squares of worked grids. Set only
	// when the group holds 6-character locators.
	SquareLabels []Label

	// Lines run from the operator to each plotted contact, one per marker.
	Lines    []Line
	Markers  []Marker
	Operator *Marker
	Legend   []LegendEntry

	// Contacts and Grids count what the map plots
	Contacts int
	Grids    int

	// Skipped counts contacts lying outside the extent
	Skipped int
}

type projection struct {
	box  maidenhead.Box
	w, h float64
}

func (p projection) point(c models.Coordinate) Point {
	return Point{
		X: (c.Lon - p.box.MinLon) / (p.box.MaxLon - p.box.MinLon) * p.w,
		Y: (p.box.MaxLat - c.Lat) / (p.box.MaxLat - p.box.MinLat) * p.h,
	}
}

// Plan computes the draw instructions for a group. operator may be nil.
func (r *Renderer) Plan(group classify.Group, operator *models.Coordinate) (*Plan, error) {
	var contacts []models.ContactRecord
	for _, c := range group.Contacts {
		if c.Located() {
			contacts = append(contacts, c)
		}
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("%w: %s %s: no plottable contacts", ErrRender, group.Band, group.Scope)
	}

	extent, scopeLabel := r.extent(group.Scope)
	width := r.opts.Width
	height := int(math.Round(float64(width) * (extent.MaxLat - extent.MinLat) / (extent.MaxLon - extent.MinLon)))
	height = min(max(height, minHeight), maxHeight)
	proj := projection{box: extent, w: float64(width), h: float64(height)}

	bandColor, vhf := colorFallback, false
	if b := r.tables.Band(group.Band); b != nil {
		rgba := b.RGBA()
		bandColor = color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: 0xff}
		vhf = b.VHF
	}

	p := &Plan{
		Width:      width,
		Height:     height,
		Extent:     extent,
		Background: colorBackground,
		BandColor:  bandColor,
	}

	p.Graticule = gridLines(proj, 20, 10, 0, 0, 1, colorGraticule)
	if vhf && group.Scope != models.ScopeAll && group.Scope != r.tables.OtherCode() {
		p.SquareLines = gridLines(proj, 2, 1, 20, 10, 0.5, colorSquares)
	}
	p.FieldLabels = fieldLabels(proj)

	counts := make(map[string]int)
	for _, c := range contacts {
		counts[c.Grid]++
	}
	grids := make([]string, 0, len(counts))
	maxCount := 0
	for g, n := range counts {
		grids = append(grids, g)
		maxCount = max(maxCount, n)
	}
	sort.Strings(grids)

	subsquares := false
	for _, g := range grids {
		if len(g) >= 6 {
			subsquares = true
			break
		}
	}
	seenSquares := make(map[string]bool)

	var opPoint *Point
	if operator != nil {
		pt := proj.point(*operator)
		opPoint = &pt
	}

	for _, g := range grids {
		cell, err := maidenhead.Bounds(g)
		if err != nil {
			continue
		}
		topLeft := proj.point(models.Coordinate{Lat: cell.MaxLat, Lon: cell.MinLon})
		bottomRight := proj.point(models.Coordinate{Lat: cell.MinLat, Lon: cell.MaxLon})
		if bottomRight.X < 0 || topLeft.X > proj.w || bottomRight.Y < 0 || topLeft.Y > proj.h {
			continue
		}
		p.Grids++

		fill := bandColor
		fill.A = uint8(cellAlphaMin + (cellAlphaMax-cellAlphaMin)*counts[g]/maxCount)
		p.Cells = append(p.Cells, Cell{Grid: g, Count: counts[g], Min: topLeft, Max: bottomRight, Fill: fill})

		if subsquares {
			if label, ok := squareLabel(proj, g, seenSquares); ok {
				p.SquareLabels = append(p.SquareLabels, label)
			}
		}
	}

	lineColor := bandColor
	lineColor.A = 0x80
	for _, c := range contacts {
		if !extent.Contains(*c.Location) {
			p.Skipped++
			continue
		}
		at := proj.point(*c.Location)
		if opPoint != nil {
			if from, to, ok := clipSegment(*opPoint, at, proj.w, proj.h); ok {
				p.Lines = append(p.Lines, Line{From: from, To: to, Width: 1, Color: lineColor})
			}
		}
		p.Markers = append(p.Markers, Marker{
			At:       at,
			Radius:   r.opts.MarkerRadius,
			Color:    bandColor,
			Callsign: c.ContactCallsign,
			Grid:     c.Grid,
		})
	}
	p.Contacts = len(p.Markers)
	if p.Contacts == 0 {
		return nil, fmt.Errorf("%w: %s %s: no contacts inside the map extent", ErrRender, group.Band, group.Scope)
	}

	callsign := contacts[0].OperatorCallsign
	if operator != nil && extent.Contains(*operator) {
		p.Operator = &Marker{
			At:       *opPoint,
			Radius:   r.opts.MarkerRadius * 1.6,
			Color:    colorOperator,
			Callsign: callsign,
		}
		if grid, err := maidenhead.Encode(*operator, 4); err == nil {
			p.Operator.Grid = grid
		}
	}

	p.Title = fmt.Sprintf("%s %s - %s", callsign, group.Band, scopeLabel)
	p.Subtitle = fmt.Sprintf("%d contact(s), %d grid square(s)", p.Contacts, p.Grids)
	p.Legend = []LegendEntry{{Text: fmt.Sprintf("%s contacts", group.Band), Color: bandColor}}
	p.Legend = append(p.Legend, countScale(bandColor, maxCount)...)
	if p.Operator != nil {
		p.Legend = append(p.Legend, LegendEntry{Text: fmt.Sprintf("%s (%s)", callsign, p.Operator.Grid), Color: colorOperator})
	}
	return p, nil
}

// extent returns the map box and the scope's display name.
func (r *Renderer) extent(scope string) (maidenhead.Box, string) {
	if scope == models.ScopeAll {
		return maidenhead.World, "All continents"
	}
	c, ok := r.tables.Continent(scope)
	if !ok || c.Code == r.tables.OtherCode() {
		label := scope
		if ok {
			label = c.Label
		}
		return maidenhead.World, label
	}
	return c.Box, c.Label
}

// gridLines returns the lines every stepLon/stepLat degrees strictly inside
// the extent, leaving out those on multiples of skipLon/skipLat when non-zero.
func gridLines(p projection, stepLon, stepLat, skipLon, skipLat, width float64, c color.NRGBA) []Line {
	var lines []Line
	for lon := -180 + stepLon; lon < 180; lon += stepLon {
		if lon <= p.box.MinLon || lon >= p.box.MaxLon {
			continue
		}
		if skipLon > 0 && math.Mod(lon+180, skipLon) == 0 {
			continue
		}
		x := p.point(models.Coordinate{Lon: lon, Lat: p.box.MaxLat}).X
		lines = append(lines, Line{From: Point{x, 0}, To: Point{x, p.h}, Width: width, Color: c})
	}
	for lat := -90 + stepLat; lat < 90; lat += stepLat {
		if lat <= p.box.MinLat || lat >= p.box.MaxLat {
			continue
		}
		if skipLat > 0 && math.Mod(lat+90, skipLat) == 0 {
			continue
		}
		y := p.point(models.Coordinate{Lon: p.box.MinLon, Lat: lat}).Y
		lines = append(lines, Line{From: Point{0, y}, To: Point{p.w, y}, Width: width, Color: c})
	}
	return lines
}

// fieldLabels names every Maidenhead field whose centre lies inside the extent.
func fieldLabels(p projection) []Label {
	var labels []Label
	for i := 0; i < 18; i++ {
		for j := 0; j < 18; j++ {
			center := models.Coordinate{Lon: -180 + float64(i)*20 + 10, Lat: -90 + float64(j)*10 + 5}
			if !p.box.Contains(center) {
				continue
			}
			labels = append(labels, Label{
				At:   p.point(center),
				Text: string([]byte{'A' + byte(i), 'A' + byte(j)}),
			})
		}
	}
	return labels
}

// squareLabel labels the 4-character square holding grid once per square.
func squareLabel(p projection, grid string, seen map[string]bool) (Label, bool) {
	loc, err := maidenhead.Normalize(grid)
	if err != nil {
		return Label{}, false
	}
	square := loc[:4]
	if seen[square] {
		return Label{}, false
	}
	seen[square] = true
	box, err := maidenhead.Bounds(square)
	if err != nil || !p.box.Contains(box.Center()) {
		return Label{}, false
	}
	return Label{At: p.point(box.Center()), Text: square}, true
}

// countScale returns legend swatches for the cell shading, lightest first.
// A map where every grid holds one contact needs no scale.
func countScale(band color.NRGBA, maxCount int) []LegendEntry {
	if maxCount < 2 {
		return nil
	}
	steps := []int{1}
	if maxCount > 2 {
		steps = append(steps, (maxCount+1)/2)
	}
	steps = append(steps, maxCount)

	entries := make([]LegendEntry, 0, len(steps))
	for _, n := range steps {
		fill := band
		fill.A = uint8(cellAlphaMin + (cellAlphaMax-cellAlphaMin)*n/maxCount)
		entries = append(entries, LegendEntry{Text: fmt.Sprintf("%d per grid", n), Color: fill})
	}
	return entries
}

// clipSegment clips a segment to the rectangle [0,w]x[0,h] (Liang-Barsky).
func clipSegment(a, b Point, w, h float64) (Point, Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, a.X},
		{dx, w - a.X},
		{-dy, a.Y},
		{dy, h - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return Point{}, Point{}, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return Point{}, Point{}, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return Point{}, Point{}, false
			}
			t1 = math.Min(t1, t)
		}
	}

	return Point{a.X + t0*dx, a.Y + t0*dy}, Point{a.X + t1*dx, a.Y + t1*dy}, true
}
