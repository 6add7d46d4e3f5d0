package contestlog

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"evalgo.org/gridmapper/models"
)

type column int

const (
	colCall column = iota
	colBand
	colGrid
	colMyGrid
	colContinent
	numColumns
)

// columnAliases maps lower-case header names to the column they fill.
var columnAliases = map[string]column{
	"call":          colCall,
	"callsign":      colCall,
	"dx_call":       colCall,
	"band":          colBand,
	"freq":          colBand,
	"frequency":     colBand,
	"freq_mhz":      colBand,
	"grid":          colGrid,
	"gridsquare":    colGrid,
	"grid_square":   colGrid,
	"their_grid":    colGrid,
	"dx_grid":       colGrid,
	"locator":       colGrid,
	"my_grid":       colMyGrid,
	"mygrid":        colMyGrid,
	"my_gridsquare": colMyGrid,
	"continent":     colContinent,
	"cont":          colContinent,
}

// header holds the field index of each column, -1 when absent.
type header [numColumns]int

// detectHeader recognises a header row: one naming at least two of the
// call, band and grid columns. Rows before it are preamble.
func detectHeader(row []string) (header, bool) {
	var h header
	for i := range h {
		h[i] = -1
	}

	required := 0
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		col, ok := columnAliases[key]
		if !ok || h[col] >= 0 {
			continue
		}
		h[col] = i
		if col <= colGrid {
			required++
		}
	}
	return h, required >= 2
}

func (h header) get(row []string, col column) string {
	idx := h[col]
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseColumnar reads a CSV export with a header row.
func parseColumnar(text string, bands BandResolver) *Result {
	res := &Result{Dialect: Columnar}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var (
		h       header
		haveHdr bool
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.fail(perr.StartLine, "malformed CSV row: %v", perr.Err)
				continue
			}
			res.warn(0, "stopped reading CSV: %v", err)
			break
		}
		lineNo, _ := r.FieldPos(0)

		if !haveHdr {
			h, haveHdr = detectHeader(row)
			continue
		}
		if blank(row) {
			continue
		}

		res.CandidateLines++
		rec, ok := parseRow(res, lineNo, h, row, bands)
		if !ok {
			continue
		}
		if res.OperatorGrid == "" {
			if g, ok := cleanGrid(h.get(row, colMyGrid)); ok {
				res.OperatorGrid = g
			}
		}
		res.Records = append(res.Records, rec)
	}

	if !haveHdr {
		res.warn(0, "no header row naming callsign, band and grid columns")
	} else if h[colGrid] < 0 {
		res.warn(0, "header has no grid column")
	}
	return res
}

func parseRow(res *Result, lineNo int, h header, row []string, bands BandResolver) (models.ContactRecord, bool) {
	call := strings.ToUpper(h.get(row, colCall))
	if call == "" {
		res.fail(lineNo, "row has no callsign")
		return models.ContactRecord{}, false
	}

	bandField := h.get(row, colBand)
	if bandField == "" {
		res.fail(lineNo, "%s: row has no band or frequency", call)
		return models.ContactRecord{}, false
	}
	band, err := bands.ResolveBand(bandField)
	if err != nil {
		res.fail(lineNo, "%s: cannot resolve band: %v", call, err)
		return models.ContactRecord{}, false
	}

	rec := models.ContactRecord{
		ContactCallsign: call,
		Band:            band,
		Continent:       strings.ToUpper(h.get(row, colContinent)),
		LineNumber:      lineNo,
	}

	grid, ok := cleanGrid(h.get(row, colGrid))
	switch {
	case ok:
		rec.Grid = grid
	case grid != "":
		res.warn(lineNo, "%s: invalid locator %q", call, grid)
	default:
		res.warn(lineNo, "%s: no locator logged", call)
	}
	return rec, true
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
