// Package contestlog turns raw contest log text into ordered contact records.
//
// Two dialects are understood: the line-oriented Cabrillo format and columnar
// CSV exports. A bad line never fails the parse; it becomes a Warning and the
// parse continues. Parsing is a pure function of its input.
package contestlog

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"evalgo.org/gridmapper/internal/maidenhead"
	"evalgo.org/gridmapper/models"
)

// ErrNoValidContacts is returned when no record carries a decodable locator.
var ErrNoValidContacts = errors.New("no valid contacts found")

// DefaultFallbackThreshold is the failed-line share above which the other
// dialect is tried.
const DefaultFallbackThreshold = 0.5

// Dialect identifies a log format.
type Dialect int

const (
	// LineOriented is the Cabrillo format: header tags and QSO: lines.
	LineOriented Dialect = iota
	// Columnar is a delimited export with a header row.
	Columnar
)

func (d Dialect) String() string {
	switch d {
	case LineOriented:
		return "cabrillo"
	case Columnar:
		return "csv"
	default:
		return "unknown"
	}
}

// BandResolver maps band fields and frequencies to band names.
type BandResolver interface {
	ResolveBand(field string) (string, error)
}

// Options tune a parse.
type Options struct {
	// Callsign is stamped on every record as the operator callsign. When
	// empty the log's own CALLSIGN header (or QSO sender) is used.
	Callsign string

	// FallbackThreshold is the share of failed candidate lines above which
	// the other dialect is tried when the dialect was sniffed. Zero selects
	// DefaultFallbackThreshold.
	FallbackThreshold float64
}

// Warning is a per-line parse diagnostic. Line is 0 when not tied to a line.
type Warning struct {
	Line    int
	Message string
}

// Result is the outcome of a parse.
type Result struct {
	Dialect  Dialect
	Records  []models.ContactRecord
	Warnings []Warning

	// LogCallsign is the station callsign the log names for itself
	LogCallsign string

	// OperatorGrid is the operator's own locator found in the log, if any
	OperatorGrid string

	// Ignored counts X-QSO lines
	Ignored int

	// CandidateLines counts lines that looked like contacts
	CandidateLines int

	// FailedLines counts candidate lines that produced no record
	FailedLines int

	// FellBack is set when the sniffed dialect was abandoned for the other one
	FellBack bool
}

// ValidLocators counts records with a usable grid.
func (r *Result) ValidLocators() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Grid != "" {
			n++
		}
	}
	return n
}

func (r *Result) warn(line int, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) fail(line int, format string, args ...any) {
	r.FailedLines++
	r.warn(line, format, args...)
}

var (
	callsignPattern = regexp.MustCompile(`^([A-Z0-9]{1,4}/)?[A-Z0-9]{1,3}[0-9][A-Z0-9]{0,3}[A-Z](/[A-Z0-9]{1,4})?$`)
	gridShape       = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}([A-Z]{2})?$`)
)

// DialectFor returns the dialect implied by a file name's extension.
func DialectFor(filename string) (Dialect, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cbr", ".log", ".cabrillo":
		return LineOriented, true
	case ".csv":
		return Columnar, true
	default:
		return 0, false
	}
}

// Parse reads a contest log. The dialect comes from filenameHint's extension;
// without one the content is sniffed and the other dialect is tried when the
// first one mostly fails. The returned Result is always non-nil; the error is
// ErrNoValidContacts when no record has a usable locator.
func Parse(content []byte, filenameHint string, bands BandResolver, opts Options) (*Result, error) {
	text := normalizeNewlines(string(content))
	threshold := opts.FallbackThreshold
	if threshold <= 0 {
		threshold = DefaultFallbackThreshold
	}

	var res *Result
	if d, ok := DialectFor(filenameHint); ok {
		res = parseDialect(d, text, bands)
	} else {
		first, second := LineOriented, Columnar
		if !looksLineOriented(text) {
			first, second = Columnar, LineOriented
		}
		res = parseDialect(first, text, bands)
		if needsFallback(res, threshold) {
			alt := parseDialect(second, text, bands)
			if better(alt, res) {
				alt.FellBack = true
				res = alt
			}
		}
	}

	operator := strings.ToUpper(strings.TrimSpace(opts.Callsign))
	if operator == "" {
		operator = res.LogCallsign
	}
	if operator != "" {
		for i := range res.Records {
			res.Records[i].OperatorCallsign = operator
		}
	}

	if res.ValidLocators() == 0 {
		return res, ErrNoValidContacts
	}
	return res, nil
}

func parseDialect(d Dialect, text string, bands BandResolver) *Result {
	if d == Columnar {
		return parseColumnar(text, bands)
	}
	return parseLineOriented(text, bands)
}

func needsFallback(r *Result, threshold float64) bool {
	if len(r.Records) == 0 {
		return true
	}
	return r.CandidateLines > 0 && float64(r.FailedLines)/float64(r.CandidateLines) > threshold
}

func better(a, b *Result) bool {
	if a.ValidLocators() != b.ValidLocators() {
		return a.ValidLocators() > b.ValidLocators()
	}
	return len(a.Records) > len(b.Records)
}

func looksLineOriented(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		upper := strings.ToUpper(strings.TrimSpace(line))
		if strings.HasPrefix(upper, "START-OF-LOG:") || strings.HasPrefix(upper, "QSO:") {
			return true
		}
	}
	return false
}

func normalizeNewlines(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// IsCallsign reports whether token is shaped like an amateur callsign and not a
// locator. token must already be upper case.
func IsCallsign(token string) bool {
	return callsignPattern.MatchString(token) && !gridShape.MatchString(token)
}

// cleanGrid upper-cases a locator field and validates it.
func cleanGrid(field string) (grid string, ok bool) {
	g := strings.ToUpper(strings.TrimSpace(field))
	if g == "" {
		return "", false
	}
	if !maidenhead.Valid(g) {
		return g, false
	}
	return g, true
}
