package contestlog

import (
	"strings"

	"evalgo.org/gridmapper/models"
)

// minQSOFields is freq, mode, date, time, own call and the contact call.
const minQSOFields = 6

// parseLineOriented reads Cabrillo: "TAG: value" lines, of which QSO: lines
// carry contacts laid out as
//
//	QSO: <freq> <mode> <date> <time> <mycall> <sent-exch...> <call> <rcvd-exch...>
func parseLineOriented(text string, bands BandResolver) *Result {
	res := &Result{Dialect: LineOriented}
	var firstSender string

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		tag, value, ok := splitTag(line)
		if !ok {
			res.warn(lineNo, "unrecognised line %q", truncate(line, 40))
			continue
		}

		switch tag {
		case "QSO":
			res.CandidateLines++
			rec, sentGrid, ok := parseQSO(res, lineNo, value, bands)
			if !ok {
				continue
			}
			if firstSender == "" {
				firstSender = rec.OperatorCallsign
			}
			if res.OperatorGrid == "" && sentGrid != "" {
				res.OperatorGrid = sentGrid
			}
			res.Records = append(res.Records, rec)
		case "X-QSO":
			res.Ignored++
		case "CALLSIGN":
			res.LogCallsign = strings.ToUpper(value)
		case "GRID-LOCATOR":
			if grid, ok := cleanGrid(value); ok {
				res.OperatorGrid = grid
			} else if value != "" {
				res.warn(lineNo, "invalid GRID-LOCATOR %q", value)
			}
		}
	}

	if res.LogCallsign == "" {
		res.LogCallsign = firstSender
	}
	return res
}

// parseQSO parses the fields after "QSO:". It returns the record and the
// first locator the operator sent.
func parseQSO(res *Result, lineNo int, value string, bands BandResolver) (models.ContactRecord, string, bool) {
	fields := strings.Fields(strings.ToUpper(value))
	if len(fields) < minQSOFields {
		res.fail(lineNo, "QSO line has %d fields, want at least %d", len(fields), minQSOFields)
		return models.ContactRecord{}, "", false
	}

	band, err := bands.ResolveBand(fields[0])
	if err != nil {
		res.fail(lineNo, "cannot resolve band: %v", err)
		return models.ContactRecord{}, "", false
	}

	rec := models.ContactRecord{
		OperatorCallsign: fields[4],
		Band:             band,
		LineNumber:       lineNo,
	}

	var sentGrid, badGrid string
	for _, tok := range fields[5:] {
		if rec.ContactCallsign == "" {
			switch {
			case gridShape.MatchString(tok):
				if sentGrid == "" {
					if g, ok := cleanGrid(tok); ok {
						sentGrid = g
					}
				}
			case IsCallsign(tok):
				rec.ContactCallsign = tok
			}
			continue
		}

		if !gridShape.MatchString(tok) {
			continue
		}
		if g, ok := cleanGrid(tok); ok {
			rec.Grid = g
			badGrid = ""
		} else if rec.Grid == "" {
			badGrid = g
		}
	}

	if rec.ContactCallsign == "" {
		res.fail(lineNo, "QSO line has no contact callsign")
		return models.ContactRecord{}, "", false
	}

	switch {
	case badGrid != "":
		res.warn(lineNo, "%s: invalid locator %q", rec.ContactCallsign, badGrid)
	case rec.Grid == "":
		res.warn(lineNo, "%s: no locator logged", rec.ContactCallsign)
	}
	return rec, sentGrid, true
}

// splitTag splits "TAG: value". Tags are letters, digits and '-'.
func splitTag(line string) (tag, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	tag = strings.ToUpper(line[:idx])
	for _, ch := range tag {
		if !(ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '-') {
			return "", "", false
		}
	}
	return tag, strings.TrimSpace(line[idx+1:]), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
