// Package classify resolves contact locations and splits contacts into the
// (band, scope) groups that become maps.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"evalgo.org/gridmapper/internal/maidenhead"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/models"
)

// Unresolved is a contact whose location could not be used.
type Unresolved struct {
	Line     int
	Callsign string
	Reason   string
}

// Locate decodes each contact's grid into Location and sets Continent. A
// valid continent already on the record wins over the one derived from the
// locator. Contacts without a grid are left unlocated and not reported again.
func Locate(contacts []models.ContactRecord, tables *refdata.Tables) []Unresolved {
	var out []Unresolved
	for i := range contacts {
		c := &contacts[i]
		c.Location = nil
		if c.Grid == "" {
			continue
		}

		pos, err := maidenhead.Decode(c.Grid)
		if err != nil {
			out = append(out, Unresolved{Line: c.LineNumber, Callsign: c.ContactCallsign, Reason: err.Error()})
			continue
		}
		c.Location = &pos

		if c.Continent != "" {
			if code, err := tables.NormalizeContinent(c.Continent); err == nil {
				c.Continent = code
				continue
			}
			out = append(out, Unresolved{
				Line:     c.LineNumber,
				Callsign: c.ContactCallsign,
				Reason:   fmt.Sprintf("unknown continent %q, using locator %s", c.Continent, c.Grid),
			})
		}
		c.Continent = tables.ContinentOf(pos)
	}
	return out
}

// Group is the set of contacts plotted on one map.
type Group struct {
	Band     string
	Scope    string
	Contacts []models.ContactRecord
}

// Exclusion counts contacts on a band that fell outside the requested continents.
type Exclusion struct {
	Band  string
	Count int
}

// Result is the outcome of Classify.
type Result struct {
	Groups    []Group
	Excluded  []Exclusion
	Requested []string

	// Unlocated counts contacts skipped for lack of a location
	Unlocated int
}

// ExclusionMessage describes an exclusion for the transcript.
func (r *Result) ExclusionMessage(e Exclusion) string {
	return fmt.Sprintf("%d contact(s) on %s outside requested continents (%s)",
		e.Count, e.Band, strings.Join(r.Requested, ", "))
}

// Classify groups located contacts by band, and by requested continent when
// requested is non-empty. With no continents requested every band gets one
// ALL group; otherwise no ALL group is produced. Groups are ordered by band
// plan order, then continent code; empty groups are omitted.
func Classify(contacts []models.ContactRecord, requested []string, tables *refdata.Tables) *Result {
	res := &Result{Requested: uniqueSorted(requested)}

	byBand := make(map[string][]models.ContactRecord)
	var bands []string
	for _, c := range contacts {
		if !c.Located() {
			res.Unlocated++
			continue
		}
		if _, ok := byBand[c.Band]; !ok {
			bands = append(bands, c.Band)
		}
		byBand[c.Band] = append(byBand[c.Band], c)
	}

	sort.SliceStable(bands, func(i, j int) bool {
		oi, oj := tables.BandOrder(bands[i]), tables.BandOrder(bands[j])
		if oi != oj {
			return oi < oj
		}
		return bands[i] < bands[j]
	})

	for _, band := range bands {
		members := byBand[band]
		if len(res.Requested) == 0 {
			res.Groups = append(res.Groups, Group{Band: band, Scope: models.ScopeAll, Contacts: members})
			continue
		}

		matched := 0
		for _, code := range res.Requested {
			var scoped []models.ContactRecord
			for _, c := range members {
				if c.Continent == code {
					scoped = append(scoped, c)
				}
			}
			if len(scoped) == 0 {
				continue
			}
			matched += len(scoped)
			res.Groups = append(res.Groups, Group{Band: band, Scope: code, Contacts: scoped})
		}
		if excluded := len(members) - matched; excluded > 0 {
			res.Excluded = append(res.Excluded, Exclusion{Band: band, Count: excluded})
		}
	}
	return res
}

func uniqueSorted(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
