package maidenhead

import "evalgo.org/gridmapper/models"

// Region names a continent by its bounding box.
type Region struct {
	Code string
	Box  Box
}

// ContinentOf returns the code of the first region containing c, or fallback
// when no region does. Regions overlap, so their order is significant.
func ContinentOf(c models.Coordinate, regions []Region, fallback string) string {
	for _, r := range regions {
		if r.Box.Contains(c) {
			return r.Code
		}
	}
	return fallback
}
