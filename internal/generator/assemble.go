package generator

import (
	"errors"

	"evalgo.org/gridmapper/internal/contestlog"
	"evalgo.org/gridmapper/models"
)

// Assemble builds the response for a generation. parseErr is the parser's
// error, nil when contacts were found. A run that stores no map because the
// log had no usable contact, or because every upload failed, is a failure;
// anything else succeeds, possibly with zero maps.
func Assemble(stored []Stored, tr *Transcript, req *models.GenerationRequest, parseErr error) *models.GenerationResult {
	res := &models.GenerationResult{
		Callsign:  req.Callsign,
		Maps:      []models.MapLink{},
		LogOutput: tr.String(),
	}

	attempted := 0
	var uploadErr error
	for _, s := range stored {
		if s.Attempted {
			attempted++
		}
		if s.Link != nil {
			res.Maps = append(res.Maps, *s.Link)
		} else if s.UploadErr != nil && uploadErr == nil {
			uploadErr = s.UploadErr
		}
	}
	res.MapsGenerated = len(res.Maps)

	switch {
	case len(res.Maps) == 0 && errors.Is(parseErr, contestlog.ErrNoValidContacts):
		res.Error = contestlog.ErrNoValidContacts.Error()
		res.Failure = models.FailureNoContacts
	case parseErr != nil:
		res.Error = parseErr.Error()
		res.Failure = models.FailureInternal
	case attempted > 0 && len(res.Maps) == 0:
		res.Error = "failed to store maps: " + uploadErr.Error()
		res.Failure = models.FailureStore
	default:
		res.Success = true
	}
	return res
}
