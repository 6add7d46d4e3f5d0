// Package generator runs a map generation end to end: it decodes and parses
// the uploaded log, resolves contact locations, groups contacts into maps,
// renders and stores each map, and assembles the response with its
// diagnostic transcript.
//
// A generation never fails because of a single bad line, locator, map or
// upload; those become transcript warnings. Only a request without any
// usable contact, an invalid request, or a store that accepts nothing fails
// the whole run.
package generator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"evalgo.org/gridmapper/internal/classify"
	"evalgo.org/gridmapper/internal/config"
	"evalgo.org/gridmapper/internal/contestlog"
	"evalgo.org/gridmapper/internal/maidenhead"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/internal/render"
	"evalgo.org/gridmapper/internal/storage"
	"evalgo.org/gridmapper/internal/validation"
	"evalgo.org/gridmapper/models"
)

const (
	DefaultWorkers = 4
	DefaultTimeout = 4*time.Minute + 30*time.Second
)

// Options tune a Generator. Zero values take the defaults.
type Options struct {
	// Workers bounds concurrent render and upload jobs
	Workers int

	// Timeout bounds one generation; unfinished maps are skipped
	Timeout time.Duration

	// MaxLogBytes limits the decoded log size; 0 disables the limit
	MaxLogBytes int64

	// FallbackThreshold is passed to the log parser
	FallbackThreshold float64

	// Now returns the time used for storage keys
	Now func() time.Time
}

// OptionsFromConfig maps the generation and render configuration sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:           cfg.Render.Workers,
		Timeout:           cfg.Generation.Timeout,
		MaxLogBytes:       cfg.Generation.MaxLogBytes,
		FallbackThreshold: cfg.Generation.FallbackThreshold,
	}
}

// Generator turns generation requests into stored maps. It holds no
// per-request state and is safe for concurrent use.
type Generator struct {
	tables    *refdata.Tables
	renderer  *render.Renderer
	store     storage.Store
	validator *validation.Validator
	log       *logrus.Logger
	opts      Options
}

// New creates a Generator.
func New(tables *refdata.Tables, renderer *render.Renderer, store storage.Store, logger *logrus.Logger, opts Options) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		tables:    tables,
		renderer:  renderer,
		store:     store,
		validator: validation.New(tables),
		log:       logger,
		opts:      opts,
	}
}

type requestIDKey struct{}

var keyIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// KeyID returns requestID when it is usable as a single storage key segment,
// else a fresh UUID. Request IDs may come from clients.
func KeyID(requestID string) string {
	if keyIDPattern.MatchString(requestID) {
		return requestID
	}
	return uuid.NewString()
}

// WithRequestID attaches the request ID used in log fields and, when it is
// a safe key segment, in storage keys.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored by WithRequestID, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Generate runs one generation. The result is never nil; failures are
// reported through Success, Error and Failure.
func (g *Generator) Generate(ctx context.Context, req *models.GenerationRequest) *models.GenerationResult {
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	keyID := KeyID(requestID)

	req.Normalize()
	entry := g.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"callsign":   req.Callsign,
	})
	if keyID != requestID {
		entry = entry.WithField("key_id", keyID)
	}

	if vr := g.validator.ValidateRequest(req); !vr.Valid {
		entry.WithField("errors", vr.Error()).Info("Rejected generation request")
		return &models.GenerationResult{
			Success:  false,
			Callsign: req.Callsign,
			Maps:     []models.MapLink{},
			Error:    "invalid request: " + vr.Error(),
			Failure:  models.FailureValidation,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var tr Transcript

	content, encoding, err := DecodeContent(req.FileContent, g.opts.MaxLogBytes)
	if err != nil {
		entry.WithError(err).Info("Could not decode log content")
		tr.Warn(StageDecode, "%v", err)
		return &models.GenerationResult{
			Success:   false,
			Callsign:  req.Callsign,
			Maps:      []models.MapLink{},
			LogOutput: tr.String(),
			Error:     err.Error(),
			Failure:   models.FailureValidation,
		}
	}
	tr.Info(StageDecode, "read %s (%s, %s)", req.FileName, humanize.Bytes(uint64(len(content))), encoding)
	entry.WithField("bytes", len(content)).Debug("Decoded log content")

	parsed, parseErr := contestlog.Parse(content, req.FileName, g.tables, contestlog.Options{
		Callsign:          req.Callsign,
		FallbackThreshold: g.opts.FallbackThreshold,
	})
	for _, w := range parsed.Warnings {
		tr.WarnLine(StageParse, w.Line, "%s", w.Message)
	}
	if parsed.FellBack {
		tr.Info(StageParse, "content did not parse as %s, read as %s", otherDialect(parsed.Dialect), parsed.Dialect)
	}
	tr.Info(StageParse, "parsed %d contact(s) as %s, %d with a locator", len(parsed.Records), parsed.Dialect, parsed.ValidLocators())
	if parsed.Ignored > 0 {
		tr.Info(StageParse, "ignored %d X-QSO line(s)", parsed.Ignored)
	}
	if parsed.LogCallsign != "" && parsed.LogCallsign != req.Callsign {
		tr.Info(StageParse, "log names station %s, maps are labelled %s", parsed.LogCallsign, req.Callsign)
	}
	entry.WithFields(logrus.Fields{
		"dialect":  parsed.Dialect.String(),
		"records":  len(parsed.Records),
		"warnings": len(parsed.Warnings),
	}).Debug("Parsed contest log")

	if parseErr != nil {
		return g.finish(entry, &tr, Assemble(nil, &tr, req, parseErr))
	}

	operator := g.operatorLocation(req, parsed, &tr)

	for _, u := range classify.Locate(parsed.Records, g.tables) {
		tr.WarnLine(StageLocator, u.Line, "%s: %s", u.Callsign, u.Reason)
	}

	classified := classify.Classify(parsed.Records, g.continentCodes(req.Continents), g.tables)
	if classified.Unlocated > 0 {
		tr.Info(StageClassify, "%d contact(s) without a usable locator not plotted", classified.Unlocated)
	}
	for _, e := range classified.Excluded {
		tr.Info(StageClassify, "%s", classified.ExclusionMessage(e))
	}
	for _, line := range bandSummaries(parsed.Records, g.tables) {
		tr.Info(StageClassify, "%s", line)
	}
	if len(classified.Groups) == 0 {
		tr.Warn(StageClassify, "no contacts left to map")
	}
	entry.WithField("groups", len(classified.Groups)).Debug("Classified contacts")

	stored := g.renderAndStore(ctx, classified.Groups, operator, req.Callsign, keyID)
	for _, s := range stored {
		tr.Append(s.Entries...)
	}

	return g.finish(entry, &tr, Assemble(stored, &tr, req, nil))
}

func (g *Generator) finish(entry *logrus.Entry, tr *Transcript, res *models.GenerationResult) *models.GenerationResult {
	entry = entry.WithField("warnings", tr.Warnings())
	if res.Success {
		entry.WithField("maps", res.MapsGenerated).Info("Generated maps")
	} else {
		entry.WithField("error", res.Error).Warn("Map generation failed")
	}
	return res
}

// operatorLocation prefers the request's locator over the one in the log.
func (g *Generator) operatorLocation(req *models.GenerationRequest, parsed *contestlog.Result, tr *Transcript) *models.Coordinate {
	candidates := []struct{ grid, source string }{
		{req.GridLocator, "request"},
		{parsed.OperatorGrid, "log"},
	}
	for _, c := range candidates {
		if c.grid == "" {
			continue
		}
		pos, err := maidenhead.Decode(c.grid)
		if err != nil {
			tr.Warn(StageLocator, "operator locator %q from %s: %v", c.grid, c.source, err)
			continue
		}
		tr.Info(StageLocator, "operator at %s (from %s)", c.grid, c.source)
		return &pos
	}
	tr.Warn(StageLocator, "no operator locator, operator marker omitted")
	return nil
}

// continentCodes maps requested names and codes to codes. The request has
// been validated, so every entry resolves.
func (g *Generator) continentCodes(requested []string) []string {
	codes := make([]string, 0, len(requested))
	for _, c := range requested {
		if code, err := g.tables.NormalizeContinent(c); err == nil {
			codes = append(codes, code)
		}
	}
	return codes
}

// Stored is the outcome of rendering and uploading one group.
type Stored struct {
	Artifact models.MapArtifact
	Link     *models.MapLink

	// Attempted is set once the upload was tried; UploadErr is its failure
	Attempted bool
	UploadErr error

	Entries []Entry
}

// renderAndStore runs one job per group on a bounded errgroup. Results are
// written by group index so the merge does not depend on completion order.
func (g *Generator) renderAndStore(ctx context.Context, groups []classify.Group, operator *models.Coordinate, callsign, keyID string) []Stored {
	results := make([]Stored, len(groups))
	now := g.opts.Now()

	var eg errgroup.Group
	eg.SetLimit(g.opts.Workers)
	for i, group := range groups {
		eg.Go(func() error {
			results[i] = g.renderOne(ctx, group, operator, callsign, keyID, now)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func (g *Generator) renderOne(ctx context.Context, group classify.Group, operator *models.Coordinate, callsign, keyID string, now time.Time) Stored {
	name := group.Band + "/" + group.Scope
	out := Stored{
		Artifact: models.MapArtifact{
			Band:     group.Band,
			Scope:    group.Scope,
			Filename: models.MapFilename(callsign, group.Band, group.Scope),
		},
	}
	warn := func(stage Stage, format string, args ...any) {
		out.Entries = append(out.Entries, Entry{Level: LevelWarn, Stage: stage, Group: name, Message: fmt.Sprintf(format, args...)})
	}

	if err := ctx.Err(); err != nil {
		warn(StageRender, "skipped: %v", err)
		return out
	}

	img, plan, err := g.renderer.Render(ctx, group, operator)
	if err != nil {
		warn(StageRender, "%v", err)
		return out
	}
	out.Artifact.Image = img
	out.Artifact.Contacts = plan.Contacts
	out.Artifact.Grids = plan.Grids
	if plan.Skipped > 0 {
		warn(StageRender, "%d contact(s) outside the map extent", plan.Skipped)
	}

	key := storage.Key(now, callsign, keyID, out.Artifact.Filename)
	url, err := g.store.Put(ctx, key, img, storage.ContentTypePNG)
	if err != nil && ctx.Err() != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		// the deadline, not the store, stopped this upload
		warn(StageStore, "skipped: %v", ctx.Err())
		return out
	}
	out.Attempted = true
	if err != nil {
		out.UploadErr = err
		warn(StageStore, "%v", err)
		return out
	}

	out.Link = &models.MapLink{Filename: out.Artifact.Filename, DownloadURL: url, StorageKey: key}
	out.Entries = append(out.Entries, Entry{
		Level:   LevelInfo,
		Stage:   StageStore,
		Group:   name,
		Message: fmt.Sprintf("stored %s (%s, %d contact(s), %d grid square(s))", out.Artifact.Filename, humanize.Bytes(uint64(len(img))), plan.Contacts, plan.Grids),
	})
	return out
}

// bandSummaries reports unique grid squares and contacts per band for all
// located contacts, in band plan order.
func bandSummaries(contacts []models.ContactRecord, tables *refdata.Tables) []string {
	type tally struct {
		grids    map[string]bool
		contacts int
	}
	byBand := make(map[string]*tally)
	var bands []string
	for _, c := range contacts {
		if !c.Located() {
			continue
		}
		t, ok := byBand[c.Band]
		if !ok {
			t = &tally{grids: make(map[string]bool)}
			byBand[c.Band] = t
			bands = append(bands, c.Band)
		}
		t.grids[c.Grid[:4]] = true
		t.contacts++
	}
	sort.SliceStable(bands, func(i, j int) bool {
		return tables.BandOrder(bands[i]) < tables.BandOrder(bands[j])
	})

	lines := make([]string, len(bands))
	for i, b := range bands {
		t := byBand[b]
		lines[i] = fmt.Sprintf("%s: %d unique grid squares, %d contacts", b, len(t.grids), t.contacts)
	}
	return lines
}

func otherDialect(d contestlog.Dialect) contestlog.Dialect {
	if d == contestlog.Columnar {
		return contestlog.LineOriented
	}
	return contestlog.Columnar
}
