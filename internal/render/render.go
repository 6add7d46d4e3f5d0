// Package render draws contact maps. Building a map is split in two: Plan
// computes every draw instruction in pixel space from a contact group, and
// Render rasterises a plan to PNG. Tests work against plans.
package render

import (
	"context"
	"errors"
	"fmt"

	"evalgo.org/gridmapper/internal/classify"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/models"
)

// ErrRender is returned when a group cannot be turned into a map.
var ErrRender = errors.New("render failed")

const (
	DefaultWidth        = 1600
	DefaultMarkerRadius = 5.0

	minHeight = 300
	maxHeight = 1600
)

// Options size the output.
type Options struct {
	// Width of the image in pixels; the height follows the extent's aspect
	Width int

	// MarkerRadius of contact markers in pixels
	MarkerRadius float64
}

// Renderer builds maps for contact groups. It is safe for concurrent use.
type Renderer struct {
	tables *refdata.Tables
	opts   Options
}

// New returns a Renderer. Zero options take the defaults.
func New(tables *refdata.Tables, opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.MarkerRadius <= 0 {
		opts.MarkerRadius = DefaultMarkerRadius
	}
	return &Renderer{tables: tables, opts: opts}
}

// Render plans and rasterises one group. operator may be nil.
func (r *Renderer) Render(ctx context.Context, group classify.Group, operator *models.Coordinate) ([]byte, *Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s %s: %w", ErrRender, group.Band, group.Scope, err)
	}

	plan, err := r.Plan(group, operator)
	if err != nil {
		return nil, nil, err
	}

	img, err := rasterize(ctx, plan)
	if err != nil {
		return nil, plan, fmt.Errorf("%w: %s %s: %w", ErrRender, group.Band, group.Scope, err)
	}
	return img, plan, nil
}
