package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const (
	circleSegments = 24
	headerHeight   = 56
	titleScale     = 2
	legendSwatch   = 12
	legendPadding  = 8

	// ctxCheckEvery is how many markers are drawn between cancellation checks
	ctxCheckEvery = 256
)

var (
	colorHeader = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xd8}
	colorWhite  = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

type canvas struct {
	img  *image.RGBA
	ras  *vector.Rasterizer
	face font.Face
}

func newCanvas(w, h int) *canvas {
	return &canvas{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		ras:  vector.NewRasterizer(w, h),
		face: basicfont.Face7x13,
	}
}

// rasterize draws a plan and encodes it as PNG.
func rasterize(ctx context.Context, p *Plan) ([]byte, error) {
	c := newCanvas(p.Width, p.Height)
	c.fillRect(c.img.Bounds(), p.Background)

	for _, cell := range p.Cells {
		c.fillRect(image.Rect(
			int(math.Floor(cell.Min.X)), int(math.Floor(cell.Min.Y)),
			int(math.Ceil(cell.Max.X)), int(math.Ceil(cell.Max.Y)),
		), cell.Fill)
	}
	for _, l := range p.SquareLines {
		c.strokeLine(l)
	}
	for _, l := range p.Graticule {
		c.strokeLine(l)
	}
	for _, lb := range p.FieldLabels {
		c.drawText(lb.Text, lb.At, 1, colorLabel, true)
	}
	for _, lb := range p.SquareLabels {
		c.drawText(lb.Text, lb.At, 1, colorText, true)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, l := range p.Lines {
		c.strokeLine(l)
	}
	for i, m := range p.Markers {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		c.fillCircle(m.At, m.Radius+1, colorOutline)
		c.fillCircle(m.At, m.Radius, m.Color)
	}
	if op := p.Operator; op != nil {
		c.fillCircle(op.At, op.Radius+1.5, colorWhite)
		c.fillCircle(op.At, op.Radius, op.Color)
		c.fillCircle(op.At, op.Radius/3, colorWhite)
	}

	c.drawHeader(p)
	c.drawLegend(p)

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *canvas) fillRect(r image.Rectangle, col color.NRGBA) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *canvas) fillPolygon(pts []Point, col color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	b := c.img.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
	c.ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		c.ras.LineTo(float32(pt.X), float32(pt.Y))
	}
	c.ras.ClosePath()
	c.ras.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

func (c *canvas) fillCircle(center Point, radius float64, col color.NRGBA) {
	pts := make([]Point, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = Point{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	c.fillPolygon(pts, col)
}

// strokeLine draws a segment as a quad of the line's width.
func (c *canvas) strokeLine(l Line) {
	dx, dy := l.To.X-l.From.X, l.To.Y-l.From.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	half := math.Max(l.Width, 0.5) / 2
	nx, ny := -dy/length*half, dx/length*half

	c.fillPolygon([]Point{
		{l.From.X + nx, l.From.Y + ny},
		{l.To.X + nx, l.To.Y + ny},
		{l.To.X - nx, l.To.Y - ny},
		{l.From.X - nx, l.From.Y - ny},
	}, l.Color)
}

// drawText draws s at the given integer scale. When centered, at is the
// centre of the text box; otherwise it is the top-left corner.
func (c *canvas) drawText(s string, at Point, scale int, col color.NRGBA, centered bool) {
	if s == "" {
		return
	}
	metrics := c.face.Metrics()
	w := font.MeasureString(c.face, s).Ceil()
	h := metrics.Height.Ceil()

	x, y := int(math.Round(at.X)), int(math.Round(at.Y))
	if centered {
		x -= w * scale / 2
		y -= h * scale / 2
	}

	if scale == 1 {
		d := font.Drawer{
			Dst:  c.img,
			Src:  image.NewUniform(col),
			Face: c.face,
			Dot:  fixed.P(x, y+metrics.Ascent.Ceil()),
		}
		d.DrawString(s)
		return
	}

	// basicfont has a single size; larger text is drawn small and scaled up.
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.P(0, metrics.Ascent.Ceil()),
	}
	d.DrawString(s)
	dst := image.Rect(x, y, x+w*scale, y+h*scale)
	draw.NearestNeighbor.Scale(c.img, dst, small, small.Bounds(), draw.Over, nil)
}

func (c *canvas) drawHeader(p *Plan) {
	c.fillRect(image.Rect(0, 0, p.Width, headerHeight), colorHeader)
	c.drawText(p.Title, Point{X: 12, Y: 6}, titleScale, colorText, false)
	c.drawText(p.Subtitle, Point{X: 12, Y: 6 + 13*titleScale + 4}, 1, colorText, false)
}

func (c *canvas) drawLegend(p *Plan) {
	if len(p.Legend) == 0 {
		return
	}
	lineHeight := legendSwatch + legendPadding
	width := 0
	for _, e := range p.Legend {
		width = max(width, font.MeasureString(c.face, e.Text).Ceil())
	}
	boxW := legendPadding*3 + legendSwatch + width
	boxH := legendPadding + lineHeight*len(p.Legend)
	x0, y0 := legendPadding, p.Height-boxH-legendPadding

	c.fillRect(image.Rect(x0, y0, x0+boxW, y0+boxH), colorHeader)
	for i, e := range p.Legend {
		y := y0 + legendPadding + i*lineHeight
		c.fillRect(image.Rect(x0+legendPadding, y, x0+legendPadding+legendSwatch, y+legendSwatch), e.Color)
		c.drawText(e.Text, Point{X: float64(x0 + legendPadding*2 + legendSwatch), Y: float64(y)}, 1, colorText, false)
	}
}
