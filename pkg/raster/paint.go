package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Point is a position in layer pixel coordinates.
type Point struct {
	X, Y float64
}

// Premultiply converts a straight-alpha colour to the premultiplied form
// stored in image.RGBA.
func Premultiply(c color.NRGBA) color.RGBA {
	if c.A == 255 {
		return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	a := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R)*a + 127) / 255),
		G: uint8((uint32(c.G)*a + 127) / 255),
		B: uint8((uint32(c.B)*a + 127) / 255),
		A: c.A,
	}
}

// SnapRect converts a floating-point rectangle to whole pixels by rounding
// each edge to the nearest pixel boundary.
func SnapRect(x, y, w, h float64) image.Rectangle {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	return image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
}

// FillRect paints c over every pixel of r using source-over.
func FillRect(dst *image.RGBA, r image.Rectangle, c color.NRGBA) {
	p := Premultiply(c)
	FillRectFunc(dst, r, func(int, int) color.RGBA { return p })
}

// FillRectFunc paints every pixel of r with the premultiplied colour returned
// by fn, using source-over. Pixels are visited row by row, left to right.
func FillRectFunc(dst *image.RGBA, r image.Rectangle, fn Shader) {
	r = r.Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		o := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			s := fn(x, y)
			d := dst.Pix[o : o+4 : o+4]
			d[0], d[1], d[2], d[3] = BlendPixel(d[0], d[1], d[2], d[3], s.R, s.G, s.B, s.A, Normal)
			o += 4
		}
	}
}

// Clear sets every pixel of dst inside r to transparent black.
func Clear(dst *image.RGBA, r image.Rectangle) {
	r = r.Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		o := dst.PixOffset(r.Min.X, y)
		clear(dst.Pix[o : o+4*r.Dx()])
	}
}

// Painter rasterizes anti-aliased polygons into a destination buffer. Each
// call to Fill accumulates the polygons it is given as one shape, so
// overlapping pieces of a stroke do not double up their coverage.
//
// A Painter reuses its coverage buffer between calls. It is not safe for
// concurrent use.
type Painter struct {
	z *vector.Rasterizer
}

// Shader is an unbounded image whose premultiplied pixels are computed on
// demand. It lets gradients be used wherever a source image is expected.
type Shader func(x, y int) color.RGBA

// ColorModel implements image.Image.
func (s Shader) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (s Shader) Bounds() image.Rectangle {
	return image.Rect(-1<<30, -1<<30, 1<<30, 1<<30)
}

// At implements image.Image.
func (s Shader) At(x, y int) color.Color { return s(x, y) }

// Fill paints the union of polys over dst with colour c. Every polygon is
// implicitly closed.
func (p *Painter) Fill(dst *image.RGBA, polys [][]Point, c color.NRGBA) {
	p.FillImage(dst, polys, image.NewUniform(c))
}

// FillImage paints the union of polys over dst, taking colours from src in
// dst's coordinate space.
func (p *Painter) FillImage(dst *image.RGBA, polys [][]Point, src image.Image) {
	bounds, ok := polygonBounds(polys)
	if !ok {
		return
	}
	r := bounds.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	if p.z == nil {
		p.z = vector.NewRasterizer(r.Dx(), r.Dy())
	} else {
		p.z.Reset(r.Dx(), r.Dy())
	}
	p.z.DrawOp = draw.Over

	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		poly = positiveWinding(poly)
		p.z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
		for _, pt := range poly[1:] {
			p.z.LineTo(float32(pt.X-ox), float32(pt.Y-oy))
		}
		p.z.ClosePath()
	}
	p.z.Draw(dst, r, src, r.Min)
}

// Stroke paints a polyline of the given width with round joins and caps.
func (p *Painter) Stroke(dst *image.RGBA, pts []Point, width float64, c color.NRGBA) {
	p.Fill(dst, StrokePolygons(pts, width), c)
}

// StrokePolygons returns the polygons covering a polyline of the given width:
// one quad per segment plus a disc at every vertex for round joins and caps.
func StrokePolygons(pts []Point, width float64) [][]Point {
	if len(pts) == 0 || width <= 0 {
		return nil
	}
	hw := width / 2
	polys := make([][]Point, 0, 2*len(pts))
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		polys = append(polys, []Point{
			{a.X + nx, a.Y + ny},
			{b.X + nx, b.Y + ny},
			{b.X - nx, b.Y - ny},
			{a.X - nx, a.Y - ny},
		})
	}
	if hw >= 0.75 {
		for _, pt := range pts {
			polys = append(polys, Ellipse(pt.X, pt.Y, hw, hw))
		}
	}
	return polys
}

// Ellipse approximates an axis-aligned ellipse centred on (cx, cy) with a
// polygon whose segment count grows with the radius.
func Ellipse(cx, cy, rx, ry float64) []Point {
	n := int(math.Ceil(math.Max(rx, ry) * 1.5))
	n = max(12, min(n, 256))
	pts := make([]Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{cx + rx*math.Cos(a), cy + ry*math.Sin(a)}
	}
	return pts
}

func polygonBounds(polys [][]Point) (image.Rectangle, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, pt := range poly {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
	}
	if minX > maxX || math.IsNaN(minX) || math.IsInf(minX, 0) || math.IsInf(maxX, 0) ||
		math.IsInf(minY, 0) || math.IsInf(maxY, 0) {
		return image.Rectangle{}, false
	}
	return image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	), true
}

// positiveWinding returns poly oriented so its signed area is positive. The
// rasterizer accumulates signed coverage, so mixed orientations would cancel
// where pieces overlap.
func positiveWinding(poly []Point) []Point {
	var area float64
	for i := range poly {
		j := (i + 1) % len(poly)
		area += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	if area >= 0 {
		return poly
	}
	rev := make([]Point, len(poly))
	for i, pt := range poly {
		rev[len(poly)-1-i] = pt
	}
	return rev
}
