// Package projection maps skeleton-space points into color image pixel space and
// derives the overlay rectangle anchored on a projected point.
package projection

import (
	"image"
	"math"

	"github.com/golang/geo/r3"
)

const (
	// DefaultOverlaySize is the side of the square overlay centred on the head.
	DefaultOverlaySize = 128

	// nominalFocalLength is the reference sensor's published color focal length in
	// pixels at 640x480.
	nominalFocalLength = 531.15
	nominalWidth       = 640
)

// Mapper is the sensor's calibration capability. Implementations must be pure:
// identical inputs give identical outputs.
type Mapper interface {
	MapSkeletonPointToColor(p r3.Vector, format ColorFormat) image.Point
}

// MapperFunc adapts a function to Mapper.
type MapperFunc func(p r3.Vector, format ColorFormat) image.Point

// MapSkeletonPointToColor calls f.
func (f MapperFunc) MapSkeletonPointToColor(p r3.Vector, format ColorFormat) image.Point {
	return f(p, format)
}

// NominalMapper projects through an ideal pinhole using the sensor's nominal
// intrinsics. It ignores the depth/color baseline and lens distortion.
type NominalMapper struct{}

// MapSkeletonPointToColor projects p. Points at or behind the sensor plane map to
// the principal point; anything else is returned unclipped.
func (NominalMapper) MapSkeletonPointToColor(p r3.Vector, format ColorFormat) image.Point {
	w, h := format.Width(), format.Height()
	cx, cy := float64(w)/2, float64(h)/2
	if p.Z <= 0 {
		return image.Pt(int(cx), int(cy))
	}
	f := nominalFocalLength * float64(w) / nominalWidth
	x := cx + f*p.X/p.Z
	y := cy - f*p.Y/p.Z
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

// ProjectedPoint is a pixel coordinate and the skeleton-space point it came from.
type ProjectedPoint struct {
	Pixel  image.Point
	Source r3.Vector
}

// Rect is an overlay rectangle in pixel space, as origin plus size.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Bounds converts r to an image.Rectangle.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Projector binds a Mapper to the active color format.
type Projector struct {
	mapper      Mapper
	format      ColorFormat
	overlaySize int
}

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithFormat sets the color format the projection targets.
func WithFormat(f ColorFormat) Option {
	return func(p *Projector) {
		p.format = f
	}
}

// WithOverlaySize sets the overlay square side in pixels.
func WithOverlaySize(n int) Option {
	return func(p *Projector) {
		if n > 0 {
			p.overlaySize = n
		}
	}
}

// NewProjector creates a projector. A nil mapper falls back to NominalMapper.
func NewProjector(mapper Mapper, opts ...Option) *Projector {
	if mapper == nil {
		mapper = NominalMapper{}
	}
	p := &Projector{
		mapper:      mapper,
		format:      DefaultColorFormat,
		overlaySize: DefaultOverlaySize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the configured color format.
func (p *Projector) Format() ColorFormat {
	return p.format
}

// Project maps pt into the color image. The result may lie outside the image.
func (p *Projector) Project(pt r3.Vector) ProjectedPoint {
	return ProjectedPoint{
		Pixel:  p.mapper.MapSkeletonPointToColor(pt, p.format),
		Source: pt,
	}
}

// OverlayRect returns the square centred on px.
func (p *Projector) OverlayRect(px image.Point) Rect {
	half := p.overlaySize / 2
	return Rect{
		X:      px.X - half,
		Y:      px.Y - half,
		Width:  p.overlaySize,
		Height: p.overlaySize,
	}
}
