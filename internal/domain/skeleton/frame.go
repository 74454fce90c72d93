package skeleton

import "time"

// BytesPerPixel is the stride unit of the color buffer (Bgr32).
const BytesPerPixel = 4

// ColorImage is a BGR-style, 4 bytes/pixel, row-major color buffer.
type ColorImage struct {
	Width  int
	Height int
	Format string
	Pixels []byte
}

// Valid reports whether the buffer size agrees with the declared dimensions.
func (c *ColorImage) Valid() bool {
	if c == nil || c.Width <= 0 || c.Height <= 0 {
		return false
	}
	return len(c.Pixels) == c.Width*c.Height*BytesPerPixel
}

// Stride returns the length of one pixel row in bytes.
func (c *ColorImage) Stride() int {
	return c.Width * BytesPerPixel
}

// FramePair is one acquisition tick: a color image and the skeletons captured at the
// same instant. Either half may be missing.
type FramePair struct {
	Number uint64
	// SourceID identifies the frame at its source so a redelivery can be
	// recognized. Empty means the source gives no such guarantee.
	SourceID   string
	CapturedAt time.Time
	Color      *ColorImage
	// Skeletons is nil when no skeleton frame was delivered this tick; an empty,
	// non-nil slice means the frame arrived with no subjects.
	Skeletons []Skeleton
}

// HasColor reports whether the color half is present.
func (f *FramePair) HasColor() bool {
	return f.Color != nil && len(f.Color.Pixels) > 0
}

// HasSkeletons reports whether the skeleton half is present.
func (f *FramePair) HasSkeletons() bool {
	return f.Skeletons != nil
}

// Clone deep-copies the frame so the caller may release the source buffers.
func (f *FramePair) Clone() FramePair {
	out := FramePair{
		Number:     f.Number,
		SourceID:   f.SourceID,
		CapturedAt: f.CapturedAt,
	}
	if f.Color != nil {
		c := *f.Color
		c.Pixels = append([]byte(nil), f.Color.Pixels...)
		out.Color = &c
	}
	if f.Skeletons != nil {
		out.Skeletons = make([]Skeleton, len(f.Skeletons))
		copy(out.Skeletons, f.Skeletons)
	}
	return out
}
