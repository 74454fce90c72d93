package projection

import "fmt"

// ColorFormat identifies a color stream format and resolution.
type ColorFormat int

// Supported color stream formats.
const (
	RgbResolution640x480Fps30 ColorFormat = iota
	RgbResolution1280x960Fps12
	YuvResolution640x480Fps15
	RawYuvResolution640x480Fps15
	InfraredResolution640x480Fps30
	RawBayerResolution640x480Fps30
	RawBayerResolution1280x960Fps12
)

// DefaultColorFormat matches the reference application.
const DefaultColorFormat = RgbResolution640x480Fps30

type formatInfo struct {
	name          string
	width, height int
	fps           int
}

var formats = map[ColorFormat]formatInfo{
	RgbResolution640x480Fps30:       {"rgb_640x480_30", 640, 480, 30},
	RgbResolution1280x960Fps12:      {"rgb_1280x960_12", 1280, 960, 12},
	YuvResolution640x480Fps15:       {"yuv_640x480_15", 640, 480, 15},
	RawYuvResolution640x480Fps15:    {"raw_yuv_640x480_15", 640, 480, 15},
	InfraredResolution640x480Fps30:  {"infrared_640x480_30", 640, 480, 30},
	RawBayerResolution640x480Fps30:  {"raw_bayer_640x480_30", 640, 480, 30},
	RawBayerResolution1280x960Fps12: {"raw_bayer_1280x960_12", 1280, 960, 12},
}

func (f ColorFormat) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	return "unknown"
}

// Width returns the frame width in pixels.
func (f ColorFormat) Width() int { return formats[f].width }

// Height returns the frame height in pixels.
func (f ColorFormat) Height() int { return formats[f].height }

// FPS returns the nominal frame rate.
func (f ColorFormat) FPS() int { return formats[f].fps }

// ParseColorFormat resolves a format name such as "rgb_640x480_30".
func ParseColorFormat(name string) (ColorFormat, error) {
	if name == "" {
		return DefaultColorFormat, nil
	}
	for f, info := range formats {
		if info.name == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}
