//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"fmt"
	"strings"

	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/swscale"
)

// PixelFormat is an output pixel layout. All formats are packed,
// single plane.
type PixelFormat int

const (
	RGB24 PixelFormat = iota
	RGBA
	BGR24
	GRAY8
)

var pixelFormatNames = map[PixelFormat]string{
	RGB24: "rgb24",
	RGBA:  "rgba",
	BGR24: "bgr24",
	GRAY8: "gray8",
}

func (f PixelFormat) String() string {
	if name, ok := pixelFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// BytesPerPixel returns the packed size of one pixel, or 0 for an
// unknown format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case RGB24, BGR24:
		return 3
	case RGBA:
		return 4
	case GRAY8:
		return 1
	}
	return 0
}

// Valid reports whether f is one of the supported output formats.
func (f PixelFormat) Valid() bool { return f.BytesPerPixel() > 0 }

func (f PixelFormat) av() avutil.PixelFormat {
	switch f {
	case RGB24:
		return avutil.PixelFormatRGB24
	case RGBA:
		return avutil.PixelFormatRGBA
	case BGR24:
		return avutil.PixelFormatBGR24
	case GRAY8:
		return avutil.PixelFormatGray8
	}
	return avutil.PixelFormatNone
}

// ParsePixelFormat parses a format name such as "rgb24" or "gray".
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rgb24", "rgb":
		return RGB24, nil
	case "rgba":
		return RGBA, nil
	case "bgr24", "bgr":
		return BGR24, nil
	case "gray8", "gray", "grey":
		return GRAY8, nil
	}
	return 0, newError(InvalidInput, "", "unknown pixel format %q", s)
}

// ScalingMethod selects the resampling algorithm used when the output
// size differs from the source.
type ScalingMethod int

const (
	Bilinear ScalingMethod = iota
	Bicubic
	AreaBased
	Fast
)

var scalingNames = map[ScalingMethod]string{
	Bilinear:  "bilinear",
	Bicubic:   "bicubic",
	AreaBased: "area",
	Fast:      "fast",
}

func (m ScalingMethod) String() string {
	if name, ok := scalingNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ScalingMethod(%d)", int(m))
}

// swsFlags returns the swscale flags for m. Accurate rounding and
// bit-exact mode are always on so output does not depend on the CPU.
func (m ScalingMethod) swsFlags() int32 {
	var algo int32
	switch m {
	case Bicubic:
		algo = swscale.FlagBicubic
	case AreaBased:
		algo = swscale.FlagArea
	case Fast:
		algo = swscale.FlagFastBilinear
	default:
		algo = swscale.FlagBilinear
	}
	return algo | swscale.FlagAccurateRnd | swscale.FlagBitExact
}

// ParseScalingMethod parses a method name such as "bicubic".
func ParseScalingMethod(s string) (ScalingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bilinear":
		return Bilinear, nil
	case "bicubic":
		return Bicubic, nil
	case "area", "areabased", "area_based":
		return AreaBased, nil
	case "fast", "fast_bilinear":
		return Fast, nil
	}
	return 0, newError(InvalidInput, "", "unknown scaling method %q", s)
}
