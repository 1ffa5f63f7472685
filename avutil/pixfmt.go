//go:build !ios && !android && (amd64 || arm64)

package avutil

import "strconv"

// PixelFormat represents FFmpeg pixel formats.
type PixelFormat int32

// Pixel formats from FFmpeg's pixfmt.h.
const (
	PixelFormatNone     PixelFormat = -1
	PixelFormatYUV420P  PixelFormat = 0
	PixelFormatYUYV422  PixelFormat = 1
	PixelFormatRGB24    PixelFormat = 2
	PixelFormatBGR24    PixelFormat = 3
	PixelFormatYUV422P  PixelFormat = 4
	PixelFormatYUV444P  PixelFormat = 5
	PixelFormatGray8    PixelFormat = 8
	PixelFormatYUVJ420P PixelFormat = 12
	PixelFormatYUVJ422P PixelFormat = 13
	PixelFormatYUVJ444P PixelFormat = 14
	PixelFormatNV12     PixelFormat = 23
	PixelFormatNV21     PixelFormat = 24
	PixelFormatARGB     PixelFormat = 25
	PixelFormatRGBA     PixelFormat = 26
	PixelFormatABGR     PixelFormat = 27
	PixelFormatBGRA     PixelFormat = 28
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatNone:     "none",
	PixelFormatYUV420P:  "yuv420p",
	PixelFormatYUYV422:  "yuyv422",
	PixelFormatRGB24:    "rgb24",
	PixelFormatBGR24:    "bgr24",
	PixelFormatYUV422P:  "yuv422p",
	PixelFormatYUV444P:  "yuv444p",
	PixelFormatGray8:    "gray",
	PixelFormatYUVJ420P: "yuvj420p",
	PixelFormatYUVJ422P: "yuvj422p",
	PixelFormatYUVJ444P: "yuvj444p",
	PixelFormatNV12:     "nv12",
	PixelFormatNV21:     "nv21",
	PixelFormatARGB:     "argb",
	PixelFormatRGBA:     "rgba",
	PixelFormatABGR:     "abgr",
	PixelFormatBGRA:     "bgra",
}

// String returns FFmpeg's short name for the format, or "pixfmt(N)".
func (p PixelFormat) String() string {
	if name, ok := pixelFormatNames[p]; ok {
		return name
	}
	return "pixfmt(" + strconv.Itoa(int(p)) + ")"
}

// MediaType represents FFmpeg media types.
type MediaType int32

const (
	MediaTypeUnknown    MediaType = -1
	MediaTypeVideo      MediaType = 0
	MediaTypeAudio      MediaType = 1
	MediaTypeData       MediaType = 2
	MediaTypeSubtitle   MediaType = 3
	MediaTypeAttachment MediaType = 4
)

func (m MediaType) String() string {
	switch m {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeData:
		return "data"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeAttachment:
		return "attachment"
	}
	return "unknown"
}
