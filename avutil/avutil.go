//go:build !ios && !android && (amd64 || arm64)

// Package avutil binds the parts of libavutil that frame extraction needs:
// frame allocation and field access, memory, options, error strings and
// log level.
package avutil

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/framegrab/internal/bindings"
)

// Frame is an opaque FFmpeg AVFrame pointer.
type Frame = unsafe.Pointer

var (
	avFrameAlloc     func() unsafe.Pointer
	avFrameFree      func(frame *unsafe.Pointer)
	avFrameGetBuffer func(frame unsafe.Pointer, align int32) int32

	avMalloc func(size uintptr) unsafe.Pointer
	avFree   func(ptr unsafe.Pointer)
	avOptSet func(obj unsafe.Pointer, name, val string, searchFlags int32) int32

	avStrerror    func(errnum int32, errbuf unsafe.Pointer, errbufSize uintptr) int32
	avLogSetLevel func(level int32)

	registerMu sync.Mutex
	registered bool
)

// Register loads FFmpeg and binds the avutil functions. Safe to call
// repeatedly; only the first successful call does any work.
func Register() error {
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered {
		return nil
	}
	if err := bindings.Load(); err != nil {
		return err
	}

	lib := bindings.LibAVUtil()
	purego.RegisterLibFunc(&avFrameAlloc, lib, "av_frame_alloc")
	purego.RegisterLibFunc(&avFrameFree, lib, "av_frame_free")
	purego.RegisterLibFunc(&avFrameGetBuffer, lib, "av_frame_get_buffer")

	purego.RegisterLibFunc(&avMalloc, lib, "av_malloc")
	purego.RegisterLibFunc(&avFree, lib, "av_free")
	purego.RegisterLibFunc(&avOptSet, lib, "av_opt_set")

	purego.RegisterLibFunc(&avStrerror, lib, "av_strerror")
	purego.RegisterLibFunc(&avLogSetLevel, lib, "av_log_set_level")

	layout = frameLayoutFor(bindings.Major(bindings.LibraryVersions().AVUtil))
	registered = true
	return nil
}

// FrameAlloc allocates an AVFrame. Free it with FrameFree.
func FrameAlloc() Frame {
	if avFrameAlloc == nil {
		return nil
	}
	return avFrameAlloc()
}

// FrameFree frees an AVFrame and sets the pointer to nil.
// Safe to call with nil pointer.
func FrameFree(frame *Frame) {
	if frame == nil || *frame == nil || avFrameFree == nil {
		return
	}
	avFrameFree(frame)
	*frame = nil
}

// FrameGetBuffer allocates buffers for a frame whose format, width and
// height have been set.
func FrameGetBuffer(frame Frame, align int32) error {
	if avFrameGetBuffer == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameGetBuffer(frame, align), "av_frame_get_buffer")
}

// NoPTSValue is AV_NOPTS_VALUE: the timestamp is undefined.
const NoPTSValue int64 = -9223372036854775808

// AVFrame field offsets shared by avutil 58 and 59.
const (
	offsetData     = 0   // uint8_t *data[8]
	offsetLinesize = 64  // int linesize[8]
	offsetWidth    = 104 // int width
	offsetHeight   = 108 // int height
	offsetFormat   = 116 // int format
)

// frameLayout holds the AVFrame offsets that move between avutil majors.
// avutil 59 dropped key_frame, the picture numbers, interlacing flags,
// reordered_opaque and channel_layout, all of which precede
// best_effort_timestamp.
type frameLayout struct {
	bestEffortTimestamp uintptr // int64_t best_effort_timestamp
}

func frameLayoutFor(major int) frameLayout {
	if major >= 59 {
		return frameLayout{bestEffortTimestamp: 304}
	}
	return frameLayout{bestEffortTimestamp: 344}
}

// layout is set by Register from the loaded library.
var layout = frameLayoutFor(58)

func field32(frame Frame, off uintptr) *int32 {
	return (*int32)(unsafe.Add(frame, off))
}

// GetFrameWidth returns the width of the frame.
func GetFrameWidth(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *field32(frame, offsetWidth)
}

// SetFrameWidth sets the width of the frame.
func SetFrameWidth(frame Frame, width int32) {
	if frame != nil {
		*field32(frame, offsetWidth) = width
	}
}

// GetFrameHeight returns the height of the frame.
func GetFrameHeight(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *field32(frame, offsetHeight)
}

// SetFrameHeight sets the height of the frame.
func SetFrameHeight(frame Frame, height int32) {
	if frame != nil {
		*field32(frame, offsetHeight) = height
	}
}

// GetFrameFormat returns the pixel format of a video frame.
func GetFrameFormat(frame Frame) PixelFormat {
	if frame == nil {
		return PixelFormatNone
	}
	return PixelFormat(*field32(frame, offsetFormat))
}

// SetFrameFormat sets the pixel format of a video frame.
func SetFrameFormat(frame Frame, format PixelFormat) {
	if frame != nil {
		*field32(frame, offsetFormat) = int32(format)
	}
}

// GetFrameBestEffortTimestamp returns the decoder's best guess at the
// frame's presentation time, in the stream time base, or NoPTSValue. It is
// filled from packet dts when the input carries no pts.
func GetFrameBestEffortTimestamp(frame Frame) int64 {
	if frame == nil {
		return NoPTSValue
	}
	return *(*int64)(unsafe.Add(frame, layout.bestEffortTimestamp))
}

// GetFrameLinesizePlane returns the linesize (stride) of a plane.
func GetFrameLinesizePlane(frame Frame, plane int) int32 {
	if frame == nil || plane < 0 || plane >= 8 {
		return 0
	}
	return (*[8]int32)(unsafe.Add(frame, offsetLinesize))[plane]
}

// GetFrameDataPlane returns the data pointer of a plane.
func GetFrameDataPlane(frame Frame, plane int) unsafe.Pointer {
	if frame == nil || plane < 0 || plane >= 8 {
		return nil
	}
	return (*[8]unsafe.Pointer)(unsafe.Add(frame, offsetData))[plane]
}

// Malloc allocates memory using FFmpeg's allocator.
func Malloc(size uintptr) unsafe.Pointer {
	if avMalloc == nil {
		return nil
	}
	return avMalloc(size)
}

// Free frees memory allocated by Malloc.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || avFree == nil {
		return
	}
	avFree(ptr)
}

// OptSet sets the AVOption name on an AVClass-enabled struct such as an
// AVCodecContext, parsing value the way the ffmpeg CLI does.
func OptSet(obj unsafe.Pointer, name, value string) error {
	if avOptSet == nil {
		return bindings.ErrNotLoaded
	}
	if obj == nil {
		return NewError(AVERROR_EINVAL, "av_opt_set")
	}
	return NewError(avOptSet(obj, name, value, 0), "av_opt_set")
}

// ErrorString returns FFmpeg's message for an error code.
func ErrorString(errnum int32) string {
	if avStrerror == nil {
		return "unknown error (FFmpeg not loaded)"
	}
	buf := make([]byte, 256)
	avStrerror(errnum, unsafe.Pointer(&buf[0]), uintptr(len(buf)))
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// LogLevel is an FFmpeg av_log level.
type LogLevel int32

const (
	LogQuiet   LogLevel = -8
	LogPanic   LogLevel = 0
	LogFatal   LogLevel = 8
	LogError   LogLevel = 16
	LogWarning LogLevel = 24
	LogInfo    LogLevel = 32
	LogVerbose LogLevel = 40
	LogDebug   LogLevel = 48
)

// SetLogLevel sets FFmpeg's global log level.
func SetLogLevel(level LogLevel) {
	if avLogSetLevel != nil {
		avLogSetLevel(int32(level))
	}
}
