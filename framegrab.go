//go:build !ios && !android && (amd64 || arm64)

// Package framegrab extracts a single decoded video frame at a given time
// from a media file or an in-memory buffer and returns it as a tightly
// packed pixel buffer.
//
// FFmpeg (libavformat, libavcodec, libswscale, libavutil) is loaded at
// runtime through purego; no cgo is involved. The low-level packages
// avutil, avcodec, avformat and swscale expose the subset of FFmpeg the
// pipeline uses.
//
//	img, err := framegrab.ExtractFile("clip.mp4", 3.0,
//		framegrab.WithPixelFormat(framegrab.RGBA),
//		framegrab.WithSize(640, 0))
package framegrab

import (
	"fmt"
	"strings"
	"sync"

	"github.com/obinnaokechukwu/framegrab/avformat"
	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/internal/bindings"
	"github.com/obinnaokechukwu/framegrab/swscale"
)

const tracerName = "github.com/obinnaokechukwu/framegrab"

var (
	initMu   sync.Mutex
	initDone bool

	ffmpegLogLevel = avutil.LogError
)

// Init loads the FFmpeg libraries and binds every function the pipeline
// uses. It is safe for concurrent use, does nothing after the first
// success, and may be retried after a failure. Extractions call it
// implicitly.
func Init() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initDone {
		return nil
	}
	if err := avformat.Register(); err != nil {
		return translate(StageInit, err)
	}
	if err := swscale.Register(); err != nil {
		return translate(StageInit, err)
	}
	avutil.SetLogLevel(ffmpegLogLevel)
	initDone = true
	return nil
}

// IsInitialized reports whether Init has succeeded.
func IsInitialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initDone
}

var ffmpegLogLevels = map[string]avutil.LogLevel{
	"quiet":   avutil.LogQuiet,
	"panic":   avutil.LogPanic,
	"fatal":   avutil.LogFatal,
	"error":   avutil.LogError,
	"warning": avutil.LogWarning,
	"info":    avutil.LogInfo,
	"verbose": avutil.LogVerbose,
	"debug":   avutil.LogDebug,
}

// SetFFmpegLogLevel sets the level of FFmpeg's own stderr logging by name
// ("quiet", "error", "debug", ...). It applies immediately if FFmpeg is
// loaded and otherwise on Init.
func SetFFmpegLogLevel(name string) error {
	level, ok := ffmpegLogLevels[strings.ToLower(name)]
	if !ok {
		return newError(InvalidInput, StageInit, "unknown FFmpeg log level %q", name)
	}
	initMu.Lock()
	defer initMu.Unlock()
	ffmpegLogLevel = level
	if initDone {
		avutil.SetLogLevel(level)
	}
	return nil
}

// Versions holds the runtime versions of the loaded FFmpeg libraries as
// "major.minor.micro".
type Versions struct {
	AVUtil   string
	AVCodec  string
	AVFormat string
	SWScale  string
}

// LibraryVersions initializes FFmpeg if needed and reports its versions.
func LibraryVersions() (Versions, error) {
	if err := Init(); err != nil {
		return Versions{}, err
	}
	v := bindings.LibraryVersions()
	return Versions{
		AVUtil:   versionString(v.AVUtil),
		AVCodec:  versionString(v.AVCodec),
		AVFormat: versionString(v.AVFormat),
		SWScale:  versionString(v.SWScale),
	}, nil
}

// versionString unpacks AV_VERSION_INT.
func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)
}
