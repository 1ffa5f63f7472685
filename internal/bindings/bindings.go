//go:build !ios && !android && (amd64 || arm64)

// Package bindings loads the FFmpeg shared libraries used by framegrab.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/framegrab/internal/platform"
)

// ErrNotLoaded is returned when FFmpeg functions are called before Load().
var ErrNotLoaded = errors.New("framegrab: FFmpeg libraries not loaded; call framegrab.Init() first")

// ErrLibraryNotFound is returned when a required FFmpeg library cannot be found.
var ErrLibraryNotFound = errors.New("framegrab: FFmpeg library not found")

// ErrUnsupportedVersion is returned when a library loads but its major
// version is not one whose struct layouts are known.
var ErrUnsupportedVersion = errors.New("framegrab: unsupported FFmpeg library version")

// Supported major versions, newest first: FFmpeg 7.x and 6.x.
var (
	avutilVersions   = []int{59, 58}
	avcodecVersions  = []int{61, 60}
	avformatVersions = []int{61, 60}
	swscaleVersions  = []int{8, 7}
)

var (
	libAVUtil   uintptr
	libAVCodec  uintptr
	libAVFormat uintptr
	libSWScale  uintptr

	mu     sync.Mutex
	loaded bool
)

var (
	avutilVersion   func() uint32
	avcodecVersion  func() uint32
	avformatVersion func() uint32
	swscaleVersion  func() uint32
)

// IsLoaded reports whether the libraries have been loaded.
func IsLoaded() bool {
	mu.Lock()
	defer mu.Unlock()
	return loaded
}

// Load opens avutil, avcodec, avformat and swscale. Once it has succeeded,
// later calls return nil immediately. A failed load is retried on the next
// call, so installing FFmpeg while the process runs is picked up.
func Load() error {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return nil
	}
	if err := doLoad(); err != nil {
		return err
	}
	loaded = true
	return nil
}

func doLoad() error {
	// Dependency order: avutil first.
	util, err := loadLibrary("avutil", avutilVersions)
	if err != nil {
		return fmt.Errorf("loading libavutil: %w", err)
	}
	codec, err := loadLibrary("avcodec", avcodecVersions)
	if err != nil {
		return fmt.Errorf("loading libavcodec: %w", err)
	}
	format, err := loadLibrary("avformat", avformatVersions)
	if err != nil {
		return fmt.Errorf("loading libavformat: %w", err)
	}
	scale, err := loadLibrary("swscale", swscaleVersions)
	if err != nil {
		return fmt.Errorf("loading libswscale: %w", err)
	}

	libAVUtil, libAVCodec, libAVFormat, libSWScale = util, codec, format, scale

	purego.RegisterLibFunc(&avutilVersion, libAVUtil, "avutil_version")
	purego.RegisterLibFunc(&avcodecVersion, libAVCodec, "avcodec_version")
	purego.RegisterLibFunc(&avformatVersion, libAVFormat, "avformat_version")
	purego.RegisterLibFunc(&swscaleVersion, libSWScale, "swscale_version")

	// The bare-name fallback can resolve to any installed major.
	return errors.Join(
		checkMajor("avutil", avutilVersion(), avutilVersions),
		checkMajor("avcodec", avcodecVersion(), avcodecVersions),
		checkMajor("avformat", avformatVersion(), avformatVersions),
		checkMajor("swscale", swscaleVersion(), swscaleVersions),
	)
}

// Major extracts the major number from a packed AV_VERSION_INT.
func Major(version uint32) int { return int(version >> 16) }

func checkMajor(name string, version uint32, supported []int) error {
	major := Major(version)
	for _, m := range supported {
		if m == major {
			return nil
		}
	}
	return fmt.Errorf("%w: lib%s %d.%d.%d, want major %v",
		ErrUnsupportedVersion, name, major, (version>>8)&0xff, version&0xff, supported)
}

// loadLibrary tries versioned names in each search path, then lets the
// dynamic loader resolve the bare names.
func loadLibrary(name string, versions []int) (uintptr, error) {
	for _, candidate := range candidates(name, versions) {
		if lib, err := purego.Dlopen(candidate, purego.RTLD_NOW|purego.RTLD_GLOBAL); err == nil {
			return lib, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

func candidates(name string, versions []int) []string {
	names := make([]string, 0, len(versions)+1)
	for _, ver := range versions {
		names = append(names, platform.FormatLibraryName(name, ver))
	}
	names = append(names, platform.FormatLibraryName(name, 0))

	var out []string
	for _, dir := range LibrarySearchPaths() {
		for _, n := range names {
			out = append(out, filepath.Join(dir, n))
		}
	}
	return append(out, names...)
}

// LibrarySearchPaths returns platform-specific library search paths.
// FRAMEGRAB_FFMPEG_LIB_DIR, when set, is searched first.
func LibrarySearchPaths() []string {
	var paths []string
	if dir := os.Getenv("FRAMEGRAB_FFMPEG_LIB_DIR"); dir != "" {
		paths = append(paths, filepath.SplitList(dir)...)
	}

	switch runtime.GOOS {
	case "linux", "freebsd":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/local/lib",
			"/usr/lib",
			"/lib/x86_64-linux-gnu",
			"/lib",
		)
	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths,
			"/opt/homebrew/lib",
			"/usr/local/lib",
			"/opt/homebrew/opt/ffmpeg/lib",
			"/usr/local/opt/ffmpeg/lib",
		)
	case "windows":
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
		if winPath := os.Getenv("PATH"); winPath != "" {
			paths = append(paths, filepath.SplitList(winPath)...)
		}
		paths = append(paths, "C:\\ffmpeg\\bin")
	}
	return paths
}

// Versions holds the packed library versions (major<<16 | minor<<8 | micro).
type Versions struct {
	AVUtil   uint32
	AVCodec  uint32
	AVFormat uint32
	SWScale  uint32
}

// LibraryVersions returns zero values when the libraries are not loaded.
func LibraryVersions() Versions {
	if !IsLoaded() {
		return Versions{}
	}
	return Versions{
		AVUtil:   avutilVersion(),
		AVCodec:  avcodecVersion(),
		AVFormat: avformatVersion(),
		SWScale:  swscaleVersion(),
	}
}

// LibAVUtil returns the avutil library handle.
func LibAVUtil() uintptr { return libAVUtil }

// LibAVCodec returns the avcodec library handle.
func LibAVCodec() uintptr { return libAVCodec }

// LibAVFormat returns the avformat library handle.
func LibAVFormat() uintptr { return libAVFormat }

// LibSWScale returns the swscale library handle.
func LibSWScale() uintptr { return libSWScale }
