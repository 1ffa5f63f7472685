//go:build !ios && !android && (amd64 || arm64)

// Package avformat binds the demuxing half of libavformat: opening inputs
// from paths or custom I/O, stream discovery, seeking and packet reads.
package avformat

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/framegrab/avcodec"
	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/internal/bindings"
)

// FormatContext is an opaque FFmpeg AVFormatContext pointer.
type FormatContext = unsafe.Pointer

// InputFormat is an opaque FFmpeg AVInputFormat pointer.
type InputFormat = unsafe.Pointer

// Stream is an opaque FFmpeg AVStream pointer.
type Stream = unsafe.Pointer

// IOContext is an opaque FFmpeg AVIOContext pointer.
type IOContext = unsafe.Pointer

var (
	avformatOpenInput      func(ctx *unsafe.Pointer, url string, fmt, options unsafe.Pointer) int32
	avformatCloseInput     func(ctx *unsafe.Pointer)
	avformatFindStreamInfo func(ctx unsafe.Pointer, options unsafe.Pointer) int32
	avformatAllocContext   func() unsafe.Pointer
	avformatFreeContext    func(ctx unsafe.Pointer)
	avformatSeekFile       func(ctx unsafe.Pointer, streamIndex int32, minTS, ts, maxTS int64, flags int32) int32
	avFindInputFormat      func(name string) unsafe.Pointer

	avReadFrame      func(ctx, pkt unsafe.Pointer) int32
	avFindBestStream func(ctx unsafe.Pointer, mediaType, wanted, related int32, decoder unsafe.Pointer, flags int32) int32

	avioAllocContext func(buffer unsafe.Pointer, bufferSize, writeFlag int32, opaque uintptr, read, write, seek uintptr) unsafe.Pointer
	avioContextFree  func(ctx *unsafe.Pointer)

	registerMu sync.Mutex
	registered bool
)

// Register binds the avformat functions, loading FFmpeg if needed.
func Register() error {
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered {
		return nil
	}
	if err := avcodec.Register(); err != nil {
		return err
	}

	lib := bindings.LibAVFormat()
	purego.RegisterLibFunc(&avformatOpenInput, lib, "avformat_open_input")
	purego.RegisterLibFunc(&avformatCloseInput, lib, "avformat_close_input")
	purego.RegisterLibFunc(&avformatFindStreamInfo, lib, "avformat_find_stream_info")
	purego.RegisterLibFunc(&avformatAllocContext, lib, "avformat_alloc_context")
	purego.RegisterLibFunc(&avformatFreeContext, lib, "avformat_free_context")
	purego.RegisterLibFunc(&avformatSeekFile, lib, "avformat_seek_file")
	purego.RegisterLibFunc(&avFindInputFormat, lib, "av_find_input_format")

	purego.RegisterLibFunc(&avReadFrame, lib, "av_read_frame")
	purego.RegisterLibFunc(&avFindBestStream, lib, "av_find_best_stream")

	purego.RegisterLibFunc(&avioAllocContext, lib, "avio_alloc_context")
	purego.RegisterLibFunc(&avioContextFree, lib, "avio_context_free")

	codecPar = codecParLayoutFor(bindings.Major(bindings.LibraryVersions().AVCodec))
	registered = true
	return nil
}

// AllocContext allocates an AVFormatContext. Needed only for custom I/O;
// OpenInput allocates one itself when *ctx is nil.
func AllocContext() FormatContext {
	if avformatAllocContext == nil {
		return nil
	}
	return avformatAllocContext()
}

// FreeContext frees a context that was never passed to OpenInput.
func FreeContext(ctx FormatContext) {
	if ctx == nil || avformatFreeContext == nil {
		return
	}
	avformatFreeContext(ctx)
}

// OpenInput opens an input. On failure FFmpeg frees *ctx and sets it to nil,
// including a context preallocated by the caller.
func OpenInput(ctx *FormatContext, url string, format InputFormat) error {
	if avformatOpenInput == nil {
		return bindings.ErrNotLoaded
	}
	ret := avformatOpenInput(ctx, url, format, nil)
	runtime.KeepAlive(url)
	return avutil.NewError(ret, "avformat_open_input")
}

// CloseInput closes an input and frees the context. A custom pb is not
// freed; the caller owns it.
func CloseInput(ctx *FormatContext) {
	if ctx == nil || *ctx == nil || avformatCloseInput == nil {
		return
	}
	avformatCloseInput(ctx)
	*ctx = nil
}

// FindStreamInfo reads packets to fill in stream parameters.
func FindStreamInfo(ctx FormatContext) error {
	if avformatFindStreamInfo == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatFindStreamInfo(ctx, nil), "avformat_find_stream_info")
}

// FindInputFormat looks up a demuxer by short name ("mp4", "matroska").
// Returns nil if no demuxer has that name.
func FindInputFormat(name string) InputFormat {
	if avFindInputFormat == nil || name == "" {
		return nil
	}
	f := avFindInputFormat(name)
	runtime.KeepAlive(name)
	return f
}

// ReadFrame reads the next packet. Returns an AVERROR_EOF error at end.
func ReadFrame(ctx FormatContext, pkt avcodec.Packet) error {
	if avReadFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avReadFrame(ctx, pkt), "av_read_frame")
}

// SeekFile seeks so that the next packets read start at a keyframe with a
// timestamp in [minTS, maxTS], as close to ts as possible. Timestamps are
// in the stream's time base when streamIndex >= 0.
func SeekFile(ctx FormatContext, streamIndex int32, minTS, ts, maxTS int64, flags int32) error {
	if avformatSeekFile == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatSeekFile(ctx, streamIndex, minTS, ts, maxTS, flags), "avformat_seek_file")
}

// FindBestStream returns the index of the best stream of the given type,
// or a negative AVERROR (AVERROR_STREAM_NOT_FOUND, AVERROR_DECODER_NOT_FOUND).
func FindBestStream(ctx FormatContext, mediaType avutil.MediaType) int32 {
	if avFindBestStream == nil {
		return avutil.AVERROR_STREAM_NOT_FOUND
	}
	return avFindBestStream(ctx, int32(mediaType), -1, -1, nil, 0)
}

// IOAllocContext wraps avio_alloc_context for a read-only custom input.
// buffer must come from avutil.Malloc; FFmpeg may replace it, so free it
// through IOContextBuffer after use.
func IOAllocContext(buffer unsafe.Pointer, size int, opaque uintptr, read, seek uintptr) IOContext {
	if avioAllocContext == nil {
		return nil
	}
	return avioAllocContext(buffer, int32(size), 0, opaque, read, 0, seek)
}

// IOContextFree frees an AVIOContext allocated with IOAllocContext. The
// buffer is not freed.
func IOContextFree(ctx *IOContext) {
	if ctx == nil || *ctx == nil || avioContextFree == nil {
		return
	}
	avioContextFree(ctx)
	*ctx = nil
}

// AVIOContext.buffer follows the av_class pointer.
const offsetIOBuffer = 8

// IOContextBuffer returns the current internal buffer of an AVIOContext.
func IOContextBuffer(ctx IOContext) unsafe.Pointer {
	if ctx == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(ctx, offsetIOBuffer))
}

// AVFormatContext field offsets, unchanged between avformat 60 and 61.
const (
	offsetIOContext  = 32 // AVIOContext *pb
	offsetNumStreams = 44 // unsigned int nb_streams
	offsetStreams    = 48 // AVStream **streams
)

// SetIOContext installs a custom pb before OpenInput.
func SetIOContext(ctx FormatContext, pb IOContext) {
	if ctx != nil {
		*(*unsafe.Pointer)(unsafe.Add(ctx, offsetIOContext)) = pb
	}
}

// GetNumStreams returns the number of streams in the context.
func GetNumStreams(ctx FormatContext) int {
	if ctx == nil {
		return 0
	}
	return int(*(*uint32)(unsafe.Add(ctx, offsetNumStreams)))
}

// GetStream returns the stream at index, or nil when out of range.
func GetStream(ctx FormatContext, index int) Stream {
	if ctx == nil || index < 0 || index >= GetNumStreams(ctx) {
		return nil
	}
	streams := *(*unsafe.Pointer)(unsafe.Add(ctx, offsetStreams))
	if streams == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(streams, uintptr(index)*unsafe.Sizeof(uintptr(0))))
}

// AVStream field offsets, unchanged between avformat 60 and 61.
const (
	offsetStreamIndex     = 8  // int index
	offsetStreamCodecPar  = 16 // AVCodecParameters *codecpar
	offsetStreamTimeBase  = 32 // AVRational time_base
	offsetStreamStartTime = 40 // int64_t start_time
	offsetStreamDuration  = 48 // int64_t duration
)

// GetStreamIndex returns the stream index.
func GetStreamIndex(stream Stream) int32 {
	if stream == nil {
		return -1
	}
	return *(*int32)(unsafe.Add(stream, offsetStreamIndex))
}

// GetStreamCodecPar returns the codec parameters for the stream.
func GetStreamCodecPar(stream Stream) avcodec.Parameters {
	if stream == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(stream, offsetStreamCodecPar))
}

// GetStreamTimeBase returns the time base for a stream.
func GetStreamTimeBase(stream Stream) avutil.Rational {
	if stream == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(stream, offsetStreamTimeBase))
}

// GetStreamStartTime returns the first pts of the stream, in its time base.
func GetStreamStartTime(stream Stream) int64 {
	if stream == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Add(stream, offsetStreamStartTime))
}

// GetStreamDuration returns the stream duration in its time base.
func GetStreamDuration(stream Stream) int64 {
	if stream == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Add(stream, offsetStreamDuration))
}

// AVCodecParameters field offsets shared by avcodec 60 and 61.
const (
	offsetCodecParType    = 0 // enum AVMediaType codec_type
	offsetCodecParCodecID = 4 // enum AVCodecID codec_id
)

// codecParLayout holds the AVCodecParameters offsets that moved in
// avcodec 61, where coded_side_data and nb_coded_side_data follow
// extradata_size.
type codecParLayout struct {
	format uintptr
	width  uintptr
	height uintptr
}

func codecParLayoutFor(major int) codecParLayout {
	if major >= 61 {
		return codecParLayout{format: 44, width: 72, height: 76}
	}
	return codecParLayout{format: 28, width: 56, height: 60}
}

var codecPar = codecParLayoutFor(60)

// GetCodecParType returns the media type from codec parameters.
func GetCodecParType(par avcodec.Parameters) avutil.MediaType {
	if par == nil {
		return avutil.MediaTypeUnknown
	}
	return avutil.MediaType(*(*int32)(unsafe.Add(par, offsetCodecParType)))
}

// GetCodecParCodecID returns the codec ID from codec parameters.
func GetCodecParCodecID(par avcodec.Parameters) avcodec.CodecID {
	if par == nil {
		return avcodec.CodecIDNone
	}
	return avcodec.CodecID(*(*int32)(unsafe.Add(par, offsetCodecParCodecID)))
}

// GetCodecParFormat returns the pixel format of a video stream.
func GetCodecParFormat(par avcodec.Parameters) avutil.PixelFormat {
	if par == nil {
		return avutil.PixelFormatNone
	}
	return avutil.PixelFormat(*(*int32)(unsafe.Add(par, codecPar.format)))
}

// GetCodecParWidth returns the video width from codec parameters.
func GetCodecParWidth(par avcodec.Parameters) int32 {
	if par == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(par, codecPar.width))
}

// GetCodecParHeight returns the video height from codec parameters.
func GetCodecParHeight(par avcodec.Parameters) int32 {
	if par == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(par, codecPar.height))
}
