//go:build !ios && !android && (amd64 || arm64)

// Package swscale binds libswscale for pixel format conversion and scaling.
package swscale

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/internal/bindings"
)

// Context is an opaque SwsContext pointer.
type Context = unsafe.Pointer

// Scaling algorithm flags.
const (
	FlagFastBilinear = 0x1
	FlagBilinear     = 0x2
	FlagBicubic      = 0x4
	FlagPoint        = 0x10
	FlagArea         = 0x20
	FlagLanczos      = 0x200

	// Rounding and chroma flags; FlagBitExact pins output across CPUs.
	FlagAccurateRnd = 0x40000
	FlagFullChrHInt = 0x2000
	FlagBitExact    = 0x80000
)

var (
	swsGetContext     func(srcW, srcH, srcFormat, dstW, dstH, dstFormat, flags int32, srcFilter, dstFilter, param unsafe.Pointer) uintptr
	swsScale          func(ctx unsafe.Pointer, srcSlice, srcStride unsafe.Pointer, srcSliceY, srcSliceH int32, dst, dstStride unsafe.Pointer) int32
	swsFreeContext    func(ctx unsafe.Pointer)
	swsIsSupportedIn  func(format int32) int32
	swsIsSupportedOut func(format int32) int32

	registerMu sync.Mutex
	registered bool
)

// Register binds the swscale functions, loading FFmpeg if needed.
func Register() error {
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered {
		return nil
	}
	if err := avutil.Register(); err != nil {
		return err
	}

	lib := bindings.LibSWScale()
	purego.RegisterLibFunc(&swsGetContext, lib, "sws_getContext")
	purego.RegisterLibFunc(&swsScale, lib, "sws_scale")
	purego.RegisterLibFunc(&swsFreeContext, lib, "sws_freeContext")
	purego.RegisterLibFunc(&swsIsSupportedIn, lib, "sws_isSupportedInput")
	purego.RegisterLibFunc(&swsIsSupportedOut, lib, "sws_isSupportedOutput")

	registered = true
	return nil
}

// GetContext creates a scaling context, or returns nil if FFmpeg rejects
// the parameters (unsupported format, zero size).
func GetContext(srcW, srcH int, srcFormat avutil.PixelFormat, dstW, dstH int, dstFormat avutil.PixelFormat, flags int32) Context {
	if swsGetContext == nil {
		return nil
	}
	return unsafe.Pointer(swsGetContext(
		int32(srcW), int32(srcH), int32(srcFormat),
		int32(dstW), int32(dstH), int32(dstFormat),
		flags, nil, nil, nil,
	))
}

// FreeContext frees a scaling context. Safe to call with nil.
func FreeContext(ctx Context) {
	if ctx == nil || swsFreeContext == nil {
		return
	}
	swsFreeContext(ctx)
}

// ScaleFrame converts the whole of src into dst, which must already have
// buffers of the context's destination format and size. It returns the
// number of output rows written, or a negative AVERROR.
//
// sws_scale is used rather than sws_scale_frame so that dst buffers are
// never reallocated behind the caller.
func ScaleFrame(ctx Context, dst, src avutil.Frame) int32 {
	if ctx == nil || swsScale == nil {
		return avutil.AVERROR_EINVAL
	}
	var srcData, dstData [8]unsafe.Pointer
	var srcLinesize, dstLinesize [8]int32
	for i := 0; i < 8; i++ {
		srcData[i] = avutil.GetFrameDataPlane(src, i)
		srcLinesize[i] = avutil.GetFrameLinesizePlane(src, i)
		dstData[i] = avutil.GetFrameDataPlane(dst, i)
		dstLinesize[i] = avutil.GetFrameLinesizePlane(dst, i)
	}
	return swsScale(ctx,
		unsafe.Pointer(&srcData), unsafe.Pointer(&srcLinesize),
		0, avutil.GetFrameHeight(src),
		unsafe.Pointer(&dstData), unsafe.Pointer(&dstLinesize),
	)
}

// IsSupportedInput returns true if the pixel format is supported as input.
func IsSupportedInput(format avutil.PixelFormat) bool {
	if swsIsSupportedIn == nil {
		return false
	}
	return swsIsSupportedIn(int32(format)) > 0
}

// IsSupportedOutput returns true if the pixel format is supported as output.
func IsSupportedOutput(format avutil.PixelFormat) bool {
	if swsIsSupportedOut == nil {
		return false
	}
	return swsIsSupportedOut(int32(format)) > 0
}
