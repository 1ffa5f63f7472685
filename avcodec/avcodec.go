//go:build !ios && !android && (amd64 || arm64)

// Package avcodec binds the decoding half of libavcodec.
package avcodec

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/internal/bindings"
)

// Codec is an opaque FFmpeg AVCodec pointer.
type Codec = unsafe.Pointer

// Context is an opaque FFmpeg AVCodecContext pointer.
type Context = unsafe.Pointer

// Packet is an opaque FFmpeg AVPacket pointer.
type Packet = unsafe.Pointer

// Parameters is an opaque FFmpeg AVCodecParameters pointer.
type Parameters = unsafe.Pointer

var (
	avcodecFindDecoder     func(id int32) uintptr
	avcodecAllocContext3   func(codec uintptr) uintptr
	avcodecFreeContext     func(ctx *unsafe.Pointer)
	avcodecOpen2           func(ctx, codec uintptr, options *unsafe.Pointer) int32
	avcodecSendPacket      func(ctx, pkt uintptr) int32
	avcodecReceiveFrame    func(ctx, frame uintptr) int32
	avcodecParametersToCtx func(ctx, par uintptr) int32

	avPacketAlloc func() uintptr
	avPacketFree  func(pkt *unsafe.Pointer)
	avPacketUnref func(pkt uintptr)

	registerMu sync.Mutex
	registered bool
)

// Register binds the avcodec functions, loading FFmpeg if needed.
func Register() error {
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered {
		return nil
	}
	if err := avutil.Register(); err != nil {
		return err
	}

	lib := bindings.LibAVCodec()
	purego.RegisterLibFunc(&avcodecFindDecoder, lib, "avcodec_find_decoder")
	purego.RegisterLibFunc(&avcodecAllocContext3, lib, "avcodec_alloc_context3")
	purego.RegisterLibFunc(&avcodecFreeContext, lib, "avcodec_free_context")
	purego.RegisterLibFunc(&avcodecOpen2, lib, "avcodec_open2")
	purego.RegisterLibFunc(&avcodecSendPacket, lib, "avcodec_send_packet")
	purego.RegisterLibFunc(&avcodecReceiveFrame, lib, "avcodec_receive_frame")
	purego.RegisterLibFunc(&avcodecParametersToCtx, lib, "avcodec_parameters_to_context")

	purego.RegisterLibFunc(&avPacketAlloc, lib, "av_packet_alloc")
	purego.RegisterLibFunc(&avPacketFree, lib, "av_packet_free")
	purego.RegisterLibFunc(&avPacketUnref, lib, "av_packet_unref")

	registered = true
	return nil
}

// FindDecoder finds a decoder by codec ID.
func FindDecoder(id CodecID) Codec {
	if avcodecFindDecoder == nil {
		return nil
	}
	return unsafe.Pointer(avcodecFindDecoder(int32(id)))
}

// AllocContext3 allocates a codec context.
func AllocContext3(codec Codec) Context {
	if avcodecAllocContext3 == nil {
		return nil
	}
	return unsafe.Pointer(avcodecAllocContext3(uintptr(codec)))
}

// FreeContext frees a codec context and sets the pointer to nil.
func FreeContext(ctx *Context) {
	if ctx == nil || *ctx == nil || avcodecFreeContext == nil {
		return
	}
	// Stage the pointer-to-pointer in FFmpeg memory; passing a pointer into
	// Go memory aborts under some purego backends on macOS.
	tmp := avutil.Malloc(unsafe.Sizeof(uintptr(0)))
	if tmp != nil {
		*(*unsafe.Pointer)(tmp) = *ctx
		avcodecFreeContext((*unsafe.Pointer)(tmp))
		avutil.Free(tmp)
		*ctx = nil
		return
	}
	avcodecFreeContext(ctx)
	*ctx = nil
}

// Open2 opens a codec context.
func Open2(ctx Context, codec Codec) error {
	if avcodecOpen2 == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecOpen2(uintptr(ctx), uintptr(codec), nil), "avcodec_open2")
}

// ParametersToContext copies stream codec parameters into a context.
func ParametersToContext(ctx Context, par Parameters) error {
	if avcodecParametersToCtx == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecParametersToCtx(uintptr(ctx), uintptr(par)), "avcodec_parameters_to_context")
}

// SetPacketTimeBase sets pkt_timebase, the time base of the packets the
// decoder will be fed. Decoders use it when deriving frame timestamps.
// Call it before Open2.
func SetPacketTimeBase(ctx Context, tb avutil.Rational) error {
	return avutil.OptSet(ctx, "pkt_timebase", tb.String())
}

// SendPacket sends a packet to the decoder. A nil packet enters draining
// mode. Every failure is returned, including EAGAIN and EOF; callers that
// drain with ReceiveFrame after each send never see EAGAIN here.
func SendPacket(ctx Context, pkt Packet) error {
	if avcodecSendPacket == nil {
		return bindings.ErrNotLoaded
	}
	ret := avcodecSendPacket(uintptr(ctx), uintptr(pkt))
	runtime.KeepAlive(pkt)
	return avutil.NewError(ret, "avcodec_send_packet")
}

// ReceiveFrame receives a decoded frame. EAGAIN means more input is needed,
// EOF means the decoder is fully drained; check with avutil.IsAgain/IsEOF.
func ReceiveFrame(ctx Context, frame avutil.Frame) error {
	if avcodecReceiveFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecReceiveFrame(uintptr(ctx), uintptr(frame)), "avcodec_receive_frame")
}

// PacketAlloc allocates a packet.
func PacketAlloc() Packet {
	if avPacketAlloc == nil {
		return nil
	}
	return unsafe.Pointer(avPacketAlloc())
}

// PacketFree frees a packet.
func PacketFree(pkt *Packet) {
	if pkt == nil || *pkt == nil || avPacketFree == nil {
		return
	}
	avPacketFree(pkt)
	*pkt = nil
}

// PacketUnref unreferences a packet's buffers.
func PacketUnref(pkt Packet) {
	if pkt == nil || avPacketUnref == nil {
		return
	}
	avPacketUnref(uintptr(pkt))
}

// AVPacket field offsets for FFmpeg 6.x/7.x.
const (
	offsetPacketPts         = 8  // int64 pts
	offsetPacketStreamIndex = 36 // int stream_index
	offsetPacketFlags       = 40 // int flags
)

// PacketFlagKey marks a packet holding a keyframe.
const PacketFlagKey = 0x0001

// GetPacketPTS returns the presentation timestamp.
func GetPacketPTS(pkt Packet) int64 {
	if pkt == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Add(pkt, offsetPacketPts))
}

// GetPacketStreamIndex returns the stream index.
func GetPacketStreamIndex(pkt Packet) int32 {
	if pkt == nil {
		return -1
	}
	return *(*int32)(unsafe.Add(pkt, offsetPacketStreamIndex))
}

// GetPacketFlags returns the AV_PKT_FLAG_* bits.
func GetPacketFlags(pkt Packet) int32 {
	if pkt == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(pkt, offsetPacketFlags))
}
