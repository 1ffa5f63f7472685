//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"errors"

	"github.com/obinnaokechukwu/framegrab/avcodec"
	"github.com/obinnaokechukwu/framegrab/avutil"
)

// ErrWouldBlock is returned by Decoder.ReceiveFrame when the decoder needs
// more input before it can produce a frame.
var ErrWouldBlock = errors.New("framegrab: decoder needs more input")

// StreamInfo describes one stream of an opened container.
type StreamInfo struct {
	Index       int
	MediaType   avutil.MediaType
	CodecID     avcodec.CodecID
	Width       int
	Height      int
	PixelFormat avutil.PixelFormat
	TimeBase    avutil.Rational
	StartTime   int64 // in TimeBase units, avutil.NoPTSValue if unknown
	Duration    int64 // in TimeBase units, avutil.NoPTSValue if unknown
}

// Backend opens media and builds converters.
type Backend interface {
	Open(src Source) (Container, error)
	NewConverter(cfg ConverterConfig) (Converter, error)
}

// Container is an opened, demuxed media source.
type Container interface {
	Streams() []StreamInfo
	// BestVideoStream returns the preferred video stream index.
	BestVideoStream() (int, bool)
	// Seek positions the demuxer so that the next packet of stream is at
	// or before ts, within [minTS, maxTS].
	Seek(stream int, minTS, ts, maxTS int64) error
	// ReadPacket returns the next packet of any stream, or io.EOF.
	ReadPacket() (Packet, error)
	NewDecoder(stream int) (Decoder, error)
	Close() error
}

// Packet is one demuxed, still encoded unit. It is only valid until the
// next ReadPacket call.
type Packet interface {
	StreamIndex() int
	// PTS returns the presentation timestamp in stream time base units.
	PTS() (int64, bool)
	// Key reports whether the packet starts a keyframe.
	Key() bool
}

// Decoder turns packets of one stream into frames.
type Decoder interface {
	SendPacket(pkt Packet) error
	// ReceiveFrame returns the next decoded frame, ErrWouldBlock when more
	// input is needed, or io.EOF once fully drained after SendEOF.
	ReceiveFrame() (Frame, error)
	SendEOF() error
	Close() error
}

// Frame is a decoded picture. Frames returned by a Decoder or Converter
// are only valid until the next call on that object.
type Frame interface {
	Width() int
	Height() int
	PixelFormat() avutil.PixelFormat
	// PTS returns the presentation timestamp and whether it is defined.
	PTS() (int64, bool)
	// Plane returns the bytes of plane i and its row stride.
	Plane(i int) ([]byte, int)
}

// ConverterConfig fixes a converter's input and output geometry.
type ConverterConfig struct {
	SrcWidth  int
	SrcHeight int
	SrcFormat avutil.PixelFormat
	DstWidth  int
	DstHeight int
	DstFormat avutil.PixelFormat
	Method    ScalingMethod
}

// Converter rescales and converts frames of a fixed geometry.
type Converter interface {
	Convert(f Frame) (Frame, error)
	Close() error
}
