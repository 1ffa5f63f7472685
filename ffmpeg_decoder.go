//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"errors"
	"io"
	"unsafe"

	"github.com/obinnaokechukwu/framegrab/avcodec"
	"github.com/obinnaokechukwu/framegrab/avformat"
	"github.com/obinnaokechukwu/framegrab/avutil"
)

type ffmpegDecoder struct {
	ctx   avcodec.Context
	frame avutil.Frame
}

func newFFmpegDecoder(par avcodec.Parameters, tb avutil.Rational) (*ffmpegDecoder, error) {
	codec := avcodec.FindDecoder(avformat.GetCodecParCodecID(par))
	if codec == nil {
		return nil, avutil.NewError(avutil.AVERROR_DECODER_NOT_FOUND, "avcodec_find_decoder")
	}

	d := &ffmpegDecoder{ctx: avcodec.AllocContext3(codec)}
	if d.ctx == nil {
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "avcodec_alloc_context3")
	}
	if err := avcodec.ParametersToContext(d.ctx, par); err != nil {
		d.Close()
		return nil, err
	}
	if tb.Valid() {
		if err := avcodec.SetPacketTimeBase(d.ctx, tb); err != nil {
			d.Close()
			return nil, err
		}
	}
	if err := avcodec.Open2(d.ctx, codec); err != nil {
		d.Close()
		return nil, err
	}
	if d.frame = avutil.FrameAlloc(); d.frame == nil {
		d.Close()
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "av_frame_alloc")
	}
	return d, nil
}

func (d *ffmpegDecoder) SendPacket(p Packet) error {
	fp, ok := p.(ffmpegPacket)
	if !ok {
		return errors.New("framegrab: packet does not come from the FFmpeg backend")
	}
	return avcodec.SendPacket(d.ctx, fp.pkt)
}

func (d *ffmpegDecoder) ReceiveFrame() (Frame, error) {
	err := avcodec.ReceiveFrame(d.ctx, d.frame)
	switch {
	case err == nil:
		return avFrame{f: d.frame}, nil
	case avutil.IsAgain(err):
		return nil, ErrWouldBlock
	case avutil.IsEOF(err):
		return nil, io.EOF
	}
	return nil, err
}

func (d *ffmpegDecoder) SendEOF() error {
	err := avcodec.SendPacket(d.ctx, nil)
	if avutil.IsEOF(err) {
		// Already draining.
		return nil
	}
	return err
}

func (d *ffmpegDecoder) Close() error {
	avutil.FrameFree(&d.frame)
	avcodec.FreeContext(&d.ctx)
	return nil
}

// avFrame exposes an AVFrame through the Frame interface.
type avFrame struct {
	f avutil.Frame
}

func (a avFrame) Width() int                      { return int(avutil.GetFrameWidth(a.f)) }
func (a avFrame) Height() int                     { return int(avutil.GetFrameHeight(a.f)) }
func (a avFrame) PixelFormat() avutil.PixelFormat { return avutil.GetFrameFormat(a.f) }

// PTS uses best_effort_timestamp, which falls back to the packet dts when
// the demuxer supplies no pts, as raw elementary streams often do.
func (a avFrame) PTS() (int64, bool) {
	pts := avutil.GetFrameBestEffortTimestamp(a.f)
	return pts, pts != avutil.NoPTSValue
}

func (a avFrame) Plane(i int) ([]byte, int) {
	if i < 0 || i >= 8 {
		return nil, 0
	}
	data := avutil.GetFrameDataPlane(a.f, i)
	stride := int(avutil.GetFrameLinesizePlane(a.f, i))
	if data == nil || stride <= 0 {
		return nil, stride
	}
	rows := planeRows(a.PixelFormat(), i, a.Height())
	return unsafe.Slice((*byte)(data), stride*rows), stride
}

// planeRows returns the row count of plane i for a picture of the given
// height. Only 4:2:0 layouts subsample vertically among the formats the
// converter is fed in practice.
func planeRows(f avutil.PixelFormat, plane, height int) int {
	if plane == 0 {
		return height
	}
	switch f {
	case avutil.PixelFormatYUV420P, avutil.PixelFormatYUVJ420P, avutil.PixelFormatNV12, avutil.PixelFormatNV21:
		return (height + 1) / 2
	}
	return height
}
