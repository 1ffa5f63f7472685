//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"io"

	"github.com/obinnaokechukwu/framegrab/avcodec"
	"github.com/obinnaokechukwu/framegrab/avformat"
	"github.com/obinnaokechukwu/framegrab/avutil"
)

// ffmpegBackend is the Backend used outside tests.
type ffmpegBackend struct{}

// FFmpegBackend returns the libavformat/libavcodec/libswscale backend.
func FFmpegBackend() Backend { return ffmpegBackend{} }

func (ffmpegBackend) Open(src Source) (Container, error) {
	var hint avformat.InputFormat
	if name := src.FormatHint(); name != "" {
		if hint = avformat.FindInputFormat(name); hint == nil {
			return nil, avutil.NewError(avutil.AVERROR_DEMUXER_NOT_FOUND, "av_find_input_format")
		}
	}

	c := &ffmpegContainer{}
	if src.IsFile() {
		if err := avformat.OpenInput(&c.ctx, src.Path(), hint); err != nil {
			return nil, err
		}
	} else {
		if len(src.Bytes()) == 0 {
			return nil, avutil.NewError(avutil.AVERROR_INVALIDDATA, "avformat_open_input")
		}
		mio, err := newMemoryIO(src.Bytes())
		if err != nil {
			return nil, err
		}
		c.ctx = avformat.AllocContext()
		if c.ctx == nil {
			mio.Close()
			return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "avformat_alloc_context")
		}
		avformat.SetIOContext(c.ctx, mio.ctx)
		// On failure FFmpeg frees the format context but not our pb.
		if err := avformat.OpenInput(&c.ctx, "", hint); err != nil {
			mio.Close()
			return nil, err
		}
		c.mio = mio
	}

	if err := avformat.FindStreamInfo(c.ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.streams = readStreams(c.ctx)
	return c, nil
}

func (ffmpegBackend) NewConverter(cfg ConverterConfig) (Converter, error) {
	return newFFmpegConverter(cfg)
}

func readStreams(ctx avformat.FormatContext) []StreamInfo {
	n := avformat.GetNumStreams(ctx)
	streams := make([]StreamInfo, 0, n)
	for i := 0; i < n; i++ {
		st := avformat.GetStream(ctx, i)
		if st == nil {
			continue
		}
		par := avformat.GetStreamCodecPar(st)
		streams = append(streams, StreamInfo{
			Index:       int(avformat.GetStreamIndex(st)),
			MediaType:   avformat.GetCodecParType(par),
			CodecID:     avformat.GetCodecParCodecID(par),
			Width:       int(avformat.GetCodecParWidth(par)),
			Height:      int(avformat.GetCodecParHeight(par)),
			PixelFormat: avformat.GetCodecParFormat(par),
			TimeBase:    avformat.GetStreamTimeBase(st),
			StartTime:   avformat.GetStreamStartTime(st),
			Duration:    avformat.GetStreamDuration(st),
		})
	}
	return streams
}

type ffmpegContainer struct {
	ctx     avformat.FormatContext
	mio     *memoryIO
	pkt     avcodec.Packet
	streams []StreamInfo
}

func (c *ffmpegContainer) Streams() []StreamInfo { return c.streams }

func (c *ffmpegContainer) BestVideoStream() (int, bool) {
	idx := avformat.FindBestStream(c.ctx, avutil.MediaTypeVideo)
	if idx < 0 {
		return -1, false
	}
	return int(idx), true
}

func (c *ffmpegContainer) Seek(stream int, minTS, ts, maxTS int64) error {
	return avformat.SeekFile(c.ctx, int32(stream), minTS, ts, maxTS, 0)
}

type ffmpegPacket struct {
	pkt avcodec.Packet
}

func (p ffmpegPacket) StreamIndex() int { return int(avcodec.GetPacketStreamIndex(p.pkt)) }

func (p ffmpegPacket) PTS() (int64, bool) {
	pts := avcodec.GetPacketPTS(p.pkt)
	return pts, pts != avutil.NoPTSValue
}

func (p ffmpegPacket) Key() bool { return avcodec.GetPacketFlags(p.pkt)&avcodec.PacketFlagKey != 0 }

func (c *ffmpegContainer) ReadPacket() (Packet, error) {
	if c.pkt == nil {
		if c.pkt = avcodec.PacketAlloc(); c.pkt == nil {
			return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "av_packet_alloc")
		}
	} else {
		avcodec.PacketUnref(c.pkt)
	}
	if err := avformat.ReadFrame(c.ctx, c.pkt); err != nil {
		if avutil.IsEOF(err) {
			return nil, io.EOF
		}
		return nil, err
	}
	return ffmpegPacket{pkt: c.pkt}, nil
}

func (c *ffmpegContainer) NewDecoder(stream int) (Decoder, error) {
	st := avformat.GetStream(c.ctx, stream)
	if st == nil {
		return nil, avutil.NewError(avutil.AVERROR_STREAM_NOT_FOUND, "avformat_get_stream")
	}
	return newFFmpegDecoder(avformat.GetStreamCodecPar(st), avformat.GetStreamTimeBase(st))
}

func (c *ffmpegContainer) Close() error {
	if c.pkt != nil {
		avcodec.PacketFree(&c.pkt)
	}
	avformat.CloseInput(&c.ctx)
	if c.mio != nil {
		c.mio.Close()
		c.mio = nil
	}
	return nil
}
