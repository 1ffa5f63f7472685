//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/swscale"
)

// ffmpegConverter scales into a destination frame it owns; each Convert
// overwrites the previous result.
type ffmpegConverter struct {
	cfg ConverterConfig
	sws swscale.Context
	dst avutil.Frame
}

func newFFmpegConverter(cfg ConverterConfig) (*ffmpegConverter, error) {
	if cfg.SrcWidth <= 0 || cfg.SrcHeight <= 0 || cfg.DstWidth <= 0 || cfg.DstHeight <= 0 {
		return nil, fmt.Errorf("framegrab: invalid converter geometry %dx%d -> %dx%d",
			cfg.SrcWidth, cfg.SrcHeight, cfg.DstWidth, cfg.DstHeight)
	}
	if !swscale.IsSupportedInput(cfg.SrcFormat) {
		return nil, fmt.Errorf("framegrab: swscale cannot read %v", cfg.SrcFormat)
	}
	if !swscale.IsSupportedOutput(cfg.DstFormat) {
		return nil, fmt.Errorf("framegrab: swscale cannot write %v", cfg.DstFormat)
	}
	c := &ffmpegConverter{cfg: cfg}
	c.sws = swscale.GetContext(cfg.SrcWidth, cfg.SrcHeight, cfg.SrcFormat,
		cfg.DstWidth, cfg.DstHeight, cfg.DstFormat, cfg.Method.swsFlags())
	if c.sws == nil {
		return nil, fmt.Errorf("framegrab: sws_getContext rejected %v %dx%d -> %v %dx%d",
			cfg.SrcFormat, cfg.SrcWidth, cfg.SrcHeight, cfg.DstFormat, cfg.DstWidth, cfg.DstHeight)
	}

	if c.dst = avutil.FrameAlloc(); c.dst == nil {
		c.Close()
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "av_frame_alloc")
	}
	avutil.SetFrameWidth(c.dst, int32(cfg.DstWidth))
	avutil.SetFrameHeight(c.dst, int32(cfg.DstHeight))
	avutil.SetFrameFormat(c.dst, cfg.DstFormat)
	if err := avutil.FrameGetBuffer(c.dst, 0); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *ffmpegConverter) Convert(f Frame) (Frame, error) {
	src, ok := f.(avFrame)
	if !ok {
		return nil, errors.New("framegrab: frame does not come from the FFmpeg backend")
	}
	if src.Width() != c.cfg.SrcWidth || src.Height() != c.cfg.SrcHeight || src.PixelFormat() != c.cfg.SrcFormat {
		return nil, fmt.Errorf("framegrab: frame %v %dx%d does not match converter input %v %dx%d",
			src.PixelFormat(), src.Width(), src.Height(), c.cfg.SrcFormat, c.cfg.SrcWidth, c.cfg.SrcHeight)
	}
	rows := swscale.ScaleFrame(c.sws, c.dst, src.f)
	if err := avutil.NewError(rows, "sws_scale"); err != nil {
		return nil, err
	}
	if int(rows) != c.cfg.DstHeight {
		return nil, fmt.Errorf("framegrab: sws_scale wrote %d rows, want %d", rows, c.cfg.DstHeight)
	}
	return avFrame{f: c.dst}, nil
}

func (c *ffmpegConverter) Close() error {
	swscale.FreeContext(c.sws)
	c.sws = nil
	avutil.FrameFree(&c.dst)
	return nil
}
