//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// accept reports whether f satisfies the request. Frames without a pts
// are accepted as they come.
func accept(f Frame, target int64) bool {
	pts, ok := f.PTS()
	return !ok || pts >= target
}

// decodeUntil feeds packets of stream to d until a frame at or after
// target comes out, then flushes the decoder once the input ends. It
// returns FrameNotFound if the stream runs out first.
func decodeUntil(c Container, d Decoder, stream int, target int64, log *zap.Logger) (Frame, error) {
	packets := 0
	for {
		pkt, err := c.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, translate(StageRead, err)
		}
		if pkt.StreamIndex() != stream {
			continue
		}
		packets++
		if packets == 1 {
			pts, ok := pkt.PTS()
			log.Debug("first packet after seek",
				zap.Int64("pts", pts),
				zap.Bool("has_pts", ok),
				zap.Bool("keyframe", pkt.Key()))
		}
		if err := d.SendPacket(pkt); err != nil {
			return nil, translate(StageSend, err)
		}
		f, err := drain(d, target, StageReceive, log)
		if err != nil || f != nil {
			return f, err
		}
	}

	log.Debug("input exhausted, flushing decoder", zap.Int("packets", packets))
	if err := d.SendEOF(); err != nil {
		return nil, translate(StageFlush, err)
	}
	f, err := drain(d, target, StageFlush, log)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, newError(FrameNotFound, StageFlush, "no frame at or after timestamp %d", target)
	}
	return f, nil
}

// drain pulls frames until the decoder wants more input or is empty.
// It returns the first accepted frame, or nil if none was ready.
func drain(d Decoder, target int64, stage Stage, log *zap.Logger) (Frame, error) {
	for {
		f, err := d.ReceiveFrame()
		if errors.Is(err, ErrWouldBlock) || errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, translate(stage, err)
		}
		if !accept(f, target) {
			continue
		}
		if _, ok := f.PTS(); !ok && target > 0 {
			log.Debug("accepting frame without pts", zap.Int64("target", target))
		}
		return f, nil
	}
}
