//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"math"

	"github.com/obinnaokechukwu/framegrab/avutil"
)

// checkTime validates a request time against the negative-time policy and
// returns the effective time in seconds.
func checkTime(timeSec float64, policy NegativeTimePolicy) (float64, error) {
	if math.IsNaN(timeSec) || math.IsInf(timeSec, 0) {
		return 0, newError(InvalidInput, StageSeek, "time %v is not a finite number", timeSec)
	}
	if timeSec < 0 {
		if policy == RejectNegative {
			return 0, newError(InvalidInput, StageSeek, "negative time %v", timeSec)
		}
		return 0, nil
	}
	return timeSec, nil
}

// targetTimestamp converts seconds into the stream's time base, truncating
// toward zero. Values outside the int64 range saturate.
func targetTimestamp(timeSec float64, tb avutil.Rational) (int64, error) {
	if !tb.Valid() {
		return 0, newError(InvalidInput, StageSeek, "stream time base %d/%d is not positive", tb.Num, tb.Den)
	}
	return tb.Timestamp(timeSec), nil
}

// seekBefore issues the single backward seek of an extraction: the demuxer
// lands on the last keyframe of stream at or before target.
func seekBefore(c Container, stream int, target int64) error {
	if err := c.Seek(stream, math.MinInt64, target, target); err != nil {
		return translate(StageSeek, err)
	}
	return nil
}
