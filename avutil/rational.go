//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"fmt"
	"math"
)

// Rational is an AVRational. Stream time bases are Rationals: a timestamp
// ts corresponds to ts*Num/Den seconds.
type Rational struct {
	Num int32
	Den int32
}

// Valid reports whether both terms are positive, which FFmpeg guarantees for
// a usable stream time base.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// String formats r as "num/den", the form av_opt_set parses.
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Seconds converts a timestamp in this time base to seconds.
func (r Rational) Seconds(ts int64) float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(ts) * float64(r.Num) / float64(r.Den)
}

// Timestamp converts seconds to a timestamp in this time base, truncating
// toward zero. Values outside the int64 range saturate, staying clear of
// NoPTSValue.
func (r Rational) Timestamp(sec float64) int64 {
	if r.Num == 0 {
		return 0
	}
	v := math.Trunc(sec * float64(r.Den) / float64(r.Num))
	switch {
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64+1:
		return math.MinInt64 + 1
	}
	return int64(v)
}
