// Package keyframes indexes the sync samples of an MP4 video track.
//
// An extraction at time t decodes forward from the keyframe at or before
// t; the index shows where that is without opening the file in FFmpeg.
// Both progressive and fragmented MP4 files are supported.
package keyframes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ErrNoVideoTrack is returned when the file has no video track.
var ErrNoVideoTrack = errors.New("keyframes: no video track found")

// nonSyncSample is the sample_is_non_sync_sample bit of ISO BMFF sample
// flags.
const nonSyncSample = 1 << 16

// Keyframe is one sync sample.
type Keyframe struct {
	// Sample is the 1-based sample number within the track.
	Sample uint32 `json:"sample"`
	// DecodeTime and PTS are in the track timescale. PTS includes the
	// composition offset and the edit list shift.
	DecodeTime uint64 `json:"decode_time"`
	PTS        int64  `json:"pts"`
	// Time is PTS in seconds.
	Time float64 `json:"time"`
}

// Index lists the keyframes of one video track.
type Index struct {
	TrackID    uint32 `json:"track_id"`
	Timescale  uint32 `json:"timescale"`
	Codec      string `json:"codec,omitempty"`
	Fragmented bool   `json:"fragmented"`
	Samples    int    `json:"samples"`
	// Duration is the track duration in seconds.
	Duration  float64    `json:"duration"`
	Keyframes []Keyframe `json:"keyframes"`
}

// BuildFile indexes the MP4 file at path.
func BuildFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("keyframes: open: %w", err)
	}
	defer f.Close()
	return Build(f)
}

// BuildBytes indexes an in-memory MP4.
func BuildBytes(data []byte) (*Index, error) {
	return Build(bytes.NewReader(data))
}

// Build indexes the first video track read from r.
func Build(r io.ReadSeeker) (*Index, error) {
	file, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("keyframes: decode mp4: %w", err)
	}

	moov := file.Moov
	if moov == nil && file.Init != nil {
		moov = file.Init.Moov
	}
	if moov == nil {
		return nil, ErrNoVideoTrack
	}
	trak := videoTrak(moov)
	if trak == nil {
		return nil, ErrNoVideoTrack
	}

	ix := &Index{
		TrackID:    trak.Tkhd.TrackID,
		Timescale:  1000,
		Fragmented: file.IsFragmented(),
	}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		ix.Timescale = trak.Mdia.Mdhd.Timescale
	}
	if stsd := sampleDescriptions(trak); stsd != nil && len(stsd.Children) > 0 {
		ix.Codec = stsd.Children[0].Type()
	}
	shift := editShift(trak)

	var end int64
	if ix.Fragmented {
		end, err = ix.scanFragments(file, moov, shift)
	} else {
		end, err = ix.scanSampleTable(trak, shift)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(ix.Keyframes, func(i, j int) bool { return ix.Keyframes[i].PTS < ix.Keyframes[j].PTS })
	ix.Duration = float64(end) / float64(ix.Timescale)
	return ix, nil
}

func videoTrak(moov *mp4.MoovBox) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

func sampleDescriptions(trak *mp4.TrakBox) *mp4.StsdBox {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil
	}
	return trak.Mdia.Minf.Stbl.Stsd
}

// editShift returns the media time of the first edit, which players
// subtract from every presentation time.
func editShift(trak *mp4.TrakBox) int64 {
	if trak.Edts == nil {
		return 0
	}
	for _, elst := range trak.Edts.Elst {
		for _, e := range elst.Entries {
			if e.MediaTime >= 0 {
				return e.MediaTime
			}
		}
	}
	return 0
}

func (ix *Index) add(sample uint32, dts uint64, pts int64) {
	ix.Keyframes = append(ix.Keyframes, Keyframe{
		Sample:     sample,
		DecodeTime: dts,
		PTS:        pts,
		Time:       float64(pts) / float64(ix.Timescale),
	})
}

func (ix *Index) scanSampleTable(trak *mp4.TrakBox, shift int64) (int64, error) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return 0, errors.New("keyframes: no sample table")
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stts == nil {
		return 0, errors.New("keyframes: missing stsz or stts box")
	}

	count := stbl.Stsz.SampleNumber
	ix.Samples = int(count)

	// Without stss every sample is a sync sample.
	sync := func(nr uint32) bool { return true }
	if stbl.Stss != nil {
		set := make(map[uint32]bool, len(stbl.Stss.SampleNumber))
		for _, nr := range stbl.Stss.SampleNumber {
			set[nr] = true
		}
		sync = func(nr uint32) bool { return set[nr] }
	}

	var end int64
	for nr := uint32(1); nr <= count; nr++ {
		dts, dur := stbl.Stts.GetDecodeTime(nr)
		pts := int64(dts) - shift
		if stbl.Ctts != nil {
			pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}
		if e := pts + int64(dur); e > end {
			end = e
		}
		if sync(nr) {
			ix.add(nr, dts, pts)
		}
	}
	return end, nil
}

func (ix *Index) scanFragments(file *mp4.File, moov *mp4.MoovBox, shift int64) (int64, error) {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == ix.TrackID {
				trex = t
				break
			}
		}
	}

	var (
		end int64
		nr  uint32
	)
	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTrack(frag.Moof, ix.TrackID) {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return 0, fmt.Errorf("keyframes: fragment %d: %w", frag.Moof.Mfhd.SequenceNumber, err)
			}
			for _, s := range samples {
				nr++
				pts := int64(s.DecodeTime) + int64(s.CompositionTimeOffset) - shift
				if e := pts + int64(s.Dur); e > end {
					end = e
				}
				if s.Flags&nonSyncSample == 0 {
					ix.add(nr, s.DecodeTime, pts)
				}
			}
		}
	}
	ix.Samples = int(nr)
	return end, nil
}

func hasTrack(moof *mp4.MoofBox, trackID uint32) bool {
	for _, traf := range moof.Trafs {
		if traf.Tfhd.TrackID == trackID {
			return true
		}
	}
	return false
}

// SeekLanding returns the keyframe a seek to t lands on: the last one at
// or before t, or the first keyframe when t precedes all of them. ok is
// false when the track has no keyframes.
func (ix *Index) SeekLanding(t float64) (k Keyframe, ok bool) {
	if len(ix.Keyframes) == 0 {
		return Keyframe{}, false
	}
	i := sort.Search(len(ix.Keyframes), func(i int) bool { return ix.Keyframes[i].Time > t })
	if i == 0 {
		return ix.Keyframes[0], true
	}
	return ix.Keyframes[i-1], true
}

// DecodeDistance returns how many seconds of video must be decoded after
// the landing keyframe to reach t.
func (ix *Index) DecodeDistance(t float64) float64 {
	k, ok := ix.SeekLanding(t)
	if !ok || t < k.Time {
		return 0
	}
	return t - k.Time
}
