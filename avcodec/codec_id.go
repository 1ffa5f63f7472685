//go:build !ios && !android && (amd64 || arm64)

package avcodec

// CodecID represents FFmpeg codec identifiers.
type CodecID int32

// Video codec IDs from FFmpeg's codec_id.h.
const (
	CodecIDNone       CodecID = 0
	CodecIDMPEG1VIDEO CodecID = 1
	CodecIDMPEG2VIDEO CodecID = 2
	CodecIDMJPEG      CodecID = 7
	CodecIDMPEG4      CodecID = 12
	CodecIDRAWVIDEO   CodecID = 13
	CodecIDH264       CodecID = 27
	CodecIDPNG        CodecID = 61
	CodecIDVP8        CodecID = 139
	CodecIDVP9        CodecID = 167
	CodecIDHEVC       CodecID = 173
	CodecIDAV1        CodecID = 226
)

var codecNames = map[CodecID]string{
	CodecIDNone:       "none",
	CodecIDMPEG1VIDEO: "mpeg1video",
	CodecIDMPEG2VIDEO: "mpeg2video",
	CodecIDMJPEG:      "mjpeg",
	CodecIDMPEG4:      "mpeg4",
	CodecIDRAWVIDEO:   "rawvideo",
	CodecIDH264:       "h264",
	CodecIDPNG:        "png",
	CodecIDVP8:        "vp8",
	CodecIDVP9:        "vp9",
	CodecIDHEVC:       "hevc",
	CodecIDAV1:        "av1",
}

// String returns the FFmpeg codec name, or "unknown".
func (id CodecID) String() string {
	if name, ok := codecNames[id]; ok {
		return name
	}
	return "unknown"
}
