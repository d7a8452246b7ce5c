package container

import "fmt"

// MediaType identifies what a stream carries.
type MediaType int

const (
	MediaAudio MediaType = iota
	MediaImage
)

func (t MediaType) String() string {
	switch t {
	case MediaAudio:
		return "audio"
	case MediaImage:
		return "image"
	default:
		return "unknown"
	}
}

// CodecID names the payload encoding of a stream's packets.
type CodecID string

// Codec identifiers produced by the built-in demuxers
const (
	CodecPCMU8    CodecID = "pcm_u8"
	CodecPCMS16LE CodecID = "pcm_s16le"
	CodecPCMS24LE CodecID = "pcm_s24le"
	CodecPCMS32LE CodecID = "pcm_s32le"
	CodecPCMF32LE CodecID = "pcm_f32le"
	CodecJPEG     CodecID = "mjpeg"
	CodecPNG      CodecID = "png"
	CodecImage    CodecID = "image"
)

// ChannelLayout describes the speaker arrangement of an audio stream.
type ChannelLayout int

func (l ChannelLayout) String() string {
	switch l {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", int(l))
	}
}

// LayoutFor returns the default layout for a channel count.
func LayoutFor(channels int) ChannelLayout {
	return ChannelLayout(channels)
}

// PictureFrontCover is the ID3/FLAC picture type for the front cover.
const PictureFrontCover = 3

// Stream describes one stream of a container. Streams never change once the
// container is open.
type Stream struct {
	Index         int
	Type          MediaType
	TimeBase      Rational
	SampleRate    int
	Channels      int
	Layout        ChannelLayout
	Codec         CodecID
	FormatName    string
	BitsPerSample int

	// Duration in TimeBase ticks, 0 when unknown
	Duration int64

	// Image streams only
	Picture     []byte
	PictureMIME string
	PictureType int
}

// DurationSeconds returns the stream length in seconds, or 0 when unknown.
func (s Stream) DurationSeconds() float64 {
	if s.Duration <= 0 || !s.TimeBase.Valid() {
		return 0
	}
	return s.TimeBase.Seconds(s.Duration)
}

func (s Stream) String() string {
	if s.Type == MediaImage {
		return fmt.Sprintf("#%d image %s (%d bytes)", s.Index, s.PictureMIME, len(s.Picture))
	}
	return fmt.Sprintf("#%d audio %s %d Hz %s %d-bit tb=%s",
		s.Index, s.Codec, s.SampleRate, s.Layout, s.BitsPerSample, s.TimeBase)
}
