package container

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

const (
	// mp3FrameSamples is the sample count of one MPEG-1 Layer III frame
	mp3FrameSamples = 1152

	// go-mp3 always outputs interleaved 16-bit stereo: 4 bytes per sample frame
	mp3BytesPerFrame = 4
)

// mp3Demuxer reads through go-mp3, which hides the MPEG frames behind a PCM
// reader. Packets are one MPEG frame's worth of decoded 16-bit stereo, and
// seeks snap to the MPEG frame grid.
type mp3Demuxer struct {
	decoder *mp3.Decoder
	stream  Stream
	pos     int64 // sample frames
	total   int64
}

func openMP3(f *os.File) (Demuxer, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	sampleRate := decoder.SampleRate()
	total := int64(0)
	if length := decoder.Length(); length > 0 {
		total = length / mp3BytesPerFrame
	}

	return &mp3Demuxer{
		decoder: decoder,
		stream: Stream{
			Index:         0,
			Type:          MediaAudio,
			TimeBase:      SampleTimeBase(sampleRate),
			SampleRate:    sampleRate,
			Channels:      2,
			Layout:        LayoutFor(2),
			Codec:         CodecPCMS16LE,
			FormatName:    "MP3",
			BitsPerSample: 16,
			Duration:      total,
		},
		total: total,
	}, nil
}

func (d *mp3Demuxer) FormatName() string { return "mp3" }

func (d *mp3Demuxer) Streams() []Stream { return []Stream{d.stream} }

func (d *mp3Demuxer) Metadata() map[string]string { return map[string]string{} }

func (d *mp3Demuxer) ReadPacket() (*Packet, error) {
	if d.total > 0 && d.pos >= d.total {
		return nil, io.EOF
	}

	buf := make([]byte, mp3FrameSamples*mp3BytesPerFrame)
	n, err := io.ReadFull(d.decoder, buf)
	n -= n % mp3BytesPerFrame
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if n == 0 {
		return nil, io.EOF
	}

	pkt := &Packet{
		StreamIndex: 0,
		PTS:         d.pos,
		Duration:    int64(n / mp3BytesPerFrame),
		Data:        buf[:n],
	}
	d.pos += pkt.Duration
	return pkt, nil
}

func (d *mp3Demuxer) Seek(streamIndex int, pts int64) error {
	if streamIndex != 0 {
		return fmt.Errorf("no stream with index %d", streamIndex)
	}
	if pts < 0 {
		pts = 0
	}
	if d.total > 0 && pts >= d.total {
		return io.EOF
	}

	snapped := (pts / mp3FrameSamples) * mp3FrameSamples
	if _, err := d.decoder.Seek(snapped*mp3BytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	d.pos = snapped
	return nil
}

func (d *mp3Demuxer) Close() error { return nil }
