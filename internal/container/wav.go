package container

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/linuxmatters/spindle/internal/config"
)

// WAV format tags from the fmt chunk
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// wavDemuxer splits the data chunk of a RIFF/WAVE file into packets of
// config.PCMPacketFrames sample frames. Seeks land on that packet grid.
type wavDemuxer struct {
	file       io.ReadSeeker
	stream     Stream
	dataStart  int64
	dataLen    int64
	blockAlign int64
	pos        int64 // byte offset into the data chunk
}

func openWAV(f *os.File) (Demuxer, error) {
	return newWAVDemuxer(f)
}

func newWAVDemuxer(r io.ReadSeeker) (*wavDemuxer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	// Parse headers up to the data chunk without reading any samples
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	dataStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to locate PCM data: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)
	if channels <= 0 || sampleRate <= 0 || bitDepth <= 0 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("unsupported WAV layout: %d channels, %d Hz, %d-bit", channels, sampleRate, bitDepth)
	}

	codec, err := wavCodec(int(decoder.WavAudioFormat), bitDepth)
	if err != nil {
		return nil, err
	}

	blockAlign := int64(channels * bitDepth / 8)
	dataLen := decoder.PCMLen()

	// Some writers leave the data size at 0 or overstate it
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to size WAV file: %w", err)
	}
	if dataLen <= 0 || dataStart+dataLen > end {
		dataLen = end - dataStart
	}
	dataLen -= dataLen % blockAlign

	if _, err := r.Seek(dataStart, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind to PCM data: %w", err)
	}

	return &wavDemuxer{
		file: r,
		stream: Stream{
			Index:         0,
			Type:          MediaAudio,
			TimeBase:      SampleTimeBase(sampleRate),
			SampleRate:    sampleRate,
			Channels:      channels,
			Layout:        LayoutFor(channels),
			Codec:         codec,
			FormatName:    "WAV",
			BitsPerSample: bitDepth,
			Duration:      dataLen / blockAlign,
		},
		dataStart:  dataStart,
		dataLen:    dataLen,
		blockAlign: blockAlign,
	}, nil
}

func wavCodec(audioFormat, bitDepth int) (CodecID, error) {
	switch audioFormat {
	case wavFormatFloat:
		if bitDepth == 32 {
			return CodecPCMF32LE, nil
		}
	case wavFormatPCM, wavFormatExtensible:
		switch bitDepth {
		case 8:
			return CodecPCMU8, nil
		case 16:
			return CodecPCMS16LE, nil
		case 24:
			return CodecPCMS24LE, nil
		case 32:
			return CodecPCMS32LE, nil
		}
	}
	return "", fmt.Errorf("unsupported WAV encoding: format %d, %d-bit", audioFormat, bitDepth)
}

func (d *wavDemuxer) FormatName() string { return "wav" }

func (d *wavDemuxer) Streams() []Stream { return []Stream{d.stream} }

func (d *wavDemuxer) Metadata() map[string]string { return map[string]string{} }

func (d *wavDemuxer) ReadPacket() (*Packet, error) {
	if d.pos >= d.dataLen {
		return nil, io.EOF
	}

	size := min(d.dataLen-d.pos, int64(config.PCMPacketFrames)*d.blockAlign)
	buf := make([]byte, size)
	n, err := io.ReadFull(d.file, buf)
	if err != nil {
		if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		// The file ended before the data chunk did
		d.dataLen = d.pos + int64(n)
		n -= n % int(d.blockAlign)
		if n == 0 {
			d.pos = d.dataLen
			return nil, io.EOF
		}
		buf = buf[:n]
	}

	pkt := &Packet{
		StreamIndex: d.stream.Index,
		PTS:         d.pos / d.blockAlign,
		Duration:    int64(len(buf)) / d.blockAlign,
		Data:        buf,
	}
	d.pos += int64(len(buf))
	return pkt, nil
}

func (d *wavDemuxer) Seek(streamIndex int, pts int64) error {
	if streamIndex != d.stream.Index {
		return fmt.Errorf("no stream with index %d", streamIndex)
	}
	if pts < 0 {
		pts = 0
	}
	if pts >= d.dataLen/d.blockAlign {
		return io.EOF
	}

	grid := int64(config.PCMPacketFrames)
	offset := (pts / grid) * grid * d.blockAlign
	if _, err := d.file.Seek(d.dataStart+offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	d.pos = offset
	return nil
}

// Close is a no-op; the Context owns the file.
func (d *wavDemuxer) Close() error { return nil }
