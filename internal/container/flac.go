package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacDemuxer yields one packet per FLAC frame. mewkiz/flac parses and
// decodes a frame in the same call, so packet payloads are the frame's
// samples interleaved little-endian at the stream's container width, and
// the stream advertises the matching PCM codec.
type flacDemuxer struct {
	stream   *flac.Stream
	streams  []Stream
	metadata map[string]string
	channels int
	width    int // bytes per sample in the packet payload
	shift    uint
	next     int64 // running sample count, used when the header cannot place a frame
}

func openFLAC(f *os.File) (Demuxer, error) {
	// flac.Parse walks every metadata block; NewSeek only keeps StreamInfo
	// and the seek table, so tags and pictures come from this first pass
	parsed, err := flac.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC metadata: %w", err)
	}
	metadata, pictures := flacTags(parsed.Blocks)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}
	return newFLACDemuxer(stream, metadata, pictures)
}

func newFLACDemuxer(stream *flac.Stream, metadata map[string]string, pictures []*meta.Picture) (*flacDemuxer, error) {
	info := stream.Info
	bps := int(info.BitsPerSample)
	channels := int(info.NChannels)
	sampleRate := int(info.SampleRate)
	if channels <= 0 || sampleRate <= 0 || bps <= 0 || bps > 32 {
		return nil, fmt.Errorf("unsupported FLAC layout: %d channels, %d Hz, %d-bit", channels, sampleRate, bps)
	}

	var codec CodecID
	var width int
	switch {
	case bps <= 8:
		codec, width = CodecPCMU8, 1
	case bps <= 16:
		codec, width = CodecPCMS16LE, 2
	case bps <= 24:
		codec, width = CodecPCMS24LE, 3
	default:
		codec, width = CodecPCMS32LE, 4
	}

	streams := []Stream{{
		Index:         0,
		Type:          MediaAudio,
		TimeBase:      SampleTimeBase(sampleRate),
		SampleRate:    sampleRate,
		Channels:      channels,
		Layout:        LayoutFor(channels),
		Codec:         codec,
		FormatName:    "FLAC",
		BitsPerSample: bps,
		Duration:      int64(info.NSamples),
	}}
	for i, pic := range pictures {
		streams = append(streams, Stream{
			Index:       i + 1,
			Type:        MediaImage,
			TimeBase:    Rational{Num: 1, Den: 1},
			Codec:       imageCodec(pic.MIME),
			FormatName:  pic.MIME,
			Picture:     pic.Data,
			PictureMIME: pic.MIME,
			PictureType: int(pic.Type),
		})
	}

	return &flacDemuxer{
		stream:   stream,
		streams:  streams,
		metadata: metadata,
		channels: channels,
		width:    width,
		shift:    uint(width*8 - bps),
	}, nil
}

func flacTags(blocks []*meta.Block) (map[string]string, []*meta.Picture) {
	tags := map[string]string{}
	var pictures []*meta.Picture
	for _, block := range blocks {
		switch body := block.Body.(type) {
		case *meta.VorbisComment:
			if body.Vendor != "" {
				tags["encoder"] = body.Vendor
			}
			for _, tag := range body.Tags {
				tags[strings.ToLower(tag[0])] = tag[1]
			}
		case *meta.Picture:
			pictures = append(pictures, body)
		}
	}
	return tags, pictures
}

func imageCodec(mime string) CodecID {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return CodecJPEG
	case "image/png":
		return CodecPNG
	default:
		return CodecImage
	}
}

func (d *flacDemuxer) FormatName() string { return "flac" }

func (d *flacDemuxer) Streams() []Stream { return d.streams }

func (d *flacDemuxer) Metadata() map[string]string { return d.metadata }

func (d *flacDemuxer) ReadPacket() (*Packet, error) {
	fr, err := d.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(fr.Subframes) != d.channels {
		return nil, fmt.Errorf("%w: frame has %d channels, stream has %d", ErrCorrupt, len(fr.Subframes), d.channels)
	}

	n := int(fr.BlockSize)
	buf := make([]byte, n*d.channels*d.width)
	off := 0
	for i := 0; i < n; i++ {
		for _, sub := range fr.Subframes {
			v := sub.Samples[i] << d.shift
			switch d.width {
			case 1:
				// 8-bit PCM is unsigned
				buf[off] = byte(v + 128)
			case 2:
				binary.LittleEndian.PutUint16(buf[off:], uint16(int16(v)))
			case 3:
				buf[off] = byte(v)
				buf[off+1] = byte(v >> 8)
				buf[off+2] = byte(v >> 16)
			default:
				binary.LittleEndian.PutUint32(buf[off:], uint32(v))
			}
			off += d.width
		}
	}

	pkt := &Packet{
		StreamIndex: 0,
		PTS:         d.frameStart(fr),
		Duration:    int64(n),
		Data:        buf,
	}
	d.next = pkt.PTS + pkt.Duration
	return pkt, nil
}

// frameStart returns the first sample of fr. Frame.SampleNumber multiplies a
// fixed-blocksize frame number by that frame's own block size, which is wrong
// for the short final frame; every earlier frame carries BlockSizeMax, so the
// stream-wide block size places it exactly.
func (d *flacDemuxer) frameStart(fr *frame.Frame) int64 {
	if !fr.HasFixedBlockSize {
		return int64(fr.Num)
	}
	if bs := d.stream.Info.BlockSizeMax; bs > 0 {
		return int64(fr.Num) * int64(bs)
	}
	return d.next
}

func (d *flacDemuxer) Seek(streamIndex int, pts int64) error {
	if streamIndex != 0 {
		return fmt.Errorf("stream %d is not seekable", streamIndex)
	}
	if pts < 0 {
		pts = 0
	}
	if total := int64(d.stream.Info.NSamples); total > 0 && pts >= total {
		return io.EOF
	}
	// Lands on the first sample of the frame containing pts. The returned
	// start is not trusted; ReadPacket places the frame from its header.
	start, err := d.stream.Seek(uint64(pts))
	if err == nil {
		d.next = int64(start)
		return nil
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return d.seekLastFrame()
}

// seekLastFrame positions the stream on its final frame. The library seek
// places frames with Frame.SampleNumber, so for a target in the tail of a
// short final frame it reads past the end. The last frame starts on the
// BlockSizeMax grid; seeking one sample earlier lands on the frame before it,
// and skipping that frame leaves the stream at the last one.
func (d *flacDemuxer) seekLastFrame() error {
	info := d.stream.Info
	bs := int64(info.BlockSizeMax)
	total := int64(info.NSamples)
	if bs <= 0 || total <= 0 {
		return io.EOF
	}
	last := (total - 1) / bs * bs
	if last == 0 {
		if _, err := d.stream.Seek(0); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
		d.next = 0
		return nil
	}
	if _, err := d.stream.Seek(uint64(last - 1)); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	if _, err := d.stream.ParseNext(); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	d.next = last
	return nil
}

// Close releases the FLAC stream; the Context closes the file itself.
func (d *flacDemuxer) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	return nil
}
