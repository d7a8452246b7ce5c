package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/linuxmatters/spindle/internal/container"
)

type pcmLayout struct {
	in  int // bytes per sample in the packet
	out SampleFormat
}

var pcmLayouts = map[container.CodecID]pcmLayout{
	container.CodecPCMU8:    {in: 1, out: FormatU8},
	container.CodecPCMS16LE: {in: 2, out: FormatS16},
	container.CodecPCMS24LE: {in: 3, out: FormatS32},
	container.CodecPCMS32LE: {in: 4, out: FormatS32},
	container.CodecPCMF32LE: {in: 4, out: FormatF32},
}

// pcmCodec decodes raw little-endian PCM. It holds no look-ahead, so Drain
// never returns frames. Packed 24-bit input is widened to S32.
type pcmCodec struct {
	stream  container.Stream
	layout  pcmLayout
	drained bool
}

// NewPCM returns a codec for one of the pcm_* identifiers.
func NewPCM(s container.Stream) (Codec, error) {
	layout, ok := pcmLayouts[s.Codec]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not PCM", ErrUnsupported, s.Codec)
	}
	if s.Channels <= 0 || s.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid PCM stream: %d channels at %d Hz", s.Channels, s.SampleRate)
	}
	return &pcmCodec{stream: s, layout: layout}, nil
}

func (c *pcmCodec) Format() SampleFormat { return c.layout.out }

func (c *pcmCodec) Decode(pkt *container.Packet) ([]*Frame, error) {
	data, err := c.decode(pkt)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return []*Frame{{
		PTS:        pkt.PTS,
		TimeBase:   c.stream.TimeBase,
		SampleRate: c.stream.SampleRate,
		Channels:   c.stream.Channels,
		Format:     c.layout.out,
		Data:       data,
	}}, nil
}

func (c *pcmCodec) DecodeAndDrop(pkt *container.Packet) error {
	_, err := c.decode(pkt)
	return err
}

// decode validates the payload and returns it in the output format. The
// packet's bytes are taken over rather than copied.
func (c *pcmCodec) decode(pkt *container.Packet) ([]byte, error) {
	if c.drained {
		return nil, &DecodeError{PTS: pkt.PTS, Err: ErrDrained}
	}

	stride := c.layout.in * c.stream.Channels
	if len(pkt.Data)%stride != 0 {
		return nil, &DecodeError{
			PTS: pkt.PTS,
			Err: fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrInvalidData, len(pkt.Data), stride),
		}
	}

	if c.layout.in != 3 {
		return pkt.Data, nil
	}

	n := len(pkt.Data) / 3
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		b := pkt.Data[i*3 : i*3+3]
		v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v<<8))
	}
	return out, nil
}

func (c *pcmCodec) Drain() ([]*Frame, error) {
	if c.drained {
		return nil, ErrDrained
	}
	c.drained = true
	return nil, nil
}

func (c *pcmCodec) Flush() {
	c.drained = false
}
