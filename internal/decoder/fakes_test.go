package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/linuxmatters/spindle/internal/codec"
	"github.com/linuxmatters/spindle/internal/container"
)

const testRate = 1000

// fakeSource serves a fixed packet list for one mono S16 stream at 1 kHz.
// Each sample holds its absolute index, so tests can check exactly which
// samples came out.
type fakeSource struct {
	stream   container.Stream
	packets  []*container.Packet
	readErrs map[int]error
	seekErr  error
	coarse   bool // Seek always rewinds to the first packet

	pos       int
	seeks     []float64
	destroyed int
}

func newFakeSource(packetSamples, count int) *fakeSource {
	s := &fakeSource{
		stream: container.Stream{
			Index:      0,
			Type:       container.MediaAudio,
			TimeBase:   container.SampleTimeBase(testRate),
			SampleRate: testRate,
			Channels:   1,
			Codec:      container.CodecPCMS16LE,
			Duration:   int64(packetSamples * count),
		},
		readErrs: map[int]error{},
	}
	for i := range count {
		start := i * packetSamples
		s.packets = append(s.packets, &container.Packet{
			StreamIndex: 0,
			PTS:         int64(start),
			Duration:    int64(packetSamples),
			Data:        pcmPayload(start, packetSamples),
		})
	}
	return s
}

// corrupt replaces packet i's payload with one the PCM codec rejects.
func (s *fakeSource) corrupt(i int) {
	s.packets[i].Data = []byte{1, 2, 3}
}

func (s *fakeSource) AudioStream() (container.Stream, bool) {
	return s.stream, s.stream.Type == container.MediaAudio
}

func (s *fakeSource) ReadPacket(streamIndex int) (*container.Packet, error) {
	if s.pos >= len(s.packets) {
		return nil, &container.PacketReadError{EOF: true}
	}
	i := s.pos
	s.pos++
	if err, ok := s.readErrs[i]; ok {
		return nil, err
	}
	pkt := s.packets[i]
	if pkt.StreamIndex != streamIndex {
		return nil, nil
	}
	// Hand out a copy so codecs that take the payload over cannot touch
	// the fixture.
	cp := *pkt
	cp.Data = append([]byte(nil), pkt.Data...)
	return &cp, nil
}

func (s *fakeSource) Seek(streamIndex int, seconds float64) error {
	s.seeks = append(s.seeks, seconds)
	if s.seekErr != nil {
		return s.seekErr
	}
	if seconds >= s.stream.DurationSeconds() {
		return &container.SeekError{EOF: true}
	}
	s.pos = 0
	if s.coarse {
		return nil
	}
	target := s.stream.TimeBase.Ticks(seconds)
	for i, p := range s.packets {
		if p.StreamIndex == streamIndex && p.PTS <= target {
			s.pos = i
		}
	}
	return nil
}

func (s *fakeSource) Destroy() error {
	s.destroyed++
	return nil
}

func pcmPayload(start, n int) []byte {
	out := make([]byte, 2*n)
	for i := range n {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(start+i)))
	}
	return out
}

func samplesOf(buf *FrameBuffer) []int16 {
	pcm := buf.PCM()
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

// fakeCodec splits each packet into several frames and can hold frames back
// until the next packet or a drain, like codecs with look-ahead.
type fakeCodec struct {
	stream    container.Stream
	perPacket int
	lookahead bool

	held    []*codec.Frame
	drained bool
	dropped int
	flushes int
}

func fakeFactory(perPacket int, lookahead bool, out **fakeCodec) codec.Factory {
	return func(s container.Stream) (codec.Codec, error) {
		c := &fakeCodec{stream: s, perPacket: perPacket, lookahead: lookahead}
		if out != nil {
			*out = c
		}
		return c, nil
	}
}

func (c *fakeCodec) Format() codec.SampleFormat { return codec.FormatS16 }

func (c *fakeCodec) frames(pkt *container.Packet) ([]*codec.Frame, error) {
	if len(pkt.Data)%2 != 0 {
		return nil, &codec.DecodeError{PTS: pkt.PTS, Err: codec.ErrInvalidData}
	}
	f := &codec.Frame{
		PTS:        pkt.PTS,
		TimeBase:   c.stream.TimeBase,
		SampleRate: c.stream.SampleRate,
		Channels:   c.stream.Channels,
		Format:     codec.FormatS16,
		Data:       pkt.Data,
	}
	n := f.Samples() / c.perPacket
	var out []*codec.Frame
	for range c.perPacket - 1 {
		out = append(out, f.Split(n))
	}
	return append(out, f), nil
}

func (c *fakeCodec) Decode(pkt *container.Packet) ([]*codec.Frame, error) {
	if c.drained {
		return nil, &codec.DecodeError{PTS: pkt.PTS, Err: codec.ErrDrained}
	}
	frames, err := c.frames(pkt)
	if err != nil {
		return nil, err
	}
	if !c.lookahead {
		return frames, nil
	}
	out := c.held
	c.held = frames
	return out, nil
}

func (c *fakeCodec) DecodeAndDrop(pkt *container.Packet) error {
	c.dropped++
	_, err := c.frames(pkt)
	return err
}

func (c *fakeCodec) Drain() ([]*codec.Frame, error) {
	if c.drained {
		return nil, fmt.Errorf("drain: %w", codec.ErrDrained)
	}
	c.drained = true
	out := c.held
	c.held = nil
	return out, nil
}

func (c *fakeCodec) Flush() {
	c.held = nil
	c.drained = false
	c.flushes++
}
