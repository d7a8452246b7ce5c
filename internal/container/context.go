package container

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// Context is an open container: its streams, the chosen audio and image
// streams, and the demuxer reading packets from it. A Context belongs to a
// single decoder and is not safe for concurrent use, except Destroy which
// may be called more than once.
type Context struct {
	path     string
	demux    Demuxer
	file     io.Closer
	streams  []Stream
	audio    int
	image    int
	metadata map[string]string

	once       sync.Once
	destroyed  bool
	destroyErr error
}

// Open opens path, probes its format and resolves the best streams.
func Open(path string) (*Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &InitError{Path: path, Err: err}
	}

	header := make([]byte, probeSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, &InitError{Path: path, Err: err}
	}

	fm, ok := probe(header[:n])
	if !ok {
		f.Close()
		return nil, &InitError{Path: path, Err: ErrUnknownFormat}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, &InitError{Path: path, Err: err}
	}

	d, err := fm.open(f)
	if err != nil {
		f.Close()
		return nil, &InitError{Path: path, Err: fmt.Errorf("%s: %w", fm.name, err)}
	}

	c, err := newContext(d, f)
	if err != nil {
		d.Close()
		f.Close()
		return nil, &InitError{Path: path, Err: err}
	}
	c.path = path
	return c, nil
}

// NewContext wraps an already-open demuxer, for sources that are not files.
func NewContext(d Demuxer) (*Context, error) {
	c, err := newContext(d, nil)
	if err != nil {
		return nil, &InitError{Path: d.FormatName(), Err: err}
	}
	return c, nil
}

func newContext(d Demuxer, file io.Closer) (*Context, error) {
	streams := d.Streams()
	if len(streams) == 0 {
		return nil, ErrNoStreams
	}
	for _, s := range streams {
		if s.Type == MediaAudio && s.TimeBase.Den <= 0 {
			return nil, fmt.Errorf("stream %d: invalid time base %s", s.Index, s.TimeBase)
		}
	}

	c := &Context{
		demux:    d,
		file:     file,
		streams:  streams,
		audio:    bestAudioStream(streams),
		image:    bestImageStream(streams),
		metadata: d.Metadata(),
	}
	if c.audio < 0 && c.image < 0 {
		return nil, ErrNoStreams
	}
	if c.metadata == nil {
		c.metadata = map[string]string{}
	}
	return c, nil
}

// bestAudioStream prefers more channels, then a higher sample rate, then the
// lower index. Returns -1 when there is no audio stream.
func bestAudioStream(streams []Stream) int {
	var candidates []Stream
	for _, s := range streams {
		if s.Type == MediaAudio {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Channels != b.Channels {
			return a.Channels > b.Channels
		}
		if a.SampleRate != b.SampleRate {
			return a.SampleRate > b.SampleRate
		}
		return a.Index < b.Index
	})
	return candidates[0].Index
}

// bestImageStream prefers a front cover over any other picture.
func bestImageStream(streams []Stream) int {
	best := -1
	for _, s := range streams {
		if s.Type != MediaImage {
			continue
		}
		if s.PictureType == PictureFrontCover {
			return s.Index
		}
		if best < 0 {
			best = s.Index
		}
	}
	return best
}

// Path returns the file the context was opened from, if any.
func (c *Context) Path() string { return c.path }

// Format returns the container format name.
func (c *Context) Format() string { return c.demux.FormatName() }

// Streams returns a copy of every stream descriptor.
func (c *Context) Streams() []Stream {
	out := make([]Stream, len(c.streams))
	copy(out, c.streams)
	return out
}

// Metadata returns the container tags.
func (c *Context) Metadata() map[string]string {
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// AudioStream returns the best audio stream.
func (c *Context) AudioStream() (Stream, bool) {
	return c.stream(c.audio)
}

// ImageStream returns the best embedded picture stream.
func (c *Context) ImageStream() (Stream, bool) {
	return c.stream(c.image)
}

// Duration returns the best audio stream's length in seconds, 0 if unknown.
func (c *Context) Duration() float64 {
	s, ok := c.AudioStream()
	if !ok {
		return 0
	}
	return s.DurationSeconds()
}

func (c *Context) stream(index int) (Stream, bool) {
	for _, s := range c.streams {
		if s.Index == index {
			return s, true
		}
	}
	return Stream{}, false
}

// ReadPacket reads the next packet from the container. It returns a nil
// packet and nil error when that packet belongs to a different stream; the
// caller retries. End of data is a *PacketReadError matching ErrEOF.
func (c *Context) ReadPacket(streamIndex int) (*Packet, error) {
	if c.destroyed {
		return nil, readFailure(CodeIO, ErrDestroyed)
	}

	pkt, err := c.demux.ReadPacket()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, ErrEOF) {
			return nil, eofRead()
		}
		var pre *PacketReadError
		if errors.As(err, &pre) {
			return nil, pre
		}
		code := CodeIO
		if errors.Is(err, ErrCorrupt) {
			code = CodeInvalidData
		}
		return nil, readFailure(code, err)
	}

	if pkt == nil || pkt.StreamIndex != streamIndex {
		return nil, nil
	}
	return pkt, nil
}

// Seek moves the read cursor to the nearest reachable point at or before
// seconds. The landing point is usually a packet or keyframe boundary, not
// the exact sample. Targets at or past the stream duration fail with a
// *SeekError matching ErrEOF.
func (c *Context) Seek(streamIndex int, seconds float64) error {
	if c.destroyed {
		return &SeekError{Err: ErrDestroyed}
	}

	s, ok := c.stream(streamIndex)
	if !ok {
		return &SeekError{Err: fmt.Errorf("no stream with index %d", streamIndex)}
	}
	if seconds < 0 {
		seconds = 0
	}
	if d := s.DurationSeconds(); d > 0 && seconds >= d {
		return &SeekError{EOF: true}
	}

	if err := c.demux.Seek(streamIndex, s.TimeBase.Ticks(seconds)); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, ErrEOF) {
			return &SeekError{EOF: true}
		}
		return &SeekError{Err: err}
	}
	return nil
}

// Destroy releases the demuxer and the file. Only the first call does any
// work; later calls return nil.
func (c *Context) Destroy() error {
	first := false
	c.once.Do(func() {
		first = true
		c.destroyed = true

		var errs []error
		if err := c.demux.Close(); err != nil {
			errs = append(errs, err)
		}
		if c.file != nil {
			if err := c.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
		c.destroyErr = errors.Join(errs...)
	})
	if !first {
		return nil
	}
	return c.destroyErr
}
