package container

import (
	"bytes"
	"errors"
	"os"
)

// ErrCorrupt marks a packet the demuxer could not parse. It maps to
// CodeInvalidData; every other read failure maps to CodeIO.
var ErrCorrupt = errors.New("corrupt packet")

// Demuxer splits one container into packets. Implementations return io.EOF
// (or ErrEOF) at the end of data and from Seek when the target is past the
// end. They are driven by a single goroutine.
type Demuxer interface {
	// FormatName is the short container name, e.g. "wav"
	FormatName() string

	// Streams lists every stream, indexed by Stream.Index
	Streams() []Stream

	// Metadata returns container-level tags with lower-cased keys
	Metadata() map[string]string

	// ReadPacket returns the next packet of any stream
	ReadPacket() (*Packet, error)

	// Seek moves the read cursor to the nearest point at or before pts
	// (in the stream's time base) that the format can reach
	Seek(streamIndex int, pts int64) error

	Close() error
}

// probeSize is how many leading bytes are sniffed to pick a demuxer
const probeSize = 12

type format struct {
	name  string
	match func(header []byte) bool
	open  func(f *os.File) (Demuxer, error)
}

var formats = []format{
	{name: "wav", match: isWAV, open: openWAV},
	{name: "flac", match: isFLAC, open: openFLAC},
	{name: "mp3", match: isMP3, open: openMP3},
}

func probe(header []byte) (format, bool) {
	for _, f := range formats {
		if f.match(header) {
			return f, true
		}
	}
	return format{}, false
}

func isWAV(h []byte) bool {
	return len(h) >= 12 && bytes.Equal(h[0:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WAVE"))
}

func isFLAC(h []byte) bool {
	return len(h) >= 4 && bytes.Equal(h[0:4], []byte("fLaC"))
}

func isMP3(h []byte) bool {
	if len(h) >= 3 && bytes.Equal(h[0:3], []byte("ID3")) {
		return true
	}
	// MPEG audio sync word with a non-reserved layer (ADTS uses layer 00)
	return len(h) >= 2 && h[0] == 0xFF && h[1]&0xE0 == 0xE0 && (h[1]>>1)&0x03 != 0
}
