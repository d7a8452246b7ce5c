package container

import (
	"errors"
	"fmt"
)

// ErrEOF marks the end of the container's data. PacketReadError and SeekError
// match it with errors.Is when their EOF flag is set.
var ErrEOF = errors.New("end of stream")

var (
	// ErrUnknownFormat is returned when no demuxer recognises the file
	ErrUnknownFormat = errors.New("unrecognised container format")

	// ErrNoStreams is returned when a container holds no usable stream
	ErrNoStreams = errors.New("no audio or image streams found")

	// ErrDestroyed is returned by operations on a destroyed context
	ErrDestroyed = errors.New("container context destroyed")
)

// InitError reports that a container could not be opened or probed.
type InitError struct {
	Path string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Path, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// PacketReadError reports a failed packet read. EOF is benign; anything else
// carries a status code from the demuxer.
type PacketReadError struct {
	EOF  bool
	Code int
	Err  error
}

func (e *PacketReadError) Error() string {
	if e.EOF {
		return "read packet: end of stream"
	}
	return fmt.Sprintf("read packet: code %d: %v", e.Code, e.Err)
}

func (e *PacketReadError) Unwrap() error { return e.Err }

func (e *PacketReadError) Is(target error) bool {
	return e.EOF && target == ErrEOF
}

// SeekError reports a failed container seek. EOF means the target lies past
// the end of the stream.
type SeekError struct {
	EOF bool
	Err error
}

func (e *SeekError) Error() string {
	if e.EOF {
		return "seek: target beyond end of stream"
	}
	return fmt.Sprintf("seek: %v", e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

func (e *SeekError) Is(target error) bool {
	return e.EOF && target == ErrEOF
}

// Status codes carried by PacketReadError
const (
	CodeIO          = -5
	CodeInvalidData = -1094995529
)

func eofRead() error {
	return &PacketReadError{EOF: true}
}

func readFailure(code int, err error) error {
	return &PacketReadError{Code: code, Err: err}
}
