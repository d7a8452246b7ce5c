package codec

// SampleFormat is the in-memory encoding of one PCM sample. All formats are
// interleaved little-endian.
type SampleFormat int

const (
	FormatNone SampleFormat = iota
	FormatU8
	FormatS16
	FormatS32
	FormatF32
)

// Size returns the bytes per sample, 0 for FormatNone.
func (f SampleFormat) Size() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// BitDepth returns the bits per sample.
func (f SampleFormat) BitDepth() int {
	return f.Size() * 8
}

// IsFloat reports whether samples are IEEE floats.
func (f SampleFormat) IsFloat() bool {
	return f == FormatF32
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return "none"
	}
}
