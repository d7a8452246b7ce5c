package decoder

import (
	"errors"
	"math"

	"github.com/linuxmatters/spindle/internal/container"
)

// Seek positions the decoder so the next frame handed out starts at toTime,
// to within the seek tolerance. The container lands on a packet boundary at
// or before the target; packets are then read forward until one starts past
// it, everything before the packet holding the target only primes the
// codec, and the head frame is trimmed to the exact sample.
//
// A target at or beyond the end puts the decoder in the EOF state and is not
// an error.
func (d *Decoder) Seek(toTime float64) error {
	if d.bound == nil {
		return &Error{Op: "seek", Err: ErrNotInitialized}
	}
	if toTime < 0 {
		toTime = 0
	}
	b := d.bound

	d.queue.Clear()
	d.endOfLoop = false

	if err := b.src.Seek(b.stream.Index, toTime); err != nil {
		if errors.Is(err, container.ErrEOF) {
			d.state = StateEOF
			d.logger.Debug("seek past end", "target", toTime)
			return nil
		}
		return &Error{Op: "seek", Err: err}
	}
	b.codec.Flush()
	d.drained = false

	pending, err := d.readPast(toTime)
	if err != nil {
		return &Error{Op: "seek", Err: err}
	}

	// The target lies in the last packet starting at or before it
	tb := b.stream.TimeBase
	first := len(pending)
	for i, pkt := range pending {
		if tb.Seconds(pkt.PTS) > toTime {
			first = i
			break
		}
	}
	keep := max(first-1, 0)

	for i, pkt := range pending {
		if i < keep {
			if err := b.codec.DecodeAndDrop(pkt); err != nil {
				return &Error{Op: "seek", Err: err}
			}
			continue
		}
		frames, err := b.codec.Decode(pkt)
		if err != nil {
			return &Error{Op: "seek", Err: err}
		}
		d.queue.Push(frames...)
	}

	d.trimTo(toTime)
	d.state = StateReady

	if head := d.queue.Peek(); head != nil {
		d.logger.Debug("seeked", "target", toTime, "landed", head.StartTime(), "packets", len(pending), "queued", d.queue.Samples())
	}
	return nil
}

// readPast reads packets of the bound stream until one starts after target
// or the stream ends. Read failures are reported and skipped, up to the
// consecutive error cap.
func (d *Decoder) readPast(target float64) ([]*container.Packet, error) {
	b := d.bound
	var pending []*container.Packet
	failures := 0
	for {
		pkt, err := b.src.ReadPacket(b.stream.Index)
		if err != nil {
			if errors.Is(err, container.ErrEOF) {
				return pending, nil
			}
			failures++
			d.report(err)
			if failures >= d.maxErrors {
				return nil, err
			}
			continue
		}
		if pkt == nil {
			continue
		}
		failures = 0
		pending = append(pending, pkt)
		if b.stream.TimeBase.Seconds(pkt.PTS) > target {
			return pending, nil
		}
	}
}

// trimTo drops queued audio before target. Whole frames that end at or
// before the target go first, so packets holding several frames are
// handled; the head frame then loses its leading samples when it starts
// further than the tolerance from the target.
func (d *Decoder) trimTo(target float64) {
	for d.queue.Len() > 1 {
		if d.queue.Peek().EndTime() > target+1e-9 {
			break
		}
		d.queue.Pop()
	}

	head := d.queue.Peek()
	if head == nil {
		return
	}
	residual := target - head.StartTime()
	if math.Abs(residual) <= d.tolerance || residual < 0 {
		return
	}
	head.Trim(samplesIn(residual, head.SampleRate))
}
