// Package segment collects all segment arithmetic in one pure module:
// seek application, clipping, and stream/running time conversion. The
// functions mutate only their receiver and take no locks; callers
// serialize access (the pad stream-lock in practice).
package segment

import (
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/format"
)

// Segment describes the running coordinates of a logical unit of
// playback. Start/Stop bound the medium range, Time is the stream time
// of Start, Position tracks consumption, Duration is the total known
// length. Unbounded values use format.None.
type Segment struct {
	Rate        float64
	AppliedRate float64
	Format      format.Format
	Flags       event.SeekFlags
	Start       int64
	Stop        int64
	Time        int64
	Position    int64
	Duration    int64
}

// Init resets the segment to the origin of the given format.
func (s *Segment) Init(f format.Format) {
	s.Rate = 1.0
	s.AppliedRate = 1.0
	s.Format = f
	s.Flags = event.SeekFlagNone
	s.Start = 0
	s.Stop = format.None
	s.Time = 0
	s.Position = 0
	s.Duration = format.None
}

// New returns a segment initialized at the origin of f.
func New(f format.Format) *Segment {
	s := &Segment{}
	s.Init(f)
	return s
}

// Copy returns a value copy of the segment.
func (s *Segment) Copy() *Segment {
	c := *s
	return &c
}

// resolveBoundary computes the new value of a seek boundary.
func resolveBoundary(typ event.SeekType, value, current, duration int64) (int64, bool) {
	switch typ {
	case event.SeekTypeNone:
		return current, false
	case event.SeekTypeSet:
		return value, true
	case event.SeekTypeCur:
		return current + value, true
	case event.SeekTypeEnd:
		if !format.Valid(duration) {
			return current, false
		}
		return duration + value, true
	default:
		return current, false
	}
}

// ApplySeek updates the segment from the fields of a seek event. The
// seek format must already match the segment format (callers convert
// first). Returns whether the start boundary actually moved, which
// decides if downstream needs a new-segment update.
func (s *Segment) ApplySeek(d *event.SeekDetails) bool {
	if d.Rate != 0 {
		s.Rate = d.Rate
	}
	s.Flags = d.Flags

	start, startChanged := resolveBoundary(d.StartType, d.Start, s.Start, s.Duration)
	stop, stopChanged := resolveBoundary(d.StopType, d.Stop, s.Stop, s.Duration)

	if start < 0 {
		start = 0
	}
	if startChanged {
		s.Start = start
		s.Position = start
	}
	if stopChanged {
		s.Stop = stop
	}
	return startChanged
}

// Clip clamps the range [start, stop) against the segment bounds.
// stop may be format.None for an unbounded range. ok=false means the
// range lies entirely outside the segment.
func (s *Segment) Clip(start, stop int64) (cstart, cstop int64, ok bool) {
	if format.Valid(s.Stop) && start >= s.Stop {
		return 0, 0, false
	}
	if format.Valid(stop) && stop <= s.Start {
		return 0, 0, false
	}
	cstart = start
	if cstart < s.Start {
		cstart = s.Start
	}
	cstop = stop
	if format.Valid(s.Stop) && (!format.Valid(cstop) || cstop > s.Stop) {
		cstop = s.Stop
	}
	return cstart, cstop, true
}

// ToStreamTime converts a position on the medium into stream time:
// elapsed time within the segment offset by the segment's logical time.
func (s *Segment) ToStreamTime(pos int64) int64 {
	if !format.Valid(pos) || pos < s.Start {
		return format.None
	}
	return pos - s.Start + s.Time
}

// ToRunningTime converts a position on the medium into running time:
// elapsed wall-clock progress through the segment at the current rate.
func (s *Segment) ToRunningTime(pos int64) int64 {
	if !format.Valid(pos) || pos < s.Start {
		return format.None
	}
	rate := s.Rate
	if rate < 0 {
		rate = -rate
	}
	if rate == 0 {
		rate = 1.0
	}
	return int64(float64(pos-s.Start) / rate)
}

// Advance moves Position forward by n units, capping at Stop when set.
func (s *Segment) Advance(n int64) {
	s.Position += n
	if format.Valid(s.Stop) && s.Position > s.Stop {
		s.Position = s.Stop
	}
}

// Done reports whether the segment's range is fully consumed.
func (s *Segment) Done() bool {
	return format.Valid(s.Stop) && s.Position >= s.Stop
}
