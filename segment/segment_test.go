package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/format"
)

func TestInitDefaults(t *testing.T) {
	s := New(format.Bytes)
	assert.Equal(t, 1.0, s.Rate)
	assert.Equal(t, 1.0, s.AppliedRate)
	assert.Equal(t, format.Bytes, s.Format)
	assert.Equal(t, int64(0), s.Start)
	assert.Equal(t, format.None, s.Stop)
	assert.Equal(t, int64(0), s.Time)
	assert.Equal(t, int64(0), s.Position)
	assert.Equal(t, format.None, s.Duration)
}

func TestApplySeek(t *testing.T) {
	cases := []struct {
		name         string
		setup        func(*Segment)
		seek         *event.SeekDetails
		wantStart    int64
		wantStop     int64
		wantPosition int64
		wantChanged  bool
	}{
		{
			name: "absolute set",
			seek: &event.SeekDetails{Rate: 1, Format: format.Bytes, StartType: event.SeekTypeSet, Start: 50, StopType: event.SeekTypeNone},
			wantStart: 50, wantStop: format.None, wantPosition: 50, wantChanged: true,
		},
		{
			name:  "relative cur",
			setup: func(s *Segment) { s.Start = 10; s.Position = 10 },
			seek:  &event.SeekDetails{Rate: 1, Format: format.Bytes, StartType: event.SeekTypeCur, Start: 30, StopType: event.SeekTypeNone},
			wantStart: 40, wantStop: format.None, wantPosition: 40, wantChanged: true,
		},
		{
			name:  "relative end with duration",
			setup: func(s *Segment) { s.Duration = 100 },
			seek:  &event.SeekDetails{Rate: 1, Format: format.Bytes, StartType: event.SeekTypeEnd, Start: -20, StopType: event.SeekTypeNone},
			wantStart: 80, wantStop: format.None, wantPosition: 80, wantChanged: true,
		},
		{
			name: "relative end without duration is ignored",
			seek: &event.SeekDetails{Rate: 1, Format: format.Bytes, StartType: event.SeekTypeEnd, Start: -20, StopType: event.SeekTypeNone},
			wantStart: 0, wantStop: format.None, wantPosition: 0, wantChanged: false,
		},
		{
			name: "stop only",
			seek: &event.SeekDetails{Rate: 1, Format: format.Bytes, StartType: event.SeekTypeNone, StopType: event.SeekTypeSet, Stop: 90},
			wantStart: 0, wantStop: 90, wantPosition: 0, wantChanged: false,
		},
		{
			name: "negative start clamps to zero",
			seek: &event.SeekDetails{Rate: 1, Format: format.Bytes, StartType: event.SeekTypeSet, Start: -5, StopType: event.SeekTypeNone},
			wantStart: 0, wantStop: format.None, wantPosition: 0, wantChanged: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(format.Bytes)
			if tc.setup != nil {
				tc.setup(s)
			}
			changed := s.ApplySeek(tc.seek)
			assert.Equal(t, tc.wantChanged, changed)
			assert.Equal(t, tc.wantStart, s.Start)
			assert.Equal(t, tc.wantStop, s.Stop)
			assert.Equal(t, tc.wantPosition, s.Position)
		})
	}
}

func TestApplySeekKeepsRateAndFlags(t *testing.T) {
	s := New(format.Bytes)
	s.ApplySeek(&event.SeekDetails{Rate: 2.0, Format: format.Bytes, Flags: event.SeekFlagFlush, StartType: event.SeekTypeSet, Start: 0, StopType: event.SeekTypeNone})
	assert.Equal(t, 2.0, s.Rate)
	assert.True(t, s.Flags&event.SeekFlagFlush != 0)
}

func TestSeekToZeroIsIdentity(t *testing.T) {
	// Flushing seek to absolute 0 with no data in between leaves the
	// segment identical to just-after-start.
	fresh := New(format.Bytes)
	s := New(format.Bytes)
	s.ApplySeek(&event.SeekDetails{Rate: 1, Format: format.Bytes, Flags: event.SeekFlagFlush, StartType: event.SeekTypeSet, Start: 0, StopType: event.SeekTypeNone})
	assert.Equal(t, fresh.Start, s.Start)
	assert.Equal(t, fresh.Position, s.Position)
	assert.Equal(t, fresh.Time, s.Time)
	assert.Equal(t, fresh.Stop, s.Stop)
}

func TestClip(t *testing.T) {
	s := New(format.Bytes)
	s.Start = 20
	s.Stop = 100

	cases := []struct {
		name               string
		start, stop        int64
		wantStart, wantStop int64
		wantOK             bool
	}{
		{"inside", 30, 60, 30, 60, true},
		{"clamp low", 0, 60, 20, 60, true},
		{"clamp high", 30, 200, 30, 100, true},
		{"clamp both", 0, format.None, 20, 100, true},
		{"past stop", 100, 130, 0, 0, false},
		{"before start", 0, 20, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cs, ce, ok := s.Clip(tc.start, tc.stop)
			require.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.wantStart, cs)
				assert.Equal(t, tc.wantStop, ce)
			}
		})
	}
}

func TestClipUnbounded(t *testing.T) {
	s := New(format.Bytes)
	cs, ce, ok := s.Clip(50, format.None)
	require.True(t, ok)
	assert.Equal(t, int64(50), cs)
	assert.Equal(t, format.None, ce)
}

func TestStreamAndRunningTime(t *testing.T) {
	s := New(format.Time)
	s.Start = 100
	s.Time = 40

	assert.Equal(t, int64(40), s.ToStreamTime(100))
	assert.Equal(t, int64(90), s.ToStreamTime(150))
	assert.Equal(t, format.None, s.ToStreamTime(50), "before segment start")
	assert.Equal(t, format.None, s.ToStreamTime(format.None))

	assert.Equal(t, int64(50), s.ToRunningTime(150))
	s.Rate = 2.0
	assert.Equal(t, int64(25), s.ToRunningTime(150))
	s.Rate = -2.0
	assert.Equal(t, int64(25), s.ToRunningTime(150), "running time uses the rate magnitude")
}

func TestAdvanceAndDone(t *testing.T) {
	s := New(format.Bytes)
	s.Stop = 100

	s.Advance(30)
	s.Advance(30)
	assert.Equal(t, int64(60), s.Position)
	assert.False(t, s.Done())

	s.Advance(60)
	assert.Equal(t, int64(100), s.Position, "position caps at stop")
	assert.True(t, s.Done())
}

func TestByteAccounting(t *testing.T) {
	// After pushing n buffers of sizes {L_i} from offset 0 the position
	// equals the sum of sizes, capped at stop.
	s := New(format.Bytes)
	sizes := []int64{16, 16, 16}
	var sum int64
	for _, l := range sizes {
		s.Advance(l)
		sum += l
	}
	assert.Equal(t, sum, s.Position)
}
