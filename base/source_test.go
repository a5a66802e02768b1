package base_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avfoundry/go-streamline/base"
	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/caps"
	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/elements"
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/format"
)

// memSource builds a byte-range source over an in-memory payload.
func memSource(t *testing.T, name string, data []byte, extra base.Hooks) *base.Source {
	t.Helper()
	hooks := extra
	if hooks.Create == nil {
		hooks.Create = func(_ *base.Source, offset int64, length int) (*buffer.Buffer, core.FlowReturn) {
			if offset < 0 || offset >= int64(len(data)) {
				return nil, core.FlowUnexpected
			}
			end := offset + int64(length)
			if end > int64(len(data)) {
				end = int64(len(data))
			}
			b := buffer.New(append([]byte(nil), data[offset:end]...))
			b.Offset = uint64(offset)
			return b, core.FlowOK
		}
	}
	if hooks.GetSize == nil {
		hooks.GetSize = func(*base.Source) (int64, bool) { return int64(len(data)), true }
	}
	if hooks.IsSeekable == nil {
		hooks.IsSeekable = func(*base.Source) bool { return true }
	}
	return base.New(name, nil, hooks)
}

func runPipeline(t *testing.T, src core.ElementProvider) (*core.Pipeline, *elements.FakeSink, *core.Pad) {
	t.Helper()
	sink := elements.NewFakeSink("sink0")
	pipe := core.NewPipeline("pipe")
	require.NoError(t, pipe.AddMany(src, sink))
	return pipe, sink, sink.Pad()
}

func TestDefaultQueries(t *testing.T) {
	s := memSource(t, "memsrc", make([]byte, 100), base.Hooks{})

	q := core.NewPositionQuery(format.Bytes)
	require.True(t, s.Element().Query(q))
	assert.Equal(t, int64(0), q.Value)

	q = core.NewDurationQuery(format.Bytes)
	require.True(t, s.Element().Query(q))
	assert.Equal(t, int64(100), q.Value)

	q = core.NewDurationQuery(format.Time)
	assert.False(t, s.Element().Query(q), "duration only in the segment format")

	q = core.NewSeekingQuery(format.Bytes)
	require.True(t, s.Element().Query(q))
	assert.True(t, q.Seekable)

	q = core.NewSegmentQuery(format.Bytes)
	require.True(t, s.Element().Query(q))
	assert.Equal(t, int64(0), q.SegStart)
	assert.Equal(t, format.None, q.SegStop)

	q = core.NewConvertQuery(format.Bytes, 42, format.Bytes)
	require.True(t, s.Element().Query(q))
	assert.Equal(t, int64(42), q.Value, "identity conversion")
	q = core.NewConvertQuery(format.Bytes, 42, format.Time)
	assert.False(t, s.Element().Query(q), "only identity conversion by default")

	q = core.NewFormatsQuery()
	require.True(t, s.Element().Query(q))
	assert.Contains(t, q.Formats, format.Bytes)
}

func TestPushActivationProducesStream(t *testing.T) {
	s := memSource(t, "memsrc", []byte("0123456789"), base.Hooks{})
	s.SetBlocksize(4)
	pipe, sink, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))
	bufs := sink.Buffers()
	require.Len(t, bufs, 3, "10 bytes in blocks of 4")
	assert.Equal(t, []int{4, 4, 2}, []int{bufs[0].Size, bufs[1].Size, bufs[2].Size})

	seg := s.Segment()
	assert.Equal(t, int64(10), seg.Position, "position equals the sum of pushed sizes")

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestPullActivation(t *testing.T) {
	s := memSource(t, "memsrc", []byte("abcdef"), base.Hooks{})
	sinkEl := core.NewElement("puller")
	sinkPad := core.NewPad("sink", core.DirSink)
	require.NoError(t, sinkEl.AddPad(sinkPad))
	require.NoError(t, s.Pad().Link(sinkPad))

	require.True(t, s.Pad().ActivateMode(core.PadModePull, true))
	require.True(t, sinkPad.ActivateMode(core.PadModePull, true))
	assert.True(t, s.RandomAccess())

	b, ret := sinkPad.PullRange(2, 3)
	require.Equal(t, core.FlowOK, ret)
	require.NotNil(t, b)
	assert.Equal(t, []byte("cde"), b.Data)

	_, ret = sinkPad.PullRange(100, 3)
	assert.Equal(t, core.FlowUnexpected, ret, "past the end")

	require.True(t, s.Pad().ActivateMode(core.PadModePull, false))
}

func TestPullActivationRequiresRandomAccess(t *testing.T) {
	s := memSource(t, "memsrc", []byte("abc"), base.Hooks{
		IsSeekable: func(*base.Source) bool { return false },
	})
	assert.False(t, s.Pad().ActivateMode(core.PadModePull, true),
		"pull activation requires a seekable bytes source")
}

func TestDeferredSeekAppliedOnActivation(t *testing.T) {
	s := memSource(t, "memsrc", make([]byte, 100), base.Hooks{})
	s.SetBlocksize(40)
	pipe, sink, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))

	// Seek before start: deferred until push activation.
	ok := s.Element().SendEvent(event.NewSeek(1.0, format.Bytes, event.SeekFlagFlush,
		event.SeekTypeSet, 60, event.SeekTypeNone, format.None))
	require.True(t, ok, "seekable source queues a pre-start seek")

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))
	bufs := sink.Buffers()
	require.Len(t, bufs, 1)
	assert.Equal(t, uint64(60), bufs[0].Offset)
	assert.Equal(t, 40, bufs[0].Size)
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestSeekRejectedWhenNotSeekable(t *testing.T) {
	s := memSource(t, "memsrc", []byte("abc"), base.Hooks{
		IsSeekable: func(*base.Source) bool { return false },
	})
	ok := s.Element().SendEvent(event.NewSeek(1.0, format.Bytes, event.SeekFlagFlush,
		event.SeekTypeSet, 1, event.SeekTypeNone, format.None))
	assert.False(t, ok)
}

func TestSeekFormatMismatchAborts(t *testing.T) {
	s := memSource(t, "memsrc", make([]byte, 10), base.Hooks{})
	pipe, sink, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))

	ok := s.Element().SendEvent(event.NewSeek(1.0, format.Time, event.SeekFlagFlush,
		event.SeekTypeSet, 123, event.SeekTypeNone, format.None))
	assert.False(t, ok, "identity-only conversion aborts cross-format seeks")
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestSegmentSeekPostsSegmentDone(t *testing.T) {
	s := memSource(t, "memsrc", make([]byte, 20), base.Hooks{})
	s.SetBlocksize(10)
	pipe, sink, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))
	eosBefore := sink.CountEvents(event.EOS)

	ok := s.Element().SendEvent(event.NewSeek(1.0, format.Bytes,
		event.SeekFlagFlush|event.SeekFlagSegment,
		event.SeekTypeSet, 0, event.SeekTypeNone, format.None))
	require.True(t, ok)

	// The segment-flagged range ends with a segment-done message, not EOS.
	deadline := time.Now().Add(2 * time.Second)
	var msg *core.Message
	for time.Now().Before(deadline) {
		m := pipe.Bus().TimedPop(50 * time.Millisecond)
		if m != nil && m.Type == core.MsgSegmentDone {
			msg = m
			break
		}
	}
	require.NotNil(t, msg, "segment-done not posted")
	assert.Equal(t, format.Bytes, msg.Format)
	assert.Equal(t, int64(20), msg.Position)
	assert.Equal(t, eosBefore, sink.CountEvents(event.EOS), "no extra EOS for segment seeks")
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestClockSyncAndUnlock(t *testing.T) {
	tc := clock.NewTestClock(0)
	s := memSource(t, "memsrc", make([]byte, 8), base.Hooks{
		GetTimes: func(_ *base.Source, b *buffer.Buffer) (clock.Time, clock.Time) {
			// Sync every buffer one tick into the future.
			return clock.Time(1000), clock.None
		},
	})
	s.SetBlocksize(8)
	// Live keeps production gated until Playing, when the clock has been
	// distributed, so the sync wait is deterministic.
	s.SetLive(true)
	pipe, sink, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))
	pipe.UseClock(tc)

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.BufferCount(), "buffer held until the clock reaches its time")

	tc.Advance(1000)
	require.True(t, sink.WaitBuffers(1, 2*time.Second), "clock advance releases the buffer")

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull),
		"shutdown unschedules the pending clock wait")
}

func TestUnlockHookCancelsCreate(t *testing.T) {
	var mu sync.Mutex
	blocked := make(chan struct{})
	release := make(chan struct{})
	released := false
	s := base.New("blockingsrc", nil, base.Hooks{
		Create: func(_ *base.Source, offset int64, length int) (*buffer.Buffer, core.FlowReturn) {
			mu.Lock()
			done := released
			mu.Unlock()
			if done {
				return nil, core.FlowWrongState
			}
			close(blocked)
			<-release
			return nil, core.FlowWrongState
		},
		Unlock: func(*base.Source) {
			mu.Lock()
			if !released {
				released = true
				close(release)
			}
			mu.Unlock()
		},
	})
	pipe, _, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("create never ran")
	}
	// Shutdown must cancel the in-flight create via the unlock hook.
	done := make(chan struct{})
	go func() {
		pipe.SetState(core.StateNull)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unlock did not cancel the blocking create")
	}
}

func TestTypeFindOnStart(t *testing.T) {
	sniffed := caps.NewSimple("audio/x-raw-int", caps.Field{Name: "rate", Value: caps.Int(8000)})
	s := memSource(t, "memsrc", []byte{0xFF, 0xF1, 0, 0}, base.Hooks{
		TypeFind: func(_ *base.Source, b *buffer.Buffer) *caps.Caps { return sniffed },
	})
	pipe, sink, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))

	require.NotNil(t, s.Pad().Caps())
	assert.True(t, caps.Equal(s.Pad().Caps(), sniffed), "first buffer sniffed the caps")
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestLiveSourceStateReturns(t *testing.T) {
	s := memSource(t, "livesrc", make([]byte, 100), base.Hooks{})
	s.SetLive(true)
	assert.True(t, s.IsLive())
	pipe, _, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))

	assert.Equal(t, core.StateNoPreroll, pipe.SetState(core.StatePaused))
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	assert.Equal(t, core.StateNoPreroll, pipe.SetState(core.StatePaused))
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestStateRoundTripReleasesResources(t *testing.T) {
	var starts, stops int
	s := memSource(t, "memsrc", make([]byte, 10), base.Hooks{
		Start: func(*base.Source) bool { starts++; return true },
		Stop:  func(*base.Source) bool { stops++; return true },
	})
	pipe, _, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))

	// ready -> paused -> ready must pair every acquisition with a release.
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePaused))
	assert.Equal(t, 1, starts)
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateReady))
	assert.Equal(t, 1, stops, "resources acquired entering paused are released leaving it")

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePaused))
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, stops)
}

func TestStartFailureFailsStateChange(t *testing.T) {
	s := memSource(t, "memsrc", make([]byte, 10), base.Hooks{
		Start: func(*base.Source) bool { return false },
	})
	pipe, _, sinkPad := runPipeline(t, s)
	require.NoError(t, s.Pad().Link(sinkPad))
	assert.Equal(t, core.StateFailure, pipe.SetState(core.StatePaused))
}
