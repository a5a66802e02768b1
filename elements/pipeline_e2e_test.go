package elements

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avfoundry/go-streamline/clock"
	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/event"
	"github.com/avfoundry/go-streamline/format"
)

// waitBusMessage drains the bus until a message of the wanted type
// appears or the timeout passes.
func waitBusMessage(t *testing.T, bus *core.Bus, want core.MessageType, timeout time.Duration) *core.Message {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			t.Fatalf("no %s message on the bus", want)
		}
		m := bus.TimedPop(remain)
		if m == nil {
			continue
		}
		if m.Type == want {
			return m
		}
	}
}

func TestPushPipelineDeliversOrderedBuffersThenEOS(t *testing.T) {
	src := NewFakeSrc("src0")
	src.SetNumBuffers(3)
	src.SetBlocksize(16)
	sink := NewFakeSink("sink0")

	pipe := core.NewPipeline("pipe")
	require.NoError(t, pipe.AddMany(src, sink))
	require.NoError(t, src.Pad().Link(sink.Pad()))

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second), "pipeline did not reach EOS")

	bufs := sink.Buffers()
	require.Len(t, bufs, 3)
	wantOffsets := []uint64{0, 16, 32}
	for i, b := range bufs {
		assert.Equal(t, 16, b.Size)
		assert.Equal(t, wantOffsets[i], b.Offset, "buffer %d offset", i)
	}
	assert.Equal(t, 1, sink.CountEvents(event.EOS), "exactly one EOS per running segment")

	// The new-segment event preceded the first buffer.
	evs := sink.Events()
	require.NotEmpty(t, evs)
	assert.Equal(t, event.NewSegment, evs[0])

	waitBusMessage(t, pipe.Bus(), core.MsgEOS, 2*time.Second)
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestLivePipelineGatesOnPlaying(t *testing.T) {
	src := NewFakeSrc("livesrc")
	src.SetLive(true)
	src.SetNumBuffers(1000)
	src.SetBlocksize(8)
	sink := NewFakeSink("sink0")

	pipe := core.NewPipeline("pipe")
	require.NoError(t, pipe.AddMany(src, sink))
	require.NoError(t, src.Pad().Link(sink.Pad()))

	ret := pipe.SetState(core.StatePaused)
	assert.Equal(t, core.StateNoPreroll, ret, "live pipelines do not preroll")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.BufferCount(), "no data while paused")

	entry := clock.System().Now()
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitBuffers(1, 2*time.Second), "playing did not release the live gate")

	ret = pipe.SetState(core.StatePaused)
	assert.Equal(t, core.StateNoPreroll, ret)
	settled := sink.BufferCount()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, sink.BufferCount(), settled+1, "production gated again after pause")

	for i, b := range sink.Buffers() {
		assert.GreaterOrEqual(t, b.Timestamp, entry, "buffer %d stamped before playing entry", i)
	}
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestFlushingSeekMidStream(t *testing.T) {
	src := NewFakeSrc("bytesrc")
	src.SetSize(100)
	src.SetBlocksize(30)
	sink := NewFakeSink("sink0")

	pipe := core.NewPipeline("pipe")
	require.NoError(t, pipe.AddMany(src, sink))
	require.NoError(t, src.Pad().Link(sink.Pad()))

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))
	firstRun := sink.BufferCount()
	require.Equal(t, 4, firstRun, "100 bytes in blocks of 30")

	ok := pipe.Element().SendEvent(event.NewSeek(1.0, format.Bytes, event.SeekFlagFlush,
		event.SeekTypeSet, 50, event.SeekTypeNone, format.None))
	require.True(t, ok, "seek not handled")

	require.Eventually(t, func() bool { return sink.CountEvents(event.EOS) >= 2 },
		2*time.Second, time.Millisecond, "no EOS after the seek")

	evs := sink.Events()
	// The tail of the event stream is flush-start, flush-stop,
	// new-segment, eos (buffers are recorded separately).
	var tail []event.Type
	for _, e := range evs {
		if len(tail) > 0 || e == event.FlushStart {
			tail = append(tail, e)
		}
	}
	require.GreaterOrEqual(t, len(tail), 4)
	assert.Equal(t, []event.Type{event.FlushStart, event.FlushStop, event.NewSegment, event.EOS}, tail[:4])

	segs := sink.Segments()
	require.GreaterOrEqual(t, len(segs), 2)
	assert.Equal(t, int64(50), segs[len(segs)-1].Start, "post-seek segment starts at the seek target")

	bufs := sink.Buffers()[firstRun:]
	require.Len(t, bufs, 2)
	assert.Equal(t, uint64(50), bufs[0].Offset)
	assert.Equal(t, 30, bufs[0].Size)
	assert.True(t, bufs[0].Discont, "first buffer after a flushing seek is a discont")
	assert.Equal(t, uint64(80), bufs[1].Offset)
	assert.Equal(t, 20, bufs[1].Size, "clipped against the total size")

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestCrossSchedulerLinkRequiresDecoupledElement(t *testing.T) {
	pipe := core.NewPipeline("pipe")
	binA := core.NewBin("threadA")
	binB := core.NewBin("threadB")
	binA.Element().SetScheduler(core.NewScheduler("schedA"))
	binB.Element().SetScheduler(core.NewScheduler("schedB"))
	require.NoError(t, pipe.AddMany(binA, binB))

	src := NewFakeSrc("src0")
	src.SetNumBuffers(2)
	src.SetBlocksize(4)
	sink := NewFakeSink("sink0")
	require.NoError(t, binA.Add(src))
	require.NoError(t, binB.Add(sink))

	err := src.Pad().Link(sink.Pad())
	require.Error(t, err, "direct cross-scheduler link must fail")
	assert.True(t, strings.Contains(err.Error(), "decoupled"), "error names the missing decoupled element: %v", err)

	q := NewQueue("bridge")
	require.NoError(t, binB.Add(q))
	require.NoError(t, src.Pad().Link(q.SinkPad()), "decoupled sink side crosses schedulers")
	require.NoError(t, q.SrcPad().Link(sink.Pad()), "same-scheduler side links normally")

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second), "data did not cross the bridge")
	assert.Equal(t, 2, sink.BufferCount())
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestQueuePreservesLinkOrdering(t *testing.T) {
	src := NewFakeSrc("src0")
	src.SetNumBuffers(5)
	src.SetBlocksize(4)
	q := NewQueue("queue0")
	sink := NewFakeSink("sink0")

	pipe := core.NewPipeline("pipe")
	require.NoError(t, pipe.AddMany(src, q, sink))
	require.NoError(t, src.Pad().Link(q.SinkPad()))
	require.NoError(t, q.SrcPad().Link(sink.Pad()))

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))

	bufs := sink.Buffers()
	require.Len(t, bufs, 5)
	for i := 1; i < len(bufs); i++ {
		assert.Greater(t, bufs[i].Offset, bufs[i-1].Offset, "buffers stay ordered through the queue")
	}
	evs := sink.Events()
	assert.Equal(t, event.EOS, evs[len(evs)-1], "EOS is the last event on the link")
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}

func TestIdentityPassthrough(t *testing.T) {
	src := NewFakeSrc("src0")
	src.SetNumBuffers(3)
	src.SetBlocksize(4)
	id := NewIdentity("identity0")
	sink := NewFakeSink("sink0")

	pipe := core.NewPipeline("pipe")
	require.NoError(t, pipe.AddMany(src, id, sink))
	require.NoError(t, src.Pad().Link(id.SinkPad()))
	require.NoError(t, id.SrcPad().Link(sink.Pad()))

	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StatePlaying))
	require.True(t, sink.WaitEOS(2*time.Second))
	assert.Equal(t, 3, sink.BufferCount())
	require.NotEqual(t, core.StateFailure, pipe.SetState(core.StateNull))
}
