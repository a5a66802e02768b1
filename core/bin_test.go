package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinAddRemove(t *testing.T) {
	b := NewBin("stage")
	e := NewElement("node")
	require.NoError(t, b.Add(e))
	assert.Equal(t, 1, b.NumChildren())
	assert.Same(t, b, e.Parent())

	assert.Error(t, b.Add(e), "already parented")
	assert.Error(t, b.Add(NewElement("node")), "duplicate child name")

	require.NoError(t, b.Remove(e))
	assert.Nil(t, e.Parent())
	assert.Equal(t, 0, b.NumChildren())
	assert.Error(t, b.Remove(e), "not a child anymore")
}

func TestBinAddManyAndLookup(t *testing.T) {
	outer := NewBin("outer")
	inner := NewBin("inner")
	a := NewElement("a")
	deep := NewElement("deep")
	require.NoError(t, inner.Add(deep))
	require.NoError(t, outer.AddMany(a, inner))

	assert.Same(t, a, outer.ByName("a"))
	assert.Same(t, deep, outer.ByName("deep"), "lookup recurses into bins")
	assert.Nil(t, outer.ByName("ghost"))

	// Recurse-up from the inner bin finds the sibling.
	assert.Same(t, a, inner.ByNameRecurseUp("a"))
}

func TestBinSchedulerInheritance(t *testing.T) {
	b := NewBin("stage")
	sched := NewScheduler("group")
	b.Element().SetScheduler(sched)
	e := NewElement("node")
	require.NoError(t, b.Add(e))
	assert.Same(t, Scheduler(sched), e.Scheduler())
}

func TestBinStatePropagation(t *testing.T) {
	b := NewBin("stage")
	e1 := NewElement("one")
	e2 := NewElement("two")
	require.NoError(t, b.AddMany(e1, e2))

	require.Equal(t, StateSuccess, b.SetState(StatePaused))
	assert.Equal(t, StatePaused, e1.State())
	assert.Equal(t, StatePaused, e2.State())
	assert.Equal(t, StatePaused, b.State())
	assert.Equal(t, StatePaused, b.AggregateState())

	require.Equal(t, StateSuccess, b.SetState(StateNull))
	assert.Equal(t, StateNull, e1.State())
	assert.Equal(t, StateNull, b.AggregateState())
}

func TestBinLockedStateChildSkipped(t *testing.T) {
	b := NewBin("stage")
	locked := NewElement("locked")
	free := NewElement("free")
	locked.SetLockedState(true)
	require.NoError(t, b.AddMany(locked, free))

	require.Equal(t, StateSuccess, b.SetState(StateReady))
	assert.Equal(t, StateNull, locked.State(), "locked child ignores propagation")
	assert.Equal(t, StateReady, free.State())
	assert.Equal(t, StateReady, b.AggregateState(), "aggregate is the highest populated state")
}

func TestBinFailureRollsBackChildren(t *testing.T) {
	pipe := NewPipeline("p")
	b := NewBin("stage")
	require.NoError(t, pipe.Add(b))

	good1 := NewElement("good1")
	good2 := NewElement("good2")
	bad := NewElement("bad")
	bad.ChangeState = func(_ *Element, tr Transition) StateReturn {
		if tr.From == StateReady && tr.To == StatePaused {
			return StateFailure
		}
		return StateSuccess
	}
	// Added in this order; upward propagation runs in reverse order, so
	// bad transitions after the two good ones.
	require.NoError(t, b.AddMany(bad, good1, good2))

	require.Equal(t, StateSuccess, b.SetState(StateReady))
	ret := b.SetState(StatePaused)
	assert.Equal(t, StateFailure, ret)

	assert.Equal(t, StateReady, good1.State(), "rolled back")
	assert.Equal(t, StateReady, good2.State(), "rolled back")
	assert.Equal(t, StateReady, bad.State())
	assert.Equal(t, StateReady, b.State(), "bin state unchanged, pending rolled back")
	assert.Equal(t, StateVoid, b.Element().Pending())

	// An error message reached the pipeline bus.
	var sawError bool
	for m := pipe.Bus().Pop(); m != nil; m = pipe.Bus().Pop() {
		if m.Type == MsgError {
			sawError = true
			assert.Same(t, bad, m.Src)
		}
	}
	assert.True(t, sawError, "bus carries the state-change error")
}

func TestBinNoPrerollAggregation(t *testing.T) {
	b := NewBin("stage")
	live := NewElement("live")
	live.ChangeState = func(_ *Element, tr Transition) StateReturn {
		if tr.From == StateReady && tr.To == StatePaused {
			return StateNoPreroll
		}
		return StateSuccess
	}
	normal := NewElement("normal")
	require.NoError(t, b.AddMany(live, normal))
	assert.Equal(t, StateNoPreroll, b.SetState(StatePaused))
}

func TestElementsByInterface(t *testing.T) {
	type namer interface{ Name() string }
	outer := NewBin("outer")
	inner := NewBin("inner")
	require.NoError(t, outer.Add(inner))
	require.NoError(t, outer.Add(NewElement("plain")))

	bins := ElementsByInterface[namer](outer)
	require.Len(t, bins, 1, "only the inner bin's owner implements namer")
	assert.Equal(t, "inner", bins[0].Name())
}

func TestBinElementsSnapshot(t *testing.T) {
	b := NewBin("stage")
	e := NewElement("node")
	require.NoError(t, b.Add(e))
	snap := b.Elements()
	require.NoError(t, b.Remove(e))
	assert.Len(t, snap, 1, "snapshot tolerates membership changes")
	assert.Equal(t, 0, b.NumChildren())
}
