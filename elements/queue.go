package elements

import (
	"sync"

	"github.com/avfoundry/go-streamline/buffer"
	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/event"
)

// DefaultQueueDepth is the channel capacity of a queue element.
const DefaultQueueDepth = 16

// Queue is the decoupled bridge element: its sink pad may be driven by
// one scheduler while its source pad's task runs in another. Buffers
// and serialized events share one channel so link ordering is
// preserved; flush-start bypasses the channel and drains it.
type Queue struct {
	el   *core.Element
	sink *core.Pad
	src  *core.Pad

	mu     sync.Mutex
	ch     chan core.Data
	stopCh chan struct{}
	task   *core.Task
}

// NewQueue creates a queue with the default depth.
func NewQueue(name string) *Queue { return NewQueueDepth(name, DefaultQueueDepth) }

// NewQueueDepth creates a queue with an explicit channel capacity.
func NewQueueDepth(name string, depth int) *Queue {
	q := &Queue{
		ch:     make(chan core.Data, depth),
		stopCh: make(chan struct{}),
	}
	q.el = core.NewElement(name)
	q.el.SetOwner(q)
	q.el.SetDecoupled(true)
	q.el.ChangeState = q.changeState

	q.sink = core.NewPad("sink", core.DirSink)
	q.sink.Chain = q.chain
	q.sink.Event = q.sinkEvent
	q.src = core.NewPad("src", core.DirSource)
	if err := q.el.AddPad(q.sink); err != nil {
		panic(err)
	}
	if err := q.el.AddPad(q.src); err != nil {
		panic(err)
	}
	return q
}

// Element returns the underlying element.
func (q *Queue) Element() *core.Element { return q.el }

// SinkPad returns the input pad.
func (q *Queue) SinkPad() *core.Pad { return q.sink }

// SrcPad returns the output pad.
func (q *Queue) SrcPad() *core.Pad { return q.src }

// Level returns the number of queued items.
func (q *Queue) Level() int { return len(q.ch) }

func (q *Queue) chain(_ *core.Pad, b *buffer.Buffer) core.FlowReturn {
	select {
	case q.ch <- core.FromBuffer(b):
		return core.FlowOK
	case <-q.currentStop():
		b.Unref()
		return core.FlowWrongState
	}
}

func (q *Queue) sinkEvent(p *core.Pad, ev *event.Event) bool {
	switch ev.Type() {
	case event.FlushStart:
		// Out-of-band: drain queued items and forward immediately.
		q.drain()
		return q.src.SendEvent(ev)
	case event.Seek, event.QOS, event.Navigation, event.BufferSize:
		// Upstream events do not enter the queue.
		return q.sinkUpstream(ev)
	default:
		select {
		case q.ch <- core.FromEvent(ev):
			return true
		case <-q.currentStop():
			ev.Unref()
			return false
		}
	}
}

func (q *Queue) sinkUpstream(ev *event.Event) bool {
	peer := q.sink.Peer()
	if peer == nil {
		ev.Unref()
		return false
	}
	return peer.SendEvent(ev)
}

func (q *Queue) currentStop() chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopCh
}

func (q *Queue) drain() {
	for {
		select {
		case d := <-q.ch:
			if d.Buffer != nil {
				d.Buffer.Unref()
			}
			if d.Event != nil {
				d.Event.Unref()
			}
		default:
			return
		}
	}
}

// loop dequeues one item and forwards it downstream. EOS parks the
// task: the queue is empty for the rest of the running segment.
func (q *Queue) loop() {
	select {
	case d := <-q.ch:
		if d.Buffer != nil {
			q.src.Push(d.Buffer)
			return
		}
		isEOS := d.Event.Type() == event.EOS
		q.src.SendEvent(d.Event)
		if isEOS {
			q.task.Pause()
		}
	case <-q.currentStop():
	}
}

func (q *Queue) changeState(el *core.Element, tr core.Transition) core.StateReturn {
	switch {
	case tr.From == core.StateReady && tr.To == core.StatePaused:
		q.mu.Lock()
		q.stopCh = make(chan struct{})
		q.mu.Unlock()
		if !q.sink.SetActive(true) || !q.src.SetActive(true) {
			return core.StateFailure
		}
		if q.task == nil {
			name := q.el.Name() + ":src"
			if sched := q.el.Scheduler(); sched != nil {
				q.task = sched.NewTask(name, q.loop)
			} else {
				q.task = core.NewTask(name, q.loop)
			}
		}
		q.task.Start()
	case tr.From == core.StatePaused && tr.To == core.StateReady:
		q.mu.Lock()
		close(q.stopCh)
		q.mu.Unlock()
		if q.task != nil {
			q.task.Stop()
			q.task.Join()
			q.task = nil
		}
		q.drain()
		if !q.sink.SetActive(false) || !q.src.SetActive(false) {
			return core.StateFailure
		}
	}
	return core.StateSuccess
}
