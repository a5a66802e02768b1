package core

import (
	"sync"

	"github.com/avfoundry/go-streamline/internal/logger"
	"github.com/avfoundry/go-streamline/internal/metrics"
)

type taskState int

const (
	taskStopped taskState = iota
	taskStarted
	taskPaused
)

// Task runs an element loop function repeatedly on its own goroutine.
// The goroutine is spawned on the first Start and lives until Stop; Pause
// parks it on a condition so Start can resume it cheaply. The loop
// function is expected to block only in cancellable primitives (clock
// waits, live conditions, the pad stream-lock).
type Task struct {
	name string
	fn   func()

	mu    sync.Mutex
	cond  *sync.Cond
	state taskState

	spawned bool
	done    chan struct{}
}

// NewTask creates a task around the given loop function.
func NewTask(name string, fn func()) *Task {
	t := &Task{name: name, fn: fn, done: make(chan struct{})}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Start launches or resumes the loop.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == taskStarted {
		return
	}
	prev := t.state
	t.state = taskStarted
	if !t.spawned {
		t.spawned = true
		metrics.ActiveTasks.Inc()
		go t.run()
		return
	}
	if prev == taskPaused {
		t.cond.Broadcast()
	}
}

// Pause parks the loop after the current iteration.
func (t *Task) Pause() {
	t.mu.Lock()
	if t.state == taskStarted {
		t.state = taskPaused
	}
	t.mu.Unlock()
	t.cond.Broadcast()
}

// Stop terminates the loop after the current iteration.
func (t *Task) Stop() {
	t.mu.Lock()
	already := t.state == taskStopped
	t.state = taskStopped
	t.mu.Unlock()
	t.cond.Broadcast()
	if !already {
		logger.Debug("task stopping", "task", t.name)
	}
}

// Join blocks until the goroutine exited. Only valid after Stop on a
// started task; joining a never-started task returns immediately.
func (t *Task) Join() {
	t.mu.Lock()
	spawned := t.spawned
	t.mu.Unlock()
	if !spawned {
		return
	}
	<-t.done
}

// Running reports whether the loop is currently started (not paused or
// stopped).
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskStarted
}

// Alive reports whether the goroutine exists and has not exited.
func (t *Task) Alive() bool {
	t.mu.Lock()
	spawned := t.spawned
	t.mu.Unlock()
	if !spawned {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Task) run() {
	defer func() {
		metrics.ActiveTasks.Dec()
		close(t.done)
	}()
	for {
		t.mu.Lock()
		for t.state == taskPaused {
			t.cond.Wait()
		}
		if t.state == taskStopped {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
		t.fn()
	}
}
