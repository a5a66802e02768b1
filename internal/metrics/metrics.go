// Package metrics exposes pipeline-core counters on the default
// prometheus registry. Applications that serve /metrics get them for
// free; everything here is write-only from the core's point of view.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuffersPushed counts buffers accepted by sink pads, per element.
	BuffersPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamline",
		Name:      "buffers_pushed_total",
		Help:      "Buffers delivered through pad links.",
	}, []string{"element"})

	// EventsSent counts events dispatched through pads, per event type.
	EventsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamline",
		Name:      "events_sent_total",
		Help:      "Events dispatched through pad links.",
	}, []string{"type"})

	// BusMessages counts messages posted on pipeline buses.
	BusMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamline",
		Name:      "bus_messages_total",
		Help:      "Messages posted on pipeline buses.",
	}, []string{"type"})

	// StateChanges counts committed element state transitions.
	StateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "streamline",
		Name:      "state_changes_total",
		Help:      "Committed element state transitions.",
	})

	// ActiveTasks tracks task goroutines currently alive, paused ones included.
	ActiveTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamline",
		Name:      "active_tasks",
		Help:      "Task goroutines currently alive (started or paused).",
	})
)
