package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"
	"time"
)

// fakeTimeoutErr simulates a net.Error with Timeout semantics.
type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string { return "fake timeout" }
func (fakeTimeoutErr) Timeout() bool { return true }

func TestIsTimeout(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout error", NewTimeoutError("state.get", time.Second, nil), true},
		{"wrapped timeout", fmt.Errorf("outer: %w", NewTimeoutError("state.get", time.Second, nil)), true},
		{"context deadline", context.DeadlineExceeded, true},
		{"timeouter iface", fakeTimeoutErr{}, true},
		{"plain", stdErrors.New("x"), false},
		{"core", NewCoreError("pad.link", nil), false},
	}
	for _, tc := range cases {
		if got := IsTimeout(tc.err); got != tc.want {
			t.Fatalf("%s: IsTimeout=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsCoreError(t *testing.T) {
	if !IsCoreError(NewCoreError("bin.add", nil)) {
		t.Fatal("CoreError not classified")
	}
	if !IsCoreError(fmt.Errorf("wrap: %w", NewNegotiationError("pad.link", nil))) {
		t.Fatal("wrapped NegotiationError not classified")
	}
	if !IsCoreError(NewClockError("pipeline.distribute", nil)) {
		t.Fatal("ClockError not classified")
	}
	if IsCoreError(NewStreamError("demux", nil)) {
		t.Fatal("StreamError should not be a core-layer error")
	}
	if IsCoreError(nil) {
		t.Fatal("nil should not classify")
	}
}

func TestClassifiers(t *testing.T) {
	neg := fmt.Errorf("link: %w", NewNegotiationError("pad.set_caps", stdErrors.New("empty intersection")))
	if !IsNegotiation(neg) {
		t.Fatal("IsNegotiation failed on wrapped error")
	}
	if IsNegotiation(NewClockError("x", nil)) {
		t.Fatal("IsNegotiation matched ClockError")
	}
	if !IsClock(NewClockError("pipeline.set_clock", stdErrors.New("refused"))) {
		t.Fatal("IsClock failed")
	}
}

func TestErrorStringsAndUnwrap(t *testing.T) {
	cause := stdErrors.New("boom")
	e := NewCoreError("scheduler.iterate", cause)
	if e.Error() != "core error: scheduler.iterate: boom" {
		t.Fatalf("unexpected message: %s", e.Error())
	}
	if !stdErrors.Is(e, cause) {
		t.Fatal("Unwrap chain broken")
	}
	bare := NewResourceError("source.open", nil)
	if bare.Error() != "resource error: source.open" {
		t.Fatalf("unexpected message: %s", bare.Error())
	}
}
