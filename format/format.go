// Package format defines the stream formats used to express positions,
// durations and segment coordinates throughout the pipeline core.
package format

// Format identifies the unit a position or duration value is expressed in.
type Format int

const (
	// Undefined means no format has been negotiated or applies.
	Undefined Format = iota
	// Default is the element-specific natural unit (frames, samples).
	Default
	// Bytes counts raw payload bytes.
	Bytes
	// Time counts nanoseconds of stream time.
	Time
	// Buffers counts whole buffers.
	Buffers
	// Percent expresses a position in 0..100 * PercentScale.
	Percent
)

// PercentScale is the multiplier applied to Percent format values so that
// fractional percentages survive integer arithmetic.
const PercentScale int64 = 10000

// None is the sentinel for an unknown or unset format value.
const None int64 = -1

// String returns the canonical short name used in queries and logs.
func (f Format) String() string {
	switch f {
	case Default:
		return "default"
	case Bytes:
		return "bytes"
	case Time:
		return "time"
	case Buffers:
		return "buffers"
	case Percent:
		return "percent"
	default:
		return "undefined"
	}
}

// Valid reports whether v carries a usable value (not the None sentinel).
func Valid(v int64) bool { return v != None }
