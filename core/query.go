package core

import "github.com/avfoundry/go-streamline/format"

// QueryType identifies what a query asks for.
type QueryType int

const (
	QueryPosition QueryType = iota
	QueryDuration
	QuerySeeking
	QuerySegment
	QueryConvert
	QueryFormats
)

func (t QueryType) String() string {
	switch t {
	case QueryPosition:
		return "position"
	case QueryDuration:
		return "duration"
	case QuerySeeking:
		return "seeking"
	case QuerySegment:
		return "segment"
	case QueryConvert:
		return "convert"
	case QueryFormats:
		return "formats"
	default:
		return "unknown"
	}
}

// Query carries a request and, on success, its answer. Which fields are
// meaningful depends on Type:
//   - Position/Duration: Format in, Value out.
//   - Seeking: Format in, Seekable out.
//   - Segment: SegStart/SegStop/Format out.
//   - Convert: SrcFormat+SrcValue+Format in, Value out.
//   - Formats: Formats out.
type Query struct {
	Type   QueryType
	Format format.Format
	Value  int64

	SrcFormat format.Format
	SrcValue  int64

	Seekable bool

	SegStart int64
	SegStop  int64

	Formats []format.Format
}

// NewPositionQuery asks for the current position in f.
func NewPositionQuery(f format.Format) *Query {
	return &Query{Type: QueryPosition, Format: f, Value: format.None}
}

// NewDurationQuery asks for the total duration in f.
func NewDurationQuery(f format.Format) *Query {
	return &Query{Type: QueryDuration, Format: f, Value: format.None}
}

// NewSeekingQuery asks whether seeking is possible in f.
func NewSeekingQuery(f format.Format) *Query {
	return &Query{Type: QuerySeeking, Format: f}
}

// NewSegmentQuery asks for the configured segment range.
func NewSegmentQuery(f format.Format) *Query {
	return &Query{Type: QuerySegment, Format: f, SegStart: format.None, SegStop: format.None}
}

// NewConvertQuery asks to convert value from one format into another.
func NewConvertQuery(from format.Format, value int64, to format.Format) *Query {
	return &Query{Type: QueryConvert, SrcFormat: from, SrcValue: value, Format: to, Value: format.None}
}

// NewFormatsQuery asks which formats are supported.
func NewFormatsQuery() *Query { return &Query{Type: QueryFormats} }
