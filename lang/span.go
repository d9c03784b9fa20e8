package lang

// Span is a half-open byte range [Start, End) into a flat source buffer.
// Every child span produced by the lexer or parser nests inside its parent.
type Span struct {
	Start int // inclusive
	End   int // exclusive
}

// NewSpan creates a span covering [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// UnknownSpan is used for values and diagnostics with no source location.
func UnknownSpan() Span {
	return Span{}
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsEmpty reports whether the span covers no bytes.
func (s Span) IsEmpty() bool {
	return s.End <= s.Start
}

// Contains reports whether other nests entirely inside s.
func (s Span) Contains(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Merge returns the smallest span covering both s and other.
func (s Span) Merge(other Span) Span {
	if other.IsEmpty() {
		return s
	}

	if s.IsEmpty() {
		return other
	}

	merged := s
	if other.Start < merged.Start {
		merged.Start = other.Start
	}

	if other.End > merged.End {
		merged.End = other.End
	}

	return merged
}

// Text returns the source bytes covered by the span, clamped to src.
func (s Span) Text(src []byte) string {
	start, end := s.Start, s.End
	if start < 0 {
		start = 0
	}

	if end > len(src) {
		end = len(src)
	}

	if start >= end {
		return ""
	}

	return string(src[start:end])
}

// LineColumn converts a byte offset into 1-based line and column numbers.
// Offsets past the end of src map to the final position.
func LineColumn(src string, offset int) (line, col int) {
	line, col = 1, 1

	if offset > len(src) {
		offset = len(src)
	}

	for _, b := range []byte(src[:offset]) {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}
