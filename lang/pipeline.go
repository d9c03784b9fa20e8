package lang

import (
	"io"
	"iter"
	"sync/atomic"
)

// PipelineKind discriminates the variants of PipelineData.
type PipelineKind int

const (
	// EmptyData carries nothing.
	EmptyData PipelineKind = iota

	// ValueData carries a single materialized value.
	ValueData

	// StreamData carries a lazy value stream.
	StreamData

	// ByteData carries a raw byte stream, e.g. external process output.
	ByteData
)

// PipelineData is the tri-state payload passed between commands: a single
// materialized Value, a lazy Value stream, or a raw byte stream. Every
// command receives one of these and must return the same trichotomy.
type PipelineData struct {
	Kind   PipelineKind
	Value  Value
	Stream *ListStream
	Bytes  io.Reader
	Span   Span
}

// Empty creates pipeline data carrying nothing.
func Empty() PipelineData {
	return PipelineData{Kind: EmptyData}
}

// FromValue creates pipeline data carrying one materialized value.
func FromValue(v Value) PipelineData {
	return PipelineData{Kind: ValueData, Value: v, Span: v.Span}
}

// FromStream creates pipeline data carrying a lazy value stream.
func FromStream(s *ListStream) PipelineData {
	return PipelineData{Kind: StreamData, Stream: s, Span: s.span}
}

// FromBytes creates pipeline data carrying a raw byte stream.
func FromBytes(r io.Reader, span Span) PipelineData {
	return PipelineData{Kind: ByteData, Bytes: r, Span: span}
}

// Values returns a lazy iterator over the pipeline data's elements. Lists
// and ranges iterate element-wise; any other single value yields itself
// once. The cancel flag is polled between pulls.
func (p PipelineData) Values(cancel *atomic.Bool) iter.Seq[Value] {
	switch p.Kind {
	case EmptyData:
		return func(func(Value) bool) {}

	case StreamData:
		return p.Stream.Values()

	case ByteData:
		return func(yield func(Value) bool) {
			data, err := io.ReadAll(p.Bytes)
			if err != nil {
				yield(ErrorValue(
					NewShellError(ErrReadInput.Wrap(err), p.Span),
					p.Span,
				))

				return
			}

			yield(BinaryValue(data, p.Span))
		}

	default:
		switch p.Value.Kind {
		case KindList:
			items := p.Value.List

			return func(yield func(Value) bool) {
				for _, item := range items {
					if cancel != nil && cancel.Load() {
						return
					}

					if !yield(item) {
						return
					}
				}
			}

		case KindRange:
			return p.Value.Range.Values(p.Value.Span, cancel)

		case KindNothing:
			return func(func(Value) bool) {}

		default:
			v := p.Value

			return func(yield func(Value) bool) {
				yield(v)
			}
		}
	}
}

// IntoValue materializes the pipeline data as a single value, collecting
// streams into lists. Unbounded ranges never return: callers are expected
// to have a cancellation flag wired into the stream.
func (p PipelineData) IntoValue(span Span) (Value, error) {
	switch p.Kind {
	case EmptyData:
		return Nothing(span), nil

	case ValueData:
		return p.Value, nil

	case StreamData:
		items := make([]Value, 0)
		for v := range p.Stream.Values() {
			items = append(items, v)
		}

		return ListValue(items, span), nil

	default:
		data, err := io.ReadAll(p.Bytes)
		if err != nil {
			return Value{}, NewShellError(ErrReadInput.Wrap(err), span)
		}

		return BinaryValue(data, span), nil
	}
}

// ListStream is a lazy, pull-based sequence of values. It is finite or
// effectively unbounded, and restartable only by re-invoking its producing
// command: Values consumes the stream.
type ListStream struct {
	span   Span
	cancel *atomic.Bool
	seq    iter.Seq[Value]
}

// NewListStream creates a stream over seq. The cancel flag, usually the
// engine-wide one, is polled before every pull; nil disables polling.
func NewListStream(span Span, cancel *atomic.Bool, seq iter.Seq[Value]) *ListStream {
	return &ListStream{span: span, cancel: cancel, seq: seq}
}

// StreamFromValues creates a finite stream over pre-materialized values.
func StreamFromValues(span Span, cancel *atomic.Bool, items []Value) *ListStream {
	return NewListStream(span, cancel, func(yield func(Value) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	})
}

// Span returns the source range that produced the stream.
func (s *ListStream) Span() Span {
	return s.span
}

// Values returns the stream's iterator. The producer is driven exactly when
// the consumer requests the next value; no buffering happens in between.
func (s *ListStream) Values() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		next, stop := iter.Pull(s.seq)
		defer stop()

		for {
			if s.cancel != nil && s.cancel.Load() {
				return
			}

			v, ok := next()
			if !ok {
				return
			}

			if !yield(v) {
				return
			}
		}
	}
}
