package lang

import (
	"iter"
	"log/slog"
	"sync/atomic"
)

// Range is a numeric progression from From toward To by Step. An unbounded
// range (Unbounded set) never terminates on its own; consumers rely on
// cooperative cancellation or early exit. Iteration is lazy and restartable
// only by calling Values again.
type Range struct {
	From      float64
	Step      float64
	To        float64
	Inclusive bool
	Unbounded bool
	IsInt     bool // all endpoints lexed as integers
}

// NewRange constructs a range, inferring a unit step toward To when step is
// nothing, and rejecting zero or misdirected increments at construction.
//
// The from, step, and to values follow the literal forms:
//
//	1..5       from=1 to=5, step inferred +1
//	5..1       from=5 to=1, step inferred -1
//	1..3..9    step = 3 - 1 = 2
//	1..        unbounded, step +1
func NewRange(from, step, to Value, inclusive bool) (*Range, error) {
	r := &Range{Inclusive: inclusive, IsInt: true}

	resolve := func(v Value) (float64, error) {
		if v.Kind != KindInt {
			r.IsInt = false
		}

		return v.AsFloat()
	}

	var err error

	if r.From, err = resolve(from); err != nil {
		return nil, err
	}

	switch {
	case to.IsNothing():
		r.Unbounded = true
	default:
		if r.To, err = resolve(to); err != nil {
			return nil, err
		}
	}

	switch {
	case step.IsNothing():
		// Infer direction from the endpoints.
		if !r.Unbounded && r.To < r.From {
			r.Step = -1
		} else {
			r.Step = 1
		}
	default:
		second, err := resolve(step)
		if err != nil {
			return nil, err
		}

		r.Step = second - r.From
	}

	if r.Step == 0 {
		return nil, NewShellError(
			ErrZeroRangeStep.
				With(slog.Float64("from", r.From)),
			from.Span,
		)
	}

	if !r.Unbounded {
		if (r.Step > 0 && r.To < r.From) || (r.Step < 0 && r.To > r.From) {
			return nil, NewShellError(
				ErrZeroRangeStep.
					With(slog.String("reason", "increment points away from end")),
				from.Span,
			)
		}
	}

	return r, nil
}

// Contains reports whether n falls on the range's progression bounds.
// It checks bounds only, not step alignment, matching membership tests.
func (r *Range) Contains(n float64) bool {
	if r.Step > 0 {
		if n < r.From {
			return false
		}
	} else if n > r.From {
		return false
	}

	if r.Unbounded {
		return true
	}

	if r.Step > 0 {
		if r.Inclusive {
			return n <= r.To
		}

		return n < r.To
	}

	if r.Inclusive {
		return n >= r.To
	}

	return n > r.To
}

// Values returns a lazy iterator over the range. The cancel flag is polled
// before each step; any stage observing it set stops producing. A nil cancel
// disables polling.
func (r *Range) Values(span Span, cancel *atomic.Bool) iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for i := int64(0); ; i++ {
			if cancel != nil && cancel.Load() {
				return
			}

			// Multiply instead of accumulating so float ranges don't drift.
			n := r.From + float64(i)*r.Step

			if !r.Unbounded {
				if r.Step > 0 {
					if (r.Inclusive && n > r.To) || (!r.Inclusive && n >= r.To) {
						return
					}
				} else {
					if (r.Inclusive && n < r.To) || (!r.Inclusive && n <= r.To) {
						return
					}
				}
			}

			var v Value
			if r.IsInt {
				v = IntValue(int64(n), span)
			} else {
				v = FloatValue(n, span)
			}

			if !yield(v) {
				return
			}
		}
	}
}

// Format renders the range in canonical source syntax.
func (r *Range) Format() string {
	num := func(f float64) string {
		if r.IsInt {
			return IntValue(int64(f), Span{}).Format()
		}

		return FloatValue(f, Span{}).Format()
	}

	s := num(r.From)

	unitStep := r.Step == 1 || (r.Step == -1 && !r.Unbounded && r.To < r.From)
	if !unitStep {
		s += ".." + num(r.From+r.Step)
	}

	if r.Unbounded {
		return s + ".."
	}

	if r.Inclusive {
		return s + ".." + num(r.To)
	}

	return s + "..<" + num(r.To)
}
