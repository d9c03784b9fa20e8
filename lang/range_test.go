package lang

import (
	"sync/atomic"
	"testing"
)

func intVal(n int64) Value   { return IntValue(n, UnknownSpan()) }
func floatVal(f float64) Value { return FloatValue(f, UnknownSpan()) }
func nothingVal() Value      { return Nothing(UnknownSpan()) }

func collectRange(t *testing.T, r *Range) []Value {
	t.Helper()

	var out []Value
	for v := range r.Values(UnknownSpan(), nil) {
		out = append(out, v)

		if len(out) > 1000 {
			t.Fatal("range did not terminate")
		}
	}

	return out
}

func TestNewRangeStepInference(t *testing.T) {
	for _, test := range []struct {
		name            string
		from, second, to Value
		wantStep        float64
	}{
		{"ascending unit", intVal(1), nothingVal(), intVal(5), 1},
		{"descending unit", intVal(5), nothingVal(), intVal(1), -1},
		{"explicit second", intVal(1), intVal(3), intVal(9), 2},
		{"unbounded defaults up", intVal(1), nothingVal(), nothingVal(), 1},
		{"float second", floatVal(0), floatVal(0.5), floatVal(2), 0.5},
	} {
		t.Run(test.name, func(t *testing.T) {
			r, err := NewRange(test.from, test.second, test.to, true)
			if err != nil {
				t.Fatalf("NewRange() error: %v", err)
			}

			if r.Step != test.wantStep {
				t.Errorf("Step = %v, want %v", r.Step, test.wantStep)
			}
		})
	}
}

func TestNewRangeRejectsBadStep(t *testing.T) {
	for _, test := range []struct {
		name            string
		from, second, to Value
	}{
		{"zero step", intVal(1), intVal(1), intVal(5)},
		{"step away from end", intVal(1), intVal(0), intVal(5)},
		{"descending step toward larger end", intVal(5), intVal(6), intVal(1)},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewRange(test.from, test.second, test.to, true); err == nil {
				t.Error("NewRange() accepted an invalid step")
			}
		})
	}
}

func TestRangeValues(t *testing.T) {
	for _, test := range []struct {
		name      string
		from, second, to Value
		inclusive bool
		want      []int64
	}{
		{"inclusive", intVal(1), nothingVal(), intVal(4), true, []int64{1, 2, 3, 4}},
		{"exclusive", intVal(1), nothingVal(), intVal(4), false, []int64{1, 2, 3}},
		{"descending", intVal(3), nothingVal(), intVal(1), true, []int64{3, 2, 1}},
		{"stepped", intVal(0), intVal(2), intVal(7), true, []int64{0, 2, 4, 6}},
		{"single element", intVal(2), nothingVal(), intVal(2), true, []int64{2}},
		{"empty exclusive", intVal(2), nothingVal(), intVal(2), false, nil},
	} {
		t.Run(test.name, func(t *testing.T) {
			r, err := NewRange(test.from, test.second, test.to, test.inclusive)
			if err != nil {
				t.Fatalf("NewRange() error: %v", err)
			}

			got := collectRange(t, r)
			if len(got) != len(test.want) {
				t.Fatalf("Values() yielded %d values, want %d", len(got), len(test.want))
			}

			for i := range got {
				if got[i].Kind != KindInt || got[i].Int != test.want[i] {
					t.Errorf("Values()[%d] = %s, want %d", i, got[i].Format(), test.want[i])
				}
			}
		})
	}
}

func TestRangeValuesFloatNoDrift(t *testing.T) {
	// Each element is computed as from + i*step rather than by repeated
	// addition, so the final element lands exactly on the bound.
	r, err := NewRange(floatVal(0), floatVal(0.1), floatVal(0.5), true)
	if err != nil {
		t.Fatalf("NewRange() error: %v", err)
	}

	got := collectRange(t, r)
	if len(got) != 6 {
		t.Fatalf("Values() yielded %d values, want 6", len(got))
	}

	if last := got[5].Float; last != 0.5 {
		t.Errorf("final value = %v, want 0.5", last)
	}
}

func TestRangeValuesUnboundedCancel(t *testing.T) {
	r, err := NewRange(intVal(1), nothingVal(), nothingVal(), true)
	if err != nil {
		t.Fatalf("NewRange() error: %v", err)
	}

	cancel := new(atomic.Bool)

	var n int
	for range r.Values(UnknownSpan(), cancel) {
		n++
		if n == 10 {
			cancel.Store(true)
		}

		if n > 10 {
			t.Fatal("iteration continued past cancellation")
		}
	}

	if n != 10 {
		t.Errorf("yielded %d values before cancel, want 10", n)
	}
}

func TestRangeContains(t *testing.T) {
	bounded, err := NewRange(intVal(1), nothingVal(), intVal(10), true)
	if err != nil {
		t.Fatalf("NewRange() error: %v", err)
	}

	exclusive, err := NewRange(intVal(1), nothingVal(), intVal(10), false)
	if err != nil {
		t.Fatalf("NewRange() error: %v", err)
	}

	unbounded, err := NewRange(intVal(0), nothingVal(), nothingVal(), true)
	if err != nil {
		t.Fatalf("NewRange() error: %v", err)
	}

	for _, test := range []struct {
		name string
		r    *Range
		n    float64
		want bool
	}{
		{"inside", bounded, 5, true},
		{"at inclusive end", bounded, 10, true},
		{"below start", bounded, 0, false},
		{"at exclusive end", exclusive, 10, false},
		{"unbounded large", unbounded, 1e12, true},
		{"unbounded below start", unbounded, -1, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := test.r.Contains(test.n); got != test.want {
				t.Errorf("Contains(%v) = %v, want %v", test.n, got, test.want)
			}
		})
	}
}

func TestRangeFormat(t *testing.T) {
	for _, test := range []struct {
		name             string
		from, second, to Value
		inclusive        bool
		want             string
	}{
		{"inclusive", intVal(1), nothingVal(), intVal(5), true, "1..5"},
		{"exclusive", intVal(1), nothingVal(), intVal(5), false, "1..<5"},
		{"stepped", intVal(1), intVal(3), intVal(9), true, "1..3..9"},
		{"unbounded", intVal(1), nothingVal(), nothingVal(), true, "1.."},
		{"descending", intVal(5), nothingVal(), intVal(1), true, "5..1"},
	} {
		t.Run(test.name, func(t *testing.T) {
			r, err := NewRange(test.from, test.second, test.to, test.inclusive)
			if err != nil {
				t.Fatalf("NewRange() error: %v", err)
			}

			if got := r.Format(); got != test.want {
				t.Errorf("Format() = %q, want %q", got, test.want)
			}
		})
	}
}
