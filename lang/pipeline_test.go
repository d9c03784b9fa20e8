package lang

import (
	"sync/atomic"
	"testing"
)

func TestPipelineValues(t *testing.T) {
	r, err := NewRange(intVal(1), nothingVal(), intVal(3), true)
	if err != nil {
		t.Fatalf("NewRange() error: %v", err)
	}

	for _, test := range []struct {
		name string
		data PipelineData
		want []string
	}{
		{"empty", Empty(), nil},
		{"nothing value", FromValue(nothingVal()), nil},
		{"scalar yields itself", FromValue(intVal(5)), []string{"5"}},
		{
			"list iterates elementwise",
			FromValue(ListValue([]Value{intVal(1), intVal(2)}, UnknownSpan())),
			[]string{"1", "2"},
		},
		{
			"range iterates elementwise",
			FromValue(RangeValue(r, UnknownSpan())),
			[]string{"1", "2", "3"},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var got []string
			for v := range test.data.Values(nil) {
				got = append(got, v.Format())
			}

			if len(got) != len(test.want) {
				t.Fatalf("Values() = %v, want %v", got, test.want)
			}

			for i := range got {
				if got[i] != test.want[i] {
					t.Errorf("Values()[%d] = %s, want %s", i, got[i], test.want[i])
				}
			}
		})
	}
}

func TestIntoValueCollectsStream(t *testing.T) {
	stream := StreamFromValues(UnknownSpan(), nil, []Value{
		intVal(1), intVal(2), intVal(3),
	})

	val, err := FromStream(stream).IntoValue(UnknownSpan())
	if err != nil {
		t.Fatalf("IntoValue() error: %v", err)
	}

	if val.Kind != KindList || len(val.List) != 3 {
		t.Fatalf("IntoValue() = %s, want a 3-element list", val.Format())
	}
}

func TestListStreamLazyPull(t *testing.T) {
	// The producer must be driven only as far as the consumer pulls: an
	// eager stream would run this unbounded generator forever.
	produced := 0
	stream := NewListStream(UnknownSpan(), nil, func(yield func(Value) bool) {
		for i := int64(0); ; i++ {
			produced++

			if !yield(intVal(i)) {
				return
			}
		}
	})

	taken := 0
	for range stream.Values() {
		taken++
		if taken == 5 {
			break
		}
	}

	if taken != 5 {
		t.Fatalf("consumed %d values, want 5", taken)
	}

	if produced > 6 {
		t.Errorf("producer ran %d steps for 5 pulls", produced)
	}
}

func TestListStreamCancellation(t *testing.T) {
	cancel := new(atomic.Bool)

	stream := NewListStream(UnknownSpan(), cancel, func(yield func(Value) bool) {
		for i := int64(0); ; i++ {
			if !yield(intVal(i)) {
				return
			}
		}
	})

	var n int
	for range stream.Values() {
		n++
		if n == 3 {
			// The flag is polled before the next pull, so the stream ends
			// without the consumer breaking out itself.
			cancel.Store(true)
		}

		if n > 3 {
			t.Fatal("stream yielded past cancellation")
		}
	}

	if n != 3 {
		t.Errorf("yielded %d values, want 3", n)
	}
}
