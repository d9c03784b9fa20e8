package lang

import (
	"strings"
	"testing"
)

func strVal(s string) Value { return StringValue(s, UnknownSpan()) }

func TestValueEqual(t *testing.T) {
	recA := NewRecord()
	recA.Set("a", intVal(1))
	recA.Set("b", intVal(2))

	recB := NewRecord()
	recB.Set("b", intVal(2))
	recB.Set("a", intVal(1))

	for _, test := range []struct {
		name string
		a, b Value
		want bool
	}{
		{"ints", intVal(3), intVal(3), true},
		{"int float cross kind", intVal(3), floatVal(3.0), true},
		{"numeric mismatch", intVal(3), floatVal(3.5), false},
		{"strings", strVal("a"), strVal("a"), true},
		{"string int", strVal("3"), intVal(3), false},
		{"nothing", nothingVal(), nothingVal(), true},
		{
			"lists",
			ListValue([]Value{intVal(1), intVal(2)}, UnknownSpan()),
			ListValue([]Value{intVal(1), intVal(2)}, UnknownSpan()),
			true,
		},
		{
			"list element differs",
			ListValue([]Value{intVal(1)}, UnknownSpan()),
			ListValue([]Value{intVal(2)}, UnknownSpan()),
			false,
		},
		{
			"record field order matters",
			RecordValue(recA, UnknownSpan()),
			RecordValue(recB, UnknownSpan()),
			false,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := test.a.Equal(test.b); got != test.want {
				t.Errorf("%s.Equal(%s) = %v, want %v",
					test.a.Format(), test.b.Format(), got, test.want)
			}
		})
	}
}

func TestValueCompare(t *testing.T) {
	for _, test := range []struct {
		name string
		a, b Value
		want int
	}{
		{"int less", intVal(1), intVal(2), -1},
		{"int greater", intVal(2), intVal(1), 1},
		{"cross kind equal", intVal(2), floatVal(2.0), 0},
		{"strings", strVal("abc"), strVal("abd"), -1},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.a.Compare(test.b)
			if err != nil {
				t.Fatalf("Compare() error: %v", err)
			}

			if got != test.want {
				t.Errorf("Compare() = %d, want %d", got, test.want)
			}
		})
	}

	if _, err := strVal("a").Compare(intVal(1)); err == nil {
		t.Error("Compare() ordered a string against an int")
	}
}

func TestFollowCellPath(t *testing.T) {
	inner := NewRecord()
	inner.Set("x", intVal(7))

	rec := NewRecord()
	rec.Set("name", strVal("ok"))
	rec.Set("sub", RecordValue(inner, UnknownSpan()))

	list := ListValue([]Value{intVal(10), intVal(20)}, UnknownSpan())

	t.Run("record column", func(t *testing.T) {
		got, err := RecordValue(rec, UnknownSpan()).
			FollowCellPath(PathMember{Name: "name"})
		if err != nil {
			t.Fatalf("FollowCellPath() error: %v", err)
		}

		if got.Str != "ok" {
			t.Errorf("got %s, want ok", got.Format())
		}
	})

	t.Run("list index", func(t *testing.T) {
		got, err := list.FollowCellPath(PathMember{Index: 1, IsIndex: true})
		if err != nil {
			t.Fatalf("FollowCellPath() error: %v", err)
		}

		if got.Int != 20 {
			t.Errorf("got %s, want 20", got.Format())
		}
	})

	t.Run("missing column errors", func(t *testing.T) {
		_, err := RecordValue(rec, UnknownSpan()).
			FollowCellPath(PathMember{Name: "missing"})
		if err == nil {
			t.Fatal("FollowCellPath() found a missing column")
		}
	})

	t.Run("optional member yields nothing", func(t *testing.T) {
		got, err := RecordValue(rec, UnknownSpan()).
			FollowCellPath(PathMember{Name: "missing", Optional: true})
		if err != nil {
			t.Fatalf("FollowCellPath() error: %v", err)
		}

		if !got.IsNothing() {
			t.Errorf("got %s, want nothing", got.Format())
		}
	})

	t.Run("index out of bounds", func(t *testing.T) {
		if _, err := list.FollowCellPath(PathMember{Index: 5, IsIndex: true}); err == nil {
			t.Fatal("FollowCellPath() resolved an out-of-bounds index")
		}
	})

	t.Run("column on list maps rows", func(t *testing.T) {
		row1 := NewRecord()
		row1.Set("n", intVal(1))
		row2 := NewRecord()
		row2.Set("n", intVal(2))

		table := ListValue([]Value{
			RecordValue(row1, UnknownSpan()),
			RecordValue(row2, UnknownSpan()),
		}, UnknownSpan())

		got, err := table.FollowCellPath(PathMember{Name: "n"})
		if err != nil {
			t.Fatalf("FollowCellPath() error: %v", err)
		}

		if got.Kind != KindList || len(got.List) != 2 ||
			got.List[0].Int != 1 || got.List[1].Int != 2 {
			t.Errorf("got %s, want [1, 2]", got.Format())
		}
	})
}

func TestValueFormat(t *testing.T) {
	rec := NewRecord()
	rec.Set("b", intVal(2))
	rec.Set("a", strVal("x y"))

	for _, test := range []struct {
		name string
		val  Value
		want string
	}{
		{"nothing", nothingVal(), "null"},
		{"bool", BoolValue(true, UnknownSpan()), "true"},
		{"int", intVal(42), "42"},
		{"float keeps point", floatVal(3), "3.0"},
		{"bare string", strVal("hello"), "hello"},
		{"string with space quotes", strVal("a b"), `"a b"`},
		{"numeric string quotes", strVal("42"), `"42"`},
		{"empty string quotes", strVal(""), `""`},
		{
			"list",
			ListValue([]Value{intVal(1), strVal("two")}, UnknownSpan()),
			"[1, two]",
		},
		{
			"record preserves insertion order",
			RecordValue(rec, UnknownSpan()),
			`{b: 2, a: "x y"}`,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := test.val.Format(); got != test.want {
				t.Errorf("Format() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestRecordSetReplaces(t *testing.T) {
	rec := NewRecord()
	rec.Set("a", intVal(1))
	rec.Set("b", intVal(2))
	rec.Set("a", intVal(3))

	if rec.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rec.Len())
	}

	if got := strings.Join(rec.Keys(), ","); got != "a,b" {
		t.Errorf("Keys() = %s, want a,b", got)
	}

	if got, _ := rec.Get("a"); got.Int != 3 {
		t.Errorf("Get(a) = %s, want 3", got.Format())
	}
}

func TestCellPathFormat(t *testing.T) {
	path := &CellPath{Members: []PathMember{
		{Name: "sub"},
		{Index: 2, IsIndex: true},
		{Name: "col", Optional: true},
	}}

	if got := path.Format(); got != "sub.2.col?" {
		t.Errorf("Format() = %q, want %q", got, "sub.2.col?")
	}
}
