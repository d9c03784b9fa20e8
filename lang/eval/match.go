package eval

import (
	"github.com/ardnew/shale/lang"
)

// Match tests one pattern against a value, binding pattern variables into
// frame on success. A failed match may leave partial bindings in the frame;
// callers try each arm against a fresh clone.
func Match(
	engine *lang.EngineState,
	stack *lang.Stack,
	frame *lang.Stack,
	pat *lang.MatchPattern,
	val lang.Value,
) (bool, error) {
	switch pat.Kind {
	case lang.PatternDiscard:
		return true, nil

	case lang.PatternVariable:
		frame.SetVar(pat.Var, val)

		return true, nil

	case lang.PatternValue:
		want, err := std.EvalExpression(engine, stack, pat.Value)
		if err != nil {
			return false, err
		}

		// A range pattern matches any number within its bounds.
		if want.Kind == lang.KindRange {
			n, err := val.AsFloat()
			if err != nil {
				return false, nil
			}

			return want.Range.Contains(n), nil
		}

		return want.Equal(val), nil

	case lang.PatternList:
		return matchList(engine, stack, frame, pat, val)

	case lang.PatternRecord:
		return matchRecord(engine, stack, frame, pat, val)

	default:
		return false, nil
	}
}

func matchList(
	engine *lang.EngineState,
	stack *lang.Stack,
	frame *lang.Stack,
	pat *lang.MatchPattern,
	val lang.Value,
) (bool, error) {
	if val.Kind != lang.KindList {
		return false, nil
	}

	items := val.List

	for i, sub := range pat.Items {
		if sub.Kind == lang.PatternRest {
			if sub.Var >= 0 {
				tail := make([]lang.Value, len(items[i:]))
				copy(tail, items[i:])

				frame.SetVar(sub.Var, lang.ListValue(tail, val.Span))
			}

			return true, nil
		}

		if i >= len(items) {
			return false, nil
		}

		ok, err := Match(engine, stack, frame, &pat.Items[i], items[i])
		if err != nil || !ok {
			return false, err
		}
	}

	return len(items) == len(pat.Items), nil
}

func matchRecord(
	engine *lang.EngineState,
	stack *lang.Stack,
	frame *lang.Stack,
	pat *lang.MatchPattern,
	val lang.Value,
) (bool, error) {
	if val.Kind != lang.KindRecord {
		return false, nil
	}

	// Extra fields in the value are fine; every pattern field must match.
	for i := range pat.Fields {
		field, ok := val.Record.Get(pat.Fields[i].Name)
		if !ok {
			return false, nil
		}

		ok, err := Match(engine, stack, frame, &pat.Fields[i].Pattern, field)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}
