package lang

import (
	"log/slog"
	"slices"
	"sync/atomic"
)

// Stack holds one evaluation instance's variable and environment bindings.
// Block-shaped arguments capture bindings by value: invoking a closure
// clones the stack, so concurrent constructs (background jobs) share no
// mutable evaluation state beyond the read-mostly EngineState.
type Stack struct {
	vars map[VarID]Value
	env  map[string]Value

	// Cancel is polled between stream-pull steps. It usually aliases the
	// engine-wide flag but an independent construct may carry its own.
	Cancel *atomic.Bool
}

// NewStack creates an empty stack sharing the engine's cancellation flag
// and a copy of its default environment.
func NewStack(engine *EngineState) *Stack {
	return &Stack{
		vars:   make(map[VarID]Value),
		env:    engine.EnvMap(),
		Cancel: engine.Cancel,
	}
}

// Clone copies the stack's bindings into a new frame. Values are shared
// structurally; assignment replaces whole entries, so sharing is safe.
func (s *Stack) Clone() *Stack {
	vars := make(map[VarID]Value, len(s.vars))
	for id, val := range s.vars {
		vars[id] = val
	}

	env := make(map[string]Value, len(s.env))
	for name, val := range s.env {
		env[name] = val
	}

	return &Stack{vars: vars, env: env, Cancel: s.Cancel}
}

// GetVar retrieves a variable binding.
func (s *Stack) GetVar(id VarID) (Value, bool) {
	val, ok := s.vars[id]

	return val, ok
}

// SetVar stores a variable binding.
func (s *Stack) SetVar(id VarID, val Value) {
	s.vars[id] = val
}

// GetEnv retrieves an environment value.
func (s *Stack) GetEnv(name string) (Value, bool) {
	val, ok := s.env[name]

	return val, ok
}

// SetEnv stores an environment value.
func (s *Stack) SetEnv(name string, val Value) {
	s.env[name] = val
}

// EnvRecord returns the environment as a record value, for `$env` access.
// Fields are ordered by name so repeated reads render identically.
func (s *Stack) EnvRecord(span Span) Value {
	names := make([]string, 0, len(s.env))
	for name := range s.env {
		names = append(names, name)
	}

	slices.Sort(names)

	rec := NewRecord()
	for _, name := range names {
		rec.Set(name, s.env[name])
	}

	return RecordValue(rec, span)
}

// Cancelled reports whether cooperative cancellation was requested.
func (s *Stack) Cancelled() bool {
	return s.Cancel != nil && s.Cancel.Load()
}

// Capture snapshots the given variables by value for a closure literal.
// Unbound ids capture as nothing; constants resolve from the engine.
func (s *Stack) Capture(engine *EngineState, ids []VarID) []VarBinding {
	captures := make([]VarBinding, 0, len(ids))

	for _, id := range ids {
		if val, ok := s.vars[id]; ok {
			captures = append(captures, VarBinding{ID: id, Value: val})

			continue
		}

		if v := engine.GetVar(id); v != nil && v.Const != nil {
			captures = append(captures, VarBinding{ID: id, Value: *v.Const})

			continue
		}

		captures = append(captures, VarBinding{
			ID:    id,
			Value: Nothing(UnknownSpan()),
		})
	}

	return captures
}

// FrameFor creates the stack frame a closure body runs in: the caller's
// environment plus the closure's captured bindings.
func (s *Stack) FrameFor(closure *Closure) *Stack {
	frame := s.Clone()

	for _, capture := range closure.Captures {
		frame.vars[capture.ID] = capture.Value
	}

	return frame
}

// LogValue implements slog.LogValuer for trace logging.
func (s *Stack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("vars", len(s.vars)),
		slog.Int("env", len(s.env)),
	)
}
