// Package builtin provides the shell's built-in commands. Every command is
// registered through the same WorkingSet merge path as user definitions;
// the core never special-cases a builtin at evaluation time.
package builtin

import (
	"github.com/ardnew/shale/lang"
)

// runFunc is the body of a built-in command.
type runFunc func(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error)

// builtin pairs a declared signature with its implementation.
type builtin struct {
	sig *lang.Signature
	run runFunc
}

// Name implements lang.Command.
func (b *builtin) Name() string { return b.sig.Name }

// Signature implements lang.Command.
func (b *builtin) Signature() *lang.Signature { return b.sig }

// Run implements lang.Command.
func (b *builtin) Run(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	return b.run(engine, stack, call, input)
}

// AddShellDecls registers every built-in command with the engine through a
// working set merge.
func AddShellDecls(engine *lang.EngineState) error {
	ws := lang.NewWorkingSet(engine)

	for _, cmd := range commands() {
		ws.AddDecl(cmd)
	}

	return engine.Merge(ws.Delta())
}

func commands() []lang.Command {
	groups := [][]*builtin{
		coreCommands(),
		controlCommands(),
		envCommands(),
		yamlCommands(),
	}

	var cmds []lang.Command

	for _, group := range groups {
		for _, b := range group {
			cmds = append(cmds, b)
		}
	}

	return cmds
}
