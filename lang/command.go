package lang

import "log/slog"

// DeclID is an arena index into the command declarations owned by
// EngineState (and, during a parse, the WorkingSet delta layered on top).
type DeclID int

// VarID is an arena index into declared variables.
type VarID int

// EnvVarID is the reserved id of the $env pseudo-variable. It never indexes
// an arena: the evaluator resolves it to the stack's environment record.
const EnvVarID VarID = -2

// BlockID is an arena index into parsed blocks.
type BlockID int

// Command is the contract every builtin, user definition, and plugin-backed
// command satisfies. The core invokes this interface; it implements none of
// the individual builtins.
type Command interface {
	// Name returns the (possibly multi-word) command name.
	Name() string

	// Signature returns the declaration that drives parsing of the
	// command's arguments.
	Signature() *Signature

	// Run executes the command against its parsed call and input, returning
	// new pipeline data. Structural failures return an error and abort the
	// pipeline; per-element failures may instead be emitted as error values
	// flowing downstream.
	Run(engine *EngineState, stack *Stack, call *Call, input PipelineData) (PipelineData, error)
}

// BlockEvaluator abstracts block execution so command implementations
// declared in this package (user definitions) can run their bodies without
// depending on the evaluator package.
type BlockEvaluator interface {
	// RunBlock evaluates every pipeline of a block against the stack,
	// threading input through the final pipeline.
	RunBlock(engine *EngineState, stack *Stack, block *Block, input PipelineData) (PipelineData, error)
}

// BlockCommand is a user definition created by parsing `def`: a signature
// plus the block id of its body. Positional parameters carry the VarIDs the
// evaluator binds arguments into.
type BlockCommand struct {
	sig   *Signature
	block BlockID
}

// NewBlockCommand creates a user-defined command from its parsed signature
// and body.
func NewBlockCommand(sig *Signature, block BlockID) *BlockCommand {
	return &BlockCommand{sig: sig, block: block}
}

// Name implements Command.
func (c *BlockCommand) Name() string { return c.sig.Name }

// Signature implements Command.
func (c *BlockCommand) Signature() *Signature { return c.sig }

// Block returns the body's block id.
func (c *BlockCommand) Block() BlockID { return c.block }

// SetBlock attaches the body's block id. The declaration is registered
// before its body is parsed, so recursive definitions resolve; the body id
// arrives once parsing finishes.
func (c *BlockCommand) SetBlock(block BlockID) { c.block = block }

// Run implements Command by evaluating the body block in a fresh frame with
// the call's arguments bound to the signature's parameter variables.
func (c *BlockCommand) Run(
	engine *EngineState,
	stack *Stack,
	call *Call,
	input PipelineData,
) (PipelineData, error) {
	if engine.Evaluator == nil {
		return Empty(), NewShellError(
			NewError("no evaluator registered").
				With(slog.String("command", c.sig.Name)),
			call.Head,
		)
	}

	block := engine.GetBlock(c.block)
	if block == nil {
		return Empty(), NewShellError(
			NewError("missing body block").
				With(slog.String("command", c.sig.Name)),
			call.Head,
		)
	}

	frame, err := bindCallArgs(engine, stack, c.sig, call)
	if err != nil {
		return Empty(), err
	}

	return engine.Evaluator.RunBlock(engine, frame, block, input)
}

// bindCallArgs evaluates each argument expression against the caller's
// stack and binds the results into a new frame per the signature.
func bindCallArgs(
	engine *EngineState,
	stack *Stack,
	sig *Signature,
	call *Call,
) (*Stack, error) {
	eval, ok := engine.Evaluator.(ExpressionEvaluator)
	if !ok {
		return nil, NewShellError(
			NewError("evaluator cannot bind arguments"),
			call.Head,
		)
	}

	frame := stack.Clone()

	for i := 0; i < sig.NumPositional(); i++ {
		param := sig.Positional(i)
		if !param.Bound {
			continue
		}

		if i < len(call.Positional) {
			val, err := eval.EvalExpression(engine, stack, &call.Positional[i])
			if err != nil {
				return nil, err
			}

			frame.SetVar(param.VarID, val)
		} else {
			frame.SetVar(param.VarID, Nothing(call.Head))
		}
	}

	if sig.Rest != nil && sig.Rest.Bound {
		rest := make([]Value, 0)

		for i := sig.NumPositional(); i < len(call.Positional); i++ {
			val, err := eval.EvalExpression(engine, stack, &call.Positional[i])
			if err != nil {
				return nil, err
			}

			rest = append(rest, val)
		}

		frame.SetVar(sig.Rest.VarID, ListValue(rest, call.Head))
	}

	for i := range sig.Named {
		flag := &sig.Named[i]
		if !flag.Bound {
			continue
		}

		named := call.GetNamed(flag.Long)

		switch {
		case named == nil:
			if flag.Arg == nil {
				frame.SetVar(flag.VarID, BoolValue(false, call.Head))
			} else {
				frame.SetVar(flag.VarID, Nothing(call.Head))
			}
		case named.Value == nil:
			frame.SetVar(flag.VarID, BoolValue(true, named.Span))
		default:
			val, err := eval.EvalExpression(engine, stack, named.Value)
			if err != nil {
				return nil, err
			}

			frame.SetVar(flag.VarID, val)
		}
	}

	return frame, nil
}

// ExpressionEvaluator is the optional interface a BlockEvaluator implements
// to evaluate a single argument expression.
type ExpressionEvaluator interface {
	EvalExpression(engine *EngineState, stack *Stack, expr *Expression) (Value, error)
}
