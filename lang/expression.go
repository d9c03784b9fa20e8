package lang

// ExprKind discriminates the variants of Expression.
type ExprKind int

const (
	// ExprGarbage is the placeholder substituted for unparsable source so
	// the surrounding block stays structurally valid after a ParseError.
	ExprGarbage ExprKind = iota

	// ExprNothing is the null literal.
	ExprNothing

	// ExprBool is a boolean literal.
	ExprBool

	// ExprInt is an integer literal.
	ExprInt

	// ExprFloat is a float literal.
	ExprFloat

	// ExprString is a string literal.
	ExprString

	// ExprVar references a variable by id.
	ExprVar

	// ExprVarDecl declares a variable by id (let/mut/for targets).
	ExprVarDecl

	// ExprCall invokes a declared command.
	ExprCall

	// ExprUnaryNot negates a boolean operand.
	ExprUnaryNot

	// ExprBinaryOp applies an operator to two operands.
	ExprBinaryOp

	// ExprRange is a range literal.
	ExprRange

	// ExprList is a list literal.
	ExprList

	// ExprRecord is a record literal.
	ExprRecord

	// ExprTable is a table literal.
	ExprTable

	// ExprBlock references a parsed block by id.
	ExprBlock

	// ExprClosure references a parsed block by id with captures.
	ExprClosure

	// ExprSubexpression references a parenthesized block by id.
	ExprSubexpression

	// ExprFullCellPath is a head expression plus a trailing cell path.
	ExprFullCellPath

	// ExprCellPath is a bare cell path literal, e.g. the argument of get.
	ExprCellPath

	// ExprMatchBlock is the arm list of a match command.
	ExprMatchBlock

	// ExprKeyword wraps the argument following a literal keyword.
	ExprKeyword
)

// Expression is a typed AST node. Exactly one payload group is meaningful
// based on Kind. Blocks are referenced by id, never owned, because blocks
// and commands can be mutually or self-referential and a parse's new
// declarations must commit or roll back atomically.
type Expression struct {
	Kind ExprKind
	Span Span
	Type Type

	Bool  bool
	Int   int64
	Float float64
	Str   string

	Var   VarID
	Call  *Call
	Block BlockID

	Op          Operator
	Left, Right *Expression

	List   []Expression
	Record []RecordField
	Table  *TableLiteral

	Range *RangeLiteral

	FullCellPath *FullCellPath
	Path         *CellPath

	Arms []MatchArm

	Keyword string
	Inner   *Expression
}

// Garbage creates the placeholder expression covering span.
func Garbage(span Span) Expression {
	return Expression{Kind: ExprGarbage, Span: span, Type: TypeAny}
}

// IsGarbage reports whether the expression is a recovery placeholder.
func (e *Expression) IsGarbage() bool {
	return e.Kind == ExprGarbage
}

// RecordField is one key-value entry of a record literal. Keys are
// expressions so they can be computed, though bare and quoted strings are
// the common case.
type RecordField struct {
	Key   Expression
	Value Expression
}

// TableLiteral is a [[columns]; [row] ...] literal.
type TableLiteral struct {
	Columns []Expression
	Rows    [][]Expression
}

// RangeLiteral is a from..second..to literal prior to evaluation. Nil
// endpoints were omitted in the source.
type RangeLiteral struct {
	From      *Expression
	Second    *Expression // sets the increment: step = second - from
	To        *Expression
	Inclusive bool
}

// FullCellPath pairs a head expression with a trailing path. A bare
// $var.col.0 uses a variable head; (expr).col uses a subexpression head.
type FullCellPath struct {
	Head Expression
	Tail []PathMember
}

// MatchArm pairs one pattern with the expression its match binds into.
type MatchArm struct {
	Pattern MatchPattern
	Expr    Expression
}

// NamedArg is one parsed flag occurrence on a call.
type NamedArg struct {
	Long  string
	Span  Span
	Value *Expression // nil for switches
}

// Call invokes a declared command with parsed arguments. Argument
// expressions are bound lazily: the evaluator re-evaluates them per input
// element when they reference the current pipeline value.
type Call struct {
	Decl       DeclID
	Head       Span
	Positional []Expression
	Named      []NamedArg
}

// NewCall creates a call to the given declaration.
func NewCall(decl DeclID, head Span) *Call {
	return &Call{Decl: decl, Head: head}
}

// GetNamed finds the last occurrence of a flag by long name.
func (c *Call) GetNamed(long string) *NamedArg {
	for i := len(c.Named) - 1; i >= 0; i-- {
		if c.Named[i].Long == long {
			return &c.Named[i]
		}
	}

	return nil
}

// HasNamed reports whether the flag occurs on the call.
func (c *Call) HasNamed(long string) bool {
	return c.GetNamed(long) != nil
}

// Span returns the full source range of the call.
func (c *Call) Span() Span {
	span := c.Head

	for i := range c.Positional {
		span = span.Merge(c.Positional[i].Span)
	}

	for i := range c.Named {
		span = span.Merge(c.Named[i].Span)

		if c.Named[i].Value != nil {
			span = span.Merge(c.Named[i].Value.Span)
		}
	}

	return span
}

// PipelineElement wraps one expression in a pipeline, typically a call.
type PipelineElement struct {
	Expr Expression
}

// Pipeline is an ordered sequence of elements; element N's output stream is
// element N+1's input.
type Pipeline struct {
	Elements []PipelineElement
}

// Span returns the full source range of the pipeline.
func (p *Pipeline) Span() Span {
	var span Span
	for i := range p.Elements {
		span = span.Merge(p.Elements[i].Expr.Span)
	}

	return span
}

// Block is an ordered list of pipelines plus the signature its arguments
// bind against when invoked as a closure or command body.
type Block struct {
	Signature *Signature
	Pipelines []Pipeline
	Captures  []VarID // variables the block reads from enclosing scopes
	Span      Span
}

// NewBlock creates an empty block.
func NewBlock() *Block {
	return &Block{Signature: NewSignature("")}
}

// Operator is a binary operator in a math-shaped expression.
type Operator int

const (
	// OpAdd is numeric addition and string concatenation.
	OpAdd Operator = iota

	// OpSub is numeric subtraction.
	OpSub

	// OpMul is numeric multiplication.
	OpMul

	// OpDiv is numeric division, always producing a float.
	OpDiv

	// OpFloorDiv is integer floor division.
	OpFloorDiv

	// OpMod is the remainder operation.
	OpMod

	// OpPow is exponentiation, the only right-associative operator.
	OpPow

	// OpEq is structural equality.
	OpEq

	// OpNe is structural inequality.
	OpNe

	// OpLt is numeric or lexicographic less-than.
	OpLt

	// OpGt is numeric or lexicographic greater-than.
	OpGt

	// OpLe is numeric or lexicographic less-or-equal.
	OpLe

	// OpGe is numeric or lexicographic greater-or-equal.
	OpGe

	// OpRegexMatch tests a string against a regular expression.
	OpRegexMatch

	// OpNotRegexMatch negates OpRegexMatch.
	OpNotRegexMatch

	// OpIn tests membership in a list, string, record, or range.
	OpIn

	// OpNotIn negates OpIn.
	OpNotIn

	// OpAnd is short-circuit boolean conjunction.
	OpAnd

	// OpOr is short-circuit boolean disjunction.
	OpOr
)

// operatorNames maps source spellings to operators.
var operatorNames = map[string]Operator{
	"+":      OpAdd,
	"-":      OpSub,
	"*":      OpMul,
	"/":      OpDiv,
	"//":     OpFloorDiv,
	"mod":    OpMod,
	"**":     OpPow,
	"==":     OpEq,
	"!=":     OpNe,
	"<":      OpLt,
	">":      OpGt,
	"<=":     OpLe,
	">=":     OpGe,
	"=~":     OpRegexMatch,
	"!~":     OpNotRegexMatch,
	"in":     OpIn,
	"not-in": OpNotIn,
	"and":    OpAnd,
	"or":     OpOr,
}

// ParseOperator maps a source spelling to its operator.
func ParseOperator(s string) (Operator, bool) {
	op, ok := operatorNames[s]

	return op, ok
}

// String returns the canonical source spelling of the operator.
func (op Operator) String() string {
	for name, candidate := range operatorNames {
		if candidate == op {
			return name
		}
	}

	return "?"
}

// Precedence returns the static binding power of the operator. Larger binds
// tighter. The table matches expr-lang's arithmetic and comparison
// precedence, pinned by characterization tests in the parser package.
func (op Operator) Precedence() int {
	switch op {
	case OpOr:
		return 10
	case OpAnd:
		return 20
	case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe,
		OpRegexMatch, OpNotRegexMatch, OpIn, OpNotIn:
		return 30
	case OpAdd, OpSub:
		return 40
	case OpMul, OpDiv, OpFloorDiv, OpMod:
		return 50
	case OpPow:
		return 60
	default:
		return 0
	}
}

// RightAssociative reports whether the operator groups right-to-left.
func (op Operator) RightAssociative() bool {
	return op == OpPow
}
