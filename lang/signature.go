package lang

import "strings"

// ShapeKind discriminates the variants of SyntaxShape.
type ShapeKind int

const (
	// ShapeAny accepts any expression, inferred from its syntax.
	ShapeAny ShapeKind = iota

	// ShapeInt accepts an integer literal or expression.
	ShapeInt

	// ShapeFloat accepts a float literal or expression.
	ShapeFloat

	// ShapeNumber accepts an int or float.
	ShapeNumber

	// ShapeBool accepts a boolean literal.
	ShapeBool

	// ShapeString accepts a string, quoted or bare.
	ShapeString

	// ShapeBlock accepts a { ... } block without parameters.
	ShapeBlock

	// ShapeClosure accepts a {|args| ... } closure literal.
	ShapeClosure

	// ShapeExpression accepts a full value expression.
	ShapeExpression

	// ShapeMath accepts an operator expression parsed by precedence.
	ShapeMath

	// ShapeRange accepts a range literal.
	ShapeRange

	// ShapeList accepts a [ ... ] list literal.
	ShapeList

	// ShapeRecord accepts a { key: value, ... } record literal.
	ShapeRecord

	// ShapeTable accepts a [[cols]; [rows]] table literal.
	ShapeTable

	// ShapeCellPath accepts a dotted column path.
	ShapeCellPath

	// ShapeFullCellPath accepts a head expression plus a column path.
	ShapeFullCellPath

	// ShapeVarName accepts a variable name being declared.
	ShapeVarName

	// ShapeMatchBlock accepts { pattern => expr, ... } match arms.
	ShapeMatchBlock

	// ShapeKeyword accepts a literal bare word followed by a nested shape.
	ShapeKeyword

	// ShapeOneOf accepts the first matching shape of its alternatives.
	ShapeOneOf

	// ShapeNothing accepts the null literal.
	ShapeNothing

	// ShapeSignature accepts a [ param ... ] declaration signature.
	ShapeSignature
)

// SyntaxShape describes how the parser must consume following tokens for one
// parameter. A shape is a plain tagged union; sub-grammar shapes carry the
// nested shapes to dispatch into.
type SyntaxShape struct {
	Kind    ShapeKind
	Keyword string        // ShapeKeyword: the literal word to expect
	Of      []SyntaxShape // ShapeOneOf alternatives, ShapeKeyword nested shape
}

// Shape creates a shape with no payload.
func Shape(kind ShapeKind) SyntaxShape {
	return SyntaxShape{Kind: kind}
}

// OneOfShape creates a shape accepting the first matching alternative.
func OneOfShape(of ...SyntaxShape) SyntaxShape {
	return SyntaxShape{Kind: ShapeOneOf, Of: of}
}

// KeywordShape creates a shape expecting the literal word followed by an
// argument of the nested shape.
func KeywordShape(word string, of SyntaxShape) SyntaxShape {
	return SyntaxShape{Kind: ShapeKeyword, Keyword: word, Of: []SyntaxShape{of}}
}

// String returns a human-readable name for the shape.
func (s SyntaxShape) String() string {
	switch s.Kind {
	case ShapeAny:
		return "any"
	case ShapeInt:
		return "int"
	case ShapeFloat:
		return "float"
	case ShapeNumber:
		return "number"
	case ShapeBool:
		return "bool"
	case ShapeString:
		return "string"
	case ShapeBlock:
		return "block"
	case ShapeClosure:
		return "closure"
	case ShapeExpression:
		return "expression"
	case ShapeMath:
		return "math"
	case ShapeRange:
		return "range"
	case ShapeList:
		return "list"
	case ShapeRecord:
		return "record"
	case ShapeTable:
		return "table"
	case ShapeCellPath:
		return "cell-path"
	case ShapeFullCellPath:
		return "full-cell-path"
	case ShapeVarName:
		return "variable name"
	case ShapeMatchBlock:
		return "match block"
	case ShapeKeyword:
		return "keyword " + s.Keyword
	case ShapeOneOf:
		part := make([]string, len(s.Of))
		for i, alt := range s.Of {
			part[i] = alt.String()
		}

		return "one of " + strings.Join(part, ", ")
	case ShapeNothing:
		return "nothing"
	case ShapeSignature:
		return "signature"
	default:
		return "unknown"
	}
}

// Type returns the type a value of this shape is expected to produce.
func (s SyntaxShape) Type() Type {
	switch s.Kind {
	case ShapeInt:
		return TypeInt
	case ShapeFloat:
		return TypeFloat
	case ShapeNumber:
		return TypeNumber
	case ShapeBool:
		return TypeBool
	case ShapeString:
		return TypeString
	case ShapeBlock:
		return TypeBlock
	case ShapeClosure:
		return TypeClosure
	case ShapeRange:
		return TypeRange
	case ShapeList:
		return TypeList
	case ShapeRecord:
		return TypeRecord
	case ShapeTable:
		return TypeTable
	case ShapeCellPath, ShapeFullCellPath:
		return TypeCellPath
	case ShapeNothing:
		return TypeNothing
	default:
		return TypeAny
	}
}

// PositionalArg declares one positional parameter of a command.
type PositionalArg struct {
	Name  string
	Shape SyntaxShape
	Desc  string

	// VarID is set for parameters of user-defined commands so the evaluator
	// can bind arguments into the body's stack frame.
	VarID VarID
	Bound bool
}

// Flag declares one named parameter of a command. A nil Arg means the flag
// is a switch and consumes no value.
type Flag struct {
	Long     string
	Short    rune // 0 when the flag has no short form
	Arg      *SyntaxShape
	Required bool
	Desc     string

	VarID VarID
	Bound bool
}

// Signature is a command's full parameter and flag declaration. It drives
// parsing, not just help text: the parser consumes each following token
// against the next unfilled parameter's shape.
type Signature struct {
	Name     string
	Desc     string
	Category string

	RequiredPositional []PositionalArg
	OptionalPositional []PositionalArg
	Rest               *PositionalArg
	Named              []Flag

	// CreatesScope marks commands whose block arguments introduce a lexical
	// frame during parsing (def bodies, closures, loop bodies).
	CreatesScope bool
}

// NewSignature creates a signature with the given command name.
func NewSignature(name string) *Signature {
	return &Signature{Name: name}
}

// WithDesc sets the one-line description and returns the signature.
func (sig *Signature) WithDesc(desc string) *Signature {
	sig.Desc = desc

	return sig
}

// WithCategory sets the help category and returns the signature.
func (sig *Signature) WithCategory(category string) *Signature {
	sig.Category = category

	return sig
}

// Required appends a required positional parameter.
func (sig *Signature) Required(
	name string,
	shape SyntaxShape,
	desc string,
) *Signature {
	sig.RequiredPositional = append(sig.RequiredPositional, PositionalArg{
		Name:  name,
		Shape: shape,
		Desc:  desc,
	})

	return sig
}

// Optional appends an optional positional parameter.
func (sig *Signature) Optional(
	name string,
	shape SyntaxShape,
	desc string,
) *Signature {
	sig.OptionalPositional = append(sig.OptionalPositional, PositionalArg{
		Name:  name,
		Shape: shape,
		Desc:  desc,
	})

	return sig
}

// WithRest declares a rest parameter consuming all remaining arguments.
func (sig *Signature) WithRest(
	name string,
	shape SyntaxShape,
	desc string,
) *Signature {
	sig.Rest = &PositionalArg{Name: name, Shape: shape, Desc: desc}

	return sig
}

// Switch appends a boolean flag consuming no value.
func (sig *Signature) Switch(long string, short rune, desc string) *Signature {
	sig.Named = append(sig.Named, Flag{
		Long:  long,
		Short: short,
		Desc:  desc,
	})

	return sig
}

// NamedFlag appends a flag that consumes one value of the given shape.
func (sig *Signature) NamedFlag(
	long string,
	short rune,
	shape SyntaxShape,
	desc string,
) *Signature {
	arg := shape

	sig.Named = append(sig.Named, Flag{
		Long:  long,
		Short: short,
		Arg:   &arg,
		Desc:  desc,
	})

	return sig
}

// GetLongFlag finds a flag by its long name.
func (sig *Signature) GetLongFlag(long string) *Flag {
	for i := range sig.Named {
		if sig.Named[i].Long == long {
			return &sig.Named[i]
		}
	}

	return nil
}

// GetShortFlag finds a flag by its short rune.
func (sig *Signature) GetShortFlag(short rune) *Flag {
	for i := range sig.Named {
		if sig.Named[i].Short == short && short != 0 {
			return &sig.Named[i]
		}
	}

	return nil
}

// Positional returns the positional parameter at index i, counting required
// parameters first, then optional. Arguments past both fall to Rest.
func (sig *Signature) Positional(i int) *PositionalArg {
	if i < len(sig.RequiredPositional) {
		return &sig.RequiredPositional[i]
	}

	i -= len(sig.RequiredPositional)
	if i < len(sig.OptionalPositional) {
		return &sig.OptionalPositional[i]
	}

	return nil
}

// NumPositional returns the number of declared positional parameters,
// excluding the rest parameter.
func (sig *Signature) NumPositional() int {
	return len(sig.RequiredPositional) + len(sig.OptionalPositional)
}
