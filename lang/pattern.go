package lang

// PatternKind discriminates the variants of MatchPattern.
type PatternKind int

const (
	// PatternGarbage is the recovery placeholder for unparsable patterns,
	// mirroring ExprGarbage.
	PatternGarbage PatternKind = iota

	// PatternDiscard matches anything and binds nothing (`_`).
	PatternDiscard

	// PatternVariable matches anything and binds it (`$x`).
	PatternVariable

	// PatternValue matches when the input equals the expression's value.
	PatternValue

	// PatternList destructures a list (`[a, b, ..$rest]`).
	PatternList

	// PatternRest captures remaining list elements (`..$rest` or `..`).
	PatternRest

	// PatternRecord destructures a record (`{name: $n}`); a bare `$field`
	// entry is sugar for binding that field.
	PatternRecord
)

// MatchPattern is one parsed match-arm pattern.
type MatchPattern struct {
	Kind PatternKind
	Span Span

	Var    VarID          // PatternVariable, PatternRest
	Value  *Expression    // PatternValue
	Items  []MatchPattern // PatternList
	Fields []PatternField // PatternRecord
}

// PatternField is one entry of a record pattern.
type PatternField struct {
	Name    string
	Pattern MatchPattern
}

// GarbagePattern creates the recovery placeholder covering span.
func GarbagePattern(span Span) MatchPattern {
	return MatchPattern{Kind: PatternGarbage, Span: span}
}
