package lang

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	// KindNothing is the absence of a value.
	KindNothing ValueKind = iota

	// KindBool is a boolean value.
	KindBool

	// KindInt is a 64-bit signed integer value.
	KindInt

	// KindFloat is a 64-bit float value.
	KindFloat

	// KindString is a UTF-8 string value.
	KindString

	// KindBinary is a raw byte string value.
	KindBinary

	// KindList is an ordered sequence of values.
	KindList

	// KindRecord is an ordered set of named fields.
	KindRecord

	// KindRange is a numeric range with an increment.
	KindRange

	// KindClosure is a block paired with captured bindings.
	KindClosure

	// KindCellPath is a path of field names and indexes.
	KindCellPath

	// KindError is a first-class error flowing as data.
	KindError

	// KindCustom is a value defined outside the core.
	KindCustom
)

// String returns a human-readable name for the kind.
func (k ValueKind) String() string {
	return k.Type().String()
}

// Type maps a value kind to its type.
func (k ValueKind) Type() Type {
	switch k {
	case KindNothing:
		return TypeNothing
	case KindBool:
		return TypeBool
	case KindInt:
		return TypeInt
	case KindFloat:
		return TypeFloat
	case KindString:
		return TypeString
	case KindBinary:
		return TypeBinary
	case KindList:
		return TypeList
	case KindRecord:
		return TypeRecord
	case KindRange:
		return TypeRange
	case KindClosure:
		return TypeClosure
	case KindCellPath:
		return TypeCellPath
	case KindError:
		return TypeError
	case KindCustom:
		return TypeCustom
	default:
		return TypeAny
	}
}

// CustomValue is implemented by values defined outside the core.
type CustomValue interface {
	// TypeName identifies the custom type in diagnostics.
	TypeName() string

	// BaseValue converts the custom value to a core value when possible.
	BaseValue() (Value, error)
}

// Value is the tagged union passed between commands. Exactly one payload
// field is meaningful based on Kind. Every value carries the span of the
// expression that produced it.
type Value struct {
	Kind ValueKind
	Span Span

	Bool    bool
	Int     int64
	Float   float64
	Str     string
	Bytes   []byte
	List    []Value
	Record  *Record
	Range   *Range
	Closure *Closure
	Path    *CellPath
	Err     *ShellError
	Custom  CustomValue
}

// Nothing creates a nothing value.
func Nothing(span Span) Value {
	return Value{Kind: KindNothing, Span: span}
}

// BoolValue creates a boolean value.
func BoolValue(b bool, span Span) Value {
	return Value{Kind: KindBool, Span: span, Bool: b}
}

// IntValue creates an integer value.
func IntValue(i int64, span Span) Value {
	return Value{Kind: KindInt, Span: span, Int: i}
}

// FloatValue creates a float value.
func FloatValue(f float64, span Span) Value {
	return Value{Kind: KindFloat, Span: span, Float: f}
}

// StringValue creates a string value.
func StringValue(s string, span Span) Value {
	return Value{Kind: KindString, Span: span, Str: s}
}

// BinaryValue creates a binary value.
func BinaryValue(b []byte, span Span) Value {
	return Value{Kind: KindBinary, Span: span, Bytes: b}
}

// ListValue creates a list value.
func ListValue(items []Value, span Span) Value {
	return Value{Kind: KindList, Span: span, List: items}
}

// RecordValue creates a record value.
func RecordValue(rec *Record, span Span) Value {
	return Value{Kind: KindRecord, Span: span, Record: rec}
}

// RangeValue creates a range value.
func RangeValue(r *Range, span Span) Value {
	return Value{Kind: KindRange, Span: span, Range: r}
}

// ClosureValue creates a closure value.
func ClosureValue(c *Closure, span Span) Value {
	return Value{Kind: KindClosure, Span: span, Closure: c}
}

// CellPathValue creates a cell-path value.
func CellPathValue(p *CellPath, span Span) Value {
	return Value{Kind: KindCellPath, Span: span, Path: p}
}

// ErrorValue creates a first-class error value.
func ErrorValue(err *ShellError, span Span) Value {
	return Value{Kind: KindError, Span: span, Err: err}
}

// Type returns the type of the value.
func (v Value) Type() Type {
	return v.Kind.Type()
}

// IsNothing reports whether the value is nothing.
func (v Value) IsNothing() bool {
	return v.Kind == KindNothing
}

// AsInt returns the integer payload, or a type mismatch error.
func (v Value) AsInt() (int64, error) {
	if v.Kind != KindInt {
		return 0, v.typeError(TypeInt)
	}

	return v.Int, nil
}

// AsFloat returns the numeric payload widened to float64.
func (v Value) AsFloat() (float64, error) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), nil
	case KindFloat:
		return v.Float, nil
	default:
		return 0, v.typeError(TypeNumber)
	}
}

// AsBool returns the boolean payload, or a type mismatch error.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, v.typeError(TypeBool)
	}

	return v.Bool, nil
}

// AsString returns the string payload, or a type mismatch error.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", v.typeError(TypeString)
	}

	return v.Str, nil
}

// AsList returns the list payload, or a type mismatch error.
func (v Value) AsList() ([]Value, error) {
	if v.Kind != KindList {
		return nil, v.typeError(TypeList)
	}

	return v.List, nil
}

// AsRecord returns the record payload, or a type mismatch error.
func (v Value) AsRecord() (*Record, error) {
	if v.Kind != KindRecord {
		return nil, v.typeError(TypeRecord)
	}

	return v.Record, nil
}

// AsClosure returns the closure payload, or a type mismatch error.
func (v Value) AsClosure() (*Closure, error) {
	if v.Kind != KindClosure {
		return nil, v.typeError(TypeClosure)
	}

	return v.Closure, nil
}

func (v Value) typeError(want Type) error {
	return NewShellError(
		ErrTypeMismatch.
			With(slog.String("expected", want.String())).
			With(slog.String("got", v.Type().String())),
		v.Span,
	)
}

// Equal reports deep structural equality between two values.
// Int and float payloads compare numerically across kinds.
func (v Value) Equal(other Value) bool {
	if isNumeric(v.Kind) && isNumeric(other.Kind) {
		if v.Kind == KindInt && other.Kind == KindInt {
			return v.Int == other.Int
		}

		a, _ := v.AsFloat()
		b, _ := other.AsFloat()

		return a == b
	}

	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindNothing:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindString:
		return v.Str == other.Str
	case KindBinary:
		return slices.Equal(v.Bytes, other.Bytes)
	case KindList:
		return slices.EqualFunc(v.List, other.List, Value.Equal)
	case KindRecord:
		return v.Record.Equal(other.Record)
	case KindRange:
		return *v.Range == *other.Range
	default:
		return false
	}
}

// Compare orders two values, returning -1, 0, or +1.
// Only numeric and string orderings are defined; everything else
// returns a type mismatch error.
func (v Value) Compare(other Value) (int, error) {
	if isNumeric(v.Kind) && isNumeric(other.Kind) {
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()

		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}

	if v.Kind == KindString && other.Kind == KindString {
		return strings.Compare(v.Str, other.Str), nil
	}

	return 0, NewShellError(
		ErrTypeMismatch.
			With(slog.String("left", v.Type().String())).
			With(slog.String("right", other.Type().String())),
		v.Span,
	)
}

func isNumeric(k ValueKind) bool {
	return k == KindInt || k == KindFloat
}

// FollowCellPath resolves one path member against the value.
func (v Value) FollowCellPath(member PathMember) (Value, error) {
	switch v.Kind {
	case KindRecord:
		if member.IsIndex {
			return Value{}, NewShellError(
				ErrCellPathMissing.
					With(slog.Int("index", int(member.Index))),
				member.Span,
			)
		}

		if got, ok := v.Record.Get(member.Name); ok {
			return got, nil
		}

		if member.Optional {
			return Nothing(member.Span), nil
		}

		return Value{}, NewShellError(
			ErrCellPathMissing.
				With(slog.String("column", member.Name)),
			member.Span,
		)

	case KindList:
		if member.IsIndex {
			idx := int(member.Index)
			if idx < 0 || idx >= len(v.List) {
				if member.Optional {
					return Nothing(member.Span), nil
				}

				return Value{}, NewShellError(
					ErrCellPathMissing.
						With(slog.Int("index", idx)),
					member.Span,
				)
			}

			return v.List[idx], nil
		}

		// A column access on a list maps over its rows.
		rows := make([]Value, 0, len(v.List))

		for _, row := range v.List {
			got, err := row.FollowCellPath(member)
			if err != nil {
				return Value{}, err
			}

			rows = append(rows, got)
		}

		return ListValue(rows, v.Span), nil

	default:
		return Value{}, NewShellError(
			ErrCellPathMissing.
				With(slog.String("type", v.Type().String())),
			member.Span,
		)
	}
}

// Format renders the value in canonical source syntax. Re-parsing the
// rendering of a literal yields a structurally equivalent value.
func (v Value) Format() string {
	switch v.Kind {
	case KindNothing:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.Float, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") && !math.IsInf(v.Float, 0) {
			s += ".0"
		}

		return s
	case KindString:
		if needsQuoting(v.Str) {
			return strconv.Quote(v.Str)
		}

		return v.Str
	case KindBinary:
		return "0x[" + fmt.Sprintf("%x", v.Bytes) + "]"
	case KindList:
		part := make([]string, len(v.List))
		for i, item := range v.List {
			part[i] = item.Format()
		}

		return "[" + strings.Join(part, ", ") + "]"
	case KindRecord:
		return v.Record.Format()
	case KindRange:
		return v.Range.Format()
	case KindClosure:
		return "<closure>"
	case KindCellPath:
		return v.Path.Format()
	case KindError:
		return "error(" + strconv.Quote(v.Err.Error()) + ")"
	case KindCustom:
		return "<" + v.Custom.TypeName() + ">"
	default:
		return "<garbage>"
	}
}

// needsQuoting reports whether a bare rendering of s would not re-lex as a
// single string token.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}

	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}

	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '"', '\'', '`', '\\',
			'[', ']', '{', '}', '(', ')', '|', ';', '#', '$', ',', ':':
			return true
		}
	}

	return false
}

// Record is an ordered collection of named fields. Field order is the
// insertion order, which keeps table rendering and round-trips stable.
type Record struct {
	keys   []string
	values []Value
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{}
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	return r.keys
}

// Get retrieves a field by name.
func (r *Record) Get(key string) (Value, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}

	return Value{}, false
}

// Set inserts or replaces a field, preserving insertion order.
func (r *Record) Set(key string, val Value) {
	for i, k := range r.keys {
		if k == key {
			r.values[i] = val

			return
		}
	}

	r.keys = append(r.keys, key)
	r.values = append(r.values, val)
}

// Values returns the field values in insertion order.
func (r *Record) Values() []Value {
	return r.values
}

// Equal reports deep equality of two records, including field order.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}

	return slices.Equal(r.keys, other.keys) &&
		slices.EqualFunc(r.values, other.values, Value.Equal)
}

// Format renders the record in canonical source syntax.
func (r *Record) Format() string {
	if r == nil || len(r.keys) == 0 {
		return "{}"
	}

	part := make([]string, len(r.keys))
	for i, k := range r.keys {
		key := k
		if needsQuoting(k) {
			key = strconv.Quote(k)
		}

		part[i] = key + ": " + r.values[i].Format()
	}

	return "{" + strings.Join(part, ", ") + "}"
}

// PathMember is one step of a cell path: a column name or a row index.
type PathMember struct {
	Name     string
	Index    int64
	IsIndex  bool
	Optional bool // `?` suffix: missing members yield nothing
	Span     Span
}

// CellPath addresses a cell inside nested records, lists, and tables.
type CellPath struct {
	Members []PathMember
}

// Format renders the path in canonical dotted syntax.
func (p *CellPath) Format() string {
	part := make([]string, len(p.Members))

	for i, m := range p.Members {
		if m.IsIndex {
			part[i] = strconv.FormatInt(m.Index, 10)
		} else {
			part[i] = m.Name
		}

		if m.Optional {
			part[i] += "?"
		}
	}

	return strings.Join(part, ".")
}

// Closure is a block paired with the variable bindings captured by value at
// the point the closure literal was evaluated.
type Closure struct {
	Block    BlockID
	Captures []VarBinding
}

// VarBinding pairs a variable id with its captured value.
type VarBinding struct {
	ID    VarID
	Value Value
}
