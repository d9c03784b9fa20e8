package lang

// Type classifies values and inferred expression results.
type Type int

const (
	// TypeAny matches every value.
	TypeAny Type = iota

	// TypeNothing is the absence of a value.
	TypeNothing

	// TypeBool is a boolean.
	TypeBool

	// TypeInt is a 64-bit signed integer.
	TypeInt

	// TypeFloat is a 64-bit float.
	TypeFloat

	// TypeNumber matches either int or float.
	TypeNumber

	// TypeString is a UTF-8 string.
	TypeString

	// TypeBinary is a raw byte string.
	TypeBinary

	// TypeList is an ordered sequence of values.
	TypeList

	// TypeRecord is an ordered set of named fields.
	TypeRecord

	// TypeTable is a list of records sharing columns.
	TypeTable

	// TypeRange is a numeric range with an increment.
	TypeRange

	// TypeClosure is a block with captured bindings.
	TypeClosure

	// TypeBlock is an unevaluated block of pipelines.
	TypeBlock

	// TypeCellPath is a path of field names and indexes.
	TypeCellPath

	// TypeError is a first-class error value.
	TypeError

	// TypeCustom is a value defined outside the core.
	TypeCustom
)

// String returns a human-readable name for the type.
func (t Type) String() string {
	switch t {
	case TypeAny:
		return "any"
	case TypeNothing:
		return "nothing"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binary"
	case TypeList:
		return "list"
	case TypeRecord:
		return "record"
	case TypeTable:
		return "table"
	case TypeRange:
		return "range"
	case TypeClosure:
		return "closure"
	case TypeBlock:
		return "block"
	case TypeCellPath:
		return "cell-path"
	case TypeError:
		return "error"
	case TypeCustom:
		return "custom"
	default:
		return "unknown"
	}
}
