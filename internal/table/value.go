package table

// Kind identifies what a Value holds.
type Kind uint8

const (
	// KindAbsent marks a missing cell. Absence is never the empty string.
	KindAbsent Kind = iota
	// KindText marks a raw text cell.
	KindText
	// KindBool marks a derived flag cell.
	KindBool
)

// Value is a single table cell.
type Value struct {
	kind Kind
	text string
	flag bool
}

// Absent returns a missing cell.
func Absent() Value { return Value{} }

// Text returns a text cell.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns a flag cell.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Kind reports what the cell holds.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the cell is missing.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsText returns the text of a text cell. ok is false for absent and flag
// cells, which are not text-comparable.
func (v Value) AsText() (s string, ok bool) {
	return v.text, v.kind == KindText
}

// AsBool returns the flag of a flag cell.
func (v Value) AsBool() (b bool, ok bool) {
	return v.flag, v.kind == KindBool
}

// String renders the cell for output: absent cells are empty and flags are
// written as True/False.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindBool:
		if v.flag {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}
