package types

// Kind tags the concrete type of a FieldType.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindFloat
	KindBitvector
	KindStruct
	KindWorklist
	KindCmParameter
	KindString
	KindMemory
	KindArray
	KindVector
	KindStringVector
	KindPlain
	KindUnsized
)

var kindNames = [...]string{
	KindInt:          "int",
	KindBool:         "bool",
	KindFloat:        "float",
	KindBitvector:    "bitvector",
	KindStruct:       "struct",
	KindWorklist:     "worklist",
	KindCmParameter:  "cm_parameter",
	KindString:       "string",
	KindMemory:       "memory",
	KindArray:        "array",
	KindVector:       "vector",
	KindStringVector: "strvec",
	KindPlain:        "plain",
	KindUnsized:      "unsized",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}

	return kindNames[k]
}

// MarshalText lets kinds appear by name in emitted documents.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
