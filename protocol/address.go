package protocol

import (
	"strconv"
	"strings"
)

// Address locates one value inside a packet body: a field name followed by
// array indices or sub keys. Binary connections ignore it, JSON connections
// use it as the document path.
type Address []string

// FieldAddr returns the address of a top level field.
func FieldAddr(name string) Address {
	return Address{name}
}

// Key returns a copy of a extended by a named sub key.
func (a Address) Key(key string) Address {
	out := make(Address, len(a), len(a)+1)
	copy(out, a)

	return append(out, key)
}

// Index returns a copy of a extended by an array index.
func (a Address) Index(i int) Address {
	return a.Key(strconv.Itoa(i))
}

// Path renders a as a gjson/sjson path.
func (a Address) Path() string {
	return strings.Join(a, ".")
}

func (a Address) String() string {
	if len(a) == 0 {
		return "<body>"
	}

	return a.Path()
}
