package types

import (
	"io"

	"github.com/luma/pktgen/protocol"
)

// FieldType is the behaviour every field of a packet needs: how it is
// declared, how its values are copied, hashed and compared, and how they go
// over the wire.
//
// Values are plain Go values: int64 for integers, bool, float64, string,
// []byte for memory and opaque structs, *bitset.BitSet for bitvectors,
// protocol.Worklist, protocol.CmParameter, []interface{} for arrays and
// vectors and []string for string vectors.
type FieldType interface {
	Kind() Kind

	// Dataio is the wire representation as written in the schema.
	Dataio() string

	// Public is the in-memory type name as written in the schema.
	Public() string

	// Complex types own dynamic storage and need explicit init, copy and
	// free.
	Complex() bool

	// Declare returns the storage declaration of a field of this type.
	Declare(name string) Decl

	// Param returns the parameter declaration used by direct send and
	// handler functions.
	Param(name string) Decl

	// Init returns a zero value.
	Init() interface{}

	// Copy returns a deep copy of v.
	Copy(v interface{}) interface{}

	// Free releases v and returns the zero value it is reset to.
	Free(v interface{}) interface{}

	// Hash writes the canonical encoding of v into w. Only key fields are
	// hashed.
	Hash(w io.Writer, v interface{}, env Env) error

	// Differ reports whether a and b would be encoded differently.
	Differ(a, b interface{}) bool

	// Put writes v at the given address. A non nil old value selects the
	// element wise diff encoding for arrays and vectors; other types ignore
	// it.
	Put(w protocol.Writer, at protocol.Address, v, old interface{}, env Env) error

	// Get reads a value. A non nil base selects the diff decoding for arrays
	// and vectors; the result is base with the transmitted elements replaced.
	Get(r protocol.Reader, at protocol.Address, base interface{}, env Env) (interface{}, error)

	String() string
}

// Compatible reports whether two field types may back fields of the same
// name in different variants of one packet: both declarations and parameter
// forms must match and both must agree on being complex.
func Compatible(a, b FieldType) bool {
	const probe = "field"

	return a.Declare(probe).Equal(b.Declare(probe)) &&
		a.Param(probe).Equal(b.Param(probe)) &&
		a.Complex() == b.Complex()
}

// Descriptor renders the dataio(public) form of a type.
func Descriptor(t FieldType) string {
	return t.Dataio() + "(" + t.Public() + ")"
}
