package types

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/luma/pktgen/protocol"
)

// IntType is a fixed width integer such as uint8(int) or sint16(Unit_type_id).
type IntType struct {
	dataio string
	public string

	Width  int
	Signed bool
}

func NewIntType(dataio, public string, width int, signed bool) *IntType {
	return &IntType{dataio: dataio, public: public, Width: width, Signed: signed}
}

func (t *IntType) Kind() Kind { return KindInt }
func (t *IntType) Dataio() string { return t.dataio }
func (t *IntType) Public() string { return t.public }
func (t *IntType) Complex() bool { return false }
func (t *IntType) Declare(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *IntType) Param(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *IntType) Init() interface{} { return int64(0) }
func (t *IntType) Copy(v interface{}) interface{} { return v }
func (t *IntType) Free(interface{}) interface{} { return int64(0) }
func (t *IntType) String() string { return Descriptor(t) }

func (t *IntType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *IntType) Differ(a, b interface{}) bool {
	x, okA := AsInt(a)
	y, okB := AsInt(b)

	return !okA || !okB || x != y
}

func (t *IntType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	n, ok := AsInt(v)
	if !ok {
		return mismatch(at, t, v)
	}

	if t.Signed {
		return w.PutSint(at, t.Width, n)
	}

	if n < 0 {
		return fmt.Errorf("%s: %d as %s: %w", at, n, t.dataio, protocol.ErrValueRange)
	}

	return w.PutUint(at, t.Width, uint64(n))
}

func (t *IntType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	if t.Signed {
		return r.GetSint(at, t.Width)
	}

	n, err := r.GetUint(at, t.Width)
	if err != nil {
		return nil, err
	}

	return int64(n), nil
}

// BoolType is bool(bool).
type BoolType struct{}

func (t *BoolType) Kind() Kind { return KindBool }
func (t *BoolType) Dataio() string { return "bool" }
func (t *BoolType) Public() string { return "bool" }
func (t *BoolType) Complex() bool { return false }
func (t *BoolType) Declare(name string) Decl { return Decl{Type: "bool", Name: name} }
func (t *BoolType) Param(name string) Decl { return Decl{Type: "bool", Name: name} }
func (t *BoolType) Init() interface{} { return false }
func (t *BoolType) Copy(v interface{}) interface{} { return v }
func (t *BoolType) Free(interface{}) interface{} { return false }
func (t *BoolType) String() string { return Descriptor(t) }

func (t *BoolType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *BoolType) Differ(a, b interface{}) bool {
	x, okA := a.(bool)
	y, okB := b.(bool)

	return !okA || !okB || x != y
}

func (t *BoolType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	b, ok := v.(bool)
	if !ok {
		return mismatch(at, t, v)
	}

	return w.PutBool(at, b)
}

func (t *BoolType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	b, err := r.GetBool(at)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// FloatType is a float sent as a 32 bit integer scaled by Factor, e.g.
// ufloat100(float).
type FloatType struct {
	dataio string

	Signed bool
	Factor int
}

func NewFloatType(dataio string, signed bool, factor int) *FloatType {
	return &FloatType{dataio: dataio, Signed: signed, Factor: factor}
}

func (t *FloatType) Kind() Kind { return KindFloat }
func (t *FloatType) Dataio() string { return t.dataio }
func (t *FloatType) Public() string { return "float" }
func (t *FloatType) Complex() bool { return false }
func (t *FloatType) Declare(name string) Decl { return Decl{Type: "float", Name: name} }
func (t *FloatType) Param(name string) Decl { return Decl{Type: "float", Name: name} }
func (t *FloatType) Init() interface{} { return float64(0) }
func (t *FloatType) Copy(v interface{}) interface{} { return v }
func (t *FloatType) Free(interface{}) interface{} { return float64(0) }
func (t *FloatType) String() string { return Descriptor(t) }

func (t *FloatType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

// Differ compares at wire precision: values that scale to the same integer
// are equal.
func (t *FloatType) Differ(a, b interface{}) bool {
	x, okA := AsFloat(a)
	y, okB := AsFloat(b)
	if !okA || !okB {
		return true
	}

	f := float64(t.Factor)

	return math.Round(x*f) != math.Round(y*f)
}

func (t *FloatType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	f, ok := AsFloat(v)
	if !ok {
		return mismatch(at, t, v)
	}

	return w.PutFloat(at, t.Signed, t.Factor, f)
}

func (t *FloatType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	f, err := r.GetFloat(at, t.Signed, t.Factor)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// PlainType covers every type the registry has no specific knowledge of. Its
// values travel as opaque length prefixed blobs.
type PlainType struct {
	dataio string
	public string
}

func NewPlainType(dataio, public string) *PlainType {
	return &PlainType{dataio: dataio, public: public}
}

func (t *PlainType) Kind() Kind { return KindPlain }
func (t *PlainType) Dataio() string { return t.dataio }
func (t *PlainType) Public() string { return t.public }
func (t *PlainType) Complex() bool { return false }
func (t *PlainType) Declare(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *PlainType) Param(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *PlainType) Init() interface{} { return []byte{} }
func (t *PlainType) Copy(v interface{}) interface{} { return copyBlob(v) }
func (t *PlainType) Free(interface{}) interface{} { return []byte{} }
func (t *PlainType) String() string { return Descriptor(t) }
func (t *PlainType) Differ(a, b interface{}) bool { return blobsDiffer(a, b) }

func (t *PlainType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *PlainType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	b, ok := asBytes(v)
	if !ok {
		return mismatch(at, t, v)
	}

	return w.PutBlob(at, b)
}

func (t *PlainType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	b, err := r.GetBlob(at)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func copyBlob(v interface{}) interface{} {
	b, ok := asBytes(v)
	if !ok {
		return v
	}

	return append([]byte{}, b...)
}

func blobsDiffer(a, b interface{}) bool {
	x, okA := asBytes(a)
	y, okB := asBytes(b)

	return !okA || !okB || !bytes.Equal(x, y)
}

var (
	_ FieldType = (*IntType)(nil)
	_ FieldType = (*BoolType)(nil)
	_ FieldType = (*FloatType)(nil)
	_ FieldType = (*PlainType)(nil)
)
