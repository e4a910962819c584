package types

import (
	"fmt"
	"io"

	"github.com/luma/pktgen/protocol"
)

type sizedKind int

const (
	sizedString sizedKind = iota
	sizedEstring
	sizedMemory
)

// UnsizedType is a string, estring or memory type that has not seen its
// bracket yet. Wrap turns it into a StringType or MemoryType; any field left
// unsized is an error.
type UnsizedType struct {
	dataio string
	public string
	kind   sizedKind
}

func (t *UnsizedType) Kind() Kind { return KindUnsized }
func (t *UnsizedType) Dataio() string { return t.dataio }
func (t *UnsizedType) Public() string { return t.public }
func (t *UnsizedType) Complex() bool { return false }
func (t *UnsizedType) Declare(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *UnsizedType) Param(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *UnsizedType) Init() interface{} { return nil }
func (t *UnsizedType) Copy(v interface{}) interface{} { return v }
func (t *UnsizedType) Free(interface{}) interface{} { return nil }
func (t *UnsizedType) Differ(a, b interface{}) bool { return true }
func (t *UnsizedType) String() string { return Descriptor(t) }

func (t *UnsizedType) Hash(io.Writer, interface{}, Env) error {
	return fmt.Errorf("%s: %w", t, ErrUnsizedValue)
}

func (t *UnsizedType) Put(_ protocol.Writer, at protocol.Address, _, _ interface{}, _ Env) error {
	return fmt.Errorf("%s: %s: %w", at, t, ErrUnsizedValue)
}

func (t *UnsizedType) Get(_ protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	return nil, fmt.Errorf("%s: %s: %w", at, t, ErrUnsizedValue)
}

// WithSize consumes one dimension as the capacity of the type.
func (t *UnsizedType) WithSize(size SizeInfo) (FieldType, error) {
	switch t.kind {
	case sizedMemory:
		return &MemoryType{dataio: t.dataio, public: t.public, Size: size}, nil

	default:
		if !size.Constant() {
			return nil, fmt.Errorf("%s[%s]: strings take no actual length: %w", t, size, ErrInvalidSize)
		}

		return &StringType{dataio: t.dataio, public: t.public, Capacity: size, Escaped: t.kind == sizedEstring}, nil
	}
}

// StringType is string(char) or estring(char) with its buffer capacity. The
// capacity includes the terminator.
type StringType struct {
	dataio string
	public string

	Capacity SizeInfo
	Escaped  bool
}

func (t *StringType) Kind() Kind { return KindString }
func (t *StringType) Dataio() string { return t.dataio }
func (t *StringType) Public() string { return t.public }
func (t *StringType) Complex() bool { return false }
func (t *StringType) Param(name string) Decl { return Decl{Type: t.public, Name: name, Ref: true} }
func (t *StringType) Init() interface{} { return "" }
func (t *StringType) Copy(v interface{}) interface{} { return v }
func (t *StringType) Free(interface{}) interface{} { return "" }
func (t *StringType) String() string { return Descriptor(t) + "[" + t.Capacity.String() + "]" }

func (t *StringType) Declare(name string) Decl {
	return Decl{Type: t.public, Name: name, Dims: []string{t.Capacity.Declared}}
}

func (t *StringType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *StringType) Differ(a, b interface{}) bool {
	x, okA := a.(string)
	y, okB := b.(string)

	return !okA || !okB || x != y
}

func (t *StringType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(at, t, v)
	}

	if len(s) >= t.Capacity.Max {
		return fmt.Errorf("%s: %d bytes into %s: %w", at, len(s), t.Capacity.Declared, protocol.ErrStringTooLong)
	}

	return w.PutString(at, s)
}

func (t *StringType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	s, err := r.GetString(at, t.Capacity.Max)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// MemoryType is memory(unsigned char) with a fixed buffer size. Only the
// first Size.Resolve bytes go over the wire.
type MemoryType struct {
	dataio string
	public string

	Size SizeInfo
}

func (t *MemoryType) Kind() Kind { return KindMemory }
func (t *MemoryType) Dataio() string { return t.dataio }
func (t *MemoryType) Public() string { return t.public }
func (t *MemoryType) Complex() bool { return false }
func (t *MemoryType) Param(name string) Decl { return Decl{Type: t.public, Name: name, Ref: true} }
func (t *MemoryType) Init() interface{} { return make([]byte, t.Size.Max) }
func (t *MemoryType) Copy(v interface{}) interface{} { return copyBlob(v) }
func (t *MemoryType) Free(interface{}) interface{} { return make([]byte, t.Size.Max) }
func (t *MemoryType) Differ(a, b interface{}) bool { return blobsDiffer(a, b) }
func (t *MemoryType) String() string { return Descriptor(t) + "[" + t.Size.String() + "]" }

func (t *MemoryType) Declare(name string) Decl {
	return Decl{Type: t.public, Name: name, Dims: []string{t.Size.Declared}}
}

func (t *MemoryType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *MemoryType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, env Env) error {
	b, ok := asBytes(v)
	if !ok {
		return mismatch(at, t, v)
	}

	n, err := t.Size.Resolve(env)
	if err != nil {
		return fmt.Errorf("%s: %w", at, err)
	}

	if len(b) < n {
		return fmt.Errorf("%s: %d bytes, need %d: %w", at, len(b), n, protocol.ErrTypeMismatch)
	}

	return w.PutMemory(at, b[:n])
}

func (t *MemoryType) Get(r protocol.Reader, at protocol.Address, _ interface{}, env Env) (interface{}, error) {
	n, err := t.Size.Resolve(env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}

	b, err := r.GetMemory(at, n)
	if err != nil {
		return nil, err
	}

	out := make([]byte, t.Size.Max)
	copy(out, b)

	return out, nil
}

var (
	_ FieldType = (*UnsizedType)(nil)
	_ FieldType = (*StringType)(nil)
	_ FieldType = (*MemoryType)(nil)
)
