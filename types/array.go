package types

import (
	"fmt"
	"io"
	"reflect"

	"github.com/luma/pktgen/protocol"
)

// ArrayType is a fixed capacity array of Elem. Variable arrays send only the
// first Size.Resolve elements.
type ArrayType struct {
	Elem FieldType
	Size SizeInfo
}

func (t *ArrayType) Kind() Kind { return KindArray }
func (t *ArrayType) Dataio() string { return t.Elem.Dataio() }
func (t *ArrayType) Public() string { return t.Elem.Public() }
func (t *ArrayType) Complex() bool { return t.Elem.Complex() }
func (t *ArrayType) String() string { return t.Elem.String() + "[" + t.Size.String() + "]" }

func (t *ArrayType) Declare(name string) Decl {
	return withDim(t.Elem.Declare(name), t.Size.Declared)
}

func (t *ArrayType) Param(name string) Decl {
	d := t.Elem.Declare(name)
	d.Ref = true

	return d
}

func (t *ArrayType) Init() interface{} {
	out := make([]interface{}, t.Size.Max)
	for i := range out {
		out[i] = t.Elem.Init()
	}

	return out
}

func (t *ArrayType) Copy(v interface{}) interface{} {
	return copyList(t.Elem, v)
}

func (t *ArrayType) Free(v interface{}) interface{} {
	freeList(t.Elem, v)
	return t.Init()
}

func (t *ArrayType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *ArrayType) Differ(a, b interface{}) bool {
	return listsDiffer(t.Elem, a, b)
}

func (t *ArrayType) Put(w protocol.Writer, at protocol.Address, v, old interface{}, env Env) error {
	list, ok := asList(v)
	if !ok {
		return mismatch(at, t, v)
	}

	n, err := t.Size.Resolve(env)
	if err != nil {
		return fmt.Errorf("%s: %w", at, err)
	}

	if len(list) < n {
		return fmt.Errorf("%s: %d elements, need %d: %w", at, len(list), n, protocol.ErrTypeMismatch)
	}

	if old == nil {
		for i := 0; i < n; i++ {
			if err := t.Elem.Put(w, at.Index(i), list[i], nil, env); err != nil {
				return err
			}
		}

		return nil
	}

	prev, ok := asList(old)
	if !ok {
		return mismatch(at, t, old)
	}

	return putDiff(w, at, t.Elem, list[:n], prev, IndexWidth(t.Size.Max), env)
}

func (t *ArrayType) Get(r protocol.Reader, at protocol.Address, base interface{}, env Env) (interface{}, error) {
	n, err := t.Size.Resolve(env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}

	if base == nil {
		out := t.Init().([]interface{})
		for i := 0; i < n; i++ {
			if out[i], err = t.Elem.Get(r, at.Index(i), nil, env); err != nil {
				return nil, err
			}
		}

		return out, nil
	}

	prev, ok := asList(base)
	if !ok {
		return nil, mismatch(at, t, base)
	}

	out := t.Init().([]interface{})
	for i := 0; i < len(out) && i < len(prev); i++ {
		out[i] = prev[i]
	}

	return getDiff(r, at, t.Elem, out, n, IndexWidth(t.Size.Max), env)
}

// VectorType is a dynamically sized array of Elem, written `[*]`. Its length
// travels in front of the elements.
type VectorType struct {
	Elem FieldType
}

func (t *VectorType) Kind() Kind { return KindVector }
func (t *VectorType) Dataio() string { return t.Elem.Dataio() }
func (t *VectorType) Public() string { return t.Elem.Public() }
func (t *VectorType) Complex() bool { return true }
func (t *VectorType) Init() interface{} { return []interface{}{} }
func (t *VectorType) String() string { return t.Elem.String() + "[*]" }

func (t *VectorType) Declare(name string) Decl {
	d := t.Elem.Declare(name)
	d.Pointer = true

	return d
}

func (t *VectorType) Param(name string) Decl {
	d := t.Elem.Declare(name)
	d.Ref = true

	return d
}

func (t *VectorType) Copy(v interface{}) interface{} {
	return copyList(t.Elem, v)
}

func (t *VectorType) Free(v interface{}) interface{} {
	freeList(t.Elem, v)
	return []interface{}{}
}

func (t *VectorType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *VectorType) Differ(a, b interface{}) bool {
	return listsDiffer(t.Elem, a, b)
}

func (t *VectorType) Put(w protocol.Writer, at protocol.Address, v, old interface{}, env Env) error {
	list, ok := asList(v)
	if !ok {
		return mismatch(at, t, v)
	}

	// The length is read once; everything below uses the snapshot.
	n := len(list)

	if old == nil {
		if err := w.PutLength(at, n); err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			if err := t.Elem.Put(w, at.Index(i), list[i], nil, env); err != nil {
				return err
			}
		}

		return nil
	}

	prev, ok := asList(old)
	if !ok {
		return mismatch(at, t, old)
	}

	if err := w.PutUint(at.Key("length"), 16, uint64(n)); err != nil {
		return err
	}

	return putDiff(w, at.Key("diff"), t.Elem, list[:n], prev, IndexWidth(n), env)
}

func (t *VectorType) Get(r protocol.Reader, at protocol.Address, base interface{}, env Env) (interface{}, error) {
	if base == nil {
		n, err := r.GetLength(at)
		if err != nil {
			return nil, err
		}

		out := make([]interface{}, n)
		for i := range out {
			if out[i], err = t.Elem.Get(r, at.Index(i), nil, env); err != nil {
				return nil, err
			}
		}

		return out, nil
	}

	prev, ok := asList(base)
	if !ok {
		return nil, mismatch(at, t, base)
	}

	length, err := r.GetUint(at.Key("length"), 16)
	if err != nil {
		return nil, err
	}

	n := int(length)
	out := make([]interface{}, n)
	for i := range out {
		if i < len(prev) {
			out[i] = prev[i]
		} else {
			out[i] = t.Elem.Init()
		}
	}

	return getDiff(r, at.Key("diff"), t.Elem, out, n, IndexWidth(n), env)
}

// StringVectorType is strvec(struct strvec), a list of unbounded strings.
type StringVectorType struct {
	public string
}

func NewStringVectorType(public string) *StringVectorType {
	return &StringVectorType{public: public}
}

func (t *StringVectorType) Kind() Kind { return KindStringVector }
func (t *StringVectorType) Dataio() string { return "strvec" }
func (t *StringVectorType) Public() string { return t.public }
func (t *StringVectorType) Complex() bool { return true }
func (t *StringVectorType) Declare(name string) Decl { return Decl{Type: t.public, Name: name, Pointer: true} }
func (t *StringVectorType) Param(name string) Decl { return Decl{Type: t.public, Name: name, Ref: true} }
func (t *StringVectorType) Init() interface{} { return []string{} }
func (t *StringVectorType) Free(interface{}) interface{} { return []string{} }
func (t *StringVectorType) String() string { return Descriptor(t) }

func (t *StringVectorType) Copy(v interface{}) interface{} {
	l, ok := asStrings(v)
	if !ok {
		return v
	}

	return append([]string{}, l...)
}

func (t *StringVectorType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *StringVectorType) Differ(a, b interface{}) bool {
	x, okA := asStrings(a)
	y, okB := asStrings(b)
	if !okA || !okB || len(x) != len(y) {
		return true
	}

	for i := range x {
		if x[i] != y[i] {
			return true
		}
	}

	return false
}

func (t *StringVectorType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	l, ok := asStrings(v)
	if !ok {
		return mismatch(at, t, v)
	}

	if err := w.PutLength(at, len(l)); err != nil {
		return err
	}

	for i, s := range l {
		if err := w.PutString(at.Index(i), s); err != nil {
			return err
		}
	}

	return nil
}

func (t *StringVectorType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	n, err := r.GetLength(at)
	if err != nil {
		return nil, err
	}

	out := make([]string, n)
	for i := range out {
		if out[i], err = r.GetString(at.Index(i), int(^uint(0)>>1)); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// putDiff writes (index, element) pairs for every element of list that
// differs from prev, followed by len(list) as terminator.
func putDiff(w protocol.Writer, at protocol.Address, elem FieldType, list, prev []interface{}, width int, env Env) error {
	k := 0

	for i, v := range list {
		if i < len(prev) && !elem.Differ(prev[i], v) {
			continue
		}

		pair := at.Index(k)
		if err := w.PutUint(pair.Index(0), width, uint64(i)); err != nil {
			return err
		}

		if err := elem.Put(w, pair.Index(1), v, nil, env); err != nil {
			return err
		}

		k++
	}

	return w.PutUint(at.Index(k).Index(0), width, uint64(len(list)))
}

// getDiff applies transmitted pairs to out until it reads the terminator n.
// Indices beyond the capacity of out are a protocol error.
func getDiff(r protocol.Reader, at protocol.Address, elem FieldType, out []interface{}, n, width int, env Env) ([]interface{}, error) {
	for k := 0; ; k++ {
		pair := at.Index(k)

		idx, err := r.GetUint(pair.Index(0), width)
		if err != nil {
			return nil, err
		}

		if int(idx) == n {
			return out, nil
		}

		if int(idx) >= len(out) {
			return nil, fmt.Errorf("%s: index %d of %d: %w", pair, idx, len(out), protocol.ErrDiffIndex)
		}

		if out[idx], err = elem.Get(r, pair.Index(1), nil, env); err != nil {
			return nil, err
		}
	}
}

func copyList(elem FieldType, v interface{}) interface{} {
	l, ok := asList(v)
	if !ok {
		return v
	}

	out := make([]interface{}, len(l))
	for i := range l {
		out[i] = elem.Copy(l[i])
	}

	return out
}

func freeList(elem FieldType, v interface{}) {
	l, ok := asList(v)
	if !ok {
		return
	}

	for i := range l {
		l[i] = elem.Free(l[i])
	}
}

func listsDiffer(elem FieldType, a, b interface{}) bool {
	x, okA := asList(a)
	y, okB := asList(b)
	if !okA || !okB || len(x) != len(y) {
		return true
	}

	for i := range x {
		if elem.Differ(x[i], y[i]) {
			return true
		}
	}

	return false
}

// asList accepts []interface{} as well as any typed slice.
func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true

	case nil:
		return nil, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

// Wrap applies the bracketed dimensions of a field declaration to its base
// type, innermost (last) first. String and memory types take the last
// dimension as their capacity.
func Wrap(base FieldType, dims []Dim) (FieldType, error) {
	t := base

	for i := len(dims) - 1; i >= 0; i-- {
		d := dims[i]

		if u, ok := t.(*UnsizedType); ok {
			if d.Vector {
				return nil, fmt.Errorf("%s[*]: %w", u, ErrInvalidSize)
			}

			sized, err := u.WithSize(d.Size)
			if err != nil {
				return nil, err
			}

			t = sized
			continue
		}

		if d.Vector {
			if t.Complex() {
				return nil, fmt.Errorf("%s[*]: %w", t, ErrComplexVector)
			}

			t = &VectorType{Elem: t}
			continue
		}

		t = &ArrayType{Elem: t, Size: d.Size}
	}

	if _, ok := t.(*UnsizedType); ok {
		return nil, fmt.Errorf("%s: %w", t, ErrMissingSize)
	}

	return t, nil
}

var (
	_ FieldType = (*ArrayType)(nil)
	_ FieldType = (*VectorType)(nil)
	_ FieldType = (*StringVectorType)(nil)
)

// SizeFields returns the names of the fields holding actual lengths of t and
// of every array nested in it.
func SizeFields(t FieldType) []string {
	var out []string

	for {
		switch tt := t.(type) {
		case *ArrayType:
			if !tt.Size.Constant() {
				out = append(out, tt.Size.Actual)
			}
			t = tt.Elem

		case *VectorType:
			t = tt.Elem

		case *MemoryType:
			if !tt.Size.Constant() {
				out = append(out, tt.Size.Actual)
			}
			return out

		default:
			return out
		}
	}
}
