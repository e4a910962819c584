package types

import (
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"

	"github.com/luma/pktgen/protocol"
)

// BitvectorType is bitvector(bv_xxx). Values are *bitset.BitSet and travel
// with their bit length in front.
type BitvectorType struct {
	public string
}

func NewBitvectorType(public string) *BitvectorType {
	return &BitvectorType{public: public}
}

func (t *BitvectorType) Kind() Kind { return KindBitvector }
func (t *BitvectorType) Dataio() string { return "bitvector" }
func (t *BitvectorType) Public() string { return t.public }
func (t *BitvectorType) Complex() bool { return false }
func (t *BitvectorType) Declare(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *BitvectorType) Param(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *BitvectorType) Init() interface{} { return bitset.New(0) }
func (t *BitvectorType) Free(interface{}) interface{} { return bitset.New(0) }
func (t *BitvectorType) String() string { return Descriptor(t) }

func (t *BitvectorType) Copy(v interface{}) interface{} {
	bv, ok := asBitset(v)
	if !ok {
		return v
	}

	return bv.Clone()
}

func (t *BitvectorType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *BitvectorType) Differ(a, b interface{}) bool {
	x, okA := asBitset(a)
	y, okB := asBitset(b)

	return !okA || !okB || !x.Equal(y)
}

func (t *BitvectorType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	bv, ok := asBitset(v)
	if !ok {
		return mismatch(at, t, v)
	}

	if err := w.PutLength(at, int(bv.Len())); err != nil {
		return err
	}

	return w.PutBitvector(at, bv.Len(), bv)
}

func (t *BitvectorType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	n, err := r.GetLength(at)
	if err != nil {
		return nil, err
	}

	bv, err := r.GetBitvector(at, uint(n))
	if err != nil {
		return nil, err
	}

	return bv, nil
}

// StructType is a struct the schema only knows by name, e.g.
// requirement(struct requirement). Its values are opaque blobs.
type StructType struct {
	dataio string
	public string

	Name string
}

func NewStructType(dataio, public, name string) *StructType {
	return &StructType{dataio: dataio, public: public, Name: name}
}

func (t *StructType) Kind() Kind { return KindStruct }
func (t *StructType) Dataio() string { return t.dataio }
func (t *StructType) Public() string { return t.public }
func (t *StructType) Complex() bool { return false }
func (t *StructType) Declare(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *StructType) Param(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *StructType) Init() interface{} { return []byte{} }
func (t *StructType) Copy(v interface{}) interface{} { return copyBlob(v) }
func (t *StructType) Free(interface{}) interface{} { return []byte{} }
func (t *StructType) Differ(a, b interface{}) bool { return blobsDiffer(a, b) }
func (t *StructType) String() string { return Descriptor(t) }

func (t *StructType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *StructType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	b, ok := asBytes(v)
	if !ok {
		return mismatch(at, t, v)
	}

	return w.PutBlob(at, b)
}

func (t *StructType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	b, err := r.GetBlob(at)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// WorklistType is worklist(struct worklist): a counted list of production
// targets.
type WorklistType struct {
	public string
}

func NewWorklistType(public string) *WorklistType {
	return &WorklistType{public: public}
}

func (t *WorklistType) Kind() Kind { return KindWorklist }
func (t *WorklistType) Dataio() string { return "worklist" }
func (t *WorklistType) Public() string { return t.public }
func (t *WorklistType) Complex() bool { return false }
func (t *WorklistType) Declare(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *WorklistType) Param(name string) Decl { return Decl{Type: t.public, Name: name, Ref: true} }
func (t *WorklistType) Init() interface{} { return protocol.Worklist{} }
func (t *WorklistType) Free(interface{}) interface{} { return protocol.Worklist{} }
func (t *WorklistType) String() string { return Descriptor(t) }

func (t *WorklistType) Copy(v interface{}) interface{} {
	wl, ok := v.(protocol.Worklist)
	if !ok {
		return v
	}

	return append(protocol.Worklist{}, wl...)
}

func (t *WorklistType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *WorklistType) Differ(a, b interface{}) bool {
	x, okA := a.(protocol.Worklist)
	y, okB := b.(protocol.Worklist)

	return !okA || !okB || !x.Equal(y)
}

func (t *WorklistType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	wl, ok := v.(protocol.Worklist)
	if !ok {
		return mismatch(at, t, v)
	}

	if len(wl) > protocol.MaxWorklistLen {
		return fmt.Errorf("%s: %d entries: %w", at, len(wl), protocol.ErrWorklistTooLong)
	}

	if err := w.PutUint(at.Key("count"), 8, uint64(len(wl))); err != nil {
		return err
	}

	items := at.Key("items")
	for i, item := range wl {
		if err := w.PutUint(items.Index(i).Key("kind"), 8, uint64(item.Kind)); err != nil {
			return err
		}

		if err := w.PutUint(items.Index(i).Key("value"), 16, uint64(item.Value)); err != nil {
			return err
		}
	}

	return nil
}

func (t *WorklistType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	n, err := r.GetUint(at.Key("count"), 8)
	if err != nil {
		return nil, err
	}

	if n > protocol.MaxWorklistLen {
		return nil, fmt.Errorf("%s: %d entries: %w", at, n, protocol.ErrWorklistTooLong)
	}

	wl := make(protocol.Worklist, n)
	items := at.Key("items")

	for i := range wl {
		kind, err := r.GetUint(items.Index(i).Key("kind"), 8)
		if err != nil {
			return nil, err
		}

		value, err := r.GetUint(items.Index(i).Key("value"), 16)
		if err != nil {
			return nil, err
		}

		wl[i] = protocol.WorkItem{Kind: uint8(kind), Value: uint16(value)}
	}

	return wl, nil
}

// CmParameterType is cm_parameter(struct cm_parameter), the city governor
// settings.
type CmParameterType struct {
	public string
}

func NewCmParameterType(public string) *CmParameterType {
	return &CmParameterType{public: public}
}

func (t *CmParameterType) Kind() Kind { return KindCmParameter }
func (t *CmParameterType) Dataio() string { return "cm_parameter" }
func (t *CmParameterType) Public() string { return t.public }
func (t *CmParameterType) Complex() bool { return false }
func (t *CmParameterType) Declare(name string) Decl { return Decl{Type: t.public, Name: name} }
func (t *CmParameterType) Param(name string) Decl { return Decl{Type: t.public, Name: name, Ref: true} }
func (t *CmParameterType) Init() interface{} { return protocol.CmParameter{} }
func (t *CmParameterType) Copy(v interface{}) interface{} { return v }
func (t *CmParameterType) Free(interface{}) interface{} { return protocol.CmParameter{} }
func (t *CmParameterType) String() string { return Descriptor(t) }

func (t *CmParameterType) Hash(w io.Writer, v interface{}, env Env) error {
	return hashValue(t, w, v, env)
}

func (t *CmParameterType) Differ(a, b interface{}) bool {
	x, okA := a.(protocol.CmParameter)
	y, okB := b.(protocol.CmParameter)

	return !okA || !okB || !x.Equal(y)
}

func (t *CmParameterType) Put(w protocol.Writer, at protocol.Address, v, _ interface{}, _ Env) error {
	cm, ok := v.(protocol.CmParameter)
	if !ok {
		return mismatch(at, t, v)
	}

	for i, s := range cm.MinimalSurplus {
		if err := w.PutSint(at.Key("minimal_surplus").Index(i), 16, int64(s)); err != nil {
			return err
		}
	}

	flags := []struct {
		key string
		v   bool
	}{
		{"max_growth", cm.MaxGrowth},
		{"require_happy", cm.RequireHappy},
		{"allow_disorder", cm.AllowDisorder},
		{"allow_specialists", cm.AllowSpecialists},
	}
	for _, f := range flags {
		if err := w.PutBool(at.Key(f.key), f.v); err != nil {
			return err
		}
	}

	for i, f := range cm.Factor {
		if err := w.PutUint(at.Key("factor").Index(i), 16, uint64(f)); err != nil {
			return err
		}
	}

	return w.PutUint(at.Key("happy_factor"), 16, uint64(cm.HappyFactor))
}

func (t *CmParameterType) Get(r protocol.Reader, at protocol.Address, _ interface{}, _ Env) (interface{}, error) {
	var cm protocol.CmParameter

	for i := range cm.MinimalSurplus {
		s, err := r.GetSint(at.Key("minimal_surplus").Index(i), 16)
		if err != nil {
			return nil, err
		}
		cm.MinimalSurplus[i] = int16(s)
	}

	flags := []struct {
		key string
		v   *bool
	}{
		{"max_growth", &cm.MaxGrowth},
		{"require_happy", &cm.RequireHappy},
		{"allow_disorder", &cm.AllowDisorder},
		{"allow_specialists", &cm.AllowSpecialists},
	}
	for _, f := range flags {
		b, err := r.GetBool(at.Key(f.key))
		if err != nil {
			return nil, err
		}
		*f.v = b
	}

	for i := range cm.Factor {
		f, err := r.GetUint(at.Key("factor").Index(i), 16)
		if err != nil {
			return nil, err
		}
		cm.Factor[i] = uint16(f)
	}

	hf, err := r.GetUint(at.Key("happy_factor"), 16)
	if err != nil {
		return nil, err
	}
	cm.HappyFactor = uint16(hf)

	return cm, nil
}

var (
	_ FieldType = (*BitvectorType)(nil)
	_ FieldType = (*StructType)(nil)
	_ FieldType = (*WorklistType)(nil)
	_ FieldType = (*CmParameterType)(nil)
)
