package protocol

import (
	"encoding/base64"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSONOut builds the JSON encoding of a packet body. Each value is set at the
// path of its Address.
type JSONOut struct {
	doc []byte
}

func NewJSONOut() *JSONOut {
	return &JSONOut{doc: []byte("{}")}
}

// Bytes returns the document built so far.
func (j *JSONOut) Bytes() []byte {
	return j.doc
}

func (j *JSONOut) set(at Address, value interface{}) (err error) {
	j.doc, err = sjson.SetBytes(j.doc, at.Path(), value)
	if err != nil {
		return fmt.Errorf("%s: %w", at, err)
	}

	return nil
}

func (j *JSONOut) PutUint(at Address, width int, v uint64) error {
	if width < 64 && v >= 1<<uint(width) {
		return fmt.Errorf("%s: %d as uint%d: %w", at, v, width, ErrValueRange)
	}

	return j.set(at, v)
}

func (j *JSONOut) PutSint(at Address, width int, v int64) error {
	limit := int64(1) << uint(width-1)
	if v < -limit || v >= limit {
		return fmt.Errorf("%s: %d as sint%d: %w", at, v, width, ErrValueRange)
	}

	return j.set(at, v)
}

func (j *JSONOut) PutBool(at Address, v bool) error {
	return j.set(at, v)
}

func (j *JSONOut) PutFloat(at Address, signed bool, factor int, v float64) error {
	if !signed && v < 0 {
		return fmt.Errorf("%s: %v: %w", at, v, ErrValueRange)
	}

	return j.set(at, v)
}

func (j *JSONOut) PutString(at Address, s string) error {
	return j.set(at, s)
}

func (j *JSONOut) PutMemory(at Address, b []byte) error {
	return j.set(at, base64.StdEncoding.EncodeToString(b))
}

func (j *JSONOut) PutBitvector(at Address, bits uint, bv *bitset.BitSet) error {
	flags := make([]bool, bits)
	for i := range flags {
		flags[i] = bv != nil && bv.Test(uint(i))
	}

	return j.set(at, flags)
}

func (j *JSONOut) PutBlob(at Address, b []byte) error {
	return j.PutMemory(at, b)
}

func (j *JSONOut) PutLength(at Address, n int) (err error) {
	// The array is filled in by the element writes that follow.
	j.doc, err = sjson.SetRawBytes(j.doc, at.Path(), []byte("[]"))
	if err != nil {
		return fmt.Errorf("%s: %w", at, err)
	}

	return nil
}

// JSONIn reads a packet body from its JSON encoding.
type JSONIn struct {
	doc []byte
}

func NewJSONIn(doc []byte) *JSONIn {
	return &JSONIn{doc: doc}
}

func (j *JSONIn) get(at Address) (gjson.Result, error) {
	result := gjson.GetBytes(j.doc, at.Path())
	if !result.Exists() {
		return result, fmt.Errorf("%s: missing: %w", at, ErrShortRead)
	}

	return result, nil
}

func (j *JSONIn) GetUint(at Address, width int) (uint64, error) {
	result, err := j.get(at)
	if err != nil {
		return 0, err
	}

	if result.Type != gjson.Number || result.Num < 0 {
		return 0, fmt.Errorf("%s: %s: %w", at, result.Raw, ErrValueRange)
	}

	v := result.Uint()
	if width < 64 && v >= 1<<uint(width) {
		return 0, fmt.Errorf("%s: %d as uint%d: %w", at, v, width, ErrValueRange)
	}

	return v, nil
}

func (j *JSONIn) GetSint(at Address, width int) (int64, error) {
	result, err := j.get(at)
	if err != nil {
		return 0, err
	}

	if result.Type != gjson.Number {
		return 0, fmt.Errorf("%s: %s: %w", at, result.Raw, ErrValueRange)
	}

	v := result.Int()
	limit := int64(1) << uint(width-1)
	if v < -limit || v >= limit {
		return 0, fmt.Errorf("%s: %d as sint%d: %w", at, v, width, ErrValueRange)
	}

	return v, nil
}

func (j *JSONIn) GetBool(at Address) (bool, error) {
	result, err := j.get(at)
	if err != nil {
		return false, err
	}

	switch result.Type {
	case gjson.True:
		return true, nil

	case gjson.False:
		return false, nil

	default:
		return false, fmt.Errorf("%s: %s: %w", at, result.Raw, ErrInvalidBool)
	}
}

func (j *JSONIn) GetFloat(at Address, signed bool, factor int) (float64, error) {
	result, err := j.get(at)
	if err != nil {
		return 0, err
	}

	if result.Type != gjson.Number || (!signed && result.Num < 0) {
		return 0, fmt.Errorf("%s: %s: %w", at, result.Raw, ErrValueRange)
	}

	return result.Float(), nil
}

func (j *JSONIn) GetString(at Address, capacity int) (string, error) {
	result, err := j.get(at)
	if err != nil {
		return "", err
	}

	s := result.String()
	if len(s) >= capacity {
		return "", fmt.Errorf("%s: %d bytes into %d: %w", at, len(s), capacity, ErrStringTooLong)
	}

	return s, nil
}

func (j *JSONIn) GetMemory(at Address, n int) ([]byte, error) {
	b, err := j.GetBlob(at)
	if err != nil {
		return nil, err
	}

	if len(b) != n {
		return nil, fmt.Errorf("%s: %d bytes, want %d: %w", at, len(b), n, ErrShortRead)
	}

	return b, nil
}

func (j *JSONIn) GetBitvector(at Address, bits uint) (*bitset.BitSet, error) {
	result, err := j.get(at)
	if err != nil {
		return nil, err
	}

	flags := result.Array()
	bv := bitset.New(bits)

	for i, flag := range flags {
		if !flag.Bool() {
			continue
		}

		if uint(i) >= bits {
			return nil, fmt.Errorf("%s: bit %d of %d: %w", at, i, bits, ErrBitvectorRange)
		}

		bv.Set(uint(i))
	}

	return bv, nil
}

func (j *JSONIn) GetBlob(at Address) ([]byte, error) {
	result, err := j.get(at)
	if err != nil {
		return nil, err
	}

	b, err := base64.StdEncoding.DecodeString(result.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", at, err, ErrShortRead)
	}

	return b, nil
}

func (j *JSONIn) GetLength(at Address) (int, error) {
	result, err := j.get(at)
	if err != nil {
		return 0, err
	}

	if !result.IsArray() {
		return 0, fmt.Errorf("%s: not an array: %w", at, ErrShortRead)
	}

	return len(result.Array()), nil
}

var _ Writer = (*JSONOut)(nil)
var _ Reader = (*JSONIn)(nil)
