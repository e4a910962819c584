package types

import (
	"fmt"
	"io"
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/luma/pktgen/protocol"
)

// AsInt converts any Go integer value to int64.
func AsInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// AsFloat converts any Go number to float64.
func AsFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		i, ok := AsInt(v)
		return float64(i), ok
	}
}

func asBytes(v interface{}) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

func asBitset(v interface{}) (*bitset.BitSet, bool) {
	switch bv := v.(type) {
	case *bitset.BitSet:
		return bv, true
	case nil:
		return bitset.New(0), true
	default:
		return nil, false
	}
}

func asStrings(v interface{}) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

func mismatch(at protocol.Address, t FieldType, v interface{}) error {
	return fmt.Errorf("%s: %T is not a %s value: %w", at, v, t.Kind(), protocol.ErrTypeMismatch)
}

// hashValue feeds the canonical binary encoding of v into w.
func hashValue(t FieldType, w io.Writer, v interface{}, env Env) error {
	return t.Put(protocol.NewDataOut(w), nil, v, nil, env)
}
