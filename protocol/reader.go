package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Reader is the source every field type reads its values from.
type Reader interface {
	GetUint(at Address, width int) (uint64, error)
	GetSint(at Address, width int) (int64, error)
	GetBool(at Address) (bool, error)
	GetFloat(at Address, signed bool, factor int) (float64, error)

	// GetString reads a string that must fit into capacity bytes including
	// its terminator.
	GetString(at Address, capacity int) (string, error)
	GetMemory(at Address, n int) ([]byte, error)
	GetBitvector(at Address, bits uint) (*bitset.BitSet, error)
	GetBlob(at Address) ([]byte, error)
	GetLength(at Address) (int, error)
}

// DataIn reads the binary wire encoding from a packet body.
type DataIn struct {
	data []byte
	pos  int
}

func NewDataIn(data []byte) *DataIn {
	return &DataIn{data: data}
}

// Remaining returns the number of unread bytes.
func (d *DataIn) Remaining() int {
	return len(d.data) - d.pos
}

func (d *DataIn) take(at Address, n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, fmt.Errorf("%s: need %d bytes, have %d: %w", at, n, d.Remaining(), ErrShortRead)
	}

	b := d.data[d.pos : d.pos+n]
	d.pos += n

	return b, nil
}

func (d *DataIn) GetUint(at Address, width int) (uint64, error) {
	b, err := d.take(at, width/8)
	if err != nil {
		return 0, err
	}

	switch width {
	case 8:
		return uint64(b[0]), nil

	case 16:
		return uint64(binary.BigEndian.Uint16(b)), nil

	case 32:
		return uint64(binary.BigEndian.Uint32(b)), nil

	default:
		return 0, fmt.Errorf("%s: unsupported width %d: %w", at, width, ErrValueRange)
	}
}

func (d *DataIn) GetSint(at Address, width int) (int64, error) {
	u, err := d.GetUint(at, width)
	if err != nil {
		return 0, err
	}

	// sign extend
	shift := uint(64 - width)
	return int64(u<<shift) >> shift, nil
}

func (d *DataIn) GetBool(at Address) (bool, error) {
	u, err := d.GetUint(at, 8)
	if err != nil {
		return false, err
	}

	switch u {
	case 0:
		return false, nil

	case 1:
		return true, nil

	default:
		return false, fmt.Errorf("%s: got %d: %w", at, u, ErrInvalidBool)
	}
}

func (d *DataIn) GetFloat(at Address, signed bool, factor int) (float64, error) {
	if signed {
		v, err := d.GetSint(at, 32)
		return float64(v) / float64(factor), err
	}

	v, err := d.GetUint(at, 32)
	return float64(v) / float64(factor), err
}

func (d *DataIn) GetString(at Address, capacity int) (string, error) {
	for i := d.pos; i < len(d.data); i++ {
		if d.data[i] != 0 {
			continue
		}

		s := string(d.data[d.pos:i])
		d.pos = i + 1

		if len(s) >= capacity {
			return "", fmt.Errorf("%s: %d bytes into %d: %w", at, len(s), capacity, ErrStringTooLong)
		}

		return s, nil
	}

	return "", fmt.Errorf("%s: unterminated string: %w", at, ErrShortRead)
}

func (d *DataIn) GetMemory(at Address, n int) ([]byte, error) {
	b, err := d.take(at, n)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, b)

	return out, nil
}

func (d *DataIn) GetBitvector(at Address, bits uint) (*bitset.BitSet, error) {
	b, err := d.take(at, int((bits+7)/8))
	if err != nil {
		return nil, err
	}

	return UnpackBits(at, bits, b)
}

func (d *DataIn) GetBlob(at Address) ([]byte, error) {
	n, err := d.GetLength(at)
	if err != nil {
		return nil, err
	}

	return d.GetMemory(at, n)
}

func (d *DataIn) GetLength(at Address) (int, error) {
	n, err := d.GetUint(at, 16)
	return int(n), err
}

// UnpackBits is the inverse of PackBits. Bits set beyond the given length are
// a protocol error.
func UnpackBits(at Address, bits uint, packed []byte) (*bitset.BitSet, error) {
	bv := bitset.New(bits)

	for i, b := range packed {
		for j := uint(0); j < 8; j++ {
			if b&(1<<j) == 0 {
				continue
			}

			pos := uint(i)*8 + j
			if pos >= bits {
				return nil, fmt.Errorf("%s: bit %d of %d: %w", at, pos, bits, ErrBitvectorRange)
			}

			bv.Set(pos)
		}
	}

	return bv, nil
}

var _ Reader = (*DataIn)(nil)
