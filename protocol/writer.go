package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// Writer is the sink every field type writes its values into.
type Writer interface {
	PutUint(at Address, width int, v uint64) error
	PutSint(at Address, width int, v int64) error
	PutBool(at Address, v bool) error
	PutFloat(at Address, signed bool, factor int, v float64) error
	PutString(at Address, s string) error
	PutMemory(at Address, b []byte) error
	PutBitvector(at Address, bits uint, bv *bitset.BitSet) error
	PutBlob(at Address, b []byte) error

	// PutLength writes the length prefix of a vector.
	PutLength(at Address, n int) error
}

// DataOut writes the binary wire encoding into an io.Writer.
type DataOut struct {
	w       io.Writer
	written int
	scratch [4]byte
}

func NewDataOut(w io.Writer) *DataOut {
	return &DataOut{w: w}
}

// Written returns the number of bytes written so far.
func (d *DataOut) Written() int {
	return d.written
}

func (d *DataOut) write(b []byte) error {
	n, err := d.w.Write(b)
	d.written += n

	return err
}

func (d *DataOut) PutUint(at Address, width int, v uint64) error {
	if width < 64 && v >= 1<<uint(width) {
		return fmt.Errorf("%s: %d as uint%d: %w", at, v, width, ErrValueRange)
	}

	switch width {
	case 8:
		d.scratch[0] = byte(v)
		return d.write(d.scratch[:1])

	case 16:
		binary.BigEndian.PutUint16(d.scratch[:2], uint16(v))
		return d.write(d.scratch[:2])

	case 32:
		binary.BigEndian.PutUint32(d.scratch[:4], uint32(v))
		return d.write(d.scratch[:4])

	default:
		return fmt.Errorf("%s: unsupported width %d: %w", at, width, ErrValueRange)
	}
}

func (d *DataOut) PutSint(at Address, width int, v int64) error {
	limit := int64(1) << uint(width-1)
	if v < -limit || v >= limit {
		return fmt.Errorf("%s: %d as sint%d: %w", at, v, width, ErrValueRange)
	}

	mask := uint64(1)<<uint(width) - 1

	return d.PutUint(at, width, uint64(v)&mask)
}

func (d *DataOut) PutBool(at Address, v bool) error {
	if v {
		return d.PutUint(at, 8, 1)
	}

	return d.PutUint(at, 8, 0)
}

func (d *DataOut) PutFloat(at Address, signed bool, factor int, v float64) error {
	scaled := math.Round(v * float64(factor))
	if signed {
		if scaled < math.MinInt32 || scaled > math.MaxInt32 {
			return fmt.Errorf("%s: %v: %w", at, v, ErrValueRange)
		}

		return d.PutSint(at, 32, int64(scaled))
	}

	if scaled < 0 || scaled > math.MaxUint32 {
		return fmt.Errorf("%s: %v: %w", at, v, ErrValueRange)
	}

	return d.PutUint(at, 32, uint64(scaled))
}

func (d *DataOut) PutString(at Address, s string) error {
	if err := d.write([]byte(s)); err != nil {
		return err
	}

	d.scratch[0] = 0
	return d.write(d.scratch[:1])
}

func (d *DataOut) PutMemory(at Address, b []byte) error {
	return d.write(b)
}

func (d *DataOut) PutBitvector(at Address, bits uint, bv *bitset.BitSet) error {
	return d.write(PackBits(bits, bv))
}

func (d *DataOut) PutBlob(at Address, b []byte) error {
	if err := d.PutLength(at, len(b)); err != nil {
		return err
	}

	return d.write(b)
}

func (d *DataOut) PutLength(at Address, n int) error {
	if n < 0 || n > math.MaxUint16 {
		return fmt.Errorf("%s: length %d: %w", at, n, ErrValueRange)
	}

	return d.PutUint(at, 16, uint64(n))
}

// PackBits packs the first bits bits of bv into bytes, least significant bit
// first.
func PackBits(bits uint, bv *bitset.BitSet) []byte {
	out := make([]byte, (bits+7)/8)
	if bv == nil {
		return out
	}

	for i, ok := bv.NextSet(0); ok && i < bits; i, ok = bv.NextSet(i + 1) {
		out[i/8] |= 1 << (i % 8)
	}

	return out
}

var _ Writer = (*DataOut)(nil)
