package model

import (
	"fmt"
	"strings"

	"github.com/luma/pktgen/protocol"
)

// FirstVariantNo is the number of the first variant of every packet.
const FirstVariantNo = 100

// Variant is one capability specialized field subset of a packet.
type Variant struct {
	No   int
	Name string

	// PosCaps must be present and NegCaps absent for the variant to be
	// selected.
	PosCaps []string
	NegCaps []string

	Fields []*Field
}

// KeyFields returns the key fields in declaration order.
func (v *Variant) KeyFields() []*Field {
	var out []*Field
	for _, f := range v.Fields {
		if f.IsKey() {
			out = append(out, f)
		}
	}

	return out
}

// OtherFields returns the non key fields. Field i of the result owns bit i
// of the presence bitvector.
func (v *Variant) OtherFields() []*Field {
	var out []*Field
	for _, f := range v.Fields {
		if !f.IsKey() {
			out = append(out, f)
		}
	}

	return out
}

// Bits is the width of the presence bitvector.
func (v *Variant) Bits() int {
	return len(v.OtherFields())
}

// Complex reports whether any field needs a type aware copy.
func (v *Variant) Complex() bool {
	for _, f := range v.Fields {
		if f.Type.Complex() {
			return true
		}
	}

	return false
}

// Field returns the named field of the variant.
func (v *Variant) Field(name string) (*Field, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return nil, false
}

// Matches reports whether the variant is selected by the negotiated
// capability string.
func (v *Variant) Matches(capabilities string) bool {
	for _, c := range v.PosCaps {
		if !protocol.HasCapability(c, capabilities) {
			return false
		}
	}

	for _, c := range v.NegCaps {
		if protocol.HasCapability(c, capabilities) {
			return false
		}
	}

	return true
}

// Condition renders the selection condition, e.g. "A && !B".
func (v *Variant) Condition() string {
	terms := make([]string, 0, len(v.PosCaps)+len(v.NegCaps))
	terms = append(terms, v.PosCaps...)

	for _, c := range v.NegCaps {
		terms = append(terms, "!"+c)
	}

	if len(terms) == 0 {
		return "true"
	}

	return strings.Join(terms, " && ")
}

// GenerateVariants enumerates every subset of the capabilities referenced by
// fields. Subset i contains capability j iff bit j of i is set, with
// capabilities in sorted order; variants are numbered from FirstVariantNo in
// that order.
func GenerateVariants(packet string, fields []*Field) ([]*Variant, error) {
	var all []string
	for _, f := range fields {
		all = append(all, f.Capabilities()...)
	}
	caps := sortedSet(all)

	variants := make([]*Variant, 0, 1<<uint(len(caps)))

	for i := 0; i < 1<<uint(len(caps)); i++ {
		present := make(map[string]bool, len(caps))
		v := &Variant{No: FirstVariantNo + i}

		for j, c := range caps {
			if i&(1<<uint(j)) != 0 {
				present[c] = true
				v.PosCaps = append(v.PosCaps, c)
			} else {
				v.NegCaps = append(v.NegCaps, c)
			}
		}

		v.Name = fmt.Sprintf("%s_%d", strings.ToLower(packet), v.No)

		for _, f := range fields {
			if !f.Present(present) {
				continue
			}

			if _, dup := v.Field(f.Name); dup {
				return nil, packetErr(packet, f.Name, fmt.Errorf("variant %d (%s): %w", v.No, v.Condition(), ErrDuplicateField))
			}

			v.Fields = append(v.Fields, f)
		}

		if len(fields) > 0 && len(v.Fields) == 0 {
			return nil, packetErr(packet, "", fmt.Errorf("variant %d (%s): %w", v.No, v.Condition(), ErrEmptyVariant))
		}

		variants = append(variants, v)
	}

	return variants, nil
}
