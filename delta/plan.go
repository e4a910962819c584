package delta

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/protocol"
	"github.com/luma/pktgen/storage"
	"github.com/luma/pktgen/types"
)

// fieldsAddr is where the presence bitvector lives in a delta body.
var fieldsAddr = protocol.FieldAddr("fields")

// Slot is one bit of the presence bitvector.
type Slot struct {
	Bit   int
	Field *model.Field

	// Folded booleans carry their value in the bit.
	Folded bool

	// Diff arrays send (index, value) pairs. IndexWidth is 0 for vectors,
	// whose width follows the length of each value.
	Diff       bool
	IndexWidth int
}

// Plan is the transmission logic of one packet variant.
type Plan struct {
	Packet  *model.Packet
	Variant *model.Variant

	// Delta is false for packets sending every field every time.
	Delta bool

	Keys  []*model.Field
	Slots []Slot

	// Discardable packets drop sends where nothing changed.
	Discardable bool

	// Forcible packets let callers override the discard rule.
	Forcible bool

	// DeepCopy is set when a field needs a type aware copy.
	DeepCopy bool

	// Resets are the packets whose caches are cleared after this one.
	Resets []*model.Packet
}

// NewPlan derives the plan of variant v of packet p.
func NewPlan(cfg model.Config, def *model.Definition, p *model.Packet, v *model.Variant) (*Plan, error) {
	plan := &Plan{
		Packet:      p,
		Variant:     v,
		Delta:       p.Delta,
		Keys:        v.KeyFields(),
		Discardable: p.IsInfo(),
		Forcible:    p.Force,
		DeepCopy:    v.Complex(),
	}

	for i, f := range v.OtherFields() {
		slot := Slot{
			Bit:    i,
			Field:  f,
			Folded: f.Folded(cfg),
			Diff:   f.DiffArray(),
		}

		if arr, ok := f.Type.(*types.ArrayType); ok && slot.Diff {
			slot.IndexWidth = types.IndexWidth(arr.Size.Max)
		}

		plan.Slots = append(plan.Slots, slot)
	}

	for _, name := range p.Resets {
		target, ok := def.ByName(name)
		if !ok {
			return nil, &model.PacketError{Packet: p.Type, Err: fmt.Errorf("%s: %w", name, model.ErrUnknownReset)}
		}

		plan.Resets = append(plan.Resets, target)
	}

	return plan, nil
}

// Bits is the width of the presence bitvector.
func (p *Plan) Bits() int {
	return len(p.Slots)
}

// Hash returns the key hash of values. Packets without keys hash to the
// same value, so they keep a single cache entry.
func (p *Plan) Hash(values protocol.Values) (uint64, error) {
	h := xxhash.New()

	for _, f := range p.Keys {
		v, ok := values[f.Name]
		if !ok {
			return 0, fmt.Errorf("%s.%s: %w", p.Packet.Type, f.Name, ErrMissingField)
		}

		if err := f.Type.Hash(h, v, values); err != nil {
			return 0, fmt.Errorf("Failed to hash %s.%s: %w", p.Packet.Type, f.Name, err)
		}
	}

	return h.Sum64(), nil
}

// SameKey matches cache entries whose key fields equal those of values.
func (p *Plan) SameKey(values protocol.Values) storage.Match {
	return func(cached protocol.Values) bool {
		for _, f := range p.Keys {
			if f.Type.Differ(cached[f.Name], values[f.Name]) {
				return false
			}
		}

		return true
	}
}

// Init returns zero values for every field of the variant. It is the
// baseline a packet is compared against when nothing is cached.
func (p *Plan) Init() protocol.Values {
	out := make(protocol.Values, len(p.Variant.Fields))
	for _, f := range p.Variant.Fields {
		out[f.Name] = f.Type.Init()
	}

	return out
}

// Copy returns a deep copy of the variant's fields of values.
func (p *Plan) Copy(values protocol.Values) protocol.Values {
	out := make(protocol.Values, len(p.Variant.Fields))
	for _, f := range p.Variant.Fields {
		if v, ok := values[f.Name]; ok {
			out[f.Name] = f.Type.Copy(v)
		}
	}

	return out
}

// Plans selects the variant of every packet matching the negotiated
// capabilities and derives its plan.
func Plans(def *model.Definition, capabilities string) (map[uint16]*Plan, error) {
	plans := make(map[uint16]*Plan, def.Len())

	for _, p := range def.Packets() {
		v, ok := p.Variant(capabilities)
		if !ok {
			return nil, &model.PacketError{Packet: p.Type, Err: ErrNoVariant}
		}

		plan, err := NewPlan(def.Config(), def, p, v)
		if err != nil {
			return nil, err
		}

		plans[p.ID] = plan
	}

	return plans, nil
}
