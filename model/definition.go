package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luma/pktgen/types"
)

// Definition aggregates every packet and type alias of a schema.
type Definition struct {
	cfg      Config
	registry *types.Registry

	byName map[string]*Packet
	byID   map[uint16]*Packet
	sorted []*Packet

	finalized bool
}

func NewDefinition(cfg Config, registry *types.Registry) *Definition {
	return &Definition{
		cfg:      cfg,
		registry: registry,
		byName:   map[string]*Packet{},
		byID:     map[uint16]*Packet{},
	}
}

// Config returns the configuration the definition was built with.
func (d *Definition) Config() Config {
	return d.cfg
}

// Registry returns the type registry holding the aliases of the schema.
func (d *Definition) Registry() *types.Registry {
	return d.registry
}

// Aliases returns the type aliases of the schema.
func (d *Definition) Aliases() map[string]string {
	return d.registry.Aliases()
}

// Add inserts a packet. Names and numbers must be unique.
func (d *Definition) Add(p *Packet) error {
	if d.finalized {
		return packetErr(p.Type, "", ErrDefinitionFinalized)
	}

	if _, ok := d.byName[nameKey(p.Type)]; ok {
		return packetErr(p.Type, "", ErrDuplicatePacketName)
	}

	if other, ok := d.byID[p.ID]; ok {
		return packetErr(p.Type, "", fmt.Errorf("%d used by %s: %w", p.ID, other.Type, ErrDuplicatePacketNumber))
	}

	d.byName[nameKey(p.Type)] = p
	d.byID[p.ID] = p

	i := sort.Search(len(d.sorted), func(i int) bool { return d.sorted[i].ID > p.ID })
	d.sorted = append(d.sorted, nil)
	copy(d.sorted[i+1:], d.sorted[i:])
	d.sorted[i] = p

	return nil
}

// Finalize checks cross packet references. The definition takes no more
// packets afterwards.
func (d *Definition) Finalize() error {
	for _, p := range d.sorted {
		for _, target := range p.Resets {
			if _, ok := d.ByName(target); !ok {
				return packetErr(p.Type, "", fmt.Errorf("%s: %w", target, ErrUnknownReset))
			}
		}
	}

	d.finalized = true

	return nil
}

// Packets returns all packets ordered by number.
func (d *Definition) Packets() []*Packet {
	return append([]*Packet{}, d.sorted...)
}

// Len returns the number of packets.
func (d *Definition) Len() int {
	return len(d.sorted)
}

// ByName looks a packet up by name. Names are case insensitive, so
// PACKET_FOO, packet_foo and Packet_Foo are the same packet.
func (d *Definition) ByName(name string) (*Packet, bool) {
	p, ok := d.byName[nameKey(name)]
	return p, ok
}

func nameKey(name string) string {
	return strings.ToUpper(name)
}

// ByID looks a packet up by number.
func (d *Definition) ByID(id uint16) (*Packet, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// SentBy returns the packets side sends, ordered by number.
func (d *Definition) SentBy(side Side) []*Packet {
	var out []*Packet
	for _, p := range d.sorted {
		if p.SendsOn(side) {
			out = append(out, p)
		}
	}

	return out
}

// ReceivedBy returns the packets side receives, ordered by number.
func (d *Definition) ReceivedBy(side Side) []*Packet {
	return d.SentBy(otherSide(side))
}

// Slot is one entry of a dense table indexed by packet number. Packet is
// nil for unused numbers.
type Slot struct {
	ID     uint16
	Packet *Packet
}

// Slots returns one slot per number from 0 to the highest packet number.
func (d *Definition) Slots() []Slot {
	if len(d.sorted) == 0 {
		return nil
	}

	last := d.sorted[len(d.sorted)-1].ID
	out := make([]Slot, int(last)+1)

	for i := range out {
		out[i].ID = uint16(i)
		out[i].Packet = d.byID[uint16(i)]
	}

	return out
}

// Gaps returns the unused numbers below the highest packet number.
func (d *Definition) Gaps() []uint16 {
	var out []uint16
	for _, s := range d.Slots() {
		if s.Packet == nil {
			out = append(out, s.ID)
		}
	}

	return out
}

// FunctionalCapability is the sorted, space separated union of all
// capabilities used by any packet.
func (d *Definition) FunctionalCapability() string {
	var all []string
	for _, p := range d.sorted {
		all = append(all, p.Capabilities()...)
	}

	return strings.Join(sortedSet(all), " ")
}
