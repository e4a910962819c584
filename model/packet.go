package model

import (
	"fmt"
	"strings"

	"github.com/luma/pktgen/types"
)

// Info marks packets whose repeated unchanged sends are discarded.
type Info int

const (
	InfoNone Info = iota
	InfoIs
	InfoGame
)

func (i Info) String() string {
	switch i {
	case InfoIs:
		return "is-info"
	case InfoGame:
		return "is-game-info"
	default:
		return ""
	}
}

func (i Info) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Side is one end of a connection.
type Side int

const (
	Server Side = iota
	Client
)

func (s Side) String() string {
	if s == Client {
		return "client"
	}

	return "server"
}

// PacketFlags are the header flags of a packet.
type PacketFlags struct {
	// ToClient is `sc`, ToServer is `cs`.
	ToClient bool
	ToServer bool

	Info Info

	// NoDelta disables the delta protocol for the packet.
	NoDelta bool

	PreSend  bool
	PostSend bool
	PostRecv bool

	DSend bool
	LSend bool
	Force bool

	NoHandle        bool
	HandleViaFields bool
	HandlePerConn   bool

	// Resets lists the packet types whose delta caches this packet clears.
	Resets []string
}

// Packet is one message type of the protocol.
type Packet struct {
	PacketFlags

	// Type is the schema name, e.g. PACKET_CITY_INFO.
	Type string

	// Name is the lower case name, e.g. packet_city_info.
	Name string

	ID uint16

	// Delta is false for no-delta packets and packets without fields.
	Delta bool

	// Fields are ordered keys first, then in declaration order.
	Fields []*Field

	Variants []*Variant
}

// NewPacket validates a parsed packet and derives its variants.
func NewPacket(typeName string, number int, flags PacketFlags, fields []*Field) (*Packet, error) {
	if number < 0 || number > 65535 {
		return nil, packetErr(typeName, "", fmt.Errorf("%d: %w", number, ErrPacketNumber))
	}

	if !flags.ToClient && !flags.ToServer {
		return nil, packetErr(typeName, "", ErrNoDirection)
	}

	if len(fields) == 0 && flags.DSend {
		return nil, packetErr(typeName, "", ErrDsendWithoutFields)
	}

	p := &Packet{
		PacketFlags: flags,
		Type:        typeName,
		Name:        strings.ToLower(typeName),
		ID:          uint16(number),
		Delta:       !flags.NoDelta && len(fields) > 0,
	}
	p.Resets = append([]string{}, flags.Resets...)

	for _, f := range fields {
		if f.IsKey() {
			p.Fields = append(p.Fields, f)
		}
	}
	for _, f := range fields {
		if !f.IsKey() {
			p.Fields = append(p.Fields, f)
		}
	}

	if err := p.checkSameNamed(); err != nil {
		return nil, err
	}

	variants, err := GenerateVariants(typeName, p.Fields)
	if err != nil {
		return nil, err
	}
	p.Variants = variants

	if err := p.checkSizeFields(fields); err != nil {
		return nil, err
	}

	return p, nil
}

// checkSameNamed requires fields sharing a name to be interchangeable.
func (p *Packet) checkSameNamed() error {
	first := map[string]*Field{}

	for _, f := range p.Fields {
		prev, ok := first[f.Name]
		if !ok {
			first[f.Name] = f
			continue
		}

		if !types.Compatible(prev.Type, f.Type) || prev.IsKey() != f.IsKey() {
			return packetErr(p.Type, f.Name, fmt.Errorf("%s vs %s: %w", prev.Type, f.Type, ErrIncompatibleField))
		}
	}

	return nil
}

// checkSizeFields requires every actual length field to be an integer field
// declared before the array and present wherever the array is.
func (p *Packet) checkSizeFields(declared []*Field) error {
	for i, f := range declared {
		for _, name := range types.SizeFields(f.Type) {
			ok := false
			for _, g := range declared[:i] {
				if g.Name == name && g.Type.Kind() == types.KindInt {
					ok = true
					break
				}
			}

			if !ok {
				return packetErr(p.Type, f.Name, fmt.Errorf("%s: %w", name, ErrSizeField))
			}

			for _, v := range p.Variants {
				if _, has := v.Field(f.Name); !has {
					continue
				}

				if _, has := v.Field(name); !has {
					return packetErr(p.Type, f.Name, fmt.Errorf("%s missing in variant %d: %w", name, v.No, ErrSizeField))
				}
			}
		}
	}

	return nil
}

// NoPacket reports a signal packet: one without fields and without a
// struct.
func (p *Packet) NoPacket() bool {
	return len(p.Fields) == 0
}

// HasStruct reports whether the packet needs a struct argument.
func (p *Packet) HasStruct() bool {
	return !p.NoPacket()
}

// IsInfo reports whether unchanged resends are discarded.
func (p *Packet) IsInfo() bool {
	return p.Info != InfoNone
}

// KeyFields returns the key fields of the packet.
func (p *Packet) KeyFields() []*Field {
	var out []*Field
	for _, f := range p.Fields {
		if f.IsKey() {
			out = append(out, f)
		}
	}

	return out
}

// StructFields returns one field per distinct name, keys first. Same named
// fields of different variants share one struct member.
func (p *Packet) StructFields() []*Field {
	seen := map[string]bool{}
	out := make([]*Field, 0, len(p.Fields))

	for _, f := range p.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f)
		}
	}

	return out
}

// Capabilities returns the sorted capabilities referenced by the packet.
func (p *Packet) Capabilities() []string {
	var all []string
	for _, f := range p.Fields {
		all = append(all, f.Capabilities()...)
	}

	return sortedSet(all)
}

// SendsOn reports whether side sends this packet.
func (p *Packet) SendsOn(side Side) bool {
	if side == Server {
		return p.ToClient
	}

	return p.ToServer
}

// ReceivesOn reports whether side receives and handles this packet.
func (p *Packet) ReceivesOn(side Side) bool {
	return p.SendsOn(otherSide(side))
}

func otherSide(s Side) Side {
	if s == Server {
		return Client
	}

	return Server
}

// FixedHandlers reports whether the packet has a single variant, so its
// send and receive functions are known before capabilities are negotiated.
func (p *Packet) FixedHandlers() bool {
	return len(p.Variants) <= 1
}

// Variant returns the variant selected by a negotiated capability string.
func (p *Packet) Variant(capabilities string) (*Variant, bool) {
	for _, v := range p.Variants {
		if v.Matches(capabilities) {
			return v, true
		}
	}

	return nil, false
}

// VariantByNo returns the variant with the given number.
func (p *Packet) VariantByNo(no int) (*Variant, bool) {
	i := no - FirstVariantNo
	if i < 0 || i >= len(p.Variants) {
		return nil, false
	}

	return p.Variants[i], true
}

// StructDecl is the declaration of the packet struct parameter.
func (p *Packet) StructDecl() types.Decl {
	return types.Decl{Type: "struct " + p.Name, Name: "packet", Ref: true}
}

// SendParams are the parameters of a direct send function.
func (p *Packet) SendParams() []types.Decl {
	fields := p.StructFields()
	out := make([]types.Decl, 0, len(fields))

	for _, f := range fields {
		out = append(out, f.Type.Param(f.Name))
	}

	return out
}

// HandlerParams are the parameters the receive handler is called with:
// either the unpacked fields or the packet struct.
func (p *Packet) HandlerParams() []types.Decl {
	if p.NoPacket() {
		return nil
	}

	if p.HandleViaFields {
		return p.SendParams()
	}

	return []types.Decl{p.StructDecl()}
}
