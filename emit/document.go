package emit

import (
	"github.com/luma/pktgen/delta"
	"github.com/luma/pktgen/internal/meta"
	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/types"
)

// Generator names the program in emitted documents.
const Generator = "pktgen"

// Document is the structured form of a definition.
type Document struct {
	Generator  string            `json:"generator" yaml:"generator"`
	Version    string            `json:"version,omitempty" yaml:"version,omitempty"`
	Sources    []string          `json:"sources" yaml:"sources"`
	Capability string            `json:"functional_capability" yaml:"functional_capability"`
	LogMacro   string            `json:"log_macro,omitempty" yaml:"log_macro,omitempty"`
	GenStats   bool              `json:"gen_stats" yaml:"gen_stats"`
	FoldBool   bool              `json:"fold_bool" yaml:"fold_bool"`
	Aliases    map[string]string `json:"aliases" yaml:"aliases"`
	Packets    []PacketDoc       `json:"packets" yaml:"packets"`
	Server     SideDoc           `json:"server" yaml:"server"`
	Client     SideDoc           `json:"client" yaml:"client"`

	// Table has one entry per packet number up to the highest one.
	Table []SlotDoc `json:"table" yaml:"-"`
}

// SideDoc lists the packets one end of a connection sends and handles.
type SideDoc struct {
	Sends    []string `json:"sends" yaml:"sends"`
	Receives []string `json:"receives" yaml:"receives"`
}

type SlotDoc struct {
	ID          uint16 `json:"id"`
	Name        string `json:"name"`
	HasGameInfo bool   `json:"has_game_info"`
}

type PacketDoc struct {
	ID            uint16       `json:"id" yaml:"id"`
	Type          string       `json:"type" yaml:"type"`
	Name          string       `json:"name" yaml:"name"`
	Flags         []string     `json:"flags" yaml:"flags,flow"`
	Delta         bool         `json:"delta" yaml:"delta"`
	Resets        []string     `json:"resets,omitempty" yaml:"resets,omitempty"`
	FixedHandlers bool         `json:"fixed_handlers" yaml:"fixed_handlers"`
	Struct        []string     `json:"struct,omitempty" yaml:"struct,omitempty"`
	SendParams    []string     `json:"send_params,omitempty" yaml:"send_params,omitempty"`
	HandlerParams []string     `json:"handler_params,omitempty" yaml:"handler_params,omitempty"`
	Fields        []FieldDoc   `json:"fields,omitempty" yaml:"fields,omitempty"`
	Variants      []VariantDoc `json:"variants" yaml:"variants"`
}

type FieldDoc struct {
	Name       string   `json:"name" yaml:"name"`
	Type       string   `json:"type" yaml:"type"`
	Kind       string   `json:"kind" yaml:"kind"`
	Decl       string   `json:"decl" yaml:"decl"`
	Key        bool     `json:"key,omitempty" yaml:"key,omitempty"`
	Diff       bool     `json:"diff,omitempty" yaml:"diff,omitempty"`
	Complex    bool     `json:"complex,omitempty" yaml:"complex,omitempty"`
	AddCaps    []string `json:"add_cap,omitempty" yaml:"add_cap,omitempty,flow"`
	RemoveCaps []string `json:"remove_cap,omitempty" yaml:"remove_cap,omitempty,flow"`
}

type VariantDoc struct {
	No          int      `json:"no" yaml:"no"`
	Name        string   `json:"name" yaml:"name"`
	Condition   string   `json:"condition" yaml:"condition"`
	Keys        []string `json:"keys,omitempty" yaml:"keys,omitempty,flow"`
	Bits        int      `json:"bits" yaml:"bits"`
	Discardable bool     `json:"discardable" yaml:"discardable"`
	Forcible    bool     `json:"forcible" yaml:"forcible"`
	DeepCopy    bool     `json:"deep_copy" yaml:"deep_copy"`
	Slots       []BitDoc `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// BitDoc describes one bit of the presence bitvector.
type BitDoc struct {
	Bit        int    `json:"bit" yaml:"bit"`
	Field      string `json:"field" yaml:"field"`
	Folded     bool   `json:"folded,omitempty" yaml:"folded,omitempty"`
	Diff       bool   `json:"diff,omitempty" yaml:"diff,omitempty"`
	IndexWidth int    `json:"index_width,omitempty" yaml:"index_width,omitempty"`
}

// NewDocument builds the document of def. sources names the schema files it
// was read from.
func NewDocument(def *model.Definition, sources []string) (*Document, error) {
	cfg := def.Config()

	doc := &Document{
		Generator:  Generator,
		Version:    meta.Version,
		Sources:    append([]string{}, sources...),
		Capability: def.FunctionalCapability(),
		LogMacro:   cfg.LogMacro,
		GenStats:   cfg.GenStats,
		FoldBool:   cfg.FoldBool,
		Aliases:    def.Aliases(),
		Server:     sideDoc(def, model.Server),
		Client:     sideDoc(def, model.Client),
	}

	for _, p := range def.Packets() {
		pd, err := packetDoc(cfg, def, p)
		if err != nil {
			return nil, err
		}

		doc.Packets = append(doc.Packets, pd)
	}

	for _, s := range def.Slots() {
		slot := SlotDoc{ID: s.ID, Name: "unknown"}
		if s.Packet != nil {
			slot.Name = s.Packet.Type
			slot.HasGameInfo = s.Packet.Info == model.InfoGame
		}

		doc.Table = append(doc.Table, slot)
	}

	return doc, nil
}

func sideDoc(def *model.Definition, side model.Side) SideDoc {
	out := SideDoc{Sends: []string{}, Receives: []string{}}

	for _, p := range def.SentBy(side) {
		out.Sends = append(out.Sends, p.Type)
	}

	for _, p := range def.ReceivedBy(side) {
		out.Receives = append(out.Receives, p.Type)
	}

	return out
}

func packetDoc(cfg model.Config, def *model.Definition, p *model.Packet) (PacketDoc, error) {
	pd := PacketDoc{
		ID:            p.ID,
		Type:          p.Type,
		Name:          p.Name,
		Flags:         packetFlags(p),
		Delta:         p.Delta,
		Resets:        p.Resets,
		FixedHandlers: p.FixedHandlers(),
		SendParams:    decls(p.SendParams()),
		HandlerParams: decls(p.HandlerParams()),
	}

	for _, f := range p.StructFields() {
		pd.Struct = append(pd.Struct, f.Type.Declare(f.Name).String())
	}

	for _, f := range p.Fields {
		pd.Fields = append(pd.Fields, FieldDoc{
			Name:       f.Name,
			Type:       f.Type.String(),
			Kind:       f.Type.Kind().String(),
			Decl:       f.Type.Declare(f.Name).String(),
			Key:        f.IsKey(),
			Diff:       f.DiffArray(),
			Complex:    f.Type.Complex(),
			AddCaps:    f.Flags.AddCaps,
			RemoveCaps: f.Flags.RemoveCaps,
		})
	}

	for _, v := range p.Variants {
		plan, err := delta.NewPlan(cfg, def, p, v)
		if err != nil {
			return PacketDoc{}, err
		}

		vd := VariantDoc{
			No:          v.No,
			Name:        v.Name,
			Condition:   v.Condition(),
			Bits:        plan.Bits(),
			Discardable: plan.Discardable,
			Forcible:    plan.Forcible,
			DeepCopy:    plan.DeepCopy,
		}

		for _, f := range plan.Keys {
			vd.Keys = append(vd.Keys, f.Name)
		}

		for _, s := range plan.Slots {
			vd.Slots = append(vd.Slots, BitDoc{
				Bit:        s.Bit,
				Field:      s.Field.Name,
				Folded:     s.Folded,
				Diff:       s.Diff,
				IndexWidth: s.IndexWidth,
			})
		}

		pd.Variants = append(pd.Variants, vd)
	}

	return pd, nil
}

func decls(in []types.Decl) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		out = append(out, d.String())
	}

	return out
}

// packetFlags renders the header flags of p the way they are written in a
// schema.
func packetFlags(p *model.Packet) []string {
	var out []string

	add := func(set bool, flag string) {
		if set {
			out = append(out, flag)
		}
	}

	add(p.ToServer, "cs")
	add(p.ToClient, "sc")
	add(p.Info != model.InfoNone, p.Info.String())
	add(p.NoDelta, "no-delta")
	add(p.PreSend, "pre-send")
	add(p.PostSend, "post-send")
	add(p.PostRecv, "post-recv")
	add(p.DSend, "dsend")
	add(p.LSend, "lsend")
	add(p.Force, "force")
	add(p.NoHandle, "no-handle")
	add(p.HandleViaFields, "handle-via-fields")
	add(p.HandlePerConn, "handle-per-conn")

	for _, name := range p.Resets {
		out = append(out, "reset("+name+")")
	}

	if out == nil {
		out = []string{}
	}

	return out
}
