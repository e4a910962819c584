package delta

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"

	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/protocol"
	"github.com/luma/pktgen/storage"
)

// Mode selects the body encoding of a connection.
type Mode int

const (
	Binary Mode = iota
	JSON
)

func (m Mode) String() string {
	if m == JSON {
		return "json"
	}

	return "binary"
}

type SessionOptions struct {
	// Side is the end of the connection the session runs on.
	Side model.Side

	// Capabilities is the negotiated capability string.
	Capabilities string

	Mode Mode

	// Sent and Received default to fresh in memory stores.
	Sent     storage.Store
	Received storage.Store

	Logger *zap.Logger
}

// Session is the delta protocol state of one connection.
type Session struct {
	def   *model.Definition
	cfg   model.Config
	side  model.Side
	mode  Mode
	plans map[uint16]*Plan

	sent     storage.Store
	received storage.Store

	stats *Stats
	log   *zap.Logger
}

func NewSession(def *model.Definition, opts SessionOptions) (*Session, error) {
	plans, err := Plans(def, opts.Capabilities)
	if err != nil {
		return nil, err
	}

	s := &Session{
		def:      def,
		cfg:      def.Config(),
		side:     opts.Side,
		mode:     opts.Mode,
		plans:    plans,
		sent:     opts.Sent,
		received: opts.Received,
		log:      opts.Logger,
	}

	if s.sent == nil {
		s.sent = storage.NewInmemoryStore()
	}

	if s.received == nil {
		s.received = storage.NewInmemoryStore()
	}

	if s.log == nil {
		s.log = zap.NewNop()
	}

	if s.cfg.LogMacro != "" {
		s.log = s.log.Named(s.cfg.LogMacro)
	}

	if s.cfg.GenStats {
		s.stats = NewStats()
	}

	return s, nil
}

// Plan returns the plan used for a packet type on this connection.
func (s *Session) Plan(packet uint16) (*Plan, bool) {
	plan, ok := s.plans[packet]
	return plan, ok
}

// Stats returns the delta statistics, or nil when they are disabled.
func (s *Session) Stats() *Stats {
	return s.stats
}

// Sent returns the cache of sent packets.
func (s *Session) Sent() storage.Store {
	return s.sent
}

// Received returns the cache of received packets.
func (s *Session) Received() storage.Store {
	return s.received
}

// Close releases both caches.
func (s *Session) Close() error {
	err := s.sent.Close()
	if rerr := s.received.Close(); err == nil {
		err = rerr
	}

	return err
}

func (s *Session) plan(packet uint16, sending bool) (*Plan, error) {
	plan, ok := s.plans[packet]
	if !ok {
		return nil, fmt.Errorf("%d: %w", packet, ErrUnknownPacket)
	}

	if sending && !plan.Packet.SendsOn(s.side) || !sending && !plan.Packet.ReceivesOn(s.side) {
		return nil, fmt.Errorf("%s on %s: %w", plan.Packet.Type, s.side, ErrWrongDirection)
	}

	return plan, nil
}

type bodyWriter interface {
	protocol.Writer
	bytes() []byte
}

type binaryBody struct {
	*protocol.DataOut
	buf *bytes.Buffer
}

func (b *binaryBody) bytes() []byte { return append([]byte{}, b.buf.Bytes()...) }

type jsonBody struct {
	*protocol.JSONOut
}

func (j *jsonBody) bytes() []byte { return j.Bytes() }

func (s *Session) newWriter() bodyWriter {
	if s.mode == JSON {
		return &jsonBody{protocol.NewJSONOut()}
	}

	buf := bytes.NewBuffer(nil)
	return &binaryBody{DataOut: protocol.NewDataOut(buf), buf: buf}
}

// Encode returns the body of a packet. A nil body with a nil error means the
// send was discarded because nothing changed.
func (s *Session) Encode(ctx context.Context, packet uint16, values protocol.Values, force bool) ([]byte, error) {
	plan, err := s.plan(packet, true)
	if err != nil {
		return nil, err
	}

	w := s.newWriter()

	if !plan.Delta {
		for _, f := range plan.Variant.Fields {
			v, ok := values[f.Name]
			if !ok {
				return nil, fmt.Errorf("%s.%s: %w", plan.Packet.Type, f.Name, ErrMissingField)
			}

			if err := f.Type.Put(w, protocol.FieldAddr(f.Name), v, nil, values); err != nil {
				return nil, fmt.Errorf("Failed to put %s.%s: %w", plan.Packet.Type, f.Name, err)
			}
		}

		s.stats.record(plan, nil, false)
		s.applyResets(ctx, plan, s.sent)
		s.logPacket("Sent packet", plan, values)

		return w.bytes(), nil
	}

	hash, err := plan.Hash(values)
	if err != nil {
		return nil, err
	}

	match := plan.SameKey(values)
	base, hit := s.sent.Lookup(ctx, packet, hash, match)
	if !hit {
		base = plan.Init()
	}

	bv := bitset.New(uint(plan.Bits()))
	var changed []string

	for _, slot := range plan.Slots {
		name := slot.Field.Name

		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%s.%s: %w", plan.Packet.Type, name, ErrMissingField)
		}

		differs := !hit || slot.Field.Type.Differ(base[name], v)
		if differs {
			changed = append(changed, name)
		}

		if slot.Folded {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%s.%s: %T: %w", plan.Packet.Type, name, v, protocol.ErrTypeMismatch)
			}

			bv.SetTo(uint(slot.Bit), b)
			continue
		}

		bv.SetTo(uint(slot.Bit), differs)
	}

	// A new key is always sent, even when it has no other fields.
	if plan.Discardable && hit && len(changed) == 0 && !force {
		s.stats.record(plan, nil, true)
		s.log.Debug("Discarded unchanged packet", zap.String("packet", plan.Packet.Type))

		return nil, nil
	}

	if err := w.PutBitvector(fieldsAddr, uint(plan.Bits()), bv); err != nil {
		return nil, err
	}

	for _, f := range plan.Keys {
		if err := f.Type.Put(w, protocol.FieldAddr(f.Name), values[f.Name], nil, values); err != nil {
			return nil, fmt.Errorf("Failed to put %s.%s: %w", plan.Packet.Type, f.Name, err)
		}
	}

	for _, slot := range plan.Slots {
		if slot.Folded || !bv.Test(uint(slot.Bit)) {
			continue
		}

		name := slot.Field.Name

		var old interface{}
		if slot.Diff {
			old = base[name]
		}

		if err := slot.Field.Type.Put(w, protocol.FieldAddr(name), values[name], old, values); err != nil {
			return nil, fmt.Errorf("Failed to put %s.%s: %w", plan.Packet.Type, name, err)
		}
	}

	if err := s.sent.Replace(ctx, packet, hash, match, plan.Copy(values)); err != nil {
		return nil, err
	}

	s.stats.record(plan, changed, false)
	s.applyResets(ctx, plan, s.sent)
	s.logPacket("Sent packet", plan, values)

	return w.bytes(), nil
}

// Send encodes a packet and writes it as one frame. It returns the number of
// bytes written, which is 0 for a discarded send.
func (s *Session) Send(ctx context.Context, w io.Writer, packet uint16, values protocol.Values, force bool) (int, error) {
	body, err := s.Encode(ctx, packet, values, force)
	if err != nil || body == nil {
		return 0, err
	}

	if err := protocol.WriteFrame(w, protocol.Frame{Type: packet, Body: body}); err != nil {
		return 0, err
	}

	return protocol.FrameHeaderLen + len(body), nil
}

func (s *Session) newReader(body []byte) (protocol.Reader, func() int) {
	if s.mode == JSON {
		return protocol.NewJSONIn(body), func() int { return 0 }
	}

	in := protocol.NewDataIn(body)

	return in, in.Remaining
}

// Decode parses the body of a received packet and updates the receive
// cache.
func (s *Session) Decode(ctx context.Context, packet uint16, body []byte) (protocol.Values, error) {
	plan, err := s.plan(packet, false)
	if err != nil {
		return nil, err
	}

	r, remaining := s.newReader(body)
	out := make(protocol.Values, len(plan.Variant.Fields))

	if !plan.Delta {
		for _, f := range plan.Variant.Fields {
			if out[f.Name], err = f.Type.Get(r, protocol.FieldAddr(f.Name), nil, out); err != nil {
				return nil, fmt.Errorf("Failed to get %s.%s: %w", plan.Packet.Type, f.Name, err)
			}
		}

		if err := checkTrailing(plan, remaining()); err != nil {
			return nil, err
		}

		s.applyResets(ctx, plan, s.received)
		s.logPacket("Received packet", plan, out)

		return out, nil
	}

	bv, err := r.GetBitvector(fieldsAddr, uint(plan.Bits()))
	if err != nil {
		return nil, fmt.Errorf("Failed to get %s fields: %w", plan.Packet.Type, err)
	}

	for _, f := range plan.Keys {
		if out[f.Name], err = f.Type.Get(r, protocol.FieldAddr(f.Name), nil, out); err != nil {
			return nil, fmt.Errorf("Failed to get %s.%s: %w", plan.Packet.Type, f.Name, err)
		}
	}

	hash, err := plan.Hash(out)
	if err != nil {
		return nil, err
	}

	match := plan.SameKey(out)
	base, hit := s.received.Lookup(ctx, packet, hash, match)
	if !hit {
		base = plan.Init()
	}

	for _, slot := range plan.Slots {
		name := slot.Field.Name

		switch {
		case slot.Folded:
			out[name] = bv.Test(uint(slot.Bit))

		case bv.Test(uint(slot.Bit)):
			var prev interface{}
			if slot.Diff {
				prev = base[name]
			}

			if out[name], err = slot.Field.Type.Get(r, protocol.FieldAddr(name), prev, out); err != nil {
				return nil, fmt.Errorf("Failed to get %s.%s: %w", plan.Packet.Type, name, err)
			}

		default:
			out[name] = slot.Field.Type.Copy(base[name])
		}
	}

	if err := checkTrailing(plan, remaining()); err != nil {
		return nil, err
	}

	if err := s.received.Replace(ctx, packet, hash, match, plan.Copy(out)); err != nil {
		return nil, err
	}

	s.applyResets(ctx, plan, s.received)
	s.logPacket("Received packet", plan, out)

	return out, nil
}

// Receive reads one frame and decodes it.
func (s *Session) Receive(ctx context.Context, r io.Reader) (uint16, protocol.Values, error) {
	frame, err := protocol.ReadFrame(r)
	if err != nil {
		return 0, nil, err
	}

	values, err := s.Decode(ctx, frame.Type, frame.Body)
	if err != nil {
		return frame.Type, nil, err
	}

	return frame.Type, values, nil
}

func checkTrailing(plan *Plan, remaining int) error {
	if remaining > 0 {
		return fmt.Errorf("%s: %d bytes: %w", plan.Packet.Type, remaining, ErrTrailingData)
	}

	return nil
}

func (s *Session) applyResets(ctx context.Context, plan *Plan, store storage.Store) {
	for _, target := range plan.Resets {
		dropped := store.Reset(ctx, target.ID)
		s.log.Debug("Reset delta cache",
			zap.String("packet", plan.Packet.Type),
			zap.String("target", target.Type),
			zap.Int("dropped", dropped))
	}
}

func (s *Session) logPacket(msg string, plan *Plan, values protocol.Values) {
	if s.cfg.LogMacro == "" {
		return
	}

	s.log.Debug(msg,
		zap.String("packet", plan.Packet.Type),
		zap.Int("variant", plan.Variant.No),
		zap.Any("values", values))
}
