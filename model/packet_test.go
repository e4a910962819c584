package model_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/model"
)

var _ = Describe("Packet", func() {
	sc := model.PacketFlags{ToClient: true}

	It("puts key fields first", func() {
		p, err := model.NewPacket("PACKET_X", 1, sc, []*model.Field{
			intField("a", nil, nil),
			field("id", "uint16(int)", nil, true, nil, nil),
		})
		Expect(err).To(Succeed())
		Expect(p.Fields[0].Name).To(Equal("id"))
		Expect(p.Name).To(Equal("packet_x"))
		Expect(p.Delta).To(BeTrue())
	})

	Describe("a packet without fields", func() {
		It("is a signal packet with delta disabled", func() {
			p, err := model.NewPacket("PACKET_PING", 88, model.PacketFlags{ToServer: true}, nil)
			Expect(err).To(Succeed())
			Expect(p.NoPacket()).To(BeTrue())
			Expect(p.HasStruct()).To(BeFalse())
			Expect(p.Delta).To(BeFalse())
			Expect(p.Variants).To(HaveLen(1))
			Expect(p.HandlerParams()).To(BeEmpty())
		})

		It("rejects dsend", func() {
			_, err := model.NewPacket("PACKET_PING", 88, model.PacketFlags{ToServer: true, DSend: true}, nil)
			Expect(errors.Is(err, model.ErrDsendWithoutFields)).To(BeTrue())
		})
	})

	It("requires a direction", func() {
		_, err := model.NewPacket("PACKET_X", 1, model.PacketFlags{}, nil)
		Expect(errors.Is(err, model.ErrNoDirection)).To(BeTrue())
	})

	It("requires a 16 bit number", func() {
		_, err := model.NewPacket("PACKET_X", 65536, sc, nil)
		Expect(errors.Is(err, model.ErrPacketNumber)).To(BeTrue())
	})

	It("keeps no-delta packets out of the delta protocol", func() {
		p, err := model.NewPacket("PACKET_X", 1, model.PacketFlags{ToClient: true, NoDelta: true}, []*model.Field{intField("a", nil, nil)})
		Expect(err).To(Succeed())
		Expect(p.Delta).To(BeFalse())
	})

	Describe("same named fields", func() {
		It("accepts compatible types in exclusive variants", func() {
			p, err := model.NewPacket("PACKET_X", 1, sc, []*model.Field{
				intField("k", nil, nil),
				field("foo", "uint8(int)", nil, false, []string{"X"}, nil),
				field("foo", "sint32(int)", nil, false, nil, []string{"X"}),
			})
			Expect(err).To(Succeed())
			Expect(p.Variants).To(HaveLen(2))
			Expect(p.StructFields()).To(HaveLen(2))
		})

		It("rejects incompatible types and names packet and field", func() {
			_, err := model.NewPacket("PACKET_X", 1, sc, []*model.Field{
				intField("k", nil, nil),
				field("foo", "uint8(int)", nil, false, []string{"X"}, nil),
				field("foo", "string(char)", []string{"10"}, false, nil, []string{"X"}),
			})
			Expect(errors.Is(err, model.ErrIncompatibleField)).To(BeTrue())

			var perr *model.PacketError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Packet).To(Equal("PACKET_X"))
			Expect(perr.Field).To(Equal("foo"))
			Expect(err.Error()).To(ContainSubstring("PACKET_X.foo"))
		})
	})

	Describe("array size fields", func() {
		It("accepts an earlier integer field", func() {
			_, err := model.NewPacket("PACKET_X", 1, sc, []*model.Field{
				intField("n", nil, nil),
				field("v", "uint8(int)", []string{"4:n"}, false, nil, nil),
			})
			Expect(err).To(Succeed())
		})

		It("rejects a size field declared after the array", func() {
			_, err := model.NewPacket("PACKET_X", 1, sc, []*model.Field{
				field("v", "uint8(int)", []string{"4:n"}, false, nil, nil),
				intField("n", nil, nil),
			})
			Expect(errors.Is(err, model.ErrSizeField)).To(BeTrue())
		})

		It("rejects a size field missing from a variant using the array", func() {
			_, err := model.NewPacket("PACKET_X", 1, sc, []*model.Field{
				intField("n", []string{"X"}, nil),
				field("v", "uint8(int)", []string{"4:n"}, false, nil, nil),
			})
			Expect(errors.Is(err, model.ErrSizeField)).To(BeTrue())
		})
	})

	Describe("handlers", func() {
		It("receives the struct unless handled via fields", func() {
			fields := []*model.Field{intField("a", nil, nil), field("s", "string(char)", []string{"8"}, false, nil, nil)}

			p, err := model.NewPacket("PACKET_X", 1, sc, fields)
			Expect(err).To(Succeed())
			Expect(p.HandlerParams()).To(HaveLen(1))
			Expect(p.HandlerParams()[0].String()).To(Equal("const struct packet_x *packet"))

			flags := sc
			flags.HandleViaFields = true
			p, err = model.NewPacket("PACKET_X", 1, flags, fields)
			Expect(err).To(Succeed())
			Expect(p.HandlerParams()).To(HaveLen(2))
			Expect(p.HandlerParams()[1].String()).To(Equal("const char *s"))
		})

		It("routes by direction", func() {
			p, err := model.NewPacket("PACKET_X", 1, sc, nil)
			Expect(err).To(Succeed())
			Expect(p.SendsOn(model.Server)).To(BeTrue())
			Expect(p.ReceivesOn(model.Client)).To(BeTrue())
			Expect(p.SendsOn(model.Client)).To(BeFalse())
		})

		It("picks the variant for a capability string", func() {
			p, err := model.NewPacket("PACKET_X", 1, sc, []*model.Field{
				intField("k", nil, nil),
				intField("a", []string{"A"}, nil),
			})
			Expect(err).To(Succeed())
			Expect(p.FixedHandlers()).To(BeFalse())

			v, ok := p.Variant("A")
			Expect(ok).To(BeTrue())
			Expect(v.No).To(Equal(101))

			v, ok = p.VariantByNo(100)
			Expect(ok).To(BeTrue())
			Expect(v.Fields).To(HaveLen(1))
		})
	})
})
