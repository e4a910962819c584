package model_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/types"
)

var _ = Describe("Definition", func() {
	var def *model.Definition

	packet := func(name string, id int, flags model.PacketFlags, fields ...*model.Field) *model.Packet {
		p, err := model.NewPacket(name, id, flags, fields)
		Expect(err).To(Succeed())

		return p
	}

	BeforeEach(func() {
		def = model.NewDefinition(model.DefaultConfig(), types.NewRegistry())
	})

	It("orders packets by number", func() {
		Expect(def.Add(packet("PACKET_B", 5, model.PacketFlags{ToClient: true}))).To(Succeed())
		Expect(def.Add(packet("PACKET_A", 2, model.PacketFlags{ToServer: true}))).To(Succeed())
		Expect(def.Add(packet("PACKET_C", 3, model.PacketFlags{ToClient: true, ToServer: true}))).To(Succeed())

		var names []string
		for _, p := range def.Packets() {
			names = append(names, p.Type)
		}
		Expect(names).To(Equal([]string{"PACKET_A", "PACKET_C", "PACKET_B"}))
		Expect(def.Len()).To(Equal(3))
	})

	It("rejects duplicate names and numbers", func() {
		Expect(def.Add(packet("PACKET_A", 1, model.PacketFlags{ToClient: true}))).To(Succeed())

		err := def.Add(packet("PACKET_A", 2, model.PacketFlags{ToClient: true}))
		Expect(errors.Is(err, model.ErrDuplicatePacketName)).To(BeTrue())

		err = def.Add(packet("PACKET_B", 1, model.PacketFlags{ToClient: true}))
		Expect(errors.Is(err, model.ErrDuplicatePacketNumber)).To(BeTrue())
	})

	It("matches names without regard to case", func() {
		Expect(def.Add(packet("PACKET_City_Info", 1, model.PacketFlags{ToClient: true}))).To(Succeed())
		Expect(def.Add(packet("PACKET_CITY_REMOVE", 2, model.PacketFlags{ToClient: true, Resets: []string{"PACKET_City_Info"}}))).To(Succeed())

		err := def.Add(packet("packet_city_info", 3, model.PacketFlags{ToClient: true}))
		Expect(errors.Is(err, model.ErrDuplicatePacketName)).To(BeTrue())

		Expect(def.Finalize()).To(Succeed())

		p, ok := def.ByName("PACKET_City_Info")
		Expect(ok).To(BeTrue())
		Expect(p.ID).To(Equal(uint16(1)))

		_, ok = def.ByName("PACKET_CITY_INFO")
		Expect(ok).To(BeTrue())
	})

	It("looks packets up by name, number and direction", func() {
		Expect(def.Add(packet("PACKET_A", 1, model.PacketFlags{ToClient: true}))).To(Succeed())
		Expect(def.Add(packet("PACKET_B", 2, model.PacketFlags{ToServer: true}))).To(Succeed())

		p, ok := def.ByName("packet_a")
		Expect(ok).To(BeTrue())
		Expect(p.ID).To(Equal(uint16(1)))

		p, ok = def.ByID(2)
		Expect(ok).To(BeTrue())
		Expect(p.Type).To(Equal("PACKET_B"))

		sent := def.SentBy(model.Server)
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Type).To(Equal("PACKET_A"))

		received := def.ReceivedBy(model.Server)
		Expect(received).To(HaveLen(1))
		Expect(received[0].Type).To(Equal("PACKET_B"))
	})

	It("reports gaps in the number space", func() {
		Expect(def.Add(packet("PACKET_A", 0, model.PacketFlags{ToClient: true}))).To(Succeed())
		Expect(def.Add(packet("PACKET_B", 3, model.PacketFlags{ToClient: true}))).To(Succeed())

		slots := def.Slots()
		Expect(slots).To(HaveLen(4))
		Expect(slots[1].Packet).To(BeNil())
		Expect(def.Gaps()).To(Equal([]uint16{1, 2}))
	})

	It("lists the functional capability", func() {
		Expect(def.Add(packet("PACKET_A", 1, model.PacketFlags{ToClient: true},
			intField("k", nil, nil), intField("x", []string{"zeta"}, nil)))).To(Succeed())
		Expect(def.Add(packet("PACKET_B", 2, model.PacketFlags{ToClient: true},
			intField("k", nil, nil), intField("y", nil, []string{"alpha"}), intField("z", []string{"zeta"}, nil)))).To(Succeed())

		Expect(def.FunctionalCapability()).To(Equal("alpha zeta"))
	})

	Describe("Finalize", func() {
		It("rejects resets of unknown packets", func() {
			flags := model.PacketFlags{ToClient: true, Resets: []string{"PACKET_NOPE"}}
			Expect(def.Add(packet("PACKET_A", 1, flags))).To(Succeed())

			Expect(errors.Is(def.Finalize(), model.ErrUnknownReset)).To(BeTrue())
		})

		It("freezes the definition", func() {
			Expect(def.Finalize()).To(Succeed())

			err := def.Add(packet("PACKET_A", 1, model.PacketFlags{ToClient: true}))
			Expect(errors.Is(err, model.ErrDefinitionFinalized)).To(BeTrue())
		})
	})
})
