package emit_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/emit"
)

var _ = Describe("Document", func() {
	var doc *emit.Document

	packet := func(name string) emit.PacketDoc {
		for _, p := range doc.Packets {
			if p.Type == name {
				return p
			}
		}

		Fail("no packet " + name)
		return emit.PacketDoc{}
	}

	BeforeEach(func() {
		doc = exampleDocument()
	})

	It("describes the definition", func() {
		Expect(doc.Generator).To(Equal("pktgen"))
		Expect(doc.Sources).To(Equal([]string{example}))
		Expect(doc.Capability).To(Equal("cma culture16"))
		Expect(doc.Packets).To(HaveLen(10))
		Expect(doc.Aliases).To(HaveKeyWithValue("PLAYER", "UINT8"))
	})

	It("has a dense table up to the highest packet number", func() {
		Expect(doc.Table).To(HaveLen(91))
		Expect(doc.Table[1]).To(Equal(emit.SlotDoc{ID: 1, Name: "unknown"}))
		Expect(doc.Table[31]).To(Equal(emit.SlotDoc{ID: 31, Name: "PACKET_CITY_INFO", HasGameInfo: true}))
		Expect(doc.Table[16].HasGameInfo).To(BeFalse())
	})

	It("renders the packet flags", func() {
		city := packet("PACKET_CITY_INFO")

		Expect(city.Flags).To(Equal([]string{"sc", "is-game-info", "lsend", "reset(PACKET_CITY_SHORT_INFO)"}))
		Expect(city.FixedHandlers).To(BeFalse())
		Expect(city.HandlerParams).To(Equal([]string{"const struct packet_city_info *packet"}))
	})

	It("lists the variants with their transmission plan", func() {
		city := packet("PACKET_CITY_INFO")

		Expect(city.Variants).To(HaveLen(4))
		Expect(city.Variants[0].No).To(Equal(100))
		Expect(city.Variants[0].Condition).To(Equal("!cma && !culture16"))
		Expect(city.Variants[0].Keys).To(Equal([]string{"id"}))
		Expect(city.Variants[0].Discardable).To(BeTrue())
		Expect(city.Variants[0].DeepCopy).To(BeTrue())
	})

	It("marks folded booleans and diff arrays", func() {
		game := packet("PACKET_GAME_INFO")
		Expect(game.Variants).To(HaveLen(1))

		var running, wonders emit.BitDoc
		for _, s := range game.Variants[0].Slots {
			switch s.Field {
			case "running":
				running = s
			case "wonders":
				wonders = s
			}
		}

		Expect(running.Folded).To(BeTrue())
		Expect(wonders.Diff).To(BeTrue())
		Expect(wonders.IndexWidth).To(Equal(8))
	})

	It("lists the packets of each side", func() {
		Expect(doc.Server.Sends).To(ContainElement("PACKET_CITY_INFO"))
		Expect(doc.Server.Receives).To(ContainElement("PACKET_SERVER_JOIN_REQ"))
		Expect(doc.Client.Sends).To(ContainElement("PACKET_SERVER_JOIN_REQ"))
		Expect(doc.Client.Sends).NotTo(ContainElement("PACKET_CITY_INFO"))
	})
})
