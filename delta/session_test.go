package delta_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/delta"
	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/protocol"
)

const (
	unitInfo   = 10
	unitRemove = 11
	chat       = 12
	turn       = 13
	ping       = 14
	shield     = 15
	unitGone   = 16
)

func unit(id, hp int64, veteran bool) protocol.Values {
	return protocol.Values{
		"id":      id,
		"hp":      hp,
		"veteran": veteran,
		"name":    "Warriors",
		"count":   int64(2),
		"moves":   moves(3, 4),
		"path":    []interface{}{int64(1), int64(2), int64(3)},
		"tags":    []string{"land"},
	}
}

var _ = Describe("Session", func() {
	var (
		ctx    context.Context
		cfg    model.Config
		server *delta.Session
		client *delta.Session
		wire   *bytes.Buffer
	)

	open := func(mode delta.Mode, caps string) {
		def := definition(cfg)

		var err error
		server, err = delta.NewSession(def, delta.SessionOptions{Side: model.Server, Capabilities: caps, Mode: mode})
		Expect(err).To(Succeed())

		client, err = delta.NewSession(def, delta.SessionOptions{Side: model.Client, Capabilities: caps, Mode: mode})
		Expect(err).To(Succeed())
	}

	roundTrip := func(packet uint16, values protocol.Values, force bool) protocol.Values {
		n, err := server.Send(ctx, wire, packet, values, force)
		Expect(err).To(Succeed())
		Expect(n).To(BeNumerically(">", 0))

		got, decoded, err := client.Receive(ctx, wire)
		Expect(err).To(Succeed())
		Expect(got).To(Equal(packet))

		return decoded
	}

	BeforeEach(func() {
		ctx = context.Background()
		cfg = model.DefaultConfig()
		wire = bytes.NewBuffer(nil)
	})

	AfterEach(func() {
		Expect(server.Close()).To(Succeed())
		Expect(client.Close()).To(Succeed())
	})

	for _, mode := range []delta.Mode{delta.Binary, delta.JSON} {
		mode := mode

		Context("in "+mode.String()+" mode", func() {
			BeforeEach(func() {
				open(mode, "")
			})

			It("delivers the first packet in full", func() {
				decoded := roundTrip(unitInfo, unit(7, 10, true), false)

				Expect(decoded).To(Equal(unit(7, 10, true)))
			})

			It("sends only changed fields afterwards", func() {
				roundTrip(unitInfo, unit(7, 10, true), false)

				values := unit(7, 4, true)
				values["moves"] = moves(3, 9)
				values["path"] = []interface{}{int64(1), int64(5)}

				decoded := roundTrip(unitInfo, values, false)
				Expect(decoded).To(Equal(values))
			})

			It("keeps one cache entry per key", func() {
				roundTrip(unitInfo, unit(1, 10, false), false)
				roundTrip(unitInfo, unit(2, 20, true), false)

				decoded := roundTrip(unitInfo, unit(1, 11, false), false)
				Expect(decoded["hp"]).To(Equal(int64(11)))
				Expect(server.Sent().Len()).To(Equal(2))
				Expect(client.Received().Len()).To(Equal(2))
			})

			It("leaves equal cache entries on both ends", func() {
				roundTrip(unitInfo, unit(7, 10, true), false)

				values := unit(7, 4, false)
				values["path"] = []interface{}{int64(9)}
				roundTrip(unitInfo, values, false)

				sent, err := server.Sent().Backup()
				Expect(err).To(Succeed())

				received, err := client.Received().Backup()
				Expect(err).To(Succeed())

				Expect(received).To(MatchJSON(sent))
			})

			It("sends non delta packets in full", func() {
				n, err := client.Send(ctx, wire, chat, protocol.Values{"text": "hello"}, false)
				Expect(err).To(Succeed())
				Expect(n).To(BeNumerically(">", 0))

				packet, decoded, err := server.Receive(ctx, wire)
				Expect(err).To(Succeed())
				Expect(packet).To(Equal(uint16(chat)))
				Expect(decoded).To(Equal(protocol.Values{"text": "hello"}))
				Expect(client.Sent().Len()).To(BeZero())
			})

			It("sends packets without fields", func() {
				decoded := roundTrip(ping, protocol.Values{}, false)
				Expect(decoded).To(BeEmpty())
			})
		})
	}

	Context("with the default configuration", func() {
		BeforeEach(func() {
			open(delta.Binary, "")
		})

		It("discards unchanged info packets", func() {
			roundTrip(unitInfo, unit(7, 10, true), false)

			n, err := server.Send(ctx, wire, unitInfo, unit(7, 10, true), false)
			Expect(err).To(Succeed())
			Expect(n).To(BeZero())
			Expect(wire.Len()).To(BeZero())
		})

		It("sends the first packet of a key without other fields", func() {
			decoded := roundTrip(unitGone, protocol.Values{"id": int64(5)}, false)
			Expect(decoded).To(Equal(protocol.Values{"id": int64(5)}))
			Expect(server.Sent().Len()).To(Equal(1))

			n, err := server.Send(ctx, wire, unitGone, protocol.Values{"id": int64(5)}, false)
			Expect(err).To(Succeed())
			Expect(n).To(BeZero())

			decoded = roundTrip(unitGone, protocol.Values{"id": int64(6)}, false)
			Expect(decoded).To(Equal(protocol.Values{"id": int64(6)}))
		})

		It("sends unchanged info packets when forced", func() {
			roundTrip(unitInfo, unit(7, 10, true), false)

			decoded := roundTrip(unitInfo, unit(7, 10, true), true)
			Expect(decoded).To(Equal(unit(7, 10, true)))
		})

		It("resends unchanged packets that are not info", func() {
			roundTrip(turn, protocol.Values{"turn": int64(3)}, false)

			decoded := roundTrip(turn, protocol.Values{"turn": int64(3)}, false)
			Expect(decoded).To(Equal(protocol.Values{"turn": int64(3)}))
		})

		It("does not cache a discarded send", func() {
			roundTrip(unitInfo, unit(7, 10, true), false)

			cached, err := server.Sent().Backup()
			Expect(err).To(Succeed())

			_, err = server.Send(ctx, wire, unitInfo, unit(7, 10, true), false)
			Expect(err).To(Succeed())

			again, err := server.Sent().Backup()
			Expect(err).To(Succeed())
			Expect(again).To(MatchJSON(cached))
		})

		It("keeps a private copy of the sent values", func() {
			values := unit(7, 10, true)
			roundTrip(unitInfo, values, false)

			values["path"].([]interface{})[0] = int64(42)

			decoded := roundTrip(unitInfo, values, false)
			Expect(decoded["path"]).To(Equal([]interface{}{int64(42), int64(2), int64(3)}))
		})

		It("folds booleans into the presence bits", func() {
			roundTrip(unitInfo, unit(7, 10, true), false)

			body, err := server.Encode(ctx, unitInfo, unit(7, 10, false), false)
			Expect(err).To(Succeed())

			// Presence bits and the key only.
			Expect(body).To(HaveLen(1 + 2))

			decoded, err := client.Decode(ctx, unitInfo, body)
			Expect(err).To(Succeed())
			Expect(decoded["veteran"]).To(BeFalse())
		})

		It("clears the caches of reset packets", func() {
			roundTrip(unitInfo, unit(7, 10, true), false)
			roundTrip(unitRemove, protocol.Values{"id": int64(7)}, false)

			Expect(server.Sent().Len()).To(Equal(1))
			Expect(client.Received().Len()).To(Equal(1))

			decoded := roundTrip(unitInfo, unit(7, 10, true), false)
			Expect(decoded).To(Equal(unit(7, 10, true)))
		})

		It("rejects packets sent in the wrong direction", func() {
			_, err := client.Send(ctx, wire, unitInfo, unit(7, 10, true), false)
			Expect(errors.Is(err, delta.ErrWrongDirection)).To(BeTrue())

			_, err = server.Send(ctx, wire, chat, protocol.Values{"text": "hi"}, false)
			Expect(errors.Is(err, delta.ErrWrongDirection)).To(BeTrue())
		})

		It("rejects unknown packets", func() {
			_, err := server.Send(ctx, wire, 99, protocol.Values{}, false)
			Expect(errors.Is(err, delta.ErrUnknownPacket)).To(BeTrue())
		})

		It("rejects missing fields", func() {
			values := unit(7, 10, true)
			delete(values, "name")

			_, err := server.Send(ctx, wire, unitInfo, values, false)
			Expect(errors.Is(err, delta.ErrMissingField)).To(BeTrue())
			Expect(server.Sent().Len()).To(BeZero())
		})

		It("rejects bodies with trailing bytes", func() {
			body, err := server.Encode(ctx, turn, protocol.Values{"turn": int64(1)}, false)
			Expect(err).To(Succeed())

			_, err = client.Decode(ctx, turn, append(body, 0))
			Expect(errors.Is(err, delta.ErrTrailingData)).To(BeTrue())
		})

		It("rejects truncated bodies", func() {
			body, err := server.Encode(ctx, unitInfo, unit(7, 10, true), false)
			Expect(err).To(Succeed())

			_, err = client.Decode(ctx, unitInfo, body[:len(body)-1])
			Expect(errors.Is(err, protocol.ErrShortRead)).To(BeTrue())
		})

		It("rejects diff indices beyond the array", func() {
			// Only the moves bit, key 7, then index 200 with count still 0.
			body := []byte{0x10, 0x00, 0x07, 200}

			_, err := client.Decode(ctx, unitInfo, body)
			Expect(errors.Is(err, protocol.ErrDiffIndex)).To(BeTrue())
		})
	})

	Context("without folded booleans", func() {
		BeforeEach(func() {
			cfg.FoldBool = false
			open(delta.Binary, "")
		})

		It("sends booleans in the body", func() {
			roundTrip(unitInfo, unit(7, 10, true), false)

			body, err := server.Encode(ctx, unitInfo, unit(7, 10, false), false)
			Expect(err).To(Succeed())
			Expect(body).To(HaveLen(1 + 2 + 1))

			decoded, err := client.Decode(ctx, unitInfo, body)
			Expect(err).To(Succeed())
			Expect(decoded["veteran"]).To(BeFalse())
		})
	})

	Context("with capabilities", func() {
		It("selects the matching variant", func() {
			open(delta.Binary, "shields")

			plan, ok := server.Plan(shield)
			Expect(ok).To(BeTrue())
			f, ok := plan.Variant.Field("shield")
			Expect(ok).To(BeTrue())
			Expect(f.Type.String()).To(Equal("uint16(int)"))

			decoded := roundTrip(shield, protocol.Values{"id": int64(1), "shield": int64(300)}, false)
			Expect(decoded["shield"]).To(Equal(int64(300)))
		})

		It("falls back to the variant without them", func() {
			open(delta.Binary, "")

			_, err := server.Send(ctx, wire, shield, protocol.Values{"id": int64(1), "shield": int64(300)}, false)
			Expect(errors.Is(err, protocol.ErrValueRange)).To(BeTrue())
		})
	})

	Context("with statistics", func() {
		BeforeEach(func() {
			cfg.GenStats = true
			open(delta.Binary, "")
		})

		It("counts sends, discards and changes", func() {
			roundTrip(unitInfo, unit(7, 10, true), false)
			roundTrip(unitInfo, unit(7, 9, true), false)

			_, err := server.Send(ctx, wire, unitInfo, unit(7, 9, true), false)
			Expect(err).To(Succeed())

			stats := server.Stats().Snapshot()
			Expect(stats).To(HaveLen(1))
			Expect(stats[0].Packet).To(Equal("PACKET_UNIT_INFO"))
			Expect(stats[0].Sent).To(Equal(2))
			Expect(stats[0].Discarded).To(Equal(1))
			Expect(stats[0].Changes["hp"]).To(Equal(2))
			Expect(stats[0].Changes["name"]).To(Equal(1))

			server.Stats().Reset()
			Expect(server.Stats().Snapshot()).To(BeEmpty())
		})
	})
})
