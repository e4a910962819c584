package client_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/pktgen/client"
	"github.com/luma/pktgen/delta"
	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/protocol"
	"github.com/luma/pktgen/schema"
	"github.com/luma/pktgen/transport"
)

const (
	addr = "127.0.0.1:6683"

	position = 1
	reset    = 2
)

const mapSchema = `
type UINT8  = uint8(int)
type UINT16 = uint16(int)

PACKET_POSITION = 1; cs, sc
  UINT16 unit; key
  UINT16 x, y;
  UINT8 moves; add-cap(moves)
end

PACKET_RESET = 2; cs, sc, reset(PACKET_POSITION)
  UINT8 reason;
end
`

var _ = Describe("Conn", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		def    *model.Definition
		tcp    *transport.TCP
		conn   *client.Conn
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)

		var err error
		def, err = schema.NewParser(model.DefaultConfig(), zap.NewNop()).ParseString("map.def", mapSchema)
		Expect(err).To(Succeed())

		tcp = transport.NewTCP(transport.Options{
			Host:         "127.0.0.1",
			Port:         6683,
			NumListeners: 1,
			Definition:   def,
			Capabilities: "moves",
			Log:          zap.NewNop(),
		})
		Expect(tcp.Start(context.Background())).To(Succeed())
		time.Sleep(100 * time.Millisecond)

		conn = client.New(def, delta.Binary, zap.NewNop())
	})

	AfterEach(func() {
		cancel()
		Expect(tcp.Close()).To(Succeed())
	})

	It("fails to connect without a server", func() {
		other := client.New(def, delta.Binary, zap.NewNop())
		Expect(other.Connect(ctx, "127.0.0.1:1", "")).NotTo(Succeed())
	})

	It("selects variants with the agreed capabilities", func() {
		Expect(conn.Connect(ctx, addr, "moves")).To(Succeed())
		defer conn.Disconnect()

		Expect(conn.Capabilities()).To(Equal("moves"))

		plan, ok := conn.Session().Plan(position)
		Expect(ok).To(BeTrue())
		Expect(plan.Variant.PosCaps).To(Equal([]string{"moves"}))
	})

	It("keeps the delta state in step with the server", func() {
		Expect(conn.Connect(ctx, addr, "")).To(Succeed())
		defer conn.Disconnect()

		for _, x := range []int64{1, 2, 2, 5} {
			values := protocol.Values{"unit": int64(9), "x": x, "y": int64(7)}

			_, err := conn.Send(ctx, position, values, false)
			Expect(err).To(Succeed())

			p, err := conn.Receive(ctx)
			Expect(err).To(Succeed())
			Expect(p.Type).To(Equal(uint16(position)))
			Expect(p.Values).To(Equal(values))
		}

		Expect(conn.Session().Sent().Len()).To(Equal(1))
		Expect(conn.Session().Received().Len()).To(Equal(1))
	})

	It("clears caches on reset packets", func() {
		Expect(conn.Connect(ctx, addr, "")).To(Succeed())
		defer conn.Disconnect()

		_, err := conn.Send(ctx, position, protocol.Values{"unit": int64(1), "x": int64(1), "y": int64(1)}, false)
		Expect(err).To(Succeed())
		_, err = conn.Receive(ctx)
		Expect(err).To(Succeed())

		_, err = conn.Send(ctx, reset, protocol.Values{"reason": int64(0)}, false)
		Expect(err).To(Succeed())
		p, err := conn.Receive(ctx)
		Expect(err).To(Succeed())
		Expect(p.Type).To(Equal(uint16(reset)))

		Expect(conn.Session().Received().Len()).To(Equal(1))
	})

	It("stops delivering packets after disconnecting", func() {
		Expect(conn.Connect(ctx, addr, "")).To(Succeed())
		Expect(conn.Disconnect()).To(Succeed())

		_, err := conn.Receive(ctx)
		Expect(errors.Is(err, client.ErrDisconnected)).To(BeTrue())

		_, err = conn.Send(ctx, reset, protocol.Values{"reason": int64(0)}, false)
		Expect(errors.Is(err, client.ErrDisconnected)).To(BeTrue())
	})
})
