package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/protocol"
)

// Handler processes one packet received on a connection.
type Handler func(ctx context.Context, conn *TCPConn, packet uint16, values protocol.Values) error

// Echo sends every packet the server may send back to its sender and logs
// the others.
func Echo(ctx context.Context, conn *TCPConn, packet uint16, values protocol.Values) error {
	p, ok := conn.Definition().ByID(packet)
	if !ok || !p.SendsOn(model.Server) {
		conn.log.Info("Received packet", zap.Uint16("packet", packet), zap.Any("values", values))
		return nil
	}

	_, err := conn.Send(ctx, packet, values, false)
	return err
}
