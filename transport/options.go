package transport

import (
	"go.uber.org/zap"

	"github.com/luma/pktgen/delta"
	"github.com/luma/pktgen/model"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on
	Port int

	// NumListeners is the number of SO_REUSEPORT listeners. It defaults to
	// the number of CPUs.
	NumListeners int

	// Trace logs every change of a connection's delta caches. This is only
	// useful in local debugging
	Trace bool

	// Definition is the protocol spoken on every connection.
	Definition *model.Definition

	// Capabilities offered to clients. The connection uses the ones both
	// peers list.
	Capabilities string

	Mode delta.Mode

	// Handler is called for every received packet. It defaults to Echo.
	Handler Handler

	Log *zap.Logger
}
