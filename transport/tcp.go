package transport

import (
	"context"
	"errors"
	"net"
	"runtime"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TCP serves a packet definition on one or more SO_REUSEPORT listeners.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	numListeners int
	listeners    []*TCPListener

	options Options

	log *zap.Logger
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners

	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	if options.Handler == nil {
		options.Handler = Echo
	}

	if options.Log == nil {
		options.Log = zap.NewNop()
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		options:      options,
		log:          options.Log,
	}
}

func (w *TCP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	w.cancel = cancel

	w.log.Info("Starting tcp listeners",
		zap.Int("count", w.numListeners),
		zap.String("addr", w.addr),
		zap.String("capabilities", w.options.Capabilities))

	for i := 0; i < w.numListeners; i++ {
		w.startListener(ctx)
	}

	return nil
}

func (w *TCP) startListener(ctx context.Context) {
	w.stopWaiter.Add(1)
	listener := NewTCPListener(
		ctx,
		w.addr,
		w.options,
		w.log.Named("listener").With(zap.Int("listener", len(w.listeners))),
	)

	w.listeners = append(w.listeners, listener)

	go func() {
		defer w.stopWaiter.Done()

		if err := listener.Listen(); err != nil {
			// A listener failing is not fatal as long as another one runs.
			w.log.Error("Failed to listen", zap.Error(err))
		}
	}()
}

// Close closes all listeners and their connections and waits for them to
// stop.
func (w *TCP) Close() error {
	w.log.Info("Stopping TCP server")
	w.cancel()

	var err error
	for _, listener := range w.listeners {
		err = multierr.Append(err, listener.Close())
	}

	w.stopWaiter.Wait()
	w.log.Info("TCP server stopped")

	return err
}

// TCPListener accepts connections on one socket.
type TCPListener struct {
	ctx context.Context

	addr    string
	options Options
	log     *zap.Logger

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}
}

func NewTCPListener(
	ctx context.Context,
	addr string,
	options Options,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:         ctx,
		activeConns: make(map[*TCPConn]struct{}),
		addr:        addr,
		options:     options,
		log:         log,
	}
}

// Close asks every active connection to stop.
func (t *TCPListener) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	for conn := range t.activeConns {
		err = multierr.Append(err, conn.Close())
	}

	return err
}

func (t *TCPListener) Listen() error {
	listener, err := reuseport.Listen("tcp", t.addr)
	if err != nil {
		return err
	}

	defer listener.Close()

	var loopWaiter sync.WaitGroup

	go func() {
		<-t.ctx.Done()

		t.log.Info("Closing listener")
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Warn("TCP Listener did not close cleanly", zap.Error(err))
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || t.ctx.Err() != nil {
				// The listener was closed while we were waiting for new
				// connections, that's fine.
				t.log.Info("Stopped accepting new connections")
				loopWaiter.Wait()

				t.log.Info("Listener stopped")
				return nil
			}

			return err
		}

		tcpConn := NewTCPConn(t.ctx, conn.(*net.TCPConn), t.options, t.log.Named("conn").With(
			zap.String("remote", conn.RemoteAddr().String())))

		t.addConn(tcpConn)
		loopWaiter.Add(1)

		go func() {
			defer loopWaiter.Done()
			defer t.removeConn(tcpConn)

			tcpConn.Start()
		}()
	}
}

// Len returns the number of active connections.
func (t *TCPListener) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.activeConns)
}

func (t *TCPListener) addConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}
