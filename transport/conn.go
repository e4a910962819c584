package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luma/pktgen/delta"
	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/protocol"
	"github.com/luma/pktgen/storage"
)

const (
	HandshakeTimeout = 5 * time.Second
	WriteQueueSize   = 127
)

// TCPConn is one client connection. It owns the delta session of the
// connection; the session is created once the capabilities are agreed.
type TCPConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup

	conn   *net.TCPConn
	reader *bufio.Reader

	options Options
	session *delta.Session

	// sendMu keeps encoding and queueing in the same order, so the peer
	// sees the deltas in the order they were computed.
	sendMu     sync.Mutex
	writeQueue chan []byte

	log *zap.Logger
}

func NewTCPConn(
	parentCtx context.Context,
	conn *net.TCPConn,
	options Options,
	log *zap.Logger,
) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)

	return &TCPConn{
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		reader:     bufio.NewReader(conn),
		options:    options,
		writeQueue: make(chan []byte, WriteQueueSize),
		log:        log,
	}
}

// Definition returns the packets spoken on the connection.
func (t *TCPConn) Definition() *model.Definition {
	return t.options.Definition
}

// Session returns the delta session, or nil before the handshake.
func (t *TCPConn) Session() *delta.Session {
	return t.session
}

// Close stops the read and write loops. Start releases the socket once they
// have exited.
func (t *TCPConn) Close() error {
	t.cancel()
	return nil
}

// Start runs the handshake and then the read and write loops until the
// connection is closed by either side.
func (t *TCPConn) Start() {
	defer t.release()

	if err := t.handshake(); err != nil {
		t.log.Warn("Handshake failed", zap.Error(err))
		return
	}

	// Unblock a pending read once the connection is closed, including when
	// the listener's context ends.
	go func() {
		<-t.ctx.Done()

		if err := t.conn.SetReadDeadline(time.Now()); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Warn("Failed to interrupt read", zap.Error(err))
		}
	}()

	if t.options.Trace {
		go t.trace(t.session.Sent().ListenToUpdates())
	}

	t.loopWaiter.Add(2)

	go func() {
		defer t.loopWaiter.Done()
		defer t.cancel()

		t.ReadLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.WriteLoop()
	}()

	t.loopWaiter.Wait()
}

func (t *TCPConn) release() {
	t.cancel()

	if err := t.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		t.log.Warn("Failed to close connection cleanly", zap.Error(err))
	}

	if t.session == nil {
		return
	}

	if stats := t.session.Stats(); stats != nil {
		stats.Report(t.log)
	}

	if err := t.session.Close(); err != nil {
		t.log.Warn("Failed to close delta session", zap.Error(err))
	}
}

// handshake reads the client's capabilities, answers with the ones both
// sides support and opens the delta session for them.
func (t *TCPConn) handshake() error {
	if err := t.conn.SetDeadline(time.Now().Add(HandshakeTimeout)); err != nil {
		return err
	}

	remote, err := protocol.ReadHandshake(t.reader)
	if err != nil {
		return err
	}

	caps := protocol.CommonCapabilities(t.options.Capabilities, remote)

	if err := protocol.WriteHandshake(t.conn, caps); err != nil {
		return err
	}

	if err := t.conn.SetDeadline(time.Time{}); err != nil {
		return err
	}

	t.session, err = delta.NewSession(t.options.Definition, delta.SessionOptions{
		Side:         model.Server,
		Capabilities: caps,
		Mode:         t.options.Mode,
		Logger:       t.log,
	})
	if err != nil {
		return err
	}

	t.log.Info("Client connected", zap.String("capabilities", caps))

	return nil
}

func (t *TCPConn) ReadLoop() {
	log := t.log.Named("readLoop")

	defer func() {
		log.Info("Read loop exited")
	}()

	for {
		frame, err := protocol.ReadFrame(t.reader)
		if err != nil {
			if !t.isRunning() || errors.Is(err, io.EOF) || isClosedConn(err) {
				return
			}

			log.Warn("Failed to read frame", zap.Error(err))
			return
		}

		values, err := t.session.Decode(t.ctx, frame.Type, frame.Body)
		if err != nil {
			log.Warn("Failed to decode packet",
				zap.Uint16("packet", frame.Type),
				zap.Error(err))
			continue
		}

		if err := t.options.Handler(t.ctx, t, frame.Type, values); err != nil {
			log.Warn("Failed to handle packet",
				zap.Uint16("packet", frame.Type),
				zap.Error(err))
		}
	}
}

func (t *TCPConn) WriteLoop() {
	log := t.log.Named("writeLoop")

	defer func() {
		err := t.conn.CloseWrite()
		if err != nil && !isClosedConn(err) {
			log.Warn("Failed to close writes on connection cleanly",
				zap.Error(err))
		}

		log.Info("Write loop exited")
	}()

	for {
		select {
		case <-t.ctx.Done():
			return

		case data := <-t.writeQueue:
			if _, err := t.conn.Write(data); err != nil {
				log.Error("Failed to write frame", zap.Error(err))
				return
			}
		}
	}
}

// Send encodes a packet with the connection's delta session and queues it
// for writing. It returns the frame size, 0 when the send was discarded.
func (t *TCPConn) Send(ctx context.Context, packet uint16, values protocol.Values, force bool) (int, error) {
	if t.session == nil {
		return 0, ErrNoSession
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if !t.isRunning() {
		return 0, ErrConnClosed
	}

	buf := bytes.NewBuffer(nil)

	n, err := t.session.Send(ctx, buf, packet, values, force)
	if err != nil || n == 0 {
		return 0, err
	}

	select {
	case t.writeQueue <- buf.Bytes():
		return n, nil

	case <-t.ctx.Done():
		return 0, ErrConnClosed

	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (t *TCPConn) trace(updates <-chan *storage.Update) {
	for update := range updates {
		t.log.Debug("Sent cache changed",
			zap.Uint16("packet", update.Packet),
			zap.Uint64("hash", update.Hash),
			zap.Bool("reset", update.Reset))
	}
}

// isRunning returns true if Close has not been called
func (t *TCPConn) isRunning() bool {
	select {
	case <-t.ctx.Done():
		// if we can read on this channel then it's been closed
		return false

	default:
		return true
	}
}

func isClosedConn(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return strings.Contains(err.Error(), "transport endpoint is not connected")
}
