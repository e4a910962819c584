// Package client connects to a packet server and speaks the delta protocol
// with it.
package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/pktgen/delta"
	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/protocol"
)

var ErrDisconnected = errors.New("Disconnected")

// Packet is one packet received from the server.
type Packet struct {
	Type   uint16
	Values protocol.Values
}

type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn   *net.TCPConn
	reader *bufio.Reader

	def          *model.Definition
	mode         delta.Mode
	session      *delta.Session
	capabilities string

	sendMu sync.Mutex

	packetChan chan *Packet
	done       chan struct{}

	errMu   sync.Mutex
	readErr error

	log *zap.Logger
}

func New(def *model.Definition, mode delta.Mode, log *zap.Logger) *Conn {
	return &Conn{
		def:        def,
		mode:       mode,
		log:        log,
		packetChan: make(chan *Packet, 255),
		done:       make(chan struct{}),
	}
}

// Connect dials addr, offers capabilities and starts reading packets.
func (c *Conn) Connect(ctx context.Context, addr, capabilities string) error {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	c.conn = conn.(*net.TCPConn)
	c.reader = bufio.NewReader(conn)

	if err := protocol.WriteHandshake(c.conn, capabilities); err != nil {
		c.conn.Close()
		return err
	}

	if c.capabilities, err = protocol.ReadHandshake(c.reader); err != nil {
		c.conn.Close()
		return err
	}

	c.session, err = delta.NewSession(c.def, delta.SessionOptions{
		Side:         model.Client,
		Capabilities: c.capabilities,
		Mode:         c.mode,
		Logger:       c.log,
	})
	if err != nil {
		c.conn.Close()
		return err
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.readLoop()

	return nil
}

// Capabilities returns the capabilities agreed with the server.
func (c *Conn) Capabilities() string {
	return c.capabilities
}

func (c *Conn) Session() *delta.Session {
	return c.session
}

func (c *Conn) Disconnect() error {
	c.cancel()
	err := c.conn.Close()

	<-c.done

	if serr := c.session.Close(); err == nil {
		err = serr
	}

	return err
}

// Packets delivers received packets. It is closed when the connection ends.
func (c *Conn) Packets() <-chan *Packet {
	return c.packetChan
}

// Send writes a packet using the delta state of the connection. It returns
// the number of bytes written, 0 when the send was discarded.
func (c *Conn) Send(ctx context.Context, packet uint16, values protocol.Values, force bool) (int, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.ctx.Err() != nil {
		return 0, ErrDisconnected
	}

	return c.session.Send(ctx, c.conn, packet, values, force)
}

// Receive waits for the next packet.
func (c *Conn) Receive(ctx context.Context) (*Packet, error) {
	select {
	case p, ok := <-c.packetChan:
		if !ok {
			return nil, c.err()
		}

		return p, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	if c.readErr == nil {
		return ErrDisconnected
	}

	return c.readErr
}

func (c *Conn) readLoop() {
	log := c.log.Named("readLoop")

	defer close(c.done)
	defer close(c.packetChan)

	for {
		frame, err := protocol.ReadFrame(c.reader)
		if err != nil {
			if c.ctx.Err() == nil && !errors.Is(err, io.EOF) {
				log.Warn("Failed to read server frame", zap.Error(err))

				c.errMu.Lock()
				c.readErr = err
				c.errMu.Unlock()
			}

			return
		}

		values, err := c.session.Decode(c.ctx, frame.Type, frame.Body)
		if err != nil {
			log.Warn("Failed to decode server packet",
				zap.Uint16("packet", frame.Type),
				zap.Error(err))
			continue
		}

		select {
		case c.packetChan <- &Packet{Type: frame.Type, Values: values}:
		case <-c.ctx.Done():
			return
		}
	}
}
