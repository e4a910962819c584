package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	// FrameHeaderLen is the size of the length and packet type prefix.
	FrameHeaderLen = 4

	// MaxFrameLen bounds a whole frame including its header.
	MaxFrameLen = math.MaxUint16
)

// Frame is one packet on the wire: its numeric type and encoded body.
type Frame struct {
	Type uint16
	Body []byte
}

// WriteFrame writes a single frame with one call to w.
func WriteFrame(w io.Writer, frame Frame) error {
	total := FrameHeaderLen + len(frame.Body)
	if total > MaxFrameLen {
		return fmt.Errorf("Failed to write frame of type %d (%d bytes): %w",
			frame.Type, total, ErrFrameTooLarge)
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint16(buf[0:2], uint16(total))
	binary.BigEndian.PutUint16(buf[2:4], frame.Type)
	copy(buf[FrameHeaderLen:], frame.Body)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads the next frame from r.
//
// r should be buffered; ReadFrame issues two reads per frame.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [FrameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	total := int(binary.BigEndian.Uint16(header[0:2]))
	if total < FrameHeaderLen {
		return Frame{}, fmt.Errorf("Failed to read frame of %d bytes: %w", total, ErrFrameTooShort)
	}

	frame := Frame{
		Type: binary.BigEndian.Uint16(header[2:4]),
		Body: make([]byte, total-FrameHeaderLen),
	}

	if _, err := io.ReadFull(r, frame.Body); err != nil {
		return Frame{}, fmt.Errorf("Failed to read body of frame type %d: %w", frame.Type, err)
	}

	return frame, nil
}

// WriteHandshake sends the local capability string. It is the first thing
// each peer writes on a new connection.
func WriteHandshake(w io.Writer, capabilities string) error {
	if len(capabilities) > math.MaxUint16 {
		return fmt.Errorf("Failed to write capabilities: %w", ErrFrameTooLarge)
	}

	buf := make([]byte, 2+len(capabilities))
	binary.BigEndian.PutUint16(buf, uint16(len(capabilities)))
	copy(buf[2:], capabilities)

	_, err := w.Write(buf)
	return err
}

// ReadHandshake reads the capability string of the remote peer.
func ReadHandshake(r io.Reader) (string, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}

	caps := make([]byte, binary.BigEndian.Uint16(header[:]))
	if _, err := io.ReadFull(r, caps); err != nil {
		return "", fmt.Errorf("Failed to read capabilities: %w", err)
	}

	return string(caps), nil
}
