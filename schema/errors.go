package schema

import (
	"errors"
	"fmt"
)

var (
	ErrUnterminatedComment = errors.New("Block comment is not terminated")
	ErrMalformedLine       = errors.New("Line is not a type alias, packet header, field or end")
	ErrUnknownFlag         = errors.New("Flag is not recognized")
	ErrUnterminatedPacket  = errors.New("Packet is missing its end")
	ErrStrayEnd            = errors.New("End outside of a packet")
	ErrMalformedName       = errors.New("Field name is malformed")
)

// LineError reports the schema line a syntax or semantic error came from.
type LineError struct {
	File string
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v (%q)", e.File, e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineErr(l Line, err error) error {
	return &LineError{File: l.File, Line: l.No, Text: l.Text, Err: err}
}
