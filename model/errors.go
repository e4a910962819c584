package model

import (
	"errors"
	"fmt"
)

var (
	ErrCapabilityConflict    = errors.New("Capability is both added and removed on one field")
	ErrEmptyVariant          = errors.New("Capability combination leaves the packet without fields")
	ErrDuplicateField        = errors.New("Field appears twice in one variant")
	ErrIncompatibleField     = errors.New("Fields sharing a name have incompatible types")
	ErrSizeField             = errors.New("Array size field must be an earlier integer field present in every variant using it")
	ErrPacketNumber          = errors.New("Packet number is outside 0..65535")
	ErrNoDirection           = errors.New("Packet has neither sc nor cs set")
	ErrDsendWithoutFields    = errors.New("Packet without fields cannot use dsend")
	ErrDuplicatePacketName   = errors.New("Packet name is already in use")
	ErrDuplicatePacketNumber = errors.New("Packet number is already in use")
	ErrUnknownReset          = errors.New("Packet resets an unknown packet")
	ErrDefinitionFinalized   = errors.New("Definition is finalized and cannot take more packets")
)

// PacketError attaches packet and field context to a semantic error.
type PacketError struct {
	Packet string
	Field  string
	Err    error
}

func (e *PacketError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Packet, e.Err)
	}

	return fmt.Sprintf("%s.%s: %v", e.Packet, e.Field, e.Err)
}

func (e *PacketError) Unwrap() error {
	return e.Err
}

func packetErr(packet, field string, err error) error {
	return &PacketError{Packet: packet, Field: field, Err: err}
}
