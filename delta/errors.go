package delta

import "errors"

var (
	ErrUnknownPacket  = errors.New("Packet type is not part of the definition")
	ErrWrongDirection = errors.New("Packet is not sent in this direction")
	ErrNoVariant      = errors.New("No packet variant matches the negotiated capabilities")
	ErrMissingField   = errors.New("Packet value is missing a field")
	ErrTrailingData   = errors.New("Packet is malformed, it has data after its last field")
)
