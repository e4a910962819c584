package protocol

import "errors"

var (
	ErrShortRead       = errors.New("Packet is malformed, it is too short for the value being read")
	ErrInvalidBool     = errors.New("Packet is malformed, a bool was neither 0 nor 1")
	ErrValueRange      = errors.New("Value does not fit into its wire representation")
	ErrStringTooLong   = errors.New("String does not fit into its declared capacity")
	ErrTruncatedArray  = errors.New("Array length exceeds its declared capacity")
	ErrBitvectorRange  = errors.New("Bitvector has bits set beyond its length")
	ErrDiffIndex       = errors.New("Array diff index exceeds the declared capacity")
	ErrWorklistTooLong = errors.New("Worklist exceeds the maximum worklist length")
	ErrFrameTooLarge   = errors.New("Frame exceeds the maximum frame size")
	ErrFrameTooShort   = errors.New("Frame is malformed, it is shorter than its header")
	ErrTypeMismatch    = errors.New("Value has the wrong Go type for its field")
)
