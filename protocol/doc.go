// Package protocol implements the wire primitives used by packets generated
// from a packets.def schema.
//
// A packet travels inside a frame:
//
//   ```
//   <len:uint16><type:uint16><body>
//   ```
//
// where `len` counts the whole frame including the four header bytes and
// `type` is the packet's numeric ID. Before the first frame each peer sends
// its capability string:
//
//   ```
//   <len:uint16><capabilities>
//   ```
//
// === Body encoding
//
// All integers are big endian. The body of a packet is a sequence of field
// values written by the field types of the schema:
//
// - `sintN` / `uintN` - N bit integers (N = 8, 16, 32)
// - `bool` - one byte, 0 or 1
// - `sfloatF` / `ufloatF` - 32 bit integers carrying `value * F`
// - `string` / `estring` - bytes terminated by a NUL byte
// - `memory` - raw bytes, the length is known from the schema
// - `bitvector` - a uint16 bit count followed by the packed bits
// - `worklist` - a uint8 count followed by (uint8 kind, uint16 value) pairs
// - `cm_parameter` - a fixed sequence of sint16, bool and uint16 values
// - opaque structs - a uint16 length followed by the raw bytes
//
// Vectors are prefixed with their uint16 length. Fixed arrays are not; their
// length is a constant or the value of another field of the same packet.
//
// === JSON connections
//
// The same field writers can target a JSON document instead (see JSONOut and
// JSONIn). Every value is stored at the path given by its Address, so a
// packet body becomes an object keyed by field name.
//
package protocol
