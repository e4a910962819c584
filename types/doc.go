// Package types implements the field type algebra of the packets.def schema
// language and the registry that resolves textual type descriptors such as
// `uint8(int)` into field types.
//
// Field types form a closed set: every FieldType is one of the concrete types
// declared in this package. Each one knows how to declare, copy, hash,
// compare, write and read values of its kind. Arrays and vectors wrap the
// element type's operations in a loop bounded by their SizeInfo.
package types
