// Package delta implements the delta protocol of a packet definition.
//
// A Plan describes how one capability variant of a packet goes over the
// wire: which fields are keys, which bit of the presence bitvector belongs to
// which field, which booleans are folded into the bitvector and which arrays
// use the element wise diff encoding.
//
// A Session executes plans for one connection. It owns the delta caches of
// everything sent and received on that connection and must not be used from
// more than one goroutine at a time.
//
// A delta body is laid out as
//
//	fields bitvector | key fields | changed non key fields
//
// Folded booleans carry their value in their bit and have no body. Packets
// without delta send every field in order.
package delta
