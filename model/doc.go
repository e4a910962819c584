// Package model holds the resolved protocol model built from a packets.def
// schema: fields and their flags, packets, the capability variants of each
// packet and the definition aggregating all of them.
//
// A Definition is built once per generation run and is read only afterwards.
package model
