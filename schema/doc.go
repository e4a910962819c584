// Package schema reads packets.def files and builds a model.Definition from
// them.
//
// The language is line oriented:
//
//	# comment, // comment, /* block comment */
//	type ALIAS = dataio(public)
//	PACKET_NAME = NUMBER; flag, flag, ...
//	  TYPE name[, name[SIZE][SIZE:actual]]; flag, ...
//	end
//
// Type aliases are collected from all files before any packet is built, so a
// packet may use an alias defined further down.
package schema
