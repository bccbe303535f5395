// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package codec wraps the block compressors a table writer may use. The
// engine core never calls these itself — compression happens at the
// SSTable block level, which is out of this core's scope — but
// FileMetaData.Compression names which codec produced a table, and
// internal/table's writer, a thin stand-in for the real block writer,
// uses this package to actually compress its output so the dependency
// has a real call site.
package codec

import "github.com/golang/snappy"

// Type identifies a block compressor. It is recorded in FileMetaData (the
// MANIFEST does not encode it) and written as the first byte of every
// internal/table image, which is part of the table's on-disk contract.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = iota
	// Snappy compresses blocks with Snappy.
	Snappy
)

// String names the codec for diagnostics.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Compressor compresses and decompresses block payloads.
type Compressor interface {
	Type() Type
	Encode(dst, src []byte) []byte
	Decode(dst, src []byte) ([]byte, error)
}

type noneCompressor struct{}

func (noneCompressor) Type() Type                   { return None }
func (noneCompressor) Encode(dst, src []byte) []byte { return append(dst, src...) }
func (noneCompressor) Decode(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

type snappyCompressor struct{}

func (snappyCompressor) Type() Type { return Snappy }

func (snappyCompressor) Encode(dst, src []byte) []byte {
	return append(dst, snappy.Encode(nil, src)...)
}

func (snappyCompressor) Decode(dst, src []byte) ([]byte, error) {
	return snappy.Decode(dst, src)
}

// NoneCompressor is the no-op compressor.
var NoneCompressor Compressor = noneCompressor{}

// SnappyCompressor compresses with Snappy.
var SnappyCompressor Compressor = snappyCompressor{}

// ForType returns the Compressor for a codec Type.
func ForType(t Type) Compressor {
	switch t {
	case Snappy:
		return SnappyCompressor
	default:
		return NoneCompressor
	}
}
