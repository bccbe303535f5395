// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"encoding/binary"
	"fmt"
)

// InternalKeyKind distinguishes a live value from a tombstone. These values
// are part of the on-disk format and must not be renumbered.
type InternalKeyKind uint8

const (
	// InternalKeyKindValue marks a live key/value pair.
	InternalKeyKindValue InternalKeyKind = 0
	// InternalKeyKindDelete marks a tombstone: the user key is absent as of
	// this sequence number.
	InternalKeyKindDelete InternalKeyKind = 1
)

// String returns a human-readable name for the kind.
func (k InternalKeyKind) String() string {
	switch k {
	case InternalKeyKindValue:
		return "VALUE"
	case InternalKeyKindDelete:
		return "DELETION"
	default:
		return fmt.Sprintf("UNKNOWN:%d", uint8(k))
	}
}

// MaxSeqNum is the largest representable sequence number. 56 bits are
// reserved for the sequence number so that it can share a 64-bit trailer
// with an 8-bit kind.
const MaxSeqNum = uint64(1)<<56 - 1

// InternalKey is the (user key, sequence number, kind) triplet the engine
// orders and stores records by. Construct with MakeInternalKey; the zero
// value is not a valid key.
type InternalKey struct {
	UserKey []byte
	Trailer uint64
}

// MakeInternalKey packs a user key, sequence number, and kind into an
// InternalKey. seqNum must fit in 56 bits.
func MakeInternalKey(userKey []byte, seqNum uint64, kind InternalKeyKind) InternalKey {
	return InternalKey{
		UserKey: userKey,
		Trailer: seqNum<<8 | uint64(kind),
	}
}

// Kind returns the key's kind.
func (k InternalKey) Kind() InternalKeyKind {
	return InternalKeyKind(k.Trailer & 0xff)
}

// SeqNum returns the key's sequence number.
func (k InternalKey) SeqNum() uint64 {
	return k.Trailer >> 8
}

// IsValid reports whether the key has a non-nil user key. A zero-value
// InternalKey is not valid and must never be compared or encoded.
func (k InternalKey) IsValid() bool {
	return k.UserKey != nil
}

// Encode appends the wire form of k (user key bytes followed by an 8-byte
// little-endian trailer) to dst and returns the result.
func (k InternalKey) Encode(dst []byte) []byte {
	dst = append(dst, k.UserKey...)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], k.Trailer)
	return append(dst, buf[:]...)
}

// ParseInternalKey decodes the wire form produced by Encode. It returns
// false if b is too short to contain a trailer.
func ParseInternalKey(b []byte) (InternalKey, bool) {
	if len(b) < 8 {
		return InternalKey{}, false
	}
	n := len(b) - 8
	return InternalKey{
		UserKey: b[:n],
		Trailer: binary.LittleEndian.Uint64(b[n:]),
	}, true
}

// String renders the key for diagnostics.
func (k InternalKey) String() string {
	return fmt.Sprintf("%s#%d,%s", k.UserKey, k.SeqNum(), k.Kind())
}
