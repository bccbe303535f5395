// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "bytes"

// Comparer is a user-supplied total order over user keys. Name must be
// stable across process restarts: VersionSet.Recover rejects a MANIFEST
// written under a different comparer name as corruption.
type Comparer struct {
	// Compare returns -1, 0, or +1 as a is less than, equal to, or greater
	// than b.
	Compare func(a, b []byte) int

	// Name identifies the comparer. Persisted in the MANIFEST.
	Name string

	// Separator returns a key s with a <= s < b that is, ideally, shorter
	// than a. It may simply return a unmodified; correctness of the engine
	// never depends on the result being minimal, only on a <= s < b.
	Separator func(dst, a, b []byte) []byte

	// Successor returns a key s >= key, ideally shorter than key.
	Successor func(dst, key []byte) []byte
}

// DefaultComparer orders keys lexicographically by unsigned byte value.
var DefaultComparer = &Comparer{
	Compare: bytes.Compare,
	Name:    "leveldb.BytewiseComparator",

	Separator: func(dst, a, b []byte) []byte {
		i, n := 0, len(a)
		if n > len(b) {
			n = len(b)
		}
		for ; i < n && a[i] == b[i]; i++ {
		}
		if i >= n {
			// a is a prefix of b (or they're equal): do not shorten.
		} else if c := a[i]; c < 0xff && c+1 < b[i] {
			dst = append(dst, a[:i+1]...)
			dst[len(dst)-1]++
			return dst
		}
		return append(dst, a...)
	},

	Successor: func(dst, key []byte) []byte {
		for i, c := range key {
			if c != 0xff {
				dst = append(dst, key[:i+1]...)
				dst[len(dst)-1]++
				return dst
			}
		}
		return append(dst, key...)
	},
}

// InternalKeyComparator totally orders InternalKeys: ascending by user key
// under the wrapped Comparer, then descending by sequence number, then
// descending by kind. Ties on (user key, sequence number) only occur
// between a VALUE and a DELETE written in the same batch, which never
// happens in practice since sequence numbers are unique per write.
type InternalKeyComparator struct {
	UserComparer *Comparer
}

// MakeInternalKeyComparator wraps a user Comparer for internal-key
// ordering.
func MakeInternalKeyComparator(cmp *Comparer) InternalKeyComparator {
	return InternalKeyComparator{UserComparer: cmp}
}

// Name returns the wrapped user comparer's name.
func (c InternalKeyComparator) Name() string {
	return c.UserComparer.Name
}

// Compare orders two internal keys per the type's doc comment.
func (c InternalKeyComparator) Compare(a, b InternalKey) int {
	if cmp := c.UserComparer.Compare(a.UserKey, b.UserKey); cmp != 0 {
		return cmp
	}
	// Larger trailer (higher sequence, and on a sequence tie, larger kind)
	// sorts first, i.e. descending.
	switch {
	case a.Trailer > b.Trailer:
		return -1
	case a.Trailer < b.Trailer:
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b compare equal.
func (c InternalKeyComparator) Equal(a, b InternalKey) bool {
	return c.Compare(a, b) == 0
}

// FindShortestSeparator returns a key between start and limit's user keys
// per Comparer.Separator. A separator shorter than start's user key is
// re-wrapped as an internal key at MaxSeqNum and the VALUE kind; otherwise
// start itself is returned. A nil result from the user comparer is a programmer error: the
// contract promises start <= result < limit, and nil cannot satisfy that,
// so this panics rather than silently propagating an invalid key.
func (c InternalKeyComparator) FindShortestSeparator(start InternalKey, limitUserKey []byte) InternalKey {
	sep := c.UserComparer.Separator(nil, start.UserKey, limitUserKey)
	if sep == nil {
		panic("leveldb: comparer Separator returned nil")
	}
	if len(sep) < len(start.UserKey) && c.UserComparer.Compare(start.UserKey, sep) < 0 {
		return InternalKey{UserKey: sep, Trailer: MaxSeqNum<<8 | uint64(InternalKeyKindValue)}
	}
	return start
}

// FindShortSuccessor returns a key greater than or equal to key's user key
// per Comparer.Successor. A nil result is a programmer error (see
// FindShortestSeparator).
func (c InternalKeyComparator) FindShortSuccessor(key InternalKey) InternalKey {
	succ := c.UserComparer.Successor(nil, key.UserKey)
	if succ == nil {
		panic("leveldb: comparer Successor returned nil")
	}
	if len(succ) < len(key.UserKey) && c.UserComparer.Compare(key.UserKey, succ) < 0 {
		return InternalKey{UserKey: succ, Trailer: MaxSeqNum<<8 | uint64(InternalKeyKindValue)}
	}
	return key
}
