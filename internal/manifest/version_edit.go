// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package manifest

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/ddf8196/leveldb/internal/base"
)

func internalKeyEqual(a, b base.InternalKey) bool {
	return a.Trailer == b.Trailer && bytes.Equal(a.UserKey, b.UserKey)
}

// Tags identifying each field in the MANIFEST record wire format. Values
// are part of the on-disk format; an unrecognized tag on decode is a
// corruption, not a forward-compatibility signal, since this format has
// no other mechanism for skipping unknown fields. Tag 8 is intentionally
// unused: an earlier revision of the format reserved it for a field that
// was cut before release, and renumbering the survivors was judged a
// bigger compatibility risk than leaving the gap.
const (
	tagComparator     = 1
	tagLogNumber      = 2
	tagNextFileNumber = 3
	tagLastSequence   = 4
	tagCompactPointer = 5
	tagDeletedFile    = 6
	tagNewFile        = 7
	tagPrevLogNumber  = 9
)

// NewFileEntry is one (level, file) pair added by an edit.
type NewFileEntry struct {
	Level int
	Meta  *FileMetaData
}

// DeletedFileEntry is one (level, file number) pair removed by an edit.
type DeletedFileEntry struct {
	Level  int
	Number uint64
}

// CompactPointerEntry records the round-robin compaction cursor for one
// level.
type CompactPointerEntry struct {
	Level int
	Key   base.InternalKey
}

// VersionEdit is a delta against a base Version: files added, files
// removed, and updates to the catalogue's bookkeeping fields. Exactly
// the set of optional fields spec.md §3 and §6 describe; an unset field
// is simply absent from NewFiles/DeletedFiles/CompactPointers or has its
// Has* flag false.
type VersionEdit struct {
	Comparator    string
	HasComparator bool

	LogNumber    uint64
	HasLogNumber bool

	PrevLogNumber    uint64
	HasPrevLogNumber bool

	NextFileNumber    uint64
	HasNextFileNumber bool

	LastSequence    uint64
	HasLastSequence bool

	CompactPointers []CompactPointerEntry
	DeletedFiles    []DeletedFileEntry
	NewFiles        []NewFileEntry
}

// AddFile records a new file at level.
func (e *VersionEdit) AddFile(level int, meta *FileMetaData) {
	e.NewFiles = append(e.NewFiles, NewFileEntry{Level: level, Meta: meta})
}

// DeleteFile records the removal of fileNum from level.
func (e *VersionEdit) DeleteFile(level int, fileNum uint64) {
	e.DeletedFiles = append(e.DeletedFiles, DeletedFileEntry{Level: level, Number: fileNum})
}

// SetCompactPointer records the round-robin cursor for level.
func (e *VersionEdit) SetCompactPointer(level int, key base.InternalKey) {
	e.CompactPointers = append(e.CompactPointers, CompactPointerEntry{Level: level, Key: key})
}

func putUvarint(dst []byte, x uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], x)
	return append(dst, buf[:n]...)
}

func putBytes(dst []byte, b []byte) []byte {
	dst = putUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

func putInternalKey(dst []byte, k base.InternalKey) []byte {
	encoded := k.Encode(nil)
	return putBytes(dst, encoded)
}

// Encode appends the tagged wire form of e to dst and returns the result.
func (e *VersionEdit) Encode(dst []byte) []byte {
	if e.HasComparator {
		dst = putUvarint(dst, tagComparator)
		dst = putBytes(dst, []byte(e.Comparator))
	}
	if e.HasLogNumber {
		dst = putUvarint(dst, tagLogNumber)
		dst = putUvarint(dst, e.LogNumber)
	}
	if e.HasNextFileNumber {
		dst = putUvarint(dst, tagNextFileNumber)
		dst = putUvarint(dst, e.NextFileNumber)
	}
	if e.HasLastSequence {
		dst = putUvarint(dst, tagLastSequence)
		dst = putUvarint(dst, e.LastSequence)
	}
	for _, cp := range e.CompactPointers {
		dst = putUvarint(dst, tagCompactPointer)
		dst = putUvarint(dst, uint64(cp.Level))
		dst = putInternalKey(dst, cp.Key)
	}
	for _, df := range e.DeletedFiles {
		dst = putUvarint(dst, tagDeletedFile)
		dst = putUvarint(dst, uint64(df.Level))
		dst = putUvarint(dst, df.Number)
	}
	for _, nf := range e.NewFiles {
		dst = putUvarint(dst, tagNewFile)
		dst = putUvarint(dst, uint64(nf.Level))
		dst = putUvarint(dst, nf.Meta.Number)
		dst = putUvarint(dst, nf.Meta.Size)
		dst = putInternalKey(dst, nf.Meta.Smallest)
		dst = putInternalKey(dst, nf.Meta.Largest)
	}
	if e.HasPrevLogNumber {
		dst = putUvarint(dst, tagPrevLogNumber)
		dst = putUvarint(dst, e.PrevLogNumber)
	}
	return dst
}

func getUvarint(b []byte) (rest []byte, x uint64, ok bool) {
	x, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, 0, false
	}
	return b[n:], x, true
}

func getBytes(b []byte) (rest []byte, v []byte, ok bool) {
	b, n, ok := getUvarint(b)
	if !ok || uint64(len(b)) < n {
		return nil, nil, false
	}
	return b[n:], b[:n], true
}

func getInternalKey(b []byte) (rest []byte, k base.InternalKey, ok bool) {
	b, raw, ok := getBytes(b)
	if !ok {
		return nil, base.InternalKey{}, false
	}
	k, ok = base.ParseInternalKey(raw)
	if !ok {
		return nil, base.InternalKey{}, false
	}
	return b, k, true
}

// Decode parses the tagged wire form produced by Encode. An unrecognized
// tag, or a payload too short for its tag, is reported as
// base.ErrCorruption.
func (e *VersionEdit) Decode(b []byte) error {
	*e = VersionEdit{}
	var ok bool
	for len(b) > 0 {
		var tag uint64
		b, tag, ok = getUvarint(b)
		if !ok {
			return base.ErrCorruption
		}
		switch tag {
		case tagComparator:
			var raw []byte
			b, raw, ok = getBytes(b)
			if !ok {
				return base.ErrCorruption
			}
			e.Comparator = string(raw)
			e.HasComparator = true
		case tagLogNumber:
			var v uint64
			b, v, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			e.LogNumber = v
			e.HasLogNumber = true
		case tagNextFileNumber:
			var v uint64
			b, v, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			e.NextFileNumber = v
			e.HasNextFileNumber = true
		case tagLastSequence:
			var v uint64
			b, v, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			e.LastSequence = v
			e.HasLastSequence = true
		case tagCompactPointer:
			var level uint64
			var key base.InternalKey
			b, level, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			b, key, ok = getInternalKey(b)
			if !ok {
				return base.ErrCorruption
			}
			e.CompactPointers = append(e.CompactPointers, CompactPointerEntry{Level: int(level), Key: key})
		case tagDeletedFile:
			var level, number uint64
			b, level, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			b, number, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			e.DeletedFiles = append(e.DeletedFiles, DeletedFileEntry{Level: int(level), Number: number})
		case tagNewFile:
			var level uint64
			meta := &FileMetaData{}
			b, level, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			b, meta.Number, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			b, meta.Size, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			b, meta.Smallest, ok = getInternalKey(b)
			if !ok {
				return base.ErrCorruption
			}
			b, meta.Largest, ok = getInternalKey(b)
			if !ok {
				return base.ErrCorruption
			}
			e.NewFiles = append(e.NewFiles, NewFileEntry{Level: int(level), Meta: meta})
		case tagPrevLogNumber:
			var v uint64
			b, v, ok = getUvarint(b)
			if !ok {
				return base.ErrCorruption
			}
			e.PrevLogNumber = v
			e.HasPrevLogNumber = true
		default:
			return base.ErrCorruption
		}
	}
	return nil
}

// Equal reports whether e and other describe the same edit, independent
// of the order entries were added in.
func (e *VersionEdit) Equal(other *VersionEdit) bool {
	if e.Comparator != other.Comparator || e.HasComparator != other.HasComparator {
		return false
	}
	if e.LogNumber != other.LogNumber || e.HasLogNumber != other.HasLogNumber {
		return false
	}
	if e.PrevLogNumber != other.PrevLogNumber || e.HasPrevLogNumber != other.HasPrevLogNumber {
		return false
	}
	if e.NextFileNumber != other.NextFileNumber || e.HasNextFileNumber != other.HasNextFileNumber {
		return false
	}
	if e.LastSequence != other.LastSequence || e.HasLastSequence != other.HasLastSequence {
		return false
	}
	if !equalCompactPointers(e.CompactPointers, other.CompactPointers) {
		return false
	}
	if !equalDeletedFiles(e.DeletedFiles, other.DeletedFiles) {
		return false
	}
	if !equalNewFiles(e.NewFiles, other.NewFiles) {
		return false
	}
	return true
}

func equalCompactPointers(a, b []CompactPointerEntry) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = append([]CompactPointerEntry(nil), a...), append([]CompactPointerEntry(nil), b...)
	less := func(s []CompactPointerEntry) func(i, j int) bool {
		return func(i, j int) bool { return s[i].Level < s[j].Level }
	}
	sort.Slice(a, less(a))
	sort.Slice(b, less(b))
	for i := range a {
		if a[i].Level != b[i].Level || !internalKeyEqual(a[i].Key, b[i].Key) {
			return false
		}
	}
	return true
}

func equalDeletedFiles(a, b []DeletedFileEntry) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = append([]DeletedFileEntry(nil), a...), append([]DeletedFileEntry(nil), b...)
	less := func(s []DeletedFileEntry) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].Level != s[j].Level {
				return s[i].Level < s[j].Level
			}
			return s[i].Number < s[j].Number
		}
	}
	sort.Slice(a, less(a))
	sort.Slice(b, less(b))
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalNewFiles(a, b []NewFileEntry) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = append([]NewFileEntry(nil), a...), append([]NewFileEntry(nil), b...)
	less := func(s []NewFileEntry) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].Level != s[j].Level {
				return s[i].Level < s[j].Level
			}
			return s[i].Meta.Number < s[j].Meta.Number
		}
	}
	sort.Slice(a, less(a))
	sort.Slice(b, less(b))
	for i := range a {
		if a[i].Level != b[i].Level ||
			a[i].Meta.Number != b[i].Meta.Number ||
			a[i].Meta.Size != b[i].Meta.Size ||
			!internalKeyEqual(a[i].Meta.Smallest, b[i].Meta.Smallest) ||
			!internalKeyEqual(a[i].Meta.Largest, b[i].Meta.Largest) {
			return false
		}
	}
	return true
}
