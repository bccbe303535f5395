// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"sync/atomic"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
)

// Version is an immutable snapshot of the LSM's level geometry: the file
// list per level plus the precomputed compaction trigger. Built from the
// file lists Builder.SaveTo returns and installed by
// VersionSet.appendVersionLocked; it never
// mutates again once constructed, so concurrent readers need no lock
// beyond the refcount that keeps it alive. Grounded on
// org.iq80.leveldb.impl.Version, adapted from hyperfork's much simpler
// per-DB `version` struct.
type Version struct {
	levels [NumLevels]*Level

	// CompactionLevel and CompactionScore are precomputed by
	// VersionSet.finalizeVersion; CompactionLevel is -1 until finalized.
	CompactionLevel int
	CompactionScore float64

	// FileToCompact and FileToCompactLevel name the seek-triggered
	// compaction target, if any.
	FileToCompact      *manifest.FileMetaData
	FileToCompactLevel int

	refs int32
}

// NewVersion builds a Version over files, one slice per level, wiring
// each into a Level backed by cache. The returned Version starts with a
// refcount of 1.
func NewVersion(files [NumLevels][]*manifest.FileMetaData, cmp *base.InternalKeyComparator, cache TableCache) *Version {
	v := &Version{CompactionLevel: -1, refs: 1}
	for i := range files {
		v.levels[i] = NewLevel(i, files[i], cmp, cache)
	}
	return v
}

// Retain increments the refcount.
func (v *Version) Retain() {
	atomic.AddInt32(&v.refs, 1)
}

// Release decrements the refcount, reporting whether it reached zero.
// The caller is responsible for unlinking v from VersionSet's
// active-versions list when this returns true.
func (v *Version) Release() bool {
	return atomic.AddInt32(&v.refs, -1) == 0
}

// Files returns level's file list.
func (v *Version) Files(level int) []*manifest.FileMetaData {
	return v.levels[level].Files
}

// NumberOfFilesInLevel returns the file count at level.
func (v *Version) NumberOfFilesInLevel(level int) int {
	return len(v.levels[level].Files)
}

// NumberOfBytesInLevel returns the sum of file sizes at level. The
// original Java VersionSet.numberOfBytesInLevel returns the file count
// instead of summing bytes — an open question spec.md §9 flags as
// almost certainly a bug; this implementation sums bytes, as the
// function name promises.
func (v *Version) NumberOfBytesInLevel(level int) int64 {
	var sum int64
	for _, f := range v.levels[level].Files {
		sum += int64(f.Size)
	}
	return sum
}

// OverlapInLevel reports whether any file at level overlaps
// [smallestUserKey, largestUserKey].
func (v *Version) OverlapInLevel(level int, smallestUserKey, largestUserKey []byte) bool {
	return v.levels[level].SomeFileOverlapsRange(level > 0, smallestUserKey, largestUserKey)
}

// Iterator returns a MergingIterator over every level's iterator: L0's
// (itself already a merge of overlapping files) and each L>=1's
// concatenating iterator.
func (v *Version) Iterator(cmp *base.InternalKeyComparator) *MergingIterator {
	iters := make([]base.InternalIterator, 0, NumLevels)
	for _, l := range v.levels {
		if len(l.Files) == 0 {
			continue
		}
		iters = append(iters, l.Iterator())
	}
	return NewMergingIterator(cmp, iters...)
}

// Get descends L0..L(NumLevels-1) for key, returning the first hit. A
// DELETION record short-circuits as base.ErrNotFound, matching a live
// miss to the caller's eyes: spec.md §7 treats both as the same "normal
// result, not a failure." If a probe exhausts a file's seek budget, that
// file is recorded as FileToCompact / FileToCompactLevel so the planner
// can schedule a seek-compaction.
func (v *Version) Get(key LookupKey) (value []byte, err error) {
	var readStats, lastReadFile ReadStats
	value, err = nil, base.ErrNotFound

	for level := 0; level < NumLevels; level++ {
		l := v.levels[level]
		if len(l.Files) == 0 {
			continue
		}
		levelValue, found, levelErr := l.Get(key, &readStats, &lastReadFile)
		if levelErr != nil && levelErr != base.ErrNotFound {
			value, err = nil, levelErr
			break
		}
		if found {
			value, err = levelValue, levelErr
			break
		}
	}

	// The seek candidate is charged at most once per Get, after the
	// level loop has finished consulting every file it needs to —
	// charging it inside the loop would tax the same file once per
	// level still probed below it.
	if readStats.SeekFile != nil && v.FileToCompact == nil {
		if readStats.SeekFile.RecordSeek() {
			v.FileToCompact = readStats.SeekFile
			v.FileToCompactLevel = readStats.SeekFileLevel
		}
	}

	return value, err
}

// AssertNoOverlappingFiles panics if level>=1's files violate the
// disjoint-and-sorted invariant. Intended for use in tests and recovery,
// mirroring the Java Builder.saveTo's debug-only assertion.
func (v *Version) AssertNoOverlappingFiles(cmp *base.InternalKeyComparator, level int) {
	if level == 0 {
		return
	}
	files := v.levels[level].Files
	for i := 1; i < len(files); i++ {
		if cmp.Compare(files[i-1].Largest, files[i].Smallest) >= 0 {
			panic("leveldb: overlapping files in level >= 1")
		}
	}
}
