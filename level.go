// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"sort"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
)

// LookupKey bundles the user key a read targets with the internal key
// used to position table iterators: the user key paired with the
// sequence number visible to the read (at the DELETE kind, the larger of
// the two kinds for a given sequence, so SeekGE lands on the newest
// visible record for that user key). Grounded on
// org.iq80.leveldb.impl.LookupKey.
type LookupKey struct {
	UserKey  []byte
	Internal base.InternalKey
}

// MakeLookupKey builds a LookupKey for userKey as observed at seqNum.
func MakeLookupKey(userKey []byte, seqNum uint64) LookupKey {
	return LookupKey{
		UserKey:  userKey,
		Internal: base.MakeInternalKey(userKey, seqNum, base.InternalKeyKindDelete),
	}
}

// ReadStats accumulates the seek-charge bookkeeping a multi-level Get
// threads through its probes, per spec.md §4.2: "for each probe beyond
// the first on this read, charge the first probed file into
// read_stats.seek_file."
type ReadStats struct {
	SeekFile      *manifest.FileMetaData
	SeekFileLevel int
}

// Level is one tier of the LSM: L0's files may overlap; L>=1's are
// disjoint and sorted by Smallest.
type Level struct {
	Number int
	Files  []*manifest.FileMetaData

	cmp   *base.InternalKeyComparator
	cache TableCache
}

// NewLevel constructs a Level over files, which the caller has already
// established obey this level's ordering invariant.
func NewLevel(number int, files []*manifest.FileMetaData, cmp *base.InternalKeyComparator, cache TableCache) *Level {
	return &Level{Number: number, Files: files, cmp: cmp, cache: cache}
}

// Iterator returns an iterator over the level's files: for L0, an N-way
// merge (files overlap); for L>=1, a two-level concatenating iterator
// over the disjoint, sorted files.
func (l *Level) Iterator() base.InternalIterator {
	if l.Number == 0 {
		iters := make([]base.InternalIterator, len(l.Files))
		for i, f := range l.Files {
			it, err := l.cache.NewIterator(f)
			if err != nil {
				return &base.ErrIterator{Err: err}
			}
			iters[i] = it
		}
		return NewMergingIterator(l.cmp, iters...)
	}
	return newLevelIter(l.cmp, l.cache, l.Files)
}

// filesForKey returns the candidate files that could contain userKey,
// in probe order: for L0, all overlapping files newest-first by file
// number; for L>=1, the single file the binary search lands on, or none.
func (l *Level) filesForKey(userKey []byte) []*manifest.FileMetaData {
	ucmp := l.cmp.UserComparer
	if l.Number == 0 {
		var candidates []*manifest.FileMetaData
		for _, f := range l.Files {
			if ucmp.Compare(userKey, f.Smallest.UserKey) >= 0 && ucmp.Compare(userKey, f.Largest.UserKey) <= 0 {
				candidates = append(candidates, f)
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Number > candidates[j].Number })
		return candidates
	}

	index := l.findFile(userKey)
	if index >= len(l.Files) {
		return nil
	}
	f := l.Files[index]
	if ucmp.Compare(userKey, f.Smallest.UserKey) < 0 {
		return nil
	}
	return []*manifest.FileMetaData{f}
}

// Get probes this level's candidate files for userKey, charging seeks
// into readStats/lastReadFile per spec.md §4.2. It returns (value,
// found, err); found is false on a miss, and a DELETION hit reports
// found=true with base.ErrNotFound wrapped as the "tombstone" outcome
// recognized by Version.Get.
func (l *Level) Get(key LookupKey, readStats, lastReadFile *ReadStats) (value []byte, found bool, err error) {
	candidates := l.filesForKey(key.UserKey)
	for _, f := range candidates {
		if lastReadFile.SeekFile != nil && readStats.SeekFile == nil {
			readStats.SeekFile = lastReadFile.SeekFile
			readStats.SeekFileLevel = lastReadFile.SeekFileLevel
		}
		lastReadFile.SeekFile = f
		lastReadFile.SeekFileLevel = l.Number

		v, ok, err := l.cache.Get(key.Internal, f)
		if err != nil && err != base.ErrNotFound {
			return nil, false, err
		}
		if ok {
			return v, true, err
		}
	}
	return nil, false, nil
}

// findFile binary searches the disjoint, sorted file list for the
// earliest file whose Largest >= targetKey, returning len(Files) if none
// qualifies. Grounded on Level.java's findFile.
func (l *Level) findFile(userKey []byte) int {
	target := base.MakeInternalKey(userKey, base.MaxSeqNum, base.InternalKeyKindValue)
	return sort.Search(len(l.Files), func(i int) bool {
		return l.cmp.Compare(l.Files[i].Largest, target) >= 0
	})
}

// SomeFileOverlapsRange reports whether any file in the level overlaps
// [smallestUserKey, largestUserKey]. A nil bound is unbounded on that
// side. When disjoint is true the level's sorted-and-disjoint invariant
// (true for L>=1) lets this binary search instead of scan.
func (l *Level) SomeFileOverlapsRange(disjoint bool, smallestUserKey, largestUserKey []byte) bool {
	ucmp := l.cmp.UserComparer
	beforeFile := func(userKey []byte, f *manifest.FileMetaData) bool {
		return userKey != nil && ucmp.Compare(userKey, f.Smallest.UserKey) < 0
	}
	afterFile := func(userKey []byte, f *manifest.FileMetaData) bool {
		return userKey != nil && ucmp.Compare(userKey, f.Largest.UserKey) > 0
	}

	if !disjoint {
		for _, f := range l.Files {
			if !(afterFile(smallestUserKey, f) || beforeFile(largestUserKey, f)) {
				return true
			}
		}
		return false
	}

	index := 0
	if smallestUserKey != nil {
		index = l.findFile(smallestUserKey)
	}
	if index >= len(l.Files) {
		return false
	}
	return !beforeFile(largestUserKey, l.Files[index])
}

// levelIter is the two-level concatenating iterator for L>=1: an outer
// binary search over file bounds with an inner per-file iterator opened
// lazily as the outer position changes. Grounded on
// khushmanvar-hyperfork/level_iter.go, generalized to support Prev/Last
// and a TableCache instead of a bare vfs.Open call.
type levelIter struct {
	cmp   *base.InternalKeyComparator
	cache TableCache
	files []*manifest.FileMetaData

	index int
	inner base.InternalIterator
	err   error
}

func newLevelIter(cmp *base.InternalKeyComparator, cache TableCache, files []*manifest.FileMetaData) *levelIter {
	return &levelIter{cmp: cmp, cache: cache, files: files, index: -1}
}

func (l *levelIter) openAt(index int) bool {
	if l.inner != nil {
		if err := l.inner.Close(); err != nil && l.err == nil {
			l.err = err
		}
		l.inner = nil
	}
	l.index = index
	if l.err != nil || index < 0 || index >= len(l.files) {
		return false
	}
	it, err := l.cache.NewIterator(l.files[index])
	if err != nil {
		l.err = err
		return false
	}
	l.inner = it
	return true
}

func (l *levelIter) findFile(key base.InternalKey) int {
	return sort.Search(len(l.files), func(i int) bool {
		return l.cmp.Compare(l.files[i].Largest, key) >= 0
	})
}

func (l *levelIter) findFileBackward(key base.InternalKey) int {
	// Largest index whose Smallest < key; -1 if none.
	i := sort.Search(len(l.files), func(i int) bool {
		return l.cmp.Compare(l.files[i].Smallest, key) >= 0
	})
	return i - 1
}

func (l *levelIter) SeekGE(key base.InternalKey) bool {
	if !l.openAt(l.findFile(key)) {
		return false
	}
	return l.inner.SeekGE(key)
}

func (l *levelIter) SeekLT(key base.InternalKey) bool {
	if !l.openAt(l.findFileBackward(key)) {
		return false
	}
	return l.inner.SeekLT(key)
}

func (l *levelIter) First() bool {
	if !l.openAt(0) {
		return false
	}
	return l.inner.First()
}

func (l *levelIter) Last() bool {
	if !l.openAt(len(l.files) - 1) {
		return false
	}
	return l.inner.Last()
}

func (l *levelIter) Next() bool {
	if l.inner != nil && l.inner.Next() {
		return true
	}
	for {
		if !l.openAt(l.index + 1) {
			return false
		}
		if l.inner.First() {
			return true
		}
	}
}

func (l *levelIter) Prev() bool {
	if l.inner != nil && l.inner.Prev() {
		return true
	}
	for {
		if !l.openAt(l.index - 1) {
			return false
		}
		if l.inner.Last() {
			return true
		}
	}
}

func (l *levelIter) Valid() bool {
	return l.err == nil && l.inner != nil && l.inner.Valid()
}

func (l *levelIter) Key() base.InternalKey { return l.inner.Key() }
func (l *levelIter) Value() []byte         { return l.inner.Value() }

func (l *levelIter) Close() error {
	if l.inner != nil {
		if err := l.inner.Close(); err != nil && l.err == nil {
			l.err = err
		}
		l.inner = nil
	}
	return l.err
}
