// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/codec"
	"github.com/ddf8196/leveldb/internal/manifest"
	"github.com/ddf8196/leveldb/internal/table"
	"github.com/ddf8196/leveldb/internal/vfs"
)

// Compaction describes one planned merge of Level and Level+1 inputs into
// a new set of Level+1 files, as produced by VersionSet.PickCompaction or
// VersionSet.CompactRange. Grounded on khushmanvar-hyperfork/compaction.go's
// compaction struct; no Java Compaction.java exists in the retrieved
// original source, so the run loop below follows the teacher's shape and
// spec.md §4.6's text rather than a ported original.
type Compaction struct {
	Level             int
	Inputs            [2][]*manifest.FileMetaData
	Grandparents      []*manifest.FileMetaData
	MaxOutputFileSize int64
	Edit              *manifest.VersionEdit

	vs *VersionSet

	// inputVersion is the Version PickCompaction/CompactRange read
	// Inputs/Grandparents from, retained for the compaction's lifetime so
	// IsBaseLevelForKey sees a consistent snapshot even if vs.current
	// moves on while this compaction runs. Release it via Close once the
	// compaction's edit has been applied.
	inputVersion *Version

	grandparentIndex int
	seenKey          bool
	overlappedBytes  int64
}

// Close releases the Version this compaction was planned against.
func (c *Compaction) Close() {
	c.inputVersion.Release()
}

// IsTrivialMove reports whether this compaction can skip merging entirely
// and just move its single input file to Level+1: no level+1 overlap and
// not so much grandparent overlap that the move would saddle the next
// compaction with excess read amplification.
func (c *Compaction) IsTrivialMove() bool {
	return len(c.Inputs[0]) == 1 && len(c.Inputs[1]) == 0 &&
		totalFileSize(c.Grandparents) <= c.vs.opts.MaxGrandParentOverlapBytes()
}

// InputIterator returns a MergingIterator over every input file: an N-way
// merge of the level's files when Level is 0 (they may overlap), else a
// single concatenating iterator, always merged against a concatenating
// iterator over the level+1 inputs.
func (c *Compaction) InputIterator() base.InternalIterator {
	cmp, cache := c.vs.cmp, c.vs.tableCache
	var iters []base.InternalIterator
	switch {
	case c.Level == 0:
		for _, f := range c.Inputs[0] {
			it, err := cache.NewIterator(f)
			if err != nil {
				it = &base.ErrIterator{Err: err}
			}
			iters = append(iters, it)
		}
	case len(c.Inputs[0]) > 0:
		iters = append(iters, newLevelIter(cmp, cache, c.Inputs[0]))
	}
	if len(c.Inputs[1]) > 0 {
		iters = append(iters, newLevelIter(cmp, cache, c.Inputs[1]))
	}
	return NewMergingIterator(cmp, iters...)
}

// IsBaseLevelForKey reports whether no level beyond Level+1 holds a file
// overlapping userKey. A DELETE tombstone at or below the smallest live
// snapshot can only be dropped for good when this holds — otherwise a
// deeper level's now-shadowed record for the same user key would
// resurface on a later read.
func (c *Compaction) IsBaseLevelForKey(userKey []byte) bool {
	for level := c.Level + 2; level < NumLevels; level++ {
		if c.inputVersion.OverlapInLevel(level, userKey, userKey) {
			return false
		}
	}
	return true
}

// AddInputDeletions records every input file as removed in edit.
func (c *Compaction) AddInputDeletions(edit *manifest.VersionEdit) {
	for which := 0; which < 2; which++ {
		for _, f := range c.Inputs[which] {
			edit.DeleteFile(c.Level+which, f.Number)
		}
	}
}

// ShouldStopBefore reports whether the output file being built should be
// closed before key is added to it, because the run has now overlapped
// more than MaxGrandParentOverlapBytes of level+2 data. Grandparent
// overlap bounds how much of level+2 a single compaction's output file
// can shadow, which in turn bounds how much that file will need to be
// read back and recompacted once it in turn becomes a compaction input.
func (c *Compaction) ShouldStopBefore(key base.InternalKey) bool {
	cmp := c.vs.cmp
	for c.grandparentIndex < len(c.Grandparents) &&
		cmp.Compare(key, c.Grandparents[c.grandparentIndex].Largest) > 0 {
		if c.seenKey {
			c.overlappedBytes += int64(c.Grandparents[c.grandparentIndex].Size)
		}
		c.grandparentIndex++
	}
	c.seenKey = true
	if c.overlappedBytes > c.vs.opts.MaxGrandParentOverlapBytes() {
		c.overlappedBytes = 0
		return true
	}
	return false
}

// Run executes the compaction: merges Inputs[0] and Inputs[1] in
// ascending order, elides records the merge makes unreachable, and
// writes the survivors out as new level+1 tables. smallestSnapshot is the
// lowest sequence number any live snapshot still needs to see; pass the
// VersionSet's LastSequence if there are no live snapshots. The returned
// edit (c.Edit, also mutated in place) carries the input deletions and
// new-file additions; the caller commits it via VersionSet.LogAndApply.
//
// Grounded on the elision rule from LevelDB's DBImpl::DoCompactionWork,
// adapted to this core's Builder/TableCache collaborators; the
// grandparent-overlap output-closing is khushmanvar-hyperfork's own
// addition to that algorithm, kept here as ShouldStopBefore.
func (c *Compaction) Run(fs vfs.FS, dirname string, smallestSnapshot uint64) (resultEdit *manifest.VersionEdit, resultErr error) {
	info := CompactionInfo{
		JobID:  NewJobID(),
		Reason: compactionReason(c),
		Input:  []LevelInfo{levelInfo(c.Level, c.Inputs[0]), levelInfo(c.Level+1, c.Inputs[1])},
	}
	if begin := c.vs.opts.EventListener.CompactionBegin; begin != nil {
		begin(info)
	}
	defer func() {
		info.Err = resultErr
		if end := c.vs.opts.EventListener.CompactionEnd; end != nil {
			end(info)
		}
	}()

	edit := c.Edit
	c.AddInputDeletions(edit)

	ucmp := c.vs.cmp.UserComparer
	iter := c.InputIterator()
	defer iter.Close()

	var builder *table.Builder
	var outputSize int64
	var currentUserKey []byte
	hasCurrentUserKey := false
	lastSequenceForKey := base.MaxSeqNum

	flush := func() error {
		if builder == nil || builder.Empty() {
			builder = nil
			return nil
		}
		smallest, largest := builder.Smallest(), builder.Largest()
		data := builder.Finish(codec.SnappyCompressor)
		builder = nil

		num := c.vs.NextFileNumber()
		meta := &manifest.FileMetaData{Number: num}
		f, err := fs.NewAppendableFile(dirname + "/" + meta.Filename())
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		meta.Size = uint64(len(data))
		meta.Smallest = smallest
		meta.Largest = largest
		meta.Compression = codec.Snappy
		edit.AddFile(c.Level+1, meta)
		info.Output.Level = c.Level + 1
		info.Output.NumFiles++
		info.Output.Size += int64(meta.Size)
		return nil
	}

	for valid := iter.First(); valid; valid = iter.Next() {
		key := iter.Key()
		drop := false

		if !hasCurrentUserKey || ucmp.Compare(key.UserKey, currentUserKey) != 0 {
			currentUserKey = append(currentUserKey[:0], key.UserKey...)
			hasCurrentUserKey = true
			lastSequenceForKey = base.MaxSeqNum
		}

		switch {
		case lastSequenceForKey <= smallestSnapshot:
			// An entry for this user key with a higher (i.e. newer, since
			// the comparator orders sequence numbers descending) sequence
			// already survived the merge and shadows this one for every
			// live snapshot.
			drop = true
		case key.Kind() == base.InternalKeyKindDelete &&
			key.SeqNum() <= smallestSnapshot &&
			c.IsBaseLevelForKey(key.UserKey):
			drop = true
		}
		lastSequenceForKey = key.SeqNum()

		if drop {
			continue
		}

		if builder != nil && c.ShouldStopBefore(key) {
			if err := flush(); err != nil {
				return nil, err
			}
			outputSize = 0
		}
		if builder == nil {
			builder = table.NewBuilder(c.vs.cmp)
		}
		builder.Add(key, iter.Value())
		outputSize += int64(len(key.UserKey)) + 8 + int64(len(iter.Value()))

		if outputSize >= c.MaxOutputFileSize {
			if err := flush(); err != nil {
				return nil, err
			}
			outputSize = 0
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return edit, nil
}

// levelInfo summarizes files' participation in a compaction for a
// CompactionInfo hook.
func levelInfo(level int, files []*manifest.FileMetaData) LevelInfo {
	return LevelInfo{Level: level, NumFiles: len(files), Size: totalFileSize(files)}
}

// compactionReason labels why c was picked, for observability hooks.
func compactionReason(c *Compaction) string {
	if c.IsTrivialMove() {
		return "trivial-move"
	}
	return "merge"
}
