// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"sort"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
)

// levelState accumulates one level's pending additions and deletions
// while a Builder applies a sequence of edits. Grounded on
// org.iq80.leveldb.impl.VersionSet.Builder.LevelState.
type levelState struct {
	added   []*manifest.FileMetaData
	deleted map[uint64]struct{}
}

// Builder applies a sequence of VersionEdits against a base Version
// without materializing intermediate Versions, per spec.md §4.5.
type Builder struct {
	vs     *VersionSet
	base   *Version
	levels [NumLevels]levelState
}

// NewBuilder returns a Builder rooted on base, retaining it for the
// Builder's lifetime.
func NewBuilder(vs *VersionSet, base *Version) *Builder {
	base.Retain()
	b := &Builder{vs: vs, base: base}
	for i := range b.levels {
		b.levels[i].deleted = make(map[uint64]struct{})
	}
	return b
}

// Apply merges edit into the builder's pending state: compact pointers
// propagate straight to the parent VersionSet (last-wins within one
// apply sequence); deletions are recorded per level; new files get their
// seek budget initialized and cancel any pending deletion of the same
// number within this batch.
func (b *Builder) Apply(edit *manifest.VersionEdit) {
	for _, cp := range edit.CompactPointers {
		b.vs.compactPointers[cp.Level] = cp.Key
	}

	for _, df := range edit.DeletedFiles {
		b.levels[df.Level].deleted[df.Number] = struct{}{}
	}

	for _, nf := range edit.NewFiles {
		nf.Meta.InitAllowedSeeks()
		delete(b.levels[nf.Level].deleted, nf.Meta.Number)
		b.levels[nf.Level].added = append(b.levels[nf.Level].added, nf.Meta)
	}
}

// bySmallestThenNumber orders files the way Builder.SaveTo must merge
// them: by Smallest under the internal-key comparator, then by Number to
// break ties deterministically. Grounded on VersionSet.Builder's
// FileMetaDataBySmallestKey.
func bySmallestThenNumber(cmp *base.InternalKeyComparator, files []*manifest.FileMetaData) {
	sort.Slice(files, func(i, j int) bool {
		if c := cmp.Compare(files[i].Smallest, files[j].Smallest); c != 0 {
			return c < 0
		}
		return files[i].Number < files[j].Number
	})
}

// SaveTo merges the builder's pending state against the base Version and
// constructs the resulting file lists, one per level. It returns
// base.ErrCompactionObsolete if merging would leave level>=1 with
// overlapping files — the signal that a concurrent flush raced this
// compaction and its output must be discarded, per spec.md §4.5/§7.
func (b *Builder) SaveTo(cmp *base.InternalKeyComparator) (files [NumLevels][]*manifest.FileMetaData, err error) {
	for level := 0; level < NumLevels; level++ {
		merged := make([]*manifest.FileMetaData, 0, len(b.base.Files(level))+len(b.levels[level].added))
		merged = append(merged, b.base.Files(level)...)
		merged = append(merged, b.levels[level].added...)
		bySmallestThenNumber(cmp, merged)

		out := make([]*manifest.FileMetaData, 0, len(merged))
		for _, f := range merged {
			if _, deleted := b.levels[level].deleted[f.Number]; deleted {
				continue
			}
			if level > 0 && len(out) > 0 && cmp.Compare(out[len(out)-1].Largest, f.Smallest) >= 0 {
				return [NumLevels][]*manifest.FileMetaData{}, base.ErrCompactionObsolete
			}
			out = append(out, f)
		}
		files[level] = out
	}
	return files, nil
}

// Close releases the builder's retained base Version.
func (b *Builder) Close() {
	b.base.Release()
}
