// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
)

// PickCompaction selects the next compaction's inputs, preferring a
// size-triggered compaction over a seek-triggered one, per spec.md §4.6.
// It returns nil if the current Version needs no compaction. A non-nil
// result retains a Version internally; the caller must call Close once
// it has applied (or discarded) the compaction's edit.
//
// Grounded on VersionSet.java's pickCompaction; hyperfork's own
// compactionPicker.pick is a much simplified "biggest overlap" heuristic
// that doesn't implement compact_pointers, boundary files, or the growth
// heuristic, so this follows the original instead.
func (vs *VersionSet) PickCompaction() *Compaction {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	v := vs.current
	sizeCompaction := v.CompactionScore >= 1
	seekCompaction := v.FileToCompact != nil

	var level int
	var levelInputs []*manifest.FileMetaData

	switch {
	case sizeCompaction:
		level = v.CompactionLevel
		cp, hasPointer := vs.compactPointers[level]
		for _, f := range v.Files(level) {
			if !hasPointer || vs.cmp.Compare(f.Largest, cp) > 0 {
				levelInputs = append(levelInputs, f)
				break
			}
		}
		if len(levelInputs) == 0 {
			levelInputs = []*manifest.FileMetaData{v.Files(level)[0]}
		}
	case seekCompaction:
		level = v.FileToCompactLevel
		levelInputs = []*manifest.FileMetaData{v.FileToCompact}
	default:
		return nil
	}

	if level == 0 {
		smallest, largest := keyRange(vs.cmp, levelInputs)
		levelInputs = vs.OverlappingInputs(0, smallest, largest)
	}

	return vs.setupOtherInputs(level, levelInputs)
}

// CompactRange returns a Compaction covering every file at level that
// overlaps [begin, end], or nil if none do.
func (vs *VersionSet) CompactRange(level int, begin, end base.InternalKey) *Compaction {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	levelInputs := vs.OverlappingInputs(level, begin, end)
	if len(levelInputs) == 0 {
		return nil
	}
	return vs.setupOtherInputs(level, levelInputs)
}

// largestKey returns the largest Largest among files, or the zero
// InternalKey (invalid) if files is empty.
func largestKey(cmp *base.InternalKeyComparator, files []*manifest.FileMetaData) base.InternalKey {
	if len(files) == 0 {
		return base.InternalKey{}
	}
	largest := files[0].Largest
	for _, f := range files[1:] {
		if cmp.Compare(f.Largest, largest) > 0 {
			largest = f.Largest
		}
	}
	return largest
}

// findSmallestBoundaryFile returns the file in levelFiles with the
// smallest Smallest among those whose Smallest exceeds largestKey in
// internal-key order but shares its user key, or nil if none qualifies.
func findSmallestBoundaryFile(cmp *base.InternalKeyComparator, levelFiles []*manifest.FileMetaData, largestKey base.InternalKey) *manifest.FileMetaData {
	var result *manifest.FileMetaData
	for _, f := range levelFiles {
		if cmp.Compare(f.Smallest, largestKey) > 0 && cmp.UserComparer.Compare(f.Smallest.UserKey, largestKey.UserKey) == 0 {
			if result == nil || cmp.Compare(f.Smallest, result.Smallest) < 0 {
				result = f
			}
		}
	}
	return result
}

// AddBoundaryInputs extends compactionFiles, in place, with every file
// from levelFiles that shares a user key with compactionFiles' current
// largest key and sorts immediately after it — repeating until no more
// qualify. This prevents a post-compaction read from seeing a
// not-yet-compacted file shadow the freshly compacted record for the
// same user key. Grounded on VersionSet.java's addBoundaryInputs; it is
// idempotent by construction (a second call finds no file satisfying the
// strict ">" test against the now-included boundary file).
func AddBoundaryInputs(cmp *base.InternalKeyComparator, levelFiles []*manifest.FileMetaData, compactionFiles *[]*manifest.FileMetaData) {
	largest := largestKey(cmp, *compactionFiles)
	if !largest.IsValid() {
		return
	}
	for {
		b := findSmallestBoundaryFile(cmp, levelFiles, largest)
		if b == nil {
			return
		}
		*compactionFiles = append(*compactionFiles, b)
		largest = b.Largest
	}
}

// keyRange returns the smallest Smallest and largest Largest among one
// or more file lists.
func keyRange(cmp *base.InternalKeyComparator, lists ...[]*manifest.FileMetaData) (smallest, largest base.InternalKey) {
	first := true
	for _, list := range lists {
		for _, f := range list {
			if first {
				smallest, largest = f.Smallest, f.Largest
				first = false
				continue
			}
			if cmp.Compare(f.Smallest, smallest) < 0 {
				smallest = f.Smallest
			}
			if cmp.Compare(f.Largest, largest) > 0 {
				largest = f.Largest
			}
		}
	}
	return smallest, largest
}

// OverlappingInputs returns every file at level whose user-key range
// intersects [begin, end] (an invalid begin/end means -inf/+inf). For
// L0, whose files may overlap each other, discovering a file that
// widens the range restarts the scan so the final result is closed under
// overlap. Grounded on VersionSet.java's getOverlappingInputs.
func (vs *VersionSet) OverlappingInputs(level int, begin, end base.InternalKey) []*manifest.FileMetaData {
	ucmp := vs.cmp.UserComparer
	var userBegin, userEnd []byte
	if begin.IsValid() {
		userBegin = begin.UserKey
	}
	if end.IsValid() {
		userEnd = end.UserKey
	}

	var inputs []*manifest.FileMetaData
	files := vs.current.Files(level)
	for i := 0; i < len(files); i++ {
		f := files[i]
		fileStart, fileLimit := f.Smallest.UserKey, f.Largest.UserKey
		if userBegin != nil && ucmp.Compare(fileLimit, userBegin) < 0 {
			continue
		}
		if userEnd != nil && ucmp.Compare(fileStart, userEnd) > 0 {
			continue
		}
		inputs = append(inputs, f)
		if level == 0 {
			if userBegin != nil && ucmp.Compare(fileStart, userBegin) < 0 {
				userBegin = fileStart
				inputs = inputs[:0]
				i = -1
			} else if userEnd != nil && ucmp.Compare(fileLimit, userEnd) > 0 {
				userEnd = fileLimit
				inputs = inputs[:0]
				i = -1
			}
		}
	}
	return inputs
}

// setupOtherInputs expands levelInputs with boundary files, computes the
// matching level+1 input set (also boundary-expanded), applies the
// growth heuristic to try pulling in more of level without changing the
// level+1 set, and collects grandparent overlap for the run to use as
// its output-file-size stop condition. It also advances
// compact_pointers[level], both in vs and in the edit the Compaction
// carries. Grounded on VersionSet.java's setupOtherInputs.
func (vs *VersionSet) setupOtherInputs(level int, levelInputs []*manifest.FileMetaData) *Compaction {
	AddBoundaryInputs(vs.cmp, vs.current.Files(level), &levelInputs)
	smallest, largest := keyRange(vs.cmp, levelInputs)

	levelUpInputs := vs.OverlappingInputs(level+1, smallest, largest)
	AddBoundaryInputs(vs.cmp, vs.current.Files(level+1), &levelUpInputs)

	allStart, allLimit := keyRange(vs.cmp, levelInputs, levelUpInputs)

	if len(levelUpInputs) > 0 {
		expanded0 := vs.OverlappingInputs(level, allStart, allLimit)
		AddBoundaryInputs(vs.cmp, vs.current.Files(level), &expanded0)

		levelUpInputSize := totalFileSize(levelUpInputs)
		expanded0Size := totalFileSize(expanded0)

		if len(expanded0) > len(levelInputs) && levelUpInputSize+expanded0Size < vs.opts.ExpandedCompactionByteSizeLimit() {
			newStart, newLimit := keyRange(vs.cmp, expanded0)
			expanded1 := vs.OverlappingInputs(level+1, newStart, newLimit)
			AddBoundaryInputs(vs.cmp, vs.current.Files(level+1), &expanded1)

			if len(expanded1) == len(levelUpInputs) {
				largest = newLimit
				levelInputs = expanded0
				levelUpInputs = expanded1
				allStart, allLimit = keyRange(vs.cmp, levelInputs, levelUpInputs)
			}
		}
	}

	var grandparents []*manifest.FileMetaData
	if level+2 < NumLevels {
		grandparents = vs.OverlappingInputs(level+2, allStart, allLimit)
	}

	vs.compactPointers[level] = largest
	edit := &manifest.VersionEdit{}
	edit.SetCompactPointer(level, largest)

	vs.current.Retain()
	return &Compaction{
		Level:             level,
		Inputs:            [2][]*manifest.FileMetaData{levelInputs, levelUpInputs},
		Grandparents:      grandparents,
		MaxOutputFileSize: vs.opts.TargetFileSize,
		Edit:              edit,
		vs:                vs,
		inputVersion:      vs.current,
	}
}

func totalFileSize(files []*manifest.FileMetaData) int64 {
	var sum int64
	for _, f := range files {
		sum += int64(f.Size)
	}
	return sum
}
