// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"github.com/google/uuid"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/vfs"
)

// NumLevels is the number of levels in the LSM tree.
const NumLevels = 7

// L0CompactionTrigger is the number of L0 files that brings L0's
// compaction score to 1.0.
const L0CompactionTrigger = 4

// Options holds the knobs the catalogue and compaction planner consume.
// Following khushmanvar-hyperfork/options.go's shape, trimmed to what
// this core actually touches: the MemTable- and block-format-sizing
// fields the teacher carries belong to out-of-scope collaborators.
type Options struct {
	// Comparer orders user keys. Its name is persisted in the MANIFEST;
	// Recover rejects a mismatch as corruption.
	Comparer *base.Comparer
	// FS is the filesystem the VersionSet and TableCache use for the
	// MANIFEST, CURRENT, and table files.
	FS vfs.FS
	// Logger receives diagnostic messages.
	Logger vfs.Logger
	// EventListener receives compaction and flush notifications.
	EventListener EventListener
	// TargetFileSize is the target size, in bytes, of a table file
	// produced by a compaction. The same target applies at every level;
	// there are no per-level target sizes.
	TargetFileSize int64
	// L1MaxBytes is the maximum total size of level 1; higher levels'
	// limits are L1MaxBytes * 10^(level-1).
	L1MaxBytes int64
	// ReuseManifest, if true, lets Recover reopen a small existing
	// MANIFEST in append mode instead of always writing a fresh one.
	ReuseManifest bool
}

// EnsureDefaults fills unset fields with their defaults, following
// khushmanvar-hyperfork/options.go's EnsureDefaults pattern, and returns
// o for chaining.
func (o *Options) EnsureDefaults() *Options {
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	if o.FS == nil {
		o.FS = vfs.Default
	}
	if o.Logger == nil {
		o.Logger = o.FS.NewLogger()
	}
	if o.TargetFileSize == 0 {
		o.TargetFileSize = 2 << 20 // 2 MiB
	}
	if o.L1MaxBytes == 0 {
		o.L1MaxBytes = 10 << 20 // 10 MiB
	}
	return o
}

// MaxBytesForLevel returns the byte budget for level, following
// VersionSet.java's maxBytesForLevel: L0's result is unused (L0 is
// bounded by file count, not bytes); L0 and L1 share the base budget,
// multiplying by 10 per level thereafter.
func (o *Options) MaxBytesForLevel(level int) float64 {
	result := float64(o.L1MaxBytes)
	for level > 1 {
		result *= 10
		level--
	}
	return result
}

// MaxGrandParentOverlapBytes bounds how much level+2 data a single
// compaction output file may overlap before the compaction closes it and
// starts a new one.
func (o *Options) MaxGrandParentOverlapBytes() int64 {
	return 10 * o.TargetFileSize
}

// ExpandedCompactionByteSizeLimit bounds how large setupOtherInputs may
// grow a compaction's input set while trying to pull in more level-L
// files without changing its level-L+1 file set.
func (o *Options) ExpandedCompactionByteSizeLimit() int64 {
	return 25 * o.TargetFileSize
}

// EventListener receives notifications of compaction and flush activity,
// following khushmanvar-hyperfork/options.go's EventListener shape.
// Every hook is optional.
type EventListener struct {
	CompactionBegin func(CompactionInfo)
	CompactionEnd   func(CompactionInfo)
	FlushBegin      func(FlushInfo)
	FlushEnd        func(FlushInfo)
}

// LevelInfo summarizes one level's participation in a compaction.
type LevelInfo struct {
	Level    int
	NumFiles int
	Size     int64
}

// CompactionInfo describes one compaction job for observability hooks.
// JobID is a uuid.UUID rather than a counter (SPEC_FULL.md's DOMAIN
// STACK addition) so a scheduler running jobs across multiple goroutines
// can mint identifiers without coordinating over a shared counter.
type CompactionInfo struct {
	JobID  uuid.UUID
	Reason string
	Input  []LevelInfo
	Output LevelInfo
	Err    error
}

// FlushInfo describes a MemTable flush for observability hooks. The
// flush itself is out of this core's scope; the hook exists so a caller
// driving the flush can report through the same EventListener as
// compactions.
type FlushInfo struct {
	JobID  uuid.UUID
	Output LevelInfo
	Err    error
}

// NewJobID mints a fresh job identifier for a CompactionInfo or
// FlushInfo.
func NewJobID() uuid.UUID {
	return uuid.New()
}
