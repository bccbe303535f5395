// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package manifest holds the immutable, on-disk-shaped types describing
// the LSM's file catalogue: FileMetaData and VersionEdit.
package manifest

import (
	"fmt"
	"sync/atomic"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/codec"
)

// seekBytesPerCharge is the number of bytes of table data a single seek is
// assumed to cost as much I/O as. A file is charged one seek when a read
// probes it first and then has to probe another file; once its
// allowed-seek budget is exhausted it becomes a seek-compaction candidate.
//
// One seek costs about 10ms; reading or writing 1MB costs about 10ms at
// 100MB/s; a compaction of 1MB does about 25MB of I/O. So 25 seeks cost
// about as much as compacting 1MB, i.e. one seek costs about the same as
// compacting 40KB. We're conservative and allow one seek per 16KB.
const seekBytesPerCharge = 16384

// minAllowedSeeks is the floor on a file's seek budget, so that very
// small files aren't immediately seek-compacted.
const minAllowedSeeks = 100

// FileMetaData is the immutable descriptor for one on-disk sorted table.
// Number is never reused within a database. Smallest and Largest are
// inclusive bounds; Smallest <= Largest always holds.
type FileMetaData struct {
	// Number uniquely identifies the table file.
	Number uint64
	// Size is the table's size on disk, in bytes.
	Size uint64
	// Smallest is the smallest internal key stored in the table.
	Smallest base.InternalKey
	// Largest is the largest internal key stored in the table.
	Largest base.InternalKey
	// SmallestSeqNum and LargestSeqNum bound the sequence numbers of
	// records in the table. Nothing in this module sets or reads them,
	// and VersionEdit does not encode them.
	SmallestSeqNum uint64
	LargestSeqNum  uint64
	// Compression names the block compressor used to write the table's
	// data blocks. The core never reads it itself; it's metadata handed
	// to whatever TableCache implementation opens the file.
	Compression codec.Type

	// allowedSeeks is the remaining seek budget before this file becomes
	// a seek-compaction candidate. Mutated without a lock (atomic),
	// following the concurrency model's "Version refcount: mutated
	// without the mutex" policy for the same kind of high-frequency,
	// read-path counter.
	allowedSeeks int64
}

// Filename returns the on-disk name for this table, using the .ldb
// extension (spec.md §6 lists both .ldb and .sst; .ldb is this engine's
// choice).
func (f *FileMetaData) Filename() string {
	return fmt.Sprintf("%06d.ldb", f.Number)
}

// InitAllowedSeeks sets the file's seek budget from its size, per the
// max(100, size/16KiB) formula. Called exactly once, when a file is
// admitted to a Version by Builder.Apply.
func (f *FileMetaData) InitAllowedSeeks() {
	seeks := int64(f.Size / seekBytesPerCharge)
	if seeks < minAllowedSeeks {
		seeks = minAllowedSeeks
	}
	atomic.StoreInt64(&f.allowedSeeks, seeks)
}

// AllowedSeeks returns the file's current remaining seek budget.
func (f *FileMetaData) AllowedSeeks() int64 {
	return atomic.LoadInt64(&f.allowedSeeks)
}

// RecordSeek charges one seek against the file's budget and reports
// whether this charge was the one that exhausted it (budget transitioned
// from positive to zero-or-below). The caller uses that transition, not
// the current value, to decide whether to nominate the file for
// seek-compaction exactly once.
func (f *FileMetaData) RecordSeek() (justExhausted bool) {
	v := atomic.AddInt64(&f.allowedSeeks, -1)
	return v == 0
}
