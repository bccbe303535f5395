// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "errors"

var (
	// ErrNotFound is returned by a lookup that found no entry for the key.
	// It is a normal result, not a failure.
	ErrNotFound = errors.New("leveldb: key not found")

	// ErrCorruption is returned when on-disk state (most commonly the
	// MANIFEST) cannot be decoded, or decodes to something that violates an
	// invariant the format guarantees.
	ErrCorruption = errors.New("leveldb: corruption")

	// ErrInvalidArgument names caller errors: an out-of-range level, a
	// decreasing last-sequence-number, and similar precondition
	// violations. No function in this module returns it; those
	// preconditions are not checked.
	ErrInvalidArgument = errors.New("leveldb: invalid argument")

	// ErrCompactionObsolete is returned by Builder.SaveTo when it detects
	// that applying a compaction's edit would overlap two files at a level
	// that must be disjoint. It means a concurrent flush raced the
	// compaction; the compaction's outputs are discarded and the caller may
	// retry on the next planner tick.
	ErrCompactionObsolete = errors.New("leveldb: compaction is obsolete: overlapping files")
)
