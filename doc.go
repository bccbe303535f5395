// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package leveldb implements the catalogue core of an embedded, ordered
// log-structured merge-tree key/value store: the Version/VersionSet file
// catalogue, the compaction planner, level geometry and lookup, and the
// bidirectional merging iterator that stitches levels together into one
// ordered view. A MemTable, write-ahead log, and on-disk SSTable block
// format are out of scope — internal/table stands in for the latter with
// just enough of a reader/writer to exercise everything above it against
// real file contents.
package leveldb
