// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
	"github.com/ddf8196/leveldb/internal/table"
)

func TestCompactionIsTrivialMove(t *testing.T) {
	vs, fs := newTestVersionSet(t)
	cmp := vs.cmp
	f1 := writeTestTable(t, fs, "db", cmp, 1, []kv{{"a", 1, base.InternalKeyKindValue, "a"}})
	var files [NumLevels][]*manifest.FileMetaData
	files[1] = []*manifest.FileMetaData{f1}
	installVersion(vs, files)

	c := vs.setupOtherInputs(1, []*manifest.FileMetaData{f1})
	defer c.Close()
	require.True(t, c.IsTrivialMove(), "single input, no level+1 overlap, no grandparent overlap")
}

func TestCompactionIsNotTrivialMoveWithLevelUpOverlap(t *testing.T) {
	vs, fs := newTestVersionSet(t)
	cmp := vs.cmp
	f1 := writeTestTable(t, fs, "db", cmp, 1, []kv{{"a", 1, base.InternalKeyKindValue, "a"}})
	f2 := writeTestTable(t, fs, "db", cmp, 2, []kv{{"a", 1, base.InternalKeyKindValue, "old-a"}})
	var files [NumLevels][]*manifest.FileMetaData
	files[1] = []*manifest.FileMetaData{f1}
	files[2] = []*manifest.FileMetaData{f2}
	installVersion(vs, files)

	c := vs.setupOtherInputs(1, []*manifest.FileMetaData{f1})
	defer c.Close()
	require.False(t, c.IsTrivialMove())
}

func TestCompactionRunDropsShadowedAndTombstoneRecords(t *testing.T) {
	vs, fs := newTestVersionSet(t)
	cmp := vs.cmp

	// L0 has two records for "a": a newer value (seq 5) shadowing an older
	// one (seq 2); plus a DELETE of "b" at seq 4 with no deeper level
	// holding "b" (base level), which must be dropped once at or below
	// smallestSnapshot.
	f1 := writeTestTable(t, fs, "db", cmp, 1, []kv{
		{"a", 5, base.InternalKeyKindValue, "new-a"},
		{"a", 2, base.InternalKeyKindValue, "old-a"},
		{"b", 4, base.InternalKeyKindDelete, ""},
	})

	var files [NumLevels][]*manifest.FileMetaData
	files[0] = []*manifest.FileMetaData{f1}
	installVersion(vs, files)

	c := vs.setupOtherInputs(0, []*manifest.FileMetaData{f1})
	defer c.Close()

	edit, err := c.Run(fs, "db", 10 /* smallestSnapshot: no live snapshot blocks elision */)
	require.NoError(t, err)
	require.Len(t, edit.NewFiles, 1)

	out := edit.NewFiles[0].Meta
	rf, err := fs.NewSequentialFile("db/" + out.Filename())
	require.NoError(t, err)
	data := make([]byte, out.Size)
	n, _ := rf.Read(data)
	require.Equal(t, int(out.Size), n)

	reader, err := table.Open(cmp, data)
	require.NoError(t, err)
	it := reader.NewIter()
	defer it.Close()

	var got []string
	for valid := it.First(); valid; valid = it.Next() {
		got = append(got, string(it.Key().UserKey))
	}
	// Only "a" (the newer record) survives; the shadowed "old-a" record
	// and the base-level DELETE of "b" are both elided.
	require.Equal(t, []string{"a"}, got)
}

func TestCompactionShouldStopBeforeClosesOnGrandparentOverlap(t *testing.T) {
	vs, fs := newTestVersionSet(t)
	cmp := vs.cmp
	vs.opts.TargetFileSize = 1 // MaxGrandParentOverlapBytes() == 10

	g1 := writeTestTable(t, fs, "db", cmp, 1, []kv{{"a", 1, base.InternalKeyKindValue, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}})

	c := &Compaction{vs: vs, Grandparents: []*manifest.FileMetaData{g1}}

	// Before any key is seen, ShouldStopBefore must not report a stop
	// (seenKey is false, so no overlap is charged yet).
	k1 := base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindValue)
	require.False(t, c.ShouldStopBefore(k1))

	// A key past g1's range charges g1's bytes against the running total;
	// with a tiny MaxGrandParentOverlapBytes this immediately crosses the
	// threshold and signals a stop.
	k2 := base.MakeInternalKey([]byte("z"), 1, base.InternalKeyKindValue)
	require.True(t, c.ShouldStopBefore(k2))
}
