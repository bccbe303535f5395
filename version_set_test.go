// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
)

func TestLogAndApplyInstallsNewVersion(t *testing.T) {
	vs, fs := newTestVersionSet(t)
	cmp := vs.cmp

	f1 := writeTestTable(t, fs, "db", cmp, 10, []kv{{"a", 1, base.InternalKeyKindValue, "a"}})

	edit := &manifest.VersionEdit{}
	edit.AddFile(0, f1)
	require.NoError(t, vs.LogAndApply(edit))

	v := vs.Current()
	defer v.Release()
	require.Equal(t, 1, v.NumberOfFilesInLevel(0))

	require.True(t, fs.FileExists("db/CURRENT"))
}

func TestLogAndApplyThenRecoverRoundTrips(t *testing.T) {
	fs := newMemFS()
	opts := &Options{FS: fs}
	vs := NewVersionSet("db", opts)
	cmp := vs.cmp

	f1 := writeTestTable(t, fs, "db", cmp, 10, []kv{{"a", 1, base.InternalKeyKindValue, "a"}})
	f2 := writeTestTable(t, fs, "db", cmp, 11, []kv{{"b", 1, base.InternalKeyKindValue, "b"}})

	edit := &manifest.VersionEdit{}
	edit.AddFile(1, f1)
	edit.AddFile(1, f2)
	vs.SetLastSequence(42)
	require.NoError(t, vs.LogAndApply(edit))

	recovered := NewVersionSet("db", &Options{FS: fs})
	require.NoError(t, recovered.Recover())

	v := recovered.Current()
	defer v.Release()
	require.Equal(t, 2, v.NumberOfFilesInLevel(1))
	require.Equal(t, uint64(42), recovered.LastSequence())
}

func TestRecoverRejectsComparatorMismatch(t *testing.T) {
	fs := newMemFS()
	vs := NewVersionSet("db", &Options{FS: fs})
	require.NoError(t, vs.LogAndApply(&manifest.VersionEdit{}))

	mismatched := &base.Comparer{Name: "not-the-same-comparator", Compare: base.DefaultComparer.Compare}
	recovered := NewVersionSet("db", &Options{FS: fs, Comparer: mismatched})
	require.ErrorIs(t, recovered.Recover(), base.ErrCorruption)
}

func TestNextFileNumberIsMonotonic(t *testing.T) {
	vs, _ := newTestVersionSet(t)
	a := vs.NextFileNumber()
	b := vs.NextFileNumber()
	require.Less(t, a, b)

	vs.MarkFileNumberUsed(b + 100)
	c := vs.NextFileNumber()
	require.Greater(t, c, b+100)
}
