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

func TestNumberOfBytesInLevelSumsSize(t *testing.T) {
	cmp := testComparator()
	fs := newMemFS()
	cache := NewTableCache(fs, "db", cmp)

	f1 := writeTestTable(t, fs, "db", cmp, 1, []kv{{"a", 1, base.InternalKeyKindValue, "a"}})
	f2 := writeTestTable(t, fs, "db", cmp, 2, []kv{{"b", 1, base.InternalKeyKindValue, "b"}})

	var files [NumLevels][]*manifest.FileMetaData
	files[1] = []*manifest.FileMetaData{f1, f2}
	v := NewVersion(files, cmp, cache)

	want := int64(f1.Size + f2.Size)
	require.Equal(t, want, v.NumberOfBytesInLevel(1))
	require.Equal(t, 2, v.NumberOfFilesInLevel(1))
}

func TestVersionGetDescendsLevels(t *testing.T) {
	cmp := testComparator()
	fs := newMemFS()
	cache := NewTableCache(fs, "db", cmp)

	l0 := writeTestTable(t, fs, "db", cmp, 1, []kv{{"a", 5, base.InternalKeyKindValue, "l0-a"}})
	l1 := writeTestTable(t, fs, "db", cmp, 2, []kv{
		{"a", 1, base.InternalKeyKindValue, "l1-a"},
		{"b", 1, base.InternalKeyKindValue, "l1-b"},
	})

	var files [NumLevels][]*manifest.FileMetaData
	files[0] = []*manifest.FileMetaData{l0}
	files[1] = []*manifest.FileMetaData{l1}
	v := NewVersion(files, cmp, cache)

	value, err := v.Get(MakeLookupKey([]byte("a"), base.MaxSeqNum))
	require.NoError(t, err)
	require.Equal(t, "l0-a", string(value), "L0 must be consulted before L1")

	value, err = v.Get(MakeLookupKey([]byte("b"), base.MaxSeqNum))
	require.NoError(t, err)
	require.Equal(t, "l1-b", string(value))

	_, err = v.Get(MakeLookupKey([]byte("missing"), base.MaxSeqNum))
	require.ErrorIs(t, err, base.ErrNotFound)
}

func TestVersionRetainRelease(t *testing.T) {
	cmp := testComparator()
	cache := NewTableCache(newMemFS(), "db", cmp)
	v := NewVersion([NumLevels][]*manifest.FileMetaData{}, cmp, cache)

	v.Retain()
	require.False(t, v.Release(), "refcount should still be 1 after releasing the extra retain")
	require.True(t, v.Release(), "refcount should reach 0 on the matching release")
}

func TestAssertNoOverlappingFilesPanics(t *testing.T) {
	cmp := testComparator()
	fs := newMemFS()
	cache := NewTableCache(fs, "db", cmp)

	f1 := writeTestTable(t, fs, "db", cmp, 1, []kv{{"a", 1, base.InternalKeyKindValue, "a"}, {"m", 1, base.InternalKeyKindValue, "m"}})
	f2 := writeTestTable(t, fs, "db", cmp, 2, []kv{{"c", 1, base.InternalKeyKindValue, "c"}}) // overlaps f1's [a, m] range

	var files [NumLevels][]*manifest.FileMetaData
	files[1] = []*manifest.FileMetaData{f1, f2}
	v := NewVersion(files, cmp, cache)

	defer func() {
		require.NotNil(t, recover(), "expected a panic on overlapping level>=1 files")
	}()
	v.AssertNoOverlappingFiles(cmp, 1)
}
