// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/codec"
)

func buildTable(t *testing.T, cmp *base.InternalKeyComparator, n int) *Reader {
	t.Helper()
	b := NewBuilder(cmp)
	for i := 0; i < n; i++ {
		key := base.MakeInternalKey([]byte(fmt.Sprintf("key%03d", i)), uint64(n-i), base.InternalKeyKindValue)
		b.Add(key, []byte(fmt.Sprintf("value%03d", i)))
	}
	data := b.Finish(codec.SnappyCompressor)
	r, err := Open(cmp, data)
	require.NoError(t, err)
	return r
}

func TestTableIterForward(t *testing.T) {
	cmp := base.MakeInternalKeyComparator(base.DefaultComparer)
	r := buildTable(t, &cmp, 10)

	it := r.NewIter()
	defer it.Close()

	count := 0
	for valid := it.First(); valid; valid = it.Next() {
		want := fmt.Sprintf("key%03d", count)
		require.Equal(t, want, string(it.Key().UserKey))
		count++
	}
	require.Equal(t, 10, count)
}

func TestTableIterBackward(t *testing.T) {
	cmp := base.MakeInternalKeyComparator(base.DefaultComparer)
	r := buildTable(t, &cmp, 10)

	it := r.NewIter()
	defer it.Close()

	count := 0
	for valid := it.Last(); valid; valid = it.Prev() {
		want := fmt.Sprintf("key%03d", 9-count)
		require.Equal(t, want, string(it.Key().UserKey))
		count++
	}
	require.Equal(t, 10, count)
}

func TestTableSeekGE(t *testing.T) {
	cmp := base.MakeInternalKeyComparator(base.DefaultComparer)
	r := buildTable(t, &cmp, 10)

	it := r.NewIter()
	defer it.Close()

	target := base.MakeInternalKey([]byte("key005"), base.MaxSeqNum, base.InternalKeyKindValue)
	require.True(t, it.SeekGE(target))
	require.Equal(t, "key005", string(it.Key().UserKey))
}

func TestTableMayContain(t *testing.T) {
	cmp := base.MakeInternalKeyComparator(base.DefaultComparer)
	r := buildTable(t, &cmp, 50)

	require.True(t, r.MayContain([]byte("key010")))
	require.False(t, r.MayContain([]byte("definitely-not-present-key")))
}

func TestBuilderSmallestLargest(t *testing.T) {
	cmp := base.MakeInternalKeyComparator(base.DefaultComparer)
	b := NewBuilder(&cmp)
	require.True(t, b.Empty())

	b.Add(base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindValue), []byte("v1"))
	b.Add(base.MakeInternalKey([]byte("z"), 1, base.InternalKeyKindValue), []byte("v2"))
	require.False(t, b.Empty())
	require.Equal(t, "a", string(b.Smallest().UserKey))
	require.Equal(t, "z", string(b.Largest().UserKey))
}
