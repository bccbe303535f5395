// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddf8196/leveldb/internal/base"
)

func TestVersionEditEncodeDecodeRoundTrip(t *testing.T) {
	edit := &VersionEdit{
		HasComparator:     true,
		Comparator:        "leveldb.BytewiseComparator",
		HasLogNumber:      true,
		LogNumber:         7,
		HasPrevLogNumber:  true,
		PrevLogNumber:     6,
		HasNextFileNumber: true,
		NextFileNumber:    10,
		HasLastSequence:   true,
		LastSequence:      1000,
	}
	edit.SetCompactPointer(1, base.MakeInternalKey([]byte("m"), 3, base.InternalKeyKindValue))
	edit.DeleteFile(0, 4)
	edit.AddFile(1, &FileMetaData{
		Number:   9,
		Size:     4096,
		Smallest: base.MakeInternalKey([]byte("a"), 2, base.InternalKeyKindValue),
		Largest:  base.MakeInternalKey([]byte("z"), 1, base.InternalKeyKindValue),
	})

	encoded := edit.Encode(nil)

	var decoded VersionEdit
	require.NoError(t, decoded.Decode(encoded))
	require.True(t, edit.Equal(&decoded))
}

func TestVersionEditDecodeCorruption(t *testing.T) {
	var edit VersionEdit
	require.ErrorIs(t, edit.Decode([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}), base.ErrCorruption)
}

func TestVersionEditEqualOrderIndependent(t *testing.T) {
	a := &VersionEdit{}
	a.DeleteFile(0, 1)
	a.DeleteFile(0, 2)

	b := &VersionEdit{}
	b.DeleteFile(0, 2)
	b.DeleteFile(0, 1)

	require.True(t, a.Equal(b))
}
