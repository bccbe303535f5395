// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddf8196/leveldb/internal/base"
)

// sliceIter is a trivial InternalIterator over a pre-sorted in-memory
// slice, used to exercise MergingIterator without needing a real table.
type sliceIter struct {
	cmp     *base.InternalKeyComparator
	entries []kv
	pos     int
}

func newSliceIter(cmp *base.InternalKeyComparator, entries []kv) *sliceIter {
	return &sliceIter{cmp: cmp, entries: entries, pos: -1}
}

func (s *sliceIter) ikey(i int) base.InternalKey {
	return base.MakeInternalKey([]byte(s.entries[i].key), s.entries[i].seq, s.entries[i].kind)
}

func (s *sliceIter) SeekGE(k base.InternalKey) bool {
	for i := range s.entries {
		if s.cmp.Compare(s.ikey(i), k) >= 0 {
			s.pos = i
			return s.Valid()
		}
	}
	s.pos = len(s.entries)
	return false
}

func (s *sliceIter) SeekLT(k base.InternalKey) bool {
	s.pos = -1
	for i := range s.entries {
		if s.cmp.Compare(s.ikey(i), k) >= 0 {
			break
		}
		s.pos = i
	}
	return s.Valid()
}

func (s *sliceIter) First() bool { s.pos = 0; return s.Valid() }
func (s *sliceIter) Last() bool  { s.pos = len(s.entries) - 1; return s.Valid() }

func (s *sliceIter) Next() bool {
	if s.pos < len(s.entries) {
		s.pos++
	}
	return s.Valid()
}

func (s *sliceIter) Prev() bool {
	if s.pos >= 0 {
		s.pos--
	}
	return s.Valid()
}

func (s *sliceIter) Valid() bool        { return s.pos >= 0 && s.pos < len(s.entries) }
func (s *sliceIter) Key() base.InternalKey { return s.ikey(s.pos) }
func (s *sliceIter) Value() []byte      { return []byte(s.entries[s.pos].value) }
func (s *sliceIter) Close() error       { return nil }

func testComparator() *base.InternalKeyComparator {
	cmp := base.MakeInternalKeyComparator(base.DefaultComparer)
	return &cmp
}

func TestMergingIteratorForward(t *testing.T) {
	cmp := testComparator()
	a := newSliceIter(cmp, []kv{{"a", 1, base.InternalKeyKindValue, "a1"}, {"c", 1, base.InternalKeyKindValue, "c1"}})
	b := newSliceIter(cmp, []kv{{"b", 1, base.InternalKeyKindValue, "b1"}, {"d", 1, base.InternalKeyKindValue, "d1"}})

	m := NewMergingIterator(cmp, a, b)
	var got []string
	for valid := m.First(); valid; valid = m.Next() {
		got = append(got, string(m.Key().UserKey))
	}
	require.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestMergingIteratorBackward(t *testing.T) {
	cmp := testComparator()
	a := newSliceIter(cmp, []kv{{"a", 1, base.InternalKeyKindValue, "a1"}, {"c", 1, base.InternalKeyKindValue, "c1"}})
	b := newSliceIter(cmp, []kv{{"b", 1, base.InternalKeyKindValue, "b1"}, {"d", 1, base.InternalKeyKindValue, "d1"}})

	m := NewMergingIterator(cmp, a, b)
	var got []string
	for valid := m.Last(); valid; valid = m.Prev() {
		got = append(got, string(m.Key().UserKey))
	}
	require.Equal(t, []string{"d", "c", "b", "a"}, got)
}

func TestMergingIteratorDirectionSwitch(t *testing.T) {
	cmp := testComparator()
	a := newSliceIter(cmp, []kv{{"a", 1, base.InternalKeyKindValue, "a1"}, {"c", 1, base.InternalKeyKindValue, "c1"}, {"e", 1, base.InternalKeyKindValue, "e1"}})
	b := newSliceIter(cmp, []kv{{"b", 1, base.InternalKeyKindValue, "b1"}, {"d", 1, base.InternalKeyKindValue, "d1"}})

	m := NewMergingIterator(cmp, a, b)
	require.True(t, m.First())
	require.Equal(t, "a", string(m.Key().UserKey))
	require.True(t, m.Next())
	require.Equal(t, "b", string(m.Key().UserKey))
	require.True(t, m.Next())
	require.Equal(t, "c", string(m.Key().UserKey))

	// Reverse from "c": must see "b", "a", exactly once each, not skipping
	// or repeating "c" itself.
	require.True(t, m.Prev())
	require.Equal(t, "b", string(m.Key().UserKey))
	require.True(t, m.Prev())
	require.Equal(t, "a", string(m.Key().UserKey))
	require.False(t, m.Prev())

	// Switch forward again from "a": must still see the rest of the
	// sequence, proving the child iterators weren't left stranded.
	require.True(t, m.SeekGE(base.MakeInternalKey([]byte("a"), base.MaxSeqNum, base.InternalKeyKindValue)))
	var got []string
	for valid := true; valid; valid = m.Next() {
		got = append(got, string(m.Key().UserKey))
	}
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestMergingIteratorSeek(t *testing.T) {
	cmp := testComparator()
	a := newSliceIter(cmp, []kv{{"a", 1, base.InternalKeyKindValue, "a1"}, {"m", 1, base.InternalKeyKindValue, "m1"}})
	b := newSliceIter(cmp, []kv{{"g", 1, base.InternalKeyKindValue, "g1"}, {"z", 1, base.InternalKeyKindValue, "z1"}})

	m := NewMergingIterator(cmp, a, b)
	require.True(t, m.SeekGE(base.MakeInternalKey([]byte("h"), base.MaxSeqNum, base.InternalKeyKindValue)))
	require.Equal(t, "m", string(m.Key().UserKey))

	require.True(t, m.SeekLT(base.MakeInternalKey([]byte("h"), base.MaxSeqNum, base.InternalKeyKindValue)))
	require.Equal(t, "g", string(m.Key().UserKey))
}
