// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "testing"

func TestMakeInternalKeyRoundTrip(t *testing.T) {
	k := MakeInternalKey([]byte("hello"), 42, InternalKeyKindDelete)
	if k.SeqNum() != 42 {
		t.Fatalf("SeqNum() = %d, want 42", k.SeqNum())
	}
	if k.Kind() != InternalKeyKindDelete {
		t.Fatalf("Kind() = %v, want InternalKeyKindDelete", k.Kind())
	}

	encoded := k.Encode(nil)
	decoded, ok := ParseInternalKey(encoded)
	if !ok {
		t.Fatal("ParseInternalKey reported failure")
	}
	if string(decoded.UserKey) != "hello" || decoded.Trailer != k.Trailer {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, k)
	}
}

func TestParseInternalKeyTooShort(t *testing.T) {
	if _, ok := ParseInternalKey([]byte("short")); ok {
		t.Fatal("expected failure on a buffer shorter than the trailer")
	}
}

func TestInternalKeyComparatorOrdering(t *testing.T) {
	cmp := MakeInternalKeyComparator(DefaultComparer)

	a := MakeInternalKey([]byte("a"), 5, InternalKeyKindValue)
	b := MakeInternalKey([]byte("b"), 5, InternalKeyKindValue)
	if cmp.Compare(a, b) >= 0 {
		t.Fatal("user key \"a\" must sort before \"b\"")
	}

	newer := MakeInternalKey([]byte("k"), 10, InternalKeyKindValue)
	older := MakeInternalKey([]byte("k"), 3, InternalKeyKindValue)
	if cmp.Compare(newer, older) >= 0 {
		t.Fatal("a higher sequence number must sort before a lower one for the same user key")
	}

	valueKind := MakeInternalKey([]byte("k"), 7, InternalKeyKindValue)
	deleteKind := MakeInternalKey([]byte("k"), 7, InternalKeyKindDelete)
	if cmp.Compare(deleteKind, valueKind) >= 0 {
		t.Fatal("on a sequence-number tie, DELETE (larger kind) must sort before VALUE")
	}
}

func TestFindShortestSeparatorPanicsOnNil(t *testing.T) {
	cmp := MakeInternalKeyComparator(&Comparer{
		Compare:   DefaultComparer.Compare,
		Name:      "nil-separator",
		Separator: func(dst, a, b []byte) []byte { return nil },
		Successor: DefaultComparer.Successor,
	})
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when Separator returns nil")
		}
	}()
	cmp.FindShortestSeparator(MakeInternalKey([]byte("a"), 1, InternalKeyKindValue), []byte("b"))
}
