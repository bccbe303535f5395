// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"container/heap"

	"github.com/ddf8196/leveldb/internal/base"
)

type direction int

const (
	dirInvalid direction = iota
	dirForward
	dirReverse
)

// mergingIterHeap is a container/heap over a fixed set of children,
// ordered by InternalKeyComparator ascending (forward) or descending
// (reverse). Grounded on khushmanvar-hyperfork/merging_iter.go's heap
// shape; kept separate from MergingIterator's direction-switch logic,
// which that file doesn't have (it only ever runs forward).
type mergingIterHeap struct {
	cmp     *base.InternalKeyComparator
	items   []base.InternalIterator
	reverse bool
}

func (h *mergingIterHeap) Len() int { return len(h.items) }

func (h *mergingIterHeap) Less(i, j int) bool {
	c := h.cmp.Compare(h.items[i].Key(), h.items[j].Key())
	if h.reverse {
		return c > 0
	}
	return c < 0
}

func (h *mergingIterHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergingIterHeap) Push(x interface{}) {
	h.items = append(h.items, x.(base.InternalIterator))
}

func (h *mergingIterHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

// MergingIterator is the N-way, heap-ordered, bidirectional merge of a
// fixed set of child iterators specified in spec.md §4.8. current holds
// whichever child last won the heap; it is excluded from the heap while
// it is current, and rejoins it (if still valid) before the next pop.
type MergingIterator struct {
	cmp      *base.InternalKeyComparator
	children []base.InternalIterator
	heap     mergingIterHeap
	current  base.InternalIterator
	dir      direction
}

// NewMergingIterator returns a MergingIterator over children. It does
// not take ownership until Close is called; Close closes every child
// exactly once, even if some closes error.
func NewMergingIterator(cmp *base.InternalKeyComparator, children ...base.InternalIterator) *MergingIterator {
	return &MergingIterator{cmp: cmp, children: children}
}

func (m *MergingIterator) rebuild(reverse bool, position func(base.InternalIterator) bool) {
	m.heap = mergingIterHeap{cmp: m.cmp, reverse: reverse, items: m.heap.items[:0]}
	for _, c := range m.children {
		if position(c) {
			m.heap.items = append(m.heap.items, c)
		}
	}
	heap.Init(&m.heap)
}

func (m *MergingIterator) popCurrent() bool {
	if m.heap.Len() == 0 {
		m.current = nil
		return false
	}
	m.current = heap.Pop(&m.heap).(base.InternalIterator)
	return true
}

// First positions every child at its first record and seats the
// smallest as current.
func (m *MergingIterator) First() bool {
	m.dir = dirForward
	m.rebuild(false, base.InternalIterator.First)
	return m.popCurrent()
}

// Last positions every child at its last record and seats the largest as
// current.
func (m *MergingIterator) Last() bool {
	m.dir = dirReverse
	m.rebuild(true, base.InternalIterator.Last)
	return m.popCurrent()
}

// SeekGE positions every child at its first record >= key and seats the
// smallest as current.
func (m *MergingIterator) SeekGE(key base.InternalKey) bool {
	m.dir = dirForward
	m.rebuild(false, func(c base.InternalIterator) bool { return c.SeekGE(key) })
	return m.popCurrent()
}

// SeekLT positions every child at its last record < key and seats the
// largest as current.
func (m *MergingIterator) SeekLT(key base.InternalKey) bool {
	m.dir = dirReverse
	m.rebuild(true, func(c base.InternalIterator) bool { return c.SeekLT(key) })
	return m.popCurrent()
}

// Next advances to the next record in ascending order. Switching from
// REVERSE seats every other child just past the current key (so they
// rejoin the forward merge without re-surfacing a key current already
// emitted), per spec.md §4.8 and MergingIterator.java's internalNext.
func (m *MergingIterator) Next() bool {
	if m.dir != dirForward {
		key := m.current.Key()
		m.rebuild(false, func(c base.InternalIterator) bool {
			if c == m.current {
				return false
			}
			if !c.SeekGE(key) {
				return false
			}
			if m.cmp.Equal(c.Key(), key) {
				return c.Next()
			}
			return true
		})
		m.dir = dirForward
	}
	if m.current.Next() {
		heap.Push(&m.heap, m.current)
	}
	return m.popCurrent()
}

// Prev moves to the preceding record in ascending order (i.e. the next
// record in descending order). Switching from FORWARD reseats every
// child, current included, at its last record < the current key via
// SeekLT, per MergingIterator.java's internalPrev (which applies the
// same seek-then-step-back treatment uniformly rather than special-
// casing current the way Next's forward switch does).
func (m *MergingIterator) Prev() bool {
	if m.dir != dirReverse {
		key := m.current.Key()
		m.rebuild(true, func(c base.InternalIterator) bool { return c.SeekLT(key) })
		m.dir = dirReverse
	} else if m.current.Prev() {
		heap.Push(&m.heap, m.current)
	}
	return m.popCurrent()
}

// Key returns current's key.
func (m *MergingIterator) Key() base.InternalKey { return m.current.Key() }

// Value returns current's value.
func (m *MergingIterator) Value() []byte { return m.current.Value() }

// Valid reports whether a current record is seated.
func (m *MergingIterator) Valid() bool { return m.current != nil }

// Close closes every child exactly once. If more than one close errors,
// the first is returned.
func (m *MergingIterator) Close() error {
	var first error
	for _, c := range m.children {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
