// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "io"

// InternalIterator is the interface the engine consumes from its storage
// collaborators: a table reader's iterator, a Level's concatenating
// iterator, or a MergingIterator composing several of either. Every
// positioning method reports whether the iterator landed on a valid
// record; once a method returns false the iterator is exhausted in that
// direction until repositioned.
//
// An InternalIterator is not safe for concurrent use.
type InternalIterator interface {
	// SeekGE positions the iterator at the first record with key >= k.
	SeekGE(k InternalKey) bool
	// SeekLT positions the iterator at the last record with key < k.
	SeekLT(k InternalKey) bool
	// First positions the iterator at the first record.
	First() bool
	// Last positions the iterator at the last record.
	Last() bool
	// Next advances to the following record in ascending key order.
	Next() bool
	// Prev moves to the preceding record in ascending key order.
	Prev() bool
	// Key returns the current record's key. Valid only when the iterator
	// is positioned on a record.
	Key() InternalKey
	// Value returns the current record's value.
	Value() []byte
	// Valid reports whether the iterator is positioned on a record.
	Valid() bool

	io.Closer
}

// ErrIterator is an InternalIterator that is always invalid and reports
// err from every operation. It lets a collaborator (e.g. a TableCache
// that failed to open a file) hand back something iterable rather than a
// separate error return.
type ErrIterator struct {
	Err error
}

func (e *ErrIterator) SeekGE(InternalKey) bool { return false }
func (e *ErrIterator) SeekLT(InternalKey) bool { return false }
func (e *ErrIterator) First() bool             { return false }
func (e *ErrIterator) Last() bool              { return false }
func (e *ErrIterator) Next() bool              { return false }
func (e *ErrIterator) Prev() bool              { return false }
func (e *ErrIterator) Key() InternalKey        { return InternalKey{} }
func (e *ErrIterator) Value() []byte           { return nil }
func (e *ErrIterator) Valid() bool             { return false }
func (e *ErrIterator) Close() error            { return e.Err }
