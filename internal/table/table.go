// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package table provides the minimal sorted-table implementation the
// engine core needs to exercise Version/Compaction/MergingIterator
// against real file contents: a builder that accepts internal keys in
// sorted order and a reader exposing base.InternalIterator plus a
// bloom-filter-backed MayContain for negative lookups. Block format,
// on-disk indexing, and footer layout are out of this core's scope
// (SPEC_FULL.md §1 Non-goals); the table's data lives in memory, with
// Builder.Finish/Open round-tripping it through a single compressed
// payload whose leading byte names the codec.Type that produced it.
package table

import (
	"encoding/binary"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/codec"
)

// falsePositiveRate is the target false-positive rate for each table's
// bloom filter, matching a-poor-bluedb/storage/sstable.go's choice.
const falsePositiveRate = 0.01

type entry struct {
	key   base.InternalKey
	value []byte
}

// Builder accumulates internal key/value pairs for one table. Entries
// must be added in ascending InternalKeyComparator order; Builder does
// not sort them itself, matching how the real compaction loop (and
// MemTable flush) already produces sorted output.
type Builder struct {
	cmp     *base.InternalKeyComparator
	entries []entry
}

// NewBuilder returns a Builder ordering entries with cmp.
func NewBuilder(cmp *base.InternalKeyComparator) *Builder {
	return &Builder{cmp: cmp}
}

// Add appends one entry. value is copied.
func (b *Builder) Add(key base.InternalKey, value []byte) {
	b.entries = append(b.entries, entry{
		key:   base.InternalKey{UserKey: append([]byte(nil), key.UserKey...), Trailer: key.Trailer},
		value: append([]byte(nil), value...),
	})
}

// Empty reports whether no entries were added.
func (b *Builder) Empty() bool {
	return len(b.entries) == 0
}

// Smallest and Largest return the bounds of the entries added so far.
// They panic if Empty.
func (b *Builder) Smallest() base.InternalKey { return b.entries[0].key }
func (b *Builder) Largest() base.InternalKey  { return b.entries[len(b.entries)-1].key }

// Finish serializes the accumulated entries into a table image using c
// to compress the whole key/value payload, returning the encoded bytes. The table can be
// reopened with Open.
func (b *Builder) Finish(c codec.Compressor) []byte {
	var raw []byte
	raw = appendUvarint(raw, uint64(len(b.entries)))
	for _, e := range b.entries {
		enc := e.key.Encode(nil)
		raw = appendUvarint(raw, uint64(len(enc)))
		raw = append(raw, enc...)
		raw = appendUvarint(raw, uint64(len(e.value)))
		raw = append(raw, e.value...)
	}

	var out []byte
	out = append(out, byte(c.Type()))
	out = appendUvarint(out, uint64(len(raw)))
	out = c.Encode(out, raw)
	return out
}

func appendUvarint(dst []byte, x uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], x)
	return append(dst, buf[:n]...)
}

// Reader is an opened table: a sorted, in-memory slice of entries plus
// a bloom filter over user keys for MayContain.
type Reader struct {
	cmp     *base.InternalKeyComparator
	entries []entry
	filter  *bloom.BloomFilter
}

// Open decodes a table image produced by Builder.Finish.
func Open(cmp *base.InternalKeyComparator, data []byte) (*Reader, error) {
	if len(data) < 1 {
		return nil, base.ErrCorruption
	}
	typ := codec.Type(data[0])
	rest := data[1:]
	rawLen, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, base.ErrCorruption
	}
	rest = rest[n:]
	raw, err := codec.ForType(typ).Decode(make([]byte, 0, rawLen), rest)
	if err != nil {
		return nil, base.ErrCorruption
	}

	count, n := binary.Uvarint(raw)
	if n <= 0 {
		return nil, base.ErrCorruption
	}
	raw = raw[n:]

	entries := make([]entry, 0, count)
	filter := bloom.NewWithEstimates(uint(count+1), falsePositiveRate)
	for i := uint64(0); i < count; i++ {
		klen, n := binary.Uvarint(raw)
		if n <= 0 || uint64(len(raw)) < uint64(n)+klen {
			return nil, base.ErrCorruption
		}
		raw = raw[n:]
		keyBytes := raw[:klen]
		raw = raw[klen:]
		key, ok := base.ParseInternalKey(keyBytes)
		if !ok {
			return nil, base.ErrCorruption
		}

		vlen, n := binary.Uvarint(raw)
		if n <= 0 || uint64(len(raw)) < uint64(n)+vlen {
			return nil, base.ErrCorruption
		}
		raw = raw[n:]
		value := raw[:vlen]
		raw = raw[vlen:]

		entries = append(entries, entry{key: key, value: value})
		filter.Add(key.UserKey)
	}

	return &Reader{cmp: cmp, entries: entries, filter: filter}, nil
}

// MayContain reports whether userKey could be present in the table. A
// false result is definitive; a true result requires checking the data.
func (r *Reader) MayContain(userKey []byte) bool {
	return r.filter.Test(userKey)
}

// NewIter returns an iterator over the table's entries.
func (r *Reader) NewIter() base.InternalIterator {
	return &tableIter{r: r, pos: -1}
}

type tableIter struct {
	r   *Reader
	pos int
}

func (it *tableIter) search(key base.InternalKey) int {
	return sort.Search(len(it.r.entries), func(i int) bool {
		return it.r.cmp.Compare(it.r.entries[i].key, key) >= 0
	})
}

func (it *tableIter) SeekGE(key base.InternalKey) bool {
	it.pos = it.search(key)
	return it.Valid()
}

func (it *tableIter) SeekLT(key base.InternalKey) bool {
	i := it.search(key)
	it.pos = i - 1
	return it.Valid()
}

func (it *tableIter) First() bool {
	it.pos = 0
	return it.Valid()
}

func (it *tableIter) Last() bool {
	it.pos = len(it.r.entries) - 1
	return it.Valid()
}

func (it *tableIter) Next() bool {
	if it.pos < len(it.r.entries) {
		it.pos++
	}
	return it.Valid()
}

func (it *tableIter) Prev() bool {
	if it.pos >= 0 {
		it.pos--
	}
	return it.Valid()
}

func (it *tableIter) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.r.entries)
}

func (it *tableIter) Key() base.InternalKey {
	return it.r.entries[it.pos].key
}

func (it *tableIter) Value() []byte {
	return it.r.entries[it.pos].value
}

func (it *tableIter) Close() error {
	return nil
}
