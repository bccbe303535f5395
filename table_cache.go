// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"io"
	"sync"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
	"github.com/ddf8196/leveldb/internal/table"
	"github.com/ddf8196/leveldb/internal/vfs"
)

// TableCache is the consumed collaborator spec.md §6 names: a cache of
// open table readers keyed by file number, fronting whatever the table
// format turns out to be. This core's own table format is
// internal/table's in-memory one.
type TableCache interface {
	// NewIterator returns an iterator over meta's table.
	NewIterator(meta *manifest.FileMetaData) (base.InternalIterator, error)
	// Get looks up ikey in meta's table, reporting found=false on a miss
	// (including a bloom-filter-elided probe).
	Get(ikey base.InternalKey, meta *manifest.FileMetaData) (value []byte, found bool, err error)
	// Evict drops any cached reader for fileNum, e.g. after a compaction
	// deletes the file.
	Evict(fileNum uint64)
}

// fileCache is the map-backed implementation, grounded on
// khushmanvar-hyperfork/cache.go's Cache — a bare mutex-guarded map, no
// LRU eviction, since this core never opens enough tables at once in
// its own tests to need one.
type fileCache struct {
	mu   sync.Mutex
	data map[uint64]*table.Reader
}

// tableCache opens tables through an fs.FS, named by FileMetaData.Filename,
// decoding them with internal/table and caching the result.
type tableCache struct {
	fs      vfs.FS
	dirname string
	cmp     *base.InternalKeyComparator
	cache   fileCache
}

// NewTableCache returns a TableCache that opens tables named
// dirname/<FileMetaData.Filename()> through fs.
func NewTableCache(fs vfs.FS, dirname string, cmp *base.InternalKeyComparator) TableCache {
	return &tableCache{
		fs:      fs,
		dirname: dirname,
		cmp:     cmp,
		cache:   fileCache{data: make(map[uint64]*table.Reader)},
	}
}

func (c *tableCache) open(meta *manifest.FileMetaData) (*table.Reader, error) {
	c.cache.mu.Lock()
	if r, ok := c.cache.data[meta.Number]; ok {
		c.cache.mu.Unlock()
		return r, nil
	}
	c.cache.mu.Unlock()

	f, err := c.fs.NewSequentialFile(c.dirname + "/" + meta.Filename())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	r, err := table.Open(c.cmp, data)
	if err != nil {
		return nil, err
	}

	c.cache.mu.Lock()
	c.cache.data[meta.Number] = r
	c.cache.mu.Unlock()
	return r, nil
}

func (c *tableCache) NewIterator(meta *manifest.FileMetaData) (base.InternalIterator, error) {
	r, err := c.open(meta)
	if err != nil {
		return nil, err
	}
	return r.NewIter(), nil
}

func (c *tableCache) Get(ikey base.InternalKey, meta *manifest.FileMetaData) ([]byte, bool, error) {
	r, err := c.open(meta)
	if err != nil {
		return nil, false, err
	}
	if !r.MayContain(ikey.UserKey) {
		return nil, false, nil
	}
	iter := r.NewIter()
	defer iter.Close()
	if !iter.SeekGE(ikey) {
		return nil, false, nil
	}
	if c.cmp.UserComparer.Compare(iter.Key().UserKey, ikey.UserKey) != 0 {
		return nil, false, nil
	}
	if iter.Key().Kind() == base.InternalKeyKindDelete {
		return nil, true, base.ErrNotFound
	}
	return iter.Value(), true, nil
}

func (c *tableCache) Evict(fileNum uint64) {
	c.cache.mu.Lock()
	delete(c.cache.data, fileNum)
	c.cache.mu.Unlock()
}
