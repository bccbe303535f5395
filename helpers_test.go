// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/codec"
	"github.com/ddf8196/leveldb/internal/manifest"
	"github.com/ddf8196/leveldb/internal/table"
	"github.com/ddf8196/leveldb/internal/vfs"
)

// memFile is an in-memory vfs.File backed by a shared buffer, so writes
// made through an appendable handle are visible to a later sequential
// read of the same name.
type memFile struct {
	buf *bytes.Buffer
	pos int
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.pos >= f.buf.Len() {
		return 0, io.EOF
	}
	n := copy(p, f.buf.Bytes()[f.pos:])
	f.pos += n
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) { return f.buf.Write(p) }
func (f *memFile) Close() error                { return nil }
func (f *memFile) Sync() error                 { return nil }

// memFS is a minimal in-memory vfs.FS for tests, grounded on the same
// small surface internal/vfs.FS declares.
type memFS struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]*bytes.Buffer)}
}

func (fs *memFS) NewSequentialFile(name string) (vfs.File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memFile{buf: bytes.NewBuffer(append([]byte(nil), b.Bytes()...))}, nil
}

func (fs *memFS) NewAppendableFile(name string) (vfs.File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[name]
	if !ok {
		b = &bytes.Buffer{}
		fs.files[name] = b
	}
	return &memFile{buf: b}, nil
}

func (fs *memFS) Rename(oldname, newname string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[oldname]
	if !ok {
		return os.ErrNotExist
	}
	fs.files[newname] = b
	delete(fs.files, oldname)
	return nil
}

func (fs *memFS) DeleteFile(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[name]; !ok {
		return os.ErrNotExist
	}
	delete(fs.files, name)
	return nil
}

func (fs *memFS) FileExists(name string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.files[name]
	return ok
}

func (fs *memFS) FileSize(name string) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[name]
	if !ok {
		return 0, os.ErrNotExist
	}
	return int64(b.Len()), nil
}

func (fs *memFS) NewLogger() vfs.Logger { return testLogger{} }

type testLogger struct{}

func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}

// kv is a user key/value pair used to build test tables.
type kv struct {
	key   string
	seq   uint64
	kind  base.InternalKeyKind
	value string
}

// writeTestTable builds a table file with the given entries (assumed
// already in ascending InternalKeyComparator order) under fs, returning
// its FileMetaData.
func writeTestTable(t *testing.T, fs vfs.FS, dirname string, cmp *base.InternalKeyComparator, number uint64, entries []kv) *manifest.FileMetaData {
	t.Helper()
	b := table.NewBuilder(cmp)
	for _, e := range entries {
		b.Add(base.MakeInternalKey([]byte(e.key), e.seq, e.kind), []byte(e.value))
	}
	data := b.Finish(codec.SnappyCompressor)

	meta := &manifest.FileMetaData{Number: number}
	f, err := fs.NewAppendableFile(dirname + "/" + meta.Filename())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	meta.Size = uint64(len(data))
	meta.Smallest = b.Smallest()
	meta.Largest = b.Largest()
	meta.Compression = codec.Snappy
	meta.InitAllowedSeeks()
	return meta
}
