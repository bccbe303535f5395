// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package leveldb

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ddf8196/leveldb/internal/base"
	"github.com/ddf8196/leveldb/internal/manifest"
	"github.com/ddf8196/leveldb/internal/record"
	"github.com/ddf8196/leveldb/internal/vfs"
)

// VersionSet owns the catalogue of Versions: the currently active one,
// every Version still reachable by a live iterator or snapshot, the
// MANIFEST log those Versions are durably derived from, and the file- and
// sequence-number counters every new file and write draws from. Grounded
// on org.iq80.leveldb.impl.VersionSet, generalized from
// khushmanvar-hyperfork/version_set.go's single-DB-sized versionSet.
type VersionSet struct {
	opts    *Options
	cmp     *base.InternalKeyComparator
	fs      vfs.FS
	dirname string

	tableCache TableCache

	mu              sync.Mutex
	current         *Version
	activeVersions  map[*Version]struct{}
	compactPointers map[int]base.InternalKey

	logNumber          uint64
	prevLogNumber      uint64
	manifestFileNumber uint64
	descriptorFile     vfs.File
	descriptorLog      *record.Writer

	// nextFileNumber and lastSequence are mutated without mu: every
	// caller that needs a globally unique file number or the latest
	// sequence number (the compaction run loop, a writer finishing a
	// batch) can be concurrent with MANIFEST work, so these are atomics
	// rather than fields mu also protects.
	nextFileNumber uint64
	lastSequence   uint64
}

// NewVersionSet returns a VersionSet over an empty catalogue: every level
// empty, file numbering starting at 2. Call Recover instead to reopen an
// existing database.
func NewVersionSet(dirname string, opts *Options) *VersionSet {
	opts.EnsureDefaults()
	cmp := base.MakeInternalKeyComparator(opts.Comparer)
	vs := &VersionSet{
		opts:            opts,
		cmp:             &cmp,
		fs:              opts.FS,
		dirname:         dirname,
		activeVersions:  make(map[*Version]struct{}),
		compactPointers: make(map[int]base.InternalKey),
		nextFileNumber:  2,
	}
	vs.tableCache = NewTableCache(vs.fs, dirname, vs.cmp)
	v := NewVersion([NumLevels][]*manifest.FileMetaData{}, vs.cmp, vs.tableCache)
	vs.finalizeVersion(v)
	vs.appendVersionLocked(v)
	return vs
}

// Current returns the currently active Version, retained for the
// caller's use; the caller must Release it.
func (vs *VersionSet) Current() *Version {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.current.Retain()
	return vs.current
}

// NextFileNumber allocates and returns a fresh, never-before-used file
// number.
func (vs *VersionSet) NextFileNumber() uint64 {
	return atomic.AddUint64(&vs.nextFileNumber, 1) - 1
}

// peekNextFileNumber returns the next file number that would be
// allocated, without allocating it, for persisting into a VersionEdit.
func (vs *VersionSet) peekNextFileNumber() uint64 {
	return atomic.LoadUint64(&vs.nextFileNumber)
}

// MarkFileNumberUsed ensures every future NextFileNumber call returns a
// value greater than num, e.g. after recovering a log file name from
// disk whose number the counter doesn't yet know about.
func (vs *VersionSet) MarkFileNumberUsed(num uint64) {
	for {
		cur := atomic.LoadUint64(&vs.nextFileNumber)
		if cur > num {
			return
		}
		if atomic.CompareAndSwapUint64(&vs.nextFileNumber, cur, num+1) {
			return
		}
	}
}

// LastSequence returns the sequence number of the most recent write.
func (vs *VersionSet) LastSequence() uint64 {
	return atomic.LoadUint64(&vs.lastSequence)
}

// SetLastSequence records s as the most recent write's sequence number.
// s must not be less than the current value.
func (vs *VersionSet) SetLastSequence(s uint64) {
	atomic.StoreUint64(&vs.lastSequence, s)
}

// appendVersionLocked installs v as current, retaining it and releasing
// (and, if that drops its refcount to zero, forgetting) the prior
// current Version. Callers must hold mu.
func (vs *VersionSet) appendVersionLocked(v *Version) {
	old := vs.current
	vs.current = v
	vs.activeVersions[v] = struct{}{}
	if old != nil && old.Release() {
		delete(vs.activeVersions, old)
	}
}

// finalizeVersion computes v's compaction trigger: for L0, file count
// against L0CompactionTrigger; for L>=1, byte size against
// Options.MaxBytesForLevel. The level with the highest score becomes
// v.CompactionLevel. Grounded on VersionSet.java's finalizeVersion.
func (vs *VersionSet) finalizeVersion(v *Version) {
	bestLevel := -1
	bestScore := -1.0
	for level := 0; level < NumLevels; level++ {
		var score float64
		if level == 0 {
			score = float64(v.NumberOfFilesInLevel(0)) / float64(L0CompactionTrigger)
		} else {
			score = float64(v.NumberOfBytesInLevel(level)) / vs.opts.MaxBytesForLevel(level)
		}
		if score > bestScore {
			bestScore = score
			bestLevel = level
		}
	}
	v.CompactionLevel = bestLevel
	v.CompactionScore = bestScore
}

// NeedsCompaction reports whether the current Version has a size- or
// seek-triggered compaction pending.
func (vs *VersionSet) NeedsCompaction() bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.current.CompactionScore >= 1 || vs.current.FileToCompact != nil
}

// GetLiveFiles returns the set of file numbers referenced by any Version
// still reachable (the current one, plus any an in-flight iterator or
// snapshot retains). A file not in this set is safe to delete.
func (vs *VersionSet) GetLiveFiles() map[uint64]struct{} {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	live := make(map[uint64]struct{})
	for v := range vs.activeVersions {
		for level := 0; level < NumLevels; level++ {
			for _, f := range v.Files(level) {
				live[f.Number] = struct{}{}
			}
		}
	}
	return live
}

// LogAndApply applies edit against the current Version, installs the
// resulting Version as current, and durably records edit in the
// MANIFEST. Per spec.md §5, the mutex is released for the MANIFEST
// append and fsync (the slow part) and re-acquired before the new
// Version is published, so concurrent readers are never blocked on disk
// I/O they don't need.
func (vs *VersionSet) LogAndApply(edit *manifest.VersionEdit) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if !edit.HasLogNumber {
		edit.LogNumber = vs.logNumber
		edit.HasLogNumber = true
	}
	if !edit.HasPrevLogNumber {
		edit.PrevLogNumber = vs.prevLogNumber
		edit.HasPrevLogNumber = true
	}
	if !edit.HasNextFileNumber {
		edit.NextFileNumber = vs.peekNextFileNumber()
		edit.HasNextFileNumber = true
	}
	if !edit.HasLastSequence {
		edit.LastSequence = vs.LastSequence()
		edit.HasLastSequence = true
	}

	b := NewBuilder(vs, vs.current)
	b.Apply(edit)
	files, err := b.SaveTo(vs.cmp)
	b.Close()
	if err != nil {
		return err
	}
	v := NewVersion(files, vs.cmp, vs.tableCache)
	vs.finalizeVersion(v)

	newManifest := vs.descriptorLog == nil
	if newManifest {
		if err := vs.createManifestLocked(); err != nil {
			return err
		}
	}

	raw := edit.Encode(nil)

	vs.mu.Unlock()
	writeErr := vs.descriptorLog.WriteRecord(raw)
	if writeErr == nil {
		writeErr = vs.descriptorLog.Sync()
	}
	vs.mu.Lock()

	if writeErr != nil {
		vs.opts.Logger.Errorf("leveldb: MANIFEST write failed: %v", writeErr)
		if newManifest {
			// Per spec.md §4.7 step 7: a manifest created for this call
			// that never recorded a successful write is rolled back
			// rather than left behind as a CURRENT-pointed but
			// zero-progress MANIFEST.
			num := vs.manifestFileNumber
			vs.descriptorFile.Close()
			vs.fs.DeleteFile(manifestFileName(vs.dirname, num))
			vs.descriptorFile = nil
			vs.descriptorLog = nil
		}
		return writeErr
	}

	if edit.HasLogNumber {
		vs.logNumber = edit.LogNumber
	}
	if edit.HasPrevLogNumber {
		vs.prevLogNumber = edit.PrevLogNumber
	}
	vs.appendVersionLocked(v)
	return nil
}

func manifestFileName(dirname string, num uint64) string {
	return fmt.Sprintf("%s/MANIFEST-%06d", dirname, num)
}

func currentFileName(dirname string) string {
	return dirname + "/CURRENT"
}

// setCurrentFile atomically repoints dirname/CURRENT at MANIFEST-num by
// writing a temp file and renaming over it, per spec.md §6.
func setCurrentFile(fs vfs.FS, dirname string, num uint64) error {
	tmp := fmt.Sprintf("%s/CURRENT.%06d.dbtmp", dirname, num)
	f, err := fs.NewAppendableFile(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(fmt.Sprintf("MANIFEST-%06d\n", num))); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return fs.Rename(tmp, currentFileName(dirname))
}

// writeSnapshot records the full current state (comparator name, compact
// pointers, every live file) as a single edit, the seed record a freshly
// created MANIFEST starts from instead of replaying the whole history.
func (vs *VersionSet) writeSnapshot(w *record.Writer) error {
	edit := &manifest.VersionEdit{HasComparator: true, Comparator: vs.cmp.Name()}
	for level, key := range vs.compactPointers {
		edit.SetCompactPointer(level, key)
	}
	for level := 0; level < NumLevels; level++ {
		for _, f := range vs.current.Files(level) {
			edit.AddFile(level, f)
		}
	}
	return w.WriteRecord(edit.Encode(nil))
}

// createManifestLocked opens a brand new MANIFEST file seeded with a
// snapshot of the current state and repoints CURRENT at it. Callers must
// hold mu.
func (vs *VersionSet) createManifestLocked() error {
	num := vs.NextFileNumber()
	f, err := vs.fs.NewAppendableFile(manifestFileName(vs.dirname, num))
	if err != nil {
		return err
	}
	w := record.NewWriter(f)
	if err := vs.writeSnapshot(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := setCurrentFile(vs.fs, vs.dirname, num); err != nil {
		f.Close()
		return err
	}
	vs.descriptorFile = f
	vs.descriptorLog = w
	vs.manifestFileNumber = num
	return nil
}

// Recover reopens an existing database's catalogue: reads CURRENT to
// find the active MANIFEST, replays every edit it contains through a
// Builder seeded with an empty Version, and installs the result as
// current. Grounded on VersionSet.java's recover.
func (vs *VersionSet) Recover() error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	currentFile, err := vs.fs.NewSequentialFile(currentFileName(vs.dirname))
	if err != nil {
		return err
	}
	data, err := io.ReadAll(currentFile)
	currentFile.Close()
	if err != nil {
		return err
	}
	manifestName := strings.TrimSuffix(strings.TrimRight(string(data), "\n"), "\r")
	if manifestName == "" {
		return base.ErrCorruption
	}

	f, err := vs.fs.NewSequentialFile(vs.dirname + "/" + manifestName)
	if err != nil {
		return err
	}
	defer f.Close()

	empty := NewVersion([NumLevels][]*manifest.FileMetaData{}, vs.cmp, vs.tableCache)
	b := NewBuilder(vs, empty)
	defer b.Close()

	r := record.NewReader(f)
	var haveComparator, hasLogNumber, hasNextFileNumber, hasLastSequence, hasPrevLogNumber bool
	var comparatorName string
	var logNumber, prevLogNumber, nextFileNumber, lastSequence uint64

	for {
		raw, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		var edit manifest.VersionEdit
		if err := edit.Decode(raw); err != nil {
			return err
		}
		if edit.HasComparator {
			comparatorName, haveComparator = edit.Comparator, true
		}
		if edit.HasLogNumber {
			logNumber, hasLogNumber = edit.LogNumber, true
		}
		if edit.HasPrevLogNumber {
			prevLogNumber, hasPrevLogNumber = edit.PrevLogNumber, true
		}
		if edit.HasNextFileNumber {
			nextFileNumber, hasNextFileNumber = edit.NextFileNumber, true
		}
		if edit.HasLastSequence {
			lastSequence, hasLastSequence = edit.LastSequence, true
		}
		b.Apply(&edit)
	}

	if haveComparator && comparatorName != vs.cmp.Name() {
		return base.ErrCorruption
	}
	if !hasNextFileNumber || !hasLastSequence || !hasLogNumber {
		return base.ErrCorruption
	}
	if !hasPrevLogNumber {
		prevLogNumber = 0
	}

	files, err := b.SaveTo(vs.cmp)
	if err != nil {
		return err
	}
	v := NewVersion(files, vs.cmp, vs.tableCache)
	vs.finalizeVersion(v)
	vs.appendVersionLocked(v)

	vs.MarkFileNumberUsed(nextFileNumber)
	vs.SetLastSequence(lastSequence)
	vs.logNumber = logNumber
	vs.prevLogNumber = prevLogNumber

	if vs.opts.ReuseManifest {
		vs.tryReuseManifestLocked(manifestName)
	}
	return nil
}

// tryReuseManifestLocked reopens manifestName in append mode instead of
// starting a fresh MANIFEST on the next LogAndApply, provided it hasn't
// already grown past one block. Grounded on
// VersionSet.java's reuseManifest / Options.ReuseManifest.
func (vs *VersionSet) tryReuseManifestLocked(manifestName string) {
	size, err := vs.fs.FileSize(vs.dirname + "/" + manifestName)
	if err != nil || size >= record.BlockSize {
		return
	}
	var num uint64
	if _, err := fmt.Sscanf(manifestName, "MANIFEST-%d", &num); err != nil {
		return
	}
	f, err := vs.fs.NewAppendableFile(vs.dirname + "/" + manifestName)
	if err != nil {
		return
	}
	vs.descriptorFile = f
	vs.descriptorLog = record.NewWriter(f)
	vs.manifestFileNumber = num
	vs.opts.Logger.Infof("leveldb: reusing MANIFEST-%06d", num)
}
