// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package record implements the framed log format spec.md §6 specifies
// for the MANIFEST: 32 KiB blocks of 7-byte-headered
// {CRC32C(4) | length(2) | type(1)} chunks, with FIRST/MIDDLE/LAST
// chunking for records that span a block boundary.
package record

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/ddf8196/leveldb/internal/base"
)

const (
	// BlockSize is the size of one physical block.
	BlockSize = 32 * 1024
	// HeaderSize is the size of a chunk header: 4-byte CRC32C, 2-byte
	// length, 1-byte type.
	HeaderSize = 7
)

// Chunk types, part of the on-disk format.
const (
	chunkFull   = 1
	chunkFirst  = 2
	chunkMiddle = 3
	chunkLast   = 4
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Writer appends records to a log file using the chunked block format.
// It is not safe for concurrent use; the engine's single-writer model
// (spec.md §5) serializes all MANIFEST appends externally.
type Writer struct {
	w       io.Writer
	block   [BlockSize]byte
	n       int
	flushed int // bytes of block already written to w
}

// NewWriter wraps w, appending new blocks starting at the next BlockSize
// boundary (the caller is responsible for positioning w there if
// reopening an existing file for append).
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord writes one logical record, splitting it into FIRST/MIDDLE/
// LAST chunks if it does not fit in the remainder of the current block.
func (w *Writer) WriteRecord(p []byte) error {
	first := true
	for {
		space := BlockSize - w.n
		if space < HeaderSize {
			for i := w.n; i < BlockSize; i++ {
				w.block[i] = 0
			}
			w.n = BlockSize
			if err := w.flushBlock(); err != nil {
				return err
			}
			continue
		}

		var kind uint8
		var n int
		if len(p) <= space-HeaderSize {
			if first {
				kind = chunkFull
			} else {
				kind = chunkLast
			}
			n = len(p)
		} else {
			if first {
				kind = chunkFirst
			} else {
				kind = chunkMiddle
			}
			n = space - HeaderSize
		}

		var header [HeaderSize]byte
		binary.LittleEndian.PutUint32(header[:4], crc32.Checksum(p[:n], castagnoli))
		binary.LittleEndian.PutUint16(header[4:6], uint16(n))
		header[6] = kind

		copy(w.block[w.n:], header[:])
		copy(w.block[w.n+HeaderSize:], p[:n])
		w.n += HeaderSize + n
		p = p[n:]

		if len(p) == 0 {
			return nil
		}
		if err := w.flushBlock(); err != nil {
			return err
		}
		first = false
	}
}

// Sync flushes any buffered bytes and, if the underlying writer supports
// it, fsyncs to stable storage.
func (w *Writer) Sync() error {
	if w.n > w.flushed {
		if err := w.flushBlock(); err != nil {
			return err
		}
	}
	if f, ok := w.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (w *Writer) flushBlock() error {
	if _, err := w.w.Write(w.block[w.flushed:w.n]); err != nil {
		return err
	}
	if w.n == BlockSize {
		w.n = 0
	}
	w.flushed = w.n
	return nil
}

// Reader reads records written by Writer. It reads and buffers one
// physical BlockSize block at a time, matching the on-disk framing: a
// run of fewer than HeaderSize leftover bytes at the end of a block is
// the zero-fill trailer Writer pads a block boundary with, and is
// discarded rather than parsed as a chunk header.
type Reader struct {
	r    io.Reader
	buf  [BlockSize]byte
	data []byte // unconsumed bytes of the current block
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadRecord returns the next logical record, or io.EOF once the
// underlying reader is exhausted between records. A checksum mismatch,
// an unrecognized chunk type, or a record left incomplete by a
// truncated block is reported as base.ErrCorruption.
func (r *Reader) ReadRecord() ([]byte, error) {
	var record []byte
	first := true
	for {
		payload, kind, err := r.nextChunk()
		if err != nil {
			if err == io.EOF {
				if first {
					return nil, io.EOF
				}
				return nil, base.ErrCorruption
			}
			return nil, err
		}

		switch kind {
		case chunkFull:
			if !first {
				return nil, base.ErrCorruption
			}
			return append([]byte{}, payload...), nil
		case chunkFirst:
			if !first {
				return nil, base.ErrCorruption
			}
			record = append(record, payload...)
			first = false
		case chunkMiddle:
			if first {
				return nil, base.ErrCorruption
			}
			record = append(record, payload...)
		case chunkLast:
			if first {
				return nil, base.ErrCorruption
			}
			record = append(record, payload...)
			return record, nil
		default:
			return nil, base.ErrCorruption
		}
	}
}

// nextChunk returns the next physical chunk's payload and type, filling
// a fresh block when the current one has no room left for a header.
func (r *Reader) nextChunk() ([]byte, uint8, error) {
	if len(r.data) < HeaderSize {
		if err := r.fillBlock(); err != nil {
			return nil, 0, err
		}
	}

	header := r.data[:HeaderSize]
	checksum := binary.LittleEndian.Uint32(header[:4])
	length := binary.LittleEndian.Uint16(header[4:6])
	kind := header[6]
	r.data = r.data[HeaderSize:]

	if int(length) > len(r.data) {
		return nil, 0, base.ErrCorruption
	}
	payload := r.data[:length]
	r.data = r.data[length:]

	if crc32.Checksum(payload, castagnoli) != checksum {
		return nil, 0, base.ErrCorruption
	}
	return payload, kind, nil
}

// fillBlock reads the next physical block, discarding whatever trailer
// remained of the previous one. A short final read (the underlying file
// ends mid-block, as the unpadded last block Sync writes does) is kept
// as-is; nextChunk's length check turns a truncated chunk into
// base.ErrCorruption.
func (r *Reader) fillBlock() error {
	n, err := io.ReadFull(r.r, r.buf[:])
	switch err {
	case nil:
		r.data = r.buf[:n]
		return nil
	case io.ErrUnexpectedEOF:
		r.data = r.buf[:n]
		return nil
	case io.EOF:
		r.data = nil
		return io.EOF
	default:
		return err
	}
}
