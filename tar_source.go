// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"

	"github.com/pkg/errors"
)

// tarSource provides block and byte range access to raw tar data.
type tarSource interface {
	// blockCount returns the number of complete blocks.
	blockCount() int64

	// dataBlock returns block i, or false at the end of the source.
	dataBlock(i int64) ([]byte, bool)

	// fileData returns size bytes starting at offset.
	fileData(offset, size int64) ([]byte, error)

	io.Closer
}

// tarBufferSource serves a tar archive held in memory.
type tarBufferSource struct {
	data []byte
}

func (s *tarBufferSource) blockCount() int64 {
	return int64(len(s.data)) / tarBlockSize
}

func (s *tarBufferSource) dataBlock(i int64) ([]byte, bool) {
	if i < 0 || i >= s.blockCount() {
		return nil, false
	}
	off := i * tarBlockSize
	return s.data[off : off+tarBlockSize], true
}

func (s *tarBufferSource) fileData(offset, size int64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if offset < 0 || size < 0 || offset > int64(len(s.data)) || size > int64(len(s.data))-offset {
		return nil, errors.Errorf("range %d+%d exceeds archive size %d", offset, size, len(s.data))
	}
	return s.data[offset : offset+size], nil
}

func (s *tarBufferSource) Close() error {
	return nil
}

// tarReaderAtSource serves a tar archive through positional reads, e.g. on an
// *os.File. ReadAt does not move a shared cursor, so calls may interleave.
type tarReaderAtSource struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer
}

func (s *tarReaderAtSource) blockCount() int64 {
	return s.size / tarBlockSize
}

func (s *tarReaderAtSource) dataBlock(i int64) ([]byte, bool) {
	if i < 0 || i >= s.blockCount() {
		return nil, false
	}
	block := make([]byte, tarBlockSize)
	if _, err := s.r.ReadAt(block, i*tarBlockSize); err != nil && err != io.EOF {
		return nil, false
	}
	return block, true
}

func (s *tarReaderAtSource) fileData(offset, size int64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if offset < 0 || size < 0 || offset > s.size || size > s.size-offset {
		return nil, errors.Errorf("range %d+%d exceeds archive size %d", offset, size, s.size)
	}
	data := make([]byte, size)
	n, err := s.r.ReadAt(data, offset)
	if int64(n) == size {
		return data, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, errors.Wrap(err, "cannot read entry data")
}

func (s *tarReaderAtSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
