// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

// spool is a random access copy of a stream, held in memory or in a
// temporary file depending on [Config.CacheInMemory].
type spool struct {
	data []byte
	file *os.File
	size int64
}

// newSpool copies r, at most cfg.MaxInputSize() bytes, into a spool.
func newSpool(r io.Reader, cfg *Config) (*spool, error) {
	ler := newLimitErrorReader(r, cfg.MaxInputSize())

	if cfg.CacheInMemory() {
		data, err := io.ReadAll(ler)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read input into memory")
		}
		return &spool{data: data, size: int64(len(data))}, nil
	}

	f, err := os.CreateTemp("", "unarchive-*")
	if err != nil {
		return nil, errors.Wrap(err, "cannot create temporary file")
	}
	n, err := io.Copy(f, ler)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errors.Wrap(err, "cannot copy input to temporary file")
	}
	cfg.Logger().Debug("spooled input to disk", "path", f.Name(), "size", n)
	return &spool{file: f, size: n}, nil
}

func (s *spool) readerAt() io.ReaderAt {
	if s.file != nil {
		return s.file
	}
	return bytes.NewReader(s.data)
}

// header returns the first n bytes, or fewer if the spool is smaller.
func (s *spool) header(n int) []byte {
	if int64(n) > s.size {
		n = int(s.size)
	}
	buf := make([]byte, n)
	m, _ := s.readerAt().ReadAt(buf, 0)
	return buf[:m]
}

// tarSource returns a tar source over the spool. Closing the source does not
// remove the spool.
func (s *spool) tarSource() tarSource {
	if s.file != nil {
		return &tarReaderAtSource{r: s.file, size: s.size}
	}
	return &tarBufferSource{data: s.data}
}

// Close removes the temporary file, if any.
func (s *spool) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	if rerr := os.Remove(s.file.Name()); err == nil {
		err = rerr
	}
	return err
}
