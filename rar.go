// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"io"
	"sync"

	"github.com/nwaples/rardecode"
	"github.com/pkg/errors"
)

// rarStream is a rar decoder positioned before the first header.
type rarStream struct {
	r      *rardecode.Reader
	closer io.Closer
}

// rarBackend reads rar archives. The decoder can only move forward, so every
// Open starts a new decoder and skips to the requested header. Calls are
// serialized.
type rarBackend struct {
	mu      sync.Mutex
	open    func() (*rarStream, error)
	maxSize int64
}

// rarLocator addresses an entry by its header position and verifies it by name.
type rarLocator struct {
	index int
	name  string
}

// OpenRar opens the rar archive at path. Multi-volume archives are followed
// through their sibling volume files.
func OpenRar(path string, opts ...ConfigOption) (*Archive, error) {
	return openRar(path, NewConfig(opts...))
}

func openRar(path string, cfg *Config) (*Archive, error) {
	b, err := newRarBackend(func() (*rarStream, error) {
		rc, err := rardecode.OpenReader(path, "")
		if err != nil {
			return nil, err
		}
		return &rarStream{r: &rc.Reader, closer: rc}, nil
	}, cfg)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	return newArchive(b, cfg), nil
}

// newRarBackend validates the archive by reading its first header.
func newRarBackend(open func() (*rarStream, error), cfg *Config) (*rarBackend, error) {
	s, err := open()
	if err != nil {
		return nil, err
	}
	defer s.close()
	if _, err := s.r.Next(); err != nil && err != io.EOF {
		return nil, err
	}
	return &rarBackend{open: open, maxSize: cfg.MaxExtractionSize()}, nil
}

// newRarReaderAtOpener decodes a rar archive held by ra.
func newRarReaderAtOpener(ra io.ReaderAt, size int64) func() (*rarStream, error) {
	return func() (*rarStream, error) {
		r, err := rardecode.NewReader(io.NewSectionReader(ra, 0, size), "")
		if err != nil {
			return nil, err
		}
		return &rarStream{r: r}, nil
	}
}

func (s *rarStream) close() {
	if s.closer != nil {
		s.closer.Close()
	}
}

func (b *rarBackend) Type() string {
	return FormatRar.String()
}

func (b *rarBackend) List() ([]Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.open()
	if err != nil {
		return nil, err
	}
	defer s.close()

	var listings []Listing
	for index := 0; ; index++ {
		hdr, err := s.r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "cannot read rar header")
		}
		if hdr.IsDir {
			continue
		}
		listings = append(listings, Listing{
			Path:    hdr.Name,
			Size:    hdr.UnPackedSize,
			Locator: rarLocator{index: index, name: hdr.Name},
		})
	}
	return listings, nil
}

// Open decodes the whole entry into memory before returning it, so that the
// decoder is released before the caller starts reading.
func (b *rarBackend) Open(l Listing) (io.ReadCloser, error) {
	loc, ok := l.Locator.(rarLocator)
	if !ok {
		return nil, newError("open", l.Path, ErrEntryMismatch, nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.open()
	if err != nil {
		return nil, err
	}
	defer s.close()

	for index := 0; ; index++ {
		hdr, err := s.r.Next()
		if err == io.EOF {
			return nil, newError("open", l.Path, ErrEntryNotFound, nil)
		}
		if err != nil {
			return nil, errors.Wrap(err, "cannot read rar header")
		}
		if index < loc.index {
			continue
		}
		if hdr.Name != loc.name {
			return nil, newError("open", l.Path, ErrEntryNotFound, errors.Errorf("found %q at header %d", hdr.Name, index))
		}

		data, err := readAllLimited(s.r, b.maxSize)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// Close is a no-op, every call opens and closes its own decoder.
func (b *rarBackend) Close() error {
	return nil
}
