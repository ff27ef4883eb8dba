// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"io"
	"sync"

	"github.com/bodgit/sevenzip"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// sevenZipBackend reads 7z archives. Solid blocks make decoding a single entry
// expensive, so decoded entries are kept in an LRU cache (nil if disabled).
// The decoder and the cache are shared, calls are serialized.
type sevenZipBackend struct {
	mu      sync.Mutex
	r       *sevenzip.Reader
	closer  io.Closer
	cache   *lru.Cache[int, []byte]
	maxSize int64
	logger  logger
}

// OpenSevenZip opens the 7z archive at path.
func OpenSevenZip(path string, opts ...ConfigOption) (*Archive, error) {
	return openSevenZip(path, NewConfig(opts...))
}

func openSevenZip(path string, cfg *Config) (*Archive, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	b, err := newSevenZipBackend(&rc.Reader, rc, cfg)
	if err != nil {
		rc.Close()
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	return newArchive(b, cfg), nil
}

// newSevenZipReaderAt decodes a 7z archive held by ra.
func newSevenZipReaderAt(ra io.ReaderAt, size int64, cfg *Config) (*sevenZipBackend, error) {
	r, err := sevenzip.NewReader(ra, size)
	if err != nil {
		return nil, err
	}
	return newSevenZipBackend(r, nil, cfg)
}

func newSevenZipBackend(r *sevenzip.Reader, closer io.Closer, cfg *Config) (*sevenZipBackend, error) {
	b := &sevenZipBackend{r: r, closer: closer, maxSize: cfg.MaxExtractionSize(), logger: cfg.Logger()}
	if cfg.SevenZipCacheEntries() <= 0 {
		return b, nil
	}
	cache, err := lru.NewWithEvict[int, []byte](cfg.SevenZipCacheEntries(), func(index int, _ []byte) {
		b.logger.Debug("evicted decoded 7z entry", "index", index)
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot create 7z cache")
	}
	b.cache = cache
	return b, nil
}

func (b *sevenZipBackend) Type() string {
	return FormatSevenZip.String()
}

func (b *sevenZipBackend) List() ([]Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	listings := make([]Listing, 0, len(b.r.File))
	for i, f := range b.r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		listings = append(listings, Listing{Path: f.Name, Size: int64(f.UncompressedSize), Locator: i})
	}
	return listings, nil
}

func (b *sevenZipBackend) Open(l Listing) (io.ReadCloser, error) {
	i, ok := l.Locator.(int)
	if !ok || i < 0 || i >= len(b.r.File) {
		return nil, newError("open", l.Path, ErrEntryMismatch, nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cache != nil {
		if data, ok := b.cache.Get(i); ok {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	rc, err := b.r.File[i].Open()
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode 7z entry")
	}
	defer rc.Close()

	data, err := readAllLimited(rc, b.maxSize)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		b.cache.Add(i, data)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *sevenZipBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cache != nil {
		b.cache.Purge()
	}
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
