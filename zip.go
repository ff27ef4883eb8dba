// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// zipBackend reads zip archives. Entries are addressed by their index in the
// central directory.
type zipBackend struct {
	r      *zip.Reader
	closer io.Closer
}

// OpenZip opens the zip archive at path.
func OpenZip(path string, opts ...ConfigOption) (*Archive, error) {
	return openZip(path, NewConfig(opts...))
}

func openZip(path string, cfg *Config) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	b, err := newZipBackend(f, stat.Size(), f)
	if err != nil {
		f.Close()
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	return newArchive(b, cfg), nil
}

func newZipBackend(ra io.ReaderAt, size int64, closer io.Closer) (*zipBackend, error) {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, err
	}
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	r.RegisterDecompressor(zstd.ZipMethodPKWare, zstd.ZipDecompressor())
	return &zipBackend{r: r, closer: closer}, nil
}

func (z *zipBackend) Type() string {
	return FormatZip.String()
}

// List skips directory records. Backslashes written by some Windows tools are
// reported as forward slashes.
func (z *zipBackend) List() ([]Listing, error) {
	listings := make([]Listing, 0, len(z.r.File))
	for i, f := range z.r.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasSuffix(name, "/") || f.FileInfo().IsDir() {
			continue
		}
		listings = append(listings, Listing{Path: name, Size: int64(f.UncompressedSize64), Locator: i})
	}
	return listings, nil
}

// Open returns the decompressed entry. A checksum mismatch is reported by
// the last Read.
func (z *zipBackend) Open(l Listing) (io.ReadCloser, error) {
	i, ok := l.Locator.(int)
	if !ok || i < 0 || i >= len(z.r.File) {
		return nil, newError("open", l.Path, ErrEntryMismatch, nil)
	}
	return z.r.File[i].Open()
}

func (z *zipBackend) Close() error {
	if z.closer == nil {
		return nil
	}
	return z.closer.Close()
}
