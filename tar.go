// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

// tarBackend enumerates and reads a tar archive block by block. Only regular
// files are listed, every other header is skipped one block at a time.
type tarBackend struct {
	src tarSource
	typ string
}

// tarLocator is the position of an entry's data in the source.
type tarLocator struct {
	offset int64
}

// OpenTar opens the uncompressed tar archive at path.
func OpenTar(path string, opts ...ConfigOption) (*Archive, error) {
	return openTar(path, NewConfig(opts...))
}

func openTar(path string, cfg *Config) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	return newArchive(newTarBackend(&tarReaderAtSource{r: f, size: stat.Size(), closer: f}, FormatTar.String()), cfg), nil
}

// NewTarArchive returns an archive over an uncompressed tar held in memory.
// data must not be modified while the archive is in use.
func NewTarArchive(data []byte, opts ...ConfigOption) *Archive {
	return New(newTarBackend(&tarBufferSource{data: data}, FormatTar.String()), opts...)
}

func newTarBackend(src tarSource, typ string) *tarBackend {
	return &tarBackend{src: src, typ: typ}
}

// Type returns "tar", or "tar.<compression>" for a decompressed archive.
func (t *tarBackend) Type() string {
	return t.typ
}

// List walks the headers. An unreadable header or a non-file header advances
// by a single block, a file header skips its data blocks. The walk ends when
// no further block can be read.
func (t *tarBackend) List() ([]Listing, error) {
	var listings []Listing
	for i := int64(0); ; {
		block, ok := t.src.dataBlock(i)
		if !ok {
			break
		}

		hdr, err := parseTarBlockHeader(block)
		if err != nil || hdr.kind != tarBlockNormal {
			i++
			continue
		}

		listings = append(listings, Listing{
			Path:    hdr.fileName,
			Size:    hdr.fileSize,
			Locator: tarLocator{offset: (i + 1) * tarBlockSize},
		})
		i += 1 + tarDataBlocks(hdr.fileSize)
	}
	return listings, nil
}

func (t *tarBackend) Open(l Listing) (io.ReadCloser, error) {
	loc, ok := l.Locator.(tarLocator)
	if !ok {
		return nil, newError("open", l.Path, ErrEntryMismatch, nil)
	}
	data, err := t.src.fileData(loc.offset, l.Size)
	if err != nil {
		return nil, newError("open", l.Path, ErrRead, errors.Wrap(err, "cannot read tar entry"))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (t *tarBackend) Close() error {
	return t.src.Close()
}
