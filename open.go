// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Open opens the archive or directory at path. The format is detected by the
// leading magic bytes of the file; compressed tar archives are decompressed
// into a spool first. The file extension is only consulted for brotli, which
// has no magic bytes, or if [WithExtensionFallback] is set.
func Open(path string, opts ...ConfigOption) (*Archive, error) {
	cfg := NewConfig(opts...)

	stat, err := os.Stat(path)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	if stat.IsDir() {
		return openDir(path, cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	defer f.Close()

	hr, err := newHeaderReader(f, maxHeaderLength)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	header := hr.PeekHeader()

	format, ok := DetectByMagic(header)
	if !ok {
		if c, isCompressed := DetectCompression(header); isCompressed {
			cfg.Logger().Debug("detected compression", "path", path, "compression", c)
			return openCompressedOrFail(hr, c, path, false, cfg)
		}
		// brotli has no magic bytes, everything else needs the fallback
		if c, isCompressed := DetectCompressionByExtension(path); isCompressed && (c == CompressionBrotli || cfg.ExtensionFallback()) {
			cfg.Logger().Debug("detected compression by extension", "path", path, "compression", c)
			return openCompressedOrFail(hr, c, path, true, cfg)
		}
	}
	if !ok && cfg.ExtensionFallback() {
		format, ok = DetectByExtension(path)
	}
	if !ok {
		return nil, newError("open", path, ErrUnknownFormat, nil)
	}

	cfg.Logger().Debug("detected format", "path", path, "format", format)
	switch format {
	case FormatZip:
		return openZip(path, cfg)
	case FormatRar:
		return openRar(path, cfg)
	case FormatSevenZip:
		return openSevenZip(path, cfg)
	default:
		return openTar(path, cfg)
	}
}

// OpenReader reads an archive from r. The input is spooled, at most
// [Config.MaxInputSize] bytes, into memory or a temporary file (see
// [WithCacheInMemory]) which is removed when the archive is closed.
func OpenReader(r io.Reader, opts ...ConfigOption) (*Archive, error) {
	cfg := NewConfig(opts...)

	hr, err := newHeaderReader(r, maxHeaderLength)
	if err != nil {
		return nil, newError("open", "", ErrOpenContainer, err)
	}
	header := hr.PeekHeader()

	format, ok := DetectByMagic(header)
	if !ok {
		if c, isCompressed := DetectCompression(header); isCompressed {
			return openCompressedOrFail(hr, c, "", false, cfg)
		}
		return nil, newError("open", "", ErrUnknownFormat, nil)
	}

	sp, err := newSpool(hr, cfg)
	if err != nil {
		return nil, newError("open", "", ErrOpenContainer, err)
	}

	b, err := spoolBackend(sp, format, cfg)
	if err != nil {
		sp.Close()
		return nil, newError("open", "", ErrOpenContainer, err)
	}
	a := newArchive(b, cfg)
	a.onClose = sp.Close
	return a, nil
}

// spoolBackend creates the backend for format on top of sp.
func spoolBackend(sp *spool, format Format, cfg *Config) (Backend, error) {
	switch format {
	case FormatZip:
		return newZipBackend(sp.readerAt(), sp.size, nil)
	case FormatRar:
		return newRarBackend(newRarReaderAtOpener(sp.readerAt(), sp.size), cfg)
	case FormatSevenZip:
		return newSevenZipReaderAt(sp.readerAt(), sp.size, cfg)
	case FormatTar:
		return newTarBackend(sp.tarSource(), FormatTar.String()), nil
	default:
		return nil, ErrUnknownFormat
	}
}

// openCompressedOrFail opens a compressed tar archive and classifies failures.
// If the compression was only guessed from the file extension, a stream the
// decompressor rejects is reported as [ErrUnknownFormat].
func openCompressedOrFail(src io.Reader, c Compression, path string, byExtension bool, cfg *Config) (*Archive, error) {
	a, err := openCompressed(src, c, cfg)
	if err == nil {
		return a, nil
	}
	if errors.Is(err, ErrUnknownFormat) {
		return nil, newError("open", path, ErrUnknownFormat, err)
	}
	if byExtension && !errors.Is(err, ErrMaxInputSizeExceeded) {
		return nil, newError("open", path, ErrUnknownFormat, err)
	}
	return nil, newError("open", path, ErrOpenContainer, err)
}

// openCompressed decompresses src into a spool and opens the result as tar
// archive. Anything else than a tar archive is rejected with
// [ErrUnknownFormat].
func openCompressed(src io.Reader, c Compression, cfg *Config) (*Archive, error) {
	decompress, ok := decompressor(c)
	if !ok {
		return nil, ErrUnknownFormat
	}

	ds, err := decompress(newLimitErrorReader(src, cfg.MaxInputSize()))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot start %s decompression", c)
	}
	if closer, ok := ds.(io.Closer); ok {
		defer closer.Close()
	}

	sp, err := newSpool(ds, cfg)
	if err != nil {
		return nil, err
	}

	if format, ok := DetectByMagic(sp.header(maxHeaderLength)); !ok || format != FormatTar {
		sp.Close()
		return nil, newError("open", "", ErrUnknownFormat, errors.Errorf("%s stream does not contain a tar archive", c))
	}

	a := newArchive(newTarBackend(sp.tarSource(), FormatTar.String()+"."+c.String()), cfg)
	a.onClose = sp.Close
	return a, nil
}
