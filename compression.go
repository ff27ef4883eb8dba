// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"
	"path/filepath"
	"strings"
)

// Compression identifies a stream compression wrapped around a tar archive.
type Compression int

const (
	// CompressionNone means the stream is not compressed.
	CompressionNone Compression = iota
	// CompressionGZip is a gzip stream.
	CompressionGZip
	// CompressionBzip2 is a bzip2 stream.
	CompressionBzip2
	// CompressionXz is an xz stream.
	CompressionXz
	// CompressionZstd is a zstandard stream.
	CompressionZstd
	// CompressionLZ4 is an lz4 frame stream.
	CompressionLZ4
	// CompressionSnappy is a framed snappy stream.
	CompressionSnappy
	// CompressionZlib is a zlib stream.
	CompressionZlib
	// CompressionBrotli is a brotli stream. Brotli has no magic bytes and is
	// only detected by file extension.
	CompressionBrotli
)

// decompressionFunc returns a reader that decompresses src.
type decompressionFunc func(src io.Reader) (io.Reader, error)

type compression struct {
	kind       Compression
	extensions []string
	magicBytes [][]byte
	decompress decompressionFunc
}

// compressions lists the supported stream compressions. The first extension
// of each entry is its canonical name.
var compressions = []compression{
	{CompressionGZip, []string{fileExtensionGZip, fileExtensionTarGZip}, magicBytesGZip, decompressGZipStream},
	{CompressionBzip2, []string{fileExtensionBzip2, "tbz2", "tbz"}, magicBytesBzip2, decompressBzip2Stream},
	{CompressionXz, []string{fileExtensionXz, "txz"}, magicBytesXz, decompressXzStream},
	{CompressionZstd, []string{fileExtensionZstd, "tzst"}, magicBytesZstd, decompressZstdStream},
	{CompressionLZ4, []string{fileExtensionLZ4}, magicBytesLZ4, decompressLZ4Stream},
	{CompressionSnappy, []string{fileExtensionSnappy}, magicBytesSnappy, decompressSnappyStream},
	{CompressionZlib, []string{fileExtensionZlib}, magicBytesZlib, decompressZlibStream},
	{CompressionBrotli, []string{fileExtensionBrotli}, nil, decompressBrotliStream},
}

// String returns the canonical file extension of the compression.
func (c Compression) String() string {
	for _, comp := range compressions {
		if comp.kind == c {
			return comp.extensions[0]
		}
	}
	return "none"
}

// DetectCompression identifies the compression by its magic bytes. Brotli has
// no signature and is only found by [DetectCompressionByExtension].
func DetectCompression(header []byte) (Compression, bool) {
	for _, c := range compressions {
		if matchesMagicBytes(header, 0, c.magicBytes) {
			return c.kind, true
		}
	}
	return CompressionNone, false
}

// DetectCompressionByExtension identifies the compression by the file
// extension of name.
func DetectCompressionByExtension(name string) (Compression, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, c := range compressions {
		for _, e := range c.extensions {
			if e == ext {
				return c.kind, true
			}
		}
	}
	return CompressionNone, false
}

// decompressor returns the decompression function for c.
func decompressor(c Compression) (decompressionFunc, bool) {
	for _, comp := range compressions {
		if comp.kind == c {
			return comp.decompress, true
		}
	}
	return nil, false
}
