// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format identifies a supported container format.
type Format int

const (
	// FormatUnknown is returned when no format could be detected.
	FormatUnknown Format = iota
	// FormatZip is a zip archive, including cbz, jar, epub, apk and xpi files.
	FormatZip
	// FormatRar is a rar archive (v4 or v5).
	FormatRar
	// FormatSevenZip is a 7z archive.
	FormatSevenZip
	// FormatTar is an uncompressed tar archive.
	FormatTar
)

// String returns the canonical file extension of the format.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatRar:
		return "rar"
	case FormatSevenZip:
		return "7z"
	case FormatTar:
		return "tar"
	default:
		return "unknown"
	}
}

// formatByExtension maps lowercase file extensions to formats. Comic book,
// e-book and package containers are plain zip/rar/7z/tar files underneath.
var formatByExtension = map[string]Format{
	"zip":  FormatZip,
	"cbz":  FormatZip,
	"jar":  FormatZip,
	"epub": FormatZip,
	"apk":  FormatZip,
	"xpi":  FormatZip,
	"rar":  FormatRar,
	"cbr":  FormatRar,
	"7z":   FormatSevenZip,
	"cb7":  FormatSevenZip,
	"tar":  FormatTar,
	"cbt":  FormatTar,
}

// magicSignature is a set of byte sequences that identify a format when found
// at offset.
type magicSignature struct {
	format     Format
	offset     int
	magicBytes [][]byte
}

// magicSignatures is evaluated in order, the first match wins.
//
// The leading tar signatures are only four bytes long and match archives whose
// first member is named "ustar..." or a pax "PaxHeaders" entry. Regular tar
// files are recognized by the ustar magic at offset 257.
var magicSignatures = []magicSignature{
	{format: FormatZip, magicBytes: [][]byte{
		{0x50, 0x4B, 0x03, 0x04},
		{0x50, 0x4B, 0x05, 0x06},
		{0x50, 0x4B, 0x07, 0x08},
	}},
	{format: FormatRar, magicBytes: [][]byte{
		{0x52, 0x61, 0x72, 0x21},
	}},
	{format: FormatSevenZip, magicBytes: [][]byte{
		{0x37, 0x7A, 0xBC, 0xAF},
	}},
	{format: FormatTar, magicBytes: [][]byte{
		{0x75, 0x73, 0x74, 0x61},
		{0x50, 0x61, 0x78, 0x48},
	}},
	{format: FormatTar, offset: offsetTar, magicBytes: magicBytesTar},
}

// offsetTar is the offset where the ustar magic is located in a tar header.
const offsetTar = 257

// magicBytesTar are the ustar magic values of POSIX and GNU tar headers.
var magicBytesTar = [][]byte{
	[]byte("ustar\x00tar\x00"),
	[]byte("ustar\x00"),
	[]byte("ustar  \x00"),
}

// maxHeaderLength is the number of leading bytes needed to evaluate every
// archive and compression signature.
var maxHeaderLength int

func init() {
	for _, s := range magicSignatures {
		for _, mb := range s.magicBytes {
			if n := s.offset + len(mb); n > maxHeaderLength {
				maxHeaderLength = n
			}
		}
	}
	for _, c := range compressions {
		for _, mb := range c.magicBytes {
			if len(mb) > maxHeaderLength {
				maxHeaderLength = len(mb)
			}
		}
	}
}

// DetectByExtension derives the format from the extension of name. The
// comparison is case-insensitive.
func DetectByExtension(name string) (Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	f, ok := formatByExtension[ext]
	return f, ok
}

// DetectByMagic derives the format from the leading bytes of a file. Headers
// shorter than a signature never match it.
func DetectByMagic(header []byte) (Format, bool) {
	for _, s := range magicSignatures {
		if matchesMagicBytes(header, s.offset, s.magicBytes) {
			return s.format, true
		}
	}
	return FormatUnknown, false
}

// DetectFile reads the prefix of the file at path and detects its format.
func DetectFile(path string) (Format, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, false, errors.Wrap(err, "cannot open file")
	}
	defer f.Close()

	hr, err := newHeaderReader(f, maxHeaderLength)
	if err != nil {
		return FormatUnknown, false, err
	}
	format, ok := DetectByMagic(hr.PeekHeader())
	return format, ok, nil
}

// matchesMagicBytes checks if the bytes in data at offset match one of the
// magic byte sequences.
func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	for _, mb := range magicBytes {
		if offset+len(mb) > len(data) {
			continue
		}
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}
	return false
}
