// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"strconv"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// tarBlockSize is the size of every tar header and data block.
const tarBlockSize = 512

// Field layout of a ustar header block.
const (
	tarNameOffset     = 0
	tarNameLength     = 100
	tarSizeOffset     = 124
	tarSizeLength     = 12
	tarTypeflagOffset = 156
	tarPrefixOffset   = 345
	tarPrefixLength   = 155
)

// tarBlockKind classifies a 512 byte block.
type tarBlockKind int

const (
	// tarBlockNormal is a regular file header ('0', '7' or NUL typeflag).
	tarBlockNormal tarBlockKind = iota
	// tarBlockOther is any other header (directory, link, pax, gnu, ...).
	tarBlockOther
	// tarBlockZero is an all zero block, usually end-of-archive padding.
	tarBlockZero
)

// tarBlockHeader is the subset of a tar header needed to enumerate files.
type tarBlockHeader struct {
	kind     tarBlockKind
	fileName string
	fileSize int64
}

var errInvalidTarHeader = errors.New("invalid tar header")

// parseTarBlockHeader decodes block. A block that cannot be decoded returns an
// error and is skipped by the walker.
func parseTarBlockHeader(block []byte) (tarBlockHeader, error) {
	if len(block) != tarBlockSize {
		return tarBlockHeader{}, errors.Wrapf(errInvalidTarHeader, "block size %d", len(block))
	}

	var kind tarBlockKind
	switch block[tarTypeflagOffset] {
	case 0:
		if isZeroBlock(block) {
			kind = tarBlockZero
		} else {
			kind = tarBlockNormal
		}
	case '0', '7':
		kind = tarBlockNormal
	default:
		kind = tarBlockOther
	}

	size, err := parseTarOctal(block[tarSizeOffset : tarSizeOffset+tarSizeLength])
	if err != nil {
		return tarBlockHeader{}, err
	}

	prefix := cString(block[tarPrefixOffset : tarPrefixOffset+tarPrefixLength])
	name := cString(block[tarNameOffset : tarNameOffset+tarNameLength])
	if len(prefix) > 0 {
		name = prefix + "/" + name
	}
	if !utf8.ValidString(name) {
		return tarBlockHeader{}, errors.Wrap(errInvalidTarHeader, "file name is not valid UTF-8")
	}

	return tarBlockHeader{kind: kind, fileName: name, fileSize: size}, nil
}

// parseTarOctal reads an octal number terminated by NUL or space. Leading
// spaces are skipped and an empty field is zero.
func parseTarOctal(field []byte) (int64, error) {
	field = bytes.TrimLeft(field, " ")
	end := 0
	for end < len(field) && field[end] >= '0' && field[end] <= '7' {
		end++
	}
	if end == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(field[:end]), 8, 64)
	if err != nil {
		return 0, errors.Wrap(errInvalidTarHeader, "size out of range")
	}
	return n, nil
}

// cString returns the bytes before the first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func isZeroBlock(block []byte) bool {
	for _, c := range block {
		if c != 0 {
			return false
		}
	}
	return true
}

// tarDataBlocks returns the number of blocks that hold size bytes.
func tarDataBlocks(size int64) int64 {
	return (size + tarBlockSize - 1) / tarBlockSize
}
