// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"

	"github.com/pkg/errors"
)

// headerReader replays the signature prefix of r before continuing with the
// rest of the stream, so that a format can be detected on a non-seekable input
// without losing bytes.
type headerReader struct {
	r      io.Reader
	header []byte
	peeked []byte
}

func newHeaderReader(r io.Reader, headerSize int) (*headerReader, error) {
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, newError("read header", "", ErrRead, errors.Wrap(err, "cannot read header"))
	}
	return &headerReader{r: r, header: buf[:n], peeked: buf[:n]}, nil
}

func (p *headerReader) Read(b []byte) (int, error) {
	if len(p.header) > 0 {
		n := copy(b, p.header)
		p.header = p.header[n:]
		return n, nil
	}
	return p.r.Read(b)
}

// PeekHeader returns the prefix, even after it was consumed by Read.
func (p *headerReader) PeekHeader() []byte {
	return p.peeked
}
