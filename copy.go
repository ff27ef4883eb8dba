// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// copyStream copies src to dst using buf. Failures are classified: errors
// from src carry [ErrRead], errors from dst and writes that accept fewer bytes
// than offered carry [ErrWrite].
func copyStream(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			if nw < 0 || nw > nr {
				nw = 0
				if werr == nil {
					werr = io.ErrShortWrite
				}
			}
			written += int64(nw)
			if werr == nil && nw != nr {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, newError("write", "", ErrWrite, werr)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, newError("read", "", ErrRead, rerr)
		}
	}
}

// readErrorCloser tags every read error except io.EOF with [ErrRead].
type readErrorCloser struct {
	rc   io.ReadCloser
	path string
}

func (r *readErrorCloser) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && err != io.EOF {
		err = newError("read", r.path, ErrRead, err)
	}
	return n, err
}

func (r *readErrorCloser) Close() error {
	return r.rc.Close()
}

// drainAsync runs drain in its own goroutine and reports the outcome through
// done, which is called exactly once even if nobody waits for it anymore.
func drainAsync(drain func() (int64, error), done func(int64, error)) {
	go func() {
		n, err := drain()
		if done != nil {
			done(n, err)
		}
	}()
}

// readAllLimited reads r to the end. Content beyond maxSize bytes fails with
// [ErrMaxExtractionSizeExceeded]. A negative maxSize disables the limit.
func readAllLimited(r io.Reader, maxSize int64) ([]byte, error) {
	var buf bytes.Buffer
	_, err := copyStream(limitWriter(&buf, maxSize), r, make([]byte, defaultBufferSize))
	if errors.Is(err, io.ErrShortWrite) {
		return nil, ErrMaxExtractionSizeExceeded
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
