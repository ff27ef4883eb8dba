// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Archive gives uniform read access to a container. All operations are
// derived from the two primitives of its [Backend]: listing entries and
// opening one entry.
//
// An Archive is open after construction and closed by [Archive.Close]. Every
// operation on a closed archive returns [ErrClosed].
type Archive struct {
	backend Backend
	config  *Config
	origin  *origin
	closed  atomic.Bool

	// onClose runs after the backend has been closed, e.g. to remove spooled input.
	onClose func() error
}

// New returns an archive over an arbitrary backend.
func New(b Backend, opts ...ConfigOption) *Archive {
	return newArchive(b, NewConfig(opts...))
}

func newArchive(b Backend, cfg *Config) *Archive {
	return &Archive{
		backend: b,
		config:  cfg,
		origin:  &origin{format: b.Type()},
	}
}

// Type returns the container format, e.g. "zip" or "dir".
func (a *Archive) Type() string {
	return a.backend.Type()
}

// Config returns the configuration of the archive.
func (a *Archive) Config() *Config {
	return a.config
}

// Close releases the container. Closing twice returns [ErrClosed].
func (a *Archive) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return newError("close", "", ErrClosed, nil)
	}
	err := a.backend.Close()
	if a.onClose != nil {
		if cerr := a.onClose(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *Archive) checkOpen(op string) error {
	if a.closed.Load() {
		return newError(op, "", ErrClosed, nil)
	}
	return nil
}

// Entries lists every file entry of the archive in storage order, including
// entries whose paths are unsafe.
func (a *Archive) Entries() ([]Entry, error) {
	if err := a.checkOpen("list"); err != nil {
		return nil, err
	}
	listings, err := a.backend.List()
	if err != nil {
		return nil, newError("list", "", ErrRead, err)
	}
	entries := make([]Entry, len(listings))
	for i, l := range listings {
		entries[i] = Entry{listing: l, origin: a.origin}
	}
	return entries, nil
}

// Matching returns all entries for which pred returns true.
func (a *Archive) Matching(pred func(Entry) bool) ([]Entry, error) {
	entries, err := a.Entries()
	if err != nil {
		return nil, err
	}
	var matched []Entry
	for _, e := range entries {
		if pred(e) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Find returns the first entry for which pred returns true, or
// [ErrEntryNotFound].
func (a *Archive) Find(pred func(Entry) bool) (Entry, error) {
	return a.find("", pred)
}

// FindPath returns the first entry whose stored path equals path.
func (a *Archive) FindPath(path string) (Entry, error) {
	return a.find(path, func(e Entry) bool { return e.listing.Path == path })
}

// FindName returns the first entry whose sanitized file name equals name.
func (a *Archive) FindName(name string) (Entry, error) {
	return a.find(name, func(e Entry) bool {
		n, ok := e.Path().FileName()
		return ok && n == name
	})
}

func (a *Archive) find(query string, pred func(Entry) bool) (Entry, error) {
	entries, err := a.Entries()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if pred(e) {
			return e, nil
		}
	}
	return Entry{}, newError("find", query, ErrEntryNotFound, nil)
}

// Open returns a stream of the uncompressed content of e. Read errors of the
// stream carry [ErrRead].
func (a *Archive) Open(e Entry) (io.ReadCloser, error) {
	if err := a.checkOpen("open"); err != nil {
		return nil, err
	}
	if e.origin != a.origin {
		return nil, newError("open", e.listing.Path, ErrEntryMismatch, nil)
	}
	rc, err := a.backend.Open(e.listing)
	if err != nil {
		return nil, newError("open", e.listing.Path, ErrRead, err)
	}
	return &readErrorCloser{rc: rc, path: e.listing.Path}, nil
}

// ReadAll returns the full content of e.
func (a *Archive) ReadAll(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.WriteTo(e, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadAllAsync reads the full content of e in the background and passes the
// result to done exactly once.
func (a *Archive) ReadAllAsync(e Entry, done func([]byte, error)) {
	var buf bytes.Buffer
	drainAsync(func() (int64, error) {
		return a.WriteTo(e, &buf)
	}, func(_ int64, err error) {
		if err != nil {
			done(nil, err)
			return
		}
		done(buf.Bytes(), nil)
	})
}

// WriteTo drains the content of e into w. A writer that accepts fewer bytes
// than offered fails the copy with [ErrWrite].
func (a *Archive) WriteTo(e Entry, w io.Writer) (int64, error) {
	rc, err := a.Open(e)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := copyStream(w, rc, make([]byte, a.config.BufferSize()))
	if err != nil {
		return n, errors.Wrapf(err, "cannot copy %s", e.listing.Path)
	}
	return n, nil
}

// WriteToAsync drains the content of e into w in the background and passes
// the outcome to done exactly once.
func (a *Archive) WriteToAsync(e Entry, w io.Writer, done func(int64, error)) {
	drainAsync(func() (int64, error) {
		return a.WriteTo(e, w)
	}, done)
}

// ExtractToFile writes the content of e to the file dst. dst is used as is:
// it is not sanitized and its parent directory must exist. An existing file
// is only replaced with [WithOverwrite].
func (a *Archive) ExtractToFile(e Entry, dst string) (int64, error) {
	if dst == "" {
		return 0, newError("extract", e.listing.Path, ErrUnsafePath, nil)
	}
	rc, err := a.Open(e)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := a.config.Target().CreateFile(dst, rc, a.config.CustomFileMode(), a.config.Overwrite(), a.config.MaxExtractionSize())
	if err != nil {
		return n, classifyWriteError("extract", e.listing.Path, err, a.config.MaxExtractionSize())
	}
	a.config.Logger().Debug("extracted entry", "entry", e.listing.Path, "destination", dst, "bytes", n)
	return n, nil
}

// ExtractToFileAsync runs [Archive.ExtractToFile] in the background and passes
// the outcome to done exactly once.
func (a *Archive) ExtractToFileAsync(e Entry, dst string, done func(int64, error)) {
	drainAsync(func() (int64, error) {
		return a.ExtractToFile(e, dst)
	}, done)
}

// classifyWriteError keeps read failures and attributes everything else to
// the destination. A write cut short by a maxSize limit is reported as
// [ErrMaxExtractionSizeExceeded].
func classifyWriteError(op, path string, err error, maxSize int64) error {
	if errors.Is(err, ErrRead) {
		return err
	}
	if maxSize >= 0 && errors.Is(err, io.ErrShortWrite) {
		return newError(op, path, ErrMaxExtractionSizeExceeded, err)
	}
	return newError(op, path, ErrWrite, err)
}
