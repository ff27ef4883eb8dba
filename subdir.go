// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"

	"github.com/pkg/errors"
)

// Subdirectory returns a view of the entries below path. Paths in the view
// are sanitized and relative to path. The view borrows the parent: it must
// not be used after the parent is closed, and closing the view leaves the
// parent open.
//
// path is rejected with [ErrUnsafePath] if it is empty, resolves to the
// archive root or climbs above it.
func (a *Archive) Subdirectory(path string) (*Archive, error) {
	if err := a.checkOpen("subdirectory"); err != nil {
		return nil, err
	}
	prefix, escaped := sanitizeSegments(path)
	if escaped || len(prefix) == 0 {
		return nil, newError("subdirectory", path, ErrUnsafePath, nil)
	}
	return newArchive(&subdirBackend{parent: a, prefix: prefix}, a.config), nil
}

// subdirBackend lists the parent's entries below prefix. Its locators are the
// parent's entries.
type subdirBackend struct {
	parent *Archive
	prefix SanitizedPath
}

func (s *subdirBackend) Type() string {
	return s.parent.Type()
}

func (s *subdirBackend) List() ([]Listing, error) {
	entries, err := s.parent.Entries()
	if err != nil {
		return nil, err
	}
	var listings []Listing
	for _, e := range entries {
		rel, ok := e.Path().stripPrefix(s.prefix)
		if !ok {
			continue
		}
		listings = append(listings, Listing{Path: rel.String(), Size: e.Size(), Locator: e})
	}
	return listings, nil
}

func (s *subdirBackend) Open(l Listing) (io.ReadCloser, error) {
	e, ok := l.Locator.(Entry)
	if !ok {
		return nil, errors.Wrap(ErrEntryMismatch, "not an entry of the parent archive")
	}
	return s.parent.Open(e)
}

// Close is a no-op, the parent owns the container.
func (s *subdirBackend) Close() error {
	return nil
}
