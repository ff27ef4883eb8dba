// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import "io"

// Backend is a container format. An [Archive] derives all of its operations
// from these primitives.
type Backend interface {
	// Type returns a short name of the container format, e.g. "zip".
	Type() string

	// List returns every file entry in storage order. Directories are not
	// listed. Entries with unsafe paths must be listed anyway.
	List() ([]Listing, error)

	// Open returns the uncompressed content of an entry previously returned
	// by List.
	Open(l Listing) (io.ReadCloser, error)

	// Close releases the container. It is called exactly once.
	Close() error
}

// Listing is a file entry as reported by a [Backend].
type Listing struct {
	// Path is the path as stored in the container.
	Path string

	// Size is the uncompressed size in bytes.
	Size int64

	// Locator is opaque to everything but the backend that produced it.
	Locator any
}
