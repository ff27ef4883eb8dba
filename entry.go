// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import "fmt"

// Entry is a file inside an [Archive]. Entries are immutable and may be copied
// freely, but they are only valid for the archive that listed them.
type Entry struct {
	listing Listing
	origin  *origin
}

// origin identifies the archive an entry was listed from.
type origin struct {
	format string
}

// Path returns the path as stored in the archive.
func (e Entry) Path() ArchivePath {
	return ArchivePath(e.listing.Path)
}

// Size returns the uncompressed size in bytes.
func (e Entry) Size() int64 {
	return e.listing.Size
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%d bytes)", e.listing.Path, e.listing.Size)
}
