// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package unarchive

import (
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// openFileNoFollow opens path like os.OpenFile, but fails if the last path
// component is a symlink.
func openFileNoFollow(path string, flag int, perm fs.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag|unix.O_NOFOLLOW, perm)
}
