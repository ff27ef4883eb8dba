// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package unarchive

import (
	"io/fs"
	"os"
)

// openFileNoFollow opens path like os.OpenFile. Without O_NOFOLLOW the
// symlink check relies on the Lstat performed by TargetDisk.CreateFile.
func openFileNoFollow(path string, flag int, perm fs.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
