// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

// TargetDisk writes extracted entries to the local filesystem.
type TargetDisk struct{}

// NewTargetDisk creates a new disk target.
func NewTargetDisk() *TargetDisk {
	return &TargetDisk{}
}

// CreateDir creates a directory at the specified path with the specified mode. If the directory already
// exists, nothing is done.
func (d *TargetDisk) CreateDir(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode.Perm()); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	return nil
}

// CreateFile creates a file at the specified path with src as content. If the
// file already exists and overwrite is false, an error is returned. The final
// path component is never followed if it is a symlink.
func (d *TargetDisk) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		if err != nil {
			return 0, errors.Wrap(err, "invalid path")
		}
		if !overwrite {
			return 0, errors.Wrapf(fs.ErrExist, "%s", path)
		}
	}

	dstFile, err := openFileNoFollow(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return 0, errors.Wrap(err, "failed to create file")
	}
	defer dstFile.Close()

	n, err := copyStream(limitWriter(dstFile, maxSize), src, make([]byte, defaultBufferSize))
	if err != nil {
		return n, err
	}
	if err := dstFile.Close(); err != nil {
		return n, newError("close", path, ErrWrite, err)
	}
	return n, nil
}

// Lstat returns the FileInfo structure describing the named file.
// If there is an error, it will be of type *PathError.
func (d *TargetDisk) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}
