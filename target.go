// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Target specifies all functions needed to write extracted entries.
type Target interface {
	// CreateFile creates a file at the specified path with src as content. The mode parameter is the file mode that
	// should be set on the file. If the file already exists and overwrite is false, an error should be returned. If the
	// file does not exist, it should be created. The size of the file should not exceed maxSize. If the file is created
	// successfully, the number of bytes written should be returned. If an error occurs, the number of bytes written
	// should be returned along with the error. If maxSize < 0, the file size is not limited.
	CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error)

	// CreateDir creates a directory and all missing parents at the specified path with the specified mode. If the
	// directory already exists, nothing is done.
	CreateDir(path string, mode fs.FileMode) error

	// Lstat see docs for os.Lstat. Main purpose is to check for symlinks in the extraction path.
	Lstat(path string) (fs.FileInfo, error)
}

// createFile writes src to name below dst. Missing parent directories are
// created with cfg.CustomCreateDirMode(); an existing parent is fine. Every
// component of the path is checked for symlinks before writing.
func createFile(t Target, dst string, name SanitizedPath, src io.Reader, maxSize int64, cfg *Config) (int64, error) {
	rel := filepath.Join(name...)

	if err := createDir(t, dst, filepath.Dir(rel), cfg); err != nil {
		return 0, errors.Wrap(err, "cannot create directory")
	}

	if err := securityCheck(t, dst, rel, cfg); err != nil {
		return 0, errors.Wrap(err, "security check path failed")
	}

	return t.CreateFile(filepath.Join(dst, rel), src, cfg.CustomFileMode(), cfg.Overwrite(), maxSize)
}

// createDir ensures that dst exists (creating it only with
// cfg.CreateDestination()) and creates name below it.
func createDir(t Target, dst string, name string, cfg *Config) error {
	if err := ensureDestination(t, dst, cfg); err != nil {
		return err
	}

	// no action needed
	if name == "." || name == "" {
		return nil
	}

	if err := securityCheck(t, dst, name, cfg); err != nil {
		return errors.Wrap(err, "security check path failed")
	}

	return t.CreateDir(filepath.Join(dst, name), cfg.CustomCreateDirMode())
}

// ensureDestination checks that dst exists and creates it if configured.
func ensureDestination(t Target, dst string, cfg *Config) error {
	if len(dst) == 0 {
		return nil
	}
	if _, err := t.Lstat(dst); os.IsNotExist(err) {
		if !cfg.CreateDestination() {
			return errors.Errorf("destination %q does not exist", dst)
		}
		if err := t.CreateDir(dst, cfg.CustomCreateDirMode()); err != nil {
			return errors.Wrap(err, "failed to create destination directory")
		}
		cfg.Logger().Info("created destination directory", "path", dst)
	}
	return nil
}

// securityCheck checks if path stays inside dst and that no existing
// component of it is a symlink.
//
// If the path contains a symlink and config.TraverseSymlinks() returns true,
// a warning is logged and the function continues.
func securityCheck(t Target, dst string, path string, config *Config) error {
	if len(dst) == 0 && filepath.IsAbs(path) {
		return errors.New("absolute path detected")
	}

	rel, err := filepath.Rel(dst, filepath.Join(dst, path))
	if err != nil {
		return errors.Wrap(err, "failed to get relative path")
	}
	if !filepath.IsLocal(rel) {
		return errors.New("path traversal detected")
	}

	elements := strings.Split(filepath.Clean(path), string(os.PathSeparator))
	for i := range elements {
		subDirs := filepath.Join(elements[0 : i+1]...)
		checkDir := filepath.Join(dst, subDirs)
		if len(checkDir) == 0 || checkDir == "." {
			continue
		}

		stat, err := t.Lstat(checkDir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// nothing below a missing component can be a symlink
				return nil
			}
			return errors.Wrap(err, "invalid path")
		}

		if stat.Mode()&fs.ModeSymlink != 0 {
			if !config.TraverseSymlinks() {
				return errors.Errorf("symlink in path: %s", subDirs)
			}
			config.Logger().Warn("traverse symlink", "sub-dir", subDirs)
		}
	}

	return nil
}
