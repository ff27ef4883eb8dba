// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// TargetMemory keeps extracted entries in memory. It is useful for dry runs
// and for tests. Paths must be valid [fs.ValidPath] paths, which means
// extraction into a TargetMemory uses an empty destination directory.
type TargetMemory struct {
	files sync.Map // map[string]*memoryEntry
}

type memoryEntry struct {
	info *memoryFileInfo
	data []byte
}

// NewTargetMemory creates a new, empty in-memory target.
func NewTargetMemory() *TargetMemory {
	return &TargetMemory{}
}

// CreateFile stores src at path.
func (m *TargetMemory) CreateFile(p string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	p = filepath.ToSlash(p)
	if !fs.ValidPath(p) {
		return 0, errors.Wrap(fs.ErrInvalid, p)
	}
	if !overwrite {
		if _, ok := m.files.Load(p); ok {
			return 0, errors.Wrap(fs.ErrExist, p)
		}
	}

	var buf bytes.Buffer
	n, err := copyStream(limitWriter(&buf, maxSize), src, make([]byte, defaultBufferSize))
	if err != nil {
		return n, err
	}

	m.files.Store(p, &memoryEntry{
		info: &memoryFileInfo{name: path.Base(p), size: n, mode: mode.Perm(), modTime: time.Now()},
		data: buf.Bytes(),
	})
	return n, nil
}

// CreateDir stores a directory entry at path and at every missing parent.
func (m *TargetMemory) CreateDir(p string, mode fs.FileMode) error {
	p = filepath.ToSlash(p)
	if !fs.ValidPath(p) {
		return errors.Wrap(fs.ErrInvalid, p)
	}
	var dirs []string
	for dir := p; dir != "."; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		if e, ok := m.files.Load(dir); ok {
			if !e.(*memoryEntry).info.IsDir() {
				return errors.Wrapf(fs.ErrExist, "%s is not a directory", dir)
			}
			continue
		}
		m.files.Store(dir, &memoryEntry{
			info: &memoryFileInfo{name: path.Base(dir), mode: mode.Perm() | fs.ModeDir, modTime: time.Now()},
		})
	}
	return nil
}

// Lstat returns the FileInfo for the given path.
func (m *TargetMemory) Lstat(p string) (fs.FileInfo, error) {
	p = filepath.ToSlash(p)
	if !fs.ValidPath(p) {
		return nil, errors.Wrap(fs.ErrInvalid, p)
	}
	if e, ok := m.files.Load(p); ok {
		return e.(*memoryEntry).info, nil
	}
	return nil, &fs.PathError{Op: "lstat", Path: p, Err: fs.ErrNotExist}
}

// ReadFile returns the content of the file at path.
func (m *TargetMemory) ReadFile(p string) ([]byte, error) {
	e, ok := m.files.Load(filepath.ToSlash(p))
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	me := e.(*memoryEntry)
	if me.info.IsDir() {
		return nil, errors.Errorf("%s is a directory", p)
	}
	return me.data, nil
}

// Paths returns all stored paths in lexical order.
func (m *TargetMemory) Paths() []string {
	var paths []string
	m.files.Range(func(key, _ any) bool {
		paths = append(paths, key.(string))
		return true
	})
	sort.Strings(paths)
	return paths
}

// memoryFileInfo implements [fs.FileInfo] for entries of a [TargetMemory].
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (fi *memoryFileInfo) Name() string       { return fi.name }
func (fi *memoryFileInfo) Size() int64        { return fi.size }
func (fi *memoryFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *memoryFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *memoryFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *memoryFileInfo) Sys() any           { return nil }
