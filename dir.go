// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
)

// dirType is reported by [Archive.Type] for directory archives.
const dirType = "dir"

// dirBackend presents the regular files below a directory as an archive.
// Symlinks are neither listed nor followed.
type dirBackend struct {
	root string
}

// OpenDir opens the directory at path as an archive.
func OpenDir(path string, opts ...ConfigOption) (*Archive, error) {
	return openDir(path, NewConfig(opts...))
}

func openDir(path string, cfg *Config) (*Archive, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, newError("open", path, ErrOpenContainer, err)
	}
	if !stat.IsDir() {
		return nil, newError("open", path, ErrOpenContainer, errors.New("not a directory"))
	}
	return newArchive(&dirBackend{root: path}, cfg), nil
}

func (d *dirBackend) Type() string {
	return dirType
}

// List walks the tree in parallel and returns the files sorted by path.
// Unreadable subtrees are skipped.
func (d *dirBackend) List() ([]Listing, error) {
	var (
		mu       sync.Mutex
		listings []Listing
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, d.root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			if path == d.root {
				return err
			}
			return nil
		}
		if !de.Type().IsRegular() {
			return nil
		}

		info, err := de.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil
		}

		mu.Lock()
		listings = append(listings, Listing{Path: filepath.ToSlash(rel), Size: info.Size(), Locator: filepath.ToSlash(rel)})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot walk directory")
	}

	sort.Slice(listings, func(i, j int) bool { return listings[i].Path < listings[j].Path })
	return listings, nil
}

// Open resolves the entry below the root. A symlink swapped into the path
// after listing is resolved inside the root, never outside of it.
func (d *dirBackend) Open(l Listing) (io.ReadCloser, error) {
	rel, ok := l.Locator.(string)
	if !ok {
		return nil, newError("open", l.Path, ErrEntryMismatch, nil)
	}
	safe, ok := ArchivePath(rel).SafeRelativePath()
	if !ok {
		return nil, newError("open", l.Path, ErrUnsafePath, nil)
	}
	path, err := securejoin.SecureJoin(d.root, safe)
	if err != nil {
		return nil, errors.Wrap(err, "cannot resolve path")
	}
	return os.Open(path)
}

func (d *dirBackend) Close() error {
	return nil
}
