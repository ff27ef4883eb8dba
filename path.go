// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"strings"
)

// ArchivePath is a path exactly as stored in an archive. It is untrusted and
// must be sanitized before it is used for any filesystem operation.
type ArchivePath string

// SanitizedPath is a sequence of path segments guaranteed to be non-empty and
// to contain no "", "." or ".." segment. Joined to any root, it stays inside
// that root.
type SanitizedPath []string

// String joins the segments with "/".
func (s SanitizedPath) String() string {
	return strings.Join(s, "/")
}

// Sanitize splits raw on "/" and resolves it lexically: empty and "."
// segments are dropped, ".." removes the previous segment if there is one and
// is dropped otherwise. A path that resolves to nothing is unsafe and reported
// with ok == false.
func Sanitize(raw string) (SanitizedPath, bool) {
	segments, _ := sanitizeSegments(raw)
	if len(segments) == 0 {
		return nil, false
	}
	return segments, true
}

// sanitizeSegments resolves raw like [Sanitize] and additionally reports if a
// ".." segment tried to climb above the root.
func sanitizeSegments(raw string) (segments []string, escaped bool) {
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				escaped = true
				continue
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}
	return segments, escaped
}

// String returns the raw stored path.
func (p ArchivePath) String() string {
	return string(p)
}

// Sanitize is a shorthand for [Sanitize] on p.
func (p ArchivePath) Sanitize() (SanitizedPath, bool) {
	return Sanitize(string(p))
}

// SafeRelativePath returns the sanitized path joined with "/".
func (p ArchivePath) SafeRelativePath() (string, bool) {
	s, ok := p.Sanitize()
	if !ok {
		return "", false
	}
	return s.String(), true
}

// FileName returns the last segment of the sanitized path.
func (p ArchivePath) FileName() (string, bool) {
	s, ok := p.Sanitize()
	if !ok {
		return "", false
	}
	return s[len(s)-1], true
}

// junkFileNames are metadata files written by desktop file managers.
var junkFileNames = map[string]bool{
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

// IsLikelyJunk reports whether the entry is most likely file manager metadata,
// such as macOS resource forks ("._name"), ".DS_Store" or anything below a
// "__MACOSX" directory.
func (p ArchivePath) IsLikelyJunk() bool {
	s, ok := p.Sanitize()
	if !ok {
		return false
	}
	if s[0] == "__MACOSX" {
		return true
	}
	name := s[len(s)-1]
	return junkFileNames[name] || strings.HasPrefix(name, "._")
}

// stripPrefix removes the directory prefix from the sanitized form of p. It
// returns false if p is not located below prefix.
func (p ArchivePath) stripPrefix(prefix SanitizedPath) (SanitizedPath, bool) {
	s, ok := p.Sanitize()
	if !ok || len(s) <= len(prefix) {
		return nil, false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return nil, false
		}
	}
	return s[len(prefix):], true
}
