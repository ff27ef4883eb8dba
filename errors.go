// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownFormat is returned when neither the magic bytes nor (if enabled)
	// the file extension identify a supported container.
	ErrUnknownFormat = errors.New("unknown archive format")

	// ErrOpenContainer is returned when a backend fails to initialize.
	ErrOpenContainer = errors.New("cannot open container")

	// ErrEntryNotFound is returned by lookups that found no match.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrEntryMismatch is returned when an [Entry] is passed to an [Archive]
	// that did not produce it.
	ErrEntryMismatch = errors.New("entry does not belong to this archive")

	// ErrRead is returned when the backend fails while producing entry bytes.
	ErrRead = errors.New("read failure")

	// ErrWrite is returned when the destination rejects bytes or accepts fewer
	// bytes than offered.
	ErrWrite = errors.New("write failure")

	// ErrUnsafePath is returned when an entry path sanitizes to nothing or a
	// subdirectory view would leave its parent.
	ErrUnsafePath = errors.New("unsafe path")

	// ErrClosed is returned by every operation on a closed [Archive].
	ErrClosed = errors.New("archive is closed")

	// ErrMaxFilesExceeded indicates that the maximum number of files is exceeded.
	ErrMaxFilesExceeded = errors.New("maximum files exceeded")

	// ErrMaxExtractionSizeExceeded indicates that the maximum size is exceeded.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")

	// ErrMaxInputSizeExceeded indicates that the maximum input size is exceeded.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")
)

// Error describes a failed operation. Kind is one of the package sentinels and
// Err the underlying cause, both of which match with [errors.Is].
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Path)
	}
	if e.Kind != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Kind)
	}
	if e.Err != nil && e.Err != e.Kind {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Unwrap returns the kind and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil && e.Err != e.Kind {
		errs = append(errs, e.Err)
	}
	return errs
}

// newError builds an [*Error]. If err already carries kind, it is returned
// unchanged so that kinds are not stacked when errors travel through layers.
func newError(op, path string, kind, err error) error {
	if err != nil && errors.Is(err, kind) {
		return err
	}
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// handleError increases the error counter, sets the latest error and
// decides if extraction should continue.
func handleError(cfg *Config, td *TelemetryData, msg string, err error) error {
	td.ExtractionErrors++
	td.LastExtractionError = errors.Wrap(err, msg)

	if cfg.ContinueOnError() {
		cfg.Logger().Error(msg, "error", err)
		return nil
	}

	return td.LastExtractionError
}
