// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"context"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ExtractAll writes every entry with a safe path below dst. See
// [Archive.ExtractMatching].
func (a *Archive) ExtractAll(ctx context.Context, dst string) error {
	return a.ExtractMatching(ctx, dst, nil)
}

// ExtractMatching writes every entry for which pred returns true (all entries
// if pred is nil) below dst, at the entry's sanitized path. Entries with
// unsafe paths are skipped without error. Missing parent directories are
// created. The first failure aborts the extraction and is returned, unless
// [WithContinueOnError] is set.
//
// With [WithConcurrency], several entries are written in parallel. Entries are
// still dispatched in listing order.
func (a *Archive) ExtractMatching(ctx context.Context, dst string, pred func(Entry) bool) error {
	cfg := a.config
	t := cfg.Target()

	// prepare telemetry capturing
	td := &TelemetryData{ExtractedType: a.Type()}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, time.Now())

	// td is shared with the workers
	var mu sync.Mutex
	fail := func(msg string, err error) error {
		mu.Lock()
		defer mu.Unlock()
		return handleError(cfg, td, msg, err)
	}
	abort := func(msg string, err error) error {
		mu.Lock()
		defer mu.Unlock()
		td.ExtractionErrors++
		td.LastExtractionError = errors.Wrap(err, msg)
		return td.LastExtractionError
	}

	if err := ctx.Err(); err != nil {
		return abort("context error", err)
	}

	entries, err := a.Entries()
	if err != nil {
		return abort("cannot list entries", err)
	}

	if err := validatePatterns(cfg.Patterns()); err != nil {
		return abort("invalid pattern", err)
	}

	if err := ensureDestination(t, dst, cfg); err != nil {
		return abort("invalid destination", newError("extract", dst, ErrWrite, err))
	}

	cfg.Logger().Info("start extraction", "type", a.Type(), "entries", len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency())

	var (
		fileCounter   int64
		reservedBytes int64
		loopErr       error
	)

	for _, e := range entries {
		if err := gctx.Err(); err != nil {
			loopErr = err
			break
		}

		rel, ok := e.Path().Sanitize()
		if !ok {
			cfg.Logger().Debug("skipping entry (unsafe path)", "name", e.Path())
			mu.Lock()
			td.SkippedUnsafe++
			td.LastSkippedUnsafe = e.Path().String()
			mu.Unlock()
			continue
		}

		if pred != nil && !pred(e) {
			mu.Lock()
			td.PatternMismatches++
			mu.Unlock()
			continue
		}

		match, err := checkPatterns(cfg.Patterns(), rel.String())
		if err != nil {
			loopErr = abort("cannot check pattern", err)
			break
		}
		if !match {
			cfg.Logger().Debug("skipping entry (pattern mismatch)", "name", e.Path())
			mu.Lock()
			td.PatternMismatches++
			mu.Unlock()
			continue
		}

		if cfg.SkipJunk() && e.Path().IsLikelyJunk() {
			cfg.Logger().Debug("skipping entry (junk)", "name", e.Path())
			mu.Lock()
			td.SkippedJunk++
			mu.Unlock()
			continue
		}

		fileCounter++
		if err := cfg.CheckMaxFiles(fileCounter); err != nil {
			loopErr = abort("max files check failed", err)
			break
		}

		if err := cfg.CheckExtractionSize(reservedBytes + e.Size()); err != nil {
			loopErr = abort("max extraction size exceeded", err)
			break
		}
		budget := int64(-1)
		if cfg.MaxExtractionSize() != -1 {
			budget = cfg.MaxExtractionSize() - reservedBytes
		}
		reservedBytes += e.Size()

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			cfg.Logger().Debug("extract", "name", rel.String())
			n, err := a.extractEntry(e, dst, rel, budget)
			if errors.Is(err, ErrMaxExtractionSizeExceeded) {
				return abort("max extraction size exceeded", err)
			}
			if err != nil {
				return fail("failed to extract entry", err)
			}

			mu.Lock()
			td.ExtractedFiles++
			td.ExtractionSize += n
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return loopErr
}

// ExtractEntry writes a single entry below dst at its sanitized path and
// returns the number of bytes written. Unlike the bulk operations, an unsafe
// path is reported with [ErrUnsafePath].
func (a *Archive) ExtractEntry(ctx context.Context, e Entry, dst string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := a.checkOpen("extract"); err != nil {
		return 0, err
	}
	rel, ok := e.Path().Sanitize()
	if !ok {
		return 0, newError("extract", e.Path().String(), ErrUnsafePath, nil)
	}
	if err := ensureDestination(a.config.Target(), dst, a.config); err != nil {
		return 0, newError("extract", dst, ErrWrite, err)
	}
	return a.extractEntry(e, dst, rel, a.config.MaxExtractionSize())
}

// extractEntry copies e to rel below dst, writing at most maxSize bytes.
func (a *Archive) extractEntry(e Entry, dst string, rel SanitizedPath, maxSize int64) (int64, error) {
	rc, err := a.Open(e)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := createFile(a.config.Target(), dst, rel, rc, maxSize, a.config)
	if err != nil {
		return n, classifyWriteError("extract", e.Path().String(), err, maxSize)
	}
	return n, nil
}

// validatePatterns rejects malformed glob patterns before any entry is written.
func validatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Wrapf(doublestar.ErrBadPattern, "invalid pattern %q", pattern)
		}
	}
	return nil
}

// checkPatterns checks if the given path matches any of the given patterns.
// If no patterns are given, every path matches.
func checkPatterns(patterns []string, path string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, pattern := range patterns {
		match, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, errors.Wrapf(err, "failed to match pattern %q", pattern)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}
