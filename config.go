// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package unarchive

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config holds the options of an [Archive] and its extraction operations.
//
// The default configuration is designed to be secure by default and prevent
// exhaustion, path traversal and symlink attacks.
type Config struct {
	// bufferSize is the size of the copy buffer used to drain entries
	bufferSize int

	// cacheInMemory keeps spooled input in memory instead of a temporary file
	cacheInMemory bool

	// concurrency is the number of entries extracted in parallel
	concurrency int

	// continueOnError decides if the extraction should be continued even if an error occurred
	continueOnError bool

	// create destination directory if it does not exist
	createDestination bool

	// customCreateDirMode is the file mode for created directories (respecting umask)
	customCreateDirMode fs.FileMode

	// customFileMode is the file mode for extracted files (respecting umask)
	customFileMode fs.FileMode

	// extensionFallback enables format detection by file extension if the magic bytes are unknown
	extensionFallback bool

	// logger stream for archive operations
	logger logger

	// maxExtractionSize is the maximum size over all extracted files.
	// Set value to -1 to disable the check.
	maxExtractionSize int64

	// maxFiles is the maximum number of files extracted by one operation.
	// Set value to -1 to disable the check.
	maxFiles int64

	// maxInputSize is the maximum size of spooled or decompressed input.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// Define if files should be overwritten in the destination
	overwrite bool

	// patterns is a list of glob patterns that entries need to match to be extracted
	patterns []string

	// sevenZipCacheEntries is the number of decoded 7z entries kept in memory
	sevenZipCacheEntries int

	// skipJunk skips file manager metadata like .DS_Store during extraction
	skipJunk bool

	// target receives extracted files and directories
	target Target

	// telemetryHook is a function to consume telemetry data after finished extraction
	// Important: do not adjust this value after extraction started
	telemetryHook TelemetryHook

	// traverseSymlinks traverses symlinks to directories during extraction
	traverseSymlinks bool
}

// BufferSize returns the size of the buffer used to copy entry content.
func (c *Config) BufferSize() int {
	return c.bufferSize
}

// CacheInMemory returns true if spooled input is kept in memory. If false,
// spooled input is written to a temporary file to avoid memory exhaustion.
func (c *Config) CacheInMemory() bool {
	return c.cacheInMemory
}

// CheckMaxFiles checks if counter exceeds the configured maximum. If the maximum is exceeded,
// a [ErrMaxFilesExceeded] error is returned.
func (c *Config) CheckMaxFiles(counter int64) error {

	// check if disabled
	if c.MaxFiles() == -1 {
		return nil
	}

	// check value
	if counter > c.MaxFiles() {
		return ErrMaxFilesExceeded
	}
	return nil
}

// CheckExtractionSize checks if fileSize exceeds configured maximum. If the maximum is exceeded,
// a [ErrMaxExtractionSizeExceeded] error is returned.
func (c *Config) CheckExtractionSize(fileSize int64) error {

	// check if disabled
	if c.MaxExtractionSize() == -1 {
		return nil
	}

	// check value
	if fileSize > c.MaxExtractionSize() {
		return ErrMaxExtractionSizeExceeded
	}
	return nil
}

// Concurrency returns the number of entries extracted in parallel.
func (c *Config) Concurrency() int {
	return c.concurrency
}

// ContinueOnError returns true if the extraction should continue on error.
func (c *Config) ContinueOnError() bool {
	return c.continueOnError
}

// CreateDestination returns true if the destination directory should be
// created if it does not exist.
func (c *Config) CreateDestination() bool {
	return c.createDestination
}

// CustomCreateDirMode returns the file mode for created directories.
// (respecting umask)
func (c *Config) CustomCreateDirMode() fs.FileMode {
	return c.customCreateDirMode
}

// CustomFileMode returns the file mode for extracted files.
// (respecting umask)
func (c *Config) CustomFileMode() fs.FileMode {
	return c.customFileMode
}

// ExtensionFallback returns true if the file extension is consulted when the
// magic bytes do not identify the format.
func (c *Config) ExtensionFallback() bool {
	return c.extensionFallback
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxExtractionSize returns the maximum size over all extracted files.
func (c *Config) MaxExtractionSize() int64 {
	return c.maxExtractionSize
}

// MaxFiles returns the maximum number of files extracted by one operation.
func (c *Config) MaxFiles() int64 {
	return c.maxFiles
}

// MaxInputSize returns the maximum size of spooled or decompressed input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// Overwrite returns true if files should be overwritten in the destination.
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// Patterns returns the glob patterns that entries need to match to be
// extracted. Patterns are matched against the sanitized path with
// [github.com/bmatcuk/doublestar/v4.Match], so "**" spans directories.
func (c *Config) Patterns() []string {
	return c.patterns
}

// SevenZipCacheEntries returns the number of decoded 7z entries kept in memory.
func (c *Config) SevenZipCacheEntries() int {
	return c.sevenZipCacheEntries
}

// SkipJunk returns true if file manager metadata is skipped during extraction.
func (c *Config) SkipJunk() bool {
	return c.skipJunk
}

// Target returns the destination that receives extracted files.
func (c *Config) Target() Target {
	return c.target
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return defaultTelemetryHook
	}
	return c.telemetryHook
}

// TraverseSymlinks returns true if symlinks should be traversed during extraction.
func (c *Config) TraverseSymlinks() bool {
	return c.traverseSymlinks
}

const (
	defaultBufferSize           = 8 << 10       // 8 KiB
	defaultCacheInMemory        = false         // cache on disk
	defaultConcurrency          = 1             // extract in listing order
	defaultContinueOnError      = false         // stop on error and return error
	defaultCreateDestination    = false         // don't create destination directory
	defaultCustomCreateDirMode  = 0750          // default directory permissions rwxr-x---
	defaultCustomFileMode       = 0640          // default file permissions rw-r-----
	defaultExtensionFallback    = false         // trust magic bytes only
	defaultMaxFiles             = 100000        // 100k files
	defaultMaxExtractionSize    = 1 << (10 * 3) // 1 Gb
	defaultMaxInputSize         = 1 << (10 * 3) // 1 Gb
	defaultOverwrite            = false         // don't overwrite existing files
	defaultSevenZipCacheEntries = 8             // decoded 7z entries
	defaultSkipJunk             = false         // extract everything
	defaultTraverseSymlinks     = false         // don't traverse symlinks
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {

	// setup default values
	config := &Config{
		bufferSize:           defaultBufferSize,
		cacheInMemory:        defaultCacheInMemory,
		concurrency:          defaultConcurrency,
		continueOnError:      defaultContinueOnError,
		createDestination:    defaultCreateDestination,
		customCreateDirMode:  defaultCustomCreateDirMode,
		customFileMode:       defaultCustomFileMode,
		extensionFallback:    defaultExtensionFallback,
		logger:               defaultLogger,
		maxFiles:             defaultMaxFiles,
		maxExtractionSize:    defaultMaxExtractionSize,
		maxInputSize:         defaultMaxInputSize,
		overwrite:            defaultOverwrite,
		sevenZipCacheEntries: defaultSevenZipCacheEntries,
		skipJunk:             defaultSkipJunk,
		telemetryHook:        defaultTelemetryHook,
		traverseSymlinks:     defaultTraverseSymlinks,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	if config.target == nil {
		config.target = NewTargetDisk()
	}

	return config
}

// WithBufferSize options pattern function to set the copy buffer size.
// Values below 1 keep the default.
func WithBufferSize(size int) ConfigOption {
	return func(c *Config) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

// WithCacheInMemory options pattern function to enable/disable caching in memory.
// This applies to stream input and decompressed tar archives.
//
// If set to false, the cache is stored on disk to avoid memory exhaustion.
func WithCacheInMemory(cache bool) ConfigOption {
	return func(c *Config) {
		c.cacheInMemory = cache
	}
}

// WithConcurrency options pattern function to extract up to n entries in
// parallel. Values below 1 keep the default of sequential extraction.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithContinueOnError options pattern function to continue on error during extraction. If set to true,
// the error is logged and the extraction continues. If set to false, the extraction stops and returns the error.
func WithContinueOnError(yes bool) ConfigOption {
	return func(c *Config) {
		c.continueOnError = yes
	}
}

// WithCreateDestination options pattern function to create
// destination directory if it does not exist.
func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) {
		c.createDestination = create
	}
}

// WithCustomCreateDirMode options pattern function to set the file mode
// for created directories. (respecting umask)
func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customCreateDirMode = mode
	}
}

// WithCustomFileMode options pattern function to set the file mode for
// extracted files. (respecting umask)
func WithCustomFileMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customFileMode = mode
	}
}

// WithExtensionFallback options pattern function to detect the format by file
// extension if the magic bytes are not recognized.
func WithExtensionFallback(enable bool) ConfigOption {
	return func(c *Config) {
		c.extensionFallback = enable
	}
}

// WithInsecureTraverseSymlinks options pattern function to traverse symlinks during extraction.
func WithInsecureTraverseSymlinks(traverse bool) ConfigOption {
	return func(c *Config) {
		c.traverseSymlinks = traverse
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxExtractionSize options pattern function to set maximum size over all
// extracted files. (-1 to disable check)
func WithMaxExtractionSize(maxExtractionSize int64) ConfigOption {
	return func(c *Config) {
		c.maxExtractionSize = maxExtractionSize
	}
}

// WithMaxFiles options pattern function to set maximum number of extracted
// files. (-1 to disable check)
func WithMaxFiles(maxFiles int64) ConfigOption {
	return func(c *Config) {
		c.maxFiles = maxFiles
	}
}

// WithMaxInputSize options pattern function to set the maximum size of
// spooled and decompressed input. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithOverwrite options pattern function specify if files should be overwritten in the destination.
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithPatterns options pattern function to set glob patterns that entries need
// to match to be extracted.
func WithPatterns(pattern ...string) ConfigOption {
	return func(c *Config) {
		c.patterns = append(c.patterns, pattern...)
	}
}

// WithSevenZipCacheEntries options pattern function to set how many decoded
// 7z entries are kept in memory. 0 disables the cache, negative values keep
// the default.
func WithSevenZipCacheEntries(n int) ConfigOption {
	return func(c *Config) {
		if n >= 0 {
			c.sevenZipCacheEntries = n
		}
	}
}

// WithSkipJunk options pattern function to skip file manager metadata, see
// [ArchivePath.IsLikelyJunk].
func WithSkipJunk(skip bool) ConfigOption {
	return func(c *Config) {
		c.skipJunk = skip
	}
}

// WithTarget options pattern function to set the destination of extracted
// files. The default is the local disk.
func WithTarget(t Target) ConfigOption {
	return func(c *Config) {
		c.target = t
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which is called after extraction.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}
