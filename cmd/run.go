// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	unarchive "github.com/hashicorp/go-unarchive"
)

// CLI are the cli parameters for the unarchive binary
type CLI struct {
	Verbose bool             `short:"v" optional:"" help:"Verbose logging."`
	Version kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`

	ExtensionFallback bool  `short:"e" help:"Detect the format by file extension if the content is not recognized."`
	MaxInputSize      int64 `optional:"" default:"1073741824" help:"Maximum size of spooled or decompressed input (in bytes). (disable check: -1)"`

	List    ListCmd    `cmd:"" help:"List the files of an archive."`
	Extract ExtractCmd `cmd:"" help:"Extract files of an archive into a directory."`
	Cat     CatCmd     `cmd:"" help:"Write a single file of an archive to stdout."`
}

// ListCmd lists entries.
type ListCmd struct {
	Archive string `arg:"" name:"archive" help:"Path to archive or directory. (\"-\" for STDIN)"`
	Subdir  string `short:"s" optional:"" help:"Only list files below this directory."`
	Unsafe  bool   `short:"u" help:"Mark entries with unsafe paths."`
}

// ExtractCmd extracts entries.
type ExtractCmd struct {
	Archive           string   `arg:"" name:"archive" help:"Path to archive or directory. (\"-\" for STDIN)"`
	Destination       string   `arg:"" name:"destination" default:"." help:"Output directory."`
	Concurrency       int      `short:"j" default:"1" help:"Number of files extracted in parallel."`
	ContinueOnError   bool     `short:"C" help:"Continue extraction on error."`
	CreateDestination bool     `short:"c" help:"Create destination directory if it does not exist."`
	FollowSymlinks    bool     `short:"F" help:"[Dangerous!] Follow symlinks to directories during extraction."`
	MaxFiles          int64    `optional:"" default:"100000" help:"Maximum files that are extracted before stop. (disable check: -1)"`
	MaxExtractionSize int64    `optional:"" default:"1073741824" help:"Maximum extraction size that allowed is (in bytes). (disable check: -1)"`
	MaxExtractionTime int64    `optional:"" default:"60" help:"Maximum time that an extraction should take (in seconds). (disable check: -1)"`
	Overwrite         bool     `short:"O" help:"Overwrite if exist."`
	Pattern           []string `short:"P" optional:"" name:"pattern" help:"Extract only files matching the glob pattern (repeatable, ** matches directories)."`
	SkipJunk          bool     `short:"J" help:"Skip file manager metadata like .DS_Store and __MACOSX."`
	Subdir            string   `short:"s" optional:"" help:"Only extract files below this directory, relative to it."`
	Telemetry         bool     `short:"T" optional:"" default:"false" help:"Print telemetry data to log after extraction."`
}

// CatCmd prints one entry.
type CatCmd struct {
	Archive string `arg:"" name:"archive" help:"Path to archive or directory. (\"-\" for STDIN)"`
	Entry   string `arg:"" name:"entry" help:"Stored path of the file, or its file name."`
}

// globals are passed to every sub-command.
type globals struct {
	logger *slog.Logger
	opts   []unarchive.ConfigOption
	stdout io.Writer
	stdin  io.Reader
}

// Run the entrypoint into unarchive as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Description("A secure archive reader"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	g := &globals{
		logger: logger,
		opts: []unarchive.ConfigOption{
			unarchive.WithLogger(logger),
			unarchive.WithExtensionFallback(cli.ExtensionFallback),
			unarchive.WithMaxInputSize(cli.MaxInputSize),
		},
		stdout: os.Stdout,
		stdin:  os.Stdin,
	}

	if err := ctx.Run(g); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(-1)
	}
}

// open opens path, or stdin for "-".
func (g *globals) open(path string, opts ...unarchive.ConfigOption) (*unarchive.Archive, error) {
	opts = append(append([]unarchive.ConfigOption{}, g.opts...), opts...)
	if path == "-" {
		return unarchive.OpenReader(g.stdin, opts...)
	}
	return unarchive.Open(path, opts...)
}

// view returns the archive itself or the subdirectory view below subdir.
func view(a *unarchive.Archive, subdir string) (*unarchive.Archive, error) {
	if subdir == "" {
		return a, nil
	}
	return a.Subdirectory(subdir)
}

// Run lists all entries with their size.
func (c *ListCmd) Run(g *globals) error {
	a, err := g.open(c.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := view(a, c.Subdir)
	if err != nil {
		return err
	}

	entries, err := v.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		marker := ""
		if _, ok := e.Path().Sanitize(); !ok && c.Unsafe {
			marker = " (unsafe)"
		}
		fmt.Fprintf(g.stdout, "%10s  %s%s\n", humanize.IBytes(uint64(e.Size())), e.Path(), marker)
	}
	return nil
}

// Run extracts the archive into the destination directory.
func (c *ExtractCmd) Run(g *globals) error {
	ctx := context.Background()
	if c.MaxExtractionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*time.Duration(c.MaxExtractionTime))
		defer cancel()
	}

	// setup telemetry hook
	telemetryToLog := func(ctx context.Context, td *unarchive.TelemetryData) {
		if c.Telemetry {
			g.logger.Error("extraction finished", "telemetry", td, "size", humanize.IBytes(uint64(td.ExtractionSize)))
		}
	}

	a, err := g.open(c.Archive,
		unarchive.WithConcurrency(c.Concurrency),
		unarchive.WithContinueOnError(c.ContinueOnError),
		unarchive.WithCreateDestination(c.CreateDestination),
		unarchive.WithInsecureTraverseSymlinks(c.FollowSymlinks),
		unarchive.WithMaxExtractionSize(c.MaxExtractionSize),
		unarchive.WithMaxFiles(c.MaxFiles),
		unarchive.WithOverwrite(c.Overwrite),
		unarchive.WithPatterns(c.Pattern...),
		unarchive.WithSkipJunk(c.SkipJunk),
		unarchive.WithTelemetryHook(telemetryToLog),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := view(a, c.Subdir)
	if err != nil {
		return err
	}
	return v.ExtractAll(ctx, c.Destination)
}

// Run writes the entry to stdout. The entry is looked up by stored path
// first and by file name second.
func (c *CatCmd) Run(g *globals) error {
	a, err := g.open(c.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.FindPath(c.Entry)
	if err != nil {
		if e, err = a.FindName(c.Entry); err != nil {
			return err
		}
	}
	_, err = a.WriteTo(e, g.stdout)
	return err
}
