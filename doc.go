// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package unarchive provides uniform, read-only access to the files stored in
// zip, rar, 7z and tar archives, in compressed tar archives and in plain
// directories.
//
// An [Archive] is opened with [Open] or [OpenReader], which detect the format
// from the leading bytes of the input, or with a format specific constructor
// like [OpenZip]. Its [Entry] values can be listed, looked up, streamed and
// extracted. Stored paths are never trusted: [ArchivePath.Sanitize] reduces a
// path to segments that cannot escape a destination directory, and entries
// whose path cannot be made safe are skipped by [Archive.ExtractAll].
//
// Extraction is configured with [ConfigOption] values and writes through a
// [Target], by default the local disk. Telemetry data is collected for each
// bulk extraction and handed to the [TelemetryHook].
package unarchive
