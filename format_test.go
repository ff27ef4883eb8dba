package unarchive_test

import (
	"os"
	"path/filepath"
	"testing"

	unarchive "github.com/hashicorp/go-unarchive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectByExtension(t *testing.T) {
	tests := []struct {
		name   string
		want   unarchive.Format
		wantOk bool
	}{
		{name: "book.cbz", want: unarchive.FormatZip, wantOk: true},
		{name: "archive.ZIP", want: unarchive.FormatZip, wantOk: true},
		{name: "lib.jar", want: unarchive.FormatZip, wantOk: true},
		{name: "novel.epub", want: unarchive.FormatZip, wantOk: true},
		{name: "comic.cbr", want: unarchive.FormatRar, wantOk: true},
		{name: "data.rar", want: unarchive.FormatRar, wantOk: true},
		{name: "pack.7z", want: unarchive.FormatSevenZip, wantOk: true},
		{name: "comic.cb7", want: unarchive.FormatSevenZip, wantOk: true},
		{name: "backup.tar", want: unarchive.FormatTar, wantOk: true},
		{name: "comic.cbt", want: unarchive.FormatTar, wantOk: true},
		{name: "dir/sub.dir/readme.txt", wantOk: false},
		{name: "noextension", wantOk: false},
		{name: "archive.tar.gz", wantOk: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := unarchive.DetectByExtension(tc.name)
			assert.Equal(t, tc.wantOk, ok)
			if tc.wantOk {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDetectByMagic(t *testing.T) {
	ustar := make([]byte, 512)
	copy(ustar[257:], "ustar\x0000")
	gnu := make([]byte, 512)
	copy(gnu[257:], "ustar  \x00")

	tests := []struct {
		name   string
		header []byte
		want   unarchive.Format
		wantOk bool
	}{
		{name: "zip local file header", header: []byte{0x50, 0x4B, 0x03, 0x04, 0x14}, want: unarchive.FormatZip, wantOk: true},
		{name: "empty zip", header: []byte{0x50, 0x4B, 0x05, 0x06}, want: unarchive.FormatZip, wantOk: true},
		{name: "spanned zip", header: []byte{0x50, 0x4B, 0x07, 0x08}, want: unarchive.FormatZip, wantOk: true},
		{name: "rar", header: []byte("Rar!\x1a\x07\x00"), want: unarchive.FormatRar, wantOk: true},
		{name: "7z", header: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, want: unarchive.FormatSevenZip, wantOk: true},
		{name: "tar member named ustar", header: []byte("usta"), want: unarchive.FormatTar, wantOk: true},
		{name: "tar pax header", header: []byte("PaxHeaders.0/file"), want: unarchive.FormatTar, wantOk: true},
		{name: "ustar magic", header: ustar, want: unarchive.FormatTar, wantOk: true},
		{name: "gnu tar magic", header: gnu, want: unarchive.FormatTar, wantOk: true},
		{name: "short header", header: []byte{0x50, 0x4B, 0x03}, wantOk: false},
		{name: "empty header", header: nil, wantOk: false},
		{name: "text", header: []byte("hello world"), wantOk: false},
		{name: "gzip is not a container", header: []byte{0x1f, 0x8b, 0x08, 0x00}, wantOk: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := unarchive.DetectByMagic(tc.header)
			assert.Equal(t, tc.wantOk, ok)
			if tc.wantOk {
				assert.Equal(t, tc.want, got)
			} else {
				assert.Equal(t, unarchive.FormatUnknown, got)
			}
		})
	}
}

func TestDetectFile(t *testing.T) {
	dir := t.TempDir()

	zipPath := writeTestFile(t, dir, "misnamed.txt", packZip(t, []archiveContent{{Name: "a", Content: []byte("a")}}))
	format, ok, err := unarchive.DetectFile(zipPath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, unarchive.FormatZip, format)

	tarPath := writeTestFile(t, dir, "backup", packTar(t, []archiveContent{{Name: "a", Content: []byte("a")}}))
	format, ok, err = unarchive.DetectFile(tarPath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, unarchive.FormatTar, format)

	emptyPath := writeTestFile(t, dir, "empty.zip", nil)
	_, ok, err = unarchive.DetectFile(emptyPath)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = unarchive.DetectFile(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "zip", unarchive.FormatZip.String())
	assert.Equal(t, "rar", unarchive.FormatRar.String())
	assert.Equal(t, "7z", unarchive.FormatSevenZip.String())
	assert.Equal(t, "tar", unarchive.FormatTar.String())
	assert.Equal(t, "unknown", unarchive.FormatUnknown.String())
}

func TestDetectCompression(t *testing.T) {
	data := []byte("some data to compress")

	tests := []struct {
		name   string
		header []byte
		want   unarchive.Compression
	}{
		{name: "gzip", header: compressGzip(t, data), want: unarchive.CompressionGZip},
		{name: "zstd", header: compressZstd(t, data), want: unarchive.CompressionZstd},
		{name: "xz", header: compressXz(t, data), want: unarchive.CompressionXz},
		{name: "bzip2", header: compressBzip2(t, data), want: unarchive.CompressionBzip2},
		{name: "lz4", header: compressLZ4(t, data), want: unarchive.CompressionLZ4},
		{name: "snappy", header: compressSnappy(t, data), want: unarchive.CompressionSnappy},
		{name: "zlib", header: compressZlib(t, data), want: unarchive.CompressionZlib},
		{name: "plain", header: data, want: unarchive.CompressionNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := unarchive.DetectCompression(tc.header)
			assert.Equal(t, tc.want != unarchive.CompressionNone, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectCompressionByExtension(t *testing.T) {
	tests := []struct {
		name string
		want unarchive.Compression
		ok   bool
	}{
		{name: "a.tar.gz", want: unarchive.CompressionGZip, ok: true},
		{name: "a.tgz", want: unarchive.CompressionGZip, ok: true},
		{name: "a.tar.bz2", want: unarchive.CompressionBzip2, ok: true},
		{name: "a.TXZ", want: unarchive.CompressionXz, ok: true},
		{name: "a.tar.zst", want: unarchive.CompressionZstd, ok: true},
		{name: "a.tar.br", want: unarchive.CompressionBrotli, ok: true},
		{name: "a.tar", want: unarchive.CompressionNone, ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := unarchive.DetectCompressionByExtension(tc.name)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "gz", unarchive.CompressionGZip.String())
	assert.Equal(t, "none", unarchive.CompressionNone.String())
}
