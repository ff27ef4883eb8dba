package unarchive_test

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	unarchive "github.com/hashicorp/go-unarchive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareTar returns a tar archive with a single file whose header carries no
// ustar magic.
func bareTar(name string, content []byte) []byte {
	header := make([]byte, 512)
	copy(header, name)
	copy(header[124:], fmt.Sprintf("%011o\x00", len(content)))
	header[156] = '0'
	data := make([]byte, (len(content)+511)/512*512)
	copy(data, content)
	return append(append(header, data...), make([]byte, 1024)...)
}

func TestOpen(t *testing.T) {
	content := []byte("hello from the archive")
	tarball := packTar(t, []archiveContent{
		{Name: "dir/hello.txt", Content: content},
	})

	tests := []struct {
		name     string
		fileName string
		data     []byte
		opts     []unarchive.ConfigOption
		wantType string
		wantErr  error
	}{
		{name: "zip", fileName: "a.zip", data: packZip(t, []archiveContent{{Name: "dir/hello.txt", Content: content}}), wantType: "zip"},
		{name: "zip with wrong extension", fileName: "a.bin", data: packZip(t, []archiveContent{{Name: "dir/hello.txt", Content: content}}), wantType: "zip"},
		{name: "tar", fileName: "a.tar", data: tarball, wantType: "tar"},
		{name: "tar.gz", fileName: "a.tar.gz", data: compressGzip(t, tarball), wantType: "tar.gz"},
		{name: "tgz without extension", fileName: "a", data: compressGzip(t, tarball), wantType: "tar.gz"},
		{name: "tar.zst", fileName: "a.tar.zst", data: compressZstd(t, tarball), wantType: "tar.zst"},
		{name: "tar.xz", fileName: "a.tar.xz", data: compressXz(t, tarball), wantType: "tar.xz"},
		{name: "tar.bz2", fileName: "a.tar.bz2", data: compressBzip2(t, tarball), wantType: "tar.bz2"},
		{name: "tar.lz4", fileName: "a.tar.lz4", data: compressLZ4(t, tarball), wantType: "tar.lz4"},
		{name: "tar.sz", fileName: "a.tar.sz", data: compressSnappy(t, tarball), wantType: "tar.sz"},
		{name: "tar.zz", fileName: "a.tar.zz", data: compressZlib(t, tarball), wantType: "tar.zz"},
		{name: "tar.br", fileName: "a.tar.br", data: compressBrotli(t, tarball), wantType: "tar.br"},
		{name: "tar.gz spooled in memory", fileName: "a.tgz", data: compressGzip(t, tarball), opts: []unarchive.ConfigOption{unarchive.WithCacheInMemory(true)}, wantType: "tar.gz"},
		{name: "bare tar by extension", fileName: "a.tar", data: bareTar("dir/hello.txt", content), opts: []unarchive.ConfigOption{unarchive.WithExtensionFallback(true)}, wantType: "tar"},
		{name: "bare tar without fallback", fileName: "a.tar", data: bareTar("dir/hello.txt", content), wantErr: unarchive.ErrUnknownFormat},
		{name: "text file", fileName: "a.txt", data: []byte("just some text"), wantErr: unarchive.ErrUnknownFormat},
		{name: "empty file", fileName: "a.zip", data: nil, wantErr: unarchive.ErrUnknownFormat},
		{name: "gzip without tar", fileName: "a.gz", data: compressGzip(t, content), wantErr: unarchive.ErrUnknownFormat},
		{name: "junk named gz", fileName: "junk.gz", data: []byte("not compressed at all"), wantErr: unarchive.ErrUnknownFormat},
		{name: "junk named xz", fileName: "junk.xz", data: []byte("not compressed at all"), wantErr: unarchive.ErrUnknownFormat},
		{name: "junk named tgz", fileName: "junk.tgz", data: []byte("not compressed at all"), wantErr: unarchive.ErrUnknownFormat},
		{name: "junk named gz with fallback", fileName: "junk.gz", data: []byte("not compressed at all"), opts: []unarchive.ConfigOption{unarchive.WithExtensionFallback(true)}, wantErr: unarchive.ErrUnknownFormat},
		{name: "junk named br", fileName: "junk.br", data: []byte("not compressed at all"), wantErr: unarchive.ErrUnknownFormat},
		{name: "corrupt gzip", fileName: "a.tar.gz", data: []byte{0x1f, 0x8b, 0x00, 0x01, 0x02}, wantErr: unarchive.ErrOpenContainer},
		{name: "decompressed size limit", fileName: "a.tar.gz", data: compressGzip(t, tarball), opts: []unarchive.ConfigOption{unarchive.WithMaxInputSize(100)}, wantErr: unarchive.ErrMaxInputSizeExceeded},
		{name: "broken zip by extension", fileName: "a.zip", data: []byte("not a zip at all"), opts: []unarchive.ConfigOption{unarchive.WithExtensionFallback(true)}, wantErr: unarchive.ErrOpenContainer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTestFile(t, t.TempDir(), tc.fileName, tc.data)

			a, err := unarchive.Open(path, tc.opts...)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				if tc.wantErr == unarchive.ErrUnknownFormat {
					assert.NotErrorIs(t, err, unarchive.ErrOpenContainer)
				}
				return
			}
			require.NoError(t, err)
			defer a.Close()
			assert.Equal(t, tc.wantType, a.Type())

			e, err := a.FindName("hello.txt")
			require.NoError(t, err)
			assert.Equal(t, "dir/hello.txt", e.Path().String())
			got, err := a.ReadAll(e)
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}

	_, err := unarchive.Open(filepath.Join(t.TempDir(), "missing.zip"))
	assert.ErrorIs(t, err, unarchive.ErrOpenContainer)
}

func TestOpenReader(t *testing.T) {
	content := []byte("streamed content")
	tarball := packTar(t, []archiveContent{{Name: "hello.txt", Content: content}})
	zipball := packZip(t, []archiveContent{{Name: "hello.txt", Content: content}})

	tests := []struct {
		name     string
		data     []byte
		opts     []unarchive.ConfigOption
		wantType string
		wantErr  error
	}{
		{name: "zip on disk", data: zipball, wantType: "zip"},
		{name: "zip in memory", data: zipball, opts: []unarchive.ConfigOption{unarchive.WithCacheInMemory(true)}, wantType: "zip"},
		{name: "tar", data: tarball, wantType: "tar"},
		{name: "tar in memory", data: tarball, opts: []unarchive.ConfigOption{unarchive.WithCacheInMemory(true)}, wantType: "tar"},
		{name: "tar.xz", data: compressXz(t, tarball), wantType: "tar.xz"},
		{name: "tar.zst in memory", data: compressZstd(t, tarball), opts: []unarchive.ConfigOption{unarchive.WithCacheInMemory(true)}, wantType: "tar.zst"},
		{name: "unknown", data: []byte("plain text"), wantErr: unarchive.ErrUnknownFormat},
		{name: "input size limit", data: zipball, opts: []unarchive.ConfigOption{unarchive.WithMaxInputSize(10)}, wantErr: unarchive.ErrMaxInputSizeExceeded},
		{name: "exactly at input size limit", data: zipball, opts: []unarchive.ConfigOption{unarchive.WithMaxInputSize(int64(len(zipball)))}, wantType: "zip"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := unarchive.OpenReader(bytes.NewReader(tc.data), tc.opts...)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			defer a.Close()
			assert.Equal(t, tc.wantType, a.Type())

			e, err := a.FindPath("hello.txt")
			require.NoError(t, err)
			got, err := a.ReadAll(e)
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}
}

func TestOpenReaderRemovesSpool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("TMPDIR is not consulted on windows")
	}
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	a, err := unarchive.OpenReader(io.MultiReader(bytes.NewReader(packZip(t, []archiveContent{{Name: "a", Content: []byte("a")}}))))
	require.NoError(t, err)

	spooled, err := filepath.Glob(filepath.Join(tmp, "unarchive-*"))
	require.NoError(t, err)
	assert.Len(t, spooled, 1)

	require.NoError(t, a.Close())
	spooled, err = filepath.Glob(filepath.Join(tmp, "unarchive-*"))
	require.NoError(t, err)
	assert.Empty(t, spooled)

	_, err = os.Stat(tmp)
	assert.NoError(t, err)
}

func TestOpenDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", []byte("a"))

	a, err := unarchive.Open(dir)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "dir", a.Type())
}
