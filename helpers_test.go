package unarchive_test

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/golang/snappy"
	unarchive "github.com/hashicorp/go-unarchive"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// archiveContent describes one member of a generated test archive.
type archiveContent struct {
	Name     string
	Content  []byte
	Filetype byte
}

var testModTime = time.Unix(1700000000, 0)

// packTar creates an uncompressed ustar archive.
func packTar(t *testing.T, contents []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, c := range contents {
		typ := c.Filetype
		if typ == 0 {
			typ = tar.TypeReg
		}
		hdr := &tar.Header{
			Name:     c.Name,
			Mode:     0640,
			Size:     int64(len(c.Content)),
			Typeflag: typ,
			ModTime:  testModTime,
			Format:   tar.FormatUSTAR,
		}
		if typ != tar.TypeReg {
			hdr.Size = 0
			hdr.Mode = 0750
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := tw.Write(c.Content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// packZip creates a zip archive. Names ending in "/" become directory records.
func packZip(t *testing.T, contents []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, c := range contents {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: c.Name, Method: zip.Deflate, Modified: testModTime})
		require.NoError(t, err)
		if len(c.Content) > 0 {
			_, err = w.Write(c.Content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// writeTestFile writes data to name below dir and returns the full path.
func writeTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, data, 0640))
	return path
}

// compressWith streams data through the writer returned by newWriter.
func compressWith(t *testing.T, data []byte, newWriter func(io.Writer) (io.WriteCloser, error)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := newWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func compressGzip(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil })
}

func compressZstd(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) })
}

func compressXz(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) })
}

func compressBzip2(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) {
		return bzip2.NewWriter(w, &bzip2.WriterConfig{})
	})
}

func compressLZ4(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(w), nil })
}

func compressSnappy(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) { return snappy.NewBufferedWriter(w), nil })
}

func compressZlib(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) { return zlib.NewWriter(w), nil })
}

func compressBrotli(t *testing.T, data []byte) []byte {
	return compressWith(t, data, func(w io.Writer) (io.WriteCloser, error) { return brotli.NewWriter(w), nil })
}

// entryPaths returns the stored paths of entries.
func entryPaths(entries []unarchive.Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path().String()
	}
	return paths
}
