package cmd

import (
	"archive/tar"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTar(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range map[string]string{
		"docs/readme.txt": "hello",
		"../escape.txt":   "bad",
		"..":              "x",
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0640, Size: int64(len(content)), Typeflag: tar.TypeReg, Format: tar.FormatUSTAR}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func testGlobals(stdin []byte) (*globals, *bytes.Buffer) {
	var out bytes.Buffer
	return &globals{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdout: &out,
		stdin:  bytes.NewReader(stdin),
	}, &out
}

func TestListCmd(t *testing.T) {
	g, out := testGlobals(testTar(t))
	require.NoError(t, (&ListCmd{Archive: "-", Unsafe: true}).Run(g))
	assert.Contains(t, out.String(), "docs/readme.txt\n")
	assert.Contains(t, out.String(), "../escape.txt\n")
	assert.Contains(t, out.String(), "  .. (unsafe)\n")
	assert.Contains(t, out.String(), "5 B")

	g, out = testGlobals(testTar(t))
	require.NoError(t, (&ListCmd{Archive: "-", Subdir: "docs"}).Run(g))
	assert.Contains(t, out.String(), " readme.txt\n")
	assert.NotContains(t, out.String(), "docs/")
	assert.NotContains(t, out.String(), "escape")
	assert.NotContains(t, out.String(), "..")
}

func TestCatCmd(t *testing.T) {
	for _, name := range []string{"docs/readme.txt", "readme.txt"} {
		g, out := testGlobals(testTar(t))
		require.NoError(t, (&CatCmd{Archive: "-", Entry: name}).Run(g))
		assert.Equal(t, "hello", out.String())
	}

	g, _ := testGlobals(testTar(t))
	assert.Error(t, (&CatCmd{Archive: "-", Entry: "missing.txt"}).Run(g))
}

func TestExtractCmd(t *testing.T) {
	dst := t.TempDir()
	g, _ := testGlobals(testTar(t))
	require.NoError(t, (&ExtractCmd{
		Archive:           "-",
		Destination:       dst,
		Concurrency:       1,
		MaxFiles:          -1,
		MaxExtractionSize: -1,
		MaxExtractionTime: 10,
	}).Run(g))

	got, err := os.ReadFile(filepath.Join(dst, "docs", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	// ".." climbing above the root is dropped
	got, err = os.ReadFile(filepath.Join(dst, "escape.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bad", string(got))
	_, err = os.Stat(filepath.Join(filepath.Dir(dst), "escape.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
