package unarchive_test

import (
	"context"
	"testing"

	unarchive "github.com/hashicorp/go-unarchive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubdirectory(t *testing.T) {
	a := unarchive.NewTarArchive(packTar(t, []archiveContent{
		{Name: "top.txt", Content: []byte("top")},
		{Name: "assets/img/logo.png", Content: []byte("png")},
		{Name: "./assets//style.css", Content: []byte("css")},
		{Name: "assets", Content: []byte("file named like the dir")},
		{Name: "assetsx/other.txt", Content: []byte("other")},
		{Name: "assets/../top2.txt", Content: []byte("top2")},
	}))
	defer a.Close()

	tests := []struct {
		name    string
		path    string
		want    []string
		wantErr error
	}{
		{name: "plain", path: "assets", want: []string{"img/logo.png", "style.css"}},
		{name: "trailing slash", path: "assets/", want: []string{"img/logo.png", "style.css"}},
		{name: "nested", path: "assets/img", want: []string{"logo.png"}},
		{name: "normalized", path: "./x/../assets", want: []string{"img/logo.png", "style.css"}},
		{name: "missing directory", path: "nothing", want: nil},
		{name: "empty", path: "", wantErr: unarchive.ErrUnsafePath},
		{name: "root", path: "./", wantErr: unarchive.ErrUnsafePath},
		{name: "escaping", path: "../assets", wantErr: unarchive.ErrUnsafePath},
		{name: "dot dot", path: "..", wantErr: unarchive.ErrUnsafePath},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub, err := a.Subdirectory(tc.path)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, a.Type(), sub.Type())

			entries, err := sub.Entries()
			require.NoError(t, err)
			if tc.want == nil {
				assert.Empty(t, entries)
				return
			}
			assert.Equal(t, tc.want, entryPaths(entries))
		})
	}
}

func TestSubdirectoryReadAndExtract(t *testing.T) {
	a := unarchive.NewTarArchive(packTar(t, []archiveContent{
		{Name: "root/a/b.txt", Content: []byte("bbb")},
		{Name: "root/c.txt", Content: []byte("ccc")},
		{Name: "other.txt", Content: []byte("other")},
	}))
	defer a.Close()

	sub, err := a.Subdirectory("root")
	require.NoError(t, err)

	e, err := sub.FindPath("a/b.txt")
	require.NoError(t, err)
	got, err := sub.ReadAll(e)
	require.NoError(t, err)
	assert.Equal(t, "bbb", string(got))

	// entries of the view are foreign to the parent and vice versa
	_, err = a.Open(e)
	assert.ErrorIs(t, err, unarchive.ErrEntryMismatch)
	parentEntry, err := a.FindPath("root/c.txt")
	require.NoError(t, err)
	_, err = sub.Open(parentEntry)
	assert.ErrorIs(t, err, unarchive.ErrEntryMismatch)

	// nested views
	nested, err := sub.Subdirectory("a")
	require.NoError(t, err)
	entries, err := nested.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, entryPaths(entries))

	target := unarchive.NewTargetMemory()
	view, err := unarchive.NewTarArchive(packTar(t, []archiveContent{
		{Name: "root/a/b.txt", Content: []byte("bbb")},
		{Name: "root/c.txt", Content: []byte("ccc")},
		{Name: "other.txt", Content: []byte("other")},
	}), unarchive.WithTarget(target)).Subdirectory("root")
	require.NoError(t, err)
	require.NoError(t, view.ExtractAll(context.Background(), ""))
	assert.Equal(t, []string{"a", "a/b.txt", "c.txt"}, target.Paths())

	// closing the view leaves the parent usable
	require.NoError(t, sub.Close())
	_, err = a.Entries()
	assert.NoError(t, err)

	// a closed parent closes the view
	require.NoError(t, a.Close())
	_, err = nested.Entries()
	assert.ErrorIs(t, err, unarchive.ErrClosed)
}
