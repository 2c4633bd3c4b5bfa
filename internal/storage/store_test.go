package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Unit(t *testing.T) {
	memFs := afero.NewMemMapFs()
	store, err := NewStore(memFs, "uploads")
	require.NoError(t, err)
	ctx := context.Background()

	name := "myfile-1700000000000.png"
	content := "not really a png"

	t.Run("Save", func(t *testing.T) {
		n, err := store.Save(ctx, name, bytes.NewReader([]byte(content)))
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), n)

		exists, err := afero.Exists(memFs, "uploads/"+name)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Open", func(t *testing.T) {
		f, err := store.Open(ctx, name)
		require.NoError(t, err)
		defer f.Close()

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	})

	t.Run("FileSystem", func(t *testing.T) {
		f, err := store.FileSystem().Open("/" + name)
		require.NoError(t, err)
		defer f.Close()
		_, ok := f.(http.File)
		assert.True(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, name))
		exists, err := afero.Exists(memFs, "uploads/"+name)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Open missing", func(t *testing.T) {
		_, err := store.Open(ctx, "nothing.png")
		assert.Error(t, err)
	})

	t.Run("Rejects traversal", func(t *testing.T) {
		_, err := store.Open(ctx, "../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidName)
		_, err = store.Save(ctx, "..", bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestNameFromReference(t *testing.T) {
	cases := map[string]string{
		"http://localhost:3001/uploads/myfile-1.png":   "myfile-1.png",
		"https://cdn.example.com/a/b/clip.mp4?x=1":     "clip.mp4",
		"myfile-2.jpg":                                 "myfile-2.jpg",
		"/uploads/../uploads/myfile-3.gif":             "myfile-3.gif",
	}
	for ref, want := range cases {
		assert.Equal(t, want, NameFromReference(ref), ref)
	}
}
