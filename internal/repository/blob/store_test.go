package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "ws1", ObjectArchive, []byte("zipdata")))
			require.NoError(t, s.Put(ctx, "ws1", ObjectReport, []byte(`{"ok":true}`)))
			require.NoError(t, s.Put(ctx, "ws2", ObjectArchive, []byte("other")))

			got, err := s.Get(ctx, "ws1", ObjectArchive)
			require.NoError(t, err)
			assert.Equal(t, []byte("zipdata"), got)

			names, err := s.List(ctx, "ws1")
			require.NoError(t, err)
			assert.Equal(t, []string{ObjectArchive, ObjectReport}, names)
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "nope", ObjectArchive)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "ws1", ObjectReport, []byte("v1")))
			require.NoError(t, s.Put(ctx, "ws1", ObjectReport, []byte("v2")))

			got, err := s.Get(ctx, "ws1", ObjectReport)
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "ws1", ObjectReport, []byte("x")))
			require.NoError(t, s.Delete(ctx, "ws1", ObjectReport))

			_, err := s.Get(ctx, "ws1", ObjectReport)
			assert.ErrorIs(t, err, ErrNotFound)

			// Absent objects delete cleanly.
			assert.NoError(t, s.Delete(ctx, "ws1", ObjectReport))
		})
	}
}

func TestStoreDeleteAll(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "ws1", ObjectArchive, []byte("a")))
			require.NoError(t, s.Put(ctx, "ws1", ObjectReport, []byte("b")))
			require.NoError(t, s.Put(ctx, "ws2", ObjectArchive, []byte("c")))

			require.NoError(t, s.DeleteAll(ctx, "ws1"))

			names, err := s.List(ctx, "ws1")
			require.NoError(t, err)
			assert.Empty(t, names)

			got, err := s.Get(ctx, "ws2", ObjectArchive)
			require.NoError(t, err)
			assert.Equal(t, []byte("c"), got)
		})
	}
}

func TestStoreValidation(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.Error(t, s.Put(ctx, "", ObjectArchive, []byte("x")))
			assert.Error(t, s.Put(ctx, "ws1", "  ", []byte("x")))
			_, err := s.Get(ctx, "", ObjectArchive)
			assert.Error(t, err)
			_, err = s.List(ctx, "")
			assert.Error(t, err)
		})
	}
}

func TestStoreGetURLUnsupported(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(context.Background(), "ws1", ObjectArchive, []byte("x")))
			url, err := s.GetURL(context.Background(), "ws1", ObjectArchive)
			require.NoError(t, err)
			assert.Empty(t, url)
		})
	}
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	content := []byte("original")
	require.NoError(t, s.Put(ctx, "ws1", ObjectArchive, content))
	content[0] = 'X'

	got, err := s.Get(ctx, "ws1", ObjectArchive)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	// Mutating the returned slice must not corrupt the stored copy.
	got[0] = 'Y'
	again, err := s.Get(ctx, "ws1", ObjectArchive)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, s.Put(ctx, "../escape", ObjectArchive, []byte("x")))
	assert.Error(t, s.Put(ctx, "ws1", "../escape.zip", []byte("x")))
	_, err := s.Get(ctx, "ws1", "/etc/passwd")
	assert.Error(t, err)
}

func TestFileStoreSymlinkedRoot(t *testing.T) {
	real := filepath.Join(t.TempDir(), "real")
	require.NoError(t, os.MkdirAll(real, 0o755))
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	s := NewFileStore(link)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "ws1", ObjectArchive, []byte("zip")))

	got, err := s.Get(ctx, "ws1", ObjectArchive)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip"), got)

	// Objects land under the resolved target, not beside the link.
	_, err = os.Stat(filepath.Join(real, "ws1", ObjectArchive))
	require.NoError(t, err)
}

func TestFileStoreEmptyRoot(t *testing.T) {
	s := NewFileStore("  ")
	err := s.Put(context.Background(), "ws1", ObjectArchive, []byte("x"))
	assert.Error(t, err)
}
