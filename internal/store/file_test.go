package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCollections_ReadMissing(t *testing.T) {
	fc := NewFileCollections(filepath.Join(t.TempDir(), "data"))
	_, err := fc.ReadCollection(context.Background(), CollectionBookings)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestFileCollections_WriteThenRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	fc := NewFileCollections(dir)
	ctx := context.Background()

	in := []json.RawMessage{json.RawMessage(`{"id":"a"}`), json.RawMessage(`{"id":"b"}`)}
	require.NoError(t, fc.WriteCollection(ctx, CollectionBookings, in))

	out, err := fc.ReadCollection(ctx, CollectionBookings)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.JSONEq(t, `{"id":"a"}`, string(out[0]))
	assert.JSONEq(t, `{"id":"b"}`, string(out[1]))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not survive a write")
	assert.Equal(t, "bookings.json", entries[0].Name())
}

func TestFileCollections_OverwriteAndEmpty(t *testing.T) {
	fc := NewFileCollections(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fc.WriteCollection(ctx, CollectionMovies, []json.RawMessage{json.RawMessage(`{"id":1}`)}))
	require.NoError(t, fc.WriteCollection(ctx, CollectionMovies, nil))

	out, err := fc.ReadCollection(ctx, CollectionMovies)
	require.NoError(t, err)
	assert.Empty(t, out)

	body, err := os.ReadFile(filepath.Join(fc.Dir(), "movies.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestFileCollections_EmptyFileIsEmptyCollection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cinemas.json"), nil, 0o644))
	out, err := NewFileCollections(dir).ReadCollection(context.Background(), CollectionCinemas)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFileCollections_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bookings.json"), []byte(`{not json`), 0o644))
	_, err := NewFileCollections(dir).ReadCollection(context.Background(), CollectionBookings)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCollectionNotFound)
}

func TestResolveDataDir(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "backend", "cmd", "server")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Run("explicit root wins", func(t *testing.T) {
		got, err := ResolveDataDir(filepath.Join(base, "elsewhere"), "backend", nested)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "elsewhere"), got)
	})

	t.Run("walks up to marker", func(t *testing.T) {
		got, err := ResolveDataDir("", "backend", nested)
		require.NoError(t, err)
		want, _ := filepath.EvalSymlinks(filepath.Join(base, "backend"))
		assert.Equal(t, filepath.Join(want, "data"), got)
	})

	t.Run("marker missing", func(t *testing.T) {
		_, err := ResolveDataDir("", "no-such-marker-dir", nested)
		assert.Error(t, err)
	})
}
