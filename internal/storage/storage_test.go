package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// contract runs the shared Store behavior against any implementation.
func contract(t *testing.T, s Store) {
	ctx := context.Background()

	var missing doc
	assert.ErrorIs(t, s.Get(ctx, "nope", &missing), ErrNotFound)

	require.NoError(t, s.Set(ctx, "lead:a@x.com", doc{Name: "a", Count: 1}))
	require.NoError(t, s.Set(ctx, "lead:b@x.com", doc{Name: "b", Count: 2}))
	require.NoError(t, s.Set(ctx, "plan:a@x.com", doc{Name: "plan"}))

	var got doc
	require.NoError(t, s.Get(ctx, "lead:a@x.com", &got))
	assert.Equal(t, doc{Name: "a", Count: 1}, got)

	// Overwrite replaces the document.
	require.NoError(t, s.Set(ctx, "lead:a@x.com", doc{Name: "a2", Count: 3}))
	require.NoError(t, s.Get(ctx, "lead:a@x.com", &got))
	assert.Equal(t, "a2", got.Name)

	keys, err := s.Keys(ctx, "lead:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lead:a@x.com", "lead:b@x.com"}, keys)

	require.NoError(t, s.Delete(ctx, "lead:a@x.com"))
	assert.ErrorIs(t, s.Get(ctx, "lead:a@x.com", &got), ErrNotFound)

	// Deleting a missing key is a no-op.
	assert.NoError(t, s.Delete(ctx, "lead:a@x.com"))
}

func TestMemoryStore(t *testing.T) {
	contract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	contract(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "seqstate:c1_welcome", doc{Name: "state", Count: 2}))

	second, err := NewFileStore(dir)
	require.NoError(t, err)

	var got doc
	require.NoError(t, second.Get(ctx, "seqstate:c1_welcome", &got))
	assert.Equal(t, 2, got.Count)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// Keys with separators and URL characters must not escape the directory.
	key := "lead:owner@cafe.com/../tricky"
	require.NoError(t, s.Set(ctx, key, doc{Name: "x"}))

	var got doc
	require.NoError(t, s.Get(ctx, key, &got))
	assert.Equal(t, "x", got.Name)

	keys, err := s.Keys(ctx, "lead:")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestMemoryStoreIsolatesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	original := map[string]int{"a": 1}
	require.NoError(t, s.Set(ctx, "k", original))
	original["a"] = 99

	var got map[string]int
	require.NoError(t, s.Get(ctx, "k", &got))
	assert.Equal(t, 1, got["a"], "stored document is a snapshot, not a reference")
}
