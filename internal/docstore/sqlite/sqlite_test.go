package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "docs", "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_StoreAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.StoreDocument(ctx, "alpha")
	require.NoError(t, err)
	b, err := store.StoreDocument(ctx, "beta")
	require.NoError(t, err)

	got, err := store.GetDocuments(ctx, []docstore.DocumentID{b, a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "alpha", "beta"}, got)
}

func TestStore_GetDocuments_UnknownID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDocuments(context.Background(), []docstore.DocumentID{"nope"})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestStore_GetDocuments_ManyIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ids := make([]docstore.DocumentID, 0, lookupChunk+25)
	for i := 0; i < lookupChunk+25; i++ {
		id, err := store.StoreDocument(ctx, fmt.Sprintf("doc %d", i))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	got, err := store.GetDocuments(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	assert.Equal(t, "doc 0", got[0])
	assert.Equal(t, fmt.Sprintf("doc %d", lookupChunk+24), got[len(got)-1])
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	id, err := store.StoreDocument(ctx, "persisted")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetDocuments(ctx, []docstore.DocumentID{id})
	require.NoError(t, err)
	assert.Equal(t, []string{"persisted"}, got)
	assert.Equal(t, path, reopened.Path())
}
