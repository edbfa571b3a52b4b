package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

func TestStore_StoreAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.StoreDocument(ctx, "first")
	require.NoError(t, err)
	second, err := store.StoreDocument(ctx, "second")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Less(t, string(first), string(second), "ids sort in storage order")

	got, err := store.GetDocuments(ctx, []docstore.DocumentID{second, first})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, got)
	assert.Equal(t, 2, store.Len())
}

func TestStore_DuplicateContentGetsDistinctIDs(t *testing.T) {
	store := New()
	ctx := context.Background()

	a, err := store.StoreDocument(ctx, "same")
	require.NoError(t, err)
	b, err := store.StoreDocument(ctx, "same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Len())
}

func TestStore_EmptyDocument(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, err := store.StoreDocument(ctx, "")
	require.NoError(t, err)
	got, err := store.GetDocuments(ctx, []docstore.DocumentID{id})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)
}

func TestStore_GetDocuments_UnknownID(t *testing.T) {
	store := New()
	ctx := context.Background()
	id, err := store.StoreDocument(ctx, "known")
	require.NoError(t, err)

	_, err = store.GetDocuments(ctx, []docstore.DocumentID{id, "missing"})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestStore_GetDocuments_Empty(t *testing.T) {
	got, err := New().GetDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().StoreDocument(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	store := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.StoreDocument(ctx, "doc")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, store.Len())
}
