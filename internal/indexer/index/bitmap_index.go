package index

import (
	"context"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
)

var _ InvertedIndex = (*BitmapIndex)(nil)

// BitmapIndex keeps one roaring bitmap per token. Document ids are interned
// to dense uint32 ordinals on first sight, so postings stay compact and
// intersections run on bitmap containers instead of hash sets.
type BitmapIndex struct {
	mu       sync.RWMutex
	ordinals map[docstore.DocumentID]uint32
	ids      []docstore.DocumentID
	postings map[string]*roaring.Bitmap
}

func NewBitmapIndex() *BitmapIndex {
	return &BitmapIndex{
		ordinals: make(map[docstore.DocumentID]uint32),
		postings: make(map[string]*roaring.Bitmap),
	}
}

func (b *BitmapIndex) Add(ctx context.Context, token string, id docstore.DocumentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ord, ok := b.ordinals[id]
	if !ok {
		ord = uint32(len(b.ids))
		b.ordinals[id] = ord
		b.ids = append(b.ids, id)
	}
	bm, ok := b.postings[token]
	if !ok {
		bm = roaring.New()
		b.postings[token] = bm
	}
	bm.Add(ord)
	return nil
}

func (b *BitmapIndex) Get(ctx context.Context, token string) ([]docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	bm, ok := b.postings[token]
	if !ok {
		return []docstore.DocumentID{}, nil
	}
	return b.resolve(bm), nil
}

func (b *BitmapIndex) GetIntersection(ctx context.Context, tokens []string) ([]docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens = uniqueTokens(tokens)
	if len(tokens) == 0 {
		return []docstore.DocumentID{}, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	bitmaps := make([]*roaring.Bitmap, 0, len(tokens))
	for _, token := range tokens {
		bm, ok := b.postings[token]
		if !ok {
			return []docstore.DocumentID{}, nil
		}
		bitmaps = append(bitmaps, bm)
	}
	return b.resolve(roaring.FastAnd(bitmaps...)), nil
}

// SizeInBytes reports the serialized size of all postings bitmaps.
func (b *BitmapIndex) SizeInBytes() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total uint64
	for _, bm := range b.postings {
		total += bm.GetSizeInBytes()
	}
	return total
}

// resolve maps ordinals back to ids. Callers hold b.mu.
func (b *BitmapIndex) resolve(bm *roaring.Bitmap) []docstore.DocumentID {
	out := make([]docstore.DocumentID, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, b.ids[it.Next()])
	}
	slices.Sort(out)
	return out
}
