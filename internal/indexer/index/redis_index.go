package index

import (
	"context"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/redis"
)

var _ InvertedIndex = (*RedisIndex)(nil)

// RedisIndex stores each postings set as a Redis set under
// "<prefix>term:<token>". SADD gives idempotent adds and SINTER computes
// intersections server-side; a missing key is an empty set, which gives the
// unknown-token short-circuit for free.
type RedisIndex struct {
	client *pkgredis.Client
	prefix string
}

func NewRedisIndex(client *pkgredis.Client, keyPrefix string) *RedisIndex {
	return &RedisIndex{
		client: client,
		prefix: keyPrefix + "term:",
	}
}

func (r *RedisIndex) Add(ctx context.Context, token string, id docstore.DocumentID) error {
	if err := r.client.SAdd(ctx, r.key(token), string(id)); err != nil {
		return apperrors.Unavailable("sadd "+token, err)
	}
	return nil
}

func (r *RedisIndex) Get(ctx context.Context, token string) ([]docstore.DocumentID, error) {
	members, err := r.client.SMembers(ctx, r.key(token))
	if err != nil {
		return nil, apperrors.Unavailable("smembers "+token, err)
	}
	return toSortedIDs(members), nil
}

func (r *RedisIndex) GetIntersection(ctx context.Context, tokens []string) ([]docstore.DocumentID, error) {
	tokens = uniqueTokens(tokens)
	if len(tokens) == 0 {
		return []docstore.DocumentID{}, nil
	}
	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = r.key(token)
	}
	members, err := r.client.SInter(ctx, keys...)
	if err != nil {
		return nil, apperrors.Unavailable("sinter", err)
	}
	return toSortedIDs(members), nil
}

func (r *RedisIndex) key(token string) string {
	return r.prefix + token
}

func toSortedIDs(members []string) []docstore.DocumentID {
	out := make([]docstore.DocumentID, len(members))
	for i, m := range members {
		out[i] = docstore.DocumentID(m)
	}
	slices.Sort(out)
	return out
}
