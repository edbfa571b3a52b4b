// Package postgres stores documents in a PostgreSQL table. Ids are generated
// client-side (UUIDv7) so that id order matches insertion order.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/postgres"
)

var _ docstore.Store = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Store implements docstore.Store on top of a postgres.Client.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

// New wraps client and makes sure the documents table exists.
func New(ctx context.Context, client *postgres.Client) (*Store, error) {
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return nil, apperrors.Unavailable("creating documents table", err)
	}
	return &Store{
		client: client,
		logger: slog.Default().With("component", "postgres-docstore"),
	}, nil
}

// StoreDocument inserts content under a fresh id.
func (s *Store) StoreDocument(ctx context.Context, content string) (docstore.DocumentID, error) {
	id, err := docstore.NewID()
	if err != nil {
		return "", fmt.Errorf("generating document id: %w", err)
	}
	err = s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, content) VALUES ($1, $2)`,
			string(id), content,
		)
		return err
	})
	if err != nil {
		return "", apperrors.Unavailable("inserting document", err)
	}
	s.logger.Debug("document stored", "doc_id", id, "size", len(content))
	return id, nil
}

// GetDocuments fetches all ids in one round trip and returns contents in the
// order of ids. A missing id fails the call with ErrDocumentNotFound.
func (s *Store) GetDocuments(ctx context.Context, ids []docstore.DocumentID) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, content FROM documents WHERE id = ANY($1)`,
		pq.Array(docstore.Strings(ids)),
	)
	if err != nil {
		return nil, apperrors.Unavailable("querying documents", err)
	}
	defer rows.Close()

	found := make(map[docstore.DocumentID]string, len(ids))
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		found[docstore.DocumentID(id)] = content
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("reading document rows", err)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		content, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("document %s: %w", id, apperrors.ErrDocumentNotFound)
		}
		out = append(out, content)
	}
	return out, nil
}
