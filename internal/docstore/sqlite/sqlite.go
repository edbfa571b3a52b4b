// Package sqlite is a file-backed document store for single-node
// deployments. It uses the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

var _ docstore.Store = (*Store)(nil)

// lookupChunk bounds the number of bound parameters per SELECT.
const lookupChunk = 500

// Store implements docstore.Store in a single SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates (or reopens) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode lets readers run alongside the single writer
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// StoreDocument inserts content under a fresh id.
func (s *Store) StoreDocument(ctx context.Context, content string) (docstore.DocumentID, error) {
	id, err := docstore.NewID()
	if err != nil {
		return "", fmt.Errorf("generating document id: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (id, content) VALUES (?, ?)", string(id), content,
	); err != nil {
		return "", apperrors.Unavailable("inserting document", err)
	}
	return id, nil
}

// GetDocuments returns contents in the order of ids.
func (s *Store) GetDocuments(ctx context.Context, ids []docstore.DocumentID) ([]string, error) {
	found := make(map[docstore.DocumentID]string, len(ids))
	for start := 0; start < len(ids); start += lookupChunk {
		end := min(start+lookupChunk, len(ids))
		if err := s.lookup(ctx, ids[start:end], found); err != nil {
			return nil, err
		}
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

func (s *Store) lookup(ctx context.Context, ids []docstore.DocumentID, found map[docstore.DocumentID]string) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content FROM documents WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return apperrors.Unavailable("querying documents", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return fmt.Errorf("scanning document row: %w", err)
		}
		found[docstore.DocumentID(id)] = content
	}
	if err := rows.Err(); err != nil {
		return apperrors.Unavailable("reading document rows", err)
	}
	return nil
}
