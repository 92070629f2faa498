package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"chat-style-studio/internal/model"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the database-backed alternative to Store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			collection_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			blob_key TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_images_collection ON images(collection_id, seq);
		CREATE TABLE IF NOT EXISTS generations (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			blob_key TEXT NOT NULL,
			source_count INTEGER NOT NULL,
			caption TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddImage(ctx context.Context, ref model.ImageRef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, collection_id, user_id, username, blob_key, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ref.ID, ref.CollectionID, ref.UserID, ref.Username, ref.BlobKey, ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListImages(ctx context.Context, collectionID string) ([]model.ImageRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_id, user_id, username, blob_key, created_at
		FROM images WHERE collection_id = ? ORDER BY seq ASC
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	defer rows.Close()

	out := []model.ImageRef{}
	for rows.Next() {
		var ref model.ImageRef
		if err := rows.Scan(&ref.ID, &ref.CollectionID, &ref.UserID, &ref.Username, &ref.BlobKey, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection_id FROM images ORDER BY collection_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddGeneration(ctx context.Context, ref model.GenerationRef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, collection_id, kind, blob_key, source_count, caption, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ref.ID, ref.CollectionID, string(ref.Kind), ref.BlobKey, ref.SourceCount, ref.Caption, ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetGeneration(ctx context.Context, collectionID, id string) (model.GenerationRef, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, kind, blob_key, source_count, caption, created_at
		FROM generations WHERE collection_id = ? AND id = ?
	`, collectionID, id)
	var ref model.GenerationRef
	var kind string
	if err := row.Scan(&ref.ID, &ref.CollectionID, &kind, &ref.BlobKey, &ref.SourceCount, &ref.Caption, &ref.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GenerationRef{}, ErrNotFound
		}
		return model.GenerationRef{}, fmt.Errorf("failed to load generation: %w", err)
	}
	ref.Kind = model.GenerationKind(kind)
	return ref, nil
}
