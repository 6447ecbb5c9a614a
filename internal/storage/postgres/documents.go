package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentRepository stores dev server rows as JSONB documents keyed by
// collection and id.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS dev_documents (
			collection TEXT NOT NULL,
			id         BIGINT NOT NULL,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create dev_documents: %w", err)
	}
	return nil
}

// Load returns every document of collection by id.
func (r *DocumentRepository) Load(ctx context.Context, collection string) (map[int64][]byte, error) {
	query := `SELECT id, doc FROM dev_documents WHERE collection = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := map[int64][]byte{}
	for rows.Next() {
		var (
			id  int64
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// Save upserts one document.
func (r *DocumentRepository) Save(ctx context.Context, collection string, id int64, doc []byte) error {
	query := `
		INSERT INTO dev_documents (collection, id, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, collection, id, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, collection string, id int64) error {
	query := `DELETE FROM dev_documents WHERE collection = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, collection, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
