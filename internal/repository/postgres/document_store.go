package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentStore implements domain.DocumentStore on PostgreSQL. Documents are
// one jsonb row per path; records are append-ordered rows per collection.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// EnsureSchema creates the backing tables if they do not exist.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_records_collection_created
			ON records (collection, created_at, id);
	`)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// ReadDocument returns the document at path.
func (s *DocumentStore) ReadDocument(ctx context.Context, path string) (domain.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", path, err)
	}
	return doc, nil
}

// WriteDocument stores a document at path. With merge, existing fields not in
// data are preserved; without, the document is replaced wholesale.
func (s *DocumentStore) WriteDocument(ctx context.Context, path string, data domain.Document, merge bool) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", path, err)
	}
	if merge {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO documents (path, data) VALUES ($1, $2)
			ON CONFLICT (path) DO UPDATE
			SET data = documents.data || EXCLUDED.data, updated_at = now()
		`, path, raw)
	} else {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO documents (path, data) VALUES ($1, $2)
			ON CONFLICT (path) DO UPDATE
			SET data = EXCLUDED.data, updated_at = now()
		`, path, raw)
	}
	return err
}

// CreateRecord inserts a record with a fresh id and returns the id.
func (s *DocumentStore) CreateRecord(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := s.NewRecordID()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO records (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, []byte(data))
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListRecords returns every record of a collection in arrival order.
func (s *DocumentStore) ListRecords(ctx context.Context, collection string) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM records WHERE collection = $1 ORDER BY created_at, id`,
		collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.Record
	for rows.Next() {
		var rec domain.Record
		var raw []byte
		if err := rows.Scan(&rec.ID, &raw); err != nil {
			return nil, err
		}
		rec.Data = json.RawMessage(raw)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdateRecord merges a partial payload into an existing record.
func (s *DocumentStore) UpdateRecord(ctx context.Context, collection, id string, partial json.RawMessage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET data = data || $3 WHERE collection = $1 AND id = $2`,
		collection, id, []byte(partial))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// DeleteRecord removes a record by id.
func (s *DocumentStore) DeleteRecord(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`,
		collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// NewRecordID hands out a fresh record identifier. Ids are generated client
// side so batched creates can reference them before any row exists.
func (s *DocumentStore) NewRecordID() string {
	return uuid.New().String()
}

// ApplyBatch runs every operation inside one transaction; if any fails, none
// take effect.
func (s *DocumentStore) ApplyBatch(ctx context.Context, ops []domain.BatchOp) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		switch op.Kind {
		case domain.BatchOpCreateRecord:
			_, err = tx.Exec(ctx,
				`INSERT INTO records (collection, id, data) VALUES ($1, $2, $3)`,
				op.Collection, op.RecordID, []byte(op.Data))
		case domain.BatchOpDeleteRecord:
			_, err = tx.Exec(ctx,
				`DELETE FROM records WHERE collection = $1 AND id = $2`,
				op.Collection, op.RecordID)
		case domain.BatchOpMergeDocument:
			_, err = tx.Exec(ctx, `
				INSERT INTO documents (path, data) VALUES ($1, $2)
				ON CONFLICT (path) DO UPDATE
				SET data = documents.data || EXCLUDED.data, updated_at = now()
			`, op.Path, []byte(op.Data))
		case domain.BatchOpDeleteField:
			_, err = tx.Exec(ctx,
				`UPDATE documents SET data = data - $2, updated_at = now() WHERE path = $1`,
				op.Path, op.Field)
		default:
			err = fmt.Errorf("unknown batch op %q", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("batch op %q: %w", op.Kind, err)
		}
	}
	return tx.Commit(ctx)
}

var _ domain.DocumentStore = (*DocumentStore)(nil)
