package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ametelin/docqa/internal/core/domain"
)

// CorpusRepository persists build-cycle metadata. Corpus rows are the only
// durable state of the service; job telemetry stays in memory.
type CorpusRepository struct {
	db *sql.DB
}

func NewCorpusRepository(db *sql.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CorpusRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpora (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	collection TEXT NOT NULL,
	documents INTEGER NOT NULL DEFAULT 0,
	chunks INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corpora_status ON corpora(status);
CREATE INDEX IF NOT EXISTS idx_corpora_created_at ON corpora(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CorpusRepository) Create(ctx context.Context, corpus *domain.Corpus) error {
	now := time.Now().UTC()
	if corpus.CreatedAt.IsZero() {
		corpus.CreatedAt = now
	}
	corpus.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO corpora (
	id, name, collection, documents, chunks, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		corpus.ID, corpus.Name, corpus.Collection, corpus.Documents, corpus.Chunks,
		string(corpus.Status), corpus.Error, corpus.CreatedAt, corpus.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert corpus: %w", err)
	}
	return nil
}

func (r *CorpusRepository) GetByID(ctx context.Context, id string) (*domain.Corpus, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, collection, documents, chunks, status, error_message, created_at, updated_at
FROM corpora
WHERE id = $1
`, id)

	var corpus domain.Corpus
	var status string

	err := row.Scan(
		&corpus.ID, &corpus.Name, &corpus.Collection, &corpus.Documents, &corpus.Chunks,
		&status, &corpus.Error, &corpus.CreatedAt, &corpus.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get corpus", fmt.Errorf("corpus %s", id))
		}
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	corpus.Status = domain.CorpusStatus(status)
	return &corpus, nil
}

func (r *CorpusRepository) UpdateStatus(ctx context.Context, id string, status domain.CorpusStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE corpora
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update corpus status: %w", err)
	}
	return requireRowAffected(result, "update corpus status", id)
}

func (r *CorpusRepository) UpdateCounts(ctx context.Context, id string, documents, chunks int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE corpora
SET documents = $2, chunks = $3, updated_at = $4
WHERE id = $1
`, id, documents, chunks, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update corpus counts: %w", err)
	}
	return requireRowAffected(result, "update corpus counts", id)
}

func requireRowAffected(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("corpus %s", id))
	}
	return nil
}
