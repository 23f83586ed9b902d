package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"amlguard/internal/registry/models"
	"amlguard/pkg/platform/sentinel"
	txcontext "amlguard/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Schema creates the registry table. Each entity is stored as one JSONB
// document; the registration number is lifted into a unique column.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_entities (
	seq                 BIGSERIAL,
	id                  TEXT PRIMARY KEY,
	registration_number TEXT NOT NULL UNIQUE,
	status              TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	document            JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS registry_entities_status_idx ON registry_entities (status);
`

// PostgresStore persists entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed entity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate registry schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, entity *models.Entity) error {
	doc, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO registry_entities (id, registration_number, status, created_at, updated_at, document)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entity.ID, regKey(entity.RegistrationNumber), string(entity.Status), entity.CreatedAt, entity.UpdatedAt, doc,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("registration number %s: %w", entity.RegistrationNumber, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Entity, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT document FROM registry_entities WHERE id = $1`, id)
	return scanEntity(row, id)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Entity, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT document FROM registry_entities ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []*models.Entity
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		var e models.Entity
		if err := json.Unmarshal(doc, &e); err != nil {
			return nil, fmt.Errorf("decode entity: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return out, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// and writes the document back in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, id string, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error) {
	var result *models.Entity
	err := txcontext.Run(ctx, s.db, func(txCtx context.Context) error {
		exec := txcontext.Executor(txCtx, s.db)
		row := exec.QueryRowContext(txCtx,
			`SELECT document FROM registry_entities WHERE id = $1 FOR UPDATE`, id)
		entity, err := scanEntity(row, id)
		if err != nil {
			return err
		}
		if err := validate(entity); err != nil {
			return err
		}
		mutate(entity)

		doc, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("encode entity: %w", err)
		}
		if _, err := exec.ExecContext(txCtx, `
			UPDATE registry_entities SET status = $2, updated_at = $3, document = $4 WHERE id = $1`,
			id, string(entity.Status), entity.UpdatedAt, doc,
		); err != nil {
			return fmt.Errorf("update entity: %w", err)
		}
		result = entity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanEntity(row *sql.Row, id string) (*models.Entity, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entity %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find entity: %w", err)
	}
	var e models.Entity
	if err := json.Unmarshal(doc, &e); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if e.Notes == nil {
		e.Notes = []models.Note{}
	}
	return &e, nil
}
