package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"amlguard/internal/audittrail/models"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Schema creates the audit trail table. Rows are never updated.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_trail (
	seq           BIGSERIAL,
	id            TEXT PRIMARY KEY,
	occurred_at   TIMESTAMPTZ NOT NULL,
	action        TEXT NOT NULL,
	category      TEXT NOT NULL,
	severity      TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	actor_id      TEXT NOT NULL DEFAULT '',
	actor         TEXT NOT NULL DEFAULT '',
	actor_role    TEXT NOT NULL DEFAULT '',
	resource_type TEXT NOT NULL DEFAULT '',
	resource_id   TEXT NOT NULL DEFAULT '',
	details       TEXT NOT NULL DEFAULT '',
	ip            TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	device        TEXT NOT NULL DEFAULT '',
	request_id    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_trail_occurred_at_idx ON audit_trail (occurred_at);
`

const selectColumns = `id, occurred_at, action, category, severity, outcome, actor_id, actor,
	actor_role, resource_type, resource_id, details, ip, user_agent, device, request_id`

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the audit trail through a pgx pool.
type PostgresStore struct {
	db DB
}

func NewPostgres(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, e *models.Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_trail (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.Timestamp, e.Action, string(e.Category), string(e.Severity), string(e.Outcome),
		e.ActorID, e.Actor, e.ActorRole, e.ResourceType, e.ResourceID, e.Details,
		e.IP, e.UserAgent, e.Device, e.RequestID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("audit entry %s: %w", e.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM audit_trail WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("audit entry %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find audit entry: %w", err)
	}
	return e, nil
}

// ListAll returns every entry in insertion order.
func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT `+selectColumns+` FROM audit_trail ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Entry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}

func scanEntry(row pgx.Row) (*models.Entry, error) {
	var (
		e                           models.Entry
		category, severity, outcome string
	)
	err := row.Scan(&e.ID, &e.Timestamp, &e.Action, &category, &severity, &outcome,
		&e.ActorID, &e.Actor, &e.ActorRole, &e.ResourceType, &e.ResourceID, &e.Details,
		&e.IP, &e.UserAgent, &e.Device, &e.RequestID)
	if err != nil {
		return nil, err
	}
	e.Category = audit.EventCategory(category)
	e.Severity = audit.Severity(severity)
	e.Outcome = audit.Outcome(outcome)
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}
