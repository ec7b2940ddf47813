package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"promptpilot/backend/internal/logging"
	"promptpilot/backend/pkg/models"
)

// DB is the subset of pgxpool.Pool the store depends on. pgxmock satisfies
// the same subset.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresRunStore is a PostgreSQL implementation of the RunStore interface.
type PostgresRunStore struct {
	db     DB
	logger *logging.Logger
}

// NewPostgresRunStore creates a new PostgresRunStore.
func NewPostgresRunStore(db DB, logger *logging.Logger) *PostgresRunStore {
	return &PostgresRunStore{db: db, logger: logger}
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (s *PostgresRunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			subject TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS workflow_runs (
			request_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			input_json JSONB,
			output_json JSONB,
			error_code TEXT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_runs_user ON workflow_runs (user_id, created_at DESC);`)
	return err
}

// Insert durably creates a run record. The primary key on request_id makes
// the insert atomic across concurrent callers; a duplicate maps to
// ErrConflict.
func (s *PostgresRunStore) Insert(ctx context.Context, run *models.WorkflowRun) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO workflow_runs (request_id, user_id, kind, status, input_json, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.RequestID, run.UserID, run.Kind, run.Status, run.InputJSON, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateStatus transitions a run forward. The status guard in the WHERE
// clause enforces that terminal runs are never rewritten; an update that
// matches no row returns ErrNotFound.
func (s *PostgresRunStore) UpdateStatus(ctx context.Context, requestID string, status models.RunStatus, patch StatusPatch) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE workflow_runs
		 SET status = $2, output_json = $3, error_code = $4, error_message = $5, updated_at = $6
		 WHERE request_id = $1 AND status NOT IN ('succeeded', 'failed')`,
		requestID, status, patch.OutputJSON, patch.ErrorCode, patch.ErrorMessage, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchRunning marks a run as running without failing the request when the
// write does not land.
func (s *PostgresRunStore) TouchRunning(ctx context.Context, requestID string) {
	if err := s.UpdateStatus(ctx, requestID, models.StatusRunning, StatusPatch{}); err != nil {
		s.logger.Warn("failed to mark run as running", "request_id", requestID, "error", err)
	}
}

// FindByRequestID returns the run for a request id, or nil when absent.
func (s *PostgresRunStore) FindByRequestID(ctx context.Context, requestID string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun
	err := s.db.QueryRow(ctx,
		`SELECT request_id, user_id, kind, status, input_json, output_json, error_code, error_message, created_at, updated_at
		 FROM workflow_runs WHERE request_id = $1`,
		requestID,
	).Scan(&run.RequestID, &run.UserID, &run.Kind, &run.Status, &run.InputJSON, &run.OutputJSON,
		&run.ErrorCode, &run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find run: %w", err)
	}
	return &run, nil
}

// GetUserBySubject returns the user provisioned for a token subject.
func (s *PostgresRunStore) GetUserBySubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, subject, email, created_at, updated_at FROM users WHERE subject = $1`,
		subject,
	).Scan(&user.ID, &user.Subject, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// CreateUser provisions a user row.
func (s *PostgresRunStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, subject, email, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Subject, user.Email, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresRunStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
