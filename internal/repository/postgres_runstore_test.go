package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptpilot/backend/internal/logging"
	"promptpilot/backend/pkg/models"
)

func newMockStore(t *testing.T) (*PostgresRunStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresRunStore(mockPool, logging.NewLogger()), mockPool
}

func TestInsert(t *testing.T) {
	t.Run("Should insert a queued run", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		now := time.Now()
		run := &models.WorkflowRun{
			RequestID: "run_abc",
			UserID:    "user-1",
			Kind:      "image",
			Status:    models.StatusQueued,
			InputJSON: json.RawMessage(`{"subject":"x"}`),
			CreatedAt: now,
			UpdatedAt: now,
		}
		mockPool.ExpectExec("INSERT INTO workflow_runs").
			WithArgs(run.RequestID, run.UserID, run.Kind, run.Status, run.InputJSON, run.CreatedAt, run.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := store.Insert(context.Background(), run)
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map unique violation to ErrConflict", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		mockPool.ExpectExec("INSERT INTO workflow_runs").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := store.Insert(context.Background(), &models.WorkflowRun{RequestID: "run_dup"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("Should write a terminal state", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		errCode := "upstream_rejected"
		errMsg := "engine returned status 422"
		mockPool.ExpectExec("UPDATE workflow_runs").
			WithArgs("run_abc", models.StatusFailed, pgxmock.AnyArg(), &errCode, &errMsg, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := store.UpdateStatus(context.Background(), "run_abc", models.StatusFailed, StatusPatch{
			ErrorCode:    &errCode,
			ErrorMessage: &errMsg,
		})
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return ErrNotFound for absent or terminal run", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		mockPool.ExpectExec("UPDATE workflow_runs").
			WithArgs("run_gone", models.StatusRunning, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := store.UpdateStatus(context.Background(), "run_gone", models.StatusRunning, StatusPatch{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestTouchRunning(t *testing.T) {
	t.Run("Should swallow write failures", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		mockPool.ExpectExec("UPDATE workflow_runs").
			WithArgs("run_abc", models.StatusRunning, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		store.TouchRunning(context.Background(), "run_abc")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestFindByRequestID(t *testing.T) {
	t.Run("Should return the run", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		now := time.Now()
		var nilStr *string
		rows := mockPool.NewRows([]string{
			"request_id", "user_id", "kind", "status", "input_json", "output_json",
			"error_code", "error_message", "created_at", "updated_at",
		}).AddRow("run_abc", "user-1", "image", models.StatusSucceeded,
			json.RawMessage(`{"subject":"x"}`), json.RawMessage(`{"prompt":"y"}`), nilStr, nilStr, now, now)
		mockPool.ExpectQuery("SELECT (.+) FROM workflow_runs WHERE request_id = \\$1").
			WithArgs("run_abc").
			WillReturnRows(rows)

		run, err := store.FindByRequestID(context.Background(), "run_abc")
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, "run_abc", run.RequestID)
		assert.Equal(t, models.StatusSucceeded, run.Status)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return nil on miss", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		mockPool.ExpectQuery("SELECT (.+) FROM workflow_runs WHERE request_id = \\$1").
			WithArgs("run_missing").
			WillReturnError(pgx.ErrNoRows)

		run, err := store.FindByRequestID(context.Background(), "run_missing")
		assert.NoError(t, err)
		assert.Nil(t, run)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetUserBySubject(t *testing.T) {
	t.Run("Should map missing user to ErrNotFound", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE subject = \\$1").
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		user, err := store.GetUserBySubject(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, user)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
