package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/crypto"
	sharedPersistence "github.com/shiftforge/scheduler/internal/shared/infrastructure/persistence"
)

// SQLiteRunRepository implements domain.RunRepository using SQLite. Schema
// is applied by migrations.RunSQLiteMigrations; see
// internal/shared/infrastructure/migrations/sqlite/0001_scheduling_runs.up.sql.
type SQLiteRunRepository struct {
	db        *sql.DB
	encrypter crypto.Encrypter
}

// NewSQLiteRunRepository creates a SQLite run repository. Pass a nil
// encrypter to store the schedule payload as plaintext JSON.
func NewSQLiteRunRepository(db *sql.DB, encrypter crypto.Encrypter) *SQLiteRunRepository {
	return &SQLiteRunRepository{db: db, encrypter: encrypter}
}

// txQuerier abstracts *sql.DB and *sql.Tx for shared query execution.
type txQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRunRepository) querier(ctx context.Context) txQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.db
}

func (r *SQLiteRunRepository) Save(ctx context.Context, run *domain.Run) error {
	row, err := toRunRow(run, r.encrypter)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduling_runs (
			id, status, mode, year, month, bundle, failure_reason,
			result_schedule, result_schedule_encrypted, result_statistics,
			result_plugin_terms, result_cancelled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			failure_reason = excluded.failure_reason,
			result_schedule = excluded.result_schedule,
			result_schedule_encrypted = excluded.result_schedule_encrypted,
			result_statistics = excluded.result_statistics,
			result_plugin_terms = excluded.result_plugin_terms,
			result_cancelled = excluded.result_cancelled,
			updated_at = excluded.updated_at
	`

	_, err = r.querier(ctx).ExecContext(ctx, query,
		row.id.String(), row.status, row.mode, row.year, row.month, row.bundle, row.failureReason,
		row.resultSchedule, boolToInt(row.resultScheduleEncrypted), row.resultStatistics,
		row.resultPluginTerms, boolToInt(row.resultCancelled),
		row.createdAt.Format(time.RFC3339), row.updatedAt.Format(time.RFC3339),
	)
	return err
}

const selectSQLiteRunColumns = `
		SELECT id, status, mode, year, month, bundle, failure_reason,
		       result_schedule, result_schedule_encrypted, result_statistics,
		       result_plugin_terms, result_cancelled, created_at, updated_at
		FROM scheduling_runs`

func scanRunRow(scan func(...any) error) (runRow, error) {
	var (
		idStr                      string
		createdAtStr, updatedAtStr string
		resultScheduleEncrypted    int
		resultCancelled            int
		row                        runRow
	)

	if err := scan(
		&idStr, &row.status, &row.mode, &row.year, &row.month, &row.bundle, &row.failureReason,
		&row.resultSchedule, &resultScheduleEncrypted, &row.resultStatistics,
		&row.resultPluginTerms, &resultCancelled, &createdAtStr, &updatedAtStr,
	); err != nil {
		return runRow{}, err
	}

	var err error
	row.id, err = uuid.Parse(idStr)
	if err != nil {
		return runRow{}, err
	}
	row.resultScheduleEncrypted = resultScheduleEncrypted != 0
	row.resultCancelled = resultCancelled != 0
	row.createdAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return runRow{}, err
	}
	row.updatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return runRow{}, err
	}
	return row, nil
}

func (r *SQLiteRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := selectSQLiteRunColumns + ` WHERE id = ?`

	sqlRow := r.querier(ctx).QueryRowContext(ctx, query, id.String())
	row, err := scanRunRow(sqlRow.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromRunRow(row, r.encrypter)
}

// FindPending returns the oldest pending runs a worker should claim next.
func (r *SQLiteRunRepository) FindPending(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := selectSQLiteRunColumns + ` WHERE status = ? ORDER BY created_at ASC LIMIT ?`

	rows, err := r.querier(ctx).QueryContext(ctx, query, string(domain.RunPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		row, err := scanRunRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		run, err := fromRunRow(row, r.encrypter)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier(ctx).ExecContext(ctx, `DELETE FROM scheduling_runs WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
