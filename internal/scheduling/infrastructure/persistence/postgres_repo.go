package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/wire"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/crypto"
	sharedPersistence "github.com/shiftforge/scheduler/internal/shared/infrastructure/persistence"
)

// ErrRunNotFound is returned by Delete when no row matches the given ID.
var ErrRunNotFound = errors.New("run not found")

// PostgresRunRepository implements domain.RunRepository using PostgreSQL.
// The result schedule is optionally encrypted at rest: operators running
// with real patient/doctor rosters should configure an Encrypter, since
// the schedule payload is the one column that names real people by date.
//
// Equivalent DDL (applied by ops tooling; this module ships no Postgres
// migration runner, unlike the embedded SQLite migrations):
//
//	CREATE TABLE IF NOT EXISTS scheduling_runs (
//	    id UUID PRIMARY KEY,
//	    status TEXT NOT NULL,
//	    mode TEXT NOT NULL,
//	    year INT NOT NULL,
//	    month INT NOT NULL,
//	    bundle JSONB NOT NULL,
//	    failure_reason TEXT NOT NULL DEFAULT '',
//	    result_schedule BYTEA,
//	    result_schedule_encrypted BOOLEAN NOT NULL DEFAULT FALSE,
//	    result_statistics JSONB,
//	    result_plugin_terms JSONB,
//	    result_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type PostgresRunRepository struct {
	pool      *pgxpool.Pool
	encrypter crypto.Encrypter // nil disables at-rest encryption
}

// NewPostgresRunRepository creates a PostgreSQL run repository. Pass a nil
// encrypter to store the schedule payload as plaintext JSON.
func NewPostgresRunRepository(pool *pgxpool.Pool, encrypter crypto.Encrypter) *PostgresRunRepository {
	return &PostgresRunRepository{pool: pool, encrypter: encrypter}
}

func (r *PostgresRunRepository) Save(ctx context.Context, run *domain.Run) error {
	row, err := toRunRow(run, r.encrypter)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduling_runs (
			id, status, mode, year, month, bundle, failure_reason,
			result_schedule, result_schedule_encrypted, result_statistics,
			result_plugin_terms, result_cancelled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			result_schedule = EXCLUDED.result_schedule,
			result_schedule_encrypted = EXCLUDED.result_schedule_encrypted,
			result_statistics = EXCLUDED.result_statistics,
			result_plugin_terms = EXCLUDED.result_plugin_terms,
			result_cancelled = EXCLUDED.result_cancelled,
			updated_at = EXCLUDED.updated_at
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err = exec.Exec(ctx, query,
		row.id, row.status, row.mode, row.year, row.month, row.bundle, row.failureReason,
		row.resultSchedule, row.resultScheduleEncrypted, row.resultStatistics,
		row.resultPluginTerms, row.resultCancelled, row.createdAt, row.updatedAt,
	)
	return err
}

const selectRunColumns = `
		SELECT id, status, mode, year, month, bundle, failure_reason,
		       result_schedule, result_schedule_encrypted, result_statistics,
		       result_plugin_terms, result_cancelled, created_at, updated_at
		FROM scheduling_runs`

func (r *PostgresRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := selectRunColumns + ` WHERE id = $1`

	var row runRow
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&row.id, &row.status, &row.mode, &row.year, &row.month, &row.bundle, &row.failureReason,
		&row.resultSchedule, &row.resultScheduleEncrypted, &row.resultStatistics,
		&row.resultPluginTerms, &row.resultCancelled, &row.createdAt, &row.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromRunRow(row, r.encrypter)
}

// FindPending returns the oldest pending runs a worker should claim next.
func (r *PostgresRunRepository) FindPending(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := selectRunColumns + ` WHERE status = $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, string(domain.RunPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		var row runRow
		if err := rows.Scan(
			&row.id, &row.status, &row.mode, &row.year, &row.month, &row.bundle, &row.failureReason,
			&row.resultSchedule, &row.resultScheduleEncrypted, &row.resultStatistics,
			&row.resultPluginTerms, &row.resultCancelled, &row.createdAt, &row.updatedAt,
		); err != nil {
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

func (r *PostgresRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM scheduling_runs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// runRow is the shared wire shape between the Postgres and SQLite
// repositories; only the column types each driver accepts differ.
type runRow struct {
	id                      uuid.UUID
	status                  string
	mode                    string
	year                    int
	month                   int
	bundle                  []byte
	failureReason           string
	resultSchedule          []byte
	resultScheduleEncrypted bool
	resultStatistics        []byte
	resultPluginTerms       []byte
	resultCancelled         bool
	createdAt               time.Time
	updatedAt               time.Time
}

func toRunRow(run *domain.Run, encrypter crypto.Encrypter) (runRow, error) {
	row := runRow{
		id:            run.ID(),
		status:        string(run.Status()),
		mode:          string(run.Mode()),
		year:          run.Year(),
		month:         int(run.Month()),
		failureReason: run.FailureReason(),
		createdAt:     run.CreatedAt(),
		updatedAt:     run.UpdatedAt(),
	}

	if bundle := run.Bundle(); bundle != nil {
		bundleJSON, err := json.Marshal(wire.FromInputBundle(bundle))
		if err != nil {
			return runRow{}, fmt.Errorf("marshal run bundle: %w", err)
		}
		row.bundle = bundleJSON
	}

	result := run.Result()
	if result == nil {
		return row, nil
	}

	scheduleJSON, err := json.Marshal(result.Schedule)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal result schedule: %w", err)
	}
	if encrypter != nil {
		scheduleJSON, err = encrypter.Encrypt(scheduleJSON)
		if err != nil {
			return runRow{}, fmt.Errorf("encrypt result schedule: %w", err)
		}
		row.resultScheduleEncrypted = true
	}
	row.resultSchedule = scheduleJSON

	statsJSON, err := json.Marshal(result.Statistics)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal result statistics: %w", err)
	}
	row.resultStatistics = statsJSON

	termsJSON, err := json.Marshal(result.PluginTerms)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal plugin terms: %w", err)
	}
	row.resultPluginTerms = termsJSON
	row.resultCancelled = result.Cancelled

	return row, nil
}

func fromRunRow(row runRow, encrypter crypto.Encrypter) (*domain.Run, error) {
	result, err := rowToResult(row, encrypter)
	if err != nil {
		return nil, err
	}

	var bundle *domain.InputBundle
	if len(row.bundle) > 0 {
		var req wire.SolveRequest
		if err := json.Unmarshal(row.bundle, &req); err != nil {
			return nil, fmt.Errorf("unmarshal run bundle: %w", err)
		}
		bundle, err = req.ToInputBundle()
		if err != nil {
			return nil, fmt.Errorf("rebuild run bundle: %w", err)
		}
	}

	return domain.RehydrateRun(
		row.id,
		domain.Mode(row.mode),
		row.year,
		time.Month(row.month),
		bundle,
		domain.RunStatus(row.status),
		result,
		row.failureReason,
		row.createdAt,
		row.updatedAt,
	), nil
}

func rowToResult(row runRow, encrypter crypto.Encrypter) (*domain.Result, error) {
	if len(row.resultStatistics) == 0 {
		return nil, nil
	}

	scheduleJSON := row.resultSchedule
	if row.resultScheduleEncrypted {
		if encrypter == nil {
			return nil, fmt.Errorf("run result is encrypted but no encrypter is configured")
		}
		var err error
		scheduleJSON, err = encrypter.Decrypt(scheduleJSON)
		if err != nil {
			return nil, fmt.Errorf("decrypt result schedule: %w", err)
		}
	}

	var result domain.Result
	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &result.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal result schedule: %w", err)
		}
	}
	if err := json.Unmarshal(row.resultStatistics, &result.Statistics); err != nil {
		return nil, fmt.Errorf("unmarshal result statistics: %w", err)
	}
	if len(row.resultPluginTerms) > 0 {
		if err := json.Unmarshal(row.resultPluginTerms, &result.PluginTerms); err != nil {
			return nil, fmt.Errorf("unmarshal plugin terms: %w", err)
		}
	}
	result.Cancelled = row.resultCancelled

	return &result, nil
}
