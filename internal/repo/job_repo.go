package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// JobRepo — репозиторий для работы с jobs grid.
//
// Реализует grid.JobStore поверх таблицы grid_jobs. Атомарность claim
// обеспечивается условным UPDATE: переход PENDING → RUNNING выполняется
// одним statement, и при конкурентных claim ровно один воркер получает
// rows_affected = 1.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// CreateJob создаёт новый job.
func (r *JobRepo) CreateJob(ctx context.Context, job *domain.GridJob) error {
	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	query := `
		INSERT INTO grid_jobs (id, project_scope, type, params, input_refs, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.ProjectScope,
		job.Type,
		paramsJSON,
		job.InputRefs,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob возвращает job по ID.
func (r *JobRepo) GetJob(ctx context.Context, id uuid.UUID) (*domain.GridJob, error) {
	query := `
		SELECT id, project_scope, type, params, input_refs, status,
		       assigned_worker_id, result, error, created_at, updated_at
		FROM grid_jobs
		WHERE id = $1
	`
	return r.scanJob(r.pool.QueryRow(ctx, query, id))
}

// ListPending возвращает PENDING jobs в порядке создания.
func (r *JobRepo) ListPending(ctx context.Context, limit int) ([]domain.GridJob, error) {
	query := `
		SELECT id, project_scope, type, params, input_refs, status,
		       assigned_worker_id, result, error, created_at, updated_at
		FROM grid_jobs
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.GridJob
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ClaimJob атомарно переводит job из PENDING в RUNNING.
//
// Условие status = 'PENDING' в WHERE делает claim compare-and-set:
// проигравший конкурент получает rows_affected = 0 и false без ошибки.
func (r *JobRepo) ClaimJob(ctx context.Context, id uuid.UUID, workerID string) (bool, error) {
	query := `
		UPDATE grid_jobs
		SET status = 'RUNNING', assigned_worker_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, id, workerID)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// FinishJob записывает терминальный статус job.
//
// Переход допустим только из RUNNING; любое другое исходное состояние
// означает гонку или нарушение жизненного цикла — ErrInvalidTransition.
func (r *JobRepo) FinishJob(ctx context.Context, job *domain.GridJob) error {
	if !domain.JobStatusRunning.CanTransitionTo(job.Status) {
		return ErrInvalidTransition
	}

	resultJSON, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		UPDATE grid_jobs
		SET status = $2, result = $3, error = $4, updated_at = $5
		WHERE id = $1 AND status = 'RUNNING'
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		resultJSON,
		nullString(job.Error),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Либо job не существует, либо он не в RUNNING.
		if _, err := r.GetJob(ctx, job.ID); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// CountByStatus возвращает количество jobs по статусу.
func (r *JobRepo) CountByStatus(ctx context.Context, status domain.JobStatus) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM grid_jobs WHERE status = $1
	`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// --- Helpers ---

func (r *JobRepo) scanJob(row pgx.Row) (*domain.GridJob, error) {
	var job domain.GridJob
	var paramsJSON, resultJSON []byte
	var assignedWorkerID, jobError *string

	err := row.Scan(
		&job.ID,
		&job.ProjectScope,
		&job.Type,
		&paramsJSON,
		&job.InputRefs,
		&job.Status,
		&assignedWorkerID,
		&resultJSON,
		&jobError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &job.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if assignedWorkerID != nil {
		job.AssignedWorkerID = *assignedWorkerID
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}

func (r *JobRepo) scanJobFromRows(rows pgx.Rows) (*domain.GridJob, error) {
	var job domain.GridJob
	var paramsJSON, resultJSON []byte
	var assignedWorkerID, jobError *string

	err := rows.Scan(
		&job.ID,
		&job.ProjectScope,
		&job.Type,
		&paramsJSON,
		&job.InputRefs,
		&job.Status,
		&assignedWorkerID,
		&resultJSON,
		&jobError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &job.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if assignedWorkerID != nil {
		job.AssignedWorkerID = *assignedWorkerID
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
