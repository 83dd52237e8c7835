package grid

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// JobStore — хранилище jobs.
//
// Контракт claim: ClaimJob обязан быть атомарным compare-and-set
// PENDING → RUNNING. При конкурентных claim одного job ровно один
// вызов возвращает true; остальные — false без ошибки.
type JobStore interface {
	// CreateJob сохраняет новый job.
	CreateJob(ctx context.Context, job *domain.GridJob) error

	// GetJob возвращает job по ID или ErrNotFound.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.GridJob, error)

	// ListPending возвращает PENDING jobs в порядке создания.
	ListPending(ctx context.Context, limit int) ([]domain.GridJob, error)

	// ClaimJob атомарно переводит job из PENDING в RUNNING и
	// закрепляет за воркером. Возвращает false, если job уже не PENDING.
	ClaimJob(ctx context.Context, id uuid.UUID, workerID string) (bool, error)

	// FinishJob записывает терминальный статус, result и error.
	// Переход допустим только из RUNNING, иначе ErrInvalidTransition.
	FinishJob(ctx context.Context, job *domain.GridJob) error
}

// ScheduleStore — хранилище периодических расписаний.
type ScheduleStore interface {
	// CreateSchedule сохраняет новое расписание.
	CreateSchedule(ctx context.Context, sched *domain.Schedule) error

	// GetSchedule возвращает расписание по ID или ErrNotFound.
	GetSchedule(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)

	// ListDue возвращает активные расписания с next_due_at <= now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)

	// ListSchedules возвращает все расписания в порядке создания.
	ListSchedules(ctx context.Context, limit int) ([]domain.Schedule, error)

	// UpdateSchedule обновляет расписание после отправки job.
	UpdateSchedule(ctx context.Context, sched *domain.Schedule) error
}
