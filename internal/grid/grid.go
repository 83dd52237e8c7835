package grid

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/mq"
	"github.com/flowgrid/flowgrid/internal/telemetry"
)

// Grid — submission boundary job grid.
//
// Единственный способ попасть в grid — Submit: и execution engine,
// и CLI, и родительские jobs декомпозиции проходят через него.
// Publisher опционален: без MQ grid полностью работоспособен,
// события лишь ускоряют реакцию scheduler'ов.
type Grid struct {
	store     JobStore
	schedules ScheduleStore
	publisher *mq.Publisher
}

// Config — конфигурация Grid.
type Config struct {
	// Store — хранилище jobs (обязательно).
	Store JobStore

	// Schedules — хранилище расписаний (опционально).
	Schedules ScheduleStore

	// Publisher — издатель событий MQ (опционально).
	Publisher *mq.Publisher
}

// New создаёт Grid.
func New(cfg Config) *Grid {
	return &Grid{
		store:     cfg.Store,
		schedules: cfg.Schedules,
		publisher: cfg.Publisher,
	}
}

// Store возвращает хранилище jobs.
func (g *Grid) Store() JobStore {
	return g.store
}

// Submit валидирует и сохраняет новый job в статусе PENDING.
//
// Возвращает ID созданного job. Тип проверяется по закрытому набору;
// неизвестный тип отклоняется до записи в хранилище.
func (g *Grid) Submit(ctx context.Context, projectScope string, typ domain.JobType, params map[string]any, inputRefs []string) (uuid.UUID, error) {
	if !domain.ValidJobTypes[typ] {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownJobType, typ)
	}

	job := domain.NewGridJob(projectScope, typ, params, inputRefs)
	if err := g.store.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}

	telemetry.JobsSubmitted.WithLabelValues(string(typ)).Inc()
	telemetry.FromContext(ctx).Debug("job submitted",
		"job_id", job.ID.String(),
		"type", string(typ),
		"project_scope", projectScope,
	)

	if g.publisher != nil {
		payload := mq.JobSubmittedPayload{
			JobID:        job.ID,
			ProjectScope: projectScope,
			Type:         string(typ),
		}
		if err := g.publisher.PublishJobSubmitted(ctx, payload); err != nil {
			// MQ — ускоритель, не источник истины: job уже durable в store.
			telemetry.FromContext(ctx).Warn("publish job.submitted failed", "error", err)
		}
	}

	return job.ID, nil
}

// Job возвращает текущее состояние job по ID.
func (g *Grid) Job(ctx context.Context, id uuid.UUID) (*domain.GridJob, error) {
	return g.store.GetJob(ctx, id)
}

// CreateSchedule регистрирует периодическое расписание.
func (g *Grid) CreateSchedule(ctx context.Context, sched *domain.Schedule) error {
	if g.schedules == nil {
		return fmt.Errorf("schedule store is not configured")
	}
	if !domain.ValidJobTypes[sched.JobType] {
		return fmt.Errorf("%w: %q", ErrUnknownJobType, sched.JobType)
	}
	return g.schedules.CreateSchedule(ctx, sched)
}

// Schedule возвращает расписание по ID.
func (g *Grid) Schedule(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	if g.schedules == nil {
		return nil, fmt.Errorf("schedule store is not configured")
	}
	return g.schedules.GetSchedule(ctx, id)
}

// Schedules возвращает все зарегистрированные расписания.
func (g *Grid) Schedules(ctx context.Context, limit int) ([]domain.Schedule, error) {
	if g.schedules == nil {
		return nil, fmt.Errorf("schedule store is not configured")
	}
	return g.schedules.ListSchedules(ctx, limit)
}

// SetScheduleEnabled переключает активность расписания.
func (g *Grid) SetScheduleEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*domain.Schedule, error) {
	sched, err := g.Schedule(ctx, id)
	if err != nil {
		return nil, err
	}

	sched.Enabled = enabled
	sched.UpdatedAt = time.Now().UTC()
	if err := g.schedules.UpdateSchedule(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}
