package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgrid/flowgrid/internal/engine"
	"github.com/flowgrid/flowgrid/internal/grid"
	"github.com/flowgrid/flowgrid/internal/repo"
)

// Services — зависимости команд CLI.
//
// Хранилище выбирается по окружению: с DB_URL команды работают с общим
// grid в PostgreSQL, без него — с локальным in-memory grid (тогда
// выполнение возможно только внутри процесса CLI).
type Services struct {
	Grid   *grid.Grid
	Engine *engine.Engine

	scheduler *grid.Scheduler
	pool      *pgxpool.Pool
	logger    *slog.Logger
}

// NewServices собирает зависимости команды.
func NewServices(ctx context.Context, workflowDir string) (*Services, error) {
	// CLI шумит только о проблемах; данные идут через Output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	var store grid.JobStore
	var schedules grid.ScheduleStore
	var pool *pgxpool.Pool

	if os.Getenv("DB_URL") != "" {
		p, err := repo.NewPool(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		pool = p
		store = repo.NewJobRepo(p)
		schedules = repo.NewScheduleRepo(p)
	} else {
		mem := grid.NewMemoryStore()
		store = mem
		schedules = mem
	}

	g := grid.New(grid.Config{Store: store, Schedules: schedules})

	eng := engine.New(engine.Config{
		Grid:     g,
		Subflows: engine.DirLoader{Root: workflowDir},
		Logger:   logger,
	})

	registry := grid.NewRegistry(g)
	registry.RegisterTask("flow", engine.NewFlowJobHandler(eng))

	scheduler := grid.NewScheduler(grid.SchedulerConfig{
		Grid:         g,
		Schedules:    schedules,
		Registry:     registry,
		Identity:     grid.IdentityFromEnv(),
		PollInterval: 100 * time.Millisecond,
		Logger:       logger,
	})

	return &Services{
		Grid:      g,
		Engine:    eng,
		scheduler: scheduler,
		pool:      pool,
		logger:    logger,
	}, nil
}

// StartWorker запускает встроенный scheduler: команды, выполняющие
// workflow локально, сами разбирают созданные ими jobs.
func (s *Services) StartWorker(ctx context.Context) error {
	return s.scheduler.Start(ctx)
}

// Close освобождает ресурсы.
func (s *Services) Close() {
	if !s.scheduler.IsStopped() {
		s.scheduler.Stop()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
