package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/mq"
	"github.com/flowgrid/flowgrid/internal/schedule"
	"github.com/flowgrid/flowgrid/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
)

// Scheduler — цикл claim/dispatch воркера.
//
// Scheduler — stateless компонент системы, который:
//   - Периодически опрашивает PENDING jobs в хранилище (polling)
//   - Получает события jobs.submitted из RabbitMQ (event-driven ускоритель)
//   - Сверяет scheduling hints job'а с идентичностью воркера
//   - Атомарно захватывает job (CAS PENDING → RUNNING) и диспатчит в handler
//   - Записывает терминальный статус и публикует jobs.completed
//   - Отправляет jobs по due расписаниям
//
// Scheduler'ы масштабируются горизонтально: несколько экземпляров
// работают с одной таблицей jobs, атомарный claim исключает двойное
// выполнение. Режим polling-only (без MQ) полностью работоспособен.
type Scheduler struct {
	grid      *Grid
	store     JobStore
	schedules ScheduleStore
	registry  *Registry
	identity  domain.WorkerIdentity

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection
	consumer  *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	execWg     sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// SchedulerConfig — конфигурация Scheduler.
type SchedulerConfig struct {
	// Grid — submission boundary (обязательно; нужен расписаниям
	// и декомпозициям, отправляющим дочерние jobs).
	Grid *Grid

	// Schedules — хранилище расписаний (опционально).
	Schedules ScheduleStore

	// Registry — реестр handlers (опционально; если nil — NewRegistry(Grid)).
	Registry *Registry

	// Identity — идентичность воркера для affinity hints.
	Identity domain.WorkerIdentity

	// MQ (опционально: без MQ работает polling-only режим)
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 2s)
	BatchSize    int           // количество jobs за один poll (default: 50)

	// Logger
	Logger *slog.Logger
}

// NewScheduler создаёт новый Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry(cfg.Grid)
	}

	return &Scheduler{
		grid:         cfg.Grid,
		store:        cfg.Grid.Store(),
		schedules:    cfg.Schedules,
		registry:     registry,
		identity:     cfg.Identity,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       telemetry.WithWorkerID(logger, cfg.Identity.ID),
	}
}

// Start запускает Scheduler.
//
// Запускает:
//   - Consumer для jobs.submitted (если настроен MQ)
//   - Polling горутину (единственный механизм в режиме без MQ)
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting grid scheduler",
		"poll_interval", s.pollInterval,
		"batch_size", s.batchSize,
		"village", s.identity.Village,
		"local_edge", s.identity.LocalEdge,
	)

	if s.conn != nil {
		s.consumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueJobsSubmitted),
			Handler:  s.handleJobSubmitted,
			Prefetch: defaultPrefetch,
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("job consumer error", "error", err)
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop(ctx)
	}()

	s.logger.Info("grid scheduler started")
	return nil
}

// Stop останавливает Scheduler и дожидается выполняющихся jobs.
func (s *Scheduler) Stop() {
	s.stoppedMu.Lock()
	s.stopped = true
	s.stoppedMu.Unlock()

	s.logger.Info("stopping grid scheduler...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	if s.consumer != nil {
		s.consumer.Stop()
	}

	s.wg.Wait()
	s.execWg.Wait()

	s.logger.Info("grid scheduler stopped")
}

// IsStopped проверяет, остановлен ли Scheduler.
func (s *Scheduler) IsStopped() bool {
	s.stoppedMu.RLock()
	defer s.stoppedMu.RUnlock()
	return s.stopped
}

// pollLoop — цикл polling.
func (s *Scheduler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем jobs, созданные пока были выключены)
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll выполняет один тик: due расписания, затем PENDING jobs.
func (s *Scheduler) poll(ctx context.Context) {
	if s.schedules != nil {
		s.processSchedules(ctx, time.Now().UTC())
	}

	jobs, err := s.store.ListPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list pending jobs", "error", err)
		return
	}

	if len(jobs) == 0 {
		return
	}

	s.logger.Debug("poll found pending jobs", "count", len(jobs))

	for i := range jobs {
		job := &jobs[i]

		// Affinity: несовпадающий job пропускается, остаётся PENDING
		// для другого воркера или следующего тика.
		hints := domain.HintsFromParams(job.Params)
		if !s.identity.Matches(hints) {
			telemetry.JobsSkippedAffinity.Inc()
			s.logger.Debug("job skipped by affinity hints",
				"job_id", job.ID,
				"prefer_worker_id", hints.PreferWorkerID,
				"prefer_village", hints.PreferVillage,
				"prefer_local_edge", hints.PreferLocalEdge,
			)
			continue
		}

		if err := s.tryClaim(ctx, job.ID); err != nil {
			s.logger.Error("failed to claim job from poll",
				"job_id", job.ID,
				"error", err,
			)
		}
	}
}

// handleJobSubmitted обрабатывает событие jobs.submitted из очереди.
func (s *Scheduler) handleJobSubmitted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobSubmittedPayload](&delivery.Message)
	if err != nil {
		s.logger.Error("failed to parse job.submitted payload", "error", err)
		return err
	}

	s.logger.Debug("received job.submitted event",
		"job_id", payload.JobID,
		"type", payload.Type,
	)

	job, err := s.store.GetJob(ctx, payload.JobID)
	if err != nil {
		// Job мог ещё не закоммититься или быть чужим store — polling подхватит (ack)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if job.Status != domain.JobStatusPending {
		return nil
	}
	if !s.identity.Matches(domain.HintsFromParams(job.Params)) {
		telemetry.JobsSkippedAffinity.Inc()
		return nil
	}

	return s.tryClaim(ctx, job.ID)
}

// tryClaim атомарно захватывает job и диспатчит его в отдельной горутине.
//
// Claim — синхронный, выполнение — нет: родительские jobs декомпозиции
// блокируются в ожидании детей, и выполнение в горутине позволяет тому же
// воркеру захватывать детей, пока родитель ждёт.
func (s *Scheduler) tryClaim(ctx context.Context, id uuid.UUID) error {
	claimed, err := s.store.ClaimJob(ctx, id, s.identity.ID)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		// Job захвачен другим воркером — не ошибка.
		return nil
	}

	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get claimed job: %w", err)
	}

	telemetry.JobsClaimed.WithLabelValues(string(job.Type)).Inc()
	s.logger.Info("job claimed",
		"job_id", job.ID,
		"type", job.Type,
		"project_scope", job.ProjectScope,
	)

	s.execWg.Add(1)
	go func() {
		defer s.execWg.Done()
		s.executeJob(ctx, job)
	}()
	return nil
}

// executeJob выполняет захваченный job и записывает терминальный статус.
//
// Ошибка или panic handler'а фейлит только этот job: статус FAILED,
// текст ошибки в job.Error, остальные jobs не затронуты.
func (s *Scheduler) executeJob(ctx context.Context, job *domain.GridJob) {
	logger := telemetry.WithJobID(s.logger, job.ID.String())
	ctx = telemetry.WithLogger(ctx, logger)
	started := time.Now()

	result, execErr := s.runHandler(ctx, job)

	telemetry.JobDuration.WithLabelValues(string(job.Type)).Observe(time.Since(started).Seconds())

	if execErr == nil {
		job.MarkSucceeded(result)
	} else {
		job.MarkFailed(execErr.Error())
	}

	if err := s.store.FinishJob(ctx, job); err != nil {
		logger.Error("failed to finish job", "status", job.Status, "error", err)
		return
	}

	telemetry.JobsCompleted.WithLabelValues(string(job.Type), string(job.Status)).Inc()
	if execErr == nil {
		logger.Info("job succeeded", "type", job.Type, "duration", time.Since(started))
	} else {
		logger.Warn("job failed", "type", job.Type, "error", execErr)
	}

	s.publishCompletion(ctx, job)
}

// runHandler диспатчит job в handler его типа, конвертируя panic в ошибку.
func (s *Scheduler) runHandler(ctx context.Context, job *domain.GridJob) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler, err := s.registry.Get(job.Type)
	if err != nil {
		return nil, err
	}
	return handler.Execute(ctx, job)
}

// publishCompletion публикует событие jobs.completed.
func (s *Scheduler) publishCompletion(ctx context.Context, job *domain.GridJob) {
	if s.publisher == nil {
		return
	}

	payload := mq.JobCompletedPayload{
		JobID:  job.ID,
		Status: string(job.Status),
		Error:  job.Error,
	}
	if err := s.publisher.PublishJobCompleted(ctx, payload); err != nil {
		// Не фатально: статус уже durable, ожидающие подхватят через polling.
		s.logger.Warn("failed to publish job.completed",
			"job_id", job.ID,
			"error", err,
		)
	}
}

// processSchedules отправляет jobs по due расписаниям.
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) processSchedules(ctx context.Context, now time.Time) {
	due, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list due schedules", "error", err)
		return
	}

	for i := range due {
		sched := &due[i]

		jobID, err := s.grid.Submit(ctx, sched.ProjectScope, sched.JobType, sched.Params, nil)
		if err != nil {
			s.logger.Error("failed to submit scheduled job",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		nextDue, err := schedule.CalculateNextDue(sched, now)
		if err != nil {
			// Schedule некорректный — next_due_at не трогаем.
			s.logger.Error("failed to calculate next due",
				"schedule_id", sched.ID,
				"error", err,
			)
			continue
		}

		sched.RecordSubmit(jobID, nextDue)
		if err := s.schedules.UpdateSchedule(ctx, sched); err != nil {
			s.logger.Error("failed to update schedule",
				"schedule_id", sched.ID,
				"error", err,
			)
			continue
		}

		s.logger.Info("submitted scheduled job",
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"job_id", jobID,
		)
	}
}
