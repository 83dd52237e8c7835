package grid

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// MemoryStore — потокобезопасное in-memory хранилище jobs и schedules.
//
// Используется в тестах и в локальном режиме без PostgreSQL. Семантика
// идентична repo-хранилищу: атомарный claim, монотонные статусы,
// порядок ListPending по времени создания.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*domain.GridJob
	order     []uuid.UUID
	schedules map[uuid.UUID]*domain.Schedule
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[uuid.UUID]*domain.GridJob),
		schedules: make(map[uuid.UUID]*domain.Schedule),
	}
}

// CreateJob сохраняет новый job.
func (s *MemoryStore) CreateJob(_ context.Context, job *domain.GridJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneJob(job)
	s.jobs[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return nil
}

// GetJob возвращает копию job по ID.
func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*domain.GridJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

// ListPending возвращает PENDING jobs в порядке создания.
func (s *MemoryStore) ListPending(_ context.Context, limit int) ([]domain.GridJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.GridJob
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		job := s.jobs[id]
		if job.Status == domain.JobStatusPending {
			out = append(out, *cloneJob(job))
		}
	}
	return out, nil
}

// ClaimJob атомарно переводит job из PENDING в RUNNING.
func (s *MemoryStore) ClaimJob(_ context.Context, id uuid.UUID, workerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status != domain.JobStatusPending {
		return false, nil
	}
	job.MarkRunning(workerID)
	return true, nil
}

// FinishJob записывает терминальный статус job.
func (s *MemoryStore) FinishJob(_ context.Context, job *domain.GridJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if !stored.Status.CanTransitionTo(job.Status) {
		return ErrInvalidTransition
	}
	stored.Status = job.Status
	stored.Result = job.Result
	stored.Error = job.Error
	stored.UpdatedAt = job.UpdatedAt
	return nil
}

// CreateSchedule сохраняет новое расписание.
func (s *MemoryStore) CreateSchedule(_ context.Context, sched *domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sched
	s.schedules[copied.ID] = &copied
	return nil
}

// GetSchedule возвращает расписание по ID.
func (s *MemoryStore) GetSchedule(_ context.Context, id uuid.UUID) (*domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sched
	return &copied, nil
}

// ListDue возвращает активные расписания, чей срок подошёл.
func (s *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Schedule
	for _, sched := range s.schedules {
		if limit > 0 && len(out) >= limit {
			break
		}
		if sched.IsDue(now) {
			out = append(out, *sched)
		}
	}
	return out, nil
}

// ListSchedules возвращает все расписания в порядке создания.
func (s *MemoryStore) ListSchedules(_ context.Context, limit int) ([]domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, *sched)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateSchedule обновляет расписание.
func (s *MemoryStore) UpdateSchedule(_ context.Context, sched *domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[sched.ID]; !ok {
		return ErrNotFound
	}
	copied := *sched
	s.schedules[copied.ID] = &copied
	return nil
}

// cloneJob делает копию job с независимыми params/result.
func cloneJob(job *domain.GridJob) *domain.GridJob {
	copied := *job
	if job.Params != nil {
		copied.Params = make(map[string]any, len(job.Params))
		for k, v := range job.Params {
			copied.Params[k] = v
		}
	}
	if job.Result != nil {
		copied.Result = make(map[string]any, len(job.Result))
		for k, v := range job.Result {
			copied.Result[k] = v
		}
	}
	if job.InputRefs != nil {
		copied.InputRefs = append([]string(nil), job.InputRefs...)
	}
	return &copied
}
