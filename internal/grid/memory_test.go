package grid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := domain.NewGridJob("proj", domain.JobTypeCustom, map[string]any{"task": "fib"}, nil)
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if got.ID != job.ID || got.ProjectScope != "proj" || got.Status != domain.JobStatusPending {
		t.Errorf("GetJob = %+v", got)
	}

	// Возвращается копия: мутация не видна хранилищу
	got.Params["task"] = "mutated"
	again, _ := store.GetJob(ctx, job.ID)
	if again.Params["task"] != "fib" {
		t.Errorf("store exposed internal state: %v", again.Params)
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetJob(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListPendingOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		job := domain.NewGridJob("proj", domain.JobTypeAnalytics, nil, nil)
		if err := store.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob error: %v", err)
		}
		ids = append(ids, job.ID)
	}

	// Захваченный job выпадает из ListPending
	if _, err := store.ClaimJob(ctx, ids[1], "w1"); err != nil {
		t.Fatalf("ClaimJob error: %v", err)
	}

	pending, err := store.ListPending(ctx, 0)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("len(pending) = %d, want 4", len(pending))
	}
	// Порядок создания сохраняется
	want := []uuid.UUID{ids[0], ids[2], ids[3], ids[4]}
	for i, job := range pending {
		if job.ID != want[i] {
			t.Errorf("pending[%d].ID = %s, want %s", i, job.ID, want[i])
		}
	}

	limited, _ := store.ListPending(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("ListPending(2): len = %d, want 2", len(limited))
	}
}

func TestMemoryStoreClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := domain.NewGridJob("proj", domain.JobTypeCustom, map[string]any{"task": "fib"}, nil)
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}

	// Конкурентный claim: ровно один воркер выигрывает
	const workers = 16
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimed, err := store.ClaimJob(ctx, job.ID, "worker")
			if err != nil {
				t.Errorf("ClaimJob error: %v", err)
				return
			}
			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}

	got, _ := store.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusRunning {
		t.Errorf("Status = %s, want RUNNING", got.Status)
	}
	if got.AssignedWorkerID == "" {
		t.Errorf("AssignedWorkerID is empty")
	}
}

func TestMemoryStoreFinishJob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := domain.NewGridJob("proj", domain.JobTypeCustom, map[string]any{"task": "fib"}, nil)
	store.CreateJob(ctx, job)

	// FinishJob из PENDING запрещён: статусы двигаются только вперёд
	job.Status = domain.JobStatusSucceeded
	job.UpdatedAt = time.Now().UTC()
	if err := store.FinishJob(ctx, job); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("FinishJob from PENDING: error = %v, want ErrInvalidTransition", err)
	}

	// RUNNING -> SUCCEEDED допустим
	job.Status = domain.JobStatusPending
	if _, err := store.ClaimJob(ctx, job.ID, "w1"); err != nil {
		t.Fatalf("ClaimJob error: %v", err)
	}
	job.MarkSucceeded(map[string]any{"ok": true})
	if err := store.FinishJob(ctx, job); err != nil {
		t.Fatalf("FinishJob error: %v", err)
	}

	got, _ := store.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusSucceeded || got.Result["ok"] != true {
		t.Errorf("job after finish = %+v", got)
	}

	// Терминальный статус окончателен
	job.MarkFailed("late failure")
	if err := store.FinishJob(ctx, job); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("FinishJob after terminal: error = %v, want ErrInvalidTransition", err)
	}
}

func TestMemoryStoreSchedules(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	sched := &domain.Schedule{
		ID:           uuid.New(),
		Name:         "nightly",
		ProjectScope: "proj",
		JobType:      domain.JobTypeAnalytics,
		IntervalSec:  60,
		Enabled:      true,
		NextDueAt:    &due,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule error: %v", err)
	}

	list, err := store.ListDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListDue error: %v", err)
	}
	if len(list) != 1 || list[0].ID != sched.ID {
		t.Errorf("ListDue = %+v, want the due schedule", list)
	}

	// Выключенное расписание из выборки выпадает
	sched.Enabled = false
	if err := store.UpdateSchedule(ctx, sched); err != nil {
		t.Fatalf("UpdateSchedule error: %v", err)
	}
	list, _ = store.ListDue(ctx, now, 10)
	if len(list) != 0 {
		t.Errorf("ListDue after disable = %+v, want empty", list)
	}

	got, err := store.GetSchedule(ctx, sched.ID)
	if err != nil {
		t.Fatalf("GetSchedule error: %v", err)
	}
	if got.Enabled {
		t.Errorf("Enabled = true, want false")
	}
}

func TestMemoryStoreListSchedulesOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Now().UTC()
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		sched := &domain.Schedule{
			ID:        ids[i],
			JobType:   domain.JobTypeCustom,
			Enabled:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base,
		}
		if err := store.CreateSchedule(ctx, sched); err != nil {
			t.Fatalf("CreateSchedule error: %v", err)
		}
	}

	list, err := store.ListSchedules(ctx, 0)
	if err != nil {
		t.Fatalf("ListSchedules error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i := range ids {
		if list[i].ID != ids[i] {
			t.Errorf("list[%d].ID = %s, want %s", i, list[i].ID, ids[i])
		}
	}

	limited, err := store.ListSchedules(ctx, 2)
	if err != nil {
		t.Fatalf("ListSchedules(limit) error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len with limit = %d, want 2", len(limited))
	}
}
