package schedule

import (
	"testing"
	"time"

	"github.com/flowgrid/flowgrid/internal/domain"
)

func TestCalculateNextDueInterval(t *testing.T) {
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := &domain.Schedule{IntervalSec: 300, Timezone: "UTC"}

	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue error: %v", err)
	}
	want := from.Add(5 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCalculateNextDueCron(t *testing.T) {
	// Каждый день в 9:00; from — 10:30, следующий срок — завтра 9:00
	from := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	sched := &domain.Schedule{CronExpr: "0 9 * * *", Timezone: "UTC"}

	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue error: %v", err)
	}
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCalculateNextDueCronTimezone(t *testing.T) {
	// 9:00 в Москве — 6:00 UTC
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sched := &domain.Schedule{CronExpr: "0 9 * * *", Timezone: "Europe/Moscow"}

	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue error: %v", err)
	}
	want := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCalculateNextDueCronTakesPrecedence(t *testing.T) {
	// При обоих полях cron выигрывает
	from := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	sched := &domain.Schedule{CronExpr: "0 9 * * *", IntervalSec: 60, Timezone: "UTC"}

	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue error: %v", err)
	}
	if got.Equal(from.Add(time.Minute)) {
		t.Errorf("interval was used despite cron_expr")
	}
}

func TestCalculateNextDueInvalidTimezone(t *testing.T) {
	// Невалидный timezone — fallback на UTC, не ошибка
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := &domain.Schedule{IntervalSec: 60, Timezone: "Mars/Olympus"}

	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue error: %v", err)
	}
	if !got.Equal(from.Add(time.Minute)) {
		t.Errorf("got %v, want %v", got, from.Add(time.Minute))
	}
}

func TestCalculateNextDueNeitherTrigger(t *testing.T) {
	sched := &domain.Schedule{Timezone: "UTC"}
	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Errorf("want error for schedule without cron_expr and interval_sec")
	}
}

func TestCalculateNextDueInvalidCron(t *testing.T) {
	sched := &domain.Schedule{CronExpr: "not a cron", Timezone: "UTC"}
	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Errorf("want error for invalid cron expression")
	}
}

func TestValidateCronExpr(t *testing.T) {
	valid := []string{"0 9 * * *", "*/5 * * * *", "15 3 1 * *"}
	for _, expr := range valid {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("ValidateCronExpr(%q) = %v, want nil", expr, err)
		}
	}

	invalid := []string{"", "garbage", "61 * * * *", "* * * *"}
	for _, expr := range invalid {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("ValidateCronExpr(%q) = nil, want error", expr)
		}
	}
}

func TestCalculateInitialNextDue(t *testing.T) {
	sched := &domain.Schedule{IntervalSec: 3600, Timezone: "UTC"}
	got, err := CalculateInitialNextDue(sched)
	if err != nil {
		t.Fatalf("CalculateInitialNextDue error: %v", err)
	}
	if !got.After(time.Now().UTC().Add(59 * time.Minute)) {
		t.Errorf("got %v, want about an hour from now", got)
	}
}
