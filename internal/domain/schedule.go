package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — периодическая отправка job в grid.
//
// Schedule позволяет отправлять job:
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет next_due_at на каждом тике и отправляет job,
// когда время подошло.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// Name — имя расписания для удобства.
	Name string `json:"name,omitempty"`

	// ProjectScope — проект, от имени которого отправляется job.
	ProjectScope string `json:"project_scope"`

	// JobType — тип отправляемого job.
	JobType JobType `json:"job_type"`

	// Params — параметры отправляемого job.
	Params map[string]any `json:"params,omitempty"`

	// CronExpr — cron-выражение ("минуты часы дни месяцы дни_недели").
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между отправками.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени (default: "UTC").
	Timezone string `json:"timezone"`

	// Enabled — флаг активности. Выключенные schedules игнорируются.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующей отправки.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastJobID — ID последнего отправленного job.
	LastJobID *uuid.UUID `json:"last_job_id,omitempty"`

	// LastSubmitAt — время последней отправки.
	LastSubmitAt *time.Time `json:"last_submit_at,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue проверяет, пора ли отправлять.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled || s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// RecordSubmit записывает информацию об отправке и следующий срок.
func (s *Schedule) RecordSubmit(jobID uuid.UUID, nextDue time.Time) {
	now := time.Now().UTC()
	s.LastJobID = &jobID
	s.LastSubmitAt = &now
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
