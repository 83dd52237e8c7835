package grid

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// Ошибки grid.
var (
	// ErrNotFound — job или schedule не найдены в хранилище.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition — попытка перевести job из терминального
	// статуса или мимо RUNNING.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownJobType — тип job вне закрытого множества.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrUnknownTask — нет handler'а для params["task"] custom job.
	ErrUnknownTask = errors.New("unknown custom task")

	// ErrAwaitTimeout — ожидание терминального статуса истекло.
	// Отличается от ошибки самого job: job продолжает выполняться,
	// его состояние не мутируется.
	ErrAwaitTimeout = errors.New("await timed out")

	// ErrChildJobFailed — декомпозиция прервана из-за невалидного
	// дочернего job.
	ErrChildJobFailed = errors.New("child job failed")
)

// AwaitTimeoutError — таймаут ожидания с контекстом.
type AwaitTimeoutError struct {
	JobID uuid.UUID
}

// Error реализует интерфейс error.
func (e *AwaitTimeoutError) Error() string {
	return fmt.Sprintf("await timed out for job %s", e.JobID)
}

// Unwrap возвращает базовую ошибку.
func (e *AwaitTimeoutError) Unwrap() error {
	return ErrAwaitTimeout
}

// ChildJobError — дочерний job декомпозиции невалиден.
//
// Первое же нарушение прерывает всю декомпозицию; частичный результат
// не возвращается никогда. Ошибка именует конкретного ребёнка и его
// фактический статус.
type ChildJobError struct {
	ChildID uuid.UUID
	Status  domain.JobStatus
	Reason  string // "failed", "wrong project scope", ...
}

// Error реализует интерфейс error.
func (e *ChildJobError) Error() string {
	return fmt.Sprintf("child job %s %s (status %s)", e.ChildID, e.Reason, e.Status)
}

// Unwrap возвращает базовую ошибку.
func (e *ChildJobError) Unwrap() error {
	return ErrChildJobFailed
}
