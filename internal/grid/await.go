package grid

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// Параметры ожидания по умолчанию.
const (
	DefaultAwaitInterval = 100 * time.Millisecond
	DefaultAwaitTimeout  = 5 * time.Minute
)

// Await блокирует до перехода job в терминальный статус.
//
// Poll с интервалом interval, не дольше timeout. По истечении timeout
// возвращается AwaitTimeoutError — это ошибка ожидания, не job'а:
// сам job продолжает выполняться и не мутируется.
//
// FAILED job ошибкой Await не считается: возвращается job с заполненным
// полем Error, решение — за вызывающим.
func (g *Grid) Await(ctx context.Context, id uuid.UUID, interval, timeout time.Duration) (*domain.GridJob, error) {
	if interval <= 0 {
		interval = DefaultAwaitInterval
	}
	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := g.store.GetJob(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("poll job %s: %w", id, err)
		}
		if job.IsFinished() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, &AwaitTimeoutError{JobID: id}
		case <-ticker.C:
		}
	}
}
