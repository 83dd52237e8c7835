package grid

import (
	"os"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// IdentityFromEnv собирает идентичность воркера из окружения.
//
// Переменные:
//   - WORKER_ID — идентификатор воркера (default: "worker-<uuid>")
//   - WORKER_VILLAGE — логическая группа воркеров
//   - WORKER_LOCAL_EDGE — "true", если воркер является edge-узлом
func IdentityFromEnv() domain.WorkerIdentity {
	id := os.Getenv("WORKER_ID")
	if id == "" {
		id = "worker-" + uuid.NewString()[:8]
	}

	return domain.WorkerIdentity{
		ID:        id,
		Village:   os.Getenv("WORKER_VILLAGE"),
		LocalEdge: os.Getenv("WORKER_LOCAL_EDGE") == "true",
	}
}
