package domain

import (
	"time"

	"github.com/google/uuid"
)

// GridJob — единица работы в job grid.
//
// Job создаётся submitter'ом (execution engine, CLI или родительским job'ом
// при рекурсивной декомпозиции) и мутируется только scheduler-циклом,
// который его захватил. Записи jobs никогда не удаляются — только
// переводятся в терминальный статус.
type GridJob struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"jobId"`

	// ProjectScope — проект, которому принадлежит job.
	// Дочерние jobs декомпозиции обязаны иметь тот же scope, что и родитель.
	ProjectScope string `json:"projectScope"`

	// Type — тип job, определяет handler на воркере.
	Type JobType `json:"type"`

	// Params — структурированные параметры job.
	// Может содержать scheduling hints (см. HintsFromParams).
	Params map[string]any `json:"params,omitempty"`

	// InputRefs — ссылки на входные данные (opaque для grid).
	InputRefs []string `json:"inputRefs,omitempty"`

	// Status — текущий статус. Двигается строго вперёд.
	Status JobStatus `json:"status"`

	// AssignedWorkerID — идентификатор воркера, захватившего job.
	AssignedWorkerID string `json:"assignedWorkerId,omitempty"`

	// Result — результат выполнения (заполняется при SUCCEEDED).
	Result map[string]any `json:"result,omitempty"`

	// Error — текст ошибки (заполняется при FAILED).
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания job.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt — время последнего изменения статуса.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewGridJob создаёт новый job в статусе PENDING.
func NewGridJob(projectScope string, typ JobType, params map[string]any, inputRefs []string) *GridJob {
	now := time.Now().UTC()
	return &GridJob{
		ID:           uuid.New(),
		ProjectScope: projectScope,
		Type:         typ,
		Params:       params,
		InputRefs:    inputRefs,
		Status:       JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsFinished возвращает true, если job в терминальном статусе.
func (j *GridJob) IsFinished() bool {
	return j.Status.IsTerminal()
}

// MarkRunning переводит job в RUNNING и закрепляет за воркером.
func (j *GridJob) MarkRunning(workerID string) {
	j.Status = JobStatusRunning
	j.AssignedWorkerID = workerID
	j.UpdatedAt = time.Now().UTC()
}

// MarkSucceeded переводит job в SUCCEEDED с результатом.
func (j *GridJob) MarkSucceeded(result map[string]any) {
	j.Status = JobStatusSucceeded
	j.Result = result
	j.UpdatedAt = time.Now().UTC()
}

// MarkFailed переводит job в FAILED с текстом ошибки.
func (j *GridJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.Error = errMsg
	j.UpdatedAt = time.Now().UTC()
}

// Task возвращает params["task"] для jobs типа custom.
func (j *GridJob) Task() string {
	if j.Params == nil {
		return ""
	}
	task, _ := j.Params["task"].(string)
	return task
}
