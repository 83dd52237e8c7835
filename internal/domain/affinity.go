package domain

// Имена scheduling hints в GridJob.Params.
const (
	// HintPreferWorkerID — job предпочитает конкретный воркер.
	HintPreferWorkerID = "preferWorkerId"

	// HintPreferLocalEdge — job предпочитает edge-воркеры.
	HintPreferLocalEdge = "preferLocalEdge"

	// HintPreferVillage — job предпочитает воркеры указанной village.
	HintPreferVillage = "preferVillage"
)

// SchedulingHints — мягкие ограничения размещения job.
//
// Hints проверяются воркером перед claim: job, чьи hints не совпадают
// с идентичностью воркера, пропускается в этом тике и остаётся PENDING
// для другого воркера или следующего тика. Это вся политика размещения —
// намеренно простая и eventually-consistent.
type SchedulingHints struct {
	// PreferWorkerID — предпочитаемый воркер (пусто = любой).
	PreferWorkerID string

	// PreferLocalEdge — требовать edge-воркер.
	PreferLocalEdge bool

	// PreferVillage — предпочитаемая village (пусто = любая).
	PreferVillage string
}

// HintsFromParams извлекает scheduling hints из params job.
func HintsFromParams(params map[string]any) SchedulingHints {
	var hints SchedulingHints
	if params == nil {
		return hints
	}
	if v, ok := params[HintPreferWorkerID].(string); ok {
		hints.PreferWorkerID = v
	}
	if v, ok := params[HintPreferLocalEdge].(bool); ok {
		hints.PreferLocalEdge = v
	}
	if v, ok := params[HintPreferVillage].(string); ok {
		hints.PreferVillage = v
	}
	return hints
}

// WorkerIdentity — идентичность и роль воркера.
//
// Заполняется из окружения при старте воркера (WORKER_ID, WORKER_VILLAGE,
// WORKER_LOCAL_EDGE) и сверяется со scheduling hints каждого PENDING job.
type WorkerIdentity struct {
	// ID — уникальный идентификатор воркера.
	ID string

	// Village — логическая группа воркеров (зона/кластер).
	Village string

	// LocalEdge — является ли воркер edge-узлом.
	LocalEdge bool
}

// Matches проверяет, может ли воркер претендовать на job с данными hints.
func (w WorkerIdentity) Matches(hints SchedulingHints) bool {
	if hints.PreferWorkerID != "" && hints.PreferWorkerID != w.ID {
		return false
	}
	if hints.PreferLocalEdge && !w.LocalEdge {
		return false
	}
	if hints.PreferVillage != "" && hints.PreferVillage != w.Village {
		return false
	}
	return true
}
