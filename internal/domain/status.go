package domain

// JobStatus — статус выполнения job.
//
// Жизненный цикл (строго вперёд, без возвратов):
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// Из терминального статуса переходов нет. Job никогда не удаляется —
// таблица jobs служит audit trail.
type JobStatus string

const (
	// JobStatusPending — job создан, ожидает claim воркером.
	JobStatusPending JobStatus = "PENDING"

	// JobStatusRunning — job захвачен воркером и выполняется.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — job успешно завершён, result заполнен.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — job завершился с ошибкой, error заполнен.
	JobStatusFailed JobStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода в статус next.
// Статусы двигаются только вперёд: PENDING → RUNNING → терминальный.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusSucceeded || next == JobStatusFailed
	default:
		return false
	}
}

// JobType — тип job, определяет handler на воркере.
type JobType string

const (
	// JobTypeInference — вызов агента/модели (RUN AGENT).
	JobTypeInference JobType = "inference"

	// JobTypeTranscode — перекодирование данных.
	JobTypeTranscode JobType = "transcode"

	// JobTypeAnalytics — аналитическая выборка.
	JobTypeAnalytics JobType = "analytics"

	// JobTypeCustom — задача общего вида; конкретная задача указывается
	// в params["task"] (fib, fib_matrix, fib_split, flow, apx_exec, deploy).
	JobTypeCustom JobType = "custom"

	// JobTypeBuildArtifact — сборка пакета (BUILD_VPKG).
	JobTypeBuildArtifact JobType = "buildArtifact"

	// JobTypeExecArtifact — выполнение bytecode-программы (RUN VASM).
	JobTypeExecArtifact JobType = "execArtifact"
)

// ValidJobTypes — закрытый набор типов jobs.
var ValidJobTypes = map[JobType]bool{
	JobTypeInference:     true,
	JobTypeTranscode:     true,
	JobTypeAnalytics:     true,
	JobTypeCustom:        true,
	JobTypeBuildArtifact: true,
	JobTypeExecArtifact:  true,
}
