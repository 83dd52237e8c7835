// Package domain содержит основные типы данных flowgrid.
//
// Включает:
//   - job.go      — GridJob: единица работы в job grid
//   - status.go   — статусы и типы jobs
//   - affinity.go — scheduling hints и идентичность воркера
//   - schedule.go — периодические submissions
//
// Типы domain не содержат бизнес-логики выполнения — только данные
// и простые переходы состояний. Логика живёт в internal/grid и internal/engine.
package domain
