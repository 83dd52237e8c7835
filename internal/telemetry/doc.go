// Package telemetry — structured logging и метрики flowgrid.
//
// Логирование построено на log/slog: JSON для production, text для
// разработки (LOG_FORMAT), уровень из LOG_LEVEL. Метрики — prometheus
// counters/histograms, отдаются воркером на /metrics.
package telemetry
