// Package grid — job grid: durable таблица jobs, polling scheduler
// и рекурсивная декомпозиция распределяемых вычислений.
//
// Включает:
//   - store.go     — абстракция хранилища с атомарным CAS-claim
//   - memory.go    — in-memory хранилище (тесты, локальный режим)
//   - postgres.go  — хранилище на PostgreSQL (pgx)
//   - grid.go      — submission boundary: submit + status + await
//   - scheduler.go — цикл claim/dispatch с affinity hints
//   - handlers.go  — реестр handlers по типу job
//   - fib.go       — split/await/combine на точной big-integer арифметике
//
// Таблица jobs — единственный shared mutable ресурс ядра. Любое число
// scheduler-экземпляров работает с одной таблицей; гонки за PENDING job
// разрешаются атомарным claim (compare-and-set статуса), поэтому job
// не может быть выполнен дважды.
package grid
