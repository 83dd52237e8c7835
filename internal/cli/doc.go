// Package cli реализует инструмент командной строки flowgrid.
//
// # Обзор
//
// CLI работает напрямую с библиотекой: компилятор и plan builder
// вызываются in-process, job grid подключается либо к PostgreSQL
// (DB_URL), либо к in-memory хранилищу для локальных запусков.
//
// # Ключевые компоненты
//
// ## Services
//
// Фабрика зависимостей команды: хранилище jobs, grid, engine и
// встроенный scheduler для локального выполнения. Выбор хранилища —
// по наличию DB_URL.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: flowgrid job show ID --json | jq .
//
// ## Commands
//
// Cobra-команды:
//   - compile: разбор и анализ FLOW-файла
//   - plan: построение plan graph
//   - run: выполнение workflow (sync или --async)
//   - job: submit, show, await
//   - schedule: create, show, enable, disable
package cli
