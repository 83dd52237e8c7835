// Package flow компилирует текстовый FLOW-источник в AST.
//
// Включает:
//   - literal.go  — recursive-descent парсер структурных литералов в WITH-блоках
//   - parser.go   — разбор источника на header, input-блок и шаги
//   - analyzer.go — разбор тела шага в типизированный дескриптор операции
//   - ops.go      — закрытое множество операций (tagged union)
//   - compile.go  — compile boundary: (ok, ast, warnings, errors)
//
// Компиляция детерминирована: один и тот же источник всегда даёт
// идентичный AST и идентичный список warnings.
package flow
