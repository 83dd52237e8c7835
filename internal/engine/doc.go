// Package engine — выполнение plan graph.
//
// Engine обходит DAG в порядке зависимостей: узел стартует, как только
// завершились все его входы; независимые узлы выполняются конкурентно
// ограниченным пулом. Data-операции вычисляются in-process над строками
// таблиц; Bytecode- и Job-узлы отправляются в grid и блокируются до
// терминального статуса job.
//
// Ошибка узла — fail-fast: первая ошибка (с именем узла) становится
// результатом выполнения, зависимые от упавшего узла не стартуют,
// уже запущенные независимые узлы дорабатывают.
package engine
