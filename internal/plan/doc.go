// Package plan строит plan graph из скомпилированного AST.
//
// Один узел на шаг, одно ребро на объявленную зависимость. Граф
// валидируется: каждое имя зависимости обязано разрешаться ровно
// в один шаг, циклы запрещены. Невалидный граф — ошибка построения,
// именующая виновные узлы.
package plan
