package plan

import (
	"errors"
	"strings"
)

// Ошибки построения графа.
var (
	// ErrUnresolvedDependency — зависимость не разрешилась в шаг.
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrCyclicDependency — в графе обнаружен цикл.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// UnresolvedError — зависимость именует несуществующий шаг.
// Несёт и зависимый узел, и отсутствующее имя.
type UnresolvedError struct {
	Node    string // имя зависимого шага
	Missing string // отсутствующее имя
}

// Error реализует интерфейс error.
func (e *UnresolvedError) Error() string {
	return "step " + e.Node + " depends on unknown step " + e.Missing
}

// Unwrap возвращает базовую ошибку.
func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolvedDependency
}

// CycleError — цикл в графе с перечислением его узлов.
type CycleError struct {
	Nodes []string // имена шагов цикла в порядке обхода
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Nodes, " -> ")
}

// Unwrap возвращает базовую ошибку.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}
