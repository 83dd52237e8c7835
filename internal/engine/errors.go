package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки engine.
var (
	// ErrMissingInput — workflow требует вход, который не передан.
	ErrMissingInput = errors.New("missing workflow input")

	// ErrBadInput — вход есть, но его форма не подходит операции.
	ErrBadInput = errors.New("bad workflow input")

	// ErrNodeFailed — выполнение узла плана завершилось ошибкой.
	ErrNodeFailed = errors.New("plan node failed")

	// ErrSubflowUnavailable — под-workflow не удалось загрузить.
	ErrSubflowUnavailable = errors.New("subflow unavailable")
)

// CompileError — источник не прошёл компиляцию.
type CompileError struct {
	Errors []string
}

// Error реализует интерфейс error.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile failed: %s", strings.Join(e.Errors, "; "))
}

// NodeError — ошибка выполнения узла плана.
//
// Именует узел и шаг, чтобы из цепочки ошибок было видно, где именно
// упало выполнение.
type NodeError struct {
	NodeID string
	Step   string
	Err    error
}

// Error реализует интерфейс error.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (step %q): %v", e.NodeID, e.Step, e.Err)
}

// Unwrap возвращает причину.
func (e *NodeError) Unwrap() error {
	return e.Err
}
