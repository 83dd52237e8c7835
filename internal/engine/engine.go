package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/grid"
	"github.com/flowgrid/flowgrid/internal/plan"
	"github.com/flowgrid/flowgrid/internal/telemetry"
)

// Default configuration values.
const (
	defaultConcurrency   = 4
	defaultAwaitInterval = 100 * time.Millisecond
	defaultAwaitTimeout  = 10 * time.Minute
)

// SubflowLoader загружает источник под-workflow по пути (CALL FLOW).
type SubflowLoader interface {
	Load(ctx context.Context, path string) (string, error)
}

// Engine — plan execution engine.
type Engine struct {
	grid     *grid.Grid
	subflows SubflowLoader

	concurrency   int
	awaitInterval time.Duration
	awaitTimeout  time.Duration

	logger *slog.Logger
}

// Config — конфигурация Engine.
type Config struct {
	// Grid — submission boundary для Bytecode- и Job-узлов (обязательно).
	Grid *grid.Grid

	// Subflows — загрузчик под-workflow (опционально; без него
	// CALL FLOW завершается ошибкой).
	Subflows SubflowLoader

	// Concurrency — размер пула конкурентных узлов (default: 4).
	Concurrency int

	// AwaitInterval и AwaitTimeout — ожидание jobs в grid.
	AwaitInterval time.Duration
	AwaitTimeout  time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	awaitInterval := cfg.AwaitInterval
	if awaitInterval <= 0 {
		awaitInterval = defaultAwaitInterval
	}

	awaitTimeout := cfg.AwaitTimeout
	if awaitTimeout <= 0 {
		awaitTimeout = defaultAwaitTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		grid:          cfg.Grid,
		subflows:      cfg.Subflows,
		concurrency:   concurrency,
		awaitInterval: awaitInterval,
		awaitTimeout:  awaitTimeout,
		logger:        logger,
	}
}

// RunResult — результат выполнения workflow.
type RunResult struct {
	// Workflow — имя выполненного workflow.
	Workflow string `json:"workflow"`

	// Outputs — выходы OUTPUT-шагов по label.
	Outputs map[string]any `json:"outputs"`

	// Warnings — замечания компиляции.
	Warnings []string `json:"warnings,omitempty"`
}

// Execute компилирует источник и синхронно выполняет план.
//
// Блокирует до завершения всех узлов (включая ожидание jobs в grid)
// и возвращает выходы OUTPUT-шагов.
func (e *Engine) Execute(ctx context.Context, projectScope, source string, inputs map[string]any) (*RunResult, error) {
	return e.run(ctx, projectScope, source, inputs, "sync")
}

func (e *Engine) run(ctx context.Context, projectScope, source string, inputs map[string]any, mode string) (*RunResult, error) {
	result := flow.Compile(source, false)
	if !result.OK {
		telemetry.PlansExecuted.WithLabelValues(mode, "compile_error").Inc()
		return nil, &CompileError{Errors: result.Errors}
	}

	if err := checkInputs(result.AST, inputs); err != nil {
		telemetry.PlansExecuted.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	graph, err := plan.Build(result.AST)
	if err != nil {
		telemetry.PlansExecuted.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("build plan: %w", err)
	}

	started := time.Now()
	logger := e.logger.With("workflow", result.AST.Name, "mode", mode)
	logger.Info("plan execution started",
		"nodes", graph.Size(),
		"project_scope", projectScope,
	)

	outputs, err := e.runGraph(ctx, graph, projectScope, inputs)
	if err != nil {
		telemetry.PlansExecuted.WithLabelValues(mode, "error").Inc()
		logger.Warn("plan execution failed", "duration", time.Since(started), "error", err)
		return nil, err
	}

	telemetry.PlansExecuted.WithLabelValues(mode, "ok").Inc()
	logger.Info("plan execution finished",
		"duration", time.Since(started),
		"outputs", len(outputs),
	)

	return &RunResult{
		Workflow: result.AST.Name,
		Outputs:  outputs,
		Warnings: result.Warnings,
	}, nil
}

// checkInputs проверяет, что все обязательные входы переданы.
func checkInputs(ast *flow.WorkflowAst, inputs map[string]any) error {
	for _, decl := range ast.Inputs {
		if decl.Optional {
			continue
		}
		if _, ok := inputs[decl.Name]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingInput, decl.Name)
		}
	}
	return nil
}
