package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/flow"
)

// SubmitAsync компилирует источник и отправляет его выполнение в grid
// как job custom/flow, не дожидаясь результата.
//
// Ошибки компиляции всплывают синхронно; само выполнение — на воркере
// с зарегистрированным FlowJobHandler. Результат доступен через
// статус job по возвращённому ID.
func (e *Engine) SubmitAsync(ctx context.Context, projectScope, source string, inputs map[string]any) (uuid.UUID, error) {
	result := flow.Compile(source, false)
	if !result.OK {
		return uuid.Nil, &CompileError{Errors: result.Errors}
	}

	params := map[string]any{
		"task":   "flow",
		"source": source,
	}
	if inputs != nil {
		params["inputs"] = inputs
	}

	return e.grid.Submit(ctx, projectScope, domain.JobTypeCustom, params, nil)
}

// FlowJobHandler выполняет jobs custom/flow: целый workflow как job.
//
// Регистрируется в grid.Registry при сборке воркера; grid сам не знает
// про engine, связывание происходит на уровне cmd.
type FlowJobHandler struct {
	engine *Engine
}

// NewFlowJobHandler создаёт handler задачи flow.
func NewFlowJobHandler(e *Engine) *FlowJobHandler {
	return &FlowJobHandler{engine: e}
}

// Execute реализует grid.Handler.
func (h *FlowJobHandler) Execute(ctx context.Context, job *domain.GridJob) (map[string]any, error) {
	source, _ := job.Params["source"].(string)
	if source == "" {
		path, _ := job.Params["path"].(string)
		if path == "" {
			return nil, fmt.Errorf("flow job %s: neither source nor path given", job.ID)
		}
		if h.engine.subflows == nil {
			return nil, fmt.Errorf("%w: no subflow loader configured", ErrSubflowUnavailable)
		}
		loaded, err := h.engine.subflows.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrSubflowUnavailable, path, err)
		}
		source = loaded
	}

	inputs, _ := job.Params["inputs"].(map[string]any)

	result, err := h.engine.run(ctx, job.ProjectScope, source, inputs, "async")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"workflow": result.Workflow,
		"outputs":  result.Outputs,
	}, nil
}

// DirLoader — SubflowLoader поверх каталога с .flow-файлами.
type DirLoader struct {
	// Root — каталог с источниками workflow.
	Root string
}

// Load читает источник под-workflow по относительному пути.
// Путь не может выходить за пределы Root.
func (l DirLoader) Load(_ context.Context, path string) (string, error) {
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || clean == ".." || len(clean) >= 3 && clean[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("path %q escapes workflow root", path)
	}

	data, err := os.ReadFile(filepath.Join(l.Root, clean))
	if err != nil {
		return "", fmt.Errorf("read subflow: %w", err)
	}
	return string(data), nil
}
