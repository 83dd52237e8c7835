package grid

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// Handler выполняет job одного типа и возвращает result.
type Handler interface {
	Execute(ctx context.Context, job *domain.GridJob) (map[string]any, error)
}

// HandlerFunc — адаптер функции к интерфейсу Handler.
type HandlerFunc func(ctx context.Context, job *domain.GridJob) (map[string]any, error)

// Execute реализует интерфейс Handler.
func (f HandlerFunc) Execute(ctx context.Context, job *domain.GridJob) (map[string]any, error) {
	return f(ctx, job)
}

// Registry — реестр handlers по типу job.
//
// Воркер получает реестр при старте; scheduler диспатчит захваченный
// job в handler его типа. Jobs типа custom диспатчатся дальше по
// params["task"] через CustomHandler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.JobType]Handler
	custom   *CustomHandler
}

// NewRegistry создаёт реестр с baseline handlers всех типов.
//
// Grid нужен custom-задачам, которые сами отправляют дочерние jobs
// (рекурсивная декомпозиция).
func NewRegistry(g *Grid) *Registry {
	custom := NewCustomHandler()
	custom.RegisterTask("fib", HandlerFunc(fibHandler))
	custom.RegisterTask("fib_matrix", HandlerFunc(fibMatrixHandler))
	custom.RegisterTask("fib_split", NewFibSplitHandler(g))
	custom.RegisterTask("apx_exec", HandlerFunc(apxExecHandler))
	custom.RegisterTask("deploy", HandlerFunc(deployHandler))

	r := &Registry{
		handlers: map[domain.JobType]Handler{
			domain.JobTypeInference:     HandlerFunc(inferenceHandler),
			domain.JobTypeTranscode:     HandlerFunc(transcodeHandler),
			domain.JobTypeAnalytics:     HandlerFunc(analyticsHandler),
			domain.JobTypeBuildArtifact: HandlerFunc(buildArtifactHandler),
			domain.JobTypeExecArtifact:  HandlerFunc(execArtifactHandler),
			domain.JobTypeCustom:        custom,
		},
		custom: custom,
	}
	return r
}

// Register заменяет handler типа job.
func (r *Registry) Register(typ domain.JobType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[typ] = h
}

// RegisterTask регистрирует handler custom-задачи.
func (r *Registry) RegisterTask(task string, h Handler) {
	r.custom.RegisterTask(task, h)
}

// Get возвращает handler для типа job.
func (r *Registry) Get(typ domain.JobType) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, typ)
	}
	return h, nil
}

// CustomHandler диспатчит jobs типа custom по params["task"].
type CustomHandler struct {
	mu    sync.RWMutex
	tasks map[string]Handler
}

// NewCustomHandler создаёт пустой диспетчер custom-задач.
func NewCustomHandler() *CustomHandler {
	return &CustomHandler{tasks: make(map[string]Handler)}
}

// RegisterTask регистрирует handler задачи.
func (h *CustomHandler) RegisterTask(task string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks[task] = handler
}

// Execute реализует интерфейс Handler.
func (h *CustomHandler) Execute(ctx context.Context, job *domain.GridJob) (map[string]any, error) {
	task := job.Task()
	if task == "" {
		return nil, fmt.Errorf("%w: params[\"task\"] is empty", ErrUnknownTask)
	}

	h.mu.RLock()
	handler, ok := h.tasks[task]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	return handler.Execute(ctx, job)
}

// --- Baseline handlers ---
//
// Типы inference, transcode, analytics, buildArtifact, execArtifact —
// интеграционные границы: реальное выполнение живёт во внешних системах.
// Baseline handlers подтверждают диспатч и эхо-возвращают параметры,
// сохраняя полный жизненный цикл job наблюдаемым.

func inferenceHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	agent, _ := job.Params["agent"].(string)
	if agent == "" {
		return nil, fmt.Errorf("inference job %s: missing agent", job.ID)
	}
	return map[string]any{
		"agent":      agent,
		"payload":    job.Params["payload"],
		"dispatched": true,
	}, nil
}

func transcodeHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	return map[string]any{
		"inputRefs":  job.InputRefs,
		"dispatched": true,
	}, nil
}

func analyticsHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	return map[string]any{
		"query":      job.Params["query"],
		"dispatched": true,
	}, nil
}

func buildArtifactHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	ref, _ := job.Params["packageRef"].(string)
	if ref == "" {
		return nil, fmt.Errorf("buildArtifact job %s: missing packageRef", job.ID)
	}
	return map[string]any{
		"packageRef": ref,
		"artifact":   ref + "#built",
	}, nil
}

func execArtifactHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	program, _ := job.Params["program"].(string)
	if program == "" {
		return nil, fmt.Errorf("execArtifact job %s: missing program", job.ID)
	}
	return map[string]any{
		"program":    program,
		"input":      job.Params["input"],
		"dispatched": true,
	}, nil
}

func apxExecHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	target, _ := job.Params["target"].(string)
	if target == "" {
		return nil, fmt.Errorf("apx_exec job %s: missing target", job.ID)
	}
	return map[string]any{
		"target":     target,
		"payload":    job.Params["payload"],
		"dispatched": true,
	}, nil
}

func deployHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	service, _ := job.Params["service"].(string)
	if service == "" {
		return nil, fmt.Errorf("deploy job %s: missing service", job.ID)
	}
	return map[string]any{
		"service":  service,
		"deployed": true,
	}, nil
}
