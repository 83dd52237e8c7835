package engine

import (
	"context"
	"fmt"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/plan"
)

// dispatchJob отправляет Bytecode- или Job-узел в grid и блокируется
// до терминального статуса job.
//
// FAILED job — ошибка узла с текстом из job.Error; таймаут ожидания —
// отдельная ошибка (grid.ErrAwaitTimeout), job при этом не трогается.
func (e *Engine) dispatchJob(ctx context.Context, node *plan.Node, projectScope string) (any, error) {
	typ, params, err := e.jobSpec(ctx, node.Op)
	if err != nil {
		return nil, err
	}

	jobID, err := e.grid.Submit(ctx, projectScope, typ, params, nil)
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}

	e.logger.Debug("plan node dispatched to grid",
		"node_id", node.ID,
		"step", node.Meta.StepName,
		"job_id", jobID,
		"job_type", typ,
	)

	job, err := e.grid.Await(ctx, jobID, e.awaitInterval, e.awaitTimeout)
	if err != nil {
		return nil, fmt.Errorf("await job %s: %w", jobID, err)
	}
	if job.Status != domain.JobStatusSucceeded {
		return nil, fmt.Errorf("job %s %s: %s", jobID, job.Status, job.Error)
	}

	return job.Result, nil
}

// jobSpec отображает операцию узла в тип job и параметры.
func (e *Engine) jobSpec(ctx context.Context, op flow.Operation) (domain.JobType, map[string]any, error) {
	switch op := op.(type) {
	case flow.RunAgentOp:
		return domain.JobTypeInference, map[string]any{
			"agent":   op.Agent,
			"payload": op.Payload,
		}, nil

	case flow.RunBytecodeOp:
		return domain.JobTypeExecArtifact, map[string]any{
			"program": op.Program,
			"input":   op.Input,
		}, nil

	case flow.BuildPackageOp:
		return domain.JobTypeBuildArtifact, map[string]any{
			"packageRef": op.Ref,
		}, nil

	case flow.ExternalExecOp:
		return domain.JobTypeCustom, map[string]any{
			"task":    "apx_exec",
			"target":  op.Target,
			"payload": op.Payload,
		}, nil

	case flow.DeployServiceOp:
		return domain.JobTypeCustom, map[string]any{
			"task":    "deploy",
			"ref":     op.Ref,
			"service": op.Name,
		}, nil

	case flow.CallFlowOp:
		if e.subflows == nil {
			return "", nil, fmt.Errorf("%w: no subflow loader configured", ErrSubflowUnavailable)
		}
		source, err := e.subflows.Load(ctx, op.Path)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %q: %v", ErrSubflowUnavailable, op.Path, err)
		}
		return domain.JobTypeCustom, map[string]any{
			"task":   "flow",
			"path":   op.Path,
			"source": source,
			"inputs": op.Inputs,
		}, nil

	default:
		return "", nil, fmt.Errorf("operation %s is not dispatchable", op.Kind())
	}
}
