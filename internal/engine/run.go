package engine

import (
	"context"
	"sync"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/plan"
)

// execState — изменяемое состояние одного выполнения плана.
// Все поля защищены mu; значения узлов читаются и пишутся только под ним.
type execState struct {
	mu       sync.Mutex
	indeg    map[string]int
	blocked  map[string]bool // предок узла упал — узел не стартует
	values   map[string]any  // nodeID → результат узла
	outputs  map[string]any  // label → значение OUTPUT-шага
	firstErr error
}

// runGraph выполняет граф в порядке зависимостей.
//
// Классическое in-degree планирование: узел попадает в ready-очередь,
// когда счётчик его невыполненных входов достигает нуля. Очередь
// разбирает пул из concurrency горутин, поэтому независимые узлы
// выполняются конкурентно, а зависимые — строго после своих входов.
func (e *Engine) runGraph(ctx context.Context, g *plan.Graph, projectScope string, inputs map[string]any) (map[string]any, error) {
	nodes := g.OrderedNodes()

	st := &execState{
		indeg:   make(map[string]int, len(nodes)),
		blocked: make(map[string]bool),
		values:  make(map[string]any, len(nodes)),
		outputs: make(map[string]any),
	}
	for _, n := range nodes {
		st.indeg[n.ID] = len(n.Inputs)
	}

	// Буфер на весь граф: отправка в ready никогда не блокирует.
	ready := make(chan string, len(nodes))
	var pending sync.WaitGroup
	pending.Add(len(nodes))

	for _, n := range nodes {
		if st.indeg[n.ID] == 0 {
			ready <- n.ID
		}
	}

	var workers sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for id := range ready {
				e.execNode(ctx, g, st, id, projectScope, inputs, ready)
				pending.Done()
			}
		}()
	}

	pending.Wait()
	close(ready)
	workers.Wait()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.firstErr != nil {
		return nil, st.firstErr
	}
	return st.outputs, nil
}

// execNode выполняет один узел и продвигает его зависимые узлы.
func (e *Engine) execNode(ctx context.Context, g *plan.Graph, st *execState, id, projectScope string, inputs map[string]any, ready chan<- string) {
	node := g.Nodes[id]

	st.mu.Lock()
	skipped := st.blocked[id]
	st.mu.Unlock()

	var value any
	var err error
	if !skipped {
		value, err = e.evalNode(ctx, g, st, node, projectScope, inputs)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	switch {
	case skipped:
		// Узел не выполнялся: блокировка каскадируется ниже.
	case err != nil:
		if st.firstErr == nil {
			st.firstErr = &NodeError{NodeID: node.ID, Step: node.Meta.StepName, Err: err}
		}
	default:
		st.values[id] = value
		e.collectOutput(st, node, value)
	}

	failed := skipped || err != nil
	for _, childID := range node.Outputs {
		if failed {
			st.blocked[childID] = true
		}
		st.indeg[childID]--
		if st.indeg[childID] == 0 {
			ready <- childID
		}
	}
}

// collectOutput записывает значение OUTPUT-шага в выходы плана.
func (e *Engine) collectOutput(st *execState, node *plan.Node, value any) {
	switch op := node.Op.(type) {
	case flow.OutputOp:
		label := op.Label
		if label == "" {
			label = node.Meta.StepName
		}
		st.outputs[label] = value
	case flow.OutputTextOp:
		st.outputs[node.Meta.StepName] = value
	}
}

// evalNode диспатчит узел по виду.
func (e *Engine) evalNode(ctx context.Context, g *plan.Graph, st *execState, node *plan.Node, projectScope string, inputs map[string]any) (any, error) {
	switch node.Kind {
	case plan.KindDataOp:
		return e.evalDataOp(g, st, node, inputs)
	case plan.KindBytecodeOp, plan.KindJobOp:
		return e.dispatchJob(ctx, node, projectScope)
	default:
		return nil, &NodeError{NodeID: node.ID, Step: node.Meta.StepName, Err: ErrNodeFailed}
	}
}

// valueOf возвращает результат узла шага name.
func (st *execState) valueOf(g *plan.Graph, name string) (any, bool) {
	node := g.NodeByStep(name)
	if node == nil {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	v, ok := st.values[node.ID]
	return v, ok
}
