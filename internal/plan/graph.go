package plan

import (
	"fmt"

	"github.com/flowgrid/flowgrid/internal/flow"
)

// NodeKind — вид узла плана, определяет способ выполнения.
type NodeKind string

const (
	// KindDataOp — лёгкая data-операция, выполняется in-process.
	KindDataOp NodeKind = "DataOp"

	// KindBytecodeOp — диспетчеризация bytecode-программы в grid.
	KindBytecodeOp NodeKind = "BytecodeOp"

	// KindJobOp — тяжёлая операция, отправляемая в grid.
	KindJobOp NodeKind = "JobOp"
)

// Node — узел plan graph.
type Node struct {
	// ID — стабильный идентификатор узла ("n1", "n2", ... в порядке шагов).
	ID string

	// Kind — вид узла.
	Kind NodeKind

	// Op — дескриптор операции.
	Op flow.Operation

	// Inputs — ID узлов, чьи выходы читает этот узел.
	Inputs []string

	// Outputs — ID узлов, зависящих от этого узла.
	Outputs []string

	// Meta — контекст для диагностики.
	Meta NodeMeta
}

// NodeMeta — метаданные узла для сообщений об ошибках.
type NodeMeta struct {
	// StepName — имя шага, породившего узел.
	StepName string

	// StartLine — строка объявления шага в источнике.
	StartLine int

	// Warnings — замечания анализа (если были).
	Warnings []string
}

// Edge — ребро графа: зависимость To от From.
type Edge struct {
	// From — ID узла-поставщика.
	From string

	// To — ID зависимого узла.
	To string

	// Via — имя зависимости, породившее ребро (имя шага From).
	Via string
}

// Graph — направленный ациклический граф плана выполнения.
//
// Инвариант: ацикличен; каждая объявленная зависимость разрешена
// ровно в один узел. Оба свойства гарантируются Build.
type Graph struct {
	// Nodes — узлы по ID.
	Nodes map[string]*Node

	// Edges — все рёбра графа.
	Edges []Edge

	// order — ID узлов в порядке объявления шагов.
	order []string

	// byStep — имя шага → ID узла.
	byStep map[string]string
}

// Build собирает plan graph из AST.
//
// Каждому шагу назначается стабильный ID; на каждую зависимость
// создаётся ребро. Зависимость, именующая неизвестный шаг, — ошибка
// с именами зависимого и отсутствующего. После построения рёбер
// выполняется поиск циклов (раскрашивающий DFS); цикл — ошибка
// с перечислением его узлов.
func Build(ast *flow.WorkflowAst) (*Graph, error) {
	analyzed, err := flow.AnalyzeAll(ast)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Nodes:  make(map[string]*Node, len(analyzed)),
		byStep: make(map[string]string, len(analyzed)),
	}

	// Первый проход: узлы.
	for i := range analyzed {
		a := &analyzed[i]
		id := fmt.Sprintf("n%d", i+1)

		g.Nodes[id] = &Node{
			ID:   id,
			Kind: kindOf(a.Op),
			Op:   a.Op,
			Meta: NodeMeta{
				StepName:  a.Step.Name,
				StartLine: a.Step.StartLine,
			},
		}
		g.order = append(g.order, id)
		g.byStep[a.Step.Name] = id
	}

	// Второй проход: рёбра по зависимостям.
	for i := range analyzed {
		a := &analyzed[i]
		to := g.Nodes[g.byStep[a.Step.Name]]

		for _, dep := range a.Deps {
			fromID, ok := g.byStep[dep]
			if !ok {
				return nil, &UnresolvedError{Node: a.Step.Name, Missing: dep}
			}
			from := g.Nodes[fromID]

			from.Outputs = append(from.Outputs, to.ID)
			to.Inputs = append(to.Inputs, fromID)
			g.Edges = append(g.Edges, Edge{From: fromID, To: to.ID, Via: dep})
		}
	}

	if err := g.detectCycle(); err != nil {
		return nil, err
	}

	return g, nil
}

// NodeByStep возвращает узел по имени шага.
func (g *Graph) NodeByStep(name string) *Node {
	id, ok := g.byStep[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// OrderedNodes возвращает узлы в порядке объявления шагов.
func (g *Graph) OrderedNodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.Nodes[id])
	}
	return nodes
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// Цвета DFS при поиске циклов.
const (
	colorWhite = iota // не посещён
	colorGray         // в текущем пути обхода
	colorBlack        // полностью обработан
)

// detectCycle выполняет раскрашивающий DFS по всем узлам.
// Серый узел, встреченный повторно, означает цикл; ошибка перечисляет
// имена шагов цикла в порядке обхода.
func (g *Graph) detectCycle() error {
	colors := make(map[string]int, len(g.Nodes))
	var path []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		colors[id] = colorGray
		path = append(path, id)

		for _, next := range g.Nodes[id].Outputs {
			switch colors[next] {
			case colorGray:
				// Цикл: вырезаем его часть из текущего пути.
				cycle := &CycleError{}
				start := 0
				for i, p := range path {
					if p == next {
						start = i
						break
					}
				}
				for _, p := range path[start:] {
					cycle.Nodes = append(cycle.Nodes, g.Nodes[p].Meta.StepName)
				}
				cycle.Nodes = append(cycle.Nodes, g.Nodes[next].Meta.StepName)
				return cycle

			case colorWhite:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		colors[id] = colorBlack
		return nil
	}

	for _, id := range g.order {
		if colors[id] == colorWhite {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// kindOf определяет вид узла по операции (exhaustive switch).
func kindOf(op flow.Operation) NodeKind {
	switch op.(type) {
	case flow.LoadTableOp, flow.LoadCSVOp, flow.FilterOp, flow.GroupAggregateOp,
		flow.SortOp, flow.TakeOp, flow.OutputOp, flow.OutputTextOp:
		return KindDataOp
	case flow.RunBytecodeOp:
		return KindBytecodeOp
	case flow.RunAgentOp, flow.ExternalExecOp, flow.BuildPackageOp,
		flow.DeployServiceOp, flow.CallFlowOp:
		return KindJobOp
	default:
		// Закрытое множество операций; новый вариант обязан получить
		// ветку выше.
		panic(fmt.Sprintf("plan: unknown operation kind %T", op))
	}
}
