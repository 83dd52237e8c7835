package engine

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/plan"
)

// Rows — табличное значение: срез строк name → значение.
type Rows = []map[string]any

// evalDataOp вычисляет data-узел in-process.
func (e *Engine) evalDataOp(g *plan.Graph, st *execState, node *plan.Node, inputs map[string]any) (any, error) {
	switch op := node.Op.(type) {
	case flow.LoadTableOp:
		return loadRowsInput(inputs, op.Table)

	case flow.LoadCSVOp:
		return loadRowsInput(inputs, op.Source)

	case flow.FilterOp:
		rows, err := sourceRows(g, st, op.Source)
		if err != nil {
			return nil, err
		}
		return filterRows(rows, op)

	case flow.GroupAggregateOp:
		rows, err := sourceRows(g, st, op.Source)
		if err != nil {
			return nil, err
		}
		return groupRows(rows, op)

	case flow.SortOp:
		rows, err := sourceRows(g, st, op.Source)
		if err != nil {
			return nil, err
		}
		return sortRows(rows, op), nil

	case flow.TakeOp:
		rows, err := sourceRows(g, st, op.Source)
		if err != nil {
			return nil, err
		}
		return takeRows(rows, op.N), nil

	case flow.OutputOp:
		v, ok := st.valueOf(g, op.Source)
		if !ok {
			return nil, fmt.Errorf("no value produced by step %q", op.Source)
		}
		return v, nil

	case flow.OutputTextOp:
		return op.Value, nil

	default:
		return nil, fmt.Errorf("operation %s is not a data op", node.Op.Kind())
	}
}

// sourceRows возвращает табличный результат шага name.
func sourceRows(g *plan.Graph, st *execState, name string) (Rows, error) {
	v, ok := st.valueOf(g, name)
	if !ok {
		return nil, fmt.Errorf("no value produced by step %q", name)
	}
	rows, err := toRows(v)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", name, err)
	}
	return rows, nil
}

// loadRowsInput читает табличный вход workflow.
// CSV-текст разбирается с заголовком; числовые ячейки становятся числами.
func loadRowsInput(inputs map[string]any, name string) (Rows, error) {
	v, ok := inputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingInput, name)
	}

	if text, ok := v.(string); ok {
		return parseCSV(text)
	}

	rows, err := toRows(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadInput, name, err)
	}
	return rows, nil
}

// toRows нормализует значение в Rows.
// После JSON round-trip таблица приходит как []any из map[string]any.
func toRows(v any) (Rows, error) {
	switch rows := v.(type) {
	case Rows:
		return rows, nil
	case []any:
		out := make(Rows, 0, len(rows))
		for i, r := range rows {
			m, ok := r.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is not an object", i)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of type %T is not tabular", v)
	}
}

// parseCSV разбирает CSV-текст с заголовком в Rows.
func parseCSV(text string) (Rows, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Rows{}, nil
	}

	header := records[0]
	rows := make(Rows, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(record) {
				break
			}
			row[col] = parseCSVCell(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCSVCell пробует числовую интерпретацию ячейки.
func parseCSVCell(cell string) any {
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}

// filterRows оставляет строки, удовлетворяющие предикату.
// Строка без поля предиката отбрасывается.
func filterRows(rows Rows, op flow.FilterOp) (Rows, error) {
	out := make(Rows, 0, len(rows))
	for _, row := range rows {
		fieldVal, ok := row[op.Field]
		if !ok {
			continue
		}
		cmp, comparable := compareValues(fieldVal, op.Value)
		if !comparable {
			continue
		}

		var keep bool
		switch op.Op {
		case ">":
			keep = cmp > 0
		case ">=":
			keep = cmp >= 0
		case "<":
			keep = cmp < 0
		case "<=":
			keep = cmp <= 0
		case "==", "=":
			keep = cmp == 0
		case "!=":
			keep = cmp != 0
		default:
			return nil, fmt.Errorf("unknown comparison operator %q", op.Op)
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

// groupRows группирует строки и вычисляет агрегаты.
// Порядок групп — порядок первого появления ключа: результат детерминирован.
func groupRows(rows Rows, op flow.GroupAggregateOp) (Rows, error) {
	type group struct {
		key  any
		rows Rows
	}

	var groups []*group
	index := make(map[string]*group)
	for _, row := range rows {
		key := row[op.GroupBy]
		ks := fmt.Sprintf("%v", key)
		grp, ok := index[ks]
		if !ok {
			grp = &group{key: key}
			index[ks] = grp
			groups = append(groups, grp)
		}
		grp.rows = append(grp.rows, row)
	}

	out := make(Rows, 0, len(groups))
	for _, grp := range groups {
		row := map[string]any{op.GroupBy: grp.key}
		for _, agg := range op.Aggs {
			switch agg.Func {
			case flow.AggCount:
				row[agg.Alias] = int64(len(grp.rows))
			case flow.AggSum:
				sum, err := sumField(grp.rows, agg.Field)
				if err != nil {
					return nil, err
				}
				row[agg.Alias] = sum
			default:
				return nil, fmt.Errorf("unknown aggregation %q", agg.Func)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// sumField суммирует числовое поле; результат int64, пока все значения
// целые, иначе float64.
func sumField(rows Rows, field string) (any, error) {
	var intSum int64
	var floatSum float64
	isFloat := false

	for _, row := range rows {
		v, ok := row[field]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int64:
			intSum += n
			floatSum += float64(n)
		case int:
			intSum += int64(n)
			floatSum += float64(n)
		case float64:
			isFloat = true
			floatSum += n
		default:
			return nil, fmt.Errorf("field %q is not numeric: %T", field, v)
		}
	}

	if isFloat {
		return floatSum, nil
	}
	return intSum, nil
}

// sortRows возвращает стабильно отсортированную копию rows.
func sortRows(rows Rows, op flow.SortOp) Rows {
	out := make(Rows, len(rows))
	copy(out, rows)

	sort.SliceStable(out, func(i, j int) bool {
		cmp, comparable := compareValues(out[i][op.Field], out[j][op.Field])
		if !comparable {
			return false
		}
		if op.Desc {
			return cmp > 0
		}
		return cmp < 0
	})

	if op.Limit > 0 {
		out = takeRows(out, op.Limit)
	}
	return out
}

// takeRows возвращает первые n строк.
func takeRows(rows Rows, n int) Rows {
	if n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// compareValues сравнивает два значения: числа численно, строки
// лексикографически. Возвращает (знак, сравнимы ли).
func compareValues(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}

	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		switch {
		case ab == bb:
			return 0, true
		case bb:
			// false < true
			return -1, true
		default:
			return 1, true
		}
	}

	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
