package engine

import (
	"reflect"
	"testing"

	"github.com/flowgrid/flowgrid/internal/flow"
)

func sampleRows() Rows {
	return Rows{
		{"region": "west", "amount": int64(150)},
		{"region": "east", "amount": int64(90)},
		{"region": "west", "amount": int64(200)},
		{"region": "east", "amount": int64(300)},
		{"region": "north", "amount": int64(50)},
	}
}

func TestFilterRows(t *testing.T) {
	tests := []struct {
		name string
		op   flow.FilterOp
		want int
	}{
		{"greater", flow.FilterOp{Field: "amount", Op: ">", Value: int64(100)}, 3},
		{"greater equal", flow.FilterOp{Field: "amount", Op: ">=", Value: int64(90)}, 4},
		{"less", flow.FilterOp{Field: "amount", Op: "<", Value: int64(100)}, 2},
		{"equal number", flow.FilterOp{Field: "amount", Op: "==", Value: int64(300)}, 1},
		{"not equal", flow.FilterOp{Field: "region", Op: "!=", Value: "west"}, 3},
		{"equal string", flow.FilterOp{Field: "region", Op: "==", Value: "east"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterRows(sampleRows(), tt.op)
			if err != nil {
				t.Fatalf("filterRows error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFilterRowsDropsIncomparable(t *testing.T) {
	rows := Rows{
		{"amount": int64(10)},
		{"amount": "not a number"},
		{"other": int64(5)}, // поля нет — строка отбрасывается
	}
	got, err := filterRows(rows, flow.FilterOp{Field: "amount", Op: ">", Value: int64(1)})
	if err != nil {
		t.Fatalf("filterRows error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestGroupRows(t *testing.T) {
	op := flow.GroupAggregateOp{
		Source:  "x",
		GroupBy: "region",
		Aggs: []flow.Aggregation{
			{Func: flow.AggCount, Alias: "cnt"},
			{Func: flow.AggSum, Field: "amount", Alias: "total"},
		},
	}

	got, err := groupRows(sampleRows(), op)
	if err != nil {
		t.Fatalf("groupRows error: %v", err)
	}

	// Порядок групп — порядок первого появления ключа
	want := Rows{
		{"region": "west", "cnt": int64(2), "total": int64(350)},
		{"region": "east", "cnt": int64(2), "total": int64(390)},
		{"region": "north", "cnt": int64(1), "total": int64(50)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGroupRowsFloatSum(t *testing.T) {
	rows := Rows{
		{"k": "a", "v": int64(1)},
		{"k": "a", "v": 2.5},
	}
	op := flow.GroupAggregateOp{GroupBy: "k", Aggs: []flow.Aggregation{
		{Func: flow.AggSum, Field: "v", Alias: "s"},
	}}

	got, err := groupRows(rows, op)
	if err != nil {
		t.Fatalf("groupRows error: %v", err)
	}
	if got[0]["s"] != 3.5 {
		t.Errorf("s = %v, want 3.5", got[0]["s"])
	}
}

func TestSortRows(t *testing.T) {
	got := sortRows(sampleRows(), flow.SortOp{Field: "amount", Desc: true})
	amounts := make([]int64, len(got))
	for i, row := range got {
		amounts[i] = row["amount"].(int64)
	}
	want := []int64{300, 200, 150, 90, 50}
	if !reflect.DeepEqual(amounts, want) {
		t.Errorf("amounts = %v, want %v", amounts, want)
	}

	// Исходный порядок не мутируется
	src := sampleRows()
	sortRows(src, flow.SortOp{Field: "amount"})
	if src[0]["amount"] != int64(150) {
		t.Errorf("sortRows mutated input")
	}
}

func TestSortRowsWithLimit(t *testing.T) {
	got := sortRows(sampleRows(), flow.SortOp{Field: "amount", Desc: true, Limit: 2})
	if len(got) != 2 || got[0]["amount"] != int64(300) || got[1]["amount"] != int64(200) {
		t.Errorf("got %v", got)
	}
}

func TestSortRowsBoolField(t *testing.T) {
	rows := Rows{
		{"name": "a", "active": false},
		{"name": "b", "active": true},
		{"name": "c", "active": false},
	}
	got := sortRows(rows, flow.SortOp{Field: "active", Desc: true})
	if got[0]["name"] != "b" {
		t.Errorf("DESC: got[0] = %v, want the active row first", got[0])
	}
	got = sortRows(rows, flow.SortOp{Field: "active"})
	if got[2]["name"] != "b" {
		t.Errorf("ASC: got[2] = %v, want the active row last", got[2])
	}
}

func TestTakeRows(t *testing.T) {
	rows := sampleRows()
	if got := takeRows(rows, 2); len(got) != 2 {
		t.Errorf("takeRows(2): len = %d", len(got))
	}
	if got := takeRows(rows, 100); len(got) != len(rows) {
		t.Errorf("takeRows(100): len = %d, want %d", len(got), len(rows))
	}
	if got := takeRows(rows, 0); len(got) != 0 {
		t.Errorf("takeRows(0): len = %d", len(got))
	}
}

func TestParseCSV(t *testing.T) {
	got, err := parseCSV("region,amount\nwest,150\neast,90.5\nnorth,low\n")
	if err != nil {
		t.Fatalf("parseCSV error: %v", err)
	}

	want := Rows{
		{"region": "west", "amount": int64(150)},
		{"region": "east", "amount": 90.5},
		{"region": "north", "amount": "low"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestToRowsJSONForm(t *testing.T) {
	// После JSON round-trip таблица — []any из map[string]any
	v := []any{
		map[string]any{"a": float64(1)},
		map[string]any{"a": float64(2)},
	}
	got, err := toRows(v)
	if err != nil {
		t.Fatalf("toRows error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	if _, err := toRows("scalar"); err == nil {
		t.Errorf("toRows(string): want error")
	}
	if _, err := toRows([]any{"not an object"}); err == nil {
		t.Errorf("toRows([]any{string}): want error")
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		a, b       any
		want       int
		comparable bool
	}{
		{int64(1), int64(2), -1, true},
		{int64(2), float64(2), 0, true},
		{3.5, int(3), 1, true},
		{"abc", "abd", -1, true},
		{false, true, -1, true},
		{true, false, 1, true},
		{true, true, 0, true},
		{"abc", int64(1), 0, false},
		{int64(1), "abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := compareValues(tt.a, tt.b)
		if ok != tt.comparable {
			t.Errorf("compareValues(%v, %v) comparable = %v, want %v", tt.a, tt.b, ok, tt.comparable)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("compareValues(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
