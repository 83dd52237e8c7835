package flow

import (
	"errors"
	"reflect"
	"testing"
)

// stepOf собирает Step из строк тела для прямого вызова AnalyzeStep.
func stepOf(name string, body ...string) *Step {
	return &Step{Name: name, BodyLines: body}
}

func TestAnalyzeLoad(t *testing.T) {
	op, deps, err := AnalyzeStep(stepOf("s", "LOAD TABLE sales"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := op.(LoadTableOp); !ok || got.Table != "sales" {
		t.Errorf("op = %#v, want LoadTableOp{sales}", op)
	}
	if len(deps) != 0 {
		t.Errorf("deps = %v, want none", deps)
	}

	op, _, err = AnalyzeStep(stepOf("s", `LOAD CSV FROM "input.csv"`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := op.(LoadCSVOp); !ok || got.Source != "input.csv" {
		t.Errorf("op = %#v, want LoadCSVOp{input.csv}", op)
	}
}

func TestAnalyzeFilter(t *testing.T) {
	op, deps, err := AnalyzeStep(stepOf("s", "FILTER load WHERE amount > 100"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, ok := op.(FilterOp)
	if !ok {
		t.Fatalf("op = %#v, want FilterOp", op)
	}
	if f.Source != "load" || f.Field != "amount" || f.Op != ">" {
		t.Errorf("FilterOp = %+v", f)
	}
	if f.Value != int64(100) {
		t.Errorf("Value = %#v (%T), want int64(100)", f.Value, f.Value)
	}
	if !reflect.DeepEqual(deps, []string{"load"}) {
		t.Errorf("deps = %v, want [load]", deps)
	}
}

func TestAnalyzeFilterStringValue(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("s", `FILTER rows WHERE region == "west"`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := op.(FilterOp)
	if f.Value != "west" {
		t.Errorf("Value = %#v, want %q", f.Value, "west")
	}
}

func TestAnalyzeFilterBadOperator(t *testing.T) {
	_, _, err := AnalyzeStep(stepOf("s", "FILTER rows WHERE amount ~ 10"), "")
	if !errors.Is(err, ErrBadOperationSyntax) {
		t.Errorf("error = %v, want ErrBadOperationSyntax", err)
	}
}

func TestAnalyzeGroup(t *testing.T) {
	step := stepOf("g",
		"GROUP sales BY region",
		"AGG count(*) AS cnt",
		"AGG amount AS total",
	)
	op, deps, err := AnalyzeStep(step, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g, ok := op.(GroupAggregateOp)
	if !ok {
		t.Fatalf("op = %#v, want GroupAggregateOp", op)
	}
	if g.Source != "sales" || g.GroupBy != "region" {
		t.Errorf("GroupAggregateOp = %+v", g)
	}
	if len(g.Aggs) != 2 {
		t.Fatalf("len(Aggs) = %d, want 2", len(g.Aggs))
	}
	if g.Aggs[0].Func != AggCount || g.Aggs[0].Alias != "cnt" {
		t.Errorf("Aggs[0] = %+v", g.Aggs[0])
	}
	if g.Aggs[1].Func != AggSum || g.Aggs[1].Field != "amount" || g.Aggs[1].Alias != "total" {
		t.Errorf("Aggs[1] = %+v", g.Aggs[1])
	}
	if !reflect.DeepEqual(deps, []string{"sales"}) {
		t.Errorf("deps = %v, want [sales]", deps)
	}
}

func TestAnalyzeGroupWithoutAgg(t *testing.T) {
	_, _, err := AnalyzeStep(stepOf("g", "GROUP sales BY region"), "")
	if !errors.Is(err, ErrMissingAggregation) {
		t.Errorf("error = %v, want ErrMissingAggregation", err)
	}
}

func TestAnalyzeSort(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("s", "SORT grouped BY total DESC"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srt := op.(SortOp)
	if srt.Source != "grouped" || srt.Field != "total" || !srt.Desc || srt.Limit != 0 {
		t.Errorf("SortOp = %+v", srt)
	}
}

func TestAnalyzeSortWithTakeContinuation(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("s", "SORT rows BY amount ASC", "TAKE 5"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srt := op.(SortOp)
	if srt.Desc || srt.Limit != 5 {
		t.Errorf("SortOp = %+v, want ASC с Limit=5", srt)
	}
}

func TestAnalyzeTake(t *testing.T) {
	// Явный FROM
	op, deps, err := AnalyzeStep(stepOf("t", "TAKE 3 FROM sorted"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tk := op.(TakeOp)
	if tk.Source != "sorted" || tk.N != 3 {
		t.Errorf("TakeOp = %+v", tk)
	}
	if !reflect.DeepEqual(deps, []string{"sorted"}) {
		t.Errorf("deps = %v, want [sorted]", deps)
	}

	// Без FROM — зависимость от предыдущего шага
	op, deps, err = AnalyzeStep(stepOf("t", "TAKE 3"), "prev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tk = op.(TakeOp)
	if tk.Source != "prev" {
		t.Errorf("Source = %q, want %q", tk.Source, "prev")
	}
	if !reflect.DeepEqual(deps, []string{"prev"}) {
		t.Errorf("deps = %v, want [prev]", deps)
	}
}

func TestAnalyzeTakeFirstStep(t *testing.T) {
	_, _, err := AnalyzeStep(stepOf("t", "TAKE 3"), "")
	if !errors.Is(err, ErrTakeWithoutSource) {
		t.Errorf("error = %v, want ErrTakeWithoutSource", err)
	}
}

func TestAnalyzeRunAgent(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("a", `RUN AGENT "summarizer" WITH { text: "hi" }`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ra := op.(RunAgentOp)
	if ra.Agent != "summarizer" {
		t.Errorf("Agent = %q", ra.Agent)
	}
	if ra.Payload["text"] != "hi" {
		t.Errorf("Payload = %#v", ra.Payload)
	}
}

func TestAnalyzeRunAgentNoPayload(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("a", `RUN AGENT "echo"`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ra := op.(RunAgentOp)
	if ra.Payload != nil {
		t.Errorf("Payload = %#v, want nil", ra.Payload)
	}
}

func TestAnalyzeRunAgentPayloadNotObject(t *testing.T) {
	_, _, err := AnalyzeStep(stepOf("a", `RUN AGENT "x" WITH [1, 2]`), "")
	if !errors.Is(err, ErrPayloadNotObject) {
		t.Errorf("error = %v, want ErrPayloadNotObject", err)
	}
}

func TestAnalyzeRunBytecode(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("v", `RUN VASM "prog.vasm" WITH { x: 1 }`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb := op.(RunBytecodeOp)
	if rb.Program != "prog.vasm" || rb.Input["x"] != int64(1) {
		t.Errorf("RunBytecodeOp = %+v", rb)
	}
}

func TestAnalyzeExternalExec(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("e", `APX_EXEC "target-api" WITH [1, 2, 3]`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ex := op.(ExternalExecOp)
	if ex.Target != "target-api" {
		t.Errorf("Target = %q", ex.Target)
	}
	// APX_EXEC принимает любой литерал, не только объект
	if _, ok := ex.Payload.([]any); !ok {
		t.Errorf("Payload = %#v, want array", ex.Payload)
	}
}

func TestAnalyzeMissingWithPayload(t *testing.T) {
	// WITH обязателен для всех диспетчеризуемых операций, кроме RUN AGENT
	tests := []struct {
		name string
		body string
	}{
		{"run vasm", `RUN VASM "prog.vasm"`},
		{"apx exec", `APX_EXEC "target-api"`},
		{"call flow", `CALL FLOW "sub/report.flow"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := AnalyzeStep(stepOf("s", tt.body), "")
			if !errors.Is(err, ErrBadOperationSyntax) {
				t.Errorf("AnalyzeStep(%q) error = %v, want ErrBadOperationSyntax", tt.body, err)
			}
		})
	}
}

func TestAnalyzeQuotedNameWithSpaces(t *testing.T) {
	// Слово with внутри закавыченного имени — не ключевое слово
	op, _, err := AnalyzeStep(stepOf("a", `RUN AGENT "chat with me" WITH { text: "hi" }`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ra := op.(RunAgentOp)
	if ra.Agent != "chat with me" {
		t.Errorf("Agent = %q, want %q", ra.Agent, "chat with me")
	}
	if ra.Payload["text"] != "hi" {
		t.Errorf("Payload = %#v", ra.Payload)
	}

	op, _, err = AnalyzeStep(stepOf("a2", `RUN AGENT "chat with me"`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ra = op.(RunAgentOp)
	if ra.Agent != "chat with me" || ra.Payload != nil {
		t.Errorf("RunAgentOp = %+v", ra)
	}
}

func TestAnalyzeBuildAndDeploy(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("b", "BUILD_VPKG ./pkg/service"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := op.(BuildPackageOp); got.Ref != "./pkg/service" {
		t.Errorf("BuildPackageOp = %+v", got)
	}

	op, _, err = AnalyzeStep(stepOf("d", `DEPLOY_SERVICE ./pkg/service "api"`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := op.(DeployServiceOp); got.Ref != "./pkg/service" || got.Name != "api" {
		t.Errorf("DeployServiceOp = %+v", got)
	}
}

func TestAnalyzeCallFlow(t *testing.T) {
	op, _, err := AnalyzeStep(stepOf("c", `CALL FLOW "sub/report.flow" WITH { region: "west" }`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cf := op.(CallFlowOp)
	if cf.Path != "sub/report.flow" || cf.Inputs["region"] != "west" {
		t.Errorf("CallFlowOp = %+v", cf)
	}
}

func TestAnalyzeOutput(t *testing.T) {
	op, deps, err := AnalyzeStep(stepOf("o", `OUTPUT result AS "final"`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := op.(OutputOp)
	if out.Source != "result" || out.Label != "final" {
		t.Errorf("OutputOp = %+v", out)
	}
	if !reflect.DeepEqual(deps, []string{"result"}) {
		t.Errorf("deps = %v", deps)
	}

	op, _, err = AnalyzeStep(stepOf("o", "OUTPUT result"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := op.(OutputOp); got.Label != "" {
		t.Errorf("Label = %q, want empty", got.Label)
	}
}

func TestAnalyzeOutputText(t *testing.T) {
	op, deps, err := AnalyzeStep(stepOf("o", `OUTPUT_TEXT "done"`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ot := op.(OutputTextOp)
	if ot.Value != "done" {
		t.Errorf("Value = %#v", ot.Value)
	}
	if len(deps) != 0 {
		t.Errorf("deps = %v, want none", deps)
	}
}

func TestAnalyzeUnknownOperation(t *testing.T) {
	_, _, err := AnalyzeStep(stepOf("u", "FROBNICATE everything"), "")
	if !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("error = %v, want ErrUnknownOperation", err)
	}

	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error %v is not a *SyntaxError", err)
	}
	if syntaxErr.Step != "u" {
		t.Errorf("SyntaxError.Step = %q, want %q", syntaxErr.Step, "u")
	}
}

func TestAnalyzeAllOrder(t *testing.T) {
	ast, _, err := Parse(`FLOW "pipeline"
STEP load =
  LOAD TABLE sales
STEP top =
  TAKE 5
END FLOW
`, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	analyzed, err := AnalyzeAll(ast)
	if err != nil {
		t.Fatalf("AnalyzeAll() error: %v", err)
	}
	if len(analyzed) != 2 {
		t.Fatalf("len(analyzed) = %d, want 2", len(analyzed))
	}

	// TAKE без FROM подхватывает непосредственно предшествующий шаг
	tk := analyzed[1].Op.(TakeOp)
	if tk.Source != "load" {
		t.Errorf("TakeOp.Source = %q, want %q", tk.Source, "load")
	}
	if !reflect.DeepEqual(analyzed[1].Deps, []string{"load"}) {
		t.Errorf("Deps = %v, want [load]", analyzed[1].Deps)
	}
}

func TestCompile(t *testing.T) {
	res := Compile(sampleFlow, true)
	if !res.OK {
		t.Fatalf("Compile failed: %v", res.Errors)
	}
	if res.AST == nil || len(res.AST.Steps) != 3 {
		t.Errorf("Result = %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}
}

func TestCompileError(t *testing.T) {
	res := Compile(`FLOW "bad"
STEP u =
  FROBNICATE
END FLOW
`, true)
	if res.OK {
		t.Fatalf("Compile succeeded, want failure")
	}
	if len(res.Errors) == 0 {
		t.Errorf("Errors is empty")
	}
}
