package flow

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const sampleFlow = `FLOW "daily-report"

INPUTS
  table sales
  string region optional
END INPUTS

STEP load =
  LOAD TABLE sales

STEP filtered =
  FILTER load WHERE amount > 100

STEP result =
  OUTPUT filtered AS "report"

END FLOW
`

func TestParseBasicFlow(t *testing.T) {
	ast, warnings, err := Parse(sampleFlow, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	if ast.Name != "daily-report" {
		t.Errorf("Name = %q, want %q", ast.Name, "daily-report")
	}

	if len(ast.Inputs) != 2 {
		t.Fatalf("len(Inputs) = %d, want 2", len(ast.Inputs))
	}
	if ast.Inputs[0].Type != "table" || ast.Inputs[0].Name != "sales" || ast.Inputs[0].Optional {
		t.Errorf("Inputs[0] = %+v", ast.Inputs[0])
	}
	if !ast.Inputs[1].Optional {
		t.Errorf("Inputs[1].Optional = false, want true")
	}

	if len(ast.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(ast.Steps))
	}
	wantNames := []string{"load", "filtered", "result"}
	for i, name := range wantNames {
		if ast.Steps[i].Name != name {
			t.Errorf("Steps[%d].Name = %q, want %q", i, ast.Steps[i].Name, name)
		}
	}

	if ast.Steps[0].FirstLine() != "LOAD TABLE sales" {
		t.Errorf("Steps[0].FirstLine() = %q", ast.Steps[0].FirstLine())
	}
}

func TestParseInferredOps(t *testing.T) {
	ast, _, err := Parse(sampleFlow, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	wantOps := []string{"LOAD", "FILTER", "OUTPUT"}
	for i, op := range wantOps {
		if ast.Steps[i].InferredOp != op {
			t.Errorf("Steps[%d].InferredOp = %q, want %q", i, ast.Steps[i].InferredOp, op)
		}
	}
}

func TestParseInlineStepBody(t *testing.T) {
	src := `FLOW "inline"
STEP one = LOAD TABLE users
END FLOW
`
	ast, _, err := Parse(src, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ast.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(ast.Steps))
	}
	if got := ast.Steps[0].FirstLine(); got != "LOAD TABLE users" {
		t.Errorf("FirstLine() = %q, want %q", got, "LOAD TABLE users")
	}
}

func TestParseMissingHeader(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty source", ""},
		{"no header line", "STEP one =\n  LOAD TABLE x\nEND FLOW"},
		{"header without name", "FLOW\nEND FLOW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.src, false)
			if !errors.Is(err, ErrMissingHeader) {
				t.Errorf("Parse() error = %v, want ErrMissingHeader", err)
			}
		})
	}
}

func TestParseDuplicateStep(t *testing.T) {
	src := `FLOW "dup"
STEP a =
  LOAD TABLE x
STEP a =
  LOAD TABLE y
END FLOW
`
	_, _, err := Parse(src, false)
	if !errors.Is(err, ErrDuplicateStep) {
		t.Errorf("Parse() error = %v, want ErrDuplicateStep", err)
	}
}

func TestParseMissingEndFlow(t *testing.T) {
	src := `FLOW "open-ended"
STEP a =
  LOAD TABLE x
`
	ast, warnings, err := Parse(src, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ast.Steps) != 1 {
		t.Errorf("len(Steps) = %d, want 1", len(ast.Steps))
	}

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "END FLOW") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want missing END FLOW warning", warnings)
	}
}

func TestParseMalformedInputDecl(t *testing.T) {
	src := `FLOW "bad-inputs"
INPUTS
  justoneword
  table sales
  too many words here
END INPUTS
STEP a =
  LOAD TABLE sales
END FLOW
`
	ast, warnings, err := Parse(src, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	// Искажённые строки пропускаются с warning, валидные сохраняются
	if len(ast.Inputs) != 1 {
		t.Errorf("len(Inputs) = %d, want 1", len(ast.Inputs))
	}
	if len(warnings) != 2 {
		t.Errorf("len(warnings) = %d, want 2: %v", len(warnings), warnings)
	}
}

func TestParseQuestionMarkOptional(t *testing.T) {
	src := `FLOW "q"
INPUTS
  string region ?
END INPUTS
STEP a =
  LOAD TABLE x
END FLOW
`
	ast, _, err := Parse(src, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ast.Inputs) != 1 || !ast.Inputs[0].Optional {
		t.Errorf("Inputs = %+v, want one optional decl", ast.Inputs)
	}
}

func TestParseNoSteps(t *testing.T) {
	src := `FLOW "empty"
END FLOW
`
	// strict: жёсткая ошибка
	_, _, err := Parse(src, true)
	if !errors.Is(err, ErrNoSteps) {
		t.Errorf("strict Parse() error = %v, want ErrNoSteps", err)
	}

	// permissive: warning
	ast, warnings, err := Parse(src, false)
	if err != nil {
		t.Fatalf("permissive Parse() error: %v", err)
	}
	if len(ast.Steps) != 0 {
		t.Errorf("len(Steps) = %d, want 0", len(ast.Steps))
	}
	if len(warnings) == 0 {
		t.Errorf("want warning about no steps, got none")
	}
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	src := `flow "lower"
step a =
  LOAD TABLE x
end flow
`
	ast, _, err := Parse(src, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if ast.Name != "lower" || len(ast.Steps) != 1 {
		t.Errorf("ast = %+v", ast)
	}
}

func TestParseStepDeclWithoutEquals(t *testing.T) {
	src := `FLOW "noeq"
STEP broken
  LOAD TABLE x
END FLOW
`
	_, _, err := Parse(src, false)
	if !errors.Is(err, ErrBadOperationSyntax) {
		t.Errorf("Parse() error = %v, want ErrBadOperationSyntax", err)
	}
}

func TestParseMultilineBody(t *testing.T) {
	src := `FLOW "with-body"
STEP agent =
  RUN AGENT "summarizer" WITH
  { text: "hello" }
END FLOW
`
	ast, _, err := Parse(src, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ast.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(ast.Steps))
	}
	if got := len(ast.Steps[0].BodyLines); got != 2 {
		t.Errorf("len(BodyLines) = %d, want 2: %v", got, ast.Steps[0].BodyLines)
	}
}

func TestParseDeterministic(t *testing.T) {
	first, warnFirst, err := Parse(sampleFlow, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, warnAgain, err := Parse(sampleFlow, true)
		if err != nil {
			t.Fatalf("iteration %d: Parse() error: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) || !reflect.DeepEqual(warnFirst, warnAgain) {
			t.Fatalf("iteration %d: parse output differs", i)
		}
	}
}

func TestParseStartLine(t *testing.T) {
	ast, _, err := Parse(sampleFlow, true)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	// STEP load объявлен на строке 8 источника
	if ast.Steps[0].StartLine != 8 {
		t.Errorf("Steps[0].StartLine = %d, want 8", ast.Steps[0].StartLine)
	}
}
