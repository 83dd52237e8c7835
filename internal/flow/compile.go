package flow

// Result — результат компиляции FLOW-источника.
//
// OK == false тогда и только тогда, когда Errors непуст.
// Warnings никогда не блокируют построение plan graph.
type Result struct {
	// OK — компиляция прошла без ошибок.
	OK bool `json:"ok"`

	// AST — разобранный workflow (nil при ошибке разбора).
	AST *WorkflowAst `json:"ast,omitempty"`

	// Warnings — некритичные замечания разбора.
	Warnings []string `json:"warnings,omitempty"`

	// Errors — фатальные ошибки разбора или анализа операций.
	Errors []string `json:"errors,omitempty"`
}

// Compile — compile boundary: источник и флаг строгости на входе,
// {ok, ast, warnings, errors} на выходе.
//
// Помимо разбора прогоняет analyzer по каждому шагу, чтобы ошибки
// синтаксиса операций всплывали синхронно на этапе компиляции,
// а не при построении плана.
func Compile(source string, strict bool) Result {
	ast, warnings, err := Parse(source, strict)
	if err != nil {
		return Result{Warnings: warnings, Errors: []string{err.Error()}}
	}

	result := Result{AST: ast, Warnings: warnings}

	if _, err := AnalyzeAll(ast); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.OK = true
	return result
}
