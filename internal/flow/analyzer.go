package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// AnalyzedStep — шаг с разобранным дескриптором операции.
type AnalyzedStep struct {
	// Step — исходный шаг.
	Step *Step

	// Op — типизированный дескриптор операции.
	Op Operation

	// Deps — имена upstream-шагов, чьи выходы читает операция.
	Deps []string
}

// AnalyzeAll анализирует все шаги AST по порядку.
//
// Порядок важен: TAKE без FROM зависит от непосредственно
// предшествующего шага.
func AnalyzeAll(ast *WorkflowAst) ([]AnalyzedStep, error) {
	analyzed := make([]AnalyzedStep, 0, len(ast.Steps))

	prev := ""
	for i := range ast.Steps {
		step := &ast.Steps[i]

		op, deps, err := AnalyzeStep(step, prev)
		if err != nil {
			return nil, err
		}

		analyzed = append(analyzed, AnalyzedStep{Step: step, Op: op, Deps: deps})
		prev = step.Name
	}

	return analyzed, nil
}

// AnalyzeStep разбирает тело шага в дескриптор операции и список
// зависимостей.
//
// Диспетчеризация — по ключевому префиксу первой строки тела,
// нечувствительно к регистру, в фиксированном порядке приоритета
// (составные ключевые слова раньше одиночных, OUTPUT_TEXT раньше
// OUTPUT, SORT раньше TAKE-продолжения).
//
// prevStep — имя непосредственно предшествующего шага ("" для первого);
// используется TAKE без FROM.
//
// Любая ошибка несёт имя шага.
func AnalyzeStep(step *Step, prevStep string) (Operation, []string, error) {
	first := step.FirstLine()
	if first == "" {
		return nil, nil, NewSyntaxError(step.Name, "step has empty body", ErrBadOperationSyntax)
	}

	upper := strings.ToUpper(first)
	switch {
	case strings.HasPrefix(upper, "RUN AGENT"):
		return analyzeRunAgent(step)
	case strings.HasPrefix(upper, "RUN VASM"):
		return analyzeRunBytecode(step)
	case strings.HasPrefix(upper, "APX_EXEC"):
		return analyzeExternalExec(step)
	case strings.HasPrefix(upper, "BUILD_VPKG"):
		return analyzeBuildPackage(step)
	case strings.HasPrefix(upper, "DEPLOY_SERVICE"):
		return analyzeDeployService(step)
	case strings.HasPrefix(upper, "CALL FLOW"):
		return analyzeCallFlow(step)
	case strings.HasPrefix(upper, "LOAD"):
		return analyzeLoad(step)
	case strings.HasPrefix(upper, "FILTER"):
		return analyzeFilter(step)
	case strings.HasPrefix(upper, "GROUP"):
		return analyzeGroup(step)
	case strings.HasPrefix(upper, "SORT"):
		return analyzeSort(step)
	case strings.HasPrefix(upper, "OUTPUT_TEXT"):
		return analyzeOutputText(step)
	case strings.HasPrefix(upper, "OUTPUT"):
		return analyzeOutput(step)
	case strings.HasPrefix(upper, "TAKE"):
		return analyzeTake(step, prevStep)
	default:
		return nil, nil, NewSyntaxError(step.Name,
			fmt.Sprintf("unrecognized operation in %q", first), ErrUnknownOperation)
	}
}

// analyzeLoad — `LOAD TABLE <name>` или `LOAD CSV FROM <name>`.
func analyzeLoad(step *Step) (Operation, []string, error) {
	fields := strings.Fields(step.FirstLine())

	switch {
	case len(fields) == 3 && strings.EqualFold(fields[1], "TABLE"):
		return LoadTableOp{Table: unquote(fields[2])}, nil, nil

	case len(fields) == 4 && strings.EqualFold(fields[1], "CSV") && strings.EqualFold(fields[2], "FROM"):
		return LoadCSVOp{Source: unquote(fields[3])}, nil, nil

	default:
		return nil, nil, NewSyntaxError(step.Name,
			"expected LOAD TABLE <name> or LOAD CSV FROM <name>", ErrBadOperationSyntax)
	}
}

// Операторы сравнения FILTER.
var filterOps = map[string]bool{
	">": true, ">=": true, "<": true, "<=": true, "==": true, "!=": true,
}

// analyzeFilter — `FILTER <source> WHERE <field> <op> <value>`.
func analyzeFilter(step *Step) (Operation, []string, error) {
	fields := strings.Fields(step.FirstLine())
	if len(fields) < 6 || !strings.EqualFold(fields[2], "WHERE") {
		return nil, nil, NewSyntaxError(step.Name,
			"expected FILTER <source> WHERE <field> <op> <value>", ErrBadOperationSyntax)
	}

	op := fields[4]
	if !filterOps[op] {
		return nil, nil, NewSyntaxError(step.Name,
			fmt.Sprintf("unsupported comparison operator %q", op), ErrBadOperationSyntax)
	}

	source := fields[1]
	value := parseScalar(strings.Join(fields[5:], " "))

	return FilterOp{
		Source: source,
		Field:  fields[3],
		Op:     op,
		Value:  value,
	}, []string{source}, nil
}

// analyzeGroup — `GROUP <source> BY <field>` + одна или более AGG-строк.
func analyzeGroup(step *Step) (Operation, []string, error) {
	fields := strings.Fields(step.FirstLine())
	if len(fields) != 4 || !strings.EqualFold(fields[2], "BY") {
		return nil, nil, NewSyntaxError(step.Name,
			"expected GROUP <source> BY <field>", ErrBadOperationSyntax)
	}

	op := GroupAggregateOp{Source: fields[1], GroupBy: fields[3]}

	for _, line := range step.BodyLines[1:] {
		if !strings.HasPrefix(strings.ToUpper(line), "AGG ") {
			continue
		}

		agg, err := parseAggregation(step.Name, line)
		if err != nil {
			return nil, nil, err
		}
		op.Aggs = append(op.Aggs, agg)
	}

	if len(op.Aggs) == 0 {
		return nil, nil, NewSyntaxError(step.Name, "no AGG lines", ErrMissingAggregation)
	}

	return op, []string{op.Source}, nil
}

// parseAggregation разбирает `AGG count(*) AS <alias>` или
// `AGG <field> AS <alias>` (любое поле — суммирование).
func parseAggregation(stepName, line string) (Aggregation, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || !strings.EqualFold(fields[2], "AS") {
		return Aggregation{}, NewSyntaxError(stepName,
			fmt.Sprintf("expected AGG <expr> AS <alias>, got %q", line), ErrBadOperationSyntax)
	}

	expr := fields[1]
	alias := fields[3]

	if strings.EqualFold(expr, "count(*)") {
		return Aggregation{Func: AggCount, Alias: alias}, nil
	}
	return Aggregation{Func: AggSum, Field: expr, Alias: alias}, nil
}

// analyzeSort — `SORT <source> BY <field> [ASC|DESC]` с опциональной
// продолжающей строкой `TAKE <n>`, свёрнутой в Limit того же дескриптора.
func analyzeSort(step *Step) (Operation, []string, error) {
	fields := strings.Fields(step.FirstLine())
	if len(fields) < 4 || len(fields) > 5 || !strings.EqualFold(fields[2], "BY") {
		return nil, nil, NewSyntaxError(step.Name,
			"expected SORT <source> BY <field> [ASC|DESC]", ErrBadOperationSyntax)
	}

	op := SortOp{Source: fields[1], Field: fields[3]}

	if len(fields) == 5 {
		switch strings.ToUpper(fields[4]) {
		case "ASC":
		case "DESC":
			op.Desc = true
		default:
			return nil, nil, NewSyntaxError(step.Name,
				fmt.Sprintf("expected ASC or DESC, got %q", fields[4]), ErrBadOperationSyntax)
		}
	}

	// TAKE-продолжение на следующей строке тела.
	for _, line := range step.BodyLines[1:] {
		parts := strings.Fields(line)
		if len(parts) == 2 && strings.EqualFold(parts[0], "TAKE") {
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 0 {
				return nil, nil, NewSyntaxError(step.Name,
					fmt.Sprintf("invalid TAKE count %q", parts[1]), ErrBadOperationSyntax)
			}
			op.Limit = n
			break
		}
	}

	return op, []string{op.Source}, nil
}

// analyzeTake — `TAKE <n> [FROM <source>]`.
//
// Без FROM зависимость — непосредственно предшествующий шаг в порядке
// источника (позиционное поведение сохранено для совместимости);
// TAKE самым первым шагом — жёсткая ошибка.
func analyzeTake(step *Step, prevStep string) (Operation, []string, error) {
	fields := strings.Fields(step.FirstLine())
	if len(fields) != 2 && len(fields) != 4 {
		return nil, nil, NewSyntaxError(step.Name,
			"expected TAKE <n> [FROM <source>]", ErrBadOperationSyntax)
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return nil, nil, NewSyntaxError(step.Name,
			fmt.Sprintf("invalid TAKE count %q", fields[1]), ErrBadOperationSyntax)
	}

	source := ""
	if len(fields) == 4 {
		if !strings.EqualFold(fields[2], "FROM") {
			return nil, nil, NewSyntaxError(step.Name,
				"expected TAKE <n> FROM <source>", ErrBadOperationSyntax)
		}
		source = fields[3]
	} else {
		if prevStep == "" {
			return nil, nil, NewSyntaxError(step.Name,
				"TAKE without FROM as the first step", ErrTakeWithoutSource)
		}
		source = prevStep
	}

	return TakeOp{Source: source, N: n}, []string{source}, nil
}

// analyzeRunAgent — `RUN AGENT "<name>" [WITH <payload>]`.
func analyzeRunAgent(step *Step) (Operation, []string, error) {
	head, payloadText := splitWith(step)

	fields := splitFields(head)
	if len(fields) != 3 {
		return nil, nil, NewSyntaxError(step.Name,
			`expected RUN AGENT "<name>"`, ErrBadOperationSyntax)
	}

	payload, err := objectPayload(step.Name, payloadText, false)
	if err != nil {
		return nil, nil, err
	}

	return RunAgentOp{Agent: unquote(fields[2]), Payload: payload}, nil, nil
}

// analyzeRunBytecode — `RUN VASM "<program>" WITH <payload>`.
func analyzeRunBytecode(step *Step) (Operation, []string, error) {
	head, payloadText := splitWith(step)

	fields := splitFields(head)
	if len(fields) != 3 {
		return nil, nil, NewSyntaxError(step.Name,
			`expected RUN VASM "<program>"`, ErrBadOperationSyntax)
	}

	payload, err := objectPayload(step.Name, payloadText, true)
	if err != nil {
		return nil, nil, err
	}

	return RunBytecodeOp{Program: unquote(fields[2]), Input: payload}, nil, nil
}

// analyzeExternalExec — `APX_EXEC "<target>" WITH <payload>`.
// Payload — любой литерал.
func analyzeExternalExec(step *Step) (Operation, []string, error) {
	head, payloadText := splitWith(step)

	fields := splitFields(head)
	if len(fields) != 2 {
		return nil, nil, NewSyntaxError(step.Name,
			`expected APX_EXEC "<target>" WITH <payload>`, ErrBadOperationSyntax)
	}

	if payloadText == "" {
		return nil, nil, NewSyntaxError(step.Name, "missing WITH payload", ErrBadOperationSyntax)
	}
	payload, err := ParseLiteral(payloadText)
	if err != nil {
		return nil, nil, NewSyntaxError(step.Name, err.Error(), err)
	}

	return ExternalExecOp{Target: unquote(fields[1]), Payload: payload}, nil, nil
}

// analyzeBuildPackage — `BUILD_VPKG <ref>`.
func analyzeBuildPackage(step *Step) (Operation, []string, error) {
	fields := strings.Fields(step.FirstLine())
	if len(fields) != 2 {
		return nil, nil, NewSyntaxError(step.Name,
			"expected BUILD_VPKG <ref>", ErrBadOperationSyntax)
	}
	return BuildPackageOp{Ref: unquote(fields[1])}, nil, nil
}

// analyzeDeployService — `DEPLOY_SERVICE <ref> "<name>"`.
func analyzeDeployService(step *Step) (Operation, []string, error) {
	fields := splitFields(step.FirstLine())
	if len(fields) != 3 {
		return nil, nil, NewSyntaxError(step.Name,
			`expected DEPLOY_SERVICE <ref> "<name>"`, ErrBadOperationSyntax)
	}
	return DeployServiceOp{Ref: unquote(fields[1]), Name: unquote(fields[2])}, nil, nil
}

// analyzeCallFlow — `CALL FLOW "<path>" WITH <payload>`.
func analyzeCallFlow(step *Step) (Operation, []string, error) {
	head, payloadText := splitWith(step)

	fields := splitFields(head)
	if len(fields) != 3 {
		return nil, nil, NewSyntaxError(step.Name,
			`expected CALL FLOW "<path>"`, ErrBadOperationSyntax)
	}

	inputs, err := objectPayload(step.Name, payloadText, true)
	if err != nil {
		return nil, nil, err
	}

	return CallFlowOp{Path: unquote(fields[2]), Inputs: inputs}, nil, nil
}

// analyzeOutput — `OUTPUT <source> [AS "<label>"]`.
func analyzeOutput(step *Step) (Operation, []string, error) {
	fields := splitFields(step.FirstLine())

	op := OutputOp{}
	switch {
	case len(fields) == 2:
		op.Source = fields[1]
	case len(fields) == 4 && strings.EqualFold(fields[2], "AS"):
		op.Source = fields[1]
		op.Label = unquote(fields[3])
	default:
		return nil, nil, NewSyntaxError(step.Name,
			`expected OUTPUT <source> [AS "<label>"]`, ErrBadOperationSyntax)
	}

	return op, []string{op.Source}, nil
}

// analyzeOutputText — `OUTPUT_TEXT <literal>`.
func analyzeOutputText(step *Step) (Operation, []string, error) {
	rest := strings.TrimSpace(step.FirstLine()[len("OUTPUT_TEXT"):])
	if len(step.BodyLines) > 1 {
		rest += "\n" + strings.Join(step.BodyLines[1:], "\n")
	}

	value, err := ParseLiteral(rest)
	if err != nil {
		return nil, nil, NewSyntaxError(step.Name, err.Error(), err)
	}

	return OutputTextOp{Value: value}, nil, nil
}

// splitWith извлекает WITH-блок из тела шага.
//
// WITH может стоять inline на строке объявления или начинать одну из
// последующих строк тела; сырой текст блока отдаётся ParseLiteral.
// Возвращает первую строку без WITH-части и сырой текст payload
// ("" если WITH нет).
func splitWith(step *Step) (head, payload string) {
	first := step.FirstLine()

	rest := strings.Join(step.BodyLines[1:], "\n")

	idx, trailing := withIndex(first)
	if idx >= 0 && !trailing {
		head = strings.TrimSpace(first[:idx])
		payload = strings.TrimSpace(first[idx+len(" WITH "):])
		if rest != "" {
			payload += "\n" + rest
		}
		return head, strings.TrimSpace(payload)
	}

	if trailing {
		head = strings.TrimSpace(first[:idx])
		return head, strings.TrimSpace(rest)
	}

	// WITH отдельной строкой тела.
	for i, line := range step.BodyLines[1:] {
		lineUpper := strings.ToUpper(line)
		if lineUpper == "WITH" || strings.HasPrefix(lineUpper, "WITH ") {
			payload = strings.TrimSpace(line[len("WITH"):])
			tail := step.BodyLines[i+2:]
			if len(tail) > 0 {
				payload += "\n" + strings.Join(tail, "\n")
			}
			return first, strings.TrimSpace(payload)
		}
	}

	return first, ""
}

// withIndex ищет ключевое слово WITH на строке объявления вне
// кавычек: слово "with" внутри строкового литерала цели ключевым
// словом не является. Возвращает позицию и trailing=true, если WITH
// завершает строку (payload тогда в теле шага).
func withIndex(line string) (idx int, trailing bool) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case ' ':
			if i+6 <= len(line) && strings.EqualFold(line[i:i+6], " WITH ") {
				return i, false
			}
			if i+5 == len(line) && strings.EqualFold(line[i:], " WITH") {
				return i, true
			}
		}
	}
	return -1, false
}

// splitFields разбивает строку на поля по пробелам, не разрывая
// закавыченные сегменты: `RUN AGENT "chat with me"` — три поля.
func splitFields(s string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == ' ' || c == '\t':
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// objectPayload разбирает WITH-блок и требует объектный литерал.
// При required=false отсутствующий блок допустим (возвращается nil).
func objectPayload(stepName, payloadText string, required bool) (map[string]any, error) {
	if payloadText == "" {
		if required {
			return nil, NewSyntaxError(stepName, "missing WITH payload", ErrBadOperationSyntax)
		}
		return nil, nil
	}

	value, err := ParseLiteral(payloadText)
	if err != nil {
		return nil, NewSyntaxError(stepName, err.Error(), err)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, NewSyntaxError(stepName,
			fmt.Sprintf("payload is %T, not an object", value), ErrPayloadNotObject)
	}
	return obj, nil
}

// parseScalar разбирает значение сравнения FILTER: число, если
// числовое, иначе строка (кавычки опциональны, но снимаются).
func parseScalar(text string) any {
	text = strings.TrimSpace(text)

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return unquote(text)
}
