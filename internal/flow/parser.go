package flow

import (
	"fmt"
	"strings"
)

// Маркеры грамматики FLOW-источника. Ключевые слова нечувствительны
// к регистру; сравнение идёт по верхнему регистру.
const (
	headerKeyword    = "FLOW"
	stepKeyword      = "STEP"
	inputsStart      = "INPUTS"
	inputsEnd        = "END INPUTS"
	terminalMarker   = "END FLOW"
	optionalFlag     = "OPTIONAL"
	bodyIndentPrefix = "  " // фиксированный отступ тела шага
)

// Parse разбирает FLOW-источник в AST.
//
// Алгоритм:
//  1. Первая непустая строка обязана быть header'ом `FLOW "<name>"` —
//     её отсутствие является жёсткой ошибкой.
//  2. Опциональный input-блок `INPUTS` ... `END INPUTS`; каждая строка
//     внутри — `type name [optional]`. Искажённые строки дают warning
//     и пропускаются.
//  3. Объявления `STEP <name> =`; строки после объявления до следующего
//     STEP или END FLOW образуют тело шага.
//  4. Отсутствующий `END FLOW` — warning, не ошибка.
//
// Ноль шагов: warning в permissive-режиме, жёсткая ошибка в strict.
func Parse(source string, strict bool) (*WorkflowAst, []string, error) {
	lines := strings.Split(source, "\n")

	ast := &WorkflowAst{}
	var warnings []string

	idx, err := parseHeader(lines, ast)
	if err != nil {
		return nil, warnings, err
	}

	idx = parseInputs(lines, idx, ast, &warnings)

	sawTerminal, err := parseSteps(lines, idx, ast)
	if err != nil {
		return nil, warnings, err
	}
	inferOps(ast)

	if !sawTerminal {
		warnings = append(warnings, "missing END FLOW marker")
	}

	if len(ast.Steps) == 0 {
		if strict {
			return nil, warnings, ErrNoSteps
		}
		warnings = append(warnings, "flow has no steps")
	}

	return ast, warnings, nil
}

// parseHeader находит и разбирает header-строку.
// Возвращает индекс строки, следующей за header'ом.
func parseHeader(lines []string, ast *WorkflowAst) (int, error) {
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		if !strings.HasPrefix(upper, headerKeyword+" ") && upper != headerKeyword {
			return 0, fmt.Errorf("%w: first line is %q", ErrMissingHeader, line)
		}

		name := strings.TrimSpace(line[len(headerKeyword):])
		ast.Name = unquote(name)
		if ast.Name == "" {
			return 0, fmt.Errorf("%w: header has no name", ErrMissingHeader)
		}
		return i + 1, nil
	}
	return 0, ErrMissingHeader
}

// parseInputs разбирает опциональный input-блок.
// Возвращает индекс первой строки после блока (или idx, если блока нет).
func parseInputs(lines []string, idx int, ast *WorkflowAst, warnings *[]string) int {
	i := idx
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return idx
	}

	first := strings.ToUpper(strings.TrimSpace(lines[i]))
	if strings.TrimSuffix(first, ":") != inputsStart {
		return idx
	}
	i++

	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.ToUpper(line) == inputsEnd {
			i++
			break
		}

		decl, ok := parseInputDecl(line)
		if !ok {
			*warnings = append(*warnings,
				fmt.Sprintf("line %d: malformed input declaration %q, skipped", i+1, line))
			continue
		}
		ast.Inputs = append(ast.Inputs, decl)
	}

	return i
}

// parseInputDecl разбирает строку `type name [optional]`.
func parseInputDecl(line string) (InputDecl, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return InputDecl{}, false
	}

	decl := InputDecl{Type: fields[0], Name: fields[1]}
	if len(fields) == 3 {
		if !strings.EqualFold(fields[2], optionalFlag) && fields[2] != "?" {
			return InputDecl{}, false
		}
		decl.Optional = true
	}
	return decl, true
}

// parseSteps сканирует оставшиеся строки на объявления STEP.
// Возвращает true, если встретился терминальный маркер END FLOW.
func parseSteps(lines []string, idx int, ast *WorkflowAst) (bool, error) {
	var current *Step
	seen := make(map[string]bool)

	flush := func() {
		if current != nil {
			ast.Steps = append(ast.Steps, *current)
			current = nil
		}
	}

	for i := idx; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}

		upper := strings.ToUpper(trimmed)
		if upper == terminalMarker {
			flush()
			return true, nil
		}

		if strings.HasPrefix(upper, stepKeyword+" ") {
			name, rest, err := parseStepDecl(trimmed)
			if err != nil {
				return false, err
			}
			if seen[name] {
				return false, fmt.Errorf("%w: %s", ErrDuplicateStep, name)
			}
			seen[name] = true

			flush()
			current = &Step{Name: name, StartLine: i + 1}
			if rest != "" {
				current.BodyLines = append(current.BodyLines, rest)
			}
			continue
		}

		if current != nil {
			current.BodyLines = append(current.BodyLines, stripBodyIndent(lines[i]))
		}
		// Строки до первого STEP игнорируются.
	}

	flush()
	return false, nil
}

// parseStepDecl разбирает `STEP <name> = [первая строка тела]`.
func parseStepDecl(line string) (name, rest string, err error) {
	body := strings.TrimSpace(line[len(stepKeyword):])
	eq := strings.Index(body, "=")
	if eq < 0 {
		return "", "", fmt.Errorf("%w: step declaration %q has no '='", ErrBadOperationSyntax, line)
	}

	name = strings.TrimSpace(body[:eq])
	if name == "" {
		return "", "", fmt.Errorf("%w: step declaration %q has empty name", ErrBadOperationSyntax, line)
	}

	return name, strings.TrimSpace(body[eq+1:]), nil
}

// stripBodyIndent убирает фиксированный отступ тела шага.
// Строки с иным отступом принимаются как есть (после TrimSpace).
func stripBodyIndent(raw string) string {
	if strings.HasPrefix(raw, bodyIndentPrefix) {
		return strings.TrimRight(raw[len(bodyIndentPrefix):], " \t\r")
	}
	return strings.TrimSpace(raw)
}

// inferOps заполняет InferredOp для всех шагов: первое слово первой
// строки тела в верхнем регистре.
func inferOps(ast *WorkflowAst) {
	for i := range ast.Steps {
		first := ast.Steps[i].FirstLine()
		if first == "" {
			continue
		}
		fields := strings.Fields(first)
		if len(fields) > 0 {
			ast.Steps[i].InferredOp = strings.ToUpper(fields[0])
		}
	}
}

// unquote снимает обрамляющие кавычки, если они есть.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
