package flow

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseLiteral разбирает текстовый фрагмент в структурное значение.
//
// Поддерживаются: строки ("..." или '...'), числа (целые и десятичные,
// ведущий '-' допустим), true/false, null, объекты {key: value, ...}
// (ключи — bare идентификаторы или строки в кавычках), массивы [v, ...]
// и bare идентификаторы (возвращаются как строки).
//
// Дополнительно принимается список присваиваний верхнего уровня
// `key = value, key = value` — возвращается как объект.
//
// Комментарии `//` до конца строки и пробелы пропускаются.
// Незакрытый объект/массив/строка — жёсткая ошибка.
//
// Парсер детерминирован и не имеет побочных эффектов: одинаковый
// текст всегда даёт одинаковое значение.
func ParseLiteral(text string) (any, error) {
	p := &literalParser{input: []rune(text)}

	p.skipSpace()
	if p.eof() {
		return nil, ErrEmptyLiteral
	}

	// Список присваиваний верхнего уровня: `key = value, ...`
	if p.looksLikeAssignments() {
		return p.parseAssignments()
	}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if !p.eof() {
		return nil, fmt.Errorf("%w: trailing characters at offset %d", ErrBadLiteral, p.pos)
	}
	return value, nil
}

// literalParser — состояние recursive-descent парсера.
type literalParser struct {
	input []rune
	pos   int
}

func (p *literalParser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *literalParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

// skipSpace пропускает пробелы и `//`-комментарии до конца строки.
func (p *literalParser) skipSpace() {
	for !p.eof() {
		ch := p.input[p.pos]
		if unicode.IsSpace(ch) {
			p.pos++
			continue
		}
		if ch == '/' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '/' {
			for !p.eof() && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		return
	}
}

// looksLikeAssignments проверяет, начинается ли вход с `ident =`
// (но не `==`), что означает список присваиваний верхнего уровня.
func (p *literalParser) looksLikeAssignments() bool {
	i := p.pos
	if i >= len(p.input) || !isIdentStart(p.input[i]) {
		return false
	}
	for i < len(p.input) && isIdentPart(p.input[i]) {
		i++
	}
	for i < len(p.input) && (p.input[i] == ' ' || p.input[i] == '\t') {
		i++
	}
	return i < len(p.input) && p.input[i] == '=' &&
		(i+1 >= len(p.input) || p.input[i+1] != '=')
}

// parseAssignments разбирает `key = value, key = value` в объект.
func (p *literalParser) parseAssignments() (any, error) {
	result := make(map[string]any)

	for {
		p.skipSpace()
		if p.eof() {
			break
		}

		key, err := p.parseIdent()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.peek() != '=' {
			return nil, fmt.Errorf("%w: expected '=' after %q", ErrBadLiteral, key)
		}
		p.pos++

		p.skipSpace()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		result[key] = value

		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if !p.eof() {
			return nil, fmt.Errorf("%w: expected ',' at offset %d", ErrBadLiteral, p.pos)
		}
		break
	}

	return result, nil
}

// parseValue разбирает одно значение любого вида.
func (p *literalParser) parseValue() (any, error) {
	p.skipSpace()
	if p.eof() {
		return nil, ErrEmptyLiteral
	}

	switch ch := p.peek(); {
	case ch == '{':
		return p.parseObject()
	case ch == '[':
		return p.parseArray()
	case ch == '"' || ch == '\'':
		return p.parseString()
	case ch == '-' || unicode.IsDigit(ch):
		return p.parseNumber()
	default:
		return p.parseBareToken()
	}
}

// parseObject разбирает `{ key: value, ... }`.
func (p *literalParser) parseObject() (any, error) {
	p.pos++ // '{'
	result := make(map[string]any)

	for {
		p.skipSpace()
		if p.eof() {
			return nil, ErrUnterminatedObject
		}
		if p.peek() == '}' {
			p.pos++
			return result, nil
		}

		var key string
		var err error
		if ch := p.peek(); ch == '"' || ch == '\'' {
			var s any
			s, err = p.parseString()
			if err != nil {
				return nil, err
			}
			key = s.(string)
		} else {
			key, err = p.parseIdent()
			if err != nil {
				return nil, err
			}
		}

		p.skipSpace()
		if p.peek() != ':' {
			return nil, fmt.Errorf("%w: expected ':' after key %q", ErrBadLiteral, key)
		}
		p.pos++

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		result[key] = value

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			// закрывающая скобка обработается на следующей итерации
		default:
			if p.eof() {
				return nil, ErrUnterminatedObject
			}
			return nil, fmt.Errorf("%w: expected ',' or '}' at offset %d", ErrBadLiteral, p.pos)
		}
	}
}

// parseArray разбирает `[ value, ... ]`.
func (p *literalParser) parseArray() (any, error) {
	p.pos++ // '['
	result := make([]any, 0)

	for {
		p.skipSpace()
		if p.eof() {
			return nil, ErrUnterminatedArray
		}
		if p.peek() == ']' {
			p.pos++
			return result, nil
		}

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		result = append(result, value)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			if p.eof() {
				return nil, ErrUnterminatedArray
			}
			return nil, fmt.Errorf("%w: expected ',' or ']' at offset %d", ErrBadLiteral, p.pos)
		}
	}
}

// parseString разбирает строку в двойных или одинарных кавычках.
func (p *literalParser) parseString() (any, error) {
	quote := p.input[p.pos]
	p.pos++

	var sb strings.Builder
	for {
		if p.eof() {
			return nil, ErrUnterminatedString
		}
		ch := p.input[p.pos]
		p.pos++

		if ch == quote {
			return sb.String(), nil
		}
		if ch == '\\' && !p.eof() {
			esc := p.input[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(ch)
	}
}

// parseNumber разбирает целое или десятичное число.
func (p *literalParser) parseNumber() (any, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	hasDot := false
	for !p.eof() {
		ch := p.peek()
		if unicode.IsDigit(ch) {
			p.pos++
			continue
		}
		if ch == '.' && !hasDot {
			hasDot = true
			p.pos++
			continue
		}
		break
	}

	text := string(p.input[start:p.pos])
	if text == "" || text == "-" {
		return nil, fmt.Errorf("%w: invalid number at offset %d", ErrBadLiteral, start)
	}

	if hasDot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadLiteral, text)
		}
		return f, nil
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadLiteral, text)
	}
	return n, nil
}

// parseBareToken разбирает bare идентификатор.
// true/false/null распознаются специально, остальное — opaque строка.
func (p *literalParser) parseBareToken() (any, error) {
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	token := string(p.input[start:p.pos])
	if token == "" {
		return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrBadLiteral, p.peek(), p.pos)
	}

	switch token {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	default:
		return token, nil
	}
}

// parseIdent разбирает идентификатор (ключ объекта или присваивания).
func (p *literalParser) parseIdent() (string, error) {
	if p.eof() || !isIdentStart(p.peek()) {
		return "", fmt.Errorf("%w: expected identifier at offset %d", ErrBadLiteral, p.pos)
	}
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	return string(p.input[start:p.pos]), nil
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.' || ch == '-'
}
