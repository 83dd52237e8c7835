package flow

import "errors"

// Ошибки разбора источника.
var (
	// ErrMissingHeader — первая непустая строка не является header'ом FLOW.
	ErrMissingHeader = errors.New("missing FLOW header")

	// ErrNoSteps — workflow не содержит ни одного шага (strict mode).
	ErrNoSteps = errors.New("flow has no steps")

	// ErrDuplicateStep — несколько шагов с одинаковым именем.
	ErrDuplicateStep = errors.New("duplicate step name")
)

// Ошибки парсера литералов.
var (
	// ErrEmptyLiteral — пустой текст вместо литерала.
	ErrEmptyLiteral = errors.New("empty literal")

	// ErrUnterminatedObject — объектный литерал без закрывающей '}'.
	ErrUnterminatedObject = errors.New("unterminated object literal")

	// ErrUnterminatedArray — массив без закрывающей ']'.
	ErrUnterminatedArray = errors.New("unterminated array literal")

	// ErrUnterminatedString — строка без закрывающей кавычки.
	ErrUnterminatedString = errors.New("unterminated string literal")

	// ErrBadLiteral — прочие синтаксические ошибки литерала.
	ErrBadLiteral = errors.New("malformed literal")
)

// Ошибки анализатора операций.
var (
	// ErrUnknownOperation — первая строка шага не совпала ни с одной операцией.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrBadOperationSyntax — строка операции не соответствует её грамматике.
	ErrBadOperationSyntax = errors.New("bad operation syntax")

	// ErrMissingAggregation — GROUP без единой AGG-строки.
	ErrMissingAggregation = errors.New("group step requires at least one AGG line")

	// ErrTakeWithoutSource — TAKE без FROM в самом первом шаге.
	ErrTakeWithoutSource = errors.New("take has no source: no preceding step")

	// ErrPayloadNotObject — WITH-блок обязан быть объектом для этой операции.
	ErrPayloadNotObject = errors.New("payload must be an object literal")
)

// SyntaxError — ошибка анализа шага с контекстом.
//
// Всегда несёт имя шага, чтобы вызывающая сторона могла указать
// на точное место сбоя без инспекции внутреннего состояния.
type SyntaxError struct {
	Step    string // имя шага
	Message string // описание ошибки
	Err     error  // базовая ошибка (sentinel)
}

// Error реализует интерфейс error.
func (e *SyntaxError) Error() string {
	if e.Step != "" {
		return "step " + e.Step + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// NewSyntaxError создаёт новую ошибку анализа.
func NewSyntaxError(step, message string, err error) *SyntaxError {
	return &SyntaxError{Step: step, Message: message, Err: err}
}
