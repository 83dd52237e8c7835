package flow

// WorkflowAst — результат разбора FLOW-источника.
//
// AST неизменяем после разбора и принадлежит вызывающей стороне.
// Может кэшироваться по тексту источника.
type WorkflowAst struct {
	// Name — имя workflow из header-строки.
	Name string `json:"name"`

	// Inputs — объявленные входные параметры.
	Inputs []InputDecl `json:"inputs,omitempty"`

	// Steps — шаги в порядке объявления.
	Steps []Step `json:"steps"`
}

// InputDecl — объявление входного параметра из input-блока.
type InputDecl struct {
	// Name — имя параметра.
	Name string `json:"name"`

	// Type — объявленный тип ("table", "string", "number", ...).
	// Тип не проверяется компилятором — это подсказка для вызывающей стороны.
	Type string `json:"type"`

	// Optional — параметр можно не передавать.
	Optional bool `json:"optional,omitempty"`
}

// Step — один именованный шаг workflow.
//
// Производится Step Parser'ом; потребляется ровно один раз
// Operation Analyzer'ом.
type Step struct {
	// Name — имя шага, уникальное в рамках workflow.
	Name string `json:"name"`

	// InferredOp — ключевое слово операции, определённое по первой
	// строке тела (ранняя эвристика; точный разбор делает analyzer).
	InferredOp string `json:"inferredOp"`

	// BodyLines — строки тела шага без ведущего отступа, без пустых строк.
	BodyLines []string `json:"bodyLines"`

	// StartLine — номер строки объявления шага в источнике (с 1).
	StartLine int `json:"startLine"`
}

// FirstLine возвращает первую строку тела шага ("" если тело пусто).
func (s *Step) FirstLine() string {
	if len(s.BodyLines) == 0 {
		return ""
	}
	return s.BodyLines[0]
}
