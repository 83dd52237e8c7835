package flow

// OpKind — вид операции шага.
type OpKind string

// Закрытое множество операций. Добавление операции — это новый
// вариант здесь, новая структура ниже и новая ветка в analyzer
// и в engine; компилятор не даст забыть ветку в exhaustive switch.
const (
	OpLoadTable      OpKind = "load-table"
	OpLoadCSV        OpKind = "load-csv"
	OpFilter         OpKind = "filter"
	OpGroupAggregate OpKind = "group-aggregate"
	OpSort           OpKind = "sort"
	OpTake           OpKind = "take"
	OpRunAgent       OpKind = "run-agent"
	OpExternalExec   OpKind = "external-exec"
	OpBuildPackage   OpKind = "build-package"
	OpDeployService  OpKind = "deploy-service"
	OpRunBytecode    OpKind = "run-bytecode"
	OpCallFlow       OpKind = "call-subworkflow"
	OpOutput         OpKind = "output"
	OpOutputText     OpKind = "output-text"
)

// Operation — типизированный дескриптор операции шага (tagged union).
//
// Каждый вариант несёт только поля своей операции. Дескриптор
// неизменяем и производится ровно один раз из Step.
type Operation interface {
	Kind() OpKind
	isOperation()
}

// LoadTableOp — `LOAD TABLE <name>`: чтение таблицы из внешнего хранилища.
type LoadTableOp struct {
	Table string
}

// LoadCSVOp — `LOAD CSV FROM <name>`: чтение CSV-источника по имени
// внешнего входа.
type LoadCSVOp struct {
	Source string
}

// FilterOp — `FILTER <source> WHERE <field> <op> <value>`.
type FilterOp struct {
	Source string
	Field  string
	Op     string // >, >=, <, <=, ==, !=
	Value  any    // число или строка
}

// AggFunc — агрегатная функция.
type AggFunc string

const (
	// AggCount — count(*): количество строк в группе.
	AggCount AggFunc = "count"

	// AggSum — сумма значений поля в группе.
	AggSum AggFunc = "sum"
)

// Aggregation — одна AGG-строка GROUP-шага.
type Aggregation struct {
	Func  AggFunc
	Field string // пусто для count(*)
	Alias string
}

// GroupAggregateOp — `GROUP <source> BY <field>` + AGG-строки.
type GroupAggregateOp struct {
	Source  string
	GroupBy string
	Aggs    []Aggregation
}

// SortOp — `SORT <source> BY <field> [ASC|DESC]` с опциональной
// TAKE-продолжающей строкой, свёрнутой в Limit.
type SortOp struct {
	Source string
	Field  string
	Desc   bool
	Limit  int // 0 = без ограничения
}

// TakeOp — `TAKE <n> [FROM <source>]`.
type TakeOp struct {
	Source string
	N      int
}

// RunAgentOp — `RUN AGENT "<name>" [WITH <payload>]`.
type RunAgentOp struct {
	Agent   string
	Payload map[string]any
}

// ExternalExecOp — `APX_EXEC "<target>" WITH <payload>`.
// Target — запрос к внешней системе, opaque для ядра.
type ExternalExecOp struct {
	Target  string
	Payload any // допустим любой литерал
}

// BuildPackageOp — `BUILD_VPKG <ref>`.
type BuildPackageOp struct {
	Ref string
}

// DeployServiceOp — `DEPLOY_SERVICE <ref> "<name>"`.
type DeployServiceOp struct {
	Ref  string
	Name string
}

// RunBytecodeOp — `RUN VASM "<program>" WITH <payload>`.
// Выполнение bytecode вне ядра; здесь это first-class вид узла,
// который engine обязан маршрутизировать.
type RunBytecodeOp struct {
	Program string
	Input   map[string]any
}

// CallFlowOp — `CALL FLOW "<path>" WITH <payload>`: вызов
// под-workflow по пути.
type CallFlowOp struct {
	Path   string
	Inputs map[string]any
}

// OutputOp — `OUTPUT <source> [AS "<label>"]`.
type OutputOp struct {
	Source string
	Label  string // пусто = имя шага
}

// OutputTextOp — `OUTPUT_TEXT <literal>`.
type OutputTextOp struct {
	Value any
}

func (LoadTableOp) Kind() OpKind      { return OpLoadTable }
func (LoadCSVOp) Kind() OpKind        { return OpLoadCSV }
func (FilterOp) Kind() OpKind         { return OpFilter }
func (GroupAggregateOp) Kind() OpKind { return OpGroupAggregate }
func (SortOp) Kind() OpKind           { return OpSort }
func (TakeOp) Kind() OpKind           { return OpTake }
func (RunAgentOp) Kind() OpKind       { return OpRunAgent }
func (ExternalExecOp) Kind() OpKind   { return OpExternalExec }
func (BuildPackageOp) Kind() OpKind   { return OpBuildPackage }
func (DeployServiceOp) Kind() OpKind  { return OpDeployService }
func (RunBytecodeOp) Kind() OpKind    { return OpRunBytecode }
func (CallFlowOp) Kind() OpKind       { return OpCallFlow }
func (OutputOp) Kind() OpKind         { return OpOutput }
func (OutputTextOp) Kind() OpKind     { return OpOutputText }

func (LoadTableOp) isOperation()      {}
func (LoadCSVOp) isOperation()        {}
func (FilterOp) isOperation()         {}
func (GroupAggregateOp) isOperation() {}
func (SortOp) isOperation()           {}
func (TakeOp) isOperation()           {}
func (RunAgentOp) isOperation()       {}
func (ExternalExecOp) isOperation()   {}
func (BuildPackageOp) isOperation()   {}
func (DeployServiceOp) isOperation()  {}
func (RunBytecodeOp) isOperation()    {}
func (CallFlowOp) isOperation()       {}
func (OutputOp) isOperation()         {}
func (OutputTextOp) isOperation()     {}
