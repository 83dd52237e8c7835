package grid

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/telemetry"
)

// Вычисление чисел Фибоначчи на grid.
//
// Вся арифметика — точная, на math/big; плавающая точка не используется
// ни на одном шаге, результат корректен для произвольно больших n.
//
// Три задачи:
//   - fib        — fib(n) целиком, fast doubling
//   - fib_matrix — степень матрицы Q = [[1,1],[1,0]] бинарным возведением
//   - fib_split  — рекурсивная декомпозиция: n режется на упорядоченные
//     chunks, каждый chunk — дочерний fib_matrix job; родитель ждёт всех
//     детей, перемножает матрицы в порядке chunks и берёт элемент [1][0]
//     произведения. Q^a * Q^b = Q^(a+b), поэтому произведение в порядке
//     chunks даёт Q^n и fib(n) = Q^n[1][0].

// fibMatrix — матрица 2x2 над big.Int.
type fibMatrix [2][2]*big.Int

// identityMatrix возвращает единичную матрицу.
func identityMatrix() fibMatrix {
	return fibMatrix{
		{big.NewInt(1), big.NewInt(0)},
		{big.NewInt(0), big.NewInt(1)},
	}
}

// baseMatrix возвращает Q = [[1,1],[1,0]].
func baseMatrix() fibMatrix {
	return fibMatrix{
		{big.NewInt(1), big.NewInt(1)},
		{big.NewInt(1), big.NewInt(0)},
	}
}

// matMul возвращает произведение a*b.
func matMul(a, b fibMatrix) fibMatrix {
	var c fibMatrix
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			sum := new(big.Int)
			for k := 0; k < 2; k++ {
				sum.Add(sum, new(big.Int).Mul(a[i][k], b[k][j]))
			}
			c[i][j] = sum
		}
	}
	return c
}

// matPow возвращает Q^n бинарным возведением в степень: O(log n) умножений.
func matPow(n uint64) fibMatrix {
	result := identityMatrix()
	base := baseMatrix()
	for n > 0 {
		if n&1 == 1 {
			result = matMul(result, base)
		}
		base = matMul(base, base)
		n >>= 1
	}
	return result
}

// fibFastDoubling возвращает fib(n) методом fast doubling.
//
// Инвариант шага: из пары (fib(k), fib(k+1)) получаем
// fib(2k) = fib(k)*(2*fib(k+1) - fib(k)) и fib(2k+1) = fib(k)^2 + fib(k+1)^2.
func fibFastDoubling(n uint64) *big.Int {
	a := big.NewInt(0) // fib(k)
	b := big.NewInt(1) // fib(k+1)

	for bit := 63; bit >= 0; bit-- {
		t1 := new(big.Int).Lsh(b, 1) // 2*fib(k+1)
		t1.Sub(t1, a)
		c := new(big.Int).Mul(a, t1) // fib(2k)
		d := new(big.Int).Mul(a, a)  // fib(2k+1)
		d.Add(d, new(big.Int).Mul(b, b))

		if n&(1<<uint(bit)) != 0 {
			a = d
			b = new(big.Int).Add(c, d)
		} else {
			a = c
			b = d
		}
	}
	return a
}

// splitChunks режет n на упорядоченные части размером не более chunkSize.
// Сумма частей равна n; порядок частей значим для последующего combine.
func splitChunks(n, chunkSize uint64) []uint64 {
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	var chunks []uint64
	for n > 0 {
		c := chunkSize
		if n < c {
			c = n
		}
		chunks = append(chunks, c)
		n -= c
	}
	return chunks
}

const defaultChunkSize = 500

// fibHandler — задача fib: fib(n) одним воркером, fast doubling.
func fibHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	n, err := uintParam(job.Params, "n")
	if err != nil {
		return nil, fmt.Errorf("fib job %s: %w", job.ID, err)
	}
	return map[string]any{
		"n":   n,
		"fib": fibFastDoubling(n).String(),
	}, nil
}

// fibMatrixHandler — задача fib_matrix: Q^power как матрица decimal-строк.
func fibMatrixHandler(_ context.Context, job *domain.GridJob) (map[string]any, error) {
	power, err := uintParam(job.Params, "power")
	if err != nil {
		return nil, fmt.Errorf("fib_matrix job %s: %w", job.ID, err)
	}
	m := matPow(power)
	return map[string]any{
		"power":  power,
		"matrix": matrixToStrings(m),
	}, nil
}

// FibSplitHandler — задача fib_split: родительский job декомпозиции.
type FibSplitHandler struct {
	grid *Grid

	// PollInterval и ChildTimeout управляют ожиданием детей.
	PollInterval time.Duration
	ChildTimeout time.Duration
}

// NewFibSplitHandler создаёт handler декомпозиции.
func NewFibSplitHandler(g *Grid) *FibSplitHandler {
	return &FibSplitHandler{
		grid:         g,
		PollInterval: 50 * time.Millisecond,
		ChildTimeout: 2 * time.Minute,
	}
}

// Execute реализует интерфейс Handler.
//
// Порядок фаз: split → submit детей → параллельный await → валидация →
// ordered combine. Любой невалидный ребёнок (чужой project scope или
// статус != SUCCEEDED) прерывает всё вычисление: частичный результат
// не возвращается никогда.
func (h *FibSplitHandler) Execute(ctx context.Context, job *domain.GridJob) (map[string]any, error) {
	n, err := uintParam(job.Params, "n")
	if err != nil {
		return nil, fmt.Errorf("fib_split job %s: %w", job.ID, err)
	}
	chunkSize, err := uintParam(job.Params, "chunkSize")
	if err != nil {
		chunkSize = defaultChunkSize
	}
	workerIDs := stringSliceParam(job.Params, "workerIds")

	// fib(0) = 0: пустая декомпозиция, ни одного ребёнка.
	if n == 0 {
		return map[string]any{
			"n":           uint64(0),
			"fib":         "0",
			"childJobIds": []string{},
		}, nil
	}

	chunks := splitChunks(n, chunkSize)
	logger := telemetry.WithJobID(telemetry.FromContext(ctx), job.ID.String())
	logger.Info("fib_split decomposition",
		"n", n,
		"chunk_size", chunkSize,
		"chunks", len(chunks),
	)

	// Submit детей. Порядок childIDs совпадает с порядком chunks —
	// на нём держится combine.
	childIDs := make([]uuid.UUID, len(chunks))
	for i, chunk := range chunks {
		params := map[string]any{
			"task":  "fib_matrix",
			"power": chunk,
		}
		if len(workerIDs) > 0 {
			params[domain.HintPreferWorkerID] = workerIDs[i%len(workerIDs)]
		}
		childID, err := h.grid.Submit(ctx, job.ProjectScope, domain.JobTypeCustom, params, nil)
		if err != nil {
			return nil, fmt.Errorf("submit child %d: %w", i, err)
		}
		childIDs[i] = childID
	}

	// Параллельный await всех детей.
	children := make([]*domain.GridJob, len(childIDs))
	awaitErrs := make([]error, len(childIDs))
	var wg sync.WaitGroup
	for i, id := range childIDs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			children[i], awaitErrs[i] = h.grid.Await(ctx, id, h.PollInterval, h.ChildTimeout)
		}(i, id)
	}
	wg.Wait()

	// Валидация в порядке chunks: первый невалидный ребёнок называется
	// в ошибке по id и фактическому статусу.
	for i, child := range children {
		if awaitErrs[i] != nil {
			return nil, fmt.Errorf("await child %s: %w", childIDs[i], awaitErrs[i])
		}
		if child.ProjectScope != job.ProjectScope {
			return nil, &ChildJobError{ChildID: child.ID, Status: child.Status, Reason: "has wrong project scope"}
		}
		if child.Status != domain.JobStatusSucceeded {
			return nil, &ChildJobError{ChildID: child.ID, Status: child.Status, Reason: "did not succeed"}
		}
	}

	// Ordered combine: произведение матриц в порядке chunks.
	product := identityMatrix()
	for i, child := range children {
		m, err := matrixFromResult(child.Result)
		if err != nil {
			return nil, fmt.Errorf("child %s result: %w", childIDs[i], err)
		}
		product = matMul(product, m)
	}

	ids := make([]string, len(childIDs))
	for i, id := range childIDs {
		ids[i] = id.String()
	}
	return map[string]any{
		"n":           n,
		"fib":         product[1][0].String(),
		"childJobIds": ids,
	}, nil
}

// --- Param and matrix helpers ---

// uintParam читает неотрицательный целый параметр. Значения приходят
// как int64/uint64 из literal parser или float64 после JSON round-trip.
func uintParam(params map[string]any, key string) (uint64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing param %q", key)
	}
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("param %q is negative", key)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("param %q is negative", key)
		}
		return uint64(n), nil
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("param %q is not a non-negative integer", key)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("param %q has unexpected type %T", key, v)
	}
}

func stringSliceParam(params map[string]any, key string) []string {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	switch vs := raw.(type) {
	case []string:
		return vs
	case []any:
		var out []string
		for _, v := range vs {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// matrixToStrings сериализует матрицу в decimal-строки для result.
func matrixToStrings(m fibMatrix) [][]string {
	out := make([][]string, 2)
	for i := 0; i < 2; i++ {
		out[i] = make([]string, 2)
		for j := 0; j < 2; j++ {
			out[i][j] = m[i][j].String()
		}
	}
	return out
}

// matrixFromResult читает матрицу из result дочернего job.
// После JSON round-trip строки приходят как []any, поэтому обе формы
// ([][]string и []any) допустимы.
func matrixFromResult(result map[string]any) (fibMatrix, error) {
	var m fibMatrix
	raw, ok := result["matrix"]
	if !ok {
		return m, fmt.Errorf("missing matrix")
	}

	rows, err := matrixRows(raw)
	if err != nil {
		return m, err
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v, ok := new(big.Int).SetString(rows[i][j], 10)
			if !ok {
				return m, fmt.Errorf("matrix[%d][%d] is not a decimal integer: %q", i, j, rows[i][j])
			}
			m[i][j] = v
		}
	}
	return m, nil
}

func matrixRows(raw any) ([2][2]string, error) {
	var rows [2][2]string
	switch v := raw.(type) {
	case [][]string:
		if len(v) != 2 || len(v[0]) != 2 || len(v[1]) != 2 {
			return rows, fmt.Errorf("matrix is not 2x2")
		}
		rows[0] = [2]string{v[0][0], v[0][1]}
		rows[1] = [2]string{v[1][0], v[1][1]}
		return rows, nil
	case []any:
		if len(v) != 2 {
			return rows, fmt.Errorf("matrix is not 2x2")
		}
		for i := 0; i < 2; i++ {
			row, ok := v[i].([]any)
			if !ok || len(row) != 2 {
				return rows, fmt.Errorf("matrix row %d is not a pair", i)
			}
			for j := 0; j < 2; j++ {
				s, ok := row[j].(string)
				if !ok {
					return rows, fmt.Errorf("matrix[%d][%d] is not a string", i, j)
				}
				rows[i][j] = s
			}
		}
		return rows, nil
	default:
		return rows, fmt.Errorf("matrix has unexpected type %T", raw)
	}
}
