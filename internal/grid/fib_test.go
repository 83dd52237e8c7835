package grid

import (
	"math/big"
	"testing"
)

// Первые числа Фибоначчи для проверки малых n.
var smallFibs = []string{
	"0", "1", "1", "2", "3", "5", "8", "13", "21", "34", "55",
}

func TestFibFastDoublingSmall(t *testing.T) {
	for n, want := range smallFibs {
		if got := fibFastDoubling(uint64(n)).String(); got != want {
			t.Errorf("fib(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestFibFastDoublingLarge(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{20, "6765"},
		{50, "12586269025"},
		{90, "2880067194370816120"},
		{100, "354224848179261915075"},
	}
	for _, tt := range tests {
		if got := fibFastDoubling(tt.n).String(); got != tt.want {
			t.Errorf("fib(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestMatPowAgreesWithFastDoubling(t *testing.T) {
	// Q^n[1][0] = fib(n) — оба метода обязаны сходиться
	for _, n := range []uint64{0, 1, 2, 3, 10, 64, 100, 513} {
		m := matPow(n)
		if got, want := m[1][0].String(), fibFastDoubling(n).String(); got != want {
			t.Errorf("matPow(%d)[1][0] = %s, fast doubling = %s", n, got, want)
		}
	}
}

func TestMatPowZeroIsIdentity(t *testing.T) {
	m := matPow(0)
	want := [2][2]int64{{1, 0}, {0, 1}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if m[i][j].Cmp(big.NewInt(want[i][j])) != 0 {
				t.Errorf("matPow(0)[%d][%d] = %s, want %d", i, j, m[i][j], want[i][j])
			}
		}
	}
}

func TestMatMulAdditiveProperty(t *testing.T) {
	// Q^a * Q^b = Q^(a+b) — основание ordered combine
	got := matMul(matPow(7), matPow(13))
	want := matPow(20)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got[i][j].Cmp(want[i][j]) != 0 {
				t.Errorf("[%d][%d]: Q^7*Q^13 = %s, Q^20 = %s", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		n, chunkSize uint64
		want         []uint64
	}{
		{0, 10, nil},
		{1, 10, []uint64{1}},
		{10, 10, []uint64{10}},
		{25, 10, []uint64{10, 10, 5}},
		{100, 1, nil}, // длина проверяется отдельно ниже
	}

	for _, tt := range tests {
		got := splitChunks(tt.n, tt.chunkSize)

		var sum uint64
		for _, c := range got {
			if c == 0 || c > tt.chunkSize {
				t.Errorf("splitChunks(%d, %d): chunk %d out of range", tt.n, tt.chunkSize, c)
			}
			sum += c
		}
		if sum != tt.n {
			t.Errorf("splitChunks(%d, %d): sum = %d", tt.n, tt.chunkSize, sum)
		}
		if tt.want != nil && len(got) != len(tt.want) {
			t.Errorf("splitChunks(%d, %d) = %v, want %v", tt.n, tt.chunkSize, got, tt.want)
		}
	}

	if got := splitChunks(100, 1); len(got) != 100 {
		t.Errorf("splitChunks(100, 1): len = %d, want 100", len(got))
	}

	// chunkSize=0 подменяется дефолтом
	if got := splitChunks(3, 0); len(got) != 1 || got[0] != 3 {
		t.Errorf("splitChunks(3, 0) = %v", got)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	m := matPow(42)

	// Прямая форма [][]string
	got, err := matrixFromResult(map[string]any{"matrix": matrixToStrings(m)})
	if err != nil {
		t.Fatalf("matrixFromResult error: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got[i][j].Cmp(m[i][j]) != 0 {
				t.Errorf("[%d][%d] = %s, want %s", i, j, got[i][j], m[i][j])
			}
		}
	}

	// Форма после JSON round-trip: []any из []any
	rows := matrixToStrings(m)
	asAny := []any{
		[]any{rows[0][0], rows[0][1]},
		[]any{rows[1][0], rows[1][1]},
	}
	got, err = matrixFromResult(map[string]any{"matrix": asAny})
	if err != nil {
		t.Fatalf("matrixFromResult ([]any form) error: %v", err)
	}
	if got[1][0].Cmp(m[1][0]) != 0 {
		t.Errorf("[1][0] = %s, want %s", got[1][0], m[1][0])
	}
}

func TestMatrixFromResultErrors(t *testing.T) {
	if _, err := matrixFromResult(map[string]any{}); err == nil {
		t.Errorf("want error for missing matrix")
	}
	if _, err := matrixFromResult(map[string]any{"matrix": "nope"}); err == nil {
		t.Errorf("want error for wrong type")
	}
	if _, err := matrixFromResult(map[string]any{"matrix": [][]string{{"1"}}}); err == nil {
		t.Errorf("want error for non-2x2 matrix")
	}
	if _, err := matrixFromResult(map[string]any{"matrix": [][]string{{"1", "x"}, {"1", "0"}}}); err == nil {
		t.Errorf("want error for non-decimal cell")
	}
}

func TestUintParam(t *testing.T) {
	params := map[string]any{
		"u64":      uint64(7),
		"i64":      int64(8),
		"int":      9,
		"f64":      float64(10),
		"negative": int64(-1),
		"frac":     1.5,
		"str":      "nope",
	}

	for key, want := range map[string]uint64{"u64": 7, "i64": 8, "int": 9, "f64": 10} {
		got, err := uintParam(params, key)
		if err != nil {
			t.Errorf("uintParam(%q) error: %v", key, err)
			continue
		}
		if got != want {
			t.Errorf("uintParam(%q) = %d, want %d", key, got, want)
		}
	}

	for _, key := range []string{"negative", "frac", "str", "missing"} {
		if _, err := uintParam(params, key); err == nil {
			t.Errorf("uintParam(%q): want error", key)
		}
	}
}
