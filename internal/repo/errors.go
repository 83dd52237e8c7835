package repo

import "github.com/flowgrid/flowgrid/internal/grid"

// Ошибки репозиториев — те же sentinel-значения, что у grid,
// чтобы errors.Is работал сквозь слой хранения.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = grid.ErrNotFound

	// ErrInvalidTransition — недопустимый переход статуса job.
	ErrInvalidTransition = grid.ErrInvalidTransition
)
