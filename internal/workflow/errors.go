package workflow

import (
	"errors"
	"fmt"

	"docflow/internal/models"
)

// Таксономия ошибок ядра. Обработчики HTTP сопоставляют их со статусами
// через errors.Is; детали дописываются обёрткой через %w.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrValidationFailed  = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
)

func invalidTransition(from, to models.TaskStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func notFound(entity string, id uint) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
