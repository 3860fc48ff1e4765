package workflow

import "docflow/internal/models"

// DeriveTaskStatus — производный статус задачи по её частям.
// Порядок правил важен и закреплён умышленно: любая работа в ходу
// перекрывает возврат, возврат перекрывает "всё сделано", поэтому
// одна возвращённая часть держит задачу заблокированной, даже если
// остальные уже закрыты.
//
// Для задачи без частей функция не вызывается: там статус пишется напрямую.
func DeriveTaskStatus(parts []models.TaskPart) models.TaskStatus {
	if len(parts) == 0 {
		return models.StatusNew
	}

	allDone := true
	anyReturned := false
	anyCancelled := false

	for _, p := range parts {
		switch p.Status {
		case models.StatusInProgress, models.StatusOnReview:
			return models.StatusInProgress
		case models.StatusReturned:
			anyReturned = true
		case models.StatusCancelled:
			anyCancelled = true
		}
		if p.Status != models.StatusDone {
			allDone = false
		}
	}

	switch {
	case anyReturned:
		return models.StatusReturned
	case allDone:
		return models.StatusDone
	case anyCancelled:
		return models.StatusCancelled
	default:
		return models.StatusNew
	}
}
