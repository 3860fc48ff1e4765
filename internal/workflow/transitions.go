package workflow

import "docflow/internal/models"

// eligibility — кто вправе выполнить переход.
type eligibility int

const (
	byAssignee eligibility = iota + 1 // исполнитель части
	bySigner                          // подписант задачи
)

type transition struct {
	From models.TaskStatus
	To   models.TaskStatus
}

// Таблица переходов части задачи. Добавление состояния или роли —
// правка данных, а не логики.
var transitionTable = map[transition]eligibility{
	{models.StatusNew, models.StatusOnReview}:        byAssignee,
	{models.StatusInProgress, models.StatusOnReview}: byAssignee,
	{models.StatusReturned, models.StatusOnReview}:   byAssignee,
	{models.StatusReturned, models.StatusInProgress}: byAssignee, // доработка после возврата

	{models.StatusOnReview, models.StatusReturned}:  bySigner,
	{models.StatusOnReview, models.StatusCancelled}: bySigner,
	{models.StatusOnReview, models.StatusDone}:      bySigner,
}

func allowedTransition(from, to models.TaskStatus) (eligibility, bool) {
	e, ok := transitionTable[transition{From: from, To: to}]
	return e, ok
}

// AllowedTargets — куда можно перевести часть из текущего статуса.
// Используется интерфейсом, чтобы не показывать недоступные кнопки.
func AllowedTargets(from models.TaskStatus) []models.TaskStatus {
	var out []models.TaskStatus
	for _, to := range []models.TaskStatus{
		models.StatusNew,
		models.StatusInProgress,
		models.StatusOnReview,
		models.StatusReturned,
		models.StatusDone,
		models.StatusCancelled,
	} {
		if _, ok := allowedTransition(from, to); ok {
			out = append(out, to)
		}
	}
	return out
}
