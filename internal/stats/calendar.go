package stats

import (
	"context"
	"log"
	"time"

	"docflow/internal/models"
	"docflow/internal/store"
)

// DayStats — итог по одному календарному дню.
type DayStats struct {
	Total    int                       `json:"total"`
	ByStatus map[models.TaskStatus]int `json:"by_status"`
}

// Merge складывает два итога за один и тот же день. Источник может отдать
// несколько строк на дату (разные группировки, схлопнувшиеся метки времени) —
// счётчики суммируются, а не перетираются.
func (d DayStats) Merge(other DayStats) DayStats {
	out := DayStats{
		Total:    d.Total + other.Total,
		ByStatus: make(map[models.TaskStatus]int, len(d.ByStatus)+len(other.ByStatus)),
	}
	for s, n := range d.ByStatus {
		out.ByStatus[s] += n
	}
	for s, n := range other.ByStatus {
		out.ByStatus[s] += n
	}
	return out
}

// Engine считает календарную сводку по частям задач. Читает только из
// хранилища и пересчитывается на каждый запрос.
type Engine struct {
	st store.Store
}

func NewEngine(st store.Store) *Engine {
	return &Engine{st: st}
}

const dayKey = "2006-01-02"

// MonthStatistics — карта "день → итоги" за месяц по организации,
// опционально суженная до одного исполнителя. Ключ — start_date части,
// усечённый до дня; дни без частей в карту не попадают.
//
// Сводка — вспомогательная витрина: на любой ошибке чтения возвращается
// пустая карта, а не ошибка.
func (e *Engine) MonthStatistics(ctx context.Context, year, month int, companyID uint, assigneeID *uint) map[string]DayStats {
	out := map[string]DayStats{}

	if year < 1 || month < 1 || month > 12 || companyID == 0 {
		return out
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	parts, err := e.st.Parts().ListForRange(ctx, companyID, from, to, assigneeID)
	if err != nil {
		log.Printf("calendar: month fetch failed: %v", err)
		return map[string]DayStats{}
	}

	for _, p := range parts {
		if p.StartDate == nil {
			continue
		}
		key := p.StartDate.UTC().Format(dayKey)
		out[key] = out[key].Merge(DayStats{
			Total:    1,
			ByStatus: map[models.TaskStatus]int{p.Status: 1},
		})
	}
	return out
}
