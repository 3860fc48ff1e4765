package stats

import (
	"context"
	"testing"
	"time"

	"docflow/internal/database"
	"docflow/internal/models"
	"docflow/internal/store"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestDayStatsMerge(t *testing.T) {
	a := DayStats{Total: 3, ByStatus: map[models.TaskStatus]int{models.StatusDone: 1}}
	b := DayStats{Total: 2, ByStatus: map[models.TaskStatus]int{models.StatusDone: 1, models.StatusNew: 1}}

	got := a.Merge(b)

	if got.Total != 5 {
		t.Errorf("Total = %d, want 5", got.Total)
	}
	if got.ByStatus[models.StatusDone] != 2 {
		t.Errorf("ByStatus[done] = %d, want 2", got.ByStatus[models.StatusDone])
	}
	if got.ByStatus[models.StatusNew] != 1 {
		t.Errorf("ByStatus[new] = %d, want 1", got.ByStatus[models.StatusNew])
	}

	// исходные не тронуты
	if a.Total != 3 || b.Total != 2 {
		t.Errorf("merge mutated its inputs: %d, %d", a.Total, b.Total)
	}
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, models.Company) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	company := models.Company{Name: "HQ", Code: "HQ"}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return NewEngine(store.NewGorm(db)), db, company
}

func seedPart(t *testing.T, db *gorm.DB, taskID uint, assigneeID uint, start time.Time, status models.TaskStatus) {
	t.Helper()
	part := models.TaskPart{
		TaskID:     taskID,
		Title:      "p",
		AssigneeID: assigneeID,
		StartDate:  &start,
		Status:     status,
	}
	if err := db.Create(&part).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
}

func TestMonthStatistics(t *testing.T) {
	engine, db, company := newTestEngine(t)

	task := models.Task{
		CompanyID: company.ID,
		Type:      models.TypeTask,
		Name:      "t",
		Priority:  models.PriorityOrdinary,
		Status:    models.StatusNew,
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	// разные метки времени одного дня схлопываются в один ключ
	seedPart(t, db, task.ID, 10, day, models.StatusDone)
	seedPart(t, db, task.ID, 10, day.Add(9*time.Hour), models.StatusDone)
	seedPart(t, db, task.ID, 11, day.Add(14*time.Hour), models.StatusNew)
	seedPart(t, db, task.ID, 11, time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC), models.StatusInProgress)
	// соседний месяц в выборку не попадает
	seedPart(t, db, task.ID, 10, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), models.StatusNew)

	got := engine.MonthStatistics(context.Background(), 2026, 3, company.ID, nil)

	if len(got) != 2 {
		t.Fatalf("days = %d (%v), want 2", len(got), got)
	}

	d10 := got["2026-03-10"]
	if d10.Total != 3 {
		t.Errorf("2026-03-10 total = %d, want 3", d10.Total)
	}
	if d10.ByStatus[models.StatusDone] != 2 || d10.ByStatus[models.StatusNew] != 1 {
		t.Errorf("2026-03-10 by_status = %v", d10.ByStatus)
	}

	d21 := got["2026-03-21"]
	if d21.Total != 1 || d21.ByStatus[models.StatusInProgress] != 1 {
		t.Errorf("2026-03-21 = %+v", d21)
	}

	// дни без частей в карту не попадают
	if _, ok := got["2026-03-11"]; ok {
		t.Error("empty day rendered explicitly")
	}
}

func TestMonthStatisticsAssigneeFilter(t *testing.T) {
	engine, db, company := newTestEngine(t)

	task := models.Task{CompanyID: company.ID, Type: models.TypeTask, Name: "t", Priority: models.PriorityOrdinary, Status: models.StatusNew}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}

	day := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	seedPart(t, db, task.ID, 10, day, models.StatusNew)
	seedPart(t, db, task.ID, 11, day, models.StatusNew)

	assignee := uint(10)
	got := engine.MonthStatistics(context.Background(), 2026, 5, company.ID, &assignee)

	if got["2026-05-02"].Total != 1 {
		t.Errorf("filtered total = %d, want 1", got["2026-05-02"].Total)
	}
}

func TestMonthStatisticsFailSafe(t *testing.T) {
	// база без миграции: выборка падает, сводка молча пустая
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	engine := NewEngine(store.NewGorm(db))

	got := engine.MonthStatistics(context.Background(), 2026, 3, 1, nil)
	if len(got) != 0 {
		t.Errorf("stats on broken store = %v, want empty map", got)
	}
	if got == nil {
		t.Error("expected empty map, not nil")
	}

	if n := len(engine.MonthStatistics(context.Background(), 2026, 13, 1, nil)); n != 0 {
		t.Errorf("month 13 produced %d days", n)
	}
}
