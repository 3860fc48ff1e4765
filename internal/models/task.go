package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskType string
type TaskPriority string
type TaskStatus string

const (
	TypeTask        TaskType = "task"
	TypeApplication TaskType = "application"

	PriorityOrdinary TaskPriority = "ordinary"
	PriorityUrgent   TaskPriority = "urgent"

	StatusNew        TaskStatus = "new"
	StatusInProgress TaskStatus = "in_progress"
	StatusOnReview   TaskStatus = "on_review"
	StatusReturned   TaskStatus = "returned"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
)

// Task — поручение или заявка, проходящая по организации.
// Статус при наличии частей всегда производный (см. workflow.DeriveTaskStatus),
// напрямую меняется только у задач без частей.
type Task struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint    `gorm:"index;not null" json:"company_id"`
	Company   Company `json:"-"`

	Type     TaskType     `gorm:"type:varchar(20);not null" json:"type"`
	Name     string       `gorm:"size:255;not null" json:"name"`
	Priority TaskPriority `gorm:"type:varchar(20);not null" json:"priority"`

	InDocNumber  string `gorm:"size:64" json:"in_doc_number"`  // входящий номер документа
	OutDocNumber string `gorm:"size:64" json:"out_doc_number"` // исходящий номер документа

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	Department string `gorm:"size:128" json:"department"`
	Note       string `gorm:"type:text" json:"note"`

	Status TaskStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	SignedByID uint `gorm:"index" json:"signed_by_id"` // подписант задачи

	CreatedByID uint `json:"created_by_id"`
	UpdatedByID uint `json:"updated_by_id"`

	Parts []TaskPart `json:"parts,omitempty"`
}

// TaskPart — часть задачи, расписанная на отдел/исполнителя.
type TaskPart struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TaskID uint `gorm:"not null;index" json:"task_id"`
	Task   Task `json:"-"`

	Title      string `gorm:"size:255;not null" json:"title"`
	Department string `gorm:"size:128" json:"department"`

	AssigneeID uint `gorm:"index" json:"assignee_id"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	Status TaskStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Note   string     `gorm:"type:text" json:"note"`

	CreatedByID uint `json:"created_by_id"`
	UpdatedByID uint `json:"updated_by_id"`
}

func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusOnReview, StatusReturned, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Terminal — статус, из которого часть уже не выводится.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

func ValidTaskType(t TaskType) bool {
	return t == TypeTask || t == TypeApplication
}

func ValidTaskPriority(p TaskPriority) bool {
	return p == PriorityOrdinary || p == PriorityUrgent
}
