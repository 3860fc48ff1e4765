package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventCreated       EventType = "CREATED"
	EventAssigned      EventType = "ASSIGNED"
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventFileAdded     EventType = "FILE_ADDED"
	EventCommented     EventType = "COMMENTED"
	EventApproved      EventType = "APPROVED"
	EventSentForReview EventType = "SENT_FOR_REVIEW"
)

// TaskEvent — запись журнала событий по задаче.
// Журнал только дописывается: ни одна операция в системе не меняет
// и не удаляет уже вставленные записи.
type TaskEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	TaskID uint  `gorm:"not null;index" json:"task_id"`
	PartID *uint `gorm:"index" json:"part_id,omitempty"` // null — событие уровня задачи

	ActorID uint `json:"actor_id"`
	Actor   User `json:"-"`

	EventType EventType `gorm:"type:varchar(32);not null" json:"event_type"`
	Message   string    `gorm:"type:text" json:"message"`

	// заполняются только для смены статуса
	FromStatus TaskStatus `gorm:"type:varchar(20)" json:"from_status,omitempty"`
	ToStatus   TaskStatus `gorm:"type:varchar(20)" json:"to_status,omitempty"`

	Extra datatypes.JSON `json:"extra,omitempty"`
}
