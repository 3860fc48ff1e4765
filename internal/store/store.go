package store

import (
	"context"
	"errors"
	"time"

	"docflow/internal/models"
)

// ErrNotFound возвращают все репозитории, когда записи нет.
var ErrNotFound = errors.New("record not found")

// Store — набор репозиториев по сущностям. Бизнес-логика зависит от него,
// а не от конкретной БД; Atomic выполняет fn в одной транзакции поверх
// тех же интерфейсов.
type Store interface {
	Tasks() TaskRepo
	Parts() PartRepo
	Events() EventRepo
	Comments() CommentRepo
	Attachments() AttachmentRepo
	Users() UserRepo
	Companies() CompanyRepo

	Atomic(ctx context.Context, fn func(Store) error) error
}

type TaskFilter struct {
	CompanyID  uint
	Status     models.TaskStatus
	Type       models.TaskType
	Priority   models.TaskPriority
	Department string
	From       *time.Time // по start_date
	To         *time.Time
}

type TaskRepo interface {
	Get(ctx context.Context, id uint) (*models.Task, error)
	GetWithParts(ctx context.Context, id uint) (*models.Task, error)
	List(ctx context.Context, f TaskFilter) ([]models.Task, error)
	Create(ctx context.Context, t *models.Task) error
	Save(ctx context.Context, t *models.Task) error
	UpdateStatus(ctx context.Context, id uint, to models.TaskStatus, updatedBy uint) error
	Delete(ctx context.Context, id uint) error
}

type PartRepo interface {
	Get(ctx context.Context, id uint) (*models.TaskPart, error)
	ListByTask(ctx context.Context, taskID uint) ([]models.TaskPart, error)
	// ListForRange — части с start_date в [from, to) по организации,
	// опционально по исполнителю. Используется календарной статистикой.
	ListForRange(ctx context.Context, companyID uint, from, to time.Time, assigneeID *uint) ([]models.TaskPart, error)
	Create(ctx context.Context, p *models.TaskPart) error
	// CompareAndSetStatus меняет статус, только если он всё ещё равен from.
	// false без ошибки — часть успел поменять кто-то другой.
	CompareAndSetStatus(ctx context.Context, id uint, from, to models.TaskStatus, updatedBy uint) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type EventFilter struct {
	TaskID uint
	PartID *uint
}

type EventRepo interface {
	Append(ctx context.Context, e *models.TaskEvent) error
	// List — хронология: created_at по возрастанию, id как добивка.
	List(ctx context.Context, f EventFilter) ([]models.TaskEvent, error)
}

type CommentRepo interface {
	Create(ctx context.Context, cm *models.TaskComment) error
	ListByTask(ctx context.Context, taskID uint) ([]models.TaskComment, error)
	ListByPart(ctx context.Context, partID uint) ([]models.TaskComment, error)
	CountByPart(ctx context.Context, partID uint) (int64, error)
}

type AttachmentRepo interface {
	Create(ctx context.Context, a *models.TaskAttachment) error
	ListByTask(ctx context.Context, taskID uint) ([]models.TaskAttachment, error)
	ListByPart(ctx context.Context, partID uint) ([]models.TaskAttachment, error)
	CountByPart(ctx context.Context, partID uint) (int64, error)
}

type UserRepo interface {
	Get(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

type CompanyRepo interface {
	Get(ctx context.Context, id uint) (*models.Company, error)
}
