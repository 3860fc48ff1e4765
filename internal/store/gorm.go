package store

import (
	"context"
	"errors"
	"time"

	"docflow/internal/models"

	"gorm.io/gorm"
)

// Gorm — реализация Store поверх gorm (postgres в бою, sqlite в тестах).
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Tasks() TaskRepo             { return taskRepo{g.db} }
func (g *Gorm) Parts() PartRepo             { return partRepo{g.db} }
func (g *Gorm) Events() EventRepo           { return eventRepo{g.db} }
func (g *Gorm) Comments() CommentRepo       { return commentRepo{g.db} }
func (g *Gorm) Attachments() AttachmentRepo { return attachmentRepo{g.db} }
func (g *Gorm) Users() UserRepo             { return userRepo{g.db} }
func (g *Gorm) Companies() CompanyRepo      { return companyRepo{g.db} }

func (g *Gorm) Atomic(ctx context.Context, fn func(Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

//
// TASKS
//

type taskRepo struct{ db *gorm.DB }

func (r taskRepo) Get(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r taskRepo) GetWithParts(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).Preload("Parts").First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r taskRepo) List(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	dbq := r.db.WithContext(ctx).Order("created_at desc")

	if f.CompanyID != 0 {
		dbq = dbq.Where("company_id = ?", f.CompanyID)
	}
	if f.Status != "" {
		dbq = dbq.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		dbq = dbq.Where("type = ?", f.Type)
	}
	if f.Priority != "" {
		dbq = dbq.Where("priority = ?", f.Priority)
	}
	if f.Department != "" {
		dbq = dbq.Where("department = ?", f.Department)
	}
	if f.From != nil {
		dbq = dbq.Where("start_date >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("start_date < ?", *f.To)
	}

	var tasks []models.Task
	if err := dbq.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r taskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r taskRepo) Save(ctx context.Context, t *models.Task) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r taskRepo) UpdateStatus(ctx context.Context, id uint, to models.TaskStatus, updatedBy uint) error {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": to, "updated_by_id": updatedBy})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r taskRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

//
// PARTS
//

type partRepo struct{ db *gorm.DB }

func (r partRepo) Get(ctx context.Context, id uint) (*models.TaskPart, error) {
	var p models.TaskPart
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r partRepo) ListByTask(ctx context.Context, taskID uint) ([]models.TaskPart, error) {
	var parts []models.TaskPart
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("id asc").
		Find(&parts).Error
	if err != nil {
		return nil, err
	}
	return parts, nil
}

func (r partRepo) ListForRange(ctx context.Context, companyID uint, from, to time.Time, assigneeID *uint) ([]models.TaskPart, error) {
	dbq := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = task_parts.task_id AND tasks.deleted_at IS NULL").
		Where("tasks.company_id = ?", companyID).
		Where("task_parts.start_date >= ? AND task_parts.start_date < ?", from, to)

	if assigneeID != nil {
		dbq = dbq.Where("task_parts.assignee_id = ?", *assigneeID)
	}

	var parts []models.TaskPart
	if err := dbq.Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r partRepo) Create(ctx context.Context, p *models.TaskPart) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r partRepo) CompareAndSetStatus(ctx context.Context, id uint, from, to models.TaskStatus, updatedBy uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.TaskPart{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_by_id": updatedBy})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r partRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.TaskPart{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

//
// EVENTS
//

type eventRepo struct{ db *gorm.DB }

func (r eventRepo) Append(ctx context.Context, e *models.TaskEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r eventRepo) List(ctx context.Context, f EventFilter) ([]models.TaskEvent, error) {
	dbq := r.db.WithContext(ctx).Order("created_at asc, id asc")

	if f.TaskID != 0 {
		dbq = dbq.Where("task_id = ?", f.TaskID)
	}
	if f.PartID != nil {
		dbq = dbq.Where("part_id = ?", *f.PartID)
	}

	var events []models.TaskEvent
	if err := dbq.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

//
// COMMENTS / ATTACHMENTS
//

type commentRepo struct{ db *gorm.DB }

func (r commentRepo) Create(ctx context.Context, cm *models.TaskComment) error {
	return r.db.WithContext(ctx).Create(cm).Error
}

func (r commentRepo) ListByTask(ctx context.Context, taskID uint) ([]models.TaskComment, error) {
	var out []models.TaskComment
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at asc").Find(&out).Error
	return out, err
}

func (r commentRepo) ListByPart(ctx context.Context, partID uint) ([]models.TaskComment, error) {
	var out []models.TaskComment
	err := r.db.WithContext(ctx).Where("part_id = ?", partID).Order("created_at asc").Find(&out).Error
	return out, err
}

func (r commentRepo) CountByPart(ctx context.Context, partID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TaskComment{}).Where("part_id = ?", partID).Count(&n).Error
	return n, err
}

type attachmentRepo struct{ db *gorm.DB }

func (r attachmentRepo) Create(ctx context.Context, a *models.TaskAttachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r attachmentRepo) ListByTask(ctx context.Context, taskID uint) ([]models.TaskAttachment, error) {
	var out []models.TaskAttachment
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at asc").Find(&out).Error
	return out, err
}

func (r attachmentRepo) ListByPart(ctx context.Context, partID uint) ([]models.TaskAttachment, error) {
	var out []models.TaskAttachment
	err := r.db.WithContext(ctx).Where("part_id = ?", partID).Order("created_at asc").Find(&out).Error
	return out, err
}

func (r attachmentRepo) CountByPart(ctx context.Context, partID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TaskAttachment{}).Where("part_id = ?", partID).Count(&n).Error
	return n, err
}

//
// USERS / COMPANIES
//

type userRepo struct{ db *gorm.DB }

func (r userRepo) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r userRepo) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

type companyRepo struct{ db *gorm.DB }

func (r companyRepo) Get(ctx context.Context, id uint) (*models.Company, error) {
	var cmp models.Company
	if err := r.db.WithContext(ctx).First(&cmp, id).Error; err != nil {
		return nil, translate(err)
	}
	return &cmp, nil
}
