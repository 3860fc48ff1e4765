package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"docflow/internal/models"
	"docflow/internal/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Service — единственная точка изменения задач, частей и журнала.
// Каждая операция со сменой статуса выполняется одной транзакцией:
// запись статуса, пересчёт задачи и событие журнала видны читателю
// только вместе.
type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service {
	return &Service{st: st}
}

// Scope — адресат комментария или вложения: задача целиком либо её часть.
// Ровно одно из двух; нулевая пара в БД остаётся только на границе хранения.
type Scope struct {
	taskID uint
	partID uint
}

func TaskScope(id uint) Scope { return Scope{taskID: id} }
func PartScope(id uint) Scope { return Scope{partID: id} }

// Evidence — подтверждение при отправке части на проверку:
// комментарий и/или вложение, записываемые той же транзакцией.
type Evidence struct {
	Comment         string
	AttachmentName  string
	AttachmentLink  string
	AttachmentTitle string
}

func (e *Evidence) empty() bool {
	if e == nil {
		return true
	}
	return strings.TrimSpace(e.Comment) == "" &&
		strings.TrimSpace(e.AttachmentName) == "" &&
		strings.TrimSpace(e.AttachmentLink) == ""
}

func extraJSON(m map[string]any) datatypes.JSON {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

//
// ЗАДАЧИ
//

type CreateTaskInput struct {
	CompanyID    uint                `json:"company_id"`
	Type         models.TaskType     `json:"type"`
	Name         string              `json:"name"`
	Priority     models.TaskPriority `json:"priority"`
	InDocNumber  string              `json:"in_doc_number"`
	OutDocNumber string              `json:"out_doc_number"`
	StartDate    *time.Time          `json:"start_date"`
	EndDate      *time.Time          `json:"end_date"`
	Department   string              `json:"department"`
	SignedByID   uint                `json:"signed_by_id"`
	Note         string              `json:"note"`
	Status       models.TaskStatus   `json:"status"` // только для задачи без частей; пусто = new
}

func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput, actor models.User) (*models.Task, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validation("name is required")
	}
	if in.Type == "" {
		in.Type = models.TypeTask
	}
	if !models.ValidTaskType(in.Type) {
		return nil, validation("unknown task type %q", in.Type)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityOrdinary
	}
	if !models.ValidTaskPriority(in.Priority) {
		return nil, validation("unknown priority %q", in.Priority)
	}
	if in.Status == "" {
		in.Status = models.StatusNew
	}
	if !models.ValidTaskStatus(in.Status) {
		return nil, validation("unknown status %q", in.Status)
	}
	if in.CompanyID == 0 {
		in.CompanyID = actor.CompanyID
	}
	if _, err := s.st.Companies().Get(ctx, in.CompanyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("company", in.CompanyID)
		}
		return nil, err
	}
	if in.SignedByID != 0 {
		if _, err := s.st.Users().Get(ctx, in.SignedByID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, notFound("signer", in.SignedByID)
			}
			return nil, err
		}
	}

	task := &models.Task{
		CompanyID:    in.CompanyID,
		Type:         in.Type,
		Name:         in.Name,
		Priority:     in.Priority,
		InDocNumber:  in.InDocNumber,
		OutDocNumber: in.OutDocNumber,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Department:   in.Department,
		Note:         in.Note,
		Status:       in.Status,
		SignedByID:   in.SignedByID,
		CreatedByID:  actor.ID,
		UpdatedByID:  actor.ID,
	}

	err := s.st.Atomic(ctx, func(st store.Store) error {
		if err := st.Tasks().Create(ctx, task); err != nil {
			return err
		}
		return st.Events().Append(ctx, &models.TaskEvent{
			TaskID:    task.ID,
			ActorID:   actor.ID,
			EventType: models.EventCreated,
			Message:   "task created",
			Extra:     extraJSON(map[string]any{"name": task.Name, "status": task.Status}),
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

type UpdateTaskInput struct {
	Name         *string              `json:"name"`
	Type         *models.TaskType     `json:"type"`
	Priority     *models.TaskPriority `json:"priority"`
	InDocNumber  *string              `json:"in_doc_number"`
	OutDocNumber *string              `json:"out_doc_number"`
	StartDate    *time.Time           `json:"start_date"`
	EndDate      *time.Time           `json:"end_date"`
	Department   *string              `json:"department"`
	SignedByID   *uint                `json:"signed_by_id"`
	Note         *string              `json:"note"`
	Status       *models.TaskStatus   `json:"status"`
}

// UpdateTask правит реквизиты задачи. Прямая смена статуса разрешена
// только задаче без частей; вердикты (done/cancelled/returned) — подписанту.
func (s *Service) UpdateTask(ctx context.Context, id uint, in UpdateTaskInput, actor models.User) (*models.Task, error) {
	var task *models.Task

	err := s.st.Atomic(ctx, func(st store.Store) error {
		var err error
		task, err = st.Tasks().GetWithParts(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("task", id)
			}
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return validation("name is required")
			}
			task.Name = name
		}
		if in.Type != nil {
			if !models.ValidTaskType(*in.Type) {
				return validation("unknown task type %q", *in.Type)
			}
			task.Type = *in.Type
		}
		if in.Priority != nil {
			if !models.ValidTaskPriority(*in.Priority) {
				return validation("unknown priority %q", *in.Priority)
			}
			task.Priority = *in.Priority
		}
		if in.InDocNumber != nil {
			task.InDocNumber = *in.InDocNumber
		}
		if in.OutDocNumber != nil {
			task.OutDocNumber = *in.OutDocNumber
		}
		if in.StartDate != nil {
			task.StartDate = in.StartDate
		}
		if in.EndDate != nil {
			task.EndDate = in.EndDate
		}
		if in.Department != nil {
			task.Department = *in.Department
		}
		if in.Note != nil {
			task.Note = *in.Note
		}
		if in.SignedByID != nil {
			if *in.SignedByID != 0 {
				if _, err := st.Users().Get(ctx, *in.SignedByID); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return notFound("signer", *in.SignedByID)
					}
					return err
				}
			}
			task.SignedByID = *in.SignedByID
		}

		var statusEvent *models.TaskEvent
		if in.Status != nil && *in.Status != task.Status {
			if len(task.Parts) > 0 {
				return validation("status is derived from parts and cannot be set directly")
			}
			if !models.ValidTaskStatus(*in.Status) {
				return validation("unknown status %q", *in.Status)
			}
			if !canSetTaskStatus(actor, *task, *in.Status) {
				return fmt.Errorf("%w: actor %d may not set task status %s", ErrForbidden, actor.ID, *in.Status)
			}
			from := task.Status
			task.Status = *in.Status
			statusEvent = &models.TaskEvent{
				TaskID:     task.ID,
				ActorID:    actor.ID,
				EventType:  taskStatusEventType(*in.Status),
				Message:    fmt.Sprintf("%s -> %s", from, *in.Status),
				FromStatus: from,
				ToStatus:   *in.Status,
			}
		}

		task.UpdatedByID = actor.ID
		task.Parts = nil // реквизиты частей этой операцией не трогаем
		if err := st.Tasks().Save(ctx, task); err != nil {
			return err
		}
		if statusEvent != nil {
			return st.Events().Append(ctx, statusEvent)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Вердикты по задаче без частей оставлены подписанту, остальное — канцелярии.
func canSetTaskStatus(actor models.User, task models.Task, to models.TaskStatus) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	switch to {
	case models.StatusReturned, models.StatusDone, models.StatusCancelled:
		return actor.ID == task.SignedByID
	default:
		return actor.Role == models.RoleRegistrar || actor.ID == task.SignedByID
	}
}

func taskStatusEventType(to models.TaskStatus) models.EventType {
	switch to {
	case models.StatusOnReview:
		return models.EventSentForReview
	case models.StatusDone:
		return models.EventApproved
	default:
		return models.EventStatusChanged
	}
}

// DeleteTask — мягкое удаление: записи журнала, комментарии и вложения
// остаются на месте.
func (s *Service) DeleteTask(ctx context.Context, id uint, actor models.User) error {
	if actor.Role != models.RoleAdmin {
		return fmt.Errorf("%w: only admin may delete tasks", ErrForbidden)
	}
	if err := s.st.Tasks().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("task", id)
		}
		return err
	}
	return nil
}

//
// ЧАСТИ
//

type CreatePartInput struct {
	Title      string     `json:"title"`
	Department string     `json:"department"`
	AssigneeID uint       `json:"assignee_id"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Note       string     `json:"note"`
}

func (s *Service) CreateTaskPart(ctx context.Context, taskID uint, in CreatePartInput, actor models.User) (*models.TaskPart, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, validation("title is required")
	}
	if in.AssigneeID == 0 {
		return nil, validation("assignee_id is required")
	}

	var part *models.TaskPart

	err := s.st.Atomic(ctx, func(st store.Store) error {
		task, err := st.Tasks().Get(ctx, taskID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("task", taskID)
			}
			return err
		}
		assignee, err := st.Users().Get(ctx, in.AssigneeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("assignee", in.AssigneeID)
			}
			return err
		}

		part = &models.TaskPart{
			TaskID:      task.ID,
			Title:       in.Title,
			Department:  in.Department,
			AssigneeID:  assignee.ID,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			Status:      models.StatusNew,
			Note:        in.Note,
			CreatedByID: actor.ID,
			UpdatedByID: actor.ID,
		}
		if err := st.Parts().Create(ctx, part); err != nil {
			return err
		}

		if err := s.recomputeTask(ctx, st, task, actor.ID); err != nil {
			return err
		}

		return st.Events().Append(ctx, &models.TaskEvent{
			TaskID:    task.ID,
			PartID:    &part.ID,
			ActorID:   actor.ID,
			EventType: models.EventAssigned,
			Message:   "part assigned",
			Extra:     extraJSON(map[string]any{"assignee_id": assignee.ID, "title": part.Title}),
		})
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// DeletePart снимает часть с задачи. Только нетерминальные части и только
// для канцелярии, подписанта или админа; журнал задним числом не правится.
func (s *Service) DeletePart(ctx context.Context, partID uint, actor models.User) error {
	return s.st.Atomic(ctx, func(st store.Store) error {
		part, err := st.Parts().Get(ctx, partID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("part", partID)
			}
			return err
		}
		if part.Status.Terminal() {
			return validation("part %d is in terminal state %s", partID, part.Status)
		}
		task, err := st.Tasks().Get(ctx, part.TaskID)
		if err != nil {
			return err
		}
		allowed := actor.Role == models.RoleAdmin ||
			actor.Role == models.RoleRegistrar ||
			actor.ID == task.SignedByID
		if !allowed {
			return fmt.Errorf("%w: actor %d may not delete part %d", ErrForbidden, actor.ID, partID)
		}
		if err := st.Parts().Delete(ctx, partID); err != nil {
			return err
		}

		// статус задачи пересчитываем по оставшимся частям; без частей
		// задача сохраняет последний производный статус и дальше
		// управляется напрямую
		remaining, err := st.Parts().ListByTask(ctx, task.ID)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			derived := DeriveTaskStatus(remaining)
			if derived != task.Status {
				return st.Tasks().UpdateStatus(ctx, task.ID, derived, actor.ID)
			}
		}
		return nil
	})
}

//
// ПЕРЕХОДЫ
//

// TransitionPart — единственный путь смены статуса части. Весь шаг
// (проверка таблицы и прав, подтверждение, CAS-запись, пересчёт задачи,
// событие журнала) выполняется одной транзакцией.
func (s *Service) TransitionPart(ctx context.Context, partID uint, to models.TaskStatus, actorID uint, ev *Evidence) (*models.TaskPart, error) {
	if !models.ValidTaskStatus(to) {
		return nil, validation("unknown status %q", to)
	}

	var part *models.TaskPart

	err := s.st.Atomic(ctx, func(st store.Store) error {
		var err error
		part, err = st.Parts().Get(ctx, partID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("part", partID)
			}
			return err
		}
		task, err := st.Tasks().Get(ctx, part.TaskID)
		if err != nil {
			return err
		}
		actor, err := st.Users().Get(ctx, actorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("actor", actorID)
			}
			return err
		}

		from := part.Status

		elig, ok := allowedTransition(from, to)
		if !ok {
			return invalidTransition(from, to)
		}

		if actor.Role != models.RoleAdmin {
			switch elig {
			case byAssignee:
				if actor.ID != part.AssigneeID {
					return fmt.Errorf("%w: actor %d is not the assignee of part %d", ErrForbidden, actor.ID, partID)
				}
			case bySigner:
				if actor.ID != task.SignedByID {
					return fmt.Errorf("%w: actor %d is not the signer of task %d", ErrForbidden, actor.ID, task.ID)
				}
			}
		}

		// отправка на проверку всегда несёт подтверждение: комментарий
		// или вложение в этом же запросе либо уже висящие на части
		if to == models.StatusOnReview {
			has := !ev.empty()
			if !has {
				nc, err := st.Comments().CountByPart(ctx, partID)
				if err != nil {
					return err
				}
				na, err := st.Attachments().CountByPart(ctx, partID)
				if err != nil {
					return err
				}
				has = nc+na > 0
			}
			if !has {
				return validation("moving to on_review requires a comment or an attachment")
			}
		}

		if ev != nil {
			if text := strings.TrimSpace(ev.Comment); text != "" {
				if _, err := addCommentTx(ctx, st, PartScope(partID), actor.ID, text); err != nil {
					return err
				}
			}
			if strings.TrimSpace(ev.AttachmentName) != "" || strings.TrimSpace(ev.AttachmentLink) != "" {
				in := AttachmentInput{
					FileName: ev.AttachmentName,
					Link:     ev.AttachmentLink,
					Title:    ev.AttachmentTitle,
				}
				if _, err := addAttachmentTx(ctx, st, PartScope(partID), actor.ID, in); err != nil {
					return err
				}
			}
		}

		ok, err = st.Parts().CompareAndSetStatus(ctx, partID, from, to, actor.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: part %d was modified concurrently", ErrConflict, partID)
		}
		part.Status = to
		part.UpdatedByID = actor.ID

		if err := s.recomputeTask(ctx, st, task, actor.ID); err != nil {
			return err
		}

		return st.Events().Append(ctx, &models.TaskEvent{
			TaskID:     task.ID,
			PartID:     &part.ID,
			ActorID:    actor.ID,
			EventType:  models.EventStatusChanged,
			Message:    fmt.Sprintf("%s -> %s", from, to),
			FromStatus: from,
			ToStatus:   to,
		})
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// recomputeTask перечитывает части и пишет производный статус задачи.
// Вызывается строго внутри транзакции изменившей части операции.
func (s *Service) recomputeTask(ctx context.Context, st store.Store, task *models.Task, actorID uint) error {
	parts, err := st.Parts().ListByTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return nil
	}
	derived := DeriveTaskStatus(parts)
	if derived == task.Status {
		return nil
	}
	if err := st.Tasks().UpdateStatus(ctx, task.ID, derived, actorID); err != nil {
		return err
	}
	task.Status = derived
	return nil
}

//
// КОММЕНТАРИИ И ВЛОЖЕНИЯ
//

func (s *Service) AddComment(ctx context.Context, scope Scope, authorID uint, text string) (*models.TaskComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validation("comment text is required")
	}
	var cm *models.TaskComment
	err := s.st.Atomic(ctx, func(st store.Store) error {
		var err error
		cm, err = addCommentTx(ctx, st, scope, authorID, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cm, nil
}

func addCommentTx(ctx context.Context, st store.Store, scope Scope, authorID uint, text string) (*models.TaskComment, error) {
	taskID, partID, err := resolveScope(ctx, st, scope)
	if err != nil {
		return nil, err
	}

	cm := &models.TaskComment{
		AuthorID: authorID,
		Text:     text,
	}
	if partID != nil {
		cm.PartID = partID
	} else {
		cm.TaskID = &taskID
	}
	if err := st.Comments().Create(ctx, cm); err != nil {
		return nil, err
	}

	err = st.Events().Append(ctx, &models.TaskEvent{
		TaskID:    taskID,
		PartID:    partID,
		ActorID:   authorID,
		EventType: models.EventCommented,
		Message:   text,
		Extra:     extraJSON(map[string]any{"comment_id": cm.ID}),
	})
	if err != nil {
		return nil, err
	}
	return cm, nil
}

type AttachmentInput struct {
	FileName string `json:"file_name"`
	Link     string `json:"link"`
	Title    string `json:"title"`
}

func (s *Service) AddAttachment(ctx context.Context, scope Scope, uploaderID uint, in AttachmentInput) (*models.TaskAttachment, error) {
	if strings.TrimSpace(in.FileName) == "" && strings.TrimSpace(in.Link) == "" {
		return nil, validation("attachment needs a file name or a link")
	}
	var att *models.TaskAttachment
	err := s.st.Atomic(ctx, func(st store.Store) error {
		var err error
		att, err = addAttachmentTx(ctx, st, scope, uploaderID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return att, nil
}

func addAttachmentTx(ctx context.Context, st store.Store, scope Scope, uploaderID uint, in AttachmentInput) (*models.TaskAttachment, error) {
	taskID, partID, err := resolveScope(ctx, st, scope)
	if err != nil {
		return nil, err
	}

	att := &models.TaskAttachment{
		UploaderID: uploaderID,
		FileName:   strings.TrimSpace(in.FileName),
		Link:       strings.TrimSpace(in.Link),
		Title:      strings.TrimSpace(in.Title),
	}
	if att.FileName != "" {
		// сам файл кладёт файловый сервис; здесь только ключ
		att.StorageKey = uuid.NewString()
	}
	if partID != nil {
		att.PartID = partID
	} else {
		att.TaskID = &taskID
	}
	if err := st.Attachments().Create(ctx, att); err != nil {
		return nil, err
	}

	err = st.Events().Append(ctx, &models.TaskEvent{
		TaskID:    taskID,
		PartID:    partID,
		ActorID:   uploaderID,
		EventType: models.EventFileAdded,
		Message:   att.Label(),
		Extra:     extraJSON(map[string]any{"attachment_id": att.ID, "label": att.Label()}),
	})
	if err != nil {
		return nil, err
	}
	return att, nil
}

// resolveScope возвращает задачу события и, для части, её id.
// Комментарий к части хранит только part_id, задача выводится через часть.
func resolveScope(ctx context.Context, st store.Store, scope Scope) (uint, *uint, error) {
	switch {
	case scope.partID != 0:
		part, err := st.Parts().Get(ctx, scope.partID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, nil, notFound("part", scope.partID)
			}
			return 0, nil, err
		}
		pid := part.ID
		return part.TaskID, &pid, nil
	case scope.taskID != 0:
		task, err := st.Tasks().Get(ctx, scope.taskID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, nil, notFound("task", scope.taskID)
			}
			return 0, nil, err
		}
		return task.ID, nil, nil
	default:
		return 0, nil, validation("comment or attachment needs a task or a part")
	}
}

//
// ЖУРНАЛ
//

// ListEvents — хронология событий по задаче и/или части.
func (s *Service) ListEvents(ctx context.Context, f store.EventFilter) ([]models.TaskEvent, error) {
	return s.st.Events().List(ctx, f)
}
