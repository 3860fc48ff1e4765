package models

import "time"

// TaskComment — комментарий к задаче или к её части.
// Заполняется ровно одно из TaskID/PartID: комментарий к части хранит
// только PartID, задача восстанавливается через часть.
type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TaskID *uint `gorm:"index" json:"task_id,omitempty"`
	PartID *uint `gorm:"index" json:"part_id,omitempty"`

	AuthorID uint   `json:"author_id"`
	Text     string `gorm:"type:text;not null" json:"text"`
}

// TaskAttachment — вложение: либо загруженный файл (FileName + StorageKey),
// либо внешняя ссылка. Правило области то же, что и у комментария.
type TaskAttachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TaskID *uint `gorm:"index" json:"task_id,omitempty"`
	PartID *uint `gorm:"index" json:"part_id,omitempty"`

	UploaderID uint   `json:"uploader_id"`
	FileName   string `gorm:"size:255" json:"file_name,omitempty"`
	StorageKey string `gorm:"size:64" json:"storage_key,omitempty"` // ключ в файловом хранилище
	Link       string `gorm:"size:512" json:"link,omitempty"`
	Title      string `gorm:"size:255" json:"title,omitempty"`
}

// Label — подпись вложения для журнала и списков.
func (a TaskAttachment) Label() string {
	switch {
	case a.Title != "":
		return a.Title
	case a.FileName != "":
		return a.FileName
	default:
		return a.Link
	}
}
