package models

import "time"

// Company — организация, в рамках которой ведутся задачи.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name string `gorm:"size:255;not null" json:"name"`
	Code string `gorm:"size:32;uniqueIndex" json:"code"`
}
