package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleRegistrar UserRole = "registrar" // канцелярия: заводит задачи и части
	RoleExecutor  UserRole = "executor"  // исполнитель частей задачи
	RoleSigner    UserRole = "signer"    // подписант: принимает работу с проверки
	RoleViewer    UserRole = "viewer"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username     string   `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`

	CompanyID  uint   `json:"company_id"`
	FullName   string `gorm:"size:255" json:"full_name"`
	Department string `gorm:"size:128" json:"department"`
}
