package database

import (
	"log"
	"os"
	"time"

	"docflow/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Init(dsn string) *gorm.DB {
	var db *gorm.DB
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Printf("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			log.Println("connected to DB successfully")
			break
		}

		log.Printf("failed to connect to DB: %v", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatalf("failed to connect to db after %d attempts: %v", maxAttempts, err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	seedDefaultCompany(db)
	createDefaultAdmin(db)
	seedDefaultUsers(db)

	return db
}

// Migrate вынесена отдельно: тесты гоняют её на sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Task{},
		&models.TaskPart{},
		&models.TaskEvent{},
		&models.TaskComment{},
		&models.TaskAttachment{},
	)
}

func seedDefaultCompany(db *gorm.DB) {
	var count int64
	if err := db.Model(&models.Company{}).Count(&count).Error; err != nil {
		log.Printf("failed to check companies: %v", err)
		return
	}
	if count > 0 {
		return
	}

	name := os.Getenv("COMPANY_NAME")
	if name == "" {
		name = "Head Office"
	}
	company := models.Company{Name: name, Code: "HQ"}
	if err := db.Create(&company).Error; err != nil {
		log.Printf("failed to create default company: %v", err)
		return
	}
	log.Printf("created default company: %s", company.Name)
}

// админ только из кода/конфига
func createDefaultAdmin(db *gorm.DB) {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin@docflow.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		log.Printf("failed to check admin user: %v", err)
		return
	}
	if count > 0 {
		// админ уже есть — ничего не делаем
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("failed to hash default admin password: %v", err)
		return
	}

	var company models.Company
	_ = db.Order("id asc").First(&company).Error

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CompanyID:    company.ID,
		FullName:     "Administrator",
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Printf("failed to create default admin: %v", err)
		return
	}

	log.Printf("created default admin user: %s (password: %s)", username, password)
}

// демо-аккаунты под рабочие роли
func seedDefaultUsers(db *gorm.DB) {
	type seedUser struct {
		Username   string
		Password   string
		Role       models.UserRole
		FullName   string
		Department string
	}

	users := []seedUser{
		{
			Username:   "registrar@docflow.local",
			Password:   "Registrar123!",
			Role:       models.RoleRegistrar,
			FullName:   "Demo Registrar",
			Department: "Chancellery",
		},
		{
			Username:   "executor@docflow.local",
			Password:   "Executor123!",
			Role:       models.RoleExecutor,
			FullName:   "Demo Executor",
			Department: "Operations",
		},
		{
			Username:   "signer@docflow.local",
			Password:   "Signer123!",
			Role:       models.RoleSigner,
			FullName:   "Demo Signer",
			Department: "Management",
		},
	}

	var company models.Company
	_ = db.Order("id asc").First(&company).Error

	for _, u := range users {
		var count int64
		if err := db.Model(&models.User{}).
			Where("username = ?", u.Username).
			Count(&count).Error; err != nil {
			log.Printf("failed to check seed user %s: %v", u.Username, err)
			continue
		}
		if count > 0 {
			// уже есть — пропускаем
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("failed to hash password for %s: %v", u.Username, err)
			continue
		}

		user := models.User{
			Username:     u.Username,
			PasswordHash: string(hash),
			Role:         u.Role,
			CompanyID:    company.ID,
			FullName:     u.FullName,
			Department:   u.Department,
		}

		if err := db.Create(&user).Error; err != nil {
			log.Printf("failed to create seed user %s: %v", u.Username, err)
			continue
		}

		log.Printf("created seed user: %s (role=%s, password=%s)", u.Username, u.Role, u.Password)
	}
}
