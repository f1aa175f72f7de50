package repository

import (
	"gorm.io/gorm"

	"github.com/orderstack/orderstack/internal/models"
)

type Repositories struct {
	SenderRepository SenderRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		SenderRepository: NewSenderRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Sender{},
	)
}
