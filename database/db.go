package database

import (
	"github.com/ericstoecker/anki-translator/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Init(dbPath string) *gorm.DB {
	dbFile := sqlite.Open(dbPath)
	db, err := gorm.Open(dbFile, &gorm.Config{TranslateError: true})
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Deck{},
		&models.NoteType{},
		&models.NoteTypeField{},
		&models.Card{},
	); err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}

	zap.L().Info("Database initialised and migrated successfully")

	return db
}
