package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	Username       string  `gorm:"size:100;uniqueIndex" json:"username"`
	HashedPassword string  `gorm:"size:255" json:"-"`
	NativeLanguage *string `gorm:"size:50" json:"native_language"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
