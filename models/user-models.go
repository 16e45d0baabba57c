package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email        string    `json:"email" gorm:"not null;uniqueIndex;size:255"`
	DisplayName  string    `json:"name" gorm:"size:255"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "profiles" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &PlantImage{}, &Prediction{}}
}
