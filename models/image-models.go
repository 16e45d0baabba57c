package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlantImage struct {
	ID          uuid.UUID `json:"id" gorm:"type:varchar(36);primaryKey"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:varchar(36);not null;index"`
	ImageURL    string    `json:"image_url" gorm:"not null"`
	StoragePath string    `json:"-" gorm:"size:512;not null;uniqueIndex"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at" gorm:"not null;index"`

	// Relationships
	Owner       *User        `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Predictions []Prediction `json:"predictions,omitempty" gorm:"foreignKey:PlantImageID;constraint:OnDelete:CASCADE"`
}

func (PlantImage) TableName() string { return "plant_images" }

func (p *PlantImage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UploadedAt.IsZero() {
		p.UploadedAt = time.Now().UTC()
	}
	return nil
}
