package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prediction is the diagnosis attached to a PlantImage. Nothing prevents more than one per image.
type Prediction struct {
	ID           uuid.UUID `json:"id" gorm:"type:varchar(36);primaryKey"`
	PlantImageID uuid.UUID `json:"plant_image_id" gorm:"type:varchar(36);not null;index"`
	DiseaseName  string    `json:"disease_name" gorm:"not null;index"`
	Confidence   float64   `json:"confidence" gorm:"not null"`
	Symptoms     string    `json:"symptoms" gorm:"type:text"`
	Treatment    string    `json:"treatment" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Prediction) TableName() string { return "predictions" }

func (p *Prediction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
