package service

import (
	"context"
	"net/http"

	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/diagnosis"
	"github.com/krishkalaria12/cropcare/models"
	"gorm.io/gorm"
)

type Stats struct {
	TotalUsers       int64 `json:"total_users"`
	TotalScans       int64 `json:"total_scans"`
	TotalPredictions int64 `json:"total_predictions"`
	HealthyScans     int64 `json:"healthy_scans"`
}

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	var st Stats

	if err := db.Model(&models.User{}).Count(&st.TotalUsers).Error; err != nil {
		return nil, statsErr(err)
	}
	if err := db.Model(&models.PlantImage{}).Count(&st.TotalScans).Error; err != nil {
		return nil, statsErr(err)
	}
	if err := db.Model(&models.Prediction{}).Count(&st.TotalPredictions).Error; err != nil {
		return nil, statsErr(err)
	}
	if err := db.Model(&models.Prediction{}).Where("disease_name = ?", diagnosis.HealthyName).Count(&st.HealthyScans).Error; err != nil {
		return nil, statsErr(err)
	}
	return &st, nil
}

func statsErr(err error) error {
	return apperr.New(http.StatusInternalServerError, "Error loading statistics", err)
}
