package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/diagnosis"
	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/models"
	"gorm.io/gorm"
)

type DiagnosisService struct {
	db         *gorm.DB
	images     *ImageService
	classifier diagnosis.Classifier
	log        *logger.Logger
}

type Result struct {
	Image      models.PlantImage `json:"image"`
	Prediction models.Prediction `json:"prediction"`
	// Generated is true when the prediction was produced by this call.
	Generated bool `json:"generated"`
	Healthy   bool `json:"healthy"`
}

func NewDiagnosisService(db *gorm.DB, images *ImageService, classifier diagnosis.Classifier, log *logger.Logger) *DiagnosisService {
	return &DiagnosisService{
		db:         db,
		images:     images,
		classifier: classifier,
		log:        log.With("service", "DiagnosisService"),
	}
}

// Generate classifies the image and stores a new prediction. Calling it twice for one image stores two.
func (s *DiagnosisService) Generate(ctx context.Context, imageID uuid.UUID) (*models.Prediction, error) {
	var image models.PlantImage
	if err := s.db.WithContext(ctx).First(&image, "id = ?", imageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return s.generateFor(ctx, image)
}

func (s *DiagnosisService) generateFor(ctx context.Context, image models.PlantImage) (*models.Prediction, error) {
	profile, err := s.classifier.Classify(ctx, image)
	if err != nil {
		return nil, apperr.New(http.StatusBadGateway, "Failed to analyze image", err)
	}

	prediction := models.Prediction{
		PlantImageID: image.ID,
		DiseaseName:  profile.Name,
		Confidence:   profile.Confidence,
		Symptoms:     profile.Symptoms,
		Treatment:    profile.Treatment,
	}
	if err := s.db.WithContext(ctx).Create(&prediction).Error; err != nil {
		return nil, apperr.New(http.StatusInternalServerError, "Failed to save analysis", err)
	}

	s.log.Info("Analysis complete", "image_id", image.ID, "disease", profile.Name, "confidence", profile.Confidence)
	return &prediction, nil
}

// Results returns the image with its earliest prediction, generating one first when none exists.
func (s *DiagnosisService) Results(ctx context.Context, ownerID, imageID uuid.UUID) (*Result, error) {
	image, err := s.images.Get(ctx, ownerID, imageID)
	if err != nil {
		return nil, err
	}

	var existing models.Prediction
	err = s.db.WithContext(ctx).
		Where("plant_image_id = ?", image.ID).
		Order("created_at ASC").
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return nil, apperr.New(http.StatusInternalServerError, "Error loading results", err)
	}

	if existing.ID != uuid.Nil {
		return newResult(*image, existing, false), nil
	}

	generated, err := s.generateFor(ctx, *image)
	if err != nil {
		return nil, err
	}
	return newResult(*image, *generated, true), nil
}

func newResult(image models.PlantImage, p models.Prediction, generated bool) *Result {
	return &Result{
		Image:      image,
		Prediction: p,
		Generated:  generated,
		Healthy:    p.DiseaseName == diagnosis.HealthyName,
	}
}
