package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/imaging"
	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/models"
	"github.com/krishkalaria12/cropcare/storage"
	"gorm.io/gorm"
)

var (
	ErrUploadFailed = errors.New("upload failed")
	ErrSaveFailed   = errors.New("save image record failed")

	ErrEmptyFile        = apperr.BadRequest("No file provided")
	ErrUnsupportedImage = apperr.BadRequest("Unsupported image format. Use JPG, PNG or WebP")
	ErrImageNotFound    = apperr.NotFound("Image not found")
)

type ImageOptions struct {
	UploadPath     string
	MaxUploadBytes int64
	MaxDimension   int
}

type ImageService struct {
	db         *gorm.DB
	store      storage.ObjectStore
	log        *logger.Logger
	uploadPath string
	maxBytes   int64
	maxDim     int
	now        func() time.Time
}

func NewImageService(db *gorm.DB, store storage.ObjectStore, log *logger.Logger, opts ImageOptions) *ImageService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &ImageService{
		db:         db,
		store:      store,
		log:        log.With("service", "ImageService"),
		uploadPath: folderPrefix(opts.UploadPath),
		maxBytes:   opts.MaxUploadBytes,
		maxDim:     opts.MaxDimension,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UploadPath is the object prefix every intake writes under.
func (s *ImageService) UploadPath() string { return s.uploadPath }

// Intake stores the file for ownerID and records it. Nothing is recorded when the upload fails. When the
// record cannot be saved the stored object is left behind for the orphan reaper.
func (s *ImageService) Intake(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (*models.PlantImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, apperr.New(http.StatusBadRequest, "Error reading the file", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.New(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %d MB)", s.maxBytes>>20), nil)
	}

	img, err := imaging.Normalize(data, s.maxDim)
	if err != nil {
		return nil, ErrUnsupportedImage
	}

	uploadedAt := s.now()
	objectPath := fmt.Sprintf("%s%s/%d%s", s.uploadPath, ownerID, uploadedAt.UnixNano(), img.Ext)
	log := s.log.With("user_id", ownerID, "path", objectPath, "filename", filename)

	if err := s.store.Put(ctx, objectPath, bytes.NewReader(img.Data), img.ContentType); err != nil {
		log.Error("Upload failed", "error", err)
		return nil, apperr.New(http.StatusBadGateway, "Failed to upload image", fmt.Errorf("%w: %v", ErrUploadFailed, err))
	}

	url, err := s.store.URL(ctx, objectPath)
	if err != nil {
		log.Warn("Orphaned object: could not resolve URL", "error", err)
		return nil, apperr.New(http.StatusBadGateway, "Failed to upload image", fmt.Errorf("%w: %v", ErrUploadFailed, err))
	}

	record := models.PlantImage{
		OwnerID:     ownerID,
		ImageURL:    url,
		StoragePath: objectPath,
		ContentType: img.ContentType,
		UploadedAt:  uploadedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		log.Warn("Orphaned object: image record insert failed", "error", err)
		return nil, apperr.New(http.StatusInternalServerError, "Failed to save image record", fmt.Errorf("%w: %v", ErrSaveFailed, err))
	}

	log.Info("Image stored", "image_id", record.ID, "bytes", len(img.Data), "resized", img.Resized)
	return &record, nil
}

func (s *ImageService) Get(ctx context.Context, ownerID, imageID uuid.UUID) (*models.PlantImage, error) {
	var image models.PlantImage
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", imageID, ownerID).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

// History lists the owner's images, newest first, each with its predictions oldest first.
func (s *ImageService) History(ctx context.Context, ownerID uuid.UUID) ([]models.PlantImage, error) {
	var images []models.PlantImage
	err := s.db.WithContext(ctx).
		Preload("Predictions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("owner_id = ?", ownerID).
		Order("uploaded_at DESC").
		Find(&images).Error
	if err != nil {
		return nil, apperr.New(http.StatusInternalServerError, "Failed to load history", err)
	}
	return images, nil
}

// Delete removes the image record and its predictions. The stored object is kept.
func (s *ImageService) Delete(ctx context.Context, ownerID, imageID uuid.UUID) error {
	var storagePath string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.PlantImage
		if err := tx.Where("id = ? AND owner_id = ?", imageID, ownerID).First(&image).Error; err != nil {
			return err
		}
		storagePath = image.StoragePath
		if err := tx.Where("plant_image_id = ?", image.ID).Delete(&models.Prediction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&image).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrImageNotFound
		}
		return apperr.New(http.StatusInternalServerError, "Failed to delete item", err)
	}

	s.log.Info("Image deleted", "user_id", ownerID, "image_id", imageID, "retained_object", storagePath)
	return nil
}
