package service

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/models"
	"github.com/krishkalaria12/cropcare/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeCreatesOneOwnedRecord(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "grower@example.com")

	img, err := f.images.Intake(context.Background(), user.ID, "leaf.jpg", leaf(t))
	require.NoError(t, err)

	var rows []models.PlantImage
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, user.ID, rows[0].OwnerID)
	assert.Equal(t, img.ID, rows[0].ID)
	assert.Equal(t, "image/jpeg", rows[0].ContentType)

	prefix := "plant-images/" + user.ID.String() + "/"
	assert.True(t, strings.HasPrefix(img.StoragePath, prefix), img.StoragePath)
	assert.True(t, strings.HasSuffix(img.StoragePath, ".jpg"))
	assert.Equal(t, "http://localhost:3000/uploads/"+img.StoragePath, img.ImageURL)

	_, err = os.Stat(filepath.Join(f.store.Dir(), filepath.FromSlash(img.StoragePath)))
	assert.NoError(t, err)
}

func TestIntakePathsDoNotCollide(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "grower@example.com")

	a, err := f.images.Intake(context.Background(), user.ID, "leaf.jpg", leaf(t))
	require.NoError(t, err)
	b, err := f.images.Intake(context.Background(), user.ID, "leaf.jpg", leaf(t))
	require.NoError(t, err)

	assert.NotEqual(t, a.StoragePath, b.StoragePath)
}

func TestIntakeUploadFailureLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "grower@example.com")
	f.store.failPut = true

	_, err := f.images.Intake(context.Background(), user.ID, "leaf.jpg", leaf(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, http.StatusBadGateway, apperr.As(err).Status)
	assert.Equal(t, "Failed to upload image", apperr.As(err).Message)

	var count int64
	require.NoError(t, f.db.Model(&models.PlantImage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIntakeSaveFailureLeavesOrphanObject(t *testing.T) {
	f := newFixture(t)
	// no such profile: the owner foreign key rejects the insert after the upload succeeded
	_, err := f.images.Intake(context.Background(), uuid.New(), "leaf.jpg", leaf(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailed)

	objs, err := f.store.List(context.Background(), "plant-images/")
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestIntakeValidation(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "grower@example.com")
	ctx := context.Background()

	_, err := f.images.Intake(ctx, user.ID, "empty.jpg", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = f.images.Intake(ctx, user.ID, "notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = f.images.Intake(ctx, user.ID, "huge.jpg", bytes.NewReader(make([]byte, 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, apperr.As(err).Status)

	assert.Zero(t, f.store.puts)
}

func TestIntakeDownscalesLargeImages(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "grower@example.com")

	img, err := f.images.Intake(context.Background(), user.ID, "big.jpg", bytes.NewReader(testutil.JPEG(t, 600, 300)))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.store.Dir(), filepath.FromSlash(img.StoragePath)))
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 128, cfg.Height)
}

func TestHistoryNewestFirstWithPredictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "grower@example.com")
	other := testutil.CreateUser(t, f.db, "neighbour@example.com")

	first, err := f.images.Intake(ctx, user.ID, "1.jpg", leaf(t))
	require.NoError(t, err)
	second, err := f.images.Intake(ctx, user.ID, "2.jpg", leaf(t))
	require.NoError(t, err)
	_, err = f.images.Intake(ctx, other.ID, "3.jpg", leaf(t))
	require.NoError(t, err)

	_, err = f.diagnoses.Generate(ctx, first.ID)
	require.NoError(t, err)

	history, err := f.images.History(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	assert.Empty(t, history[0].Predictions)
	assert.Len(t, history[1].Predictions, 1)
}

func TestDeleteRemovesFromHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "grower@example.com")

	img, err := f.images.Intake(ctx, user.ID, "leaf.jpg", leaf(t))
	require.NoError(t, err)
	_, err = f.diagnoses.Generate(ctx, img.ID)
	require.NoError(t, err)

	require.NoError(t, f.images.Delete(ctx, user.ID, img.ID))

	history, err := f.images.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	var predictions int64
	require.NoError(t, f.db.Model(&models.Prediction{}).Count(&predictions).Error)
	assert.Zero(t, predictions)

	// binary is retained for the reaper
	objs, err := f.store.List(ctx, "plant-images/")
	require.NoError(t, err)
	assert.Len(t, objs, 1)

	assert.ErrorIs(t, f.images.Delete(ctx, user.ID, img.ID), ErrImageNotFound)
}

func TestDeleteAndGetAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "grower@example.com")
	stranger := testutil.CreateUser(t, f.db, "stranger@example.com")

	img, err := f.images.Intake(ctx, owner.ID, "leaf.jpg", leaf(t))
	require.NoError(t, err)

	_, err = f.images.Get(ctx, stranger.ID, img.ID)
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.ErrorIs(t, f.images.Delete(ctx, stranger.ID, img.ID), ErrImageNotFound)

	got, err := f.images.Get(ctx, owner.ID, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, got.ID)
}
