// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"

	"github.com/krishkalaria12/cropcare/database"
	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	l, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return l
}

// DB opens a migrated SQLite database private to tb.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := database.Connect(database.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(tb.TempDir(), "cropcare.db"),
	}, Logger(tb))
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	tb.Cleanup(func() { _ = database.Close(db) })
	return db
}

func CreateUser(tb testing.TB, db *gorm.DB, email string) models.User {
	tb.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := models.User{Email: email, DisplayName: "Grower", PasswordHash: string(hash)}
	if err := db.Create(&u).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return u
}

// JPEG returns a small valid JPEG image.
func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: uint8(100 + x%100), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		tb.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
