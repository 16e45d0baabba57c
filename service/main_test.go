package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/krishkalaria12/cropcare/diagnosis"
	"github.com/krishkalaria12/cropcare/storage"
	"github.com/krishkalaria12/cropcare/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	store     *flakyStore
	images    *ImageService
	diagnoses *DiagnosisService
	stats     *StatsService
}

// flakyStore wraps a LocalStore and can be told to fail uploads.
type flakyStore struct {
	*storage.LocalStore
	mu      sync.Mutex
	failPut bool
	puts    int
}

func (f *flakyStore) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("bucket unavailable")
	}
	f.puts++
	return f.LocalStore.Put(ctx, path, r, contentType)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	local, err := storage.NewLocalStore(t.TempDir(), "http://localhost:3000")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	store := &flakyStore{LocalStore: local}

	images := NewImageService(db, store, log, ImageOptions{UploadPath: "plant-images", MaxUploadBytes: 1 << 20, MaxDimension: 256})
	images.now = steppingClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	return &fixture{
		db:        db,
		store:     store,
		images:    images,
		diagnoses: NewDiagnosisService(db, images, diagnosis.NewMockClassifier(rand.NewPCG(42, 42)), log),
		stats:     NewStatsService(db),
	}
}

// steppingClock advances one minute per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Minute)
		return t
	}
}

func leaf(t *testing.T) io.Reader {
	return bytes.NewReader(testutil.JPEG(t, 32, 24))
}
