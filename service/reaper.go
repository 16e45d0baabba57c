package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/models"
	"github.com/krishkalaria12/cropcare/storage"
	"gorm.io/gorm"
)

const reapBatchSize = 500

// Reaper deletes stored objects that no plant image references. Objects younger than the grace period are
// skipped so an upload whose record is still being written is never collected.
type Reaper struct {
	db     *gorm.DB
	store  storage.ObjectStore
	log    *logger.Logger
	prefix string
	grace  time.Duration
	now    func() time.Time
}

type ReapReport struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	TooYoung   int      `json:"too_young"`
	Deleted    int      `json:"deleted"`
	Failed     int      `json:"failed"`
	Orphans    []string `json:"orphans"`
}

var ErrEmptyPrefix = errors.New("reaper needs a non-empty upload prefix")

// NewReaper sweeps the folder named by prefix. The prefix is treated as a folder, so "plant-images" never
// matches "plant-images-archive/". An empty prefix would cover the whole bucket and is refused.
func NewReaper(db *gorm.DB, store storage.ObjectStore, log *logger.Logger, prefix string, grace time.Duration) (*Reaper, error) {
	prefix = folderPrefix(prefix)
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	return &Reaper{
		db:     db,
		store:  store,
		log:    log.With("service", "Reaper"),
		prefix: prefix,
		grace:  grace,
		now:    time.Now,
	}, nil
}

// Run lists every object under the prefix and removes orphans. With dryRun it only reports them.
func (r *Reaper) Run(ctx context.Context, dryRun bool) (*ReapReport, error) {
	objects, err := r.store.List(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	report := &ReapReport{Scanned: len(objects)}
	cutoff := r.now().Add(-r.grace)

	for start := 0; start < len(objects); start += reapBatchSize {
		end := min(start+reapBatchSize, len(objects))
		batch := objects[start:end]

		referenced, err := r.referenced(ctx, batch)
		if err != nil {
			return report, err
		}

		for _, obj := range batch {
			if !strings.HasPrefix(obj.Path, r.prefix) {
				continue
			}
			if referenced[obj.Path] {
				report.Referenced++
				continue
			}
			if obj.Created.After(cutoff) {
				report.TooYoung++
				continue
			}
			report.Orphans = append(report.Orphans, obj.Path)
			if dryRun {
				continue
			}
			if err := r.store.Delete(ctx, obj.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
				r.log.Warn("Failed to delete orphaned object", "path", obj.Path, "error", err)
				report.Failed++
				continue
			}
			report.Deleted++
		}
	}

	r.log.Info("Orphan sweep finished",
		"dry_run", dryRun,
		"scanned", report.Scanned,
		"orphans", len(report.Orphans),
		"deleted", report.Deleted,
		"failed", report.Failed,
	)
	return report, nil
}

func (r *Reaper) referenced(ctx context.Context, batch []storage.Object) (map[string]bool, error) {
	paths := make([]string, len(batch))
	for i, o := range batch {
		paths[i] = o.Path
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.PlantImage{}).
		Where("storage_path IN ?", paths).
		Pluck("storage_path", &found).Error
	if err != nil {
		return nil, fmt.Errorf("lookup referenced objects: %w", err)
	}
	out := make(map[string]bool, len(found))
	for _, p := range found {
		out[p] = true
	}
	return out, nil
}

// folderPrefix strips leading slashes and ends a non-empty prefix with exactly one "/".
func folderPrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
