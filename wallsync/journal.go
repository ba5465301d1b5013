package wallsync

import (
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal is an append-only sqlite log of runs and their batches. Nothing in
// a run reads it back, so every run still submits everything it finds.
type Journal struct {
	db *gorm.DB
}

func OpenJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SyncRun{}, &BatchOutcome{}); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	j.db = nil
	return err
}

// Record stores a run and its batches in one transaction.
func (j *Journal) Record(run *SyncRun, batches []BatchOutcome) error {
	return j.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		if len(batches) == 0 {
			return nil
		}
		return tx.Create(&batches).Error
	})
}

// recentRuns returns up to limit runs, newest first.
func (j *Journal) recentRuns(limit int) ([]SyncRun, error) {
	var runs []SyncRun
	err := j.db.Order("started_at desc, id desc").Limit(limit).Find(&runs).Error
	return runs, err
}

func (j *Journal) runBatches(runID string) ([]BatchOutcome, error) {
	var out []BatchOutcome
	err := j.db.Where("run_id = ?", runID).Order("batch_index asc").Find(&out).Error
	return out, err
}
