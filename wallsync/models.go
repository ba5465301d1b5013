package wallsync

import "time"

// SyncRun is one journal row per run.
type SyncRun struct {
	ID               uint      `gorm:"primaryKey"`
	RunID            string    `gorm:"uniqueIndex;size:36"`
	StartedAt        time.Time `gorm:"index"`
	EndedAt          time.Time
	SourceDir        string `gorm:"size:1024"`
	TargetTable      string `gorm:"size:128"`
	DryRun           bool
	FilesFound       int
	FilesProcessed   int
	FilesFailed      int
	FilesSkipped     int
	RecordsGenerated int
	UpsertCalled     bool
	RecordsAccepted  int
	Success          bool   `gorm:"index"`
	LastError        string `gorm:"type:text"`
}

// BatchOutcome is one journal row per submitted batch.
type BatchOutcome struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index;size:36"`
	BatchIndex   int
	Size         int
	Status       int
	Outcome      string `gorm:"index;size:32"` // ok, conflict_fallback, skipped
	Processed    int
	RecordOK     int
	RecordFailed int
	Error        string `gorm:"type:text"`
}
