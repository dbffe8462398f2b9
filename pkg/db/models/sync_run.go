package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/stocksync-backend/pkg/enums"
)

// SyncRun is the audit record of one orchestration run for a source. A row
// is created in RUNNING state before the run starts and always transitioned
// to a terminal status with counts and a finish timestamp on exit.
type SyncRun struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Source     enums.SyncSource    `gorm:"column:source;type:sync_source_enum;not null;index"`
	Trigger    enums.SyncTrigger   `gorm:"column:trigger;type:sync_trigger_enum;not null"`
	Status     enums.SyncRunStatus `gorm:"column:status;type:sync_run_status_enum;not null"`
	Created    int                 `gorm:"column:created;not null;default:0"`
	Updated    int                 `gorm:"column:updated;not null;default:0"`
	Skipped    int                 `gorm:"column:skipped;not null;default:0"`
	Failed     int                 `gorm:"column:failed;not null;default:0"`
	Errors     pq.StringArray      `gorm:"column:errors;type:text[]"`
	StartedAt  time.Time           `gorm:"column:started_at;not null"`
	FinishedAt *time.Time          `gorm:"column:finished_at"`
	DurationMS int64               `gorm:"column:duration_ms;not null;default:0"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime;index"`
}
