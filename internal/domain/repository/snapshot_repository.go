package repository

import (
	"context"

	"crewsync-service/internal/domain/entity"
)

// ScheduleSnapshotRepository stores the latest full fetch per entity kind for
// the read API. Snapshots are a convenience cache, never a source of truth.
type ScheduleSnapshotRepository interface {
	Put(ctx context.Context, snapshot *entity.ScheduleSnapshot) error
	Get(ctx context.Context, kind string) (*entity.ScheduleSnapshot, error)
}

// SyncRunRepository journals one entry per sync cycle.
type SyncRunRepository interface {
	Record(ctx context.Context, run *entity.SyncRun) error
	Latest(ctx context.Context, kind string, limit int) ([]entity.SyncRun, error)
}
