package repository

import (
	"context"
	"time"

	"crewsync-service/internal/domain/entity"
)

// DutyRecordRepository defines the persisted-store operations for duty records.
type DutyRecordRepository interface {
	Get(ctx context.Context, merlotID string) (*entity.DutyRecord, error)
	GetMultiple(ctx context.Context, merlotIDs []string) ([]entity.DutyRecord, error)
	CreateMultiple(ctx context.Context, records []entity.DutyRecord) ([]string, error)
	UpdateMultiple(ctx context.Context, records []entity.DutyRecord) error
	DeleteMultiple(ctx context.Context, ids []string) error

	// GetByCrew returns current or future duties carrying the employee code,
	// optionally filtered by a label search term.
	GetByCrew(ctx context.Context, empCode, search string) ([]entity.DutyRecord, error)
	// GetFinished returns duties whose end is older than the retention threshold.
	GetFinished(ctx context.Context, olderThan time.Duration) ([]entity.DutyRecord, error)
}
