package repository

import (
	"context"
	"time"

	"crewsync-service/internal/domain/entity"
)

// FlightRecordRepository defines the persisted-store operations for flight
// records. All multi-record operations chunk internally to the store's batch
// ceiling; natural keys (follow ids) are unique across the table.
type FlightRecordRepository interface {
	Get(ctx context.Context, followID int) (*entity.FlightRecord, error)
	GetMultiple(ctx context.Context, followIDs []int) ([]entity.FlightRecord, error)
	CreateMultiple(ctx context.Context, records []entity.FlightRecord) ([]string, error)
	UpdateMultiple(ctx context.Context, records []entity.FlightRecord) error
	DeleteMultiple(ctx context.Context, ids []string) error

	// GetWithin returns flights departing inside the next span.
	GetWithin(ctx context.Context, span time.Duration) ([]entity.FlightRecord, error)
	// GetFinished returns flights whose arrival is older than the retention
	// threshold and which are due for archival.
	GetFinished(ctx context.Context, olderThan time.Duration) ([]entity.FlightRecord, error)
	// GetContainingCrew returns current or future flights carrying any of the
	// given employee codes.
	GetContainingCrew(ctx context.Context, empCodes []string) ([]entity.FlightRecord, error)
}
