package repository

import (
	"context"

	"crewsync-service/internal/domain/entity"
)

// CrewRecordRepository defines the persisted-store operations for crew
// identities. The sync path only ever creates records; Update exists for
// administrative use.
type CrewRecordRepository interface {
	Get(ctx context.Context, employeeID string) (*entity.CrewRecord, error)
	GetMultiple(ctx context.Context, employeeIDs []string) ([]entity.CrewRecord, error)
	GetMultipleByAadID(ctx context.Context, aadUserIDs []string) ([]entity.CrewRecord, error)
	CreateMultiple(ctx context.Context, records []entity.CrewRecord) ([]string, error)
	Update(ctx context.Context, record *entity.CrewRecord) error
	SearchByName(ctx context.Context, name, rank string) ([]entity.CrewRecord, error)
}
