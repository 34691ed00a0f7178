package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/utils"
)

// storeBatchSize bounds how many records go into one store round trip, for
// both IN lookups and bulk inserts.
const storeBatchSize = 1000

// FlightRecordRepo implements repository.FlightRecordRepository on the
// persisted store.
type FlightRecordRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewFlightRecordRepo creates a new flight record repository
func NewFlightRecordRepo(db *gorm.DB, logger logger.Logger) repository.FlightRecordRepository {
	return &FlightRecordRepo{db: db, logger: logger}
}

func (r *FlightRecordRepo) Get(ctx context.Context, followID int) (*entity.FlightRecord, error) {
	var record entity.FlightRecord
	err := r.db.WithContext(ctx).Where("follow_id = ?", followID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flight record: %w", err)
	}
	return &record, nil
}

func (r *FlightRecordRepo) GetMultiple(ctx context.Context, followIDs []int) ([]entity.FlightRecord, error) {
	records := make([]entity.FlightRecord, 0, len(followIDs))
	for _, chunk := range utils.Chunk(followIDs, storeBatchSize) {
		var batch []entity.FlightRecord
		if err := r.db.WithContext(ctx).Where("follow_id IN ?", chunk).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("failed to get flight records: %w", err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

func (r *FlightRecordRepo) CreateMultiple(ctx context.Context, records []entity.FlightRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, len(records))
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		ids[i] = records[i].ID
	}

	if err := r.db.WithContext(ctx).CreateInBatches(records, storeBatchSize).Error; err != nil {
		return nil, fmt.Errorf("failed to create flight records: %w", err)
	}

	r.logger.Debug("Created flight records", "count", len(records))
	return ids, nil
}

func (r *FlightRecordRepo) UpdateMultiple(ctx context.Context, records []entity.FlightRecord) error {
	for i := range records {
		if err := r.db.WithContext(ctx).Save(&records[i]).Error; err != nil {
			return fmt.Errorf("failed to update flight record %d: %w", records[i].FollowID, err)
		}
	}
	return nil
}

func (r *FlightRecordRepo) DeleteMultiple(ctx context.Context, ids []string) error {
	for _, chunk := range utils.Chunk(ids, storeBatchSize) {
		if err := r.db.WithContext(ctx).Where("id IN ?", chunk).Delete(&entity.FlightRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete flight records: %w", err)
		}
	}
	return nil
}

func (r *FlightRecordRepo) GetWithin(ctx context.Context, span time.Duration) ([]entity.FlightRecord, error) {
	now := time.Now().UTC()
	var records []entity.FlightRecord
	err := r.db.WithContext(ctx).
		Where("scheduled_departure BETWEEN ? AND ?", now, now.Add(span)).
		Order("scheduled_departure").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming flight records: %w", err)
	}
	return records, nil
}

func (r *FlightRecordRepo) GetFinished(ctx context.Context, olderThan time.Duration) ([]entity.FlightRecord, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var records []entity.FlightRecord
	err := r.db.WithContext(ctx).
		Where("scheduled_arrival < ?", cutoff).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get finished flight records: %w", err)
	}
	return records, nil
}

func (r *FlightRecordRepo) GetContainingCrew(ctx context.Context, empCodes []string) ([]entity.FlightRecord, error) {
	if len(empCodes) == 0 {
		return nil, nil
	}

	// Crew columns hold the packed "empCode;ROLE:ROLE,..." layout, so the
	// match is a substring test on the code with its delimiter.
	query := r.db.WithContext(ctx).Where("scheduled_arrival >= ?", time.Now().UTC())
	crewFilter := r.db.Where("1 = 0")
	for _, code := range empCodes {
		pattern := "%" + code + ";%"
		crewFilter = crewFilter.Or(r.db.Where("operating_crew LIKE ? OR non_operating_crew LIKE ?", pattern, pattern))
	}

	var records []entity.FlightRecord
	if err := query.Where(crewFilter).Order("scheduled_departure").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get flight records by crew: %w", err)
	}
	return records, nil
}
