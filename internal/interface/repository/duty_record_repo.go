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

// DutyRecordRepo implements repository.DutyRecordRepository on the persisted
// store.
type DutyRecordRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewDutyRecordRepo creates a new duty record repository
func NewDutyRecordRepo(db *gorm.DB, logger logger.Logger) repository.DutyRecordRepository {
	return &DutyRecordRepo{db: db, logger: logger}
}

func (r *DutyRecordRepo) Get(ctx context.Context, merlotID string) (*entity.DutyRecord, error) {
	var record entity.DutyRecord
	err := r.db.WithContext(ctx).Where("merlot_id = ?", merlotID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duty record: %w", err)
	}
	return &record, nil
}

func (r *DutyRecordRepo) GetMultiple(ctx context.Context, merlotIDs []string) ([]entity.DutyRecord, error) {
	records := make([]entity.DutyRecord, 0, len(merlotIDs))
	for _, chunk := range utils.Chunk(merlotIDs, storeBatchSize) {
		var batch []entity.DutyRecord
		if err := r.db.WithContext(ctx).Where("merlot_id IN ?", chunk).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("failed to get duty records: %w", err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

func (r *DutyRecordRepo) CreateMultiple(ctx context.Context, records []entity.DutyRecord) ([]string, error) {
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
		return nil, fmt.Errorf("failed to create duty records: %w", err)
	}

	r.logger.Debug("Created duty records", "count", len(records))
	return ids, nil
}

func (r *DutyRecordRepo) UpdateMultiple(ctx context.Context, records []entity.DutyRecord) error {
	for i := range records {
		if err := r.db.WithContext(ctx).Save(&records[i]).Error; err != nil {
			return fmt.Errorf("failed to update duty record %s: %w", records[i].MerlotID, err)
		}
	}
	return nil
}

func (r *DutyRecordRepo) DeleteMultiple(ctx context.Context, ids []string) error {
	for _, chunk := range utils.Chunk(ids, storeBatchSize) {
		if err := r.db.WithContext(ctx).Where("id IN ?", chunk).Delete(&entity.DutyRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete duty records: %w", err)
		}
	}
	return nil
}

func (r *DutyRecordRepo) GetByCrew(ctx context.Context, empCode, search string) ([]entity.DutyRecord, error) {
	query := r.db.WithContext(ctx).
		Where("\"end\" >= ?", time.Now().UTC()).
		Where("crew LIKE ?", "%"+empCode+"%")
	if search != "" {
		query = query.Where("label ILIKE ?", "%"+search+"%")
	}

	var records []entity.DutyRecord
	if err := query.Order("start").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get duty records by crew: %w", err)
	}
	return records, nil
}

func (r *DutyRecordRepo) GetFinished(ctx context.Context, olderThan time.Duration) ([]entity.DutyRecord, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var records []entity.DutyRecord
	err := r.db.WithContext(ctx).Where("\"end\" < ?", cutoff).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get finished duty records: %w", err)
	}
	return records, nil
}
