package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/utils"
)

// CrewRecordRepo implements repository.CrewRecordRepository on the persisted
// store.
type CrewRecordRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewCrewRecordRepo creates a new crew record repository
func NewCrewRecordRepo(db *gorm.DB, logger logger.Logger) repository.CrewRecordRepository {
	return &CrewRecordRepo{db: db, logger: logger}
}

func (r *CrewRecordRepo) Get(ctx context.Context, employeeID string) (*entity.CrewRecord, error) {
	var record entity.CrewRecord
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crew record: %w", err)
	}
	return &record, nil
}

func (r *CrewRecordRepo) GetMultiple(ctx context.Context, employeeIDs []string) ([]entity.CrewRecord, error) {
	records := make([]entity.CrewRecord, 0, len(employeeIDs))
	for _, chunk := range utils.Chunk(employeeIDs, storeBatchSize) {
		var batch []entity.CrewRecord
		if err := r.db.WithContext(ctx).Where("employee_id IN ?", chunk).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("failed to get crew records: %w", err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

func (r *CrewRecordRepo) GetMultipleByAadID(ctx context.Context, aadUserIDs []string) ([]entity.CrewRecord, error) {
	records := make([]entity.CrewRecord, 0, len(aadUserIDs))
	for _, chunk := range utils.Chunk(aadUserIDs, storeBatchSize) {
		var batch []entity.CrewRecord
		if err := r.db.WithContext(ctx).Where("aad_user_id IN ?", chunk).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("failed to get crew records by directory id: %w", err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

func (r *CrewRecordRepo) CreateMultiple(ctx context.Context, records []entity.CrewRecord) ([]string, error) {
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
		return nil, fmt.Errorf("failed to create crew records: %w", err)
	}

	r.logger.Debug("Created crew records", "count", len(records))
	return ids, nil
}

func (r *CrewRecordRepo) Update(ctx context.Context, record *entity.CrewRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to update crew record %s: %w", record.EmployeeID, err)
	}
	return nil
}

func (r *CrewRecordRepo) SearchByName(ctx context.Context, name, rank string) ([]entity.CrewRecord, error) {
	query := r.db.WithContext(ctx)
	if name != "" {
		query = query.Where("name ILIKE ?", "%"+name+"%")
	}
	if rank != "" {
		query = query.Where("rank = ?", rank)
	}

	var records []entity.CrewRecord
	if err := query.Order("name").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search crew records: %w", err)
	}
	return records, nil
}
