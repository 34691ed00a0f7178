package persistence

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"crewsync-service/internal/domain/entity"
)

// NewPostgres opens the persisted store and migrates the record tables.
func NewPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&entity.FlightRecord{},
		&entity.DutyRecord{},
		&entity.CrewRecord{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
