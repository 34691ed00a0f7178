package entity

import "time"

// CrewRecord is the persisted identity of one employee. EmployeeID is the
// natural key; AadUserID stays empty when the employee has no directory
// account. Records are created lazily and never updated by the sync path.
type CrewRecord struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	EmployeeID string `gorm:"uniqueIndex;not null"`
	Name       string `gorm:"index"`
	Email      string
	AadUserID  string `gorm:"index"`
	Rank       string `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
