package entity

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// FlightRecord is the persisted mirror of a Merlot flight. The natural key is
// FollowID; ID is the opaque store identifier assigned on creation. EventID
// and TeamID stay empty until the corresponding side effect has succeeded.
type FlightRecord struct {
	ID                 string          `gorm:"type:uuid;primaryKey"`
	FollowID           int             `gorm:"uniqueIndex;not null"`
	FlightNumber       string          `gorm:"index"`
	ScheduledDeparture time.Time       `gorm:"index"`
	ScheduledArrival   time.Time       `gorm:"index"`
	OperatingCrew      CrewAssignments `gorm:"type:text"`
	NonOperatingCrew   CrewAssignments `gorm:"type:text"`
	EventID            string
	TeamID             string
	LastMerlotUpdate   time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewFlightRecord maps a Merlot flight onto a persisted record. EventID and
// TeamID are left unset; the propagators fill them in once created.
func NewFlightRecord(flight *MerlotFlight) *FlightRecord {
	record := &FlightRecord{
		FollowID:           flight.FollowID,
		FlightNumber:       flight.Label(),
		ScheduledDeparture: flight.ScheduledDeparture,
		ScheduledArrival:   flight.ScheduledArrival,
		LastMerlotUpdate:   flight.UpdatedDate,
	}
	for _, c := range flight.Crew {
		assignment := CrewAssignment{EmpCode: c.EmpCode, Roles: c.RoleCodes()}
		if c.Operating() {
			record.OperatingCrew = append(record.OperatingCrew, assignment)
		} else {
			record.NonOperatingCrew = append(record.NonOperatingCrew, assignment)
		}
	}
	return record
}

// Cancelled reports whether the record has been through cancellation handling.
func (f *FlightRecord) Cancelled() bool {
	return strings.Contains(f.FlightNumber, "(cancelled)")
}

// AllCrewCodes returns operating then non-operating employee codes.
func (f *FlightRecord) AllCrewCodes() []string {
	codes := make([]string, 0, len(f.OperatingCrew)+len(f.NonOperatingCrew))
	for _, c := range f.OperatingCrew {
		codes = append(codes, c.EmpCode)
	}
	for _, c := range f.NonOperatingCrew {
		codes = append(codes, c.EmpCode)
	}
	return codes
}

// CrewAssignment ties an employee code to the role codes held on the flight.
type CrewAssignment struct {
	EmpCode string
	Roles   []string
}

// CrewAssignments serializes as "empCode;ROLE:ROLE,empCode;ROLE" in a single
// text column, the same packed layout the store has always used.
type CrewAssignments []CrewAssignment

// Value implements driver.Valuer.
func (a CrewAssignments) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(a))
	for _, c := range a {
		parts = append(parts, c.EmpCode+";"+strings.Join(c.Roles, ":"))
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner.
func (a *CrewAssignments) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CrewAssignments", src)
	}

	if raw == "" {
		*a = nil
		return nil
	}

	var out CrewAssignments
	for _, part := range strings.Split(raw, ",") {
		code, roles, _ := strings.Cut(part, ";")
		assignment := CrewAssignment{EmpCode: code}
		if roles != "" {
			assignment.Roles = strings.Split(roles, ":")
		}
		out = append(out, assignment)
	}
	*a = out
	return nil
}
