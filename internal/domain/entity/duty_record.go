package entity

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crewsync-service/pkg/utils"
)

// DutyRecord is the persisted mirror of a flight-linked (FPG) pairing. Merlot
// gives no update timestamp for pairings, so freshness is tracked with a
// content hash instead.
type DutyRecord struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	MerlotID  string     `gorm:"uniqueIndex;not null"`
	Label     string     `gorm:"index"`
	Start     time.Time  `gorm:"index"`
	End       time.Time  `gorm:"index"`
	Flights   StringList `gorm:"type:text"`
	Crew      StringList `gorm:"type:text"`
	Ports     StringList `gorm:"type:text"`
	Hash      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDutyRecord maps a Merlot pairing onto a persisted duty record and stamps
// the content hash.
func NewDutyRecord(pairing *MerlotPairing) *DutyRecord {
	record := &DutyRecord{
		MerlotID: strconv.Itoa(pairing.ID),
		Label:    pairing.Label,
		Start:    pairing.StartDate,
		End:      pairing.EndDate,
	}

	seen := make(map[string]struct{})
	for _, duty := range pairing.Duties {
		for _, flight := range duty.Flights {
			record.Flights = append(record.Flights, strconv.Itoa(flight.ID))
		}
		for _, port := range []string{duty.FromPort, duty.ToPort} {
			if _, ok := seen[port]; ok {
				continue
			}
			seen[port] = struct{}{}
			record.Ports = append(record.Ports, port)
		}
	}
	for _, e := range pairing.PairingEmployees {
		record.Crew = append(record.Crew, e.EmpCode)
	}

	record.Hash = record.ComputeHash()
	return record
}

// ComputeHash fingerprints the fields that matter for change detection. List
// fields are hashed in the order the source delivered them; the source keeps
// that ordering stable across syncs.
func (d *DutyRecord) ComputeHash() string {
	str := d.MerlotID + d.Label + d.Start.UTC().Format(time.RFC3339) + d.End.UTC().Format(time.RFC3339) +
		strings.Join(d.Flights, ",") + strings.Join(d.Crew, ",") + strings.Join(d.Ports, ",")
	return utils.CalculateHash(str)
}

// StringList serializes as a comma-joined text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}

	if raw == "" {
		*l = nil
		return nil
	}
	*l = strings.Split(raw, ",")
	return nil
}
