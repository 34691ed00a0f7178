package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMerlotFlight() *MerlotFlight {
	return &MerlotFlight{
		FollowID:           12345,
		DesignatorCode:     "XX",
		FlightNumber:       "101",
		DeparturePort:      "SYD",
		ArrivalPort:        "MEL",
		ScheduledDeparture: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		ScheduledArrival:   time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		UpdatedDate:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Crew: []MerlotFlightCrew{
			{EmpCode: "E1", Roles: []MerlotCrewRole{{Code: "OP"}, {Code: "CPT"}}},
			{EmpCode: "E2", Roles: []MerlotCrewRole{{Code: "PAX"}}},
		},
	}
}

func TestNewFlightRecordPartitionsCrewByOperatingRole(t *testing.T) {
	record := NewFlightRecord(testMerlotFlight())

	assert.Equal(t, "XX101", record.FlightNumber)
	require.Len(t, record.OperatingCrew, 1)
	assert.Equal(t, "E1", record.OperatingCrew[0].EmpCode)
	require.Len(t, record.NonOperatingCrew, 1)
	assert.Equal(t, "E2", record.NonOperatingCrew[0].EmpCode)

	assert.Equal(t, []string{"E1", "E2"}, record.AllCrewCodes())
	assert.Empty(t, record.EventID)
	assert.Empty(t, record.TeamID)
}

func TestCrewAssignmentsRoundTrip(t *testing.T) {
	crew := CrewAssignments{
		{EmpCode: "E1", Roles: []string{"OP", "CPT"}},
		{EmpCode: "E2", Roles: []string{"PAX"}},
		{EmpCode: "E3"},
	}

	value, err := crew.Value()
	require.NoError(t, err)
	assert.Equal(t, "E1;OP:CPT,E2;PAX,E3;", value)

	var scanned CrewAssignments
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 3)
	assert.Equal(t, []string{"OP", "CPT"}, scanned[0].Roles)
	assert.Equal(t, "E3", scanned[2].EmpCode)
	assert.Nil(t, scanned[2].Roles)
}

func TestCancelledChecksLabelPrefix(t *testing.T) {
	record := &FlightRecord{FlightNumber: "XX101"}
	assert.False(t, record.Cancelled())

	record.FlightNumber = "(cancelled) XX101"
	assert.True(t, record.Cancelled())
}
