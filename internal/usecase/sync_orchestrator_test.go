package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/internal/infrastructure/config"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/utils"
)

func TestSyncRangeEndsAtEndOfMonth(t *testing.T) {
	from, to := syncRange(time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), to)
}

func TestSyncRangeExtendsNearEndOfMonth(t *testing.T) {
	from, to := syncRange(time.Date(2026, 3, 28, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), to)
}

type fakeFlightSource struct {
	flights []entity.MerlotFlight
	byID    map[int]entity.MerlotFlight
	failOne bool
}

func (f *fakeFlightSource) FetchFlights(_ context.Context, from, to time.Time, _ bool) <-chan repository.FlightWindowResult {
	results := make(chan repository.FlightWindowResult, 2)
	results <- repository.FlightWindowResult{
		Window:  utils.DateWindow{From: from, To: to},
		Flights: f.flights,
	}
	if f.failOne {
		results <- repository.FlightWindowResult{
			Window: utils.DateWindow{From: from, To: to},
			Err:    context.DeadlineExceeded,
		}
	}
	close(results)
	return results
}

func (f *fakeFlightSource) GetFlightsByID(_ context.Context, followIDs []int) ([]entity.MerlotFlight, error) {
	var out []entity.MerlotFlight
	for _, id := range followIDs {
		if flight, ok := f.byID[id]; ok {
			out = append(out, flight)
		}
	}
	return out, nil
}

type fakeFlightRepo struct {
	records     map[int]entity.FlightRecord
	deleted     []string
	getFinished []entity.FlightRecord
}

func newFakeFlightRepo() *fakeFlightRepo {
	return &fakeFlightRepo{records: make(map[int]entity.FlightRecord)}
}

func (f *fakeFlightRepo) Get(_ context.Context, followID int) (*entity.FlightRecord, error) {
	if r, ok := f.records[followID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeFlightRepo) GetMultiple(_ context.Context, followIDs []int) ([]entity.FlightRecord, error) {
	var out []entity.FlightRecord
	for _, id := range followIDs {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeFlightRepo) CreateMultiple(_ context.Context, records []entity.FlightRecord) ([]string, error) {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			r.ID = "store-" + r.FlightNumber
		}
		f.records[r.FollowID] = r
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (f *fakeFlightRepo) UpdateMultiple(_ context.Context, records []entity.FlightRecord) error {
	for _, r := range records {
		f.records[r.FollowID] = r
	}
	return nil
}

func (f *fakeFlightRepo) DeleteMultiple(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	for _, id := range ids {
		for followID, r := range f.records {
			if r.ID == id {
				delete(f.records, followID)
			}
		}
	}
	return nil
}

func (f *fakeFlightRepo) GetWithin(context.Context, time.Duration) ([]entity.FlightRecord, error) {
	var out []entity.FlightRecord
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeFlightRepo) GetFinished(context.Context, time.Duration) ([]entity.FlightRecord, error) {
	return f.getFinished, nil
}

func (f *fakeFlightRepo) GetContainingCrew(context.Context, []string) ([]entity.FlightRecord, error) {
	return nil, nil
}

type fakeDutyRepo struct {
	records map[string]entity.DutyRecord
}

func newFakeDutyRepo() *fakeDutyRepo {
	return &fakeDutyRepo{records: make(map[string]entity.DutyRecord)}
}

func (f *fakeDutyRepo) Get(_ context.Context, merlotID string) (*entity.DutyRecord, error) {
	if r, ok := f.records[merlotID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeDutyRepo) GetMultiple(_ context.Context, merlotIDs []string) ([]entity.DutyRecord, error) {
	var out []entity.DutyRecord
	for _, id := range merlotIDs {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDutyRepo) CreateMultiple(_ context.Context, records []entity.DutyRecord) ([]string, error) {
	var ids []string
	for _, r := range records {
		f.records[r.MerlotID] = r
		ids = append(ids, r.MerlotID)
	}
	return ids, nil
}

func (f *fakeDutyRepo) UpdateMultiple(_ context.Context, records []entity.DutyRecord) error {
	for _, r := range records {
		f.records[r.MerlotID] = r
	}
	return nil
}

func (f *fakeDutyRepo) DeleteMultiple(context.Context, []string) error { return nil }

func (f *fakeDutyRepo) GetByCrew(context.Context, string, string) ([]entity.DutyRecord, error) {
	return nil, nil
}

func (f *fakeDutyRepo) GetFinished(context.Context, time.Duration) ([]entity.DutyRecord, error) {
	return nil, nil
}

type fakeSnapshotRepo struct {
	snapshots map[string]entity.ScheduleSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[string]entity.ScheduleSnapshot)}
}

func (f *fakeSnapshotRepo) Put(_ context.Context, snapshot *entity.ScheduleSnapshot) error {
	f.snapshots[snapshot.Kind] = *snapshot
	return nil
}

func (f *fakeSnapshotRepo) Get(_ context.Context, kind string) (*entity.ScheduleSnapshot, error) {
	if s, ok := f.snapshots[kind]; ok {
		return &s, nil
	}
	return nil, nil
}

type fakeJournal struct {
	runs []entity.SyncRun
}

func (f *fakeJournal) Record(_ context.Context, run *entity.SyncRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeJournal) Latest(context.Context, string, int) ([]entity.SyncRun, error) {
	return nil, nil
}

type orchestratorFixture struct {
	orchestrator *SyncOrchestratorUsecase
	flightSource *fakeFlightSource
	flightRepo   *fakeFlightRepo
	dutyRepo     *fakeDutyRepo
	snapshots    *fakeSnapshotRepo
	journal      *fakeJournal
	calendar     *fakeCalendar
	teams        *fakeTeamService
}

func newOrchestratorFixture(flights []entity.MerlotFlight) *orchestratorFixture {
	log := logger.NewNopLogger()

	crewRepo := newFakeCrewRepo()
	employees := &fakeEmployeeSource{employees: map[string]*entity.MerlotEmployee{
		"E1": employeeWithEmail("E1", "e1@example.com"),
		"E2": employeeWithEmail("E2", "e2@example.com"),
	}}
	directory := &fakeDirectory{usersByMail: map[string]entity.GraphUser{
		"e1@example.com": {ID: "aad-1", Mail: "e1@example.com"},
		"e2@example.com": {ID: "aad-2", Mail: "e2@example.com"},
	}}

	policy := NewAllAssignedCrewPolicy()
	calendar := &fakeCalendar{}
	teams := newFakeTeamService()

	fixture := &orchestratorFixture{
		flightSource: &fakeFlightSource{flights: flights, byID: make(map[int]entity.MerlotFlight)},
		flightRepo:   newFakeFlightRepo(),
		dutyRepo:     newFakeDutyRepo(),
		snapshots:    newFakeSnapshotRepo(),
		journal:      &fakeJournal{},
		calendar:     calendar,
		teams:        teams,
	}
	for i := range flights {
		fixture.flightSource.byID[flights[i].FollowID] = flights[i]
	}

	fixture.orchestrator = NewSyncOrchestratorUsecase(
		fixture.flightSource, nil,
		fixture.flightRepo, fixture.dutyRepo,
		fixture.snapshots, fixture.journal,
		NewCrewResolverUsecase(crewRepo, employees, directory, log),
		NewCalendarPropagatorUsecase(calendar, policy, log, testMetrics),
		NewTeamPropagatorUsecase(teams, policy, "owner@example.com", nil, log, testMetrics),
		&config.Config{}, log, testMetrics,
	)
	return fixture
}

func syncTestFlight(followID int, updated time.Time) entity.MerlotFlight {
	flight := testFlight(followID, updated)
	flight.Crew = []entity.MerlotFlightCrew{
		{EmpCode: "E1", EmailAddress: "e1@example.com", Roles: []entity.MerlotCrewRole{{Code: "OP"}}},
	}
	return flight
}

func TestSyncFlightsCreatesRecordWithEventID(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixture := newOrchestratorFixture([]entity.MerlotFlight{syncTestFlight(1, stamp)})

	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	record, ok := fixture.flightRepo.records[1]
	require.True(t, ok)
	assert.Equal(t, "evt-1", record.EventID)
	assert.Equal(t, stamp, record.LastMerlotUpdate)

	// snapshot cached, journal written
	assert.Contains(t, fixture.snapshots.snapshots, entity.SnapshotFlights)
	require.Len(t, fixture.journal.runs, 1)
	assert.True(t, fixture.journal.runs[0].FinishedOK)
	assert.Equal(t, 1, fixture.journal.runs[0].Created)
}

func TestSyncFlightsSecondRunIsNoop(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixture := newOrchestratorFixture([]entity.MerlotFlight{syncTestFlight(1, stamp)})

	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	assert.Len(t, fixture.calendar.created, 1, "unchanged flight must not create another event")
	require.Len(t, fixture.journal.runs, 2)
	assert.Zero(t, fixture.journal.runs[1].Created)
	assert.Zero(t, fixture.journal.runs[1].Updated)
}

func TestSyncFlightsUpdatesChangedFlight(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixture := newOrchestratorFixture([]entity.MerlotFlight{syncTestFlight(1, stamp)})
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	fresh := syncTestFlight(1, stamp.Add(time.Hour))
	fresh.ScheduledArrival = fresh.ScheduledArrival.Add(30 * time.Minute)
	fixture.flightSource.flights = []entity.MerlotFlight{fresh}

	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	record := fixture.flightRepo.records[1]
	assert.Equal(t, fresh.UpdatedDate, record.LastMerlotUpdate)
	assert.Equal(t, "evt-1", record.EventID, "event handle survives updates")
	require.Len(t, fixture.calendar.updated, 1)
	assert.Equal(t, "evt-1", fixture.calendar.updated[0].ID)
}

func TestSyncFlightsCancelsFlight(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixture := newOrchestratorFixture([]entity.MerlotFlight{syncTestFlight(1, stamp)})
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	cancelled := syncTestFlight(1, stamp.Add(time.Hour))
	cancelled.Cancelled = true
	fixture.flightSource.flights = []entity.MerlotFlight{cancelled}

	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	record := fixture.flightRepo.records[1]
	assert.True(t, record.Cancelled())
	assert.Equal(t, []string{"evt-1"}, fixture.calendar.cancelled)
}

func TestSyncFlightsRetriesEventCreationForRecordWithoutEvent(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixture := newOrchestratorFixture([]entity.MerlotFlight{syncTestFlight(1, stamp)})

	// first pass: the directory never returns an id, the record lands
	// without an event handle
	fixture.calendar.duplicates = map[string]bool{"1": true}
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))
	require.Empty(t, fixture.flightRepo.records[1].EventID)

	// second pass: the flight changed and the directory is healthy again,
	// the missing event must be created rather than patched
	fixture.calendar.duplicates = nil
	fixture.flightSource.flights = []entity.MerlotFlight{syncTestFlight(1, stamp.Add(time.Hour))}
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	record := fixture.flightRepo.records[1]
	assert.Equal(t, "evt-1", record.EventID)
	assert.Empty(t, fixture.calendar.updated, "a record without an event has nothing to patch")
}

func TestSyncFlightsMarksFlightCancelledOnArrival(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	flight := syncTestFlight(1, stamp)
	flight.Cancelled = true
	fixture := newOrchestratorFixture([]entity.MerlotFlight{flight})

	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	record, ok := fixture.flightRepo.records[1]
	require.True(t, ok)
	assert.True(t, record.Cancelled(), "a flight first seen cancelled must be stored cancelled")
	assert.Empty(t, fixture.calendar.created)

	// team provisioning must skip it too
	require.NoError(t, fixture.orchestrator.SyncTeams(context.Background()))
	assert.Empty(t, fixture.teams.created)
}

func TestSyncFlightsRetriesFailedCancelNextCycle(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixture := newOrchestratorFixture([]entity.MerlotFlight{syncTestFlight(1, stamp)})
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	cancelled := syncTestFlight(1, stamp.Add(time.Hour))
	cancelled.Cancelled = true
	fixture.flightSource.flights = []entity.MerlotFlight{cancelled}

	// the event cancel fails; the record must stay in its old state so the
	// flight still reads as changed
	fixture.calendar.cancelErr = assert.AnError
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))
	record := fixture.flightRepo.records[1]
	assert.False(t, record.Cancelled())
	assert.Equal(t, stamp, record.LastMerlotUpdate)

	fixture.calendar.cancelErr = nil
	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))
	record = fixture.flightRepo.records[1]
	assert.True(t, record.Cancelled())
	assert.Equal(t, []string{"evt-1"}, fixture.calendar.cancelled)
}

func TestSyncFlightsSkipsFailedWindow(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixture := newOrchestratorFixture([]entity.MerlotFlight{syncTestFlight(1, stamp)})
	fixture.flightSource.failOne = true

	require.NoError(t, fixture.orchestrator.SyncFlights(context.Background()))

	assert.Contains(t, fixture.flightRepo.records, 1, "good window still processed")
	require.Len(t, fixture.journal.runs, 1)
	assert.NotZero(t, fixture.journal.runs[0].Skipped)
}

func TestArchiveAndCleanupArchivesBeforeDeleting(t *testing.T) {
	fixture := newOrchestratorFixture(nil)
	fixture.flightRepo.records[9] = entity.FlightRecord{
		ID: "store-9", FollowID: 9, FlightNumber: "XX109", TeamID: "team-9",
	}

	// archive failure must keep the record
	fixture.teams.archiveErr = assert.AnError
	finished := fixture.flightRepo.records[9]
	fixture.flightRepo.getFinished = []entity.FlightRecord{finished}

	require.Error(t, fixture.orchestrator.ArchiveAndCleanup(context.Background()))
	assert.Contains(t, fixture.flightRepo.records, 9)
	assert.Empty(t, fixture.flightRepo.deleted)

	// once archiving works the record goes
	fixture.teams.archiveErr = nil
	require.NoError(t, fixture.orchestrator.ArchiveAndCleanup(context.Background()))
	assert.Equal(t, []string{"team-9"}, fixture.teams.archived)
	assert.Equal(t, []string{"store-9"}, fixture.flightRepo.deleted)
}
