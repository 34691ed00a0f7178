package usecase

import (
	"context"
	"strconv"
	"time"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/internal/infrastructure/config"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/metrics"
)

// flightFreshnessSlack is how far a fetched update stamp must drift from the
// persisted one before the flight counts as changed. The two systems round
// timestamps differently, so exact comparison would update everything.
const flightFreshnessSlack = time.Second

// teamLookahead selects which flights get a team provisioned: those departing
// within the next day.
const teamLookahead = 24 * time.Hour

// recordRetention is how long finished flights and duties stay in the store
// before the archival sweep removes them.
const recordRetention = 48 * time.Hour

// SyncOrchestratorUsecase runs the periodic reconciliation cycles. Each cycle
// re-reads persisted state from scratch, so cycles are independent and a
// failed one simply ends; the next tick starts fresh.
type SyncOrchestratorUsecase struct {
	flightSource  repository.FlightSource
	pairingSource repository.PairingSource

	flightRepo repository.FlightRecordRepository
	dutyRepo   repository.DutyRecordRepository

	snapshots repository.ScheduleSnapshotRepository
	journal   repository.SyncRunRepository

	crewResolver *CrewResolverUsecase
	calendar     *CalendarPropagatorUsecase
	teams        *TeamPropagatorUsecase

	cfg     *config.Config
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewSyncOrchestratorUsecase creates a new sync orchestrator usecase
func NewSyncOrchestratorUsecase(
	flightSource repository.FlightSource,
	pairingSource repository.PairingSource,
	flightRepo repository.FlightRecordRepository,
	dutyRepo repository.DutyRecordRepository,
	snapshots repository.ScheduleSnapshotRepository,
	journal repository.SyncRunRepository,
	crewResolver *CrewResolverUsecase,
	calendar *CalendarPropagatorUsecase,
	teams *TeamPropagatorUsecase,
	cfg *config.Config,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *SyncOrchestratorUsecase {
	return &SyncOrchestratorUsecase{
		flightSource:  flightSource,
		pairingSource: pairingSource,
		flightRepo:    flightRepo,
		dutyRepo:      dutyRepo,
		snapshots:     snapshots,
		journal:       journal,
		crewResolver:  crewResolver,
		calendar:      calendar,
		teams:         teams,
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
	}
}

// Start launches the sync tickers. The pairing and team cycles are offset
// from the flight cycle so the three never hammer the upstreams at once.
func (u *SyncOrchestratorUsecase) Start(ctx context.Context) {
	go u.runLoop(ctx, "flights", 0, u.cfg.FlightSyncInterval, u.SyncFlights)
	go u.runLoop(ctx, "pairings", u.cfg.PairingSyncOffset, u.cfg.PairingSyncInterval, u.SyncPairings)
	go u.runLoop(ctx, "teams", u.cfg.TeamSyncOffset, u.cfg.TeamSyncInterval, u.SyncTeams)
	go u.runLoop(ctx, "archive", u.cfg.TeamSyncOffset, u.cfg.ArchiveInterval, u.ArchiveAndCleanup)
}

func (u *SyncOrchestratorUsecase) runLoop(ctx context.Context, kind string, delay, interval time.Duration, cycle func(context.Context) error) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	run := func() {
		started := time.Now()
		if err := cycle(ctx); err != nil {
			u.logger.Error("Sync cycle failed", "kind", kind, "error", err)
			u.metrics.ErrorsCount.WithLabelValues("sync_" + kind).Inc()
		}
		u.metrics.SyncDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// syncRange returns the fetch range for one cycle: today through the end of
// the month, rolled over to the end of next month when fewer than seven days
// remain. The rollover keeps next month's roster flowing in before the turn
// of the month.
func syncRange(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	if to.Sub(from) < 7*24*time.Hour {
		to = time.Date(now.Year(), now.Month()+2, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	}
	return from, to
}

// SyncFlights reconciles the flight schedule: fetch, diff against the store,
// propagate calendar events, persist.
func (u *SyncOrchestratorUsecase) SyncFlights(ctx context.Context) error {
	started := time.Now().UTC()
	run := &entity.SyncRun{Kind: entity.SnapshotFlights, StartedAt: started}
	defer u.record(ctx, run, started)

	from, to := syncRange(started)

	var flights []entity.MerlotFlight
	for result := range u.flightSource.FetchFlights(ctx, from, to, true) {
		if result.Err != nil {
			u.logger.Warn("Flight window fetch failed, skipping window",
				"from", result.Window.From, "to", result.Window.To, "error", result.Err)
			run.Skipped++
			continue
		}
		flights = append(flights, result.Flights...)
	}
	run.Fetched = len(flights)
	u.metrics.RecordsFetched.WithLabelValues("flights").Add(float64(len(flights)))

	if err := u.snapshots.Put(ctx, &entity.ScheduleSnapshot{
		Kind: entity.SnapshotFlights, From: from, To: to,
		FetchedAt: time.Now().UTC(), Flights: flights,
	}); err != nil {
		u.logger.Warn("Failed to cache flight snapshot", "error", err)
	}

	followIDs := make([]int, 0, len(flights))
	for i := range flights {
		followIDs = append(followIDs, flights[i].FollowID)
	}
	existing, err := u.flightRepo.GetMultiple(ctx, followIDs)
	if err != nil {
		run.Error = err.Error()
		return err
	}

	result := Reconcile(flights, existing, ReconcileSpec[int, entity.MerlotFlight, entity.FlightRecord]{
		SourceKey: func(f entity.MerlotFlight) (int, bool) { return f.FollowID, f.FollowID != 0 },
		RecordKey: func(r entity.FlightRecord) int { return r.FollowID },
		Changed: func(f entity.MerlotFlight, r entity.FlightRecord) bool {
			drift := f.UpdatedDate.Sub(r.LastMerlotUpdate)
			if drift < 0 {
				drift = -drift
			}
			return drift > flightFreshnessSlack
		},
		Merge: mergeFlight,
	})
	if result.Dropped > 0 {
		u.logger.Warn("Dropped flights without usable follow id", "count", result.Dropped)
	}

	crew, err := u.crewResolver.Resolve(ctx, flightCrewCodes(flights))
	if err != nil {
		run.Error = err.Error()
		return err
	}

	if err := u.createFlights(ctx, result.ToCreate, crew, run); err != nil {
		run.Error = err.Error()
		return err
	}
	if err := u.updateFlights(ctx, result.ToUpdate, crew, run); err != nil {
		run.Error = err.Error()
		return err
	}

	run.Skipped += result.Noop + result.Dropped
	run.FinishedOK = true
	u.logger.Info("Flight sync complete",
		"fetched", run.Fetched, "created", run.Created, "updated", run.Updated, "noop", result.Noop)
	return nil
}

// mergeFlight folds a fetched flight into its persisted record, preserving
// store identity and side-effect handles.
func mergeFlight(f entity.MerlotFlight, r entity.FlightRecord) entity.FlightRecord {
	fresh := entity.NewFlightRecord(&f)
	fresh.ID = r.ID
	fresh.EventID = r.EventID
	fresh.TeamID = r.TeamID
	fresh.CreatedAt = r.CreatedAt
	if r.Cancelled() {
		fresh.FlightNumber = cancelledPrefix + fresh.FlightNumber
	}
	return *fresh
}

func flightCrewCodes(flights []entity.MerlotFlight) []string {
	var codes []string
	for i := range flights {
		for _, c := range flights[i].Crew {
			codes = append(codes, c.EmpCode)
		}
	}
	return codes
}

func (u *SyncOrchestratorUsecase) createFlights(ctx context.Context, flights []entity.MerlotFlight, crew map[string]entity.CrewRecord, run *entity.SyncRun) error {
	if len(flights) == 0 {
		return nil
	}

	records := make([]entity.FlightRecord, 0, len(flights))
	drafts := make([]entity.Event, 0, len(flights))
	for i := range flights {
		flight := flights[i]
		record := entity.NewFlightRecord(&flight)
		if flight.Cancelled {
			// already cancelled on arrival: persist in the cancelled state,
			// never draft an event, never hand it to team provisioning
			record.FlightNumber = cancelledPrefix + record.FlightNumber
			records = append(records, *record)
			continue
		}
		records = append(records, *record)

		draft := entity.FlightEvent(&flight)
		draft.Attendees = u.calendar.Attendees(crew, record.AllCrewCodes())
		drafts = append(drafts, *draft)
	}

	eventIDs, err := u.calendar.CreateEvents(ctx, drafts)
	if err != nil {
		return err
	}
	for i := range records {
		if id, ok := eventIDs[strconv.Itoa(records[i].FollowID)]; ok {
			records[i].EventID = id
		}
	}

	if _, err := u.flightRepo.CreateMultiple(ctx, records); err != nil {
		return err
	}
	run.Created += len(records)
	u.metrics.RecordsCreated.WithLabelValues("flights").Add(float64(len(records)))
	return nil
}

func (u *SyncOrchestratorUsecase) updateFlights(ctx context.Context, matches []Match[entity.MerlotFlight, entity.FlightRecord], crew map[string]entity.CrewRecord, run *entity.SyncRun) error {
	if len(matches) == 0 {
		return nil
	}

	records := make([]entity.FlightRecord, 0, len(matches))
	updateDrafts := make([]entity.Event, 0, len(matches))
	var createDrafts []entity.Event
	for _, match := range matches {
		record := match.Record

		if match.Source.Cancelled {
			if err := u.calendar.CancelFlight(ctx, &record); err != nil {
				// leave the record untouched so the next cycle sees the
				// flight as changed and retries the cancel
				u.logger.Error("Failed to cancel flight event", "followId", record.FollowID, "error", err)
				continue
			}
			records = append(records, record)
			continue
		}

		draft := entity.FlightEvent(&match.Source)
		draft.Attendees = u.calendar.Attendees(crew, record.AllCrewCodes())
		if record.EventID == "" {
			// event creation failed on an earlier cycle; try again
			createDrafts = append(createDrafts, *draft)
		} else {
			draft.ID = record.EventID
			updateDrafts = append(updateDrafts, *draft)
		}
		records = append(records, record)
	}

	if len(createDrafts) > 0 {
		eventIDs, err := u.calendar.CreateEvents(ctx, createDrafts)
		if err != nil {
			return err
		}
		for i := range records {
			if records[i].EventID != "" {
				continue
			}
			if id, ok := eventIDs[strconv.Itoa(records[i].FollowID)]; ok {
				records[i].EventID = id
			}
		}
	}
	if err := u.calendar.UpdateEvents(ctx, updateDrafts); err != nil {
		return err
	}
	if err := u.flightRepo.UpdateMultiple(ctx, records); err != nil {
		return err
	}
	run.Updated += len(records)
	u.metrics.RecordsUpdated.WithLabelValues("flights").Add(float64(len(records)))
	return nil
}

// SyncPairings reconciles duty pairings: active pairings get calendar events,
// and flight-linked (FPG) pairings additionally get persisted duty rows keyed
// on the content hash.
func (u *SyncOrchestratorUsecase) SyncPairings(ctx context.Context) error {
	started := time.Now().UTC()
	run := &entity.SyncRun{Kind: entity.SnapshotPairings, StartedAt: started}
	defer u.record(ctx, run, started)

	from, to := syncRange(started)

	var fetched []entity.MerlotPairing
	for result := range u.pairingSource.FetchPairings(ctx, from, to) {
		if result.Err != nil {
			u.logger.Warn("Pairing window fetch failed, skipping window",
				"from", result.Window.From, "to", result.Window.To, "error", result.Err)
			run.Skipped++
			continue
		}
		fetched = append(fetched, result.Pairings...)
	}
	u.metrics.RecordsFetched.WithLabelValues("pairings").Add(float64(len(fetched)))

	pairings := make([]entity.MerlotPairing, 0, len(fetched))
	for i := range fetched {
		if fetched[i].ActiveFlagID == entity.PairingActive {
			pairings = append(pairings, fetched[i])
		}
	}
	run.Fetched = len(pairings)

	if err := u.snapshots.Put(ctx, &entity.ScheduleSnapshot{
		Kind: entity.SnapshotPairings, From: from, To: to,
		FetchedAt: time.Now().UTC(), Pairings: pairings,
	}); err != nil {
		u.logger.Warn("Failed to cache pairing snapshot", "error", err)
	}

	crew, err := u.crewResolver.Resolve(ctx, pairingCrewCodes(pairings))
	if err != nil {
		run.Error = err.Error()
		return err
	}

	if err := u.propagatePairingEvents(ctx, pairings, crew); err != nil {
		run.Error = err.Error()
		return err
	}
	if err := u.upsertDutyRows(ctx, pairings, run); err != nil {
		run.Error = err.Error()
		return err
	}

	run.FinishedOK = true
	u.logger.Info("Pairing sync complete",
		"fetched", run.Fetched, "created", run.Created, "updated", run.Updated)
	return nil
}

func pairingCrewCodes(pairings []entity.MerlotPairing) []string {
	var codes []string
	for i := range pairings {
		for _, e := range pairings[i].PairingEmployees {
			codes = append(codes, e.EmpCode)
		}
	}
	return codes
}

// propagatePairingEvents drafts one event per non-flight-excluded pairing.
// Reserve and training pairings never reach calendars. Duplicate-transaction
// rejections make re-creation each cycle safe without storing event ids.
func (u *SyncOrchestratorUsecase) propagatePairingEvents(ctx context.Context, pairings []entity.MerlotPairing, crew map[string]entity.CrewRecord) error {
	drafts := make([]entity.Event, 0, len(pairings))
	for i := range pairings {
		pairing := pairings[i]
		if pairing.WorkTypeID == entity.WorkTypeReserve || pairing.WorkTypeID == entity.WorkTypeTraining {
			continue
		}

		codes := make([]string, 0, len(pairing.PairingEmployees))
		for _, e := range pairing.PairingEmployees {
			codes = append(codes, e.EmpCode)
		}

		draft := entity.PairingEvent(&pairing)
		draft.Attendees = u.calendar.Attendees(crew, codes)
		drafts = append(drafts, *draft)
	}

	_, err := u.calendar.CreateEvents(ctx, drafts)
	return err
}

// upsertDutyRows persists flight-linked pairings, using the content hash to
// tell changed rows from unchanged ones.
func (u *SyncOrchestratorUsecase) upsertDutyRows(ctx context.Context, pairings []entity.MerlotPairing, run *entity.SyncRun) error {
	fpg := make([]entity.MerlotPairing, 0, len(pairings))
	merlotIDs := make([]string, 0, len(pairings))
	for i := range pairings {
		if pairings[i].WorkTypeID == entity.WorkTypeFlight {
			fpg = append(fpg, pairings[i])
			merlotIDs = append(merlotIDs, strconv.Itoa(pairings[i].ID))
		}
	}

	existing, err := u.dutyRepo.GetMultiple(ctx, merlotIDs)
	if err != nil {
		return err
	}

	result := Reconcile(fpg, existing, ReconcileSpec[string, entity.MerlotPairing, entity.DutyRecord]{
		SourceKey: func(p entity.MerlotPairing) (string, bool) { return strconv.Itoa(p.ID), p.ID != 0 },
		RecordKey: func(r entity.DutyRecord) string { return r.MerlotID },
		Changed: func(p entity.MerlotPairing, r entity.DutyRecord) bool {
			return entity.NewDutyRecord(&p).Hash != r.Hash
		},
		Merge: func(p entity.MerlotPairing, r entity.DutyRecord) entity.DutyRecord {
			fresh := entity.NewDutyRecord(&p)
			fresh.ID = r.ID
			fresh.CreatedAt = r.CreatedAt
			return *fresh
		},
	})
	if result.Dropped > 0 {
		u.logger.Warn("Dropped pairings without usable id", "count", result.Dropped)
	}

	if len(result.ToCreate) > 0 {
		records := make([]entity.DutyRecord, 0, len(result.ToCreate))
		for i := range result.ToCreate {
			records = append(records, *entity.NewDutyRecord(&result.ToCreate[i]))
		}
		if _, err := u.dutyRepo.CreateMultiple(ctx, records); err != nil {
			return err
		}
		run.Created += len(records)
		u.metrics.RecordsCreated.WithLabelValues("duties").Add(float64(len(records)))
	}

	if len(result.ToUpdate) > 0 {
		records := make([]entity.DutyRecord, 0, len(result.ToUpdate))
		for _, match := range result.ToUpdate {
			records = append(records, match.Record)
		}
		if err := u.dutyRepo.UpdateMultiple(ctx, records); err != nil {
			return err
		}
		run.Updated += len(records)
		u.metrics.RecordsUpdated.WithLabelValues("duties").Add(float64(len(records)))
	}

	run.Skipped += result.Noop + result.Dropped
	return nil
}

// SyncTeams provisions teams for flights departing soon and tops up their
// membership. It reads flights from the store only, so a flight always goes
// through schedule reconciliation before it can get a team.
func (u *SyncOrchestratorUsecase) SyncTeams(ctx context.Context) error {
	records, err := u.flightRepo.GetWithin(ctx, teamLookahead)
	if err != nil {
		return err
	}

	active := make([]entity.FlightRecord, 0, len(records))
	var cancelled []entity.FlightRecord
	for i := range records {
		if records[i].Cancelled() {
			cancelled = append(cancelled, records[i])
		} else {
			active = append(active, records[i])
		}
	}

	if len(cancelled) > 0 {
		if err := u.teams.ArchiveTeams(ctx, cancelled); err != nil {
			u.logger.Error("Failed to archive cancelled flight teams", "error", err)
		}
	}

	var missingMeta []int
	for i := range active {
		if active[i].TeamID == "" {
			missingMeta = append(missingMeta, active[i].FollowID)
		}
	}
	flightsByID := make(map[int]entity.MerlotFlight)
	if len(missingMeta) > 0 {
		flights, err := u.flightSource.GetFlightsByID(ctx, missingMeta)
		if err != nil {
			return err
		}
		for i := range flights {
			flightsByID[flights[i].FollowID] = flights[i]
		}
	}

	changed, err := u.teams.EnsureTeams(ctx, flightsByID, active)
	if err != nil {
		return err
	}
	if len(changed) > 0 {
		if err := u.flightRepo.UpdateMultiple(ctx, changed); err != nil {
			return err
		}
		changedByID := make(map[int]string, len(changed))
		for i := range changed {
			changedByID[changed[i].FollowID] = changed[i].TeamID
		}
		for i := range active {
			if teamID, ok := changedByID[active[i].FollowID]; ok {
				active[i].TeamID = teamID
			}
		}
	}

	var codes []string
	for i := range active {
		codes = append(codes, active[i].AllCrewCodes()...)
	}
	crew, err := u.crewResolver.Resolve(ctx, codes)
	if err != nil {
		return err
	}

	return u.teams.SyncMembership(ctx, active, crew)
}

// ArchiveAndCleanup removes finished records. Flight teams are archived
// before their records are deleted; a failed archive leaves the record in
// place so the next sweep retries it.
func (u *SyncOrchestratorUsecase) ArchiveAndCleanup(ctx context.Context) error {
	flights, err := u.flightRepo.GetFinished(ctx, recordRetention)
	if err != nil {
		return err
	}
	if len(flights) > 0 {
		if err := u.teams.ArchiveTeams(ctx, flights); err != nil {
			return err
		}

		ids := make([]string, 0, len(flights))
		for i := range flights {
			ids = append(ids, flights[i].ID)
		}
		if err := u.flightRepo.DeleteMultiple(ctx, ids); err != nil {
			return err
		}
		u.logger.Info("Cleaned up finished flights", "count", len(ids))
	}

	duties, err := u.dutyRepo.GetFinished(ctx, recordRetention)
	if err != nil {
		return err
	}
	if len(duties) > 0 {
		ids := make([]string, 0, len(duties))
		for i := range duties {
			ids = append(ids, duties[i].ID)
		}
		if err := u.dutyRepo.DeleteMultiple(ctx, ids); err != nil {
			return err
		}
		u.logger.Info("Cleaned up finished duties", "count", len(ids))
	}

	return nil
}

func (u *SyncOrchestratorUsecase) record(ctx context.Context, run *entity.SyncRun, started time.Time) {
	run.Duration = time.Since(started)
	if err := u.journal.Record(ctx, run); err != nil {
		u.logger.Warn("Failed to journal sync run", "kind", run.Kind, "error", err)
	}
}
