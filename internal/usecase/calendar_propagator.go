package usecase

import (
	"context"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/metrics"
)

const cancelledPrefix = "(cancelled) "

// CalendarPropagatorUsecase pushes drafted calendar events into the directory
// API and maps the assigned event ids back to record natural keys.
type CalendarPropagatorUsecase struct {
	calendar repository.CalendarService
	policy   MemberResolutionPolicy
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewCalendarPropagatorUsecase creates a new calendar propagator usecase
func NewCalendarPropagatorUsecase(
	calendar repository.CalendarService,
	policy MemberResolutionPolicy,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *CalendarPropagatorUsecase {
	return &CalendarPropagatorUsecase{
		calendar: calendar,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
	}
}

// Attendees builds the attendee list for the given employee codes out of
// resolved crew identities. Unresolved codes and mailboxes the policy rejects
// are left off.
func (u *CalendarPropagatorUsecase) Attendees(crew map[string]entity.CrewRecord, empCodes []string) []entity.Attendee {
	attendees := make([]entity.Attendee, 0, len(empCodes))
	for _, code := range empCodes {
		record, ok := crew[code]
		if !ok || record.Email == "" || record.AadUserID == "" {
			continue
		}
		if !u.policy.Admit(record.Email) {
			continue
		}
		attendees = append(attendees, entity.Attendee{
			EmailAddress: entity.EmailAddress{Address: record.Email, Name: record.Name},
			Type:         "required",
		})
	}
	return attendees
}

// CreateEvents creates the drafted events and returns directory event ids
// keyed by transaction id. Drafts that fail individually are just missing
// from the map; the orchestrator picks them up again next cycle.
func (u *CalendarPropagatorUsecase) CreateEvents(ctx context.Context, drafts []entity.Event) (map[string]string, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	created, err := u.calendar.BatchCreateEvents(ctx, drafts)
	if err != nil {
		u.metrics.ErrorsCount.WithLabelValues("calendar_create").Inc()
		return nil, err
	}

	eventIDs := make(map[string]string, len(created))
	for _, event := range created {
		eventIDs[event.TransactionID] = event.ID
	}

	u.metrics.EventsPropagated.Add(float64(len(created)))
	u.logger.Info("Created calendar events", "requested", len(drafts), "created", len(created))
	return eventIDs, nil
}

// UpdateEvents patches events for records whose schedule changed.
func (u *CalendarPropagatorUsecase) UpdateEvents(ctx context.Context, drafts []entity.Event) error {
	if len(drafts) == 0 {
		return nil
	}

	updated, err := u.calendar.BatchUpdateEvents(ctx, drafts)
	if err != nil {
		u.metrics.ErrorsCount.WithLabelValues("calendar_update").Inc()
		return err
	}

	u.metrics.EventsPropagated.Add(float64(len(updated)))
	u.logger.Info("Updated calendar events", "requested", len(drafts), "updated", len(updated))
	return nil
}

// CancelFlight marks a cancelled flight on its calendar event. The record is
// stamped with the cancelled prefix only once the event cancel has gone
// through; a failed cancel leaves the record unstamped so the next cycle
// retries it.
func (u *CalendarPropagatorUsecase) CancelFlight(ctx context.Context, record *entity.FlightRecord) error {
	if record.Cancelled() {
		return nil
	}

	if record.EventID != "" {
		if err := u.calendar.BatchCancelEvents(ctx, []string{record.EventID}); err != nil {
			u.metrics.ErrorsCount.WithLabelValues("calendar_cancel").Inc()
			return err
		}
		u.logger.Info("Cancelled flight event", "flight", record.FlightNumber, "eventId", record.EventID)
	}

	record.FlightNumber = cancelledPrefix + record.FlightNumber
	return nil
}

// CancelEvents cancels events by directory event id.
func (u *CalendarPropagatorUsecase) CancelEvents(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	if err := u.calendar.BatchCancelEvents(ctx, eventIDs); err != nil {
		u.metrics.ErrorsCount.WithLabelValues("calendar_cancel").Inc()
		return err
	}
	return nil
}
