package usecase

import (
	"context"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/metrics"
)

// TeamPropagatorUsecase keeps one collaboration team per upcoming flight:
// provisioning the team shell, topping up its membership from the current
// crew assignment, and archiving teams for finished flights.
type TeamPropagatorUsecase struct {
	teams             repository.TeamService
	policy            MemberResolutionPolicy
	owner             string
	additionalMembers []string
	logger            logger.Logger
	metrics           *metrics.Metrics
}

// NewTeamPropagatorUsecase creates a new team propagator usecase
func NewTeamPropagatorUsecase(
	teams repository.TeamService,
	policy MemberResolutionPolicy,
	owner string,
	additionalMembers []string,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *TeamPropagatorUsecase {
	return &TeamPropagatorUsecase{
		teams:             teams,
		policy:            policy,
		owner:             owner,
		additionalMembers: additionalMembers,
		logger:            logger,
		metrics:           metrics,
	}
}

// EnsureTeams provisions a team for every record that does not have one yet,
// stamping the new team id onto the record. Records whose flight metadata is
// missing from the fetch are left for the next cycle. The returned slice
// holds only the records that changed.
func (u *TeamPropagatorUsecase) EnsureTeams(ctx context.Context, flights map[int]entity.MerlotFlight, records []entity.FlightRecord) ([]entity.FlightRecord, error) {
	changed := make([]entity.FlightRecord, 0, len(records))

	for i := range records {
		record := records[i]
		if record.TeamID != "" || record.Cancelled() {
			continue
		}

		flight, ok := flights[record.FollowID]
		if !ok {
			u.logger.Debug("No flight metadata for team creation, deferring", "followId", record.FollowID)
			continue
		}

		spec := entity.FlightTeam(&flight, u.owner)
		teamID, err := u.teams.CreateTeam(ctx, spec)
		if err != nil {
			u.metrics.ErrorsCount.WithLabelValues("team_create").Inc()
			u.logger.Error("Failed to create team", "flight", record.FlightNumber, "error", err)
			continue
		}

		record.TeamID = teamID
		changed = append(changed, record)
	}

	return changed, nil
}

// SyncMembership adds the currently assigned crew to each flight's team.
// Membership is additive only: crew pulled off a flight keep their seat in
// the team so the conversation history stays with them.
func (u *TeamPropagatorUsecase) SyncMembership(ctx context.Context, records []entity.FlightRecord, crew map[string]entity.CrewRecord) error {
	members := make(map[string][]string, len(records))

	for i := range records {
		record := &records[i]
		if record.TeamID == "" {
			continue
		}

		userIDs := make([]string, 0, len(u.additionalMembers))
		for _, code := range record.AllCrewCodes() {
			identity, ok := crew[code]
			if !ok || identity.AadUserID == "" {
				continue
			}
			if !u.policy.Admit(identity.Email) {
				continue
			}
			userIDs = append(userIDs, identity.AadUserID)
		}
		userIDs = append(userIDs, u.additionalMembers...)

		if len(userIDs) > 0 {
			members[record.TeamID] = userIDs
		}
	}

	if len(members) == 0 {
		return nil
	}
	if err := u.teams.AddMembersMultiple(ctx, members); err != nil {
		u.metrics.ErrorsCount.WithLabelValues("team_membership").Inc()
		return err
	}

	u.logger.Info("Synced team membership", "teams", len(members))
	return nil
}

// ArchiveTeams archives the teams of finished flights. Callers must only
// delete the backing records after this returns without error, so a failed
// archive is retried on the next sweep.
func (u *TeamPropagatorUsecase) ArchiveTeams(ctx context.Context, records []entity.FlightRecord) error {
	teamIDs := make([]string, 0, len(records))
	for i := range records {
		if records[i].TeamID != "" {
			teamIDs = append(teamIDs, records[i].TeamID)
		}
	}
	if len(teamIDs) == 0 {
		return nil
	}

	if err := u.teams.ArchiveMultiple(ctx, teamIDs); err != nil {
		u.metrics.ErrorsCount.WithLabelValues("team_archive").Inc()
		return err
	}

	u.metrics.TeamsArchived.Add(float64(len(teamIDs)))
	u.logger.Info("Archived flight teams", "count", len(teamIDs))
	return nil
}
