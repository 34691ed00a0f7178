package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/pkg/logger"
)

type fakeTeamService struct {
	nextID     int
	created    []entity.TeamSpec
	updated    []entity.TeamSpec
	archived   []string
	members    map[string][]string
	archiveErr error
}

func newFakeTeamService() *fakeTeamService {
	return &fakeTeamService{members: make(map[string][]string)}
}

func (f *fakeTeamService) CreateTeam(_ context.Context, spec *entity.TeamSpec) (string, error) {
	f.nextID++
	f.created = append(f.created, *spec)
	return fmt.Sprintf("team-%d", f.nextID), nil
}

func (f *fakeTeamService) UpdateTeam(_ context.Context, spec *entity.TeamSpec) error {
	f.updated = append(f.updated, *spec)
	return nil
}

func (f *fakeTeamService) Archive(_ context.Context, teamID string) (bool, error) {
	if f.archiveErr != nil {
		return false, f.archiveErr
	}
	f.archived = append(f.archived, teamID)
	return true, nil
}

func (f *fakeTeamService) ArchiveMultiple(ctx context.Context, teamIDs []string) error {
	for _, id := range teamIDs {
		if _, err := f.Archive(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTeamService) AddMembers(_ context.Context, teamID string, userIDs []string) error {
	f.members[teamID] = append(f.members[teamID], userIDs...)
	return nil
}

func (f *fakeTeamService) AddMembersMultiple(ctx context.Context, members map[string][]string) error {
	for teamID, userIDs := range members {
		if err := f.AddMembers(ctx, teamID, userIDs); err != nil {
			return err
		}
	}
	return nil
}

func newTeamPropagator(teams *fakeTeamService, policy MemberResolutionPolicy) *TeamPropagatorUsecase {
	return NewTeamPropagatorUsecase(teams, policy, "owner@example.com", nil, logger.NewNopLogger(), testMetrics)
}

func TestEnsureTeamsCreatesOnlyForRecordsWithoutTeam(t *testing.T) {
	teams := newFakeTeamService()
	propagator := newTeamPropagator(teams, NewAllAssignedCrewPolicy())

	flights := map[int]entity.MerlotFlight{
		1: {FollowID: 1, DesignatorCode: "XX", FlightNumber: "101"},
	}
	records := []entity.FlightRecord{
		{FollowID: 1, FlightNumber: "XX101"},
		{FollowID: 2, FlightNumber: "XX102", TeamID: "team-existing"},
	}

	changed, err := propagator.EnsureTeams(context.Background(), flights, records)
	require.NoError(t, err)

	require.Len(t, changed, 1)
	assert.Equal(t, 1, changed[0].FollowID)
	assert.NotEmpty(t, changed[0].TeamID)
	require.Len(t, teams.created, 1)
	assert.Equal(t, "owner@example.com", teams.created[0].Owner)
	assert.Len(t, teams.created[0].Channels, 4)
}

func TestEnsureTeamsDefersWhenMetadataMissing(t *testing.T) {
	teams := newFakeTeamService()
	propagator := newTeamPropagator(teams, NewAllAssignedCrewPolicy())

	records := []entity.FlightRecord{{FollowID: 5, FlightNumber: "XX105"}}
	changed, err := propagator.EnsureTeams(context.Background(), nil, records)
	require.NoError(t, err)

	assert.Empty(t, changed)
	assert.Empty(t, teams.created)
}

func TestSyncMembershipIsAdditiveAndPolicyFiltered(t *testing.T) {
	teams := newFakeTeamService()
	propagator := newTeamPropagator(teams, NewRestrictedTestSetPolicy([]string{"e1@example.com"}))

	records := []entity.FlightRecord{{
		FollowID:      1,
		FlightNumber:  "XX101",
		TeamID:        "team-1",
		OperatingCrew: entity.CrewAssignments{{EmpCode: "E1"}, {EmpCode: "E2"}},
	}}
	crew := map[string]entity.CrewRecord{
		"E1": {EmployeeID: "E1", Email: "e1@example.com", AadUserID: "aad-1"},
		"E2": {EmployeeID: "E2", Email: "e2@example.com", AadUserID: "aad-2"},
	}

	require.NoError(t, propagator.SyncMembership(context.Background(), records, crew))
	assert.Equal(t, []string{"aad-1"}, teams.members["team-1"])
}

func TestArchiveTeamsSkipsRecordsWithoutTeam(t *testing.T) {
	teams := newFakeTeamService()
	propagator := newTeamPropagator(teams, NewAllAssignedCrewPolicy())

	records := []entity.FlightRecord{
		{FollowID: 1, TeamID: "team-1"},
		{FollowID: 2},
		{FollowID: 3, TeamID: "team-3"},
	}
	require.NoError(t, propagator.ArchiveTeams(context.Background(), records))
	assert.Equal(t, []string{"team-1", "team-3"}, teams.archived)
}

func TestArchiveTeamsSurfacesFailure(t *testing.T) {
	teams := newFakeTeamService()
	teams.archiveErr = fmt.Errorf("archive rejected")
	propagator := newTeamPropagator(teams, NewAllAssignedCrewPolicy())

	records := []entity.FlightRecord{{FollowID: 1, TeamID: "team-1"}}
	err := propagator.ArchiveTeams(context.Background(), records)
	require.Error(t, err, "caller must not delete records when archiving failed")
}
