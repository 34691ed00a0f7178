package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/pkg/logger"
)

type fakeCrewRepo struct {
	mu      sync.Mutex
	records map[string]entity.CrewRecord
	created []entity.CrewRecord
}

func newFakeCrewRepo() *fakeCrewRepo {
	return &fakeCrewRepo{records: make(map[string]entity.CrewRecord)}
}

func (f *fakeCrewRepo) Get(_ context.Context, employeeID string) (*entity.CrewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[employeeID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeCrewRepo) GetMultiple(_ context.Context, employeeIDs []string) ([]entity.CrewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.CrewRecord
	for _, id := range employeeIDs {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeCrewRepo) GetMultipleByAadID(_ context.Context, aadUserIDs []string) ([]entity.CrewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.CrewRecord
	for _, id := range aadUserIDs {
		for _, r := range f.records {
			if r.AadUserID == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeCrewRepo) CreateMultiple(_ context.Context, records []entity.CrewRecord) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, r := range records {
		f.records[r.EmployeeID] = r
		f.created = append(f.created, r)
		ids = append(ids, r.EmployeeID)
	}
	return ids, nil
}

func (f *fakeCrewRepo) Update(_ context.Context, record *entity.CrewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.EmployeeID] = *record
	return nil
}

func (f *fakeCrewRepo) SearchByName(context.Context, string, string) ([]entity.CrewRecord, error) {
	return nil, nil
}

type fakeEmployeeSource struct {
	employees map[string]*entity.MerlotEmployee
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	callCount atomic.Int32
}

func (f *fakeEmployeeSource) GetEmployee(_ context.Context, empCode string) (*entity.MerlotEmployee, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxFlight.Load()
		if current <= peak || f.maxFlight.CompareAndSwap(peak, current) {
			break
		}
	}
	f.callCount.Add(1)

	employee, ok := f.employees[empCode]
	if !ok {
		return nil, fmt.Errorf("employee %s not found", empCode)
	}
	return employee, nil
}

type fakeDirectory struct {
	usersByMail map[string]entity.GraphUser
}

func (f *fakeDirectory) BatchGetUsers(_ context.Context, emailsOrIDs []string) ([]entity.GraphUser, error) {
	var out []entity.GraphUser
	for _, key := range emailsOrIDs {
		if u, ok := f.usersByMail[key]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func employeeWithEmail(code, email string) *entity.MerlotEmployee {
	e := &entity.MerlotEmployee{EmpCode: code, KnownAs: "Crew " + code}
	if email != "" {
		e.EmployeeEmails = []entity.EmployeeEmail{{Email: email, Primary: true}}
	}
	return e
}

func TestResolveCreatesIdentitiesForUnknownCodes(t *testing.T) {
	repo := newFakeCrewRepo()
	source := &fakeEmployeeSource{employees: map[string]*entity.MerlotEmployee{
		"E1": employeeWithEmail("E1", "e1@example.com"),
		"E2": employeeWithEmail("E2", "e2@example.com"),
	}}
	directory := &fakeDirectory{usersByMail: map[string]entity.GraphUser{
		"e1@example.com": {ID: "aad-1", Mail: "e1@example.com"},
		"e2@example.com": {ID: "aad-2", Mail: "e2@example.com"},
	}}

	resolver := NewCrewResolverUsecase(repo, source, directory, logger.NewNopLogger())
	resolved, err := resolver.Resolve(context.Background(), []string{"E1", "E2", "E1"})
	require.NoError(t, err)

	require.Len(t, resolved, 2)
	assert.Equal(t, "aad-1", resolved["E1"].AadUserID)
	assert.Equal(t, "aad-2", resolved["E2"].AadUserID)
}

func TestResolveServesKnownCodesFromStore(t *testing.T) {
	repo := newFakeCrewRepo()
	repo.records["E1"] = entity.CrewRecord{EmployeeID: "E1", Email: "e1@example.com", AadUserID: "aad-1"}
	source := &fakeEmployeeSource{employees: map[string]*entity.MerlotEmployee{}}

	resolver := NewCrewResolverUsecase(repo, source, &fakeDirectory{}, logger.NewNopLogger())
	resolved, err := resolver.Resolve(context.Background(), []string{"E1"})
	require.NoError(t, err)

	assert.Len(t, resolved, 1)
	assert.Zero(t, source.callCount.Load(), "known code must not hit the upstream")
}

func TestResolveSkipsEmployeeWithoutEmail(t *testing.T) {
	repo := newFakeCrewRepo()
	source := &fakeEmployeeSource{employees: map[string]*entity.MerlotEmployee{
		"E1": employeeWithEmail("E1", ""),
		"E2": employeeWithEmail("E2", "e2@example.com"),
	}}
	directory := &fakeDirectory{usersByMail: map[string]entity.GraphUser{
		"e2@example.com": {ID: "aad-2", Mail: "e2@example.com"},
	}}

	resolver := NewCrewResolverUsecase(repo, source, directory, logger.NewNopLogger())
	resolved, err := resolver.Resolve(context.Background(), []string{"E1", "E2"})
	require.NoError(t, err)

	_, ok := resolved["E1"]
	assert.False(t, ok, "employee without email must be skipped")
	assert.Contains(t, resolved, "E2")
}

func TestResolveToleratesLookupFailures(t *testing.T) {
	repo := newFakeCrewRepo()
	source := &fakeEmployeeSource{employees: map[string]*entity.MerlotEmployee{
		"E2": employeeWithEmail("E2", "e2@example.com"),
	}}
	directory := &fakeDirectory{usersByMail: map[string]entity.GraphUser{
		"e2@example.com": {ID: "aad-2", Mail: "e2@example.com"},
	}}

	resolver := NewCrewResolverUsecase(repo, source, directory, logger.NewNopLogger())
	resolved, err := resolver.Resolve(context.Background(), []string{"MISSING", "E2"})
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
}

func TestResolveCreatesRecordsInInputOrder(t *testing.T) {
	employees := make(map[string]*entity.MerlotEmployee)
	codes := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		code := fmt.Sprintf("E%03d", i)
		employees[code] = employeeWithEmail(code, code+"@example.com")
		codes = append(codes, code)
	}

	repo := newFakeCrewRepo()
	source := &fakeEmployeeSource{employees: employees}
	resolver := NewCrewResolverUsecase(repo, source, &fakeDirectory{}, logger.NewNopLogger())

	_, err := resolver.Resolve(context.Background(), codes)
	require.NoError(t, err)

	// concurrent lookups must not shuffle the persisted batch
	require.Len(t, repo.created, len(codes))
	for i, record := range repo.created {
		assert.Equal(t, codes[i], record.EmployeeID)
	}
}

func TestResolveBoundsUpstreamConcurrency(t *testing.T) {
	employees := make(map[string]*entity.MerlotEmployee)
	codes := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		code := fmt.Sprintf("E%03d", i)
		employees[code] = employeeWithEmail(code, code+"@example.com")
		codes = append(codes, code)
	}

	source := &fakeEmployeeSource{employees: employees}
	resolver := NewCrewResolverUsecase(newFakeCrewRepo(), source, &fakeDirectory{}, logger.NewNopLogger())

	_, err := resolver.Resolve(context.Background(), codes)
	require.NoError(t, err)
	assert.LessOrEqual(t, source.maxFlight.Load(), int32(employeeFetchLimit))
}
