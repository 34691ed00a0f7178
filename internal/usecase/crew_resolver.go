package usecase

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/utils"
)

// employeeFetchLimit bounds how many employee lookups run against Merlot at
// once. The employee endpoint only serves single records, so a roster sweep
// fans out hard without this cap.
const employeeFetchLimit = 20

// CrewResolverUsecase turns employee codes into persisted crew identities
// backed by directory accounts. Codes already resolved are served from the
// store; only unknown codes hit the upstreams.
type CrewResolverUsecase struct {
	crewRepo  repository.CrewRecordRepository
	employees repository.EmployeeSource
	directory repository.UserDirectory
	logger    logger.Logger
}

// NewCrewResolverUsecase creates a new crew resolver usecase
func NewCrewResolverUsecase(
	crewRepo repository.CrewRecordRepository,
	employees repository.EmployeeSource,
	directory repository.UserDirectory,
	logger logger.Logger,
) *CrewResolverUsecase {
	return &CrewResolverUsecase{
		crewRepo:  crewRepo,
		employees: employees,
		directory: directory,
		logger:    logger,
	}
}

// Resolve maps employee codes to crew records, creating records for codes not
// seen before. Codes that cannot be resolved to a directory account are
// logged and omitted; a partial result is normal, not an error.
func (u *CrewResolverUsecase) Resolve(ctx context.Context, empCodes []string) (map[string]entity.CrewRecord, error) {
	codes := utils.Dedup(empCodes)

	resolved := make(map[string]entity.CrewRecord, len(codes))
	existing, err := u.crewRepo.GetMultiple(ctx, codes)
	if err != nil {
		return nil, err
	}
	for _, record := range existing {
		resolved[record.EmployeeID] = record
	}

	missing := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, ok := resolved[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) == 0 {
		return resolved, nil
	}

	candidates, err := u.fetchEmployees(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return resolved, nil
	}

	emails := make([]string, 0, len(candidates))
	for _, c := range candidates {
		emails = append(emails, c.Email)
	}
	users, err := u.directory.BatchGetUsers(ctx, emails)
	if err != nil {
		return nil, err
	}
	usersByMail := make(map[string]entity.GraphUser, len(users))
	for _, user := range users {
		usersByMail[strings.ToLower(user.Mail)] = user
	}

	created := make([]entity.CrewRecord, 0, len(candidates))
	for _, c := range candidates {
		record := c
		if user, ok := usersByMail[strings.ToLower(c.Email)]; ok {
			record.AadUserID = user.ID
		} else {
			u.logger.Warn("Employee has no directory account", "empCode", c.EmployeeID, "email", c.Email)
		}
		created = append(created, record)
	}

	if _, err := u.crewRepo.CreateMultiple(ctx, created); err != nil {
		return nil, err
	}
	for _, record := range created {
		resolved[record.EmployeeID] = record
	}

	return resolved, nil
}

// fetchEmployees pulls employee detail for the given codes with bounded
// concurrency. Each task writes only its own result slot, so no lock is
// shared across tasks and the output keeps the input order. Employees
// without any email on file are logged and skipped since nothing downstream
// can address them.
func (u *CrewResolverUsecase) fetchEmployees(ctx context.Context, empCodes []string) ([]entity.CrewRecord, error) {
	results := make([]*entity.CrewRecord, len(empCodes))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(employeeFetchLimit)

	for i, code := range empCodes {
		i, code := i, code
		group.Go(func() error {
			employee, err := u.employees.GetEmployee(groupCtx, code)
			if err != nil {
				u.logger.Warn("Failed to fetch employee", "empCode", code, "error", err)
				return nil
			}

			email := employee.PrimaryEmail()
			if email == "" {
				u.logger.Warn("Employee has no email on file, skipping", "empCode", code)
				return nil
			}

			results[i] = &entity.CrewRecord{
				EmployeeID: code,
				Name:       employee.KnownAs,
				Email:      email,
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]entity.CrewRecord, 0, len(empCodes))
	for _, record := range results {
		if record != nil {
			candidates = append(candidates, *record)
		}
	}
	return candidates, nil
}
