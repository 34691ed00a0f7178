package repository

import (
	"context"

	"crewsync-service/internal/domain/entity"
)

// CalendarService drives calendar side effects in the directory API. Batch
// calls succeed as a whole even when individual items fail; per-item outcomes
// are reflected in the returned events (a record whose create failed simply
// has no returned event for its transaction id).
type CalendarService interface {
	BatchCreateEvents(ctx context.Context, events []entity.Event) ([]entity.Event, error)
	BatchUpdateEvents(ctx context.Context, events []entity.Event) ([]entity.Event, error)
	BatchCancelEvents(ctx context.Context, eventIDs []string) error
}

// TeamService drives team side effects in the directory API.
type TeamService interface {
	CreateTeam(ctx context.Context, spec *entity.TeamSpec) (string, error)
	UpdateTeam(ctx context.Context, spec *entity.TeamSpec) error
	Archive(ctx context.Context, teamID string) (bool, error)
	ArchiveMultiple(ctx context.Context, teamIDs []string) error
	AddMembers(ctx context.Context, teamID string, userIDs []string) error
	AddMembersMultiple(ctx context.Context, members map[string][]string) error
}

// UserDirectory resolves directory users. A user missing from the directory
// is not an error; the result just omits them.
type UserDirectory interface {
	BatchGetUsers(ctx context.Context, emailsOrIDs []string) ([]entity.GraphUser, error)
}
