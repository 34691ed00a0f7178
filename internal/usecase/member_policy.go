package usecase

import (
	"strings"

	"crewsync-service/internal/domain/entity"
)

// MemberResolutionPolicy decides which resolved directory users may receive
// side effects (event invitations, team membership). It is injected into the
// propagators so the restriction is explicit wiring rather than scattered
// conditionals.
type MemberResolutionPolicy interface {
	// Admit reports whether side effects may target the given mailbox.
	Admit(email string) bool
	// FilterUsers keeps only the users the policy admits.
	FilterUsers(users []entity.GraphUser) []entity.GraphUser
}

// allAssignedCrew admits everyone. Production wiring.
type allAssignedCrew struct{}

// NewAllAssignedCrewPolicy admits every resolved crew member.
func NewAllAssignedCrewPolicy() MemberResolutionPolicy {
	return allAssignedCrew{}
}

func (allAssignedCrew) Admit(string) bool { return true }

func (allAssignedCrew) FilterUsers(users []entity.GraphUser) []entity.GraphUser {
	return users
}

// restrictedTestSet admits only a fixed allow list, matched case-insensitively
// on mailbox address.
type restrictedTestSet struct {
	allowed map[string]struct{}
}

// NewRestrictedTestSetPolicy admits only the given mailboxes. Used in test
// mode so a staging run can never touch real crew calendars.
func NewRestrictedTestSetPolicy(emails []string) MemberResolutionPolicy {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		allowed[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &restrictedTestSet{allowed: allowed}
}

func (p *restrictedTestSet) Admit(email string) bool {
	_, ok := p.allowed[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func (p *restrictedTestSet) FilterUsers(users []entity.GraphUser) []entity.GraphUser {
	filtered := make([]entity.GraphUser, 0, len(users))
	for _, u := range users {
		if p.Admit(u.Mail) {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// PolicyFromConfig picks the policy matching the test-mode flag.
func PolicyFromConfig(testMode bool, testUsers []string) MemberResolutionPolicy {
	if testMode {
		return NewRestrictedTestSetPolicy(testUsers)
	}
	return NewAllAssignedCrewPolicy()
}
