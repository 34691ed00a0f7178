package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/pkg/utils"
)

const archivedPrefix = "(archived) "

// teamPayload builds the create-team request body. The owner is attached at
// creation time so the team is never ownerless, and the channel set is
// provisioned in the same call.
func teamPayload(spec *entity.TeamSpec) map[string]interface{} {
	channels := make([]map[string]interface{}, 0, len(spec.Channels))
	for _, ch := range spec.Channels {
		channels = append(channels, map[string]interface{}{
			"displayName": ch.DisplayName,
			"description": ch.Description,
		})
	}

	return map[string]interface{}{
		"template@odata.bind": "https://graph.microsoft.com/v1.0/teamsTemplates('standard')",
		"displayName":         spec.DisplayName,
		"description":         spec.Description,
		"channels":            channels,
		"members": []map[string]interface{}{
			{
				"@odata.type":     "#microsoft.graph.aadUserConversationMember",
				"roles":           []string{"owner"},
				"user@odata.bind": fmt.Sprintf("https://graph.microsoft.com/v1.0/users('%s')", spec.Owner),
			},
		},
	}
}

// CreateTeam provisions a new team and returns its id. Team creation is
// asynchronous upstream; the id is parsed out of the Location header of the
// 202 response.
func (c *Client) CreateTeam(ctx context.Context, spec *entity.TeamSpec) (string, error) {
	resp, err := c.call(ctx, http.MethodPost, "/teams", teamPayload(spec))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Location looks like /teams('{id}')/operations('{opId}')
	location := resp.Header.Get("Location")
	parts := strings.Split(location, "'")
	if len(parts) < 2 {
		return "", fmt.Errorf("create team: unexpected location header %q", location)
	}

	teamID := parts[1]
	c.logger.Info("Created team", "teamId", teamID, "displayName", spec.DisplayName)
	return teamID, nil
}

// UpdateTeam patches a team's name and description.
func (c *Client) UpdateTeam(ctx context.Context, spec *entity.TeamSpec) error {
	payload := map[string]string{
		"displayName": spec.DisplayName,
		"description": spec.Description,
	}

	resp, err := c.call(ctx, http.MethodPatch, "/teams/"+spec.ID, payload)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// getTeam reads the current team state, used to guard double archival.
func (c *Client) getTeam(ctx context.Context, teamID string) (*entity.TeamSpec, error) {
	resp, err := c.call(ctx, http.MethodGet, "/teams/"+teamID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Description string `json:"description"`
		IsArchived  bool   `json:"isArchived"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode team: %w", err)
	}

	return &entity.TeamSpec{
		ID:          parsed.ID,
		DisplayName: parsed.DisplayName,
		Description: parsed.Description,
		IsArchived:  parsed.IsArchived,
	}, nil
}

// Archive renames a team with the archived prefix and then archives it. The
// returned bool reports whether this call did the archiving; an already
// archived team is left alone.
func (c *Client) Archive(ctx context.Context, teamID string) (bool, error) {
	team, err := c.getTeam(ctx, teamID)
	if err != nil {
		return false, err
	}
	if team.IsArchived {
		return false, nil
	}

	if !strings.HasPrefix(team.DisplayName, archivedPrefix) {
		team.DisplayName = archivedPrefix + team.DisplayName
		if err := c.UpdateTeam(ctx, team); err != nil {
			return false, fmt.Errorf("failed to rename team before archive: %w", err)
		}
	}

	resp, err := c.call(ctx, http.MethodPost, fmt.Sprintf("/teams/%s/archive", teamID), nil)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	c.logger.Info("Archived team", "teamId", teamID)
	return true, nil
}

// ArchiveMultiple archives teams one by one, continuing past individual
// failures so one stuck team never blocks the sweep.
func (c *Client) ArchiveMultiple(ctx context.Context, teamIDs []string) error {
	var failed int
	for _, id := range teamIDs {
		if _, err := c.Archive(ctx, id); err != nil {
			c.logger.Error("Failed to archive team", "teamId", id, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to archive %d of %d teams", failed, len(teamIDs))
	}
	return nil
}

// AddMembers adds directory users to a team. Adding is idempotent upstream,
// so members already present are harmless.
func (c *Client) AddMembers(ctx context.Context, teamID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	values := make([]map[string]interface{}, 0, len(userIDs))
	for _, id := range userIDs {
		values = append(values, map[string]interface{}{
			"@odata.type":     "microsoft.graph.aadUserConversationMember",
			"roles":           []string{},
			"user@odata.bind": fmt.Sprintf("https://graph.microsoft.com/v1.0/users('%s')", id),
		})
	}

	resp, err := c.call(ctx, http.MethodPost, fmt.Sprintf("/teams/%s/members/add", teamID), map[string]interface{}{"values": values})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// AddMembersMultiple packs membership adds for many teams into $batch calls.
func (c *Client) AddMembersMultiple(ctx context.Context, members map[string][]string) error {
	teamIDs := make([]string, 0, len(members))
	for id := range members {
		if len(members[id]) > 0 {
			teamIDs = append(teamIDs, id)
		}
	}

	for _, chunk := range utils.Chunk(teamIDs, userBatchSize) {
		requests := make([]batchRequest, 0, len(chunk))
		for i, teamID := range chunk {
			values := make([]map[string]interface{}, 0, len(members[teamID]))
			for _, userID := range members[teamID] {
				values = append(values, map[string]interface{}{
					"@odata.type":     "microsoft.graph.aadUserConversationMember",
					"roles":           []string{},
					"user@odata.bind": fmt.Sprintf("https://graph.microsoft.com/v1.0/users('%s')", userID),
				})
			}
			requests = append(requests, batchRequest{
				ID:     strconv.Itoa(i),
				Method: http.MethodPost,
				URL:    fmt.Sprintf("/teams/%s/members/add", teamID),
				Body:   map[string]interface{}{"values": values},
			})
		}

		responses, err := c.batch(ctx, requests)
		if err != nil {
			return err
		}

		for i, teamID := range chunk {
			response, ok := responses[strconv.Itoa(i)]
			if !ok {
				c.logger.Warn("No batch response for member add", "teamId", teamID)
				continue
			}
			if response.Status < 200 || response.Status >= 300 {
				code, message := subError(response.Body)
				c.logger.Error("Failed to add team members", "teamId", teamID, "status", response.Status, "code", code, "message", message)
			}
		}
	}

	return nil
}
