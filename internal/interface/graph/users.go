package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/pkg/utils"
)

// BatchGetUsers looks up directory users by mail address or object id in
// batches. Users the directory does not know are skipped, not errors.
func (c *Client) BatchGetUsers(ctx context.Context, emailsOrIDs []string) ([]entity.GraphUser, error) {
	users := make([]entity.GraphUser, 0, len(emailsOrIDs))

	for _, chunk := range utils.Chunk(emailsOrIDs, userBatchSize) {
		requests := make([]batchRequest, 0, len(chunk))
		for i, key := range chunk {
			requests = append(requests, batchRequest{
				ID:     strconv.Itoa(i),
				Method: http.MethodGet,
				URL:    "/users/" + url.PathEscape(key),
			})
		}

		responses, err := c.batch(ctx, requests)
		if err != nil {
			return users, err
		}

		for i, key := range chunk {
			response, ok := responses[strconv.Itoa(i)]
			if !ok {
				c.logger.Warn("No batch response for user lookup", "user", key)
				continue
			}
			if response.Status == http.StatusNotFound {
				c.logger.Debug("User not found in directory", "user", key)
				continue
			}
			if response.Status < 200 || response.Status >= 300 {
				code, message := subError(response.Body)
				c.logger.Error("Failed to look up user", "user", key, "status", response.Status, "code", code, "message", message)
				continue
			}

			var user entity.GraphUser
			if err := json.Unmarshal(response.Body, &user); err != nil {
				c.logger.Error("Failed to decode user", "user", key, "error", err)
				continue
			}
			users = append(users, user)
		}
	}

	return users, nil
}
