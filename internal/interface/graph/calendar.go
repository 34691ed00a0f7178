package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/pkg/utils"
)

// errDuplicateTransaction is returned by the directory API when an event with
// the same transaction id already exists. The event is there, so the create
// counts as done even though the sub-request reports 400.
const errDuplicateTransaction = "ErrorDuplicateTransactionId"

// eventMailbox picks the calendar an event is written to. Events with exactly
// one attendee go straight onto that person's calendar; everything else lands
// on the shared service mailbox.
func (c *Client) eventMailbox(event *entity.Event) string {
	if len(event.Attendees) == 1 {
		return event.Attendees[0].EmailAddress.Address
	}
	return c.serviceUser
}

// BatchCreateEvents creates the given events in batches. Returned events carry
// the directory-assigned IDs, correlated by transaction id. Events whose
// sub-request failed are logged and omitted from the result.
func (c *Client) BatchCreateEvents(ctx context.Context, events []entity.Event) ([]entity.Event, error) {
	created := make([]entity.Event, 0, len(events))

	for _, chunk := range utils.Chunk(events, eventBatchSize) {
		requests := make([]batchRequest, 0, len(chunk))
		for _, event := range chunk {
			event := event
			requests = append(requests, batchRequest{
				ID:     event.TransactionID,
				Method: http.MethodPost,
				URL:    fmt.Sprintf("/users/%s/calendar/events", c.eventMailbox(&event)),
				Body:   event,
			})
		}

		responses, err := c.batch(ctx, requests)
		if err != nil {
			return created, err
		}

		for _, event := range chunk {
			response, ok := responses[event.TransactionID]
			if !ok {
				c.logger.Warn("No batch response for event", "transactionId", event.TransactionID)
				continue
			}

			switch {
			case response.Status >= 200 && response.Status < 300:
				var result entity.Event
				if err := json.Unmarshal(response.Body, &result); err != nil {
					c.logger.Error("Failed to decode created event", "transactionId", event.TransactionID, "error", err)
					continue
				}
				result.TransactionID = event.TransactionID
				created = append(created, result)
			default:
				code, message := subError(response.Body)
				if code == errDuplicateTransaction {
					c.logger.Debug("Event already exists", "transactionId", event.TransactionID)
					continue
				}
				c.logger.Error("Failed to create event",
					"transactionId", event.TransactionID,
					"status", response.Status,
					"code", code,
					"message", message)
			}
		}
	}

	return created, nil
}

// BatchUpdateEvents patches existing events in batches, matching them to their
// calendars the same way creates do.
func (c *Client) BatchUpdateEvents(ctx context.Context, events []entity.Event) ([]entity.Event, error) {
	updated := make([]entity.Event, 0, len(events))

	for _, chunk := range utils.Chunk(events, eventBatchSize) {
		requests := make([]batchRequest, 0, len(chunk))
		for _, event := range chunk {
			event := event
			requests = append(requests, batchRequest{
				ID:     event.TransactionID,
				Method: http.MethodPatch,
				URL:    fmt.Sprintf("/users/%s/calendar/events/%s", c.eventMailbox(&event), event.ID),
				Body:   event,
			})
		}

		responses, err := c.batch(ctx, requests)
		if err != nil {
			return updated, err
		}

		for _, event := range chunk {
			response, ok := responses[event.TransactionID]
			if !ok {
				c.logger.Warn("No batch response for event", "transactionId", event.TransactionID)
				continue
			}
			if response.Status < 200 || response.Status >= 300 {
				code, message := subError(response.Body)
				c.logger.Error("Failed to update event",
					"transactionId", event.TransactionID,
					"status", response.Status,
					"code", code,
					"message", message)
				continue
			}
			updated = append(updated, event)
		}
	}

	return updated, nil
}

// BatchCancelEvents cancels events on the service mailbox by directory event
// id. Already-gone events are not an error.
func (c *Client) BatchCancelEvents(ctx context.Context, eventIDs []string) error {
	for _, chunk := range utils.Chunk(eventIDs, eventBatchSize) {
		requests := make([]batchRequest, 0, len(chunk))
		for _, id := range chunk {
			requests = append(requests, batchRequest{
				ID:     id,
				Method: http.MethodPost,
				URL:    fmt.Sprintf("/users/%s/calendar/events/%s/cancel", c.serviceUser, id),
				Body:   map[string]string{"comment": "Cancelled by crew schedule sync"},
			})
		}

		responses, err := c.batch(ctx, requests)
		if err != nil {
			return err
		}

		for _, id := range chunk {
			response, ok := responses[id]
			if !ok || response.Status == http.StatusNotFound {
				continue
			}
			if response.Status < 200 || response.Status >= 300 {
				code, message := subError(response.Body)
				c.logger.Error("Failed to cancel event", "eventId", id, "status", response.Status, "code", code, "message", message)
			}
		}
	}

	return nil
}
