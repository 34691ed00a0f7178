package merlot

import (
	"context"
	"net/http"

	"crewsync-service/internal/domain/entity"
)

const employeeEndpoint = "/employee/api/employee/"

// GetEmployee fetches one employee record by employee code.
func (c *Client) GetEmployee(ctx context.Context, empCode string) (*entity.MerlotEmployee, error) {
	resp, err := c.authenticatedCall(ctx, http.MethodGet, employeeEndpoint+empCode, nil)
	if err != nil {
		return nil, err
	}

	var employee entity.MerlotEmployee
	if err := decodeJSON(resp, &employee); err != nil {
		return nil, err
	}
	return &employee, nil
}
