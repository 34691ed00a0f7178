package merlot

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/utils"
)

const (
	flightSearchEndpoint = "/flight/api/Flight/GetFilteredFlightInformation"
	flightByIDEndpoint   = "/flight/api/Flight/GetFilteredFlightInformationById"

	merlotDateLayout = "2006-01-02"
)

// FetchFlights splits the requested range into windows and fetches each one
// concurrently. Results are delivered over the returned channel as windows
// complete, and the channel is closed once every window has reported.
func (c *Client) FetchFlights(ctx context.Context, from, to time.Time, includeCrew bool) <-chan repository.FlightWindowResult {
	windows := utils.SplitRange(from, to, c.chunkDays)
	results := make(chan repository.FlightWindowResult, len(windows))

	var wg sync.WaitGroup
	for _, window := range windows {
		wg.Add(1)
		go func(w utils.DateWindow) {
			defer wg.Done()
			flights, err := c.getFlights(ctx, w, includeCrew)
			results <- repository.FlightWindowResult{Window: w, Flights: flights, Err: err}
		}(window)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (c *Client) getFlights(ctx context.Context, window utils.DateWindow, includeCrew bool) ([]entity.MerlotFlight, error) {
	query := url.Values{
		"searchCriteria.departureDate":    {window.From.Format(merlotDateLayout)},
		"searchCriteria.departureEndDate": {window.To.Format(merlotDateLayout)},
		"searchCriteria.getCrew":          {strconv.FormatBool(includeCrew)},
		"timeModeRequest":                 {"0"},
		"timeModeResponse":                {"0"},
	}

	resp, err := c.authenticatedCall(ctx, http.MethodGet, flightSearchEndpoint, query)
	if err != nil {
		return nil, err
	}

	var flights []entity.MerlotFlight
	if err := decodeJSON(resp, &flights); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched flight window",
		"from", window.From.Format(merlotDateLayout),
		"to", window.To.Format(merlotDateLayout),
		"count", len(flights))
	return flights, nil
}

// GetFlightsByID fetches specific flights by their follow IDs, crew included.
func (c *Client) GetFlightsByID(ctx context.Context, followIDs []int) ([]entity.MerlotFlight, error) {
	if len(followIDs) == 0 {
		return nil, nil
	}

	query := url.Values{
		"searchCriteria.getCrew": {"true"},
		"timeModeRequest":        {"0"},
		"timeModeResponse":       {"0"},
	}
	for _, id := range followIDs {
		query.Add("flightIds", strconv.Itoa(id))
	}

	resp, err := c.authenticatedCall(ctx, http.MethodGet, flightByIDEndpoint, query)
	if err != nil {
		return nil, err
	}

	var flights []entity.MerlotFlight
	if err := decodeJSON(resp, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}
