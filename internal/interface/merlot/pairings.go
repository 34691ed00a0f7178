package merlot

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/utils"
)

const pairingSearchEndpoint = "/pairing/api/pairing/Pairing"

// FetchPairings splits the requested range into windows and fetches each one
// concurrently, mirroring FetchFlights.
func (c *Client) FetchPairings(ctx context.Context, from, to time.Time) <-chan repository.PairingWindowResult {
	windows := utils.SplitRange(from, to, c.chunkDays)
	results := make(chan repository.PairingWindowResult, len(windows))

	var wg sync.WaitGroup
	for _, window := range windows {
		wg.Add(1)
		go func(w utils.DateWindow) {
			defer wg.Done()
			pairings, err := c.getPairings(ctx, w)
			results <- repository.PairingWindowResult{Window: w, Pairings: pairings, Err: err}
		}(window)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (c *Client) getPairings(ctx context.Context, window utils.DateWindow) ([]entity.MerlotPairing, error) {
	query := url.Values{
		"request.fromDate": {window.From.Format(merlotDateLayout)},
		"request.toDate":   {window.To.Format(merlotDateLayout)},
	}

	resp, err := c.authenticatedCall(ctx, http.MethodGet, pairingSearchEndpoint, query)
	if err != nil {
		return nil, err
	}

	var response entity.MerlotPairingResponse
	if err := decodeJSON(resp, &response); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched pairing window",
		"from", window.From.Format(merlotDateLayout),
		"to", window.To.Format(merlotDateLayout),
		"count", len(response.Pairings))
	return response.Pairings, nil
}
