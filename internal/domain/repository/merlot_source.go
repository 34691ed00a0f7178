package repository

import (
	"context"
	"time"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/pkg/utils"
)

// FlightWindowResult is the outcome of one date-windowed flight request.
// Results arrive in completion order, not chronological order.
type FlightWindowResult struct {
	Window  utils.DateWindow
	Flights []entity.MerlotFlight
	Err     error
}

// PairingWindowResult is the outcome of one date-windowed pairing request.
type PairingWindowResult struct {
	Window   utils.DateWindow
	Pairings []entity.MerlotPairing
	Err      error
}

// FlightSource reads flights from the scheduling upstream. FetchFlights
// issues one request per date window and delivers results as they complete;
// a failed window never blocks the others.
type FlightSource interface {
	FetchFlights(ctx context.Context, from, to time.Time, includeCrew bool) <-chan FlightWindowResult
	GetFlightsByID(ctx context.Context, followIDs []int) ([]entity.MerlotFlight, error)
}

// PairingSource reads duty pairings from the scheduling upstream.
type PairingSource interface {
	FetchPairings(ctx context.Context, from, to time.Time) <-chan PairingWindowResult
}

// EmployeeSource reads employee detail from the scheduling upstream.
type EmployeeSource interface {
	GetEmployee(ctx context.Context, empCode string) (*entity.MerlotEmployee, error)
}
