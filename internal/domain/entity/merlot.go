package entity

import (
	"encoding/json"
	"time"
)

// MerlotFlight is the flight information returned by the Merlot flight API.
type MerlotFlight struct {
	FollowID           int                `json:"flightFollowId"`
	FlightNumber       string             `json:"flight"`
	DesignatorCode     string             `json:"designatorCode"`
	DeparturePort      string             `json:"departurePort"`
	DeparturePortIcao  string             `json:"departurePortIcao"`
	ArrivalPort        string             `json:"arrivalPort"`
	ArrivalPortIcao    string             `json:"arrivalPortIcao"`
	ScheduledDeparture time.Time          `json:"std"`
	ScheduledArrival   time.Time          `json:"sta"`
	Cancelled          bool               `json:"cancelled"`
	Crew               []MerlotFlightCrew `json:"crew"`
	UpdatedDate        time.Time          `json:"updatedDate"`
}

// Label returns the display flight number, e.g. "PR123".
func (f *MerlotFlight) Label() string {
	return f.DesignatorCode + f.FlightNumber
}

// MerlotFlightCrew is one crew assignment on a Merlot flight.
type MerlotFlightCrew struct {
	EmpCode      string           `json:"empCode"`
	EmailAddress string           `json:"emailAddress"`
	KnownAs      string           `json:"knowAs"`
	Rank         string           `json:"rank"`
	IsOperating  bool             `json:"isOperating"`
	Roles        []MerlotCrewRole `json:"roles"`
}

// MerlotCrewRole is a role code attached to a crew assignment.
type MerlotCrewRole struct {
	Code string `json:"code"`
}

// RoleCodes flattens the role list to its codes.
func (c MerlotFlightCrew) RoleCodes() []string {
	codes := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		codes = append(codes, r.Code)
	}
	return codes
}

// Operating reports whether any of the crew's roles is the operating role.
func (c MerlotFlightCrew) Operating() bool {
	for _, r := range c.Roles {
		if r.Code == "OP" {
			return true
		}
	}
	return false
}

// Pairing work types and active flags used to partition duty populations.
const (
	PairingActive = 2

	WorkTypeReserve  = 2
	WorkTypeFlight   = 3 // FPG, flight-linked pairings
	WorkTypeTraining = 12
)

// MerlotPairingResponse wraps the pairing list, since Merlot returns it as an
// object value rather than a bare array.
type MerlotPairingResponse struct {
	Pairings []MerlotPairing `json:"pairings"`
}

// MerlotPairing is a duty pairing returned by the Merlot pairing API.
type MerlotPairing struct {
	ID               int               `json:"id"`
	Label            string            `json:"label"`
	StartDate        time.Time         `json:"startDate"`
	EndDate          time.Time         `json:"endDate"`
	ActiveFlagID     int               `json:"activeFlagId"`
	ActiveFlag       string            `json:"activeFlag"`
	PairingWorkType  string            `json:"pairingWorkType"`
	WorkTypeID       int               `json:"pairingWorkTypeId"`
	Duties           []PairingDuty     `json:"duties"`
	PairingEmployees []PairingEmployee `json:"pairingEmployees"`
}

// PairingDuty is one duty leg inside a pairing.
type PairingDuty struct {
	FromPort  string              `json:"fromPort"`
	ToPort    string              `json:"toPort"`
	StartDate time.Time           `json:"startDate"`
	EndDate   time.Time           `json:"endDate"`
	Flights   []PairingDutyFlight `json:"flights"`
}

// PairingDutyFlight is a flight leg referenced from a pairing duty.
type PairingDutyFlight struct {
	ID        int       `json:"id"`
	Flight    string    `json:"flight"`
	Std       time.Time `json:"std"`
	Sta       time.Time `json:"sta"`
	Cancelled bool      `json:"cancelled"`
}

// PairingEmployee is a crew member assigned to a pairing.
type PairingEmployee struct {
	EmployeeID int    `json:"employeeId"`
	Name       string `json:"name"`
	EmpCode    string `json:"empCode"`
	Rank       string `json:"rank"`
}

// MerlotEmployee is the detail record from the Merlot employee endpoint.
type MerlotEmployee struct {
	ID             int             `json:"id"`
	EmpCode        string          `json:"empCode"`
	KnownAs        string          `json:"knownAs"`
	Active         bool            `json:"active"`
	EmployeeEmails []EmployeeEmail `json:"employeeEmails"`
}

// EmployeeEmail is one email address on an employee record.
type EmployeeEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

// PrimaryEmail returns the primary email, falling back to the first one on
// file. Returns "" when the employee has no emails at all.
func (e *MerlotEmployee) PrimaryEmail() string {
	for _, m := range e.EmployeeEmails {
		if m.Primary {
			return m.Email
		}
	}
	if len(e.EmployeeEmails) > 0 {
		return e.EmployeeEmails[0].Email
	}
	return ""
}

// merlotTokenTimeLayout is the RFC1123-style stamp Merlot puts in the
// ".issued" and ".expires" token fields.
const merlotTokenTimeLayout = "Mon, 02 Jan 2006 15:04:05 MST"

// MerlotToken is the token pair returned by the Merlot auth endpoint.
type MerlotToken struct {
	Access    string
	Refresh   string
	TokenType string
	ExpiresIn int
	Username  string
	IssuedOn  time.Time
	ExpiresOn time.Time
}

// UnmarshalJSON handles the dotted and dashed field names of the token payload.
func (t *MerlotToken) UnmarshalJSON(data []byte) error {
	var raw struct {
		Access    string `json:"access_token"`
		Refresh   string `json:"refresh_token"`
		TokenType string `json:"token_type"`
		ExpiresIn int    `json:"expires_in"`
		Username  string `json:"username"`
		Issued    string `json:".issued"`
		Expires   string `json:".expires"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Access = raw.Access
	t.Refresh = raw.Refresh
	t.TokenType = raw.TokenType
	t.ExpiresIn = raw.ExpiresIn
	t.Username = raw.Username

	if raw.Issued != "" {
		issued, err := time.Parse(merlotTokenTimeLayout, raw.Issued)
		if err != nil {
			return err
		}
		t.IssuedOn = issued.UTC()
	}
	if raw.Expires != "" {
		expires, err := time.Parse(merlotTokenTimeLayout, raw.Expires)
		if err != nil {
			return err
		}
		t.ExpiresOn = expires.UTC()
	}
	return nil
}

// Expired reports whether the access token is past its expiry.
func (t *MerlotToken) Expired() bool {
	return t == nil || !time.Now().UTC().Before(t.ExpiresOn)
}
