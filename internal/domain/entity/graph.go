package entity

import (
	"fmt"
	"strconv"
	"time"
)

// DateTimeTimeZone is the Graph wire shape for event boundaries.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// ItemBody is an event body payload.
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// EventLocation is an event location payload.
type EventLocation struct {
	DisplayName string `json:"displayName"`
}

// EmailAddress identifies an attendee mailbox.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Attendee is one attendee on a calendar event.
type Attendee struct {
	EmailAddress EmailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}

// Event is a calendar event as the directory API accepts and returns it.
// TransactionID always carries the owning record's natural key so batch
// responses can be correlated without relying on ordering.
type Event struct {
	ID                    string           `json:"id,omitempty"`
	TransactionID         string           `json:"transactionId,omitempty"`
	Subject               string           `json:"subject"`
	Body                  ItemBody         `json:"body"`
	Start                 DateTimeTimeZone `json:"start"`
	End                   DateTimeTimeZone `json:"end"`
	Location              EventLocation    `json:"location"`
	Attendees             []Attendee       `json:"attendees"`
	AllowNewTimeProposals bool             `json:"allowNewTimeProposals"`
	ResponseRequested     bool             `json:"responseRequested"`
}

// FlightEvent drafts a calendar event for a Merlot flight. Attendees are
// filled in by the propagator through the member resolution policy.
func FlightEvent(flight *MerlotFlight) *Event {
	return &Event{
		TransactionID: strconv.Itoa(flight.FollowID),
		Subject:       flight.Label(),
		Body: ItemBody{
			ContentType: "text",
			Content: fmt.Sprintf("Flight %s\n %s to %s\n %s to %s",
				flight.Label(),
				flight.DeparturePort, flight.ArrivalPort,
				flight.ScheduledDeparture.UTC().Format("15:04"),
				flight.ScheduledArrival.UTC().Format("15:04")),
		},
		Start:     DateTimeTimeZone{DateTime: flight.ScheduledDeparture.UTC().Format(time.RFC3339Nano), TimeZone: "UTC"},
		End:       DateTimeTimeZone{DateTime: flight.ScheduledArrival.UTC().Format(time.RFC3339Nano), TimeZone: "UTC"},
		Location:  EventLocation{DisplayName: flight.DeparturePort + "-" + flight.ArrivalPort},
		Attendees: []Attendee{},
	}
}

// PairingEvent drafts a calendar event for a duty pairing.
func PairingEvent(pairing *MerlotPairing) *Event {
	location := ""
	if len(pairing.Duties) > 0 {
		location = pairing.Duties[0].FromPort
	}
	return &Event{
		TransactionID: strconv.Itoa(pairing.ID),
		Subject:       pairing.PairingWorkType,
		Body: ItemBody{
			ContentType: "text",
			Content:     fmt.Sprintf("%s %s (pairing id: %d)", pairing.PairingWorkType, pairing.Label, pairing.ID),
		},
		Start:     DateTimeTimeZone{DateTime: pairing.StartDate.UTC().Format(time.RFC3339Nano), TimeZone: "UTC"},
		End:       DateTimeTimeZone{DateTime: pairing.EndDate.UTC().Format(time.RFC3339Nano), TimeZone: "UTC"},
		Location:  EventLocation{DisplayName: location},
		Attendees: []Attendee{},
	}
}

// GraphUser is the slice of a directory user record the sync needs.
type GraphUser struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	Mail           string `json:"mail"`
	AccountEnabled *bool  `json:"accountEnabled,omitempty"`
}

// TeamChannel is a channel created with a new team.
type TeamChannel struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// TeamSpec describes a team to create or update.
type TeamSpec struct {
	ID          string
	DisplayName string
	Description string
	Owner       string
	Channels    []TeamChannel
	IsArchived  bool
}

// DefaultTeamChannels is the fixed channel set every flight team is born with.
func DefaultTeamChannels() []TeamChannel {
	return []TeamChannel{
		{DisplayName: "Pilots"},
		{DisplayName: "Cabin Crew"},
		{DisplayName: "Flight Services"},
		{DisplayName: "Flight Operations"},
	}
}

// FlightTeam drafts a team shell from flight metadata.
func FlightTeam(flight *MerlotFlight, owner string) *TeamSpec {
	return &TeamSpec{
		DisplayName: fmt.Sprintf("%s %s", flight.Label(), flight.ScheduledDeparture.UTC().Format("02-01-2006")),
		Description: fmt.Sprintf("Team for Flight %s %s to %s (%s to %s).",
			flight.Label(),
			flight.DeparturePort, flight.ArrivalPort,
			flight.DeparturePortIcao, flight.ArrivalPortIcao),
		Owner:    owner,
		Channels: DefaultTeamChannels(),
	}
}
