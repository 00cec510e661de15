package models

import "time"

// DateLayout is the canonical calendar date format used across the module.
const DateLayout = "2006-01-02"

// RawFlight is a provider-native flight record before normalization.
// Field values are kept exactly as the source reported them; scheduled
// time is an opaque provider-local string (usually "HH:MM").
type RawFlight struct {
	Origin        string
	Destination   string
	FlightNo      string
	Airline       string
	ScheduledTime string
	Status        string
	Date          time.Time
	Gate          string
	Terminal      string
	Cargo         bool

	// Code-share fields, populated only by sources that expose them.
	OperatingFlightNo string
	OperatingAirline  string
}

// Flight is the canonical, provider-independent flight record.
//
// Airline and OperatingAirline are ICAO codes normalized through the same
// path, so equality between them identifies the operating carrier row of a
// code-share group. Date is the query date the record was fetched under,
// which is not always the calendar date of ScheduledTime (some sources
// report next-day departures under the queried date).
type Flight struct {
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	FlightNo          string     `json:"flight_no"`
	Airline           string     `json:"airline"`
	OperatingFlightNo string     `json:"operating_flight_no,omitempty"`
	OperatingAirline  string     `json:"operating_airline,omitempty"`
	ScheduledTime     *time.Time `json:"scheduled_time,omitempty"`
	Status            string     `json:"status,omitempty"`
	Date              time.Time  `json:"date"`
	Gate              string     `json:"gate,omitempty"`
	Terminal          string     `json:"terminal,omitempty"`
	Cargo             bool       `json:"cargo"`
}

// Route returns the direction-sensitive route key, e.g. "HKG-TPE".
func (f Flight) Route() string {
	return f.Origin + "-" + f.Destination
}

// IsOperating reports whether this row is the operating carrier of its
// code-share group. Rows without operating data are not considered
// operating rows.
func (f Flight) IsOperating() bool {
	return f.OperatingAirline != "" && f.OperatingAirline == f.Airline
}
