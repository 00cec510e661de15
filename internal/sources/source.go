// Package sources contains one adapter per flight data provider. Each
// adapter fetches provider-native records for a (date, direction, cargo)
// combination and normalizes them into the canonical Flight shape.
package sources

import (
	"context"
	"time"

	"github.com/wkchan/flightaudit/internal/models"
)

// Source is the contract every provider adapter implements. FetchFlights
// fully drains pagination before returning and surfaces transport errors
// unmodified; a source that does not support a requested combination
// returns an empty slice. RawToFlight is pure conversion with no I/O.
type Source interface {
	Name() string
	FetchFlights(ctx context.Context, flightDate time.Time, arrival, cargo bool) ([]models.RawFlight, error)
	RawToFlight(raw models.RawFlight) models.Flight
	SupportedAirports() map[string]bool
}

// SourceError wraps a transport or payload error with the source it came
// from.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func NewSourceError(source string, err error) *SourceError {
	return &SourceError{Source: source, Err: err}
}

// ConfigError is a source construction failure, e.g. a missing
// credential. It is fatal and never retried.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

var scheduledLayouts = []string{"15:04", "15:04:05"}

// parseScheduled combines a provider-local clock string with the query
// date. Returns nil when no tried layout matches.
func parseScheduled(date time.Time, clock string) *time.Time {
	if clock == "" {
		return nil
	}
	for _, layout := range scheduledLayouts {
		t, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		dt := time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		return &dt
	}
	return nil
}
