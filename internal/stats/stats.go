// Package stats computes aggregate statistics over canonical flight
// records.
package stats

import (
	"strings"

	"github.com/wkchan/flightaudit/internal/models"
)

// FlightStats aggregates a set of flights by several dimensions. Routes
// are direction-sensitive ("HKG-TPE" and "TPE-HKG" count separately).
// Flights without a scheduled time are excluded from the hourly buckets
// but still count toward every other dimension.
type FlightStats struct {
	TotalFlights  int            `json:"total_flights"`
	ByAirline     map[string]int `json:"by_airline"`
	ByDate        map[string]int `json:"by_date"`
	ByRoute       map[string]int `json:"by_route"`
	ByHour        map[int]int    `json:"by_hour"`
	StatusSummary map[string]int `json:"status_summary"`
}

// Compute builds FlightStats for the given flights.
func Compute(flights []models.Flight) FlightStats {
	s := FlightStats{
		ByAirline:     make(map[string]int),
		ByDate:        make(map[string]int),
		ByRoute:       make(map[string]int),
		ByHour:        make(map[int]int),
		StatusSummary: make(map[string]int),
	}

	s.TotalFlights = len(flights)

	for _, f := range flights {
		if f.Airline != "" {
			s.ByAirline[f.Airline]++
		}
		s.ByDate[f.Date.Format(models.DateLayout)]++
		s.ByRoute[f.Route()]++
		if f.ScheduledTime != nil {
			s.ByHour[f.ScheduledTime.Hour()]++
		}
		status := strings.TrimSpace(f.Status)
		if status == "" {
			status = "Unknown"
		}
		s.StatusSummary[status]++
	}

	return s
}
