package models

import (
	"strings"
	"time"
)

// RouteFilter matches flights by origin and/or destination IATA code.
// An empty side is a wildcard. When Bidirectional is set, the reversed
// pair matches as well.
type RouteFilter struct {
	Origin        string `json:"origin,omitempty"`
	Destination   string `json:"destination,omitempty"`
	Bidirectional bool   `json:"bidirectional"`
}

// RouteFromString parses a route string like "HKG-TPE" into a
// bidirectional RouteFilter. Anything without exactly one separator is a
// user input error.
func RouteFromString(route string, bidirectional bool) (RouteFilter, error) {
	parts := strings.Split(strings.ToUpper(route), "-")
	if len(parts) != 2 {
		return RouteFilter{}, ValidationError("invalid route format: " + route + ", expected ORIGIN-DEST (e.g. HKG-TPE)")
	}
	return RouteFilter{
		Origin:        strings.TrimSpace(parts[0]),
		Destination:   strings.TrimSpace(parts[1]),
		Bidirectional: bidirectional,
	}, nil
}

// Matches reports whether the flight satisfies the filter.
func (r RouteFilter) Matches(f Flight) bool {
	pairs := [][2]string{{r.Origin, r.Destination}}
	if r.Bidirectional {
		pairs = append(pairs, [2]string{r.Destination, r.Origin})
	}
	for _, p := range pairs {
		if p[0] != "" && f.Origin != p[0] {
			continue
		}
		if p[1] != "" && f.Destination != p[1] {
			continue
		}
		return true
	}
	return false
}

// Airports returns the non-empty endpoints of the filter, used to decide
// which sources can serve a query.
func (r RouteFilter) Airports() []string {
	var out []string
	if r.Origin != "" {
		out = append(out, r.Origin)
	}
	if r.Destination != "" {
		out = append(out, r.Destination)
	}
	return out
}

// DateFilter is an inclusive calendar date range.
type DateFilter struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SingleDate creates a filter covering exactly one date.
func SingleDate(d time.Time) DateFilter {
	d = truncateDate(d)
	return DateFilter{Start: d, End: d}
}

// PastDays creates a filter for the past n days ending at until,
// inclusive on both sides.
func PastDays(n int, until time.Time) DateFilter {
	end := truncateDate(until)
	return DateFilter{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// Dates returns every date in the range in ascending order.
func (d DateFilter) Dates() []time.Time {
	var out []time.Time
	end := d.End
	if end.IsZero() {
		end = d.Start
	}
	for cur := d.Start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		out = append(out, cur)
	}
	return out
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AuditQuery combines the route and date filters of one query.
type AuditQuery struct {
	Route RouteFilter `json:"route"`
	Dates DateFilter  `json:"dates"`
	Cargo bool        `json:"cargo"`
}

// QueryResult holds the flights matched by one audit query, in canonical
// fetch order: by date, departures before arrivals, passenger before
// cargo.
type QueryResult struct {
	Flights []Flight   `json:"flights"`
	Query   AuditQuery `json:"query"`
}

// ValidationError is a user input error raised at the query boundary.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }
