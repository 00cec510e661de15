package models

import "time"

// QueryRequest is the API request shape for flight audit queries.
// Exactly one of Date or Days must be supplied.
type QueryRequest struct {
	Route         string `json:"route"`
	Bidirectional *bool  `json:"bidirectional,omitempty"`
	Date          string `json:"date,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	Days          int    `json:"days,omitempty"`
	Cargo         bool   `json:"cargo"`
	Deduplicate   bool   `json:"deduplicate"`
	Stats         bool   `json:"stats"`
}

const (
	ErrMissingRoute ValidationError = "route is required"
	ErrMissingDate  ValidationError = "one of date, start_date/end_date or days is required"
	ErrDateRange    ValidationError = "start_date must not be after end_date"
	ErrDaysAndDate  ValidationError = "date and days are mutually exclusive"
	ErrNonPositiveN ValidationError = "days must be greater than 0"
)

// ToQuery validates the request and builds the audit query. now anchors
// relative ranges like "past N days".
func (r *QueryRequest) ToQuery(now time.Time) (AuditQuery, error) {
	if r.Route == "" {
		return AuditQuery{}, ErrMissingRoute
	}
	bidi := true
	if r.Bidirectional != nil {
		bidi = *r.Bidirectional
	}
	route, err := RouteFromString(r.Route, bidi)
	if err != nil {
		return AuditQuery{}, err
	}

	var dates DateFilter
	switch {
	case r.Date != "" && r.Days > 0:
		return AuditQuery{}, ErrDaysAndDate
	case r.Date != "":
		d, err := time.ParseInLocation(DateLayout, r.Date, time.UTC)
		if err != nil {
			return AuditQuery{}, ValidationError("invalid date: " + r.Date)
		}
		dates = SingleDate(d)
	case r.StartDate != "" || r.EndDate != "":
		start, err := time.ParseInLocation(DateLayout, r.StartDate, time.UTC)
		if err != nil {
			return AuditQuery{}, ValidationError("invalid start_date: " + r.StartDate)
		}
		end, err := time.ParseInLocation(DateLayout, r.EndDate, time.UTC)
		if err != nil {
			return AuditQuery{}, ValidationError("invalid end_date: " + r.EndDate)
		}
		if start.After(end) {
			return AuditQuery{}, ErrDateRange
		}
		dates = DateFilter{Start: start, End: end}
	case r.Days > 0:
		dates = PastDays(r.Days, now)
	case r.Days < 0:
		return AuditQuery{}, ErrNonPositiveN
	default:
		return AuditQuery{}, ErrMissingDate
	}

	return AuditQuery{Route: route, Dates: dates, Cargo: r.Cargo}, nil
}
