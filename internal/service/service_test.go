package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkchan/flightaudit/internal/models"
	"github.com/wkchan/flightaudit/internal/sources"
)

// fakeSource serves canned raw flights keyed by "date|arrival|cargo" and
// records the order of calls it receives.
type fakeSource struct {
	name       string
	airports   map[string]bool
	byKey      map[string][]models.RawFlight
	err        error
	currentDay bool

	mu    sync.Mutex
	calls []string
}

func fetchKey(date time.Time, arrival, cargo bool) string {
	return fmt.Sprintf("%s|%t|%t", date.Format(models.DateLayout), arrival, cargo)
}

func (f *fakeSource) Name() string                       { return f.name }
func (f *fakeSource) SupportedAirports() map[string]bool { return f.airports }
func (f *fakeSource) CurrentDayOnly() bool               { return f.currentDay }

func (f *fakeSource) FetchFlights(ctx context.Context, date time.Time, arrival, cargo bool) ([]models.RawFlight, error) {
	key := fetchKey(date, arrival, cargo)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byKey[key], nil
}

func (f *fakeSource) RawToFlight(raw models.RawFlight) models.Flight {
	return models.Flight{
		Origin:           raw.Origin,
		Destination:      raw.Destination,
		FlightNo:         raw.FlightNo,
		Airline:          raw.Airline,
		OperatingAirline: raw.OperatingAirline,
		Status:           raw.Status,
		Date:             raw.Date,
		Cargo:            raw.Cargo,
	}
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func raw(origin, dest, flightNo, airline string, date time.Time) models.RawFlight {
	return models.RawFlight{
		Origin: origin, Destination: dest,
		FlightNo: flightNo, Airline: airline,
		Date: date,
	}
}

func routeQuery(t *testing.T, route string, bidirectional bool, date time.Time) models.AuditQuery {
	t.Helper()
	rf, err := models.RouteFromString(route, bidirectional)
	require.NoError(t, err)
	return models.AuditQuery{Route: rf, Dates: models.SingleDate(date)}
}

func TestQuery_BidirectionalRoute(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		name:     "hk_airport",
		airports: map[string]bool{"HKG": true},
		byKey: map[string][]models.RawFlight{
			fetchKey(d, false, false): {
				raw("HKG", "TPE", "CX 402", "CPA", d),
				raw("HKG", "NRT", "CX 504", "CPA", d),
			},
			fetchKey(d, true, false): {
				raw("TPE", "HKG", "CX 403", "CPA", d),
			},
		},
	}

	svc := New([]sources.Source{src}, Config{}, nil, nil)
	result, skipped, err := svc.Query(context.Background(), routeQuery(t, "HKG-TPE", true, d))
	require.NoError(t, err)
	assert.Empty(t, skipped)

	// The NRT departure is filtered out; both directions of the pair
	// survive, departures first.
	require.Len(t, result.Flights, 2)
	assert.Equal(t, "CX 402", result.Flights[0].FlightNo)
	assert.Equal(t, "CX 403", result.Flights[1].FlightNo)

	s := svc.Statistics(result.Flights)
	assert.Equal(t, 2, s.TotalFlights)
	assert.Equal(t, map[string]int{"HKG-TPE": 1, "TPE-HKG": 1}, s.ByRoute)
}

func TestQuery_OneWayRoute(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		name:     "hk_airport",
		airports: map[string]bool{"HKG": true},
		byKey: map[string][]models.RawFlight{
			fetchKey(d, false, false): {raw("HKG", "TPE", "CX 402", "CPA", d)},
			fetchKey(d, true, false):  {raw("TPE", "HKG", "CX 403", "CPA", d)},
		},
	}

	svc := New([]sources.Source{src}, Config{}, nil, nil)
	result, _, err := svc.Query(context.Background(), routeQuery(t, "HKG-TPE", false, d))
	require.NoError(t, err)
	require.Len(t, result.Flights, 1)
	assert.Equal(t, "CX 402", result.Flights[0].FlightNo)
}

func TestQuery_SourceSelection(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	hk := &fakeSource{name: "hk_airport", airports: map[string]bool{"HKG": true}}
	bts := &fakeSource{name: "us_bts", airports: map[string]bool{"JFK": true, "LAX": true}}

	svc := New([]sources.Source{hk, bts}, Config{}, nil, nil)
	_, skipped, err := svc.Query(context.Background(), routeQuery(t, "HKG-TPE", true, d))
	require.NoError(t, err)

	assert.Equal(t, []string{"us_bts"}, skipped)
	assert.NotZero(t, hk.callCount())
	assert.Zero(t, bts.callCount())
}

func TestQuery_WildcardRouteConsultsAllSources(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	hk := &fakeSource{name: "hk_airport", airports: map[string]bool{"HKG": true}}
	bts := &fakeSource{name: "us_bts", airports: map[string]bool{"JFK": true}}

	svc := New([]sources.Source{hk, bts}, Config{}, nil, nil)
	q := models.AuditQuery{Dates: models.SingleDate(d)}
	_, skipped, err := svc.Query(context.Background(), q)
	require.NoError(t, err)

	assert.Empty(t, skipped)
	assert.NotZero(t, hk.callCount())
	assert.NotZero(t, bts.callCount())
}

func TestQuery_FetchOrder(t *testing.T) {
	start := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	src := &fakeSource{name: "hk_airport", airports: map[string]bool{"HKG": true}}

	// Serialize fetches so the recorded call order is the job order.
	svc := New([]sources.Source{src}, Config{MaxConcurrent: 1}, nil, nil)
	rf, err := models.RouteFromString("HKG-TPE", true)
	require.NoError(t, err)
	q := models.AuditQuery{
		Route: rf,
		Dates: models.DateFilter{Start: start, End: end},
		Cargo: true,
	}
	_, _, err = svc.Query(context.Background(), q)
	require.NoError(t, err)

	want := []string{
		"2026-02-17|false|false",
		"2026-02-17|false|true",
		"2026-02-17|true|false",
		"2026-02-17|true|true",
		"2026-02-18|false|false",
		"2026-02-18|false|true",
		"2026-02-18|true|false",
		"2026-02-18|true|true",
	}
	assert.Equal(t, want, src.calls)
}

func TestQuery_FetchMemoization(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		name:     "hk_airport",
		airports: map[string]bool{"HKG": true},
		byKey: map[string][]models.RawFlight{
			fetchKey(d, false, false): {raw("HKG", "TPE", "CX 402", "CPA", d)},
		},
	}

	svc := New([]sources.Source{src}, Config{}, nil, nil)
	q := routeQuery(t, "HKG-TPE", true, d)

	_, _, err := svc.Query(context.Background(), q)
	require.NoError(t, err)
	first := src.callCount()

	result, _, err := svc.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, src.callCount(), "repeat query must be served from the fetch cache")
	require.Len(t, result.Flights, 1)
}

func TestQuery_SourceErrorAbortsQuery(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		name:     "hk_airport",
		airports: map[string]bool{"HKG": true},
		err:      sources.NewSourceError("hk_airport", errors.New("upstream 502")),
	}

	svc := New([]sources.Source{src}, Config{}, nil, nil)
	_, _, err := svc.Query(context.Background(), routeQuery(t, "HKG-TPE", true, d))
	require.Error(t, err)
	var srcErr *sources.SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestQuery_CurrentDayOnlySkippedForOtherDates(t *testing.T) {
	today := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	korea := &fakeSource{
		name:       "korea_airports",
		airports:   map[string]bool{"ICN": true},
		currentDay: true,
	}

	svc := New([]sources.Source{korea}, Config{}, nil, nil)
	svc.now = func() time.Time { return today.Add(9 * time.Hour) }

	_, _, err := svc.Query(context.Background(), routeQuery(t, "ICN-HKG", true, yesterday))
	require.NoError(t, err)
	assert.Zero(t, korea.callCount(), "non-today dates must not reach a current-day-only source")

	_, _, err = svc.Query(context.Background(), routeQuery(t, "ICN-HKG", true, today))
	require.NoError(t, err)
	assert.NotZero(t, korea.callCount())
}

func TestDeduplicate(t *testing.T) {
	flights := []models.Flight{
		{FlightNo: "KE 187", Airline: "KAL", OperatingAirline: "KAL"},
		{FlightNo: "OZ 6771", Airline: "AAR", OperatingAirline: "KAL"},
		{FlightNo: "TG 601", Airline: "THA"},
	}

	out := Deduplicate(flights)
	require.Len(t, out, 2)
	assert.Equal(t, "KE 187", out[0].FlightNo)
	assert.Equal(t, "TG 601", out[1].FlightNo, "rows without code-share info are kept")
}
