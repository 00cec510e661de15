package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wkchan/flightaudit/internal/models"
	"github.com/wkchan/flightaudit/internal/reference"
)

const (
	hkBaseURL = "https://www.hongkongairport.com/flightinfo-rest/rest/flights/past"
	hkg       = "HKG"
)

// Ordered alias chains per logical field. The HK API has shipped several
// schema variants with different casing and naming; the first present,
// non-empty key wins. New variants are added here, not in code paths.
var (
	hkOriginAliases = []string{
		"Origin", "origin", "Port of origin", "portOfOrigin",
		"From", "from", "dep_iata", "dep",
	}
	hkDestinationAliases = []string{
		"Destination", "destination", "Port of destination", "portOfDestination",
		"To", "to", "arr_iata", "arr",
	}
	hkTimeAliases     = []string{"Time", "time", "ScheduledTime", "scheduledTime"}
	hkStatusAliases   = []string{"Status", "status"}
	hkGateAliases     = []string{"Gate", "gate"}
	hkTerminalAliases = []string{"Terminal", "terminal"}
	hkFlightsAliases  = []string{
		"flight", "Flight number list", "flightNumberList", "flightNumbers", "flights",
	}
	hkFlightNoAliases = []string{"No", "no", "FlightNo", "flightNo", "number", "flight_number"}
	hkAirlineAliases  = []string{"Airline", "airline", "carrier", "Carrier"}
)

// HKAirportSource fetches flight data from the Hong Kong International
// Airport open API.
type HKAirportSource struct {
	baseURL string
	client  *http.Client
	lookup  *reference.Lookup
	log     *zap.SugaredLogger
}

func NewHKAirportSource(lookup *reference.Lookup, log *zap.SugaredLogger) *HKAirportSource {
	return &HKAirportSource{
		baseURL: hkBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		lookup:  lookup,
		log:     log,
	}
}

// NewHKAirportSourceWithURL is used by tests and non-default deployments.
func NewHKAirportSourceWithURL(baseURL string, client *http.Client, lookup *reference.Lookup, log *zap.SugaredLogger) *HKAirportSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HKAirportSource{baseURL: baseURL, client: client, lookup: lookup, log: log}
}

func (s *HKAirportSource) Name() string { return "hk_airport" }

func (s *HKAirportSource) SupportedAirports() map[string]bool {
	return map[string]bool{hkg: true}
}

func (s *HKAirportSource) FetchFlights(ctx context.Context, flightDate time.Time, arrival, cargo bool) ([]models.RawFlight, error) {
	params := url.Values{}
	params.Set("date", flightDate.Format(models.DateLayout))
	params.Set("arrival", fmt.Sprintf("%t", arrival))
	params.Set("cargo", fmt.Sprintf("%t", cargo))
	params.Set("lang", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewSourceError(s.Name(), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}

	return s.parseResponse(body, flightDate, arrival)
}

// The API answers in one of three top-level shapes: a wrapped object
// {"List": [...]}, a bare array of items, or an array of date wrappers
// each carrying its own nested list. Key presence is inspected before a
// decode path is chosen.
type hkShape int

const (
	hkShapeWrapped hkShape = iota
	hkShapeBareArray
	hkShapeDateWrapped
)

type hkWrapper struct {
	List  []map[string]interface{} `json:"List"`
	ListL []map[string]interface{} `json:"list"`
	Date  string                   `json:"Date"`
	DateL string                   `json:"date"`
}

func sniffHKShape(body []byte) (hkShape, []json.RawMessage, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err == nil {
		if len(elements) == 0 {
			return hkShapeBareArray, elements, nil
		}
		var first map[string]json.RawMessage
		if err := json.Unmarshal(elements[0], &first); err != nil {
			return 0, nil, fmt.Errorf("unrecognized array element: %w", err)
		}
		if _, ok := first["list"]; ok {
			return hkShapeDateWrapped, elements, nil
		}
		if _, ok := first["List"]; ok {
			return hkShapeDateWrapped, elements, nil
		}
		return hkShapeBareArray, elements, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return 0, nil, fmt.Errorf("body is neither array nor object: %w", err)
	}
	return hkShapeWrapped, nil, nil
}

func (s *HKAirportSource) parseResponse(body []byte, flightDate time.Time, arrival bool) ([]models.RawFlight, error) {
	shape, elements, err := sniffHKShape(body)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}

	queryDate := flightDate.Format(models.DateLayout)
	var flights []models.RawFlight

	switch shape {
	case hkShapeDateWrapped:
		for _, el := range elements {
			var w hkWrapper
			if err := json.Unmarshal(el, &w); err != nil {
				continue
			}
			items := w.List
			if items == nil {
				items = w.ListL
			}
			dateStr := firstNonEmpty(w.Date, w.DateL, queryDate)
			for _, item := range items {
				flights = append(flights, s.parseListItem(item, dateStr, arrival, flightDate)...)
			}
		}
	case hkShapeBareArray:
		for _, el := range elements {
			var item map[string]interface{}
			if err := json.Unmarshal(el, &item); err != nil {
				continue
			}
			flights = append(flights, s.parseListItem(item, queryDate, arrival, flightDate)...)
		}
	case hkShapeWrapped:
		var w hkWrapper
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, NewSourceError(s.Name(), fmt.Errorf("decoding wrapped response: %w", err))
		}
		items := w.List
		if items == nil {
			items = w.ListL
		}
		dateStr := firstNonEmpty(w.Date, w.DateL, queryDate)
		for _, item := range items {
			flights = append(flights, s.parseListItem(item, dateStr, arrival, flightDate)...)
		}
	}

	return flights, nil
}

// parseListItem fans one list item out into one RawFlight per flight
// number entry. Code-shares commonly bundle several flight numbers under
// a single scheduled time, gate, and status.
func (s *HKAirportSource) parseListItem(item map[string]interface{}, dateStr string, arrival bool, queryDate time.Time) []models.RawFlight {
	var origin, destination string
	if arrival {
		origin = stringOrFirst(item, hkOriginAliases)
		destination = hkg
	} else {
		origin = hkg
		destination = stringOrFirst(item, hkDestinationAliases)
	}

	timeStr := stringField(item, hkTimeAliases)
	status := stringField(item, hkStatusAliases)
	gate := stringField(item, hkGateAliases)
	terminal := stringField(item, hkTerminalAliases)

	date, err := time.ParseInLocation(models.DateLayout, dateStr, time.UTC)
	if err != nil {
		date = queryDate
	}

	entries := flightEntries(item)
	// Flight info may sit directly on the item instead of a sub-list.
	if len(entries) == 0 && (stringField(item, hkFlightNoAliases) != "" || stringField(item, hkAirlineAliases) != "") {
		entries = []map[string]interface{}{item}
	}

	// The first listed flight number is the operating carrier; the rest
	// are marketing code-shares of the same physical movement.
	var parsed []models.RawFlight
	var opFlightNo, opAirline string
	for _, entry := range entries {
		flightNo := stringField(entry, hkFlightNoAliases)
		airline := stringField(entry, hkAirlineAliases)
		if flightNo == "" && airline == "" {
			continue
		}
		if opFlightNo == "" && opAirline == "" {
			opFlightNo, opAirline = flightNo, airline
		}
		parsed = append(parsed, models.RawFlight{
			Origin:            origin,
			Destination:       destination,
			FlightNo:          flightNo,
			Airline:           airline,
			OperatingFlightNo: opFlightNo,
			OperatingAirline:  opAirline,
			ScheduledTime:     timeStr,
			Status:            status,
			Date:              date,
			Gate:              gate,
			Terminal:          terminal,
		})
	}

	// An item carrying a route but no usable flight numbers still counts
	// as one movement; dropping it silently would skew statistics.
	if len(parsed) == 0 && (origin != "" || destination != "") {
		parsed = append(parsed, models.RawFlight{
			Origin:        origin,
			Destination:   destination,
			ScheduledTime: timeStr,
			Status:        status,
			Date:          date,
			Gate:          gate,
			Terminal:      terminal,
		})
	}

	return parsed
}

func (s *HKAirportSource) RawToFlight(raw models.RawFlight) models.Flight {
	return models.Flight{
		Origin:            raw.Origin,
		Destination:       raw.Destination,
		FlightNo:          raw.FlightNo,
		Airline:           s.lookup.NormalizeAirline(raw.Airline),
		OperatingFlightNo: raw.OperatingFlightNo,
		OperatingAirline:  s.lookup.NormalizeAirline(raw.OperatingAirline),
		ScheduledTime:     parseScheduled(raw.Date, raw.ScheduledTime),
		Status:            raw.Status,
		Date:              raw.Date,
		Gate:              raw.Gate,
		Terminal:          raw.Terminal,
		Cargo:             raw.Cargo,
	}
}

// flightEntries extracts the flight-number sub-records of an item. The
// value may be a list of objects or a single object.
func flightEntries(item map[string]interface{}) []map[string]interface{} {
	for _, key := range hkFlightsAliases {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case []interface{}:
			var out []map[string]interface{}
			for _, el := range val {
				if m, ok := el.(map[string]interface{}); ok {
					out = append(out, m)
				}
			}
			if len(out) > 0 {
				return out
			}
		case map[string]interface{}:
			return []map[string]interface{}{val}
		}
	}
	return nil
}

// stringField returns the first present, non-empty value among the alias
// keys, stringified and trimmed.
func stringField(item map[string]interface{}, aliases []string) string {
	for _, key := range aliases {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

// stringOrFirst behaves like stringField but unwraps list values to
// their first element. Origin and destination occasionally arrive as
// single-element arrays.
func stringOrFirst(item map[string]interface{}, aliases []string) string {
	for _, key := range aliases {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		if list, ok := v.([]interface{}); ok {
			if len(list) == 0 {
				continue
			}
			if s := stringify(list[0]); s != "" {
				return s
			}
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strings.TrimSpace(strings.TrimSuffix(fmt.Sprintf("%v", val), ".0"))
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
