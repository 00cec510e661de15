package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wkchan/flightaudit/internal/models"
	"github.com/wkchan/flightaudit/internal/reference"
)

// Incheon International Airport flight status, served through the Korea
// open-data portal (data.go.kr, provider B551177). Requires a free API
// key. Passenger endpoints cover the current day only, and there is no
// cargo endpoint.
const (
	koreaBaseURL        = "http://apis.data.go.kr/B551177"
	koreaArrivalsPath   = "/StatusOfPassengerFlightsOdp/getPassengerArrivalsOdp"
	koreaDeparturesPath = "/StatusOfPassengerFlightsDep/getPassengerDepartures"
	koreaAPIKeyEnv      = "KOREA_DATA_API_KEY"
	koreaMaxRows        = 1000
	icn                 = "ICN"
)

// ErrMissingKoreaAPIKey is returned at construction when no credential
// is available; fetch is never attempted without one.
const ErrMissingKoreaAPIKey = ConfigError(
	"korea data API key required: set " + koreaAPIKeyEnv + " or pass an explicit key (register free at data.go.kr)")

var (
	koreaPrefixRe      = regexp.MustCompile(`^([A-Z]{2})\d`)
	koreaAlnumPrefixRe = regexp.MustCompile(`^([A-Z0-9]{2})\d`)
)

// KoreaAirportSource fetches Incheon flight data from the data.go.kr
// open API.
type KoreaAirportSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
	lookup  *reference.Lookup
	log     *zap.SugaredLogger
}

// NewKoreaAirportSource builds the source. The key falls back to the
// KOREA_DATA_API_KEY environment variable; its absence is a
// configuration error surfaced here, not at first fetch.
func NewKoreaAirportSource(apiKey string, lookup *reference.Lookup, log *zap.SugaredLogger) (*KoreaAirportSource, error) {
	if apiKey == "" {
		apiKey = os.Getenv(koreaAPIKeyEnv)
	}
	if apiKey == "" {
		return nil, ErrMissingKoreaAPIKey
	}
	return &KoreaAirportSource{
		baseURL: koreaBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		lookup:  lookup,
		log:     log,
	}, nil
}

// NewKoreaAirportSourceWithURL is used by tests and non-default
// deployments.
func NewKoreaAirportSourceWithURL(baseURL, apiKey string, client *http.Client, lookup *reference.Lookup, log *zap.SugaredLogger) (*KoreaAirportSource, error) {
	if apiKey == "" {
		return nil, ErrMissingKoreaAPIKey
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &KoreaAirportSource{baseURL: baseURL, apiKey: apiKey, client: client, lookup: lookup, log: log}, nil
}

func (s *KoreaAirportSource) Name() string { return "korea_airport" }

// CurrentDayOnly reports that the passenger endpoints expose no
// historical date parameter.
func (s *KoreaAirportSource) CurrentDayOnly() bool { return true }

func (s *KoreaAirportSource) SupportedAirports() map[string]bool {
	return map[string]bool{icn: true}
}

// FetchFlights returns the current-day passenger movements. Cargo data
// is not published by this provider, so cargo queries yield an empty
// result rather than an error.
func (s *KoreaAirportSource) FetchFlights(ctx context.Context, flightDate time.Time, arrival, cargo bool) ([]models.RawFlight, error) {
	if cargo {
		return nil, nil
	}

	path := koreaDeparturesPath
	if arrival {
		path = koreaArrivalsPath
	}
	items, err := s.fetchAllPages(ctx, path)
	if err != nil {
		return nil, err
	}

	var flights []models.RawFlight
	for _, item := range items {
		if raw, ok := s.parseItem(item, flightDate, arrival); ok {
			flights = append(flights, raw)
		}
	}
	return flights, nil
}

type koreaBody struct {
	Items      json.RawMessage `json:"items"`
	TotalCount json.Number     `json:"totalCount"`
}

type koreaResponse struct {
	Response struct {
		Body koreaBody `json:"body"`
	} `json:"response"`
}

// fetchAllPages loops pages until the accumulated count reaches the
// reported total, or a page comes back empty. The empty-page check
// guards against a lying totalCount.
func (s *KoreaAirportSource) fetchAllPages(ctx context.Context, path string) ([]map[string]interface{}, error) {
	var all []map[string]interface{}
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("serviceKey", s.apiKey)
		params.Set("type", "json")
		params.Set("numOfRows", fmt.Sprintf("%d", koreaMaxRows))
		params.Set("pageNo", fmt.Sprintf("%d", page))
		params.Set("lang", "E")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, NewSourceError(s.Name(), err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, NewSourceError(s.Name(), err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, NewSourceError(s.Name(), err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, NewSourceError(s.Name(), fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		var decoded koreaResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, NewSourceError(s.Name(), fmt.Errorf("decoding page %d: %w", page, err))
		}

		items := decodeKoreaItems(decoded.Response.Body.Items)
		if len(items) == 0 {
			break
		}
		all = append(all, items...)

		total, _ := decoded.Response.Body.TotalCount.Int64()
		if int64(len(all)) >= total {
			break
		}
	}
	if s.log != nil {
		s.log.Debugw("korea fetch complete", "items", len(all))
	}
	return all, nil
}

// decodeKoreaItems unwraps the polymorphic items node: either
// {"item": [...]}, {"item": {...}}, a bare array, or absent.
func decodeKoreaItems(raw json.RawMessage) []map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var wrapper struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Item) > 0 {
		raw = wrapper.Item
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single map[string]interface{}
	if err := json.Unmarshal(raw, &single); err == nil && len(single) > 0 {
		return []map[string]interface{}{single}
	}
	return nil
}

func (s *KoreaAirportSource) parseItem(item map[string]interface{}, flightDate time.Time, arrival bool) (models.RawFlight, bool) {
	flightID := itemString(item, "flightId")
	if flightID == "" {
		return models.RawFlight{}, false
	}

	airlineIATA := extractAirlinePrefix(flightID)
	airlineICAO := s.lookup.NormalizeAirline(airlineIATA)

	airportCode := itemString(item, "cityCode")
	if airportCode == "" {
		airportCode = itemString(item, "airport")
	}

	var origin, destination string
	if arrival {
		origin = airportCode
		destination = icn
	} else {
		origin = icn
		destination = airportCode
	}

	var scheduled string
	if sched := itemString(item, "scheduleDateTime"); len(sched) >= 4 {
		scheduled = sched[:2] + ":" + sched[2:4]
	}

	status := itemString(item, "remark")
	gate := itemString(item, "gatenumber")
	terminal := itemString(item, "terminalid")

	// A set codeshare flag plus a master flight id identify the
	// operating flight; otherwise this record operates itself.
	opFlightNo := flightID
	opAirline := airlineICAO
	if itemString(item, "codeshare") != "" {
		if master := itemString(item, "masterflightid"); master != "" {
			opFlightNo = master
			opAirline = s.lookup.NormalizeAirline(extractAirlinePrefix(master))
		}
	}

	return models.RawFlight{
		Origin:            origin,
		Destination:       destination,
		FlightNo:          flightID,
		Airline:           airlineICAO,
		ScheduledTime:     scheduled,
		Status:            status,
		Date:              flightDate,
		Gate:              gate,
		Terminal:          terminal,
		OperatingFlightNo: opFlightNo,
		OperatingAirline:  opAirline,
	}, true
}

// extractAirlinePrefix pulls the 2-character carrier code off a flight
// id like "KE094". Some regional carriers use an alphanumeric prefix
// ("7C101"), so a second pattern admits digits before falling back to
// the first two characters.
func extractAirlinePrefix(flightID string) string {
	if m := koreaPrefixRe.FindStringSubmatch(flightID); m != nil {
		return m[1]
	}
	if m := koreaAlnumPrefixRe.FindStringSubmatch(flightID); m != nil {
		return m[1]
	}
	if len(flightID) >= 2 {
		return flightID[:2]
	}
	return flightID
}

func (s *KoreaAirportSource) RawToFlight(raw models.RawFlight) models.Flight {
	return models.Flight{
		Origin:            raw.Origin,
		Destination:       raw.Destination,
		FlightNo:          raw.FlightNo,
		Airline:           raw.Airline,
		OperatingFlightNo: raw.OperatingFlightNo,
		OperatingAirline:  raw.OperatingAirline,
		ScheduledTime:     parseScheduled(raw.Date, raw.ScheduledTime),
		Status:            raw.Status,
		Date:              raw.Date,
		Gate:              raw.Gate,
		Terminal:          raw.Terminal,
		Cargo:             raw.Cargo,
	}
}

// itemString stringifies a field that may arrive as string or number.
func itemString(item map[string]interface{}, key string) string {
	v, ok := item[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", val))
	case bool:
		if val {
			return "true"
		}
		return ""
	default:
		return ""
	}
}
