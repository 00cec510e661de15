package sources

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wkchan/flightaudit/internal/models"
	"github.com/wkchan/flightaudit/internal/reference"
)

// US Bureau of Transportation Statistics on-time performance dumps.
// One ZIP per (year, month), containing a single CSV table of every US
// domestic flight from carriers above 0.5% market share. No API key.
// Data trails the current date by two to three months.
const btsBaseURL = "https://transtats.bts.gov/PREZIP/" +
	"On_Time_Marketing_Carrier_On_Time_Performance_Beginning_January_2018_%d_%d.zip"

// BTSSource serves historical US domestic flights from the monthly BTS
// bulk files. Months are downloaded once and held in memory for the
// lifetime of the source, since a single month answers many dates.
type BTSSource struct {
	urlTemplate string
	client      *http.Client
	lookup      *reference.Lookup
	log         *zap.SugaredLogger

	mu     sync.Mutex
	months map[string][]models.RawFlight
}

func NewBTSSource(lookup *reference.Lookup, log *zap.SugaredLogger) *BTSSource {
	return &BTSSource{
		urlTemplate: btsBaseURL,
		client:      &http.Client{Timeout: 180 * time.Second},
		lookup:      lookup,
		log:         log,
		months:      make(map[string][]models.RawFlight),
	}
}

// NewBTSSourceWithURL is used by tests and non-default deployments. The
// template must contain two %d verbs for year and month.
func NewBTSSourceWithURL(urlTemplate string, client *http.Client, lookup *reference.Lookup, log *zap.SugaredLogger) *BTSSource {
	if client == nil {
		client = &http.Client{Timeout: 180 * time.Second}
	}
	return &BTSSource{
		urlTemplate: urlTemplate,
		client:      client,
		lookup:      lookup,
		log:         log,
		months:      make(map[string][]models.RawFlight),
	}
}

func (s *BTSSource) Name() string { return "us_bts" }

// SupportedAirports advertises the major US hubs. The table actually
// covers every US domestic airport; this set is what route queries are
// matched against.
func (s *BTSSource) SupportedAirports() map[string]bool {
	return map[string]bool{
		"ATL": true, "BOS": true, "DEN": true, "DFW": true, "JFK": true,
		"LAX": true, "ORD": true, "SEA": true, "SFO": true,
	}
}

// FetchFlights returns the rows of the requested date. Every bulk row
// is a complete origin-to-destination movement, so rows are emitted on
// the departure pass only; the arrival pass yields nothing to avoid
// double counting. Cargo data is not part of this dataset.
func (s *BTSSource) FetchFlights(ctx context.Context, flightDate time.Time, arrival, cargo bool) ([]models.RawFlight, error) {
	if arrival || cargo {
		return nil, nil
	}

	month, err := s.loadMonth(ctx, flightDate.Year(), int(flightDate.Month()))
	if err != nil {
		return nil, err
	}

	var flights []models.RawFlight
	for _, raw := range month {
		if raw.Date.Equal(truncateToDay(flightDate)) {
			flights = append(flights, raw)
		}
	}
	return flights, nil
}

func (s *BTSSource) loadMonth(ctx context.Context, year, month int) ([]models.RawFlight, error) {
	key := fmt.Sprintf("%04d-%02d", year, month)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.months[key]; ok {
		return cached, nil
	}

	url := fmt.Sprintf(s.urlTemplate, year, month)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, NewSourceError(s.Name(), fmt.Errorf("unexpected status %d for %s", resp.StatusCode, key))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, NewSourceError(s.Name(), fmt.Errorf("non-ZIP body for %s (%d bytes): %w", key, len(body), err))
	}

	var table *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".csv") {
			table = f
			break
		}
	}
	if table == nil {
		return nil, NewSourceError(s.Name(), fmt.Errorf("no CSV member in archive for %s", key))
	}

	rc, err := table.Open()
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}
	defer rc.Close()

	flights, dropped, err := s.parseTable(rc)
	if err != nil {
		return nil, NewSourceError(s.Name(), err)
	}
	if s.log != nil {
		s.log.Infow("loaded BTS month", "month", key, "rows", len(flights), "dropped", dropped)
	}

	s.months[key] = flights
	return flights, nil
}

func (s *BTSSource) parseTable(r io.Reader) ([]models.RawFlight, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var flights []models.RawFlight
	dropped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dropped, fmt.Errorf("reading row: %w", err)
		}

		// The bulk format guarantees a well-formed date column; a row
		// that fails here indicates file corruption and is dropped.
		flDate, err := time.ParseInLocation(models.DateLayout, field(record, "FlightDate"), time.UTC)
		if err != nil {
			dropped++
			continue
		}

		mktIATA := field(record, "IATA_Code_Marketing_Airline")
		mktNum := field(record, "Flight_Number_Marketing_Airline")
		opIATA := field(record, "IATA_Code_Operating_Airline")
		opNum := field(record, "Flight_Number_Operating_Airline")

		flightNo := joinFlightNo(mktIATA, mktNum)
		opFlightNo := joinFlightNo(opIATA, opNum)
		if opIATA == "" {
			opFlightNo = flightNo
		}

		airline := s.lookup.NormalizeAirline(mktIATA)
		opAirline := airline
		if opIATA != "" {
			opAirline = s.lookup.NormalizeAirline(opIATA)
		}

		flights = append(flights, models.RawFlight{
			Origin:            field(record, "Origin"),
			Destination:       field(record, "Dest"),
			FlightNo:          flightNo,
			Airline:           airline,
			OperatingFlightNo: opFlightNo,
			OperatingAirline:  opAirline,
			ScheduledTime:     normalizeBTSClock(field(record, "CRSDepTime")),
			Status: buildBTSStatus(
				field(record, "Cancelled"),
				field(record, "Diverted"),
				field(record, "ArrTime"),
				field(record, "ArrDelay"),
				field(record, "DepTime"),
			),
			Date: flDate,
		})
	}

	return flights, dropped, nil
}

func (s *BTSSource) RawToFlight(raw models.RawFlight) models.Flight {
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
		Cargo:             raw.Cargo,
	}
}

// normalizeBTSClock turns a zero-padded "HHMM" field into "HH:MM".
// "2400" means midnight of the same calendar date in this format, not
// the following day.
func normalizeBTSClock(hhmm string) string {
	// Some exports carry the clock as a float, e.g. "835.0".
	hhmm, _, _ = strings.Cut(hhmm, ".")
	if hhmm == "" {
		return ""
	}
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}
	h, err := strconv.Atoi(hhmm[:2])
	if err != nil {
		return ""
	}
	m, err := strconv.Atoi(hhmm[2:4])
	if err != nil {
		return ""
	}
	if h == 24 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// buildBTSStatus derives a human status string from the delay and
// cancellation columns. Precedence: cancelled, diverted, arrival delay,
// departure time, empty.
func buildBTSStatus(cancelled, diverted, arrTime, arrDelay, depTime string) string {
	if isBTSFlag(cancelled) {
		return "Cancelled"
	}
	if isBTSFlag(diverted) {
		return "Diverted"
	}

	if arrDelay != "" {
		if delay, err := strconv.ParseFloat(arrDelay, 64); err == nil {
			clock := normalizeBTSClock(arrTime)
			if delay <= 0 {
				if clock != "" {
					return "Arr " + clock
				}
				return "On time"
			}
			delayStr := fmt.Sprintf("+%dmin", int(delay))
			if clock != "" {
				return fmt.Sprintf("Arr %s (%s)", clock, delayStr)
			}
			return "Delayed " + delayStr
		}
	}

	if clock := normalizeBTSClock(depTime); clock != "" {
		return "Dep " + clock
	}
	return ""
}

func isBTSFlag(v string) bool {
	switch v {
	case "1", "1.0", "1.00":
		return true
	}
	return false
}

func joinFlightNo(iata, number string) string {
	if number == "" {
		return iata
	}
	return iata + " " + number
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
