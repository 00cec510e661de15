// Package export reads and writes the canonical tabular flight format
// consumed by downstream tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/wkchan/flightaudit/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// Columns is the canonical column set, in order. One row per flight;
// scheduled_time is empty when absent, never a sentinel.
var Columns = []string{
	"origin", "destination", "flight_no", "airline",
	"operating_flight_no", "operating_airline",
	"scheduled_time", "status", "date", "cargo",
}

// WriteCSV writes flights in the canonical layout, header included.
func WriteCSV(w io.Writer, flights []models.Flight) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, f := range flights {
		scheduled := ""
		if f.ScheduledTime != nil {
			scheduled = f.ScheduledTime.Format(timestampLayout)
		}
		row := []string{
			f.Origin,
			f.Destination,
			f.FlightNo,
			f.Airline,
			f.OperatingFlightNo,
			f.OperatingAirline,
			scheduled,
			f.Status,
			f.Date.Format(models.DateLayout),
			strconv.FormatBool(f.Cargo),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a canonical CSV back into flights, for offline
// statistics over previously dumped files.
func ReadCSV(r io.Reader) ([]models.Flight, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"origin", "destination", "date"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	get := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var flights []models.Flight
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := time.ParseInLocation(models.DateLayout, get(record, "date"), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", get(record, "date"), err)
		}

		var scheduled *time.Time
		if raw := get(record, "scheduled_time"); raw != "" {
			if t, err := time.ParseInLocation(timestampLayout, raw, time.UTC); err == nil {
				scheduled = &t
			}
		}

		cargo, _ := strconv.ParseBool(get(record, "cargo"))

		flights = append(flights, models.Flight{
			Origin:            get(record, "origin"),
			Destination:       get(record, "destination"),
			FlightNo:          get(record, "flight_no"),
			Airline:           get(record, "airline"),
			OperatingFlightNo: get(record, "operating_flight_no"),
			OperatingAirline:  get(record, "operating_airline"),
			ScheduledTime:     scheduled,
			Status:            get(record, "status"),
			Date:              date,
			Cargo:             cargo,
		})
	}
	return flights, nil
}
