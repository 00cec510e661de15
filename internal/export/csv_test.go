package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkchan/flightaudit/internal/models"
)

func TestWriteReadRoundTrip(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	scheduled := time.Date(2026, 2, 17, 0, 5, 0, 0, time.UTC)
	flights := []models.Flight{
		{
			Origin: "HKG", Destination: "TPE",
			FlightNo: "CX 402", Airline: "CPA",
			OperatingFlightNo: "CX 402", OperatingAirline: "CPA",
			ScheduledTime: &scheduled,
			Status:        "Dep 00:13",
			Date:          d,
		},
		{
			Origin: "HKG", Destination: "ANC",
			FlightNo: "LD 080", Airline: "AHK",
			Date:  d,
			Cargo: true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, flights))

	parsed, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, flights, parsed)
}

func TestWriteCSV_Layout(t *testing.T) {
	d := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Flight{
		{Origin: "HKG", Destination: "TPE", FlightNo: "CX 402", Date: d},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])

	// A flight without a scheduled time serializes to an empty field.
	assert.Equal(t, "HKG,TPE,CX 402,,,,,,2026-02-17,false", lines[1])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestReadCSV_MissingRequiredColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("origin,destination\nHKG,TPE\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")
}

func TestReadCSV_InvalidDate(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("origin,destination,date\nHKG,TPE,17/02/2026\n"))
	require.Error(t, err)
}

func TestReadCSV_ToleratesExtraColumns(t *testing.T) {
	body := "origin,destination,date,remarks\nHKG,TPE,2026-02-17,on stand\n"
	flights, err := ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "HKG", flights[0].Origin)
	assert.Equal(t, time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC), flights[0].Date)
}
