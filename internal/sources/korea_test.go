package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkchan/flightaudit/internal/reference"
)

func TestKoreaAirport_MissingAPIKey(t *testing.T) {
	t.Setenv("KOREA_DATA_API_KEY", "")

	_, err := NewKoreaAirportSource("", reference.NewLookup(nil), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKoreaAPIKey)

	var cfgErr ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestKoreaAirport_APIKeyFromEnv(t *testing.T) {
	t.Setenv("KOREA_DATA_API_KEY", "env-key")

	src, err := NewKoreaAirportSource("", reference.NewLookup(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "env-key", src.apiKey)
}

func TestKoreaAirport_CargoUnsupported(t *testing.T) {
	src, err := NewKoreaAirportSourceWithURL("http://unused", "key", nil, reference.NewLookup(nil), nil)
	require.NoError(t, err)

	flights, err := src.FetchFlights(context.Background(), testDate(t, "2026-02-17"), false, true)
	require.NoError(t, err)
	assert.Empty(t, flights)
}

func koreaPage(items string, total int) string {
	return fmt.Sprintf(`{"response": {"body": {"items": {"item": %s}, "totalCount": %d}}}`, items, total)
}

func TestKoreaAirport_FetchFlights_Pagination(t *testing.T) {
	pages := map[string]string{
		"1": koreaPage(`[
			{"flightId": "KE094", "cityCode": "JFK", "scheduleDateTime": "0935", "remark": "Arrived", "gatenumber": "248", "terminalid": "P03"},
			{"flightId": "OZ201", "cityCode": "LAX", "scheduleDateTime": "1430"}
		]`, 3),
		"2": koreaPage(`[
			{"flightId": "7C101", "cityCode": "NRT", "scheduleDateTime": "2110"}
		]`, 3),
	}
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "key", r.URL.Query().Get("serviceKey"))
		assert.Equal(t, "json", r.URL.Query().Get("type"))
		payload, ok := pages[r.URL.Query().Get("pageNo")]
		require.True(t, ok, "unexpected page %s", r.URL.Query().Get("pageNo"))
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	src, err := NewKoreaAirportSourceWithURL(server.URL, "key", server.Client(), reference.NewLookup(nil), nil)
	require.NoError(t, err)

	flights, err := src.FetchFlights(context.Background(), testDate(t, "2026-02-17"), true, false)
	require.NoError(t, err)
	require.Len(t, flights, 3)
	assert.Equal(t, 2, requests, "should stop once totalCount is reached")

	first := flights[0]
	assert.Equal(t, "JFK", first.Origin)
	assert.Equal(t, "ICN", first.Destination)
	assert.Equal(t, "KE094", first.FlightNo)
	assert.Equal(t, "KAL", first.Airline)
	assert.Equal(t, "09:35", first.ScheduledTime)
	assert.Equal(t, "Arrived", first.Status)
	assert.Equal(t, "248", first.Gate)
	assert.Equal(t, "P03", first.Terminal)
	// Without codeshare metadata the record operates itself.
	assert.Equal(t, "KE094", first.OperatingFlightNo)
	assert.Equal(t, "KAL", first.OperatingAirline)

	assert.Equal(t, "JJA", flights[2].Airline)
}

func TestKoreaAirport_FetchFlights_EmptyPageTerminates(t *testing.T) {
	// totalCount lies; an empty page must still terminate pagination.
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("pageNo") == "1" {
			_, _ = w.Write([]byte(koreaPage(`[{"flightId": "KE001", "cityCode": "HKG"}]`, 9999)))
			return
		}
		_, _ = w.Write([]byte(koreaPage(`[]`, 9999)))
	}))
	defer server.Close()

	src, err := NewKoreaAirportSourceWithURL(server.URL, "key", server.Client(), reference.NewLookup(nil), nil)
	require.NoError(t, err)

	flights, err := src.FetchFlights(context.Background(), testDate(t, "2026-02-17"), false, false)
	require.NoError(t, err)
	assert.Len(t, flights, 1)
	assert.Equal(t, 2, requests)
}

func TestKoreaAirport_FetchFlights_SingleItemObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(koreaPage(`{"flightId": "TW301", "cityCode": "KIX"}`, 1)))
	}))
	defer server.Close()

	src, err := NewKoreaAirportSourceWithURL(server.URL, "key", server.Client(), reference.NewLookup(nil), nil)
	require.NoError(t, err)

	flights, err := src.FetchFlights(context.Background(), testDate(t, "2026-02-17"), false, false)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "ICN", flights[0].Origin)
	assert.Equal(t, "KIX", flights[0].Destination)
	assert.Equal(t, "TWB", flights[0].Airline)
}

func TestKoreaAirport_FetchFlights_Codeshare(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(koreaPage(`[
			{"flightId": "OZ6771", "cityCode": "TPE", "codeshare": "Slave", "masterflightid": "KE187"}
		]`, 1)))
	}))
	defer server.Close()

	src, err := NewKoreaAirportSourceWithURL(server.URL, "key", server.Client(), reference.NewLookup(nil), nil)
	require.NoError(t, err)

	flights, err := src.FetchFlights(context.Background(), testDate(t, "2026-02-17"), false, false)
	require.NoError(t, err)
	require.Len(t, flights, 1)

	f := flights[0]
	assert.Equal(t, "OZ6771", f.FlightNo)
	assert.Equal(t, "AAR", f.Airline)
	assert.Equal(t, "KE187", f.OperatingFlightNo)
	assert.Equal(t, "KAL", f.OperatingAirline)
}

func TestKoreaAirport_FetchFlights_SkipsMissingFlightID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(koreaPage(`[
			{"cityCode": "NRT"},
			{"flightId": "NH862", "cityCode": "HND"}
		]`, 2)))
	}))
	defer server.Close()

	src, err := NewKoreaAirportSourceWithURL(server.URL, "key", server.Client(), reference.NewLookup(nil), nil)
	require.NoError(t, err)

	flights, err := src.FetchFlights(context.Background(), testDate(t, "2026-02-17"), false, false)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "NH862", flights[0].FlightNo)
}

func TestExtractAirlinePrefix(t *testing.T) {
	tests := map[string]string{
		"KE094":  "KE",
		"OZ201":  "OZ",
		"7C101":  "7C",
		"TW9999": "TW",
		"X":      "X",
		"ZE561":  "ZE",
	}
	for flightID, want := range tests {
		assert.Equal(t, want, extractAirlinePrefix(flightID), flightID)
	}
}

func TestKoreaAirport_CurrentDayOnly(t *testing.T) {
	src, err := NewKoreaAirportSourceWithURL("http://unused", "key", nil, reference.NewLookup(nil), nil)
	require.NoError(t, err)
	assert.True(t, src.CurrentDayOnly())
}
