// Package reference provides airline and airport lookup tables and the
// flight status parser. Tables are bundled with the binary and overlaid
// with hand-curated overrides for carriers and airports the upstream
// dataset misses.
package reference

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

//go:embed data/airlines.json
var airlinesData []byte

//go:embed data/airports.json
var airportsData []byte

// AirlineInfo is an airline reference record keyed by ICAO code.
type AirlineInfo struct {
	ICAO    string `json:"icao"`
	IATA    string `json:"iata"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// AirportInfo is an airport reference record keyed by IATA code.
type AirportInfo struct {
	IATA      string  `json:"iata"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Lookup holds the merged reference tables. Construct once at startup
// with NewLookup and share by reference; the tables are immutable after
// construction, so unsynchronized concurrent reads are safe.
type Lookup struct {
	airlines map[string]AirlineInfo
	airports map[string]AirportInfo

	iataOnce  sync.Once
	iataIndex map[string]string
}

// NewLookup decodes the bundled datasets and overlays the override
// tables (overrides win on key collision). A corrupt bundle degrades to
// overrides only rather than failing.
func NewLookup(log *zap.SugaredLogger) *Lookup {
	l := &Lookup{
		airlines: make(map[string]AirlineInfo),
		airports: make(map[string]AirportInfo),
	}

	if err := json.Unmarshal(airlinesData, &l.airlines); err != nil {
		if log != nil {
			log.Warnw("bundled airline data unreadable, using overrides only", "error", err)
		}
		l.airlines = make(map[string]AirlineInfo)
	}
	if err := json.Unmarshal(airportsData, &l.airports); err != nil {
		if log != nil {
			log.Warnw("bundled airport data unreadable, using overrides only", "error", err)
		}
		l.airports = make(map[string]AirportInfo)
	}

	for code, info := range airlineOverrides {
		l.airlines[code] = info
	}
	for code, info := range airportOverrides {
		l.airports[code] = info
	}

	return l
}

// Airline looks up an airline by ICAO code. Input is trimmed and
// uppercased; empty input returns false.
func (l *Lookup) Airline(icao string) (AirlineInfo, bool) {
	code := normalizeCode(icao)
	if code == "" {
		return AirlineInfo{}, false
	}
	info, ok := l.airlines[code]
	return info, ok
}

// Airport looks up an airport by IATA code.
func (l *Lookup) Airport(iata string) (AirportInfo, bool) {
	code := normalizeCode(iata)
	if code == "" {
		return AirportInfo{}, false
	}
	info, ok := l.airports[code]
	return info, ok
}

// IATAToICAO maps a 2-letter IATA airline code to its ICAO code. The
// reverse index is built from the merged table on first use and is
// immutable afterwards.
func (l *Lookup) IATAToICAO(iata string) (string, bool) {
	code := normalizeCode(iata)
	if code == "" {
		return "", false
	}
	l.iataOnce.Do(func() {
		l.iataIndex = make(map[string]string, len(l.airlines))
		for icao, info := range l.airlines {
			if info.IATA != "" {
				l.iataIndex[strings.ToUpper(info.IATA)] = icao
			}
		}
	})
	icao, ok := l.iataIndex[code]
	return icao, ok
}

// NormalizeAirline maps an IATA airline code to ICAO, falling back to
// the raw code when no mapping exists so the result is never empty when
// the source provided something.
func (l *Lookup) NormalizeAirline(code string) string {
	if icao, ok := l.IATAToICAO(code); ok {
		return icao
	}
	return normalizeCode(code)
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
