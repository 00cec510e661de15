package reference

// Hand-maintained corrections for entries missing from or stale in the
// bundled OpenFlights snapshot. These replace bundled entries with the
// same key.

var airlineOverrides = map[string]AirlineInfo{
	"HKE": {ICAO: "HKE", IATA: "UO", Name: "HK Express", Country: "Hong Kong"},
	"CQH": {ICAO: "CQH", IATA: "9C", Name: "Spring Airlines", Country: "China"},
	"TWB": {ICAO: "TWB", IATA: "TW", Name: "T'way Air", Country: "Republic of Korea"},
	"VJC": {ICAO: "VJC", IATA: "VJ", Name: "VietJet Air", Country: "Vietnam"},
	"ASV": {ICAO: "ASV", IATA: "RS", Name: "Air Seoul", Country: "Republic of Korea"},
	"APJ": {ICAO: "APJ", IATA: "MM", Name: "Peach Aviation", Country: "Japan"},
	"SJX": {ICAO: "SJX", IATA: "JX", Name: "Starlux Airlines", Country: "Taiwan"},
	"AHK": {ICAO: "AHK", IATA: "LD", Name: "Air Hong Kong", Country: "Hong Kong"},
	"EOK": {ICAO: "EOK", IATA: "ZE", Name: "Eastar Jet", Country: "Republic of Korea"},
	"AIH": {ICAO: "AIH", IATA: "YP", Name: "Air Premia", Country: "Republic of Korea"},
}

var airportOverrides = map[string]AirportInfo{
	// Opened after the bundled snapshot was taken.
	"PKX": {IATA: "PKX", Name: "Beijing Daxing International Airport", City: "Beijing", Country: "China", Latitude: 39.5098, Longitude: 116.4105},
	"TFU": {IATA: "TFU", Name: "Chengdu Tianfu International Airport", City: "Chengdu", Country: "China", Latitude: 30.3125, Longitude: 104.4411},
}
