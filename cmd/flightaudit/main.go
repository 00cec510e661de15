// Command flightaudit queries flight traffic for a route and date range
// and prints a table, statistics, or the canonical CSV.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/wkchan/flightaudit/internal/export"
	"github.com/wkchan/flightaudit/internal/logging"
	"github.com/wkchan/flightaudit/internal/models"
	"github.com/wkchan/flightaudit/internal/ratelimit"
	"github.com/wkchan/flightaudit/internal/reference"
	"github.com/wkchan/flightaudit/internal/service"
	"github.com/wkchan/flightaudit/internal/sources"
	"github.com/wkchan/flightaudit/internal/stats"
)

func main() {
	var (
		routeArg   = flag.StringP("route", "r", "", "route as ORIGIN-DEST (e.g. HKG-TPE)")
		dateArg    = flag.StringP("date", "d", "", "single date (YYYY-MM-DD)")
		daysArg    = flag.IntP("days", "n", 0, "past N days (inclusive)")
		statsArg   = flag.BoolP("stats", "s", false, "include statistics summary")
		outputArg  = flag.StringP("output", "o", "", "write results to CSV file")
		cargoArg   = flag.Bool("cargo", false, "include cargo flights")
		dedupeArg  = flag.Bool("deduplicate", false, "keep only operating carrier rows")
		oneWayArg  = flag.Bool("one-way", false, "match the route direction only")
		verboseArg = flag.BoolP("verbose", "v", false, "verbose logging")
	)
	flag.Parse()

	_ = godotenv.Load()

	appEnv := "production"
	if *verboseArg {
		appEnv = "development"
	}
	if err := logging.Init(appEnv); err != nil {
		fatalf("Error: %v", err)
	}
	defer logging.Close()
	log := logging.L()

	if *routeArg == "" {
		fatalf("Error: --route is required")
	}
	if (*dateArg == "") == (*daysArg == 0) {
		fatalf("Error: exactly one of --date or --days is required")
	}

	route, err := models.RouteFromString(*routeArg, !*oneWayArg)
	if err != nil {
		fatalf("Error: %v", err)
	}

	var dates models.DateFilter
	if *dateArg != "" {
		d, err := time.ParseInLocation(models.DateLayout, *dateArg, time.UTC)
		if err != nil {
			fatalf("Error: invalid date format: %s", *dateArg)
		}
		dates = models.SingleDate(d)
	} else {
		dates = models.PastDays(*daysArg, time.Now().UTC())
	}

	lookup := reference.NewLookup(log)
	srcs := []sources.Source{
		sources.NewHKAirportSource(lookup, log),
		sources.NewBTSSource(lookup, log),
	}
	if korea, err := sources.NewKoreaAirportSource("", lookup, log); err == nil {
		srcs = append(srcs, korea)
	} else {
		log.Debugw("korea source disabled", "error", err)
	}

	svcConfig := service.DefaultConfig()
	svcConfig.RateLimiter = ratelimit.NewSourceLimiterWithDefaults()
	svc := service.New(srcs, svcConfig, nil, log)

	query := models.AuditQuery{Route: route, Dates: dates, Cargo: *cargoArg}
	result, skipped, err := svc.Query(context.Background(), query)
	if err != nil {
		fatalf("Error: %v", err)
	}
	for _, name := range skipped {
		fmt.Fprintf(os.Stderr, "Note: source %s does not cover this route\n", name)
	}

	flights := result.Flights
	if *dedupeArg {
		flights = service.Deduplicate(flights)
	}

	if *statsArg {
		printStats(svc.Statistics(flights))
	}

	if len(flights) == 0 {
		fmt.Fprintln(os.Stderr, "No flights found.")
		return
	}

	if *outputArg != "" {
		f, err := os.Create(*outputArg)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer f.Close()
		if err := export.WriteCSV(f, flights); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(flights), *outputArg)
		return
	}

	printTable(flights)
}

func printTable(flights []models.Flight) {
	fmt.Printf("%-8s %-8s %-10s %-8s %-20s %-24s %s\n",
		"ORIGIN", "DEST", "FLIGHT", "AIRLINE", "SCHEDULED", "STATUS", "DATE")
	for _, f := range flights {
		scheduled := ""
		if f.ScheduledTime != nil {
			scheduled = f.ScheduledTime.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-8s %-8s %-10s %-8s %-20s %-24s %s\n",
			f.Origin, f.Destination, f.FlightNo, f.Airline,
			scheduled, f.Status, f.Date.Format(models.DateLayout))
	}
}

func printStats(s stats.FlightStats) {
	fmt.Printf("\nTotal flights: %d\n", s.TotalFlights)
	if len(s.ByAirline) > 0 {
		fmt.Println("\nBy airline:")
		printCountsByValue(s.ByAirline)
	}
	if len(s.ByRoute) > 0 {
		fmt.Println("\nBy route:")
		printCountsByKey(s.ByRoute)
	}
	if len(s.ByDate) > 0 {
		fmt.Println("\nBy date:")
		printCountsByKey(s.ByDate)
	}
	if len(s.StatusSummary) > 0 {
		fmt.Println("\nStatus summary:")
		printCountsByValue(s.StatusSummary)
	}
	fmt.Println()
}

func printCountsByKey(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, counts[k])
	}
}

func printCountsByValue(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, counts[k])
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
