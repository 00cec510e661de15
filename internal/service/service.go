// Package service orchestrates flight fetching across sources, applies
// route filtering, and assembles results in canonical order.
package service

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wkchan/flightaudit/internal/metrics"
	"github.com/wkchan/flightaudit/internal/models"
	"github.com/wkchan/flightaudit/internal/ratelimit"
	"github.com/wkchan/flightaudit/internal/sources"
	"github.com/wkchan/flightaudit/internal/stats"
)

// CurrentDayOnly is implemented by sources whose upstream exposes no
// historical query. The service skips such sources for past or future
// dates instead of issuing calls that would return the wrong day.
type CurrentDayOnly interface {
	CurrentDayOnly() bool
}

type Config struct {
	Timeout       time.Duration
	MaxConcurrent int
	FetchCacheTTL time.Duration
	RateLimiter   *ratelimit.SourceLimiter
}

func DefaultConfig() Config {
	return Config{
		Timeout:       2 * time.Minute,
		MaxConcurrent: 4,
		FetchCacheTTL: 10 * time.Minute,
	}
}

// AuditService fans a date range out to per-source fetches and collects
// matching flights.
type AuditService struct {
	sources    []sources.Source
	config     Config
	fetchCache *gocache.Cache
	metrics    *metrics.Registry
	log        *zap.SugaredLogger
	now        func() time.Time
}

func New(srcs []sources.Source, config Config, reg *metrics.Registry, log *zap.SugaredLogger) *AuditService {
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if config.FetchCacheTTL == 0 {
		config.FetchCacheTTL = DefaultConfig().FetchCacheTTL
	}
	return &AuditService{
		sources:    srcs,
		config:     config,
		fetchCache: gocache.New(config.FetchCacheTTL, 2*config.FetchCacheTTL),
		metrics:    reg,
		log:        log,
		now:        time.Now,
	}
}

// fetchJob is one (source, date, direction, cargo) combination. Jobs are
// indexed so that parallel results reassemble into canonical order:
// date, then departures before arrivals, then passenger before cargo.
type fetchJob struct {
	index   int
	source  sources.Source
	date    time.Time
	arrival bool
	cargo   bool
}

// Query fetches, converts, and filters flights for the given audit
// query. A transport failure in any source aborts the whole query;
// silently treating it as "no flights" would corrupt statistics.
func (s *AuditService) Query(ctx context.Context, q models.AuditQuery) (*models.QueryResult, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	selected, skipped := s.selectSources(q.Route)
	jobs := s.buildJobs(selected, q)

	results := make([][]models.RawFlight, len(jobs))
	converters := make([]func(models.RawFlight) models.Flight, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrent)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			raw, err := s.fetchOne(gctx, job)
			if err != nil {
				return err
			}
			results[job.index] = raw
			converters[job.index] = job.source.RawToFlight
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, skipped, err
	}

	flights := make([]models.Flight, 0)
	for i, raw := range results {
		for _, r := range raw {
			f := converters[i](r)
			if q.Route.Matches(f) {
				flights = append(flights, f)
			}
		}
	}

	return &models.QueryResult{Flights: flights, Query: q}, skipped, nil
}

// selectSources keeps sources whose supported airports touch the route.
// A fully wildcarded route consults every source.
func (s *AuditService) selectSources(route models.RouteFilter) (selected []sources.Source, skipped []string) {
	airports := route.Airports()
	for _, src := range s.sources {
		if len(airports) == 0 {
			selected = append(selected, src)
			continue
		}
		supported := src.SupportedAirports()
		match := false
		for _, a := range airports {
			if supported[a] {
				match = true
				break
			}
		}
		if match {
			selected = append(selected, src)
		} else {
			skipped = append(skipped, src.Name())
		}
	}
	return selected, skipped
}

func (s *AuditService) buildJobs(selected []sources.Source, q models.AuditQuery) []fetchJob {
	today := truncate(s.now())
	var jobs []fetchJob
	for _, date := range q.Dates.Dates() {
		for _, arrival := range []bool{false, true} {
			cargoPasses := []bool{false}
			if q.Cargo {
				cargoPasses = []bool{false, true}
			}
			for _, cargo := range cargoPasses {
				for _, src := range selected {
					if c, ok := src.(CurrentDayOnly); ok && c.CurrentDayOnly() && !date.Equal(today) {
						if s.log != nil {
							s.log.Debugw("skipping current-day-only source for past date",
								"source", src.Name(), "date", date.Format(models.DateLayout))
						}
						continue
					}
					jobs = append(jobs, fetchJob{
						index:   len(jobs),
						source:  src,
						date:    date,
						arrival: arrival,
						cargo:   cargo,
					})
				}
			}
		}
	}
	return jobs
}

// fetchOne performs one rate-limited, memoized fetch. Repeated queries
// over overlapping date ranges hit the in-process cache instead of the
// upstream API.
func (s *AuditService) fetchOne(ctx context.Context, job fetchJob) ([]models.RawFlight, error) {
	key := fmt.Sprintf("%s|%s|%t|%t", job.source.Name(), job.date.Format(models.DateLayout), job.arrival, job.cargo)
	if cached, found := s.fetchCache.Get(key); found {
		if raw, ok := cached.([]models.RawFlight); ok {
			return raw, nil
		}
	}

	if s.config.RateLimiter != nil {
		if err := s.config.RateLimiter.Wait(ctx, job.source.Name()); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	raw, err := job.source.FetchFlights(ctx, job.date, job.arrival, job.cargo)
	if s.metrics != nil {
		s.metrics.ObserveFetch(job.source.Name(), time.Since(start), err == nil, len(raw))
	}
	if err != nil {
		return nil, err
	}

	s.fetchCache.Set(key, raw, gocache.DefaultExpiration)
	return raw, nil
}

// Statistics aggregates the given flights.
func (s *AuditService) Statistics(flights []models.Flight) stats.FlightStats {
	return stats.Compute(flights)
}

// Deduplicate drops marketing code-share rows, keeping one row per
// physical flight. Rows without code-share information are kept as-is.
func Deduplicate(flights []models.Flight) []models.Flight {
	out := make([]models.Flight, 0, len(flights))
	for _, f := range flights {
		if f.OperatingAirline == "" || f.IsOperating() {
			out = append(out, f)
		}
	}
	return out
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
