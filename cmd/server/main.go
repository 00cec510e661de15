package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wkchan/flightaudit/internal/cache"
	"github.com/wkchan/flightaudit/internal/handler"
	"github.com/wkchan/flightaudit/internal/logging"
	"github.com/wkchan/flightaudit/internal/metrics"
	"github.com/wkchan/flightaudit/internal/ratelimit"
	"github.com/wkchan/flightaudit/internal/reference"
	"github.com/wkchan/flightaudit/internal/service"
	"github.com/wkchan/flightaudit/internal/sources"
)

type Config struct {
	Port         string
	AppEnv       string
	CacheEnabled bool
	RedisHost    string
	RedisPort    string
	RedisTTL     time.Duration
	KoreaAPIKey  string
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	if err := logging.Init(cfg.AppEnv); err != nil {
		panic(err)
	}
	defer logging.Close()
	log := logging.L()

	lookup := reference.NewLookup(log)
	reg := metrics.NewRegistry()

	srcs := []sources.Source{
		sources.NewHKAirportSource(lookup, log),
		sources.NewBTSSource(lookup, log),
	}
	if korea, err := sources.NewKoreaAirportSource(cfg.KoreaAPIKey, lookup, log); err != nil {
		log.Warnw("korea source disabled", "error", err)
	} else {
		srcs = append(srcs, korea)
	}
	log.Infow("initialized flight sources", "count", len(srcs))

	rateLimiter := ratelimit.NewSourceLimiterWithDefaults()
	rateLimiter.SetSourceLimit("hk_airport", 3, 5)
	rateLimiter.SetSourceLimit("korea_airport", 2, 4)
	rateLimiter.SetSourceLimit("us_bts", 1, 2)

	svcConfig := service.DefaultConfig()
	svcConfig.RateLimiter = rateLimiter
	svc := service.New(srcs, svcConfig, reg, log)

	var queryCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host: cfg.RedisHost,
			Port: cfg.RedisPort,
			TTL:  cfg.RedisTTL,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		queryCache = redisCache
		log.Infow("redis cache enabled", "host", cfg.RedisHost, "port", cfg.RedisPort, "ttl", cfg.RedisTTL)
	} else {
		queryCache = cache.NewNoOpCache()
		log.Info("cache disabled")
	}
	defer queryCache.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	queryHandler := handler.NewQueryHandler(svc, queryCache, reg)

	api := e.Group("/api/v1")
	api.POST("/flights/query", queryHandler.Query)
	e.GET("/health", handler.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	log.Infow("starting flight audit server", "port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalw("server exited", "error", err)
	}
}

func loadConfig() Config {
	return Config{
		Port:         getEnv("PORT", "8080"),
		AppEnv:       getEnv("APP_ENV", "development"),
		CacheEnabled: getEnvBool("CACHE_ENABLED", false),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisTTL:     getEnvDuration("REDIS_TTL", 10*time.Minute),
		KoreaAPIKey:  os.Getenv("KOREA_DATA_API_KEY"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return value == "yes"
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
