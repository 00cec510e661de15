// Package handler contains the HTTP handlers of the audit API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wkchan/flightaudit/internal/cache"
	"github.com/wkchan/flightaudit/internal/metrics"
	"github.com/wkchan/flightaudit/internal/models"
	"github.com/wkchan/flightaudit/internal/service"
	"github.com/wkchan/flightaudit/internal/sources"
)

type QueryHandler struct {
	service *service.AuditService
	cache   cache.Cache
	metrics *metrics.Registry
}

func NewQueryHandler(svc *service.AuditService, c cache.Cache, reg *metrics.Registry) *QueryHandler {
	return &QueryHandler{service: svc, cache: c, metrics: reg}
}

// Query serves POST /api/v1/flights/query.
func (h *QueryHandler) Query(c echo.Context) error {
	startTime := time.Now()
	ctx := c.Request().Context()

	var req models.QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	query, err := req.ToQuery(time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if h.metrics != nil {
		h.metrics.QueriesTotal.Inc()
	}

	if cached, found := h.cache.Get(ctx, query); found {
		if h.metrics != nil {
			h.metrics.CacheHitsTotal.Inc()
		}
		return c.JSON(http.StatusOK, h.buildResponse(req, query, cached, nil, startTime, true))
	}

	result, skipped, err := h.service.Query(ctx, query)
	if err != nil {
		status := http.StatusInternalServerError
		var srcErr *sources.SourceError
		if errors.As(err, &srcErr) {
			status = http.StatusBadGateway
		}
		return c.JSON(status, models.ErrorResponse{
			Error:   "query_error",
			Message: "Failed to fetch flights: " + err.Error(),
			Code:    status,
		})
	}

	_ = h.cache.Set(ctx, query, result)
	return c.JSON(http.StatusOK, h.buildResponse(req, query, result, skipped, startTime, false))
}

func (h *QueryHandler) buildResponse(req models.QueryRequest, query models.AuditQuery, result *models.QueryResult, skipped []string, startTime time.Time, cacheHit bool) models.QueryResponse {
	flights := result.Flights
	if req.Deduplicate {
		flights = service.Deduplicate(flights)
	}

	resp := models.QueryResponse{
		Query: query,
		Metadata: models.QueryMetadata{
			TotalResults:   len(flights),
			SourcesSkipped: skipped,
			QueryTimeMs:    time.Since(startTime).Milliseconds(),
			CacheHit:       cacheHit,
		},
		Flights: flights,
	}
	if req.Stats {
		resp.Stats = h.service.Statistics(flights)
	}
	return resp
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
