package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/pipeline"
	"sales-dashboard/internal/services"
)

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// requestFromQuery builds a pipeline request from ?dim=v1,v2 and ?view.name=v pairs.
func requestFromQuery(r *http.Request) pipeline.Request {
	q := r.URL.Query()
	return pipeline.Request{
		Filters:     pipeline.ParseSelection(q),
		ViewFilters: pipeline.ParseViewFilters(q),
	}
}

// appError maps analytics failures onto HTTP errors.
func appError(err error) *errors.AppError {
	if stderrors.Is(err, services.ErrUnknownView) {
		return errors.NotFoundWrap(err, "View not found")
	}
	return errors.InternalWrap(err, "Failed to compute view")
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	sel := pipeline.ParseSelection(r.URL.Query())

	errors.WriteSuccessWithHeaders(w, h.analytics.Metrics(sel), cacheHeaders)
}

func (h *APIHandlers) HandleAggregates(w http.ResponseWriter, r *http.Request) {
	aggregates, err := h.analytics.Aggregates(requestFromQuery(r))
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccessWithHeaders(w, aggregates, cacheHeaders)
}

func (h *APIHandlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("view")
	if name == "" {
		errors.WriteError(w, h.logger, errors.BadRequest("View name is required"), observability.GetRequestID(r.Context()))
		return
	}

	agg, err := h.analytics.Aggregate(name, requestFromQuery(r))
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccessWithHeaders(w, agg, cacheHeaders)
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	sel := pipeline.ParseSelection(r.URL.Query())

	errors.WriteSuccessWithHeaders(w, h.analytics.Options(sel), cacheHeaders)
}

func (h *APIHandlers) HandleViews(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Views(), cacheHeaders)
}

// HandleHealth reports unavailable until an order table has been loaded.
func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !h.analytics.Loaded() {
		errors.WriteError(w, h.logger, errors.ServiceUnavailable("No order data loaded"), observability.GetRequestID(r.Context()))
		return
	}

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
