package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/pipeline"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// dashboardSignals is the part of the datastar store the server reads back.
type dashboardSignals struct {
	Filters     map[string][]string `json:"filters"`
	ViewFilters map[string][]string `json:"viewFilters"`
}

func (s dashboardSignals) request() pipeline.Request {
	sel := make(pipeline.Selection, len(s.Filters))
	for dim, vals := range s.Filters {
		sel[models.Column(dim)] = vals
	}
	return pipeline.Request{Filters: sel, ViewFilters: s.ViewFilters}
}

// readRequest decodes the client's signals. It must run before the stream is opened
// so a bad payload can still be answered with a JSON error.
func (h *SSEHandlers) readRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "Invalid signals"), observability.GetRequestID(r.Context()))
		return pipeline.Request{}, false
	}
	return signals.request(), true
}

func render(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patchComponent(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component, what string) bool {
	html, err := render(ctx, c)
	if err != nil {
		h.logger.Error("render "+what, "error", err)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch "+what, "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) {
	data, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return
	}
	if err := sse.PatchSignals(data); err != nil {
		h.logger.Warn("patch signals", "error", err)
	}
}

func (h *SSEHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	metrics := h.analytics.Metrics(req.Filters)

	sse := datastar.NewSSE(w, r)
	h.patchComponent(r.Context(), sse, templates.MetricTiles(metrics), "metric tiles")

	flush(w)
}

// HandleView recomputes one view, honouring its own narrowing filter.
func (h *SSEHandlers) HandleView(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	name := r.PathValue("view")
	agg, err := h.analytics.Aggregate(name, req)
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(r.Context()))
		return
	}

	sse := datastar.NewSSE(w, r)
	if !h.patchComponent(r.Context(), sse, templates.AggregateTable(agg), "aggregate table") {
		return
	}
	h.patchSignals(sse, map[string]any{
		templates.AggregatesSignal: map[string][]models.AggregateRow{name: agg.Rows},
	})

	flush(w)
}

// HandleOptions re-renders every view's narrowing form from the values left by
// the global filters.
func (h *SSEHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	options := h.analytics.Options(req.Filters)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	for _, v := range h.analytics.Views() {
		filter := templates.ViewFilter(v.Name, v.GroupBy, options[v.GroupBy], req.ViewFilters[v.Name])
		if !h.patchComponent(ctx, sse, filter, "view filter") {
			return
		}
	}

	flush(w)
}

// HandleRefreshAll re-runs the whole dashboard after a global filter changed.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	dashboard, err := h.analytics.Dashboard(req)
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(r.Context()))
		return
	}

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	if !h.patchComponent(ctx, sse, templates.MetricTiles(dashboard.Metrics), "metric tiles") {
		return
	}

	for _, agg := range dashboard.Aggregates {
		filter := templates.ViewFilter(agg.View, agg.GroupBy, dashboard.Options[agg.GroupBy], req.ViewFilters[agg.View])
		if !h.patchComponent(ctx, sse, filter, "view filter") {
			return
		}
		if !h.patchComponent(ctx, sse, templates.AggregateTable(agg), "aggregate table") {
			return
		}
	}

	h.patchSignals(sse, map[string]any{
		templates.AggregatesSignal: templates.AggregateRows(dashboard.Aggregates),
	})

	flush(w)
}
