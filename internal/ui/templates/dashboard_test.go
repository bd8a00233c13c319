package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/pipeline"
)

func renderString(t *testing.T, fn func(*strings.Builder) error) string {
	t.Helper()
	var b strings.Builder
	if err := fn(&b); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return b.String()
}

func TestMetricTiles(t *testing.T) {
	m := models.Metrics{
		TotalRevenue:    15,
		TotalOrders:     15,
		UniqueProducts:  2,
		UniqueStates:    2,
		PromotionUsage:  50,
		FulfilmentTypes: 2,
	}

	html := renderString(t, func(b *strings.Builder) error {
		return MetricTiles(m).Render(context.Background(), b)
	})

	expected := []string{
		`id="metrics"`,
		"Total Revenue", "$15.00",
		"Total Orders", "15",
		"Unique Products",
		"States Covered",
		"Promotion Usage (%)", "50.00%",
		"Fulfilment Types",
	}
	for _, s := range expected {
		if !strings.Contains(html, s) {
			t.Errorf("expected tiles to contain %q", s)
		}
	}
}

func TestAggregateTable(t *testing.T) {
	agg := models.Aggregate{
		View:    "ordersByDay",
		GroupBy: models.ColDay,
		Value:   models.ColOrder,
		Rows:    []models.AggregateRow{{Key: "Monday", Value: 12}, {Key: "<script>", Value: 1}},
	}

	html := renderString(t, func(b *strings.Builder) error {
		return AggregateTable(agg).Render(context.Background(), b)
	})

	for _, s := range []string{`id="view-ordersByDay-content"`, "<th>Day</th>", "<th>Orders</th>", "Monday", "12.00", "&lt;script&gt;"} {
		if !strings.Contains(html, s) {
			t.Errorf("expected table to contain %q", s)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("group keys must be escaped")
	}
}

func TestAggregateTable_RowLimit(t *testing.T) {
	agg := models.Aggregate{View: "revenueByStyle", GroupBy: models.ColStyle, Value: models.ColRevenue}
	for i := 0; i < 75; i++ {
		agg.Rows = append(agg.Rows, models.AggregateRow{Key: fmt.Sprintf("S%d", i), Value: float64(i)})
	}

	html := renderString(t, func(b *strings.Builder) error {
		return AggregateTable(agg).Render(context.Background(), b)
	})

	rowCount := strings.Count(html, "<tr>") - 1 // header row
	if rowCount != MaxTableRows {
		t.Errorf("expected %d rows, got %d", MaxTableRows, rowCount)
	}
}

func TestAggregateTable_Empty(t *testing.T) {
	html := renderString(t, func(b *strings.Builder) error {
		return AggregateTable(models.Aggregate{View: "x"}).Render(context.Background(), b)
	})
	if !strings.Contains(html, "<table") || !strings.Contains(html, "</table>") {
		t.Error("should produce valid table HTML for an empty aggregate")
	}
}

func TestDashboard(t *testing.T) {
	views := pipeline.DefaultViews(10)
	page := Page{
		Title: "Amazon Sales Dashboard",
		Options: map[models.Column][]string{
			models.ColState: {"NY", "CA"},
			models.ColDay:   {"Monday"},
		},
		Views: views,
		Dashboard: models.Dashboard{
			Metrics:    models.Metrics{TotalRevenue: 10},
			Aggregates: []models.Aggregate{{View: "ordersByDay", GroupBy: models.ColDay, Value: models.ColOrder, Rows: []models.AggregateRow{{Key: "Monday", Value: 10}}}},
		},
	}

	html := renderString(t, func(b *strings.Builder) error {
		return Dashboard(page).Render(context.Background(), b)
	})

	expected := []string{
		"<title>Amazon Sales Dashboard</title>",
		"Key Metrics",
		"Data Visualizations",
		"Shipping State",
		`<option value="NY">NY</option>`,
		`data-bind="filters.state"`,
		`data-bind="viewFilters.ordersByDay"`,
		"@get('/sse/refresh-all')",
		"data-signals=",
		"&#34;" + AggregatesSignal + "&#34;",
		"$10.00",
	}
	for _, v := range views {
		expected = append(expected, v.Title, ViewContentID(v.Name), `id="`+ViewFilterID(v.Name)+`"`)
	}
	for _, s := range expected {
		if !strings.Contains(html, s) {
			t.Errorf("dashboard should contain %q", s)
		}
	}
	if strings.Contains(html, "&#34;aggregates&#34;") {
		t.Error("aggregates must be seeded as a client-local signal")
	}
}

func TestViewFilter(t *testing.T) {
	html := renderString(t, func(b *strings.Builder) error {
		return ViewFilter("ordersByState", models.ColState, []string{"NY", "CA"}, []string{"CA", "TX"}).Render(context.Background(), b)
	})

	for _, s := range []string{
		`<form id="view-ordersByState-filter"`,
		"@get(&#39;/sse/views/ordersByState&#39;)",
		`data-bind="viewFilters.ordersByState"`,
		`<option value="All">All</option>`,
		`<option value="NY">NY</option>`,
		`<option value="CA" selected>CA</option>`,
	} {
		if !strings.Contains(html, s) {
			t.Errorf("view filter should contain %q, got %s", s, html)
		}
	}
	if strings.Contains(html, "TX") {
		t.Error("selected values outside the options must not be rendered")
	}
}

func TestInitialSignals(t *testing.T) {
	page := Page{
		Views: pipeline.DefaultViews(5),
		Dashboard: models.Dashboard{
			Aggregates: []models.Aggregate{{View: "ordersByDay", Rows: []models.AggregateRow{{Key: "Monday", Value: 2}}}},
		},
	}

	raw, err := initialSignals(page)
	if err != nil {
		t.Fatalf("initialSignals() error = %v", err)
	}

	var signals struct {
		Filters     map[string][]string              `json:"filters"`
		ViewFilters map[string][]string              `json:"viewFilters"`
		Aggregates  map[string][]models.AggregateRow `json:"_aggregates"`
		Leaked      map[string][]models.AggregateRow `json:"aggregates"`
	}
	if err := json.Unmarshal([]byte(raw), &signals); err != nil {
		t.Fatalf("signals are not JSON: %v", err)
	}
	if len(signals.Filters) != len(models.FilterDimensions) {
		t.Errorf("expected a filter per dimension, got %d", len(signals.Filters))
	}
	if len(signals.ViewFilters) != len(page.Views) {
		t.Errorf("expected a view filter per view, got %d", len(signals.ViewFilters))
	}
	if diff := cmp.Diff(page.Dashboard.Aggregates[0].Rows, signals.Aggregates["ordersByDay"]); diff != "" {
		t.Errorf("aggregates mismatch (-want +got):\n%s", diff)
	}
	if signals.Leaked != nil {
		t.Error("aggregates must only be sent under the local signal name")
	}
}

func TestDimensionLabel(t *testing.T) {
	if got := DimensionLabel(models.ColBusinessType); got != "Business Type" {
		t.Errorf("DimensionLabel(b2b) = %q", got)
	}
	if got := DimensionLabel("colour"); got != "colour" {
		t.Errorf("unknown columns should fall back to their name, got %q", got)
	}
}
