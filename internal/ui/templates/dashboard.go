package templates

import (
	"encoding/json"
	"fmt"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/pipeline"
	"sales-dashboard/internal/ui/format"
)

//go:generate templ generate

const (
	MetricsID = "metrics"
	// MaxTableRows caps the rows rendered per aggregate table.
	MaxTableRows = 50
	// AggregatesSignal holds the latest rows per view for chart code. The leading
	// underscore keeps it client-local so it is never sent back on @get.
	AggregatesSignal = "_aggregates"
)

var dimensionLabels = map[models.Column]string{
	models.ColStyle:        "Product Style",
	models.ColCategory:     "Category",
	models.ColState:        "Shipping State",
	models.ColFulfilment:   "Fulfilment Type",
	models.ColBusinessType: "Business Type",
	models.ColDay:          "Day",
	models.ColWeek:         "Week",
	models.ColMonth:        "Month",
	models.ColWeekend:      "Weekend",
	models.ColPromotion:    "Has Promotion",
	models.ColOrder:        "Orders",
	models.ColRevenue:      "Revenue per Order",
}

// DimensionLabel returns the widget label for col.
func DimensionLabel(col models.Column) string {
	if label, ok := dimensionLabels[col]; ok {
		return label
	}
	return string(col)
}

// ViewContentID is the element id an aggregate table of view is patched into.
func ViewContentID(view string) string {
	return "view-" + view + "-content"
}

// ViewFilterID is the element id of the narrowing form of view.
func ViewFilterID(view string) string {
	return "view-" + view + "-filter"
}

func viewRefreshAction(view string) string {
	return "@get('/sse/views/" + view + "')"
}

// Page is the data the dashboard shell is rendered from.
type Page struct {
	Title     string
	Options   map[models.Column][]string
	Views     []pipeline.View
	Dashboard models.Dashboard
}

// AggregateRows indexes the rows of each aggregate by view name.
func AggregateRows(aggs []models.Aggregate) map[string][]models.AggregateRow {
	rows := make(map[string][]models.AggregateRow, len(aggs))
	for _, agg := range aggs {
		rows[agg.View] = agg.Rows
	}
	return rows
}

// initialSignals seeds the datastar store: an empty selection per dimension and view,
// plus the first computed aggregates for chart code to read.
func initialSignals(page Page) (string, error) {
	filters := make(map[models.Column][]string, len(models.FilterDimensions))
	for _, col := range models.FilterDimensions {
		filters[col] = []string{}
	}
	viewFilters := make(map[string][]string, len(page.Views))
	for _, v := range page.Views {
		viewFilters[v.Name] = []string{}
	}

	b, err := json.Marshal(map[string]any{
		"filters":        filters,
		"viewFilters":    viewFilters,
		AggregatesSignal: AggregateRows(page.Dashboard.Aggregates),
	})
	if err != nil {
		return "", fmt.Errorf("encode signals: %w", err)
	}
	return string(b), nil
}

// viewAggregate finds the computed aggregate of v, or an empty one when the
// dashboard has none for it yet.
func viewAggregate(d models.Dashboard, v pipeline.View) models.Aggregate {
	for _, agg := range d.Aggregates {
		if agg.View == v.Name {
			return agg
		}
	}
	return models.Aggregate{View: v.Name, GroupBy: v.GroupBy, Value: v.Value}
}

type tile struct {
	label string
	value string
}

func metricTiles(m models.Metrics) []tile {
	return []tile{
		{"Total Revenue", format.Currency(m.TotalRevenue)},
		{"Total Orders", format.Count(m.TotalOrders)},
		{"Unique Products", format.Int(m.UniqueProducts)},
		{"States Covered", format.Int(m.UniqueStates)},
		{"Promotion Usage (%)", format.Percent(m.PromotionUsage)},
		{"Fulfilment Types", format.Int(m.FulfilmentTypes)},
	}
}

func tableRows(agg models.Aggregate) []models.AggregateRow {
	if len(agg.Rows) > MaxTableRows {
		return agg.Rows[:MaxTableRows]
	}
	return agg.Rows
}
