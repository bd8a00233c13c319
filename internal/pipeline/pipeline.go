// Package pipeline turns an order table and a filter selection into the metrics
// and grouped tables a dashboard shows. Every function is pure: the same rows and
// selection always give the same result, and inputs are never modified.
package pipeline

import "sales-dashboard/internal/models"

// Request is one refresh of the dashboard.
type Request struct {
	Filters Selection
	// ViewFilters narrows a single view, keyed by view name, to values of that
	// view's group column. Applied after Filters.
	ViewFilters map[string][]string
}

// Aggregate computes one view over rows that already passed the global filters.
func Aggregate(rows []models.Row, view View, narrow []string) (models.Aggregate, error) {
	if len(narrow) > 0 {
		rows = ApplyFilters(rows, Selection{view.GroupBy: narrow})
	}

	groups, err := AggregateBy(rows, view.GroupBy, view.Value, view.Reducer)
	if err != nil {
		return models.Aggregate{}, err
	}
	if view.Top > 0 {
		groups = TopN(groups, view.Top)
	}

	return models.Aggregate{
		View:    view.Name,
		Title:   view.Title,
		Chart:   view.Chart,
		GroupBy: view.GroupBy,
		Value:   view.Value,
		Reducer: string(view.Reducer),
		Rows:    groups,
	}, nil
}

// Run recomputes the whole dashboard from scratch.
func Run(rows []models.Row, req Request, views []View) (models.Dashboard, error) {
	filtered := ApplyFilters(rows, req.Filters)

	aggregates := make([]models.Aggregate, 0, len(views))
	for _, view := range views {
		agg, err := Aggregate(filtered, view, req.ViewFilters[view.Name])
		if err != nil {
			return models.Dashboard{}, err
		}
		aggregates = append(aggregates, agg)
	}

	return models.Dashboard{
		Metrics:    ComputeMetrics(filtered),
		Aggregates: aggregates,
		Options:    Options(filtered, OptionColumns(views)),
		RowCount:   len(filtered),
	}, nil
}
