package pipeline

import "sales-dashboard/internal/models"

// ComputeMetrics summarizes rows for the metric tiles.
//
// TotalOrders reads the same Order column as TotalRevenue: the source data has a
// single value column that the dashboard reports under both labels.
func ComputeMetrics(rows []models.Row) models.Metrics {
	var m models.Metrics
	if len(rows) == 0 {
		return m
	}

	styles := make(map[string]struct{})
	states := make(map[string]struct{})
	fulfilments := make(map[string]struct{})
	promoted := 0

	for _, row := range rows {
		m.TotalRevenue += row.RevenuePerOrder
		m.TotalOrders += row.Amount
		styles[row.Style] = struct{}{}
		states[row.State] = struct{}{}
		fulfilments[row.Fulfilment] = struct{}{}
		if row.HasPromotion {
			promoted++
		}
	}

	m.UniqueProducts = len(styles)
	m.UniqueStates = len(states)
	m.FulfilmentTypes = len(fulfilments)
	m.PromotionUsage = float64(promoted) * 100 / float64(len(rows))
	return m
}
