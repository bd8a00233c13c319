package pipeline

import "sales-dashboard/internal/models"

// Derive copies orders into rows carrying the derived columns.
// The input slice is not modified.
func Derive(orders []models.Order) []models.Row {
	rows := make([]models.Row, len(orders))
	for i, o := range orders {
		rows[i] = models.Row{
			Order:           o,
			RevenuePerOrder: o.Amount,
			IsWeekend:       isWeekend(o.Day),
			HasPromotion:    o.PromotionIDs != models.NoPromotion,
		}
	}
	return rows
}

func isWeekend(day string) bool {
	return day == "Saturday" || day == "Sunday"
}
