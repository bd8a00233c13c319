package pipeline

import "sales-dashboard/internal/models"

// ApplyFilters returns the rows passing every restricted dimension of sel.
// Dimensions are AND-combined, values within a dimension are OR-combined and
// matched exactly. The result is a new slice; rows is never modified.
func ApplyFilters(rows []models.Row, sel Selection) []models.Row {
	sets := sel.active()

	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		if matches(row, sets) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row models.Row, sets map[models.Column]map[string]struct{}) bool {
	for col, set := range sets {
		val, ok := row.Text(col)
		if !ok {
			return false
		}
		if _, hit := set[val]; !hit {
			return false
		}
	}
	return true
}

// DistinctValues returns the values of col in first-appearance order.
func DistinctValues(rows []models.Row, col models.Column) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, row := range rows {
		val, ok := row.Text(col)
		if !ok {
			return out
		}
		if _, dup := seen[val]; dup {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

// Options enumerates the distinct values of each column, for building selection widgets.
func Options(rows []models.Row, cols []models.Column) map[models.Column][]string {
	out := make(map[models.Column][]string, len(cols))
	for _, col := range cols {
		if models.IsDimension(col) {
			out[col] = DistinctValues(rows, col)
		}
	}
	return out
}
