package models

import "strconv"

// NoPromotion marks an order placed without any promotion.
const NoPromotion = "No Promotion"

// Column names a field of a Row. Dimensions are read with Text, measures with Number.
type Column string

const (
	ColOrderID      Column = "orderId"
	ColStyle        Column = "style"
	ColCategory     Column = "category"
	ColState        Column = "state"
	ColFulfilment   Column = "fulfilment"
	ColBusinessType Column = "b2b"
	ColDay          Column = "day"
	ColWeek         Column = "week"
	ColMonth        Column = "month"
	ColWeekend      Column = "weekend"
	ColPromotion    Column = "promotion"

	ColOrder   Column = "order"
	ColRevenue Column = "revenue"
)

// Order is one row of the source table.
type Order struct {
	OrderID      string
	Amount       float64
	Style        string
	Category     string
	State        string
	Fulfilment   string
	B2B          bool
	Day          string
	Week         int
	Month        string
	PromotionIDs string
}

// Row is an Order plus its derived columns.
type Row struct {
	Order
	RevenuePerOrder float64
	IsWeekend       bool
	HasPromotion    bool
}

// Text returns the categorical value of col. ok is false when col is not a dimension.
func (r Row) Text(col Column) (string, bool) {
	switch col {
	case ColOrderID:
		return r.OrderID, true
	case ColStyle:
		return r.Style, true
	case ColCategory:
		return r.Category, true
	case ColState:
		return r.State, true
	case ColFulfilment:
		return r.Fulfilment, true
	case ColBusinessType:
		return strconv.FormatBool(r.B2B), true
	case ColDay:
		return r.Day, true
	case ColWeek:
		return strconv.Itoa(r.Week), true
	case ColMonth:
		return r.Month, true
	case ColWeekend:
		return strconv.FormatBool(r.IsWeekend), true
	case ColPromotion:
		return strconv.FormatBool(r.HasPromotion), true
	default:
		return "", false
	}
}

// Number returns the numeric value of col. ok is false when col is not a measure.
func (r Row) Number(col Column) (float64, bool) {
	switch col {
	case ColOrder:
		return r.Amount, true
	case ColRevenue:
		return r.RevenuePerOrder, true
	case ColWeek:
		return float64(r.Week), true
	default:
		return 0, false
	}
}

// IsDimension reports whether col can be used to filter or group rows.
func IsDimension(col Column) bool {
	_, ok := Row{}.Text(col)
	return ok
}

// IsMeasure reports whether col can be summed or averaged.
func IsMeasure(col Column) bool {
	_, ok := Row{}.Number(col)
	return ok
}

// FilterDimensions lists the dimensions exposed as filter widgets, in display order.
var FilterDimensions = []Column{
	ColStyle,
	ColCategory,
	ColState,
	ColFulfilment,
	ColBusinessType,
	ColDay,
	ColWeek,
	ColMonth,
	ColWeekend,
	ColPromotion,
}

type Metrics struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalOrders     float64 `json:"total_orders"`
	UniqueProducts  int     `json:"unique_products"`
	UniqueStates    int     `json:"unique_states"`
	PromotionUsage  float64 `json:"promotion_usage_pct"`
	FulfilmentTypes int     `json:"fulfilment_types"`
}

// AggregateRow is one group of a grouped table. The field names are shared by every view.
type AggregateRow struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

type Aggregate struct {
	View    string         `json:"view"`
	Title   string         `json:"title"`
	Chart   string         `json:"chart"`
	GroupBy Column         `json:"group_by"`
	Value   Column         `json:"value"`
	Reducer string         `json:"reducer"`
	Rows    []AggregateRow `json:"rows"`
}

// Dashboard is everything one refresh of the page shows.
type Dashboard struct {
	Metrics    Metrics             `json:"metrics"`
	Aggregates []Aggregate         `json:"aggregates"`
	Options    map[Column][]string `json:"options"`
	RowCount   int                 `json:"row_count"`
}
