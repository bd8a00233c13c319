package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/models"
)

func TestAggregateBy(t *testing.T) {
	rows := sampleRows()

	tests := []struct {
		name    string
		group   models.Column
		value   models.Column
		reducer Reducer
		want    []models.AggregateRow
	}{
		{
			name: "orders by fulfilment", group: models.ColFulfilment, value: models.ColOrder, reducer: ReduceSum,
			want: []models.AggregateRow{
				{Key: "Merchant", Value: rows[0].Amount + rows[1].Amount + rows[3].Amount},
				{Key: "Amazon", Value: rows[2].Amount + rows[4].Amount},
			},
		},
		{
			name: "average revenue by state", group: models.ColState, value: models.ColRevenue, reducer: ReduceMean,
			want: []models.AggregateRow{
				{Key: "MAHARASHTRA", Value: (rows[0].Amount + rows[2].Amount) / 2},
				{Key: "KARNATAKA", Value: 406},
				{Key: "PUDUCHERRY", Value: 753.33},
				{Key: "TAMIL NADU", Value: 574},
			},
		},
		{
			name: "distinct styles by month", group: models.ColMonth, value: models.ColStyle, reducer: ReduceCountDistinct,
			want: []models.AggregateRow{
				{Key: "April", Value: 2},
				{Key: "May", Value: 2},
			},
		},
		{
			name: "row count by business type", group: models.ColBusinessType, reducer: ReduceCount,
			want: []models.AggregateRow{
				{Key: "false", Value: 4},
				{Key: "true", Value: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AggregateBy(rows, tt.group, tt.value, tt.reducer)
			if err != nil {
				t.Fatalf("AggregateBy() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AggregateBy() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregateBy_SumMatchesTotalOrders(t *testing.T) {
	rows := sampleRows()
	total := ComputeMetrics(rows).TotalOrders

	for _, group := range []models.Column{models.ColFulfilment, models.ColStyle, models.ColDay, models.ColBusinessType} {
		got, err := AggregateBy(rows, group, models.ColOrder, ReduceSum)
		if err != nil {
			t.Fatalf("AggregateBy(%s) error = %v", group, err)
		}
		var sum float64
		for _, g := range got {
			sum += g.Value
		}
		if diff := sum - total; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("group %s: sum of groups = %v, total orders = %v", group, sum, total)
		}
	}
}

func TestAggregateBy_Empty(t *testing.T) {
	got, err := AggregateBy(nil, models.ColState, models.ColRevenue, ReduceMean)
	if err != nil {
		t.Fatalf("AggregateBy() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil result, got %v", got)
	}
}

func TestAggregateBy_InvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		group   models.Column
		value   models.Column
		reducer Reducer
	}{
		{"measure as group", models.ColOrder, models.ColOrder, ReduceSum},
		{"unknown group", "colour", models.ColOrder, ReduceSum},
		{"unknown reducer", models.ColState, models.ColOrder, "median"},
		{"sum of dimension", models.ColState, models.ColStyle, ReduceSum},
		{"mean of unknown", models.ColState, "price", ReduceMean},
		{"distinct of measure", models.ColState, models.ColRevenue, ReduceCountDistinct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AggregateBy(sampleRows(), tt.group, tt.value, tt.reducer); err == nil {
				t.Error("AggregateBy() should reject these arguments")
			}
		})
	}
}

func TestTopN(t *testing.T) {
	var orders []models.Order
	for i, state := range []string{"E", "C", "A", "D", "B"} {
		orders = append(orders, models.Order{State: state, Amount: []float64{10, 30, 50, 20, 40}[i]})
	}
	groups, err := AggregateBy(Derive(orders), models.ColState, models.ColRevenue, ReduceSum)
	if err != nil {
		t.Fatalf("AggregateBy() error = %v", err)
	}

	got := TopN(groups, 3)
	want := []models.AggregateRow{
		{Key: "A", Value: 50},
		{Key: "B", Value: 40},
		{Key: "C", Value: 30},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopN() mismatch (-want +got):\n%s", diff)
	}

	// The input keeps its first-appearance order.
	if groups[0].Key != "E" {
		t.Errorf("TopN() reordered its input, first key = %q", groups[0].Key)
	}
}

func TestTopN_Bounds(t *testing.T) {
	groups := []models.AggregateRow{{Key: "x", Value: 1}, {Key: "y", Value: 2}, {Key: "z", Value: 2}}

	if got := TopN(groups, 10); len(got) != 3 {
		t.Errorf("TopN(10) returned %d rows, want 3", len(got))
	}

	got := TopN(groups, 0)
	want := []models.AggregateRow{{Key: "y", Value: 2}, {Key: "z", Value: 2}, {Key: "x", Value: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopN(0) mismatch (-want +got):\n%s", diff)
	}

	if got := TopN(nil, 3); got == nil || len(got) != 0 {
		t.Errorf("TopN(nil) = %v, want empty non-nil", got)
	}
}
