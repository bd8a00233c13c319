package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/models"
)

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name string
		rows []models.Row
		want models.Metrics
	}{
		{
			name: "empty table",
			rows: nil,
			want: models.Metrics{},
		},
		{
			name: "unfiltered scenario",
			rows: scenarioRows(),
			want: models.Metrics{
				TotalRevenue:    15,
				TotalOrders:     15,
				UniqueProducts:  2,
				UniqueStates:    2,
				PromotionUsage:  50,
				FulfilmentTypes: 2,
			},
		},
		{
			name: "filtered scenario",
			rows: ApplyFilters(scenarioRows(), Selection{models.ColState: {"NY"}}),
			want: models.Metrics{
				TotalRevenue:    10,
				TotalOrders:     10,
				UniqueProducts:  1,
				UniqueStates:    1,
				PromotionUsage:  0,
				FulfilmentTypes: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ComputeMetrics(tt.rows)); diff != "" {
				t.Errorf("ComputeMetrics() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeMetrics_OrdersMirrorRevenue(t *testing.T) {
	m := ComputeMetrics(sampleRows())

	if m.TotalOrders != m.TotalRevenue {
		t.Errorf("TotalOrders = %v, TotalRevenue = %v; both read the Order column", m.TotalOrders, m.TotalRevenue)
	}
	if m.UniqueProducts != 3 {
		t.Errorf("UniqueProducts = %d, want 3", m.UniqueProducts)
	}
	if m.PromotionUsage != 40 {
		t.Errorf("PromotionUsage = %v, want 40", m.PromotionUsage)
	}
}
