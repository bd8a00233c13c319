package pipeline

import (
	"fmt"
	"slices"

	"sales-dashboard/internal/models"
)

type Reducer string

const (
	ReduceSum           Reducer = "sum"
	ReduceMean          Reducer = "mean"
	ReduceCountDistinct Reducer = "count_distinct"
	ReduceCount         Reducer = "count"
)

func (r Reducer) Valid() bool {
	switch r {
	case ReduceSum, ReduceMean, ReduceCountDistinct, ReduceCount:
		return true
	default:
		return false
	}
}

// numeric reports whether the reducer needs a measure as its value column.
func (r Reducer) numeric() bool {
	return r == ReduceSum || r == ReduceMean
}

type partition struct {
	key      string
	sum      float64
	count    int
	distinct map[string]struct{}
}

// AggregateBy partitions rows by group and reduces value within each partition.
// Groups appear in first-appearance order; keys with no rows are absent.
func AggregateBy(rows []models.Row, group, value models.Column, reducer Reducer) ([]models.AggregateRow, error) {
	if err := checkAggregate(group, value, reducer); err != nil {
		return nil, err
	}

	index := make(map[string]*partition)
	order := make([]*partition, 0)

	for _, row := range rows {
		key, _ := row.Text(group)
		p, ok := index[key]
		if !ok {
			p = &partition{key: key}
			if reducer == ReduceCountDistinct {
				p.distinct = make(map[string]struct{})
			}
			index[key] = p
			order = append(order, p)
		}

		p.count++
		switch reducer {
		case ReduceSum, ReduceMean:
			v, _ := row.Number(value)
			p.sum += v
		case ReduceCountDistinct:
			v, _ := row.Text(value)
			p.distinct[v] = struct{}{}
		}
	}

	out := make([]models.AggregateRow, 0, len(order))
	for _, p := range order {
		out = append(out, models.AggregateRow{Key: p.key, Value: p.reduce(reducer)})
	}
	return out, nil
}

func (p *partition) reduce(reducer Reducer) float64 {
	switch reducer {
	case ReduceSum:
		return p.sum
	case ReduceMean:
		return p.sum / float64(p.count)
	case ReduceCountDistinct:
		return float64(len(p.distinct))
	default:
		return float64(p.count)
	}
}

func checkAggregate(group, value models.Column, reducer Reducer) error {
	if !models.IsDimension(group) {
		return fmt.Errorf("group column %q is not a dimension", group)
	}
	if !reducer.Valid() {
		return fmt.Errorf("unknown reducer %q", reducer)
	}
	if reducer.numeric() && !models.IsMeasure(value) {
		return fmt.Errorf("reducer %s needs a numeric column, got %q", reducer, value)
	}
	if reducer == ReduceCountDistinct && !models.IsDimension(value) {
		return fmt.Errorf("reducer %s needs a dimension column, got %q", reducer, value)
	}
	return nil
}

// TopN returns the n largest groups by value, largest first. Ties keep their
// original order. n <= 0 returns every group sorted.
func TopN(rows []models.AggregateRow, n int) []models.AggregateRow {
	sorted := append(make([]models.AggregateRow, 0, len(rows)), rows...)
	slices.SortStableFunc(sorted, func(a, b models.AggregateRow) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		default:
			return 0
		}
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
