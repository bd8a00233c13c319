package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"sales-dashboard/internal/models"
)

// View is one chart of the dashboard: which column to group by, what to reduce
// and how. Views are data, so adding a chart never means writing a new pipeline.
type View struct {
	Name    string        `yaml:"name" json:"name"`
	Title   string        `yaml:"title" json:"title"`
	Chart   string        `yaml:"chart" json:"chart"`
	GroupBy models.Column `yaml:"group_by" json:"group_by"`
	Value   models.Column `yaml:"value" json:"value"`
	Reducer Reducer       `yaml:"reducer" json:"reducer"`
	Top     int           `yaml:"top,omitempty" json:"top,omitempty"`
}

// DefaultViews returns the stock chart table. topStates sets how many states the
// ranking view keeps.
func DefaultViews(topStates int) []View {
	return []View{
		{Name: "ordersByFulfilment", Title: "Orders by Fulfilment Type", Chart: "pie",
			GroupBy: models.ColFulfilment, Value: models.ColOrder, Reducer: ReduceSum},
		{Name: "revenueByStyle", Title: "Revenue by Product Style", Chart: "bar",
			GroupBy: models.ColStyle, Value: models.ColRevenue, Reducer: ReduceSum},
		{Name: "ordersByDay", Title: "Orders by Day", Chart: "line",
			GroupBy: models.ColDay, Value: models.ColOrder, Reducer: ReduceSum},
		{Name: "avgRevenueByState", Title: "Average Revenue by State", Chart: "bar",
			GroupBy: models.ColState, Value: models.ColRevenue, Reducer: ReduceMean},
		{Name: "ordersByBusinessType", Title: "B2B vs Consumer Orders", Chart: "pie",
			GroupBy: models.ColBusinessType, Value: models.ColOrder, Reducer: ReduceSum},
		{Name: "topStatesByRevenue", Title: fmt.Sprintf("Top %d States by Revenue", topStates), Chart: "bar",
			GroupBy: models.ColState, Value: models.ColRevenue, Reducer: ReduceSum, Top: topStates},
	}
}

// viewName restricts names to characters that are safe in element ids, URL paths
// and datastar expressions.
var viewName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func ValidateView(v View) error {
	if v.Name == "" {
		return errors.New("view name cannot be empty")
	}
	if !viewName.MatchString(v.Name) {
		return fmt.Errorf("view name %q may only contain letters, digits, '_' and '-'", v.Name)
	}
	if v.Top < 0 {
		return fmt.Errorf("view %s: top must not be negative, got %d", v.Name, v.Top)
	}
	if err := checkAggregate(v.GroupBy, v.Value, v.Reducer); err != nil {
		return fmt.Errorf("view %s: %w", v.Name, err)
	}
	return nil
}

type viewsFile struct {
	Views []View `yaml:"views"`
}

// LoadViews decodes a YAML views table and validates every entry.
func LoadViews(r io.Reader) ([]View, error) {
	var f viewsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode views: %w", err)
	}
	if err := ValidateViews(f.Views); err != nil {
		return nil, err
	}
	return f.Views, nil
}

// ValidateViews checks a whole views table: at least one view, every view valid,
// names unique.
func ValidateViews(views []View) error {
	if len(views) == 0 {
		return errors.New("at least one view is required")
	}

	seen := make(map[string]bool, len(views))
	for _, v := range views {
		if err := ValidateView(v); err != nil {
			return err
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate view %q", v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// OptionColumns lists the columns widgets need values for: every filter dimension,
// then any view group column not already among them.
func OptionColumns(views []View) []models.Column {
	cols := slices.Clone(models.FilterDimensions)
	for _, v := range views {
		if !slices.Contains(cols, v.GroupBy) {
			cols = append(cols, v.GroupBy)
		}
	}
	return cols
}

// LoadViewsFile reads the views table at path. An empty path selects DefaultViews(topN).
func LoadViewsFile(path string, topN int) ([]View, error) {
	if path == "" {
		return DefaultViews(topN), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open views file: %w", err)
	}
	defer f.Close()

	views, err := LoadViews(f)
	if err != nil {
		return nil, fmt.Errorf("load views from %s: %w", path, err)
	}
	return views, nil
}

// FindView returns the view called name.
func FindView(views []View, name string) (View, bool) {
	for _, v := range views {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}
