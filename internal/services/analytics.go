package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/pipeline"
)

const (
	batchSize      = 10000
	maxWorkers     = 10
	defaultTopN    = 10
	noSourceLoaded = "none"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrMalformedRow  = errors.New("malformed row")
	ErrNoRecords     = errors.New("no valid records found")
	ErrUnknownView   = errors.New("unknown view")
)

// Source CSV headers. Matching ignores case and surrounding space.
const (
	headerOrderID    = "Order ID"
	headerOrder      = "Order"
	headerStyle      = "Style"
	headerCategory   = "Category"
	headerState      = "ship-state"
	headerFulfilment = "Fulfilment"
	headerB2B        = "B2B"
	headerDay        = "Day"
	headerWeek       = "Week"
	headerMonth      = "Month"
	headerPromotion  = "promotion-ids"
)

var requiredHeaders = []string{
	headerOrderID, headerOrder, headerStyle, headerCategory, headerState, headerFulfilment,
	headerB2B, headerDay, headerWeek, headerMonth, headerPromotion,
}

// Table is a loaded order table with its derived rows. It is never modified once published.
type Table struct {
	Orders   []models.Order
	Rows     []models.Row
	Source   string
	LoadedAt time.Time
}

// Analytics owns the shared order table and answers dashboard queries against it.
// The table is replaced only by SetData or a load; queries read it concurrently.
type Analytics struct {
	mu               sync.RWMutex
	table            *Table
	views            []pipeline.View
	recordsProcessed atomic.Int64
	logger           *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		table:  &Table{Source: noSourceLoaded},
		views:  pipeline.DefaultViews(defaultTopN),
		logger: slog.Default(),
	}
}

// SetViews replaces the chart table. The table is rejected as a whole when it is
// empty, has an invalid view or repeats a name.
func (a *Analytics) SetViews(views []pipeline.View) error {
	if err := pipeline.ValidateViews(views); err != nil {
		return err
	}

	a.mu.Lock()
	a.views = views
	a.mu.Unlock()
	return nil
}

func (a *Analytics) SetData(orders []models.Order) {
	a.publish(&Table{
		Orders:   orders,
		Rows:     pipeline.Derive(orders),
		Source:   "memory",
		LoadedAt: time.Now(),
	})
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return a.Load(ctx, filename, file)
}

// Load parses a CSV order table from r and publishes it. name identifies the source in logs.
func (a *Analytics) Load(ctx context.Context, name string, r io.Reader) error {
	start := time.Now()
	a.logger.Info("processing CSV file", "source", name)

	orders, err := readOrders(ctx, r)
	if err != nil {
		return fmt.Errorf("process csv: %w", err)
	}

	a.publish(&Table{
		Orders:   orders,
		Rows:     pipeline.Derive(orders),
		Source:   name,
		LoadedAt: time.Now(),
	})

	duration := time.Since(start)
	count := a.recordsProcessed.Load()
	a.logger.Info("csv processing complete",
		"records", count,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))

	return nil
}

func (a *Analytics) publish(t *Table) {
	a.mu.Lock()
	a.table = t
	a.mu.Unlock()
	a.recordsProcessed.Store(int64(len(t.Orders)))
}

func readOrders(ctx context.Context, r io.Reader) ([]models.Order, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	batch := make([][]string, 0, batchSize)
	// Line numbers count the header as line 1.
	firstLine := 2

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			parsed, err := parseBatch(ctx, batch, cols, firstLine)
			if err != nil {
				return nil, err
			}
			orders = append(orders, parsed...)
			firstLine += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		parsed, err := parseBatch(ctx, batch, cols, firstLine)
		if err != nil {
			return nil, err
		}
		orders = append(orders, parsed...)
	}

	if len(orders) == 0 {
		return nil, ErrNoRecords
	}
	return orders, nil
}

// parseBatch converts records concurrently. Output order matches input order.
func parseBatch(ctx context.Context, batch [][]string, cols columnIndex, firstLine int) ([]models.Order, error) {
	out := make([]models.Order, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, record := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			order, err := cols.parse(record)
			if err != nil {
				return fmt.Errorf("line %d: %w", firstLine+i, err)
			}
			out[i] = order
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type columnIndex map[string]int

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func resolveColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		idx[normalizeHeader(h)] = i
	}

	var missing []string
	for _, name := range requiredHeaders {
		if _, ok := idx[normalizeHeader(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) field(record []string, name string) string {
	return strings.TrimSpace(record[c[normalizeHeader(name)]])
}

func (c columnIndex) parse(record []string) (models.Order, error) {
	amount, err := strconv.ParseFloat(c.field(record, headerOrder), 64)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %s: %v", ErrMalformedRow, headerOrder, err)
	}

	b2b, err := strconv.ParseBool(c.field(record, headerB2B))
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %s: %v", ErrMalformedRow, headerB2B, err)
	}

	week, err := strconv.Atoi(c.field(record, headerWeek))
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %s: %v", ErrMalformedRow, headerWeek, err)
	}

	return models.Order{
		OrderID:      c.field(record, headerOrderID),
		Amount:       amount,
		Style:        c.field(record, headerStyle),
		Category:     c.field(record, headerCategory),
		State:        c.field(record, headerState),
		Fulfilment:   c.field(record, headerFulfilment),
		B2B:          b2b,
		Day:          c.field(record, headerDay),
		Week:         week,
		Month:        c.field(record, headerMonth),
		PromotionIDs: c.field(record, headerPromotion),
	}, nil
}

func (a *Analytics) snapshot() (*Table, []pipeline.View) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.table, a.views
}

// Dashboard recomputes metrics, every view and the widget options for req.
func (a *Analytics) Dashboard(req pipeline.Request) (models.Dashboard, error) {
	table, views := a.snapshot()
	return pipeline.Run(table.Rows, req, views)
}

func (a *Analytics) Metrics(sel pipeline.Selection) models.Metrics {
	table, _ := a.snapshot()
	return pipeline.ComputeMetrics(pipeline.ApplyFilters(table.Rows, sel))
}

func (a *Analytics) Aggregates(req pipeline.Request) ([]models.Aggregate, error) {
	d, err := a.Dashboard(req)
	if err != nil {
		return nil, err
	}
	return d.Aggregates, nil
}

// Aggregate computes the single view called name.
func (a *Analytics) Aggregate(name string, req pipeline.Request) (models.Aggregate, error) {
	table, views := a.snapshot()

	view, ok := pipeline.FindView(views, name)
	if !ok {
		return models.Aggregate{}, fmt.Errorf("%w: %s", ErrUnknownView, name)
	}

	filtered := pipeline.ApplyFilters(table.Rows, req.Filters)
	return pipeline.Aggregate(filtered, view, req.ViewFilters[name])
}

// Options lists distinct values per filter dimension and view group column over
// the rows passing sel. A nil sel enumerates the whole table.
func (a *Analytics) Options(sel pipeline.Selection) map[models.Column][]string {
	table, views := a.snapshot()
	return pipeline.Options(pipeline.ApplyFilters(table.Rows, sel), pipeline.OptionColumns(views))
}

// Loaded reports whether an order table has been published.
func (a *Analytics) Loaded() bool {
	table, _ := a.snapshot()
	return table.Source != noSourceLoaded
}

func (a *Analytics) Views() []pipeline.View {
	_, views := a.snapshot()
	return views
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	table, views := a.snapshot()

	return map[string]any{
		"record_count": len(table.Orders),
		"last_loaded":  table.LoadedAt,
		"source":       table.Source,
		"views":        len(views),
		"styles":       len(pipeline.DistinctValues(table.Rows, models.ColStyle)),
		"states":       len(pipeline.DistinctValues(table.Rows, models.ColState)),
	}
}
