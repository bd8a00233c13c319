// Command report loads an order CSV and prints the dashboard metrics and every
// view for an optional filter selection.
//
//	report -csv sales.csv -filter state=MAHARASHTRA,KARNATAKA -filter b2b=false
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/pipeline"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/format"
)

// valuesFlag collects repeated name=v1,v2 flags.
type valuesFlag map[string][]string

func (f valuesFlag) String() string {
	parts := make([]string, 0, len(f))
	for name, vals := range f {
		parts = append(parts, name+"="+strings.Join(vals, ","))
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

func (f valuesFlag) Set(s string) error {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value[,value...], got %q", s)
	}
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			f[name] = append(f[name], v)
		}
	}
	return nil
}

type options struct {
	csvFile     string
	viewsFile   string
	topN        int
	filters     valuesFlag
	viewFilters valuesFlag
	progress    bool
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	opts := options{
		filters:     valuesFlag{},
		viewFilters: valuesFlag{},
	}

	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.csvFile, "csv", cfg.Source.CSVFile, "order CSV file")
	fs.StringVar(&opts.viewsFile, "views", cfg.Source.ViewsFile, "YAML views table (built-in views when empty)")
	fs.IntVar(&opts.topN, "top", cfg.Dashboard.TopN, "states kept by the ranking view")
	fs.Var(opts.filters, "filter", "global filter dim=v1,v2 (repeatable)")
	fs.Var(opts.viewFilters, "view", "per-view filter name=v1,v2 (repeatable)")
	fs.BoolVar(&opts.progress, "progress", true, "show a progress bar while loading")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.topN <= 0 {
		return options{}, fmt.Errorf("-top must be positive, got %d", opts.topN)
	}
	return opts, nil
}

func (o options) request() pipeline.Request {
	sel := make(pipeline.Selection, len(o.filters))
	for dim, vals := range o.filters {
		sel[models.Column(dim)] = vals
	}
	return pipeline.Request{Filters: sel, ViewFilters: o.viewFilters}
}

// load streams the CSV into analytics, reporting bytes read on stderr.
func load(ctx context.Context, analytics *services.Analytics, opts options, stderr io.Writer) error {
	f, err := os.Open(opts.csvFile)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if opts.progress {
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		bar := progressbar.NewOptions64(info.Size(),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("loading orders"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(stderr) }),
		)
		defer func() { _ = bar.Finish() }()
		r = io.TeeReader(f, bar)
	}

	return analytics.Load(ctx, opts.csvFile, r)
}

func printReport(w io.Writer, d models.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	m := d.Metrics
	fmt.Fprintf(tw, "Rows\t%s\n", format.Int(d.RowCount))
	fmt.Fprintf(tw, "Total Revenue\t%s\n", format.Currency(m.TotalRevenue))
	fmt.Fprintf(tw, "Total Orders\t%s\n", format.Count(m.TotalOrders))
	fmt.Fprintf(tw, "Unique Products\t%s\n", format.Int(m.UniqueProducts))
	fmt.Fprintf(tw, "States Covered\t%s\n", format.Int(m.UniqueStates))
	fmt.Fprintf(tw, "Promotion Usage\t%s\n", format.Percent(m.PromotionUsage))
	fmt.Fprintf(tw, "Fulfilment Types\t%s\n", format.Int(m.FulfilmentTypes))

	for _, agg := range d.Aggregates {
		fmt.Fprintf(tw, "\n%s\t(%s of %s by %s)\n", agg.Title, agg.Reducer, agg.Value, agg.GroupBy)
		if len(agg.Rows) == 0 {
			fmt.Fprintln(tw, "  (no rows)\t")
		}
		for _, row := range agg.Rows {
			fmt.Fprintf(tw, "  %s\t%s\n", row.Key, format.Decimal(row.Value))
		}
	}

	return tw.Flush()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}

	logger := observability.NewLoggerTo(stderr, config.LoggerConfig{Level: "warn", Format: "text"})
	slog.SetDefault(logger)

	views, err := pipeline.LoadViewsFile(opts.viewsFile, opts.topN)
	if err != nil {
		return err
	}

	analytics := services.NewAnalytics()
	if err := analytics.SetViews(views); err != nil {
		return fmt.Errorf("invalid view configuration: %w", err)
	}

	if err := load(ctx, analytics, opts, stderr); err != nil {
		return err
	}

	dashboard, err := analytics.Dashboard(opts.request())
	if err != nil {
		return fmt.Errorf("compute dashboard: %w", err)
	}

	return printReport(stdout, dashboard)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}
}
