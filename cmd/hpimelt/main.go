// Command hpimelt merges the configured house price extracts once and
// prints a melted view, or an ad hoc melt, for one region.
//
//	hpimelt -data ./data -view property-type -region Leeds
//	hpimelt -values Detached_Average_Price,Flat_Average_Price -format json
//	hpimelt -list regions
//	hpimelt -view sales-volume-total -out exports/sales.csv -bom
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
	"strings"
	"syscall"

	"hpipulse/internal/cache"
	"hpipulse/internal/config"
	"hpipulse/internal/dataset"
	"hpipulse/internal/exporter"
	"hpipulse/internal/infrastructure"
	"hpipulse/internal/services"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configFile  string
	dataDir     string
	sourceSpecs []string
	region      string
	view        string
	ids         string
	values      string
	hasValues   bool
	category    string
	valueLabel  string
	format      exporter.Format
	out         string
	bom         bool
	list        string
	logLevel    string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("hpimelt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configFile, "config", "", "YAML config file (default: HPI_CONFIG_FILE or config.yaml)")
	fs.StringVar(&opts.dataDir, "data", "", "directory holding the extracts (overrides the config)")
	fs.Func("source", "extract as path, namespace=path or id:namespace=path; repeat in merge order, base first", func(s string) error {
		opts.sourceSpecs = append(opts.sourceSpecs, s)
		return nil
	})
	fs.StringVar(&opts.region, "region", "", "region to select (views default to the nationwide aggregate)")
	fs.StringVar(&opts.view, "view", "", "catalog view: "+strings.Join(services.ViewIDs(), ", "))
	fs.StringVar(&opts.ids, "id", dataset.ColumnDate, "comma separated id columns for an ad hoc melt")
	fs.StringVar(&opts.values, "values", "", "comma separated value columns for an ad hoc melt")
	fs.StringVar(&opts.category, "category", "", "category column label of an ad hoc melt")
	fs.StringVar(&opts.valueLabel, "value-label", "", "value column label of an ad hoc melt")
	format := fs.String("format", string(exporter.FormatCSV), "output format: "+strings.Join(exporter.Formats(), " or "))
	fs.StringVar(&opts.out, "out", "", "write to this file instead of stdout")
	fs.BoolVar(&opts.bom, "bom", false, "prefix CSV output with a UTF-8 byte order mark")
	fs.StringVar(&opts.list, "list", "", "list \"views\" or \"regions\" instead of melting")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "values" {
			opts.hasValues = true
		}
	})

	f, err := exporter.ParseFormat(*format)
	if err != nil {
		return nil, err
	}
	opts.format = f

	switch {
	case opts.list != "" && opts.list != "views" && opts.list != "regions":
		return nil, fmt.Errorf("unsupported list %q", opts.list)
	case opts.list == "" && opts.view == "" && !opts.hasValues:
		return nil, errors.New("one of -view, -values or -list is required")
	case opts.view != "" && opts.hasValues:
		return nil, errors.New("-view and -values are mutually exclusive")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "hpimelt: %v\n", err)
		}
		return exitUsage
	}

	logger, _, err := infrastructure.NewLogger(config.LoggingConfig{Level: opts.logLevel, Output: "console"}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "hpimelt: %v\n", err)
		return exitFatal
	}

	if err := execute(ctx, opts, stdout, logger); err != nil {
		logger.ErrorContext(ctx, "hpimelt failed", slog.String("error", err.Error()))
		return exitFatal
	}
	return exitOK
}

func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFile(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.dataDir != "" {
		cfg.Paths.DataDir = opts.dataDir
	}
	if len(opts.sourceSpecs) > 0 {
		sources, err := config.ParseSourceSpecs(opts.sourceSpecs)
		if err != nil {
			return nil, fmt.Errorf("invalid -source: %w", err)
		}
		if err := config.ValidateSources(sources); err != nil {
			return nil, fmt.Errorf("invalid -source: %w", err)
		}
		cfg.Dataset.Sources = sources
	}
	return cfg, nil
}

func execute(ctx context.Context, opts *options, stdout io.Writer, logger *slog.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	mergeCache, err := cache.New[*dataset.MergeResult](cache.WithName("dataset"), cache.WithMaxEntries(1))
	if err != nil {
		return err
	}

	dataDir := cfg.GetDataDir()
	svc, err := services.NewDatasetService(os.DirFS(dataDir), services.DatasetConfig{
		Sources:          cfg.Dataset.Sources,
		Concurrency:      cfg.Dataset.Concurrency,
		NationwideRegion: cfg.Dataset.NationwideRegion,
		MergeTimeout:     cfg.Dataset.MergeTimeout,
	}, services.DatasetDeps{
		Cache:    mergeCache,
		Notifier: logNotifier{logger: logger},
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "merging extracts",
		slog.String("data_dir", dataDir),
		slog.Int("sources", len(cfg.Dataset.Sources)))

	emit, err := selectOutput(ctx, opts, svc)
	if err != nil {
		return err
	}
	if opts.out == "" {
		return emit(stdout)
	}
	_, err = exporter.NewCSVWriter("", logger).WriteFile(opts.out, emit)
	return err
}

// selectOutput resolves what was asked for and returns a function that
// encodes it.
func selectOutput(ctx context.Context, opts *options, svc *services.DatasetService) (func(io.Writer) error, error) {
	csvOpts := exporter.Options{BOMPrefix: opts.bom}

	switch opts.list {
	case "views":
		views := svc.Views()
		return func(w io.Writer) error { return writeViews(w, opts.format, views, csvOpts) }, nil
	case "regions":
		regions, err := svc.Regions(ctx)
		if err != nil {
			return nil, err
		}
		return func(w io.Writer) error { return writeRegions(w, opts.format, regions, csvOpts) }, nil
	}

	var long *dataset.LongTable
	if opts.view != "" {
		result, err := svc.View(ctx, opts.view, opts.region)
		if err != nil {
			return nil, err
		}
		long = result.Table
	} else {
		var err error
		long, err = svc.Melt(ctx, services.MeltRequest{
			Region:        opts.region,
			IDColumns:     splitList(opts.ids),
			ValueColumns:  splitList(opts.values),
			CategoryLabel: opts.category,
			ValueLabel:    opts.valueLabel,
		})
		if err != nil {
			return nil, err
		}
	}
	return func(w io.Writer) error { return exporter.WriteLong(w, opts.format, long, csvOpts) }, nil
}

// logNotifier reports dataset notices on the log.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(ctx context.Context, noticeType, level string, data interface{}) {
	lvl := slog.LevelInfo
	switch level {
	case services.LevelWarning:
		lvl = slog.LevelWarn
	case services.LevelError:
		lvl = slog.LevelError
	}
	n.logger.Log(ctx, lvl, noticeType, slog.Any("data", data))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeViews(w io.Writer, format exporter.Format, views []services.ViewDefinition, opts exporter.Options) error {
	if format == exporter.FormatJSON {
		return exporter.WriteJSON(w, views)
	}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.ID, v.Title, v.CategoryLabel, v.ValueLabel})
	}
	return exporter.WriteCSV(w, []string{"id", "title", "category_label", "value_label"}, rows, opts)
}

func writeRegions(w io.Writer, format exporter.Format, regions []string, opts exporter.Options) error {
	if format == exporter.FormatJSON {
		return exporter.WriteJSON(w, regions)
	}
	rows := make([][]string, 0, len(regions))
	for _, r := range regions {
		rows = append(rows, []string{r})
	}
	return exporter.WriteCSV(w, []string{dataset.ColumnRegionName}, rows, opts)
}
