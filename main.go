package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"briefing-trends/pkg/config"
	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/fetcher"
	"briefing-trends/pkg/metrics"
	"briefing-trends/pkg/pipeline"
	"briefing-trends/pkg/store"
	"briefing-trends/pkg/trends"
)

// flags holds the persistent command-line overrides.
type flags struct {
	configPath   string
	dataDir      string
	year         int
	workers      int
	skipExisting bool
	metricsFile  string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "briefings",
		Short: "Track how often press briefing topics come up, week by week",
		Long: `briefings crawls the press briefing listing, extracts each transcript,
counts the words reporters and the press secretary use, and lines up the
weekly totals of tracked terms with an external trend series.

Stages can be run one at a time or all together with "run".`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML, default "+config.DefaultConfigFile+" if present)")
	pf.StringVar(&f.dataDir, "data-dir", "", "Artifact root directory")
	pf.IntVar(&f.year, "year", 0, "Year to summarize and merge")
	pf.IntVar(&f.workers, "workers", 0, "Parallel transcript extraction workers")
	pf.BoolVar(&f.skipExisting, "skip-existing", false, "Skip transcripts that already have a text file")
	pf.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus counters to this file at exit")

	cmd.AddCommand(
		stageCmd(f, pipeline.StageScrape, "Crawl listing pages into the record store", true,
			func(ctx context.Context, p *pipeline.Pipeline) error {
				n, err := p.Scrape(ctx)
				log.Printf("Scraped %d records", n)
				return err
			}),
		stageCmd(f, pipeline.StageExtract, "Download transcripts of stored records", true,
			func(ctx context.Context, p *pipeline.Pipeline) error {
				n, err := p.Extract(ctx)
				log.Printf("Extracted %d transcripts", n)
				return err
			}),
		stageCmd(f, pipeline.StageAnalyze, "Count words in every transcript", false,
			func(ctx context.Context, p *pipeline.Pipeline) error {
				n, err := p.Analyze(ctx)
				log.Printf("Wrote %d counts files", n)
				return err
			}),
		stageCmd(f, pipeline.StageSummarize, "Total tracked terms per week", false,
			func(ctx context.Context, p *pipeline.Pipeline) error {
				summary, err := p.Summarize(ctx)
				log.Printf("Summarized %d weeks", len(summary))
				return err
			}),
		stageCmd(f, pipeline.StageMerge, "Join weekly totals with the trend series", false,
			func(ctx context.Context, p *pipeline.Pipeline) error {
				return p.Merge(ctx)
			}),
		stageCmd(f, "run", "Run every stage in order", true,
			func(ctx context.Context, p *pipeline.Pipeline) error {
				return p.Run(ctx)
			}),
		trendsCmd(f),
		recordsCmd(f),
	)

	return cmd
}

// loadConfig applies the flag overrides on top of file and environment
// settings and validates the result.
func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.year != 0 {
		cfg.Year = f.year
	}
	if f.workers != 0 {
		cfg.Transcript.Workers = f.workers
	}
	if f.metricsFile != "" {
		cfg.MetricsFile = f.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// env is the wiring shared by the commands of one invocation.
type env struct {
	cfg     *config.Config
	metrics *metrics.Registry
	fetcher fetcher.Fetcher
	store   store.Store
	mirror  *store.TranscriptMirror
	closers []func()
}

func newEnv(ctx context.Context, f *flags, withStore bool) (*env, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, metrics: metrics.New()}

	cache, err := e.openCache(ctx)
	if err != nil {
		e.close()
		return nil, err
	}
	e.fetcher = fetcher.New(cache, cfg.Fetch.RequestsPerMinute,
		fetcher.WithClient(cfg.HTTPClient()),
		fetcher.WithRetry(cfg.RetryPolicy()),
		fetcher.WithMetrics(e.metrics),
	)

	if !withStore {
		return e, nil
	}

	s, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		e.close()
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	e.store = s
	e.closers = append(e.closers, func() { s.Close() })

	if cfg.Mirror.URI != "" {
		mirror, err := store.NewTranscriptMirror(ctx, cfg.Mirror.URI, cfg.Mirror.Database, cfg.Mirror.Collection)
		if err != nil {
			e.close()
			return nil, err
		}
		e.mirror = mirror
		e.closers = append(e.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mirror.Close(ctx)
		})
	}
	return e, nil
}

func (e *env) openCache(ctx context.Context) (fetcher.Cache, error) {
	if e.cfg.Fetch.RedisURL != "" {
		cache, err := fetcher.NewRedisCache(ctx, e.cfg.Fetch.RedisURL)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { cache.Close() })
		log.Printf("Using Redis page cache")
		return cache, nil
	}
	return fetcher.NewDiskCache(e.cfg.CacheDir())
}

func (e *env) pipeline(skipExisting bool) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithMetrics(e.metrics),
		pipeline.WithSkipExisting(skipExisting),
	}
	if e.mirror != nil {
		opts = append(opts, pipeline.WithMirror(e.mirror))
	}

	var s store.RecordStore = store.NewCSVStore(e.cfg.Layout().RecordsPath())
	if e.store != nil {
		s = e.store
	}
	return pipeline.New(e.cfg, e.fetcher, s, opts...)
}

// finish writes the metrics file when configured and releases connections.
func (e *env) finish() {
	if e.cfg.MetricsFile != "" {
		if err := e.metrics.WriteFile(e.cfg.MetricsFile); err != nil {
			log.Printf("WARNING: failed to write metrics: %v", err)
		}
	}
	e.close()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func stageCmd(f *flags, name, short string, withStore bool, stage func(context.Context, *pipeline.Pipeline) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			e, err := newEnv(ctx, f, withStore)
			if err != nil {
				return err
			}
			defer e.finish()

			start := time.Now()
			err = stage(ctx, e.pipeline(f.skipExisting))
			log.Printf("%s finished in %s", name, time.Since(start).Round(time.Millisecond))
			return err
		},
	}
}

func trendsCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Manage the trend series",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Import a trend graph export, from a file or the configured graph URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			e, err := newEnv(ctx, f, false)
			if err != nil {
				return err
			}
			defer e.finish()

			series, err := importSeries(ctx, e, args)
			if err != nil {
				return err
			}
			if err := trends.SaveSeries(e.cfg.SeriesPath(), series); err != nil {
				return err
			}
			log.Printf("Imported %d trend points to %s", len(series), e.cfg.SeriesPath())
			return nil
		},
	})

	return cmd
}

func importSeries(ctx context.Context, e *env, args []string) (domain.TrendSeries, error) {
	if len(args) == 1 {
		file, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer file.Close()
		return trends.ImportGraph(file)
	}
	if e.cfg.Trends.GraphURL == "" {
		return nil, errors.New("no graph file given and trends.graph_url is not set")
	}
	return trends.FetchGraph(ctx, e.fetcher, e.cfg.Trends.GraphURL)
}

func recordsCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage the record store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Copy the CSV records into the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			e, err := newEnv(ctx, f, true)
			if err != nil {
				return err
			}
			defer e.finish()

			if e.cfg.Store.Driver == store.DriverCSV {
				return errors.New("store.driver is csv, nothing to sync to")
			}

			src := store.NewCSVStore(e.cfg.Layout().RecordsPath())
			n, err := store.Sync(ctx, src, e.store)
			if err != nil {
				return err
			}
			log.Printf("Synced %d records to %s", n, e.cfg.Store.Driver)
			return nil
		},
	})

	return cmd
}
