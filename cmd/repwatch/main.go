package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/actions"
	"github.com/TobiSchelling/repwatch/internal/collect"
	"github.com/TobiSchelling/repwatch/internal/config"
	"github.com/TobiSchelling/repwatch/internal/database"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
	"github.com/TobiSchelling/repwatch/internal/fetch"
	"github.com/TobiSchelling/repwatch/internal/flows"
	"github.com/TobiSchelling/repwatch/internal/legal"
	"github.com/TobiSchelling/repwatch/internal/llm"
	"github.com/TobiSchelling/repwatch/internal/logging"
	"github.com/TobiSchelling/repwatch/internal/mention"
	"github.com/TobiSchelling/repwatch/internal/metrics"
	"github.com/TobiSchelling/repwatch/internal/pipeline"
	"github.com/TobiSchelling/repwatch/internal/server"
	"github.com/TobiSchelling/repwatch/internal/settings"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "repwatch",
	Short:   "Personal reputation monitoring",
	Long:    "RepWatch keeps an encyclopedia of what is published about you, tracks mentions and legal filings, and uses an LLM to assess risk and draft responses.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "DEBUG"
		}
		logger, err = logging.New(level)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(mentionsCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(generateCmd)
}

// app holds everything a command needs, wired to one database.
type app struct {
	db       *database.DB
	store    *encyclopedia.Store
	settings *settings.Store
	fetcher  *fetch.Fetcher
	metrics  *metrics.Collector
	svc      *actions.Service
}

func openApp() (*app, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := database.Open(cfg.DatabasePath(), logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	store := encyclopedia.NewStore(db, logger)
	store.Subscribe(m.ObserveStore)
	store.Load()

	p := cfg.Profile
	st := settings.NewStore(db, settings.Defaults(p.FullName, p.Email, p.Address, p.PhoneNumber), logger)
	st.Load()

	fetcher := fetch.New(fetch.Options{
		ProxyAPIKey:      cfg.Scraping.ProxyAPIKey(),
		ProxyURLTemplate: cfg.Scraping.ProxyURLTemplate,
		UserAgent:        cfg.Scraping.UserAgent,
		Timeout:          time.Duration(cfg.Scraping.TimeoutSeconds) * time.Second,
	}, logger)
	fetcher.SetObserver(m)

	s := cfg.Summarization
	provider := llm.CreateProvider(llm.Options{
		Provider:    s.Provider,
		Model:       s.Model,
		OllamaURL:   s.OllamaURL,
		OpenAIModel: s.OpenAIModel,
		OpenAIURL:   s.OpenAIURL,
		APIKeyEnv:   s.APIKeyEnv,
	}, logger)
	fc := flows.New(provider, s.MaxTokens, logger, flows.WithObserver(m))

	return &app{
		db:       db,
		store:    store,
		settings: st,
		fetcher:  fetcher,
		metrics:  m,
		svc:      actions.New(store, fc, fetcher, st, cfg.Categories, logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) pipeline() *pipeline.Pipeline {
	p := pipeline.New(cfg, a.db, collect.NewCollector(cfg, a.store, logger), a.svc, logger)
	p.SetRecorder(a.metrics)
	return p
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("repwatch", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/repwatch/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your profile, feeds, and LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show encyclopedia and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cats := a.store.Categories()
		links := 0
		for _, c := range cats {
			links += len(c.Links)
		}
		now := time.Now()
		ms := mention.Project(cats, cfg.Categories.Mentions, now)
		unrated := 0
		for _, m := range ms {
			if m.RiskColor == "" {
				unrated++
			}
		}

		fmt.Printf("Profile: %s\n\n", orDash(a.settings.Get().FullName))
		fmt.Println("Encyclopedia:")
		fmt.Printf("  Categories: %d\n", len(cats))
		fmt.Printf("  Links: %d\n", links)
		fmt.Printf("  Mentions: %d (%d not analyzed)\n", len(ms), unrated)
		fmt.Printf("  Legal cases: %d\n", len(legal.Project(cats, cfg.Categories.Legal, now)))

		fmt.Println("\nSystem:")
		fmt.Printf("  Database: %s\n", cfg.DatabasePath())
		fmt.Printf("  AI provider: %v\n", a.svc.Available())
		fmt.Printf("  Scraping proxy: %v\n", a.fetcher.UsesProxy())
		fmt.Printf("  Sources: %d\n", collect.NewCollector(cfg, a.store, logger).SourceCount())

		last, err := a.db.LatestRunReport()
		if err != nil {
			return fmt.Errorf("reading last run: %w", err)
		}
		if last != nil {
			fmt.Printf("  Last run: %s (collected %d, analyzed %d)\n",
				last.StartedAt.Local().Format("2006-01-02 15:04"), last.Collected, last.Analyzed)
		} else {
			fmt.Println("  Last run: never")
		}
		return nil
	},
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect mentions from configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Println("Collecting mentions from sources...")
		result := collect.NewCollector(cfg, a.store, logger).Collect(ctx)

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New links: %d\n", result.Added)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		if result.Failed > 0 {
			fmt.Printf("  Failed: %d\n", result.Failed)
		}

		if len(result.ByCategory) > 0 {
			fmt.Println("\nLinks by category:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.ByCategory {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> enrich -> analyze",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		pipe := a.pipeline()
		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(ctx)
		}
		printSteps(result)

		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'repwatch serve' to review mentions.")
		}
		return result.Err()
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

func printSteps(result *pipeline.Result) {
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
}

// --- watch command ---

var watchServe bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		pipe := a.pipeline()
		c := newScheduler(logger)
		_, err = c.AddFunc(cfg.Pipeline.Schedule, func() {
			r := pipe.Run(ctx)
			if err := r.Err(); err != nil {
				logger.Error("scheduled run failed", zap.Error(err))
				return
			}
			logger.Info("scheduled run complete",
				zap.Int("collected", r.Collected),
				zap.Int("enriched", r.Enriched),
				zap.Int("analyzed", r.Analyzed))
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Pipeline.Schedule, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()

		fmt.Printf("Watching on schedule %q. Press Ctrl+C to stop.\n", cfg.Pipeline.Schedule)
		if watchServe {
			return serve(ctx, a, cfg.Server.Port)
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "Also start the web server")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return serve(ctx, a, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func serve(ctx context.Context, a *app, port int) error {
	srv, err := server.New(server.Options{
		Actions: a.svc,
		DB:      a.db,
		Metrics: a.metrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	return server.Serve(ctx, srv, port)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
