package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/scraper"
	"github.com/1984akg/kaggle-competition-scraper3/internal/storage"
)

var (
	cfgFile      string
	verbose      bool
	outputDir    string
	formats      string
	maxThreads   int
	maxNotebooks int
	maxPosts     int
	itemDelay    string
	render       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kagglescrape",
		Short: "kagglescrape — resilient Kaggle competition scraper",
		Long: `kagglescrape extracts competition content from Kaggle: the overview,
discussion threads, and notebooks.

Features:
  • Layered acquisition: authenticated API → rendered browser → plain HTTP
  • Per-field selector cascades that degrade to sentinels, never errors
  • JSON, Markdown report, and CSV export
  • Optional MongoDB result archive
  • Prometheus metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Scrape one competition",
		Long:  "Scrape a competition page given its URL (/c/<slug> or /competitions/<slug>).",
		Args:  cobra.ExactArgs(1),
		RunE:  runScrape,
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "./output", "output directory")
	cmd.Flags().StringVarP(&formats, "format", "f", "json,markdown", "comma-separated export formats: json, markdown, csv")
	cmd.Flags().IntVar(&maxThreads, "max-threads", 20, "maximum discussion threads to collect")
	cmd.Flags().IntVar(&maxNotebooks, "max-notebooks", 20, "maximum notebooks to collect")
	cmd.Flags().IntVar(&maxPosts, "max-posts", 3, "maximum posts to collect per thread")
	cmd.Flags().StringVar(&itemDelay, "delay", "500ms", "politeness delay between per-item fetches")
	cmd.Flags().BoolVar(&render, "render", true, "use a browser session for JavaScript-rendered pages")

	return cmd
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cmd, cfg)
	logger := setupLogger(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rawURL := args[0]
	if err := config.ValidateURL(rawURL); err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	logger.Info("starting scrape",
		"url", rawURL,
		"max_threads", cfg.Scrape.MaxThreads,
		"max_notebooks", cfg.Scrape.MaxNotebooks,
		"render", cfg.Scrape.UseRender,
		"output", cfg.Storage.OutputDir,
	)

	s, err := scraper.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create scraper: %w", err)
	}
	defer s.Close()

	if cfg.Metrics.Enabled {
		if err := s.Metrics().StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	s.OnStage = func(stage scraper.Stage) {
		fmt.Printf("→ %s\n", stage)
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()

	start := time.Now()
	result, err := s.ScrapeAll(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	if err := store.Save(result); err != nil {
		logger.Error("save failed", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Warn("storage close failed", "error", err)
	}

	elapsed := time.Since(start)
	stats := s.Metrics().Snapshot()

	logger.Info("scrape complete",
		"elapsed", elapsed,
		"threads", len(result.DiscussionThreads),
		"notebooks", len(result.Notebooks),
	)

	fmt.Printf("\n✅ Scrape complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Competition: %s (%s)\n", result.Competition.Title, result.Competition.ID)
	fmt.Printf("   Threads:     %d collected, %d rejected\n", len(result.DiscussionThreads), stats["records_rejected"])
	fmt.Printf("   Notebooks:   %d collected\n", len(result.Notebooks))
	fmt.Printf("   Fetches:     %d browser, %d http, %d failed\n",
		stats["fetches_browser"], stats["fetches_http"], stats["fetches_failed"])
	fmt.Printf("   Output:      %s\n", cfg.Storage.OutputDir)

	return nil
}

// buildStore assembles the configured storage backends.
func buildStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	fileStore, err := storage.NewFileStore(cfg.Storage.OutputDir, cfg.Storage.Formats, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Storage.Mongo.Enabled {
		return fileStore, nil
	}

	mongoStore, err := storage.NewMongoStore(
		cfg.Storage.Mongo.URI,
		cfg.Storage.Mongo.Database,
		cfg.Storage.Mongo.Collection,
		logger,
	)
	if err != nil {
		logger.Warn("mongodb unavailable, writing files only", "error", err)
		return fileStore, nil
	}
	return storage.NewMultiStore(fileStore, mongoStore), nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kagglescrape %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Scrape:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Scrape.BaseURL)
			fmt.Printf("  Max Threads:       %d\n", cfg.Scrape.MaxThreads)
			fmt.Printf("  Max Notebooks:     %d\n", cfg.Scrape.MaxNotebooks)
			fmt.Printf("  Max Posts:         %d\n", cfg.Scrape.MaxPosts)
			fmt.Printf("  Item Delay:        %s\n", cfg.Scrape.ItemDelay)
			fmt.Printf("  Render:            %v\n", cfg.Scrape.UseRender)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Navigation Timeout: %s\n", cfg.Browser.NavigationTimeout)
			fmt.Printf("  Settle Delay:       %s\n", cfg.Browser.SettleDelay)
			fmt.Printf("  Stealth:            %v\n", cfg.Browser.Stealth)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.API.Enabled)
			fmt.Printf("  Base URL:          %s\n", cfg.API.BaseURL)
			fmt.Printf("  Page Size:         %d\n", cfg.API.PageSize)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Output Dir:        %s\n", cfg.Storage.OutputDir)
			fmt.Printf("  Formats:           %s\n", strings.Join(cfg.Storage.Formats, ", "))
			fmt.Printf("  MongoDB:           %v\n", cfg.Storage.Mongo.Enabled)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// setupLogger creates a structured logger honoring the configured level
// and handler format.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// applyCLIOverrides applies flag values the user actually set on the
// command line. Untouched flags keep whatever the file and environment
// layers resolved to.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("max-threads") {
		cfg.Scrape.MaxThreads = maxThreads
	}
	if flags.Changed("max-notebooks") {
		cfg.Scrape.MaxNotebooks = maxNotebooks
	}
	if flags.Changed("max-posts") {
		cfg.Scrape.MaxPosts = maxPosts
	}
	if flags.Changed("delay") {
		if d, err := time.ParseDuration(itemDelay); err == nil {
			cfg.Scrape.ItemDelay = d
		}
	}
	if flags.Changed("render") {
		cfg.Scrape.UseRender = render
	}
	if flags.Changed("output") {
		cfg.Storage.OutputDir = outputDir
	}
	if flags.Changed("format") {
		var parsed []string
		for _, f := range strings.Split(formats, ",") {
			if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
				parsed = append(parsed, f)
			}
		}
		cfg.Storage.Formats = parsed
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}
