package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wltan/buskersync/internal/api"
	"github.com/wltan/buskersync/internal/caldav"
	"github.com/wltan/buskersync/internal/calendar"
	"github.com/wltan/buskersync/internal/config"
	"github.com/wltan/buskersync/internal/engine"
	"github.com/wltan/buskersync/internal/fetch"
	"github.com/wltan/buskersync/internal/logger"
	"github.com/wltan/buskersync/internal/retry"
	"github.com/wltan/buskersync/internal/scheduler"
	"github.com/wltan/buskersync/internal/scraper"
	"github.com/wltan/buskersync/internal/store"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var flagFormat string

// components is everything a command needs, built once per invocation.
type components struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
}

func build() (*components, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.SetDefault(logger.New(logger.ParseLevel(cfg.LogLevel), os.Stdout))

	loc := cfg.Location()

	st, err := store.New(store.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.EventTTL(), loc)
	if err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}

	backend, err := caldav.New(caldav.Config{
		BaseURL:         cfg.CalendarURL,
		CalendarID:      cfg.CalendarID,
		CredentialsPath: cfg.CredentialsPath,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building calendar client: %w", err)
	}

	retryCfg := retry.Config{MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.RetryDelay}
	mirror := calendar.NewMirror(backend, loc, retryCfg, cfg.RateLimitCooldown)
	sc := scraper.New(fetch.New(cfg.FetchTimeout), cfg.BuskerURL, retryCfg, loc)

	eng := engine.New(sc, st, mirror, engine.Options{
		Location:      loc,
		WindowDays:    cfg.SyncWindowDays,
		ScrapeLockTTL: config.DefaultScrapeLockTTL,
		SyncLockTTL:   config.DefaultSyncLockTTL,
	})

	return &components{cfg: cfg, store: st, engine: eng}, nil
}

// NewRootCmd creates the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "buskersync",
		Short: "Mirror a busking schedule page into a calendar",
		Long: `buskersync scrapes a public busking schedule page, deduplicates the
events it finds, and mirrors them into a CalDAV calendar. Run it as a
daemon for scheduled operation or use the one-shot subcommands.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	root.AddCommand(newRunCmd())
	root.AddCommand(newScrapeCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newStatusCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon: scheduled cycles plus the status server",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := build()
			if err != nil {
				return err
			}
			defer comp.store.Close()

			sched, err := scheduler.New(comp.engine, comp.cfg.Location(), comp.cfg.ScrapeHour, comp.cfg.SyncHour)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			server := api.New(comp.cfg.ListenAddr, comp.store, comp.engine, comp.cfg.Location())
			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("shutting down", logger.Fields{"signal": sig.String()})
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("status server: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := build()
			if err != nil {
				return err
			}
			defer comp.store.Close()

			result := comp.engine.RunScrape(cmd.Context())
			if err := writeResult(os.Stdout, result, flagFormat); err != nil {
				return err
			}
			if result.Status == engine.StatusError {
				return fmt.Errorf("scrape cycle failed")
			}
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := build()
			if err != nil {
				return err
			}
			defer comp.store.Close()

			result := comp.engine.RunSync(cmd.Context())
			if err := writeResult(os.Stdout, result, flagFormat); err != nil {
				return err
			}
			if result.Status == engine.StatusError {
				return fmt.Errorf("sync cycle failed")
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last run and today's counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := build()
			if err != nil {
				return err
			}
			defer comp.store.Close()

			return writeStatus(cmd.Context(), os.Stdout, comp.store, comp.cfg.Location(), flagFormat)
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
