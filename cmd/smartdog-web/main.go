// Package main serves the contribution site locally: the roadmap landing
// page, the contribution form and its result page.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smartdog/pet-contribution/internal/backend"
	"github.com/smartdog/pet-contribution/internal/config"
	"github.com/smartdog/pet-contribution/internal/counter"
	"github.com/smartdog/pet-contribution/internal/flow"
	"github.com/smartdog/pet-contribution/internal/logging"
	"github.com/smartdog/pet-contribution/internal/roadmap"
	"github.com/smartdog/pet-contribution/internal/store"
	"github.com/smartdog/pet-contribution/internal/web"
)

var (
	v          = config.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "smartdog-web",
	Short: "Local web UI for pet photo contributions",
	Long: `Smartdog Web starts a local web server with the campaign roadmap and the
contribution form. Contributions are sent to the configured backend and
recorded in the local history shared with the smartdog CLI.

Examples:
  smartdog-web
  smartdog-web --port 9090 --theme midnight
  smartdog-web --variant transform`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configFile, "config", "", "Config file (default $HOME/.smartdog/config.yaml)")
	f.Int("port", config.DefaultPort, "Port to listen on")
	f.String("base-url", config.DefaultBaseURL, "Campaign backend base URL")
	f.String("theme", config.DefaultTheme, "Page theme (classic, midnight, sunset, forest)")
	f.String("variant", config.DefaultVariant, "Contribution flow (contribute, transform)")
	f.String("data-dir", "", "Directory for the local database")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	for key, flag := range map[string]string{
		"port":      "port",
		"base_url":  "base-url",
		"theme":     "theme",
		"variant":   "variant",
		"data_dir":  "data-dir",
		"log_level": "log-level",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel)

	variant, err := flow.LookupVariant(cfg.Variant)
	if err != nil {
		return err
	}
	db, err := store.OpenSQLite(cfg.DBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	client := backend.NewClient(cfg.BaseURL, cfg.HTTPTimeout, backend.WithEndpoints(backend.Endpoints{
		Submit:    cfg.SubmitPath,
		Count:     cfg.CountPath,
		Increment: cfg.IncrementPath,
	}))

	srv, err := web.New(web.Options{
		Submitter: client,
		Notifier:  client,
		Counter:   counter.NewService(client, db, cfg.CounterDefault),
		Theme:     roadmap.LookupTheme(cfg.Theme),
		Variant:   variant,
		OnSuccess: func(ctx context.Context, c web.Contribution) error {
			return db.AddReceipt(ctx, c.Receipt(time.Now()))
		},
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	logging.NewStartupLogger("smartdog-web").
		InitDuration(time.Since(initStart)).
		Endpoint("backend", cfg.BaseURL).
		Store("sqlite", db.Path()).
		Config("variant", variant.Name).
		Config("theme", cfg.Theme).
		Config("port", fmt.Sprint(cfg.Port)).
		Log()
	fmt.Printf("\n  Smartdog: http://localhost:%d\n\n", cfg.Port)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
