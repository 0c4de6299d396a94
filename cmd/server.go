package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/padel-scheduler/internal/auth"
	"github.com/example/padel-scheduler/internal/booking"
	"github.com/example/padel-scheduler/internal/browser"
	"github.com/example/padel-scheduler/internal/config"
	"github.com/example/padel-scheduler/internal/db"
	"github.com/example/padel-scheduler/internal/history"
	"github.com/example/padel-scheduler/internal/jobs"
	"github.com/example/padel-scheduler/internal/logging"
	"github.com/example/padel-scheduler/internal/migrate"
	"github.com/example/padel-scheduler/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking API + operator UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// Attempt history is optional; without a database the service
			// still books, it just forgets finished attempts.
			var store *history.Store
			if cfg.DatabaseURL != "" {
				d, err := db.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer d.Close()
				if err := d.Ping(ctx); err != nil {
					return fmt.Errorf("db ping: %w", err)
				}
				if migrateUp {
					if err := migrate.Up(ctx, d); err != nil {
						return err
					}
				}
				store = history.NewStore(d)
			} else {
				log.Warn("DATABASE_URL not set; attempt history disabled")
			}

			sessions := browser.Factory(func(ctx context.Context, mobile bool) (browser.Session, error) {
				return browser.NewChromeSession(ctx, browser.Config{
					Headless:    cfg.Headless,
					Mobile:      mobile,
					StepTimeout: cfg.StepTimeout,
				})
			})

			orch := &booking.Orchestrator{
				Sessions:           sessions,
				Creds:              booking.Credentials{Username: cfg.PortalUsername, Password: cfg.PortalPassword},
				ConfirmBookings:    cfg.ConfirmBookings,
				RequiredPlayers:    cfg.RequiredPlayers,
				MaxSlotAttempts:    cfg.MaxSlotAttempts,
				MaxSelectionPasses: cfg.MaxSelectionPasses,
				DebugDir:           cfg.DebugDir,
				Log:                log,
			}
			if !cfg.ConfirmBookings {
				log.Info("ENABLE_BOOKING=false; running in dry-run mode")
			}

			var recorder jobs.Recorder
			if store != nil {
				recorder = store
			}
			manager := jobs.NewManager(orch, recorder, log)

			defaults, err := web.OpenDefaults(cfg.DefaultsPath)
			if err != nil {
				return err
			}
			if d := defaults.Get(); d.LoginURL == "" && cfg.PortalLoginURL != "" {
				d.LoginURL = cfg.PortalLoginURL
				if err := defaults.Put(d); err != nil {
					return err
				}
			}

			ws := &web.Server{
				Jobs:     manager,
				Defaults: defaults,
				History:  store,
				Sessions: web.NewSessionManager(cfg.CookieHashKey, cfg.CookieBlockKey),
				API:      auth.Credentials{Username: cfg.APIUsername, PasswordHash: cfg.APIPasswordHash},
				Log:      log,
			}
			log.Info("starting server", zap.String("base_url", cfg.BaseURL))
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}
