package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/example/padel-scheduler/internal/booking"
	"github.com/example/padel-scheduler/internal/browser"
	"github.com/example/padel-scheduler/internal/config"
	"github.com/example/padel-scheduler/internal/logging"
)

// book runs a single attempt in the foreground and prints the result as
// JSON. Useful for cron and for trying out portal changes without the
// server.
func newBookCmd() *cobra.Command {
	var (
		date     string
		start    string
		duration float64
		mode     string
		booker   string
		players  string
		loginURL string
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Run one booking attempt and print the result",
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

			parsedDate, err := booking.ParseDate(date)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			var candidates []string
			for _, p := range strings.Split(players, ",") {
				if p = strings.TrimSpace(p); p != "" {
					candidates = append(candidates, p)
				}
			}
			if loginURL == "" {
				loginURL = cfg.PortalLoginURL
			}

			orch := &booking.Orchestrator{
				Sessions: func(ctx context.Context, mobile bool) (browser.Session, error) {
					return browser.NewChromeSession(ctx, browser.Config{
						Headless:    cfg.Headless,
						Mobile:      mobile,
						StepTimeout: cfg.StepTimeout,
					})
				},
				Creds:              booking.Credentials{Username: cfg.PortalUsername, Password: cfg.PortalPassword},
				ConfirmBookings:    cfg.ConfirmBookings,
				RequiredPlayers:    cfg.RequiredPlayers,
				MaxSlotAttempts:    cfg.MaxSlotAttempts,
				MaxSelectionPasses: cfg.MaxSelectionPasses,
				DebugDir:           cfg.DebugDir,
				Log:                log,
			}

			res := orch.Run(cmd.Context(), booking.Request{
				LoginURL:        loginURL,
				Date:            parsedDate,
				StartTime:       start,
				DurationHours:   duration,
				BookerFirstName: booker,
				Candidates:      candidates,
				DeviceMode:      booking.DeviceMode(mode),
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if res.Status != booking.StatusSuccess {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "booking date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "time", "21:30", "start time (HH:MM)")
	cmd.Flags().Float64Var(&duration, "duration", 1, "duration in hours")
	cmd.Flags().StringVar(&mode, "mode", "mobile", "navigation mode: mobile or desktop")
	cmd.Flags().StringVar(&booker, "booker", "", "first name of the account holder")
	cmd.Flags().StringVar(&players, "players", "", "comma separated candidate first names")
	cmd.Flags().StringVar(&loginURL, "login-url", "", "portal login URL (defaults to PORTAL_LOGIN_URL)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("booker")
	_ = cmd.MarkFlagRequired("players")

	return cmd
}
