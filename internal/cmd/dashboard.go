package cmd

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nhle/bidboard/internal/app"
	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/log"
	"github.com/nhle/bidboard/internal/metrics"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Long:  `Open the terminal dashboard. Logs go to the configured log file only.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			conf, err := readConfig()
			if err != nil {
				return err
			}

			logger, logCloser, err := setupLogger(conf, false)
			if err != nil {
				return err
			}
			defer logCloser()

			creds, db, err := openServices(conf)
			if err != nil {
				return err
			}
			defer log.Closer(db)

			deps := app.Deps{
				Backend:     newClient(conf, creds, logger),
				Credentials: creds,
				Store:       db,
				Bus:         eventbus.New(logger),
				Metrics:     metrics.New(prometheus.NewRegistry()),
				Config:      conf,
				Log:         logger,
			}

			program := tea.NewProgram(app.New(deps), tea.WithAltScreen())
			final, err := program.Run()
			if m, ok := final.(app.Model); ok {
				m.Shutdown()
			}
			if err != nil {
				slog.Error("Dashboard exited with error", log.ErrAttr(err))
				return fmt.Errorf("running dashboard: %w", err)
			}
			return nil
		},
	}
}
