package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"wifiwatch-tui/internal/app"
	"wifiwatch-tui/internal/config"
	"wifiwatch-tui/internal/recording"
	"wifiwatch-tui/internal/service"
	"wifiwatch-tui/internal/storage"
	"wifiwatch-tui/internal/telemetry"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wifiwatch",
		Short: "Live signal dashboard for wifi clients",
		Long: `wifiwatch polls an endpoint that lists connected wifi clients and keeps a
card per client with its current signal, a strength band and a chart of the
recent history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(exportsCmd())
	rootCmd.AddCommand(serveMockCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if cfg.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
		color.NoColor = true
	}
	return cfg, nil
}

func runTUI(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	source, err := service.NewHTTPSource(cfg.Endpoint, cfg.Token, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	return runDashboard(cmd.Context(), cfg, source, source.Endpoint(), cfg.PollInterval, nil, true)
}

// runDashboard wires the poller, metrics listener, recorder and export store
// around the bubbletea program and blocks until the user quits.
func runDashboard(parent context.Context, cfg config.Config, source service.Source, label string, interval time.Duration, progress func() string, record bool) error {
	level, err := telemetry.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, closeLog, err := telemetry.OpenLogFile(cfg.LogFile, level)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog()
	}()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	metrics := telemetry.NewMetrics()
	if cfg.MetricsAddr != "" {
		server := telemetry.NewServer(cfg.MetricsAddr, metrics)
		go func() {
			if err := server.Run(ctx); err != nil {
				logger.Error("metrics listener stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	pollerOpts := []service.PollerOption{
		service.WithMetrics(metrics),
		service.WithLogger(logger),
		service.WithTimeout(cfg.RequestTimeout),
	}
	if record && cfg.RecordPath != "" {
		writer, err := recording.Create(cfg.RecordPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("close recording", "path", cfg.RecordPath, "error", err)
			}
		}()
		pollerOpts = append(pollerOpts, service.WithRecorder(writer))
		logger.Info("recording payloads", "path", cfg.RecordPath)
	}

	store, err := storage.NewStore(cfg.ExportDir)
	if err != nil {
		return err
	}

	cols, rows := app.ChartCells(cfg.ChartWidth, cfg.ChartHeight)
	model := app.NewModel(app.ModelOptions{
		Poller:       service.NewPoller(source, pollerOpts...),
		Store:        store,
		Metrics:      metrics,
		Logger:       logger,
		Context:      ctx,
		Source:       label,
		Progress:     progress,
		PollInterval: interval,
		HistoryLimit: cfg.HistoryLimit,
		ChartCols:    cols,
		ChartRows:    rows,
		ExportWidth:  cfg.ChartWidth,
		ExportHeight: cfg.ChartHeight,
	})

	logger.Info("dashboard starting", "source", label, "interval", interval, "history_limit", cfg.HistoryLimit)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}

func stderrLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := telemetry.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return telemetry.NewLogger(os.Stderr, level), nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
