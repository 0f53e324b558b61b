package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wifiwatch-tui/internal/app"
	"wifiwatch-tui/internal/client"
	"wifiwatch-tui/internal/config"
	"wifiwatch-tui/internal/mockserver"
	"wifiwatch-tui/internal/reconcile"
	"wifiwatch-tui/internal/recording"
	"wifiwatch-tui/internal/service"
	"wifiwatch-tui/internal/storage"
	"wifiwatch-tui/internal/telemetry"
)

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the live dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
}

func replayCmd() *cobra.Command {
	var (
		speed float64
		loop  bool
	)

	cmd := &cobra.Command{
		Use:   "replay <recording>",
		Short: "Play a recorded session through the dashboard",
		Long: `Feed the frames of a recording made with --record-path to the dashboard at
the poll cadence. Frames whose digest does not match are treated as failed
fetches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if speed <= 0 {
				return fmt.Errorf("--speed must be positive")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			source, err := recording.LoadReplay(args[0], loop)
			if err != nil {
				return err
			}
			interval := time.Duration(float64(cfg.PollInterval) / speed)
			label := fmt.Sprintf("replay %s (%d frames)", args[0], source.Len())
			return runDashboard(cmd.Context(), cfg, source, label, interval, replayProgress(source), false)
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().BoolVar(&loop, "loop", false, "restart from the first frame at the end")
	return cmd
}

func replayProgress(source *recording.ReplaySource) func() string {
	return func() string {
		return fmt.Sprintf("%d/%d frames left", source.Remaining(), source.Len())
	}
}

func snapshotCmd() *cobra.Command {
	var (
		from string
		png  bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch once and print the client table",
		Long: `Fetch the client list once, or apply every frame of a recording with --from,
and print one row per client. With --png every chart is exported into a new
directory under the export dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := stderrLogger(cfg)
			if err != nil {
				return err
			}

			var (
				source service.Source
				label  = cfg.Endpoint
			)
			if from != "" {
				replay, err := recording.LoadReplay(from, false)
				if err != nil {
					return err
				}
				source, label = replay, from
			} else {
				httpSource, err := service.NewHTTPSource(cfg.Endpoint, cfg.Token, cfg.RequestTimeout)
				if err != nil {
					return err
				}
				source = httpSource
			}

			cols, rows := app.ChartCells(cfg.ChartWidth, cfg.ChartHeight)
			board := app.NewBoard(cols, rows)
			reconciler := reconcile.New(board, reconcile.WithHistoryLimit(cfg.HistoryLimit))
			poller := service.NewPoller(source, service.WithLogger(logger), service.WithTimeout(cfg.RequestTimeout))
			if err := collectSnapshot(cmd.Context(), poller, reconciler, from != ""); err != nil {
				return err
			}
			logger.Debug("snapshot collected",
				"source", label,
				"clients", reconciler.Len(),
				"history_limit", reconciler.HistoryLimit(),
			)

			out := cmd.OutOrStdout()
			printSnapshot(out, board, reconciler)

			if png {
				store, err := storage.NewStore(cfg.ExportDir)
				if err != nil {
					return err
				}
				summary, err := store.Save(label, reconciler.LastSequence(), board.Exports(reconciler), cfg.ChartWidth, cfg.ChartHeight)
				if err != nil {
					return err
				}
				printf(out, "\n%s %d chart(s) to %s\n", color.New(color.FgGreen).Sprint("exported"), len(summary.Clients), summary.Directory)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "apply every frame of this recording instead of fetching")
	cmd.Flags().BoolVar(&png, "png", false, "export a PNG chart per client")
	return cmd
}

// collectSnapshot applies a single fetch, or every frame when draining a
// replay. Damaged replay frames are skipped like failed fetches.
func collectSnapshot(ctx context.Context, poller *service.Poller, reconciler *reconcile.Reconciler, drain bool) error {
	for {
		seq := poller.Next()
		tick := poller.Poll(ctx, seq)
		if tick.Err != nil {
			if !drain {
				return tick.Err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if errors.Is(tick.Err, service.ErrExhausted) {
				return nil
			}
			continue
		}
		reconciler.Apply(tick.Seq, tick.Records)
		if !drain {
			return nil
		}
	}
}

var bandColors = map[client.Band]*color.Color{
	client.BandUnknown: color.New(color.FgHiBlack),
	client.BandStrong:  color.New(color.FgGreen),
	client.BandGood:    color.New(color.FgHiGreen),
	client.BandWeak:    color.New(color.FgYellow),
	client.BandPoor:    color.New(color.FgRed),
}

func printSnapshot(w io.Writer, board *app.Board, reconciler *reconcile.Reconciler) {
	cards := board.Cards()
	if len(cards) == 0 {
		printf(w, "No clients reported.\n")
		return
	}

	headers := []string{"ID", "NAME", "SIGNAL", "BAND", "SAMPLES"}
	rows := make([][]string, 0, len(cards))
	for _, card := range cards {
		samples, _ := reconciler.History(card.ID())
		rows = append(rows, []string{card.ID(), card.Label(), card.SignalText(), card.Band().String(), fmt.Sprint(len(samples))})
	}
	widths := make([]int, len(headers))
	for idx, header := range headers {
		widths[idx] = len([]rune(header))
	}
	for _, row := range rows {
		for idx, cell := range row {
			widths[idx] = max(widths[idx], len([]rune(cell)))
		}
	}

	bold := color.New(color.Bold)
	for idx, header := range headers {
		printf(w, "%s  ", bold.Sprint(pad(header, widths[idx])))
	}
	printf(w, "\n")
	for rowIdx, row := range rows {
		band := cards[rowIdx].Band()
		for idx, cell := range row {
			text := pad(cell, widths[idx])
			if idx == 2 || idx == 3 {
				text = bandColors[band].Sprint(text)
			}
			printf(w, "%s  ", text)
		}
		printf(w, "\n")
	}
}

func pad(text string, width int) string {
	if n := len([]rune(text)); n < width {
		return text + strings.Repeat(" ", width-n)
	}
	return text
}

func exportsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List chart exports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := storage.NewStore(cfg.ExportDir)
			if err != nil {
				return err
			}
			summaries, err := store.List(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				printf(out, "No exports in %s\n", store.ExportsDir())
				return nil
			}
			for _, summary := range summaries {
				printf(out, "%s  %s  %d client(s)  %s\n",
					color.New(color.FgCyan).Sprint(summary.ExportID),
					summary.SavedAt,
					len(summary.Clients),
					summary.Source,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum exports to list (0 for all)")
	return cmd
}

func serveMockCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve a simulated client list for local testing",
		Long: `Serve /api/wifi-clients with a random walk of client signals, alongside
/healthz and /metrics. Clients rotate through the id and signal field names the
dashboard understands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := stderrLogger(cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := mockserver.New(
				mockserver.NewSimulator(cfg.Mock.Clients, cfg.Mock.Churn, seed),
				mockserver.Options{
					Addr:    cfg.Mock.Addr,
					Token:   cfg.Token,
					Wrap:    cfg.Mock.Wrap,
					Metrics: telemetry.NewMetrics(),
					Logger:  logger,
				},
			)
			return server.Run(ctx)
		},
	}
	config.BindMockFlags(cmd.Flags())
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			text, err := config.Format(cfg)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s", text)
			return nil
		},
	}
}
