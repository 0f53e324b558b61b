// Package app is the bubbletea dashboard: it drives the poll loop, applies
// each tick through the reconciler and renders one card per client.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wifiwatch-tui/internal/chart"
	"wifiwatch-tui/internal/client"
	"wifiwatch-tui/internal/reconcile"
	"wifiwatch-tui/internal/service"
	"wifiwatch-tui/internal/storage"
	"wifiwatch-tui/internal/telemetry"
)

const DefaultPollInterval = 3000 * time.Millisecond

type pollTickMsg struct {
	generation int
	at         time.Time
}

type tickResultMsg struct {
	tick service.Tick
}

type exportDoneMsg struct {
	summary storage.ExportSummary
	err     error
}

type ModelOptions struct {
	Poller  *service.Poller
	Store   *storage.Store
	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// Context bounds in-flight fetches; cancelling it aborts them on quit.
	Context context.Context

	Source       string
	// Progress, when set, is appended to the status line, e.g. frames left in
	// a replay. It is called from View.
	Progress     func() string
	PollInterval time.Duration
	HistoryLimit int
	ChartCols    int
	ChartRows    int
	ExportWidth  int
	ExportHeight int
}

type Model struct {
	ctx        context.Context
	poller     *service.Poller
	store      *storage.Store
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	board      *Board
	reconciler *reconcile.Reconciler

	source   string
	progress func() string
	interval time.Duration
	exportW  int
	exportH  int

	ready  bool
	width  int
	height int

	cards   viewport.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	paused     bool
	suspended  bool
	exhausted  bool
	generation int
	inFlight   int

	lastUpdate time.Time
	lastSeq    uint64
	statusText string
	errorText  string
}

func NewModel(opts ModelOptions) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	board := NewBoard(opts.ChartCols, opts.ChartRows)
	reconcileOpts := []reconcile.Option{}
	if opts.HistoryLimit > 0 {
		reconcileOpts = append(reconcileOpts, reconcile.WithHistoryLimit(opts.HistoryLimit))
	}

	cards := viewport.New(80, 20)
	cards.SetContent(board.Render(80))

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	m := Model{
		ctx:        ctx,
		poller:     opts.Poller,
		store:      opts.Store,
		metrics:    opts.Metrics,
		logger:     logger,
		board:      board,
		reconciler: reconcile.New(board, reconcileOpts...),
		source:     opts.Source,
		progress:   opts.Progress,
		interval:   interval,
		exportW:    opts.ExportWidth,
		exportH:    opts.ExportHeight,
		cards:      cards,
		spinner:    spin,
		help:       help.New(),
		keys:       defaultKeyMap,
		statusText: "Waiting for the first poll...",
	}
	if m.poller != nil {
		// Init issues the first fetch.
		m.inFlight = 1
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	return tea.Batch(
		fetchCmd(m.ctx, m.poller, m.poller.Next()),
		pollTickCmd(m.interval, m.generation),
		m.spinner.Tick,
	)
}

func pollTickCmd(interval time.Duration, generation int) tea.Cmd {
	return tea.Tick(interval, func(at time.Time) tea.Msg {
		return pollTickMsg{generation: generation, at: at}
	})
}

func fetchCmd(ctx context.Context, poller *service.Poller, seq uint64) tea.Cmd {
	return func() tea.Msg {
		return tickResultMsg{tick: poller.Poll(ctx, seq)}
	}
}

func exportCmd(store *storage.Store, source string, seq uint64, clients []storage.ClientExport, width, height int) tea.Cmd {
	return func() tea.Msg {
		summary, err := store.Save(source, seq, clients, width, height)
		return exportDoneMsg{summary: summary, err: err}
	}
}

// polling reports whether ticks should currently be scheduled.
func (m Model) polling() bool {
	return m.poller != nil && !m.paused && !m.suspended && !m.exhausted
}

// startFetch issues a new sequence number and fetches it. Fetches already in
// flight keep running; the reconciler discards whichever finishes stale.
func (m *Model) startFetch() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	cmds := []tea.Cmd{fetchCmd(m.ctx, m.poller, m.poller.Next())}
	if m.inFlight == 0 {
		cmds = append(cmds, m.spinner.Tick)
	}
	m.inFlight++
	return tea.Batch(cmds...)
}

// resume starts a fresh timer chain. Bumping the generation orphans any timer
// still pending from before a pause.
func (m *Model) resume() tea.Cmd {
	m.generation++
	return tea.Batch(m.startFetch(), pollTickCmd(m.interval, m.generation))
}

func (m *Model) suspend() {
	m.generation++
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizePanels()
		m.refreshCards()
		return m, nil

	case tea.BlurMsg:
		if m.suspended {
			return m, nil
		}
		m.suspended = true
		m.suspend()
		m.logger.Debug("polling suspended", "reason", "terminal blurred")
		return m, nil

	case tea.FocusMsg:
		if !m.suspended {
			return m, nil
		}
		m.suspended = false
		if !m.polling() {
			return m, nil
		}
		m.logger.Debug("polling resumed", "reason", "terminal focused")
		return m, m.resume()

	case spinner.TickMsg:
		if m.inFlight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pollTickMsg:
		if msg.generation != m.generation || !m.polling() {
			return m, nil
		}
		return m, tea.Batch(m.startFetch(), pollTickCmd(m.interval, m.generation))

	case tickResultMsg:
		m.inFlight = maxInt(0, m.inFlight-1)
		m.applyTick(msg.tick)
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.errorText = "Export failed: " + msg.err.Error()
			m.logger.Error("export failed", "error", msg.err)
			return m, nil
		}
		m.errorText = ""
		m.statusText = fmt.Sprintf("Exported %d chart(s) to %s", len(msg.summary.Clients), msg.summary.Directory)
		m.logger.Info("charts exported", "directory", msg.summary.Directory, "clients", len(msg.summary.Clients))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resizePanels()
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			if m.exhausted {
				return m, nil
			}
			m.paused = !m.paused
			if m.paused {
				m.suspend()
				return m, nil
			}
			if !m.polling() {
				return m, nil
			}
			return m, m.resume()
		case key.Matches(msg, m.keys.Refresh):
			if m.exhausted {
				return m, nil
			}
			return m, m.startFetch()
		case key.Matches(msg, m.keys.Export):
			if m.store == nil {
				m.errorText = "Export is not configured."
				return m, nil
			}
			m.errorText = ""
			m.statusText = "Exporting charts..."
			clients := m.board.Exports(m.reconciler)
			return m, exportCmd(m.store, m.source, m.reconciler.LastSequence(), clients, m.exportW, m.exportH)
		}
		var cmd tea.Cmd
		m.cards, cmd = m.cards.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.cards, cmd = m.cards.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyTick folds one fetch result into the board. Failed ticks leave the
// rendered state untouched.
func (m *Model) applyTick(tick service.Tick) {
	if tick.Err != nil {
		if errors.Is(tick.Err, service.ErrExhausted) {
			m.exhausted = true
			m.suspend()
			m.statusText = "Replay finished."
		}
		return
	}

	result, applied := m.reconciler.Apply(tick.Seq, tick.Records)
	if !applied {
		m.metrics.ObserveTick(telemetry.OutcomeStale)
		m.logger.Debug("stale tick dropped", "seq", tick.Seq, "latest", m.reconciler.LastSequence())
		return
	}
	m.metrics.ObserveReconcile(len(result.Created), len(result.Removed), result.Samples, m.reconciler.Len())
	if len(result.Created) > 0 || len(result.Removed) > 0 {
		m.logger.Info("clients changed",
			"seq", tick.Seq,
			"created", len(result.Created),
			"removed", len(result.Removed),
			"total", m.reconciler.Len(),
		)
	}
	m.lastUpdate = tick.StartedAt
	m.lastSeq = tick.Seq
	m.statusText = ""
	m.refreshCards()
}

func (m Model) View() string {
	if !m.ready {
		return "Booting wifiwatch..."
	}

	innerWidth := maxInt(40, m.width-2)
	innerHeight := maxInt(8, m.height-2)

	header := headerStyle.Render("wifiwatch") + cardMutedStyle.Render(m.source)

	statusLine := statusStyle.Render(m.statusPrefix() + " " + m.statusSummary())
	if strings.TrimSpace(m.errorText) != "" {
		statusLine = errorStyle.Render(m.errorText)
	}

	panel := renderPanel(
		fmt.Sprintf("Clients (%d)", m.board.Len()),
		m.cards.View(),
		m.cards.Width+2,
		m.cards.Height+1,
	)

	parts := []string{header, statusLine, panel, m.help.View(m.keys)}
	body := fitTextHeight(strings.Join(parts, "\n"), innerHeight)
	return lipgloss.NewStyle().
		Background(chromeBG).
		Foreground(chromeFG).
		Width(innerWidth).
		Height(innerHeight).
		Padding(0, 1).
		Render(body)
}

func (m Model) statusPrefix() string {
	switch {
	case m.inFlight > 0:
		return m.spinner.View()
	case m.paused || m.suspended:
		return "‖"
	default:
		return "*"
	}
}

func (m Model) statusSummary() string {
	parts := []string{}
	if text := strings.TrimSpace(m.statusText); text != "" {
		parts = append(parts, text)
	}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, "updated "+m.lastUpdate.Format("15:04:05"))
	}
	counts := m.board.BandCounts()
	bands := make([]string, 0, len(client.Bands))
	for _, band := range client.Bands {
		if counts[band] > 0 {
			bands = append(bands, fmt.Sprintf("%s %d", band, counts[band]))
		}
	}
	if len(bands) > 0 {
		parts = append(parts, strings.Join(bands, " · "))
	}
	if m.progress != nil {
		if text := m.progress(); text != "" {
			parts = append(parts, text)
		}
	}
	switch {
	case m.exhausted:
	case m.paused:
		parts = append(parts, "paused")
	case m.suspended:
		parts = append(parts, "paused while unfocused")
	default:
		parts = append(parts, "every "+m.interval.String())
	}
	return strings.Join(parts, " | ")
}

func renderPanel(title, body string, width, height int) string {
	style := panelStyle.Copy().
		Width(width).
		Height(height)
	return style.Render(panelTitleStyle.Render(title) + "\n" + body)
}

func (m *Model) resizePanels() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.help.Width = maxInt(20, m.width-4)

	helpLines := strings.Count(m.help.View(m.keys), "\n") + 1
	// header, status, panel border and title
	overhead := 2 + 3 + helpLines + 2
	m.cards.Width = maxInt(20, m.width-8)
	m.cards.Height = maxInt(3, m.height-overhead)
}

func (m *Model) refreshCards() {
	m.cards.SetContent(m.board.Render(m.cards.Width))
}

// Board exposes the rendered card set, mainly for tests and headless use.
func (m Model) Board() *Board {
	return m.board
}

func (m Model) Reconciler() *reconcile.Reconciler {
	return m.reconciler
}

// ChartCells converts a chart size in pixels to braille cells.
func ChartCells(width, height int) (int, int) {
	if width <= 0 {
		width = chart.DefaultWidth
	}
	if height <= 0 {
		height = chart.DefaultHeight
	}
	return clampInt(width/8, 12, 60), clampInt(height/15, 2, 8)
}

func fitTextHeight(text string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
