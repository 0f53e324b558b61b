package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wifiwatch-tui/internal/client"
	"wifiwatch-tui/internal/service"
	"wifiwatch-tui/internal/storage"
)

type staticSource struct {
	body []byte
	err  error
}

func (s staticSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.body, s.err
}

func mustRecords(t *testing.T, body string) []client.Record {
	t.Helper()
	records, err := client.Parse([]byte(body))
	if err != nil {
		t.Fatalf("parse %s: %v", body, err)
	}
	return records
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func tickMsg(t *testing.T, seq uint64, body string) tickResultMsg {
	return tickResultMsg{tick: service.Tick{Seq: seq, StartedAt: time.Now(), Records: mustRecords(t, body)}}
}

func TestTickResultCreatesCards(t *testing.T) {
	t.Parallel()

	m := NewModel(ModelOptions{})
	m, _ = update(t, m, tickMsg(t, 1, `[{"id":"a","name":"laptop","signal":-48},{"mac":"bb","rssi":"-70"}]`))

	if m.Board().Len() != 2 {
		t.Fatalf("expected 2 cards, got %d", m.Board().Len())
	}
	card, ok := m.Board().Card("a")
	if !ok {
		t.Fatalf("expected card for id a")
	}
	if card.Label() != "laptop" || card.SignalText() != "-48 dBm" || card.Band() != client.BandStrong {
		t.Fatalf("unexpected card state: %q %q %v", card.Label(), card.SignalText(), card.Band())
	}
	weak, _ := m.Board().Card("bb")
	if weak.Band() != client.BandWeak {
		t.Fatalf("expected weak band, got %v", weak.Band())
	}
	if rows := card.ChartRows(); len(rows) == 0 || strings.Trim(strings.Join(rows, ""), string(rune(0x2800))) == "" {
		t.Fatalf("expected a drawn chart, got %q", rows)
	}
}

func TestStaleTickIsDropped(t *testing.T) {
	t.Parallel()

	m := NewModel(ModelOptions{})
	m, _ = update(t, m, tickMsg(t, 2, `[{"id":"fresh","signal":-50}]`))
	m, _ = update(t, m, tickMsg(t, 1, `[{"id":"old","signal":-60}]`))

	if _, ok := m.Board().Card("old"); ok {
		t.Fatalf("stale tick must not create cards")
	}
	if _, ok := m.Board().Card("fresh"); !ok {
		t.Fatalf("stale tick must not remove cards")
	}
	if got, _ := m.Reconciler().History("fresh"); len(got) != 1 {
		t.Fatalf("stale tick must not append samples, got %v", got)
	}
}

func TestFailedTickLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	m := NewModel(ModelOptions{})
	m, _ = update(t, m, tickMsg(t, 1, `[{"id":"a","signal":-50}]`))
	m, _ = update(t, m, tickResultMsg{tick: service.Tick{Seq: 2, Err: errors.New("connection refused")}})

	if m.Board().Len() != 1 {
		t.Fatalf("failed tick removed cards")
	}
	if m.errorText != "" {
		t.Fatalf("fetch failures are not surfaced, got %q", m.errorText)
	}
	if m.Reconciler().LastSequence() != 1 {
		t.Fatalf("failed tick must not advance the applied sequence")
	}
}

func TestMalformedPayloadClearsCards(t *testing.T) {
	t.Parallel()

	m := NewModel(ModelOptions{})
	m, _ = update(t, m, tickMsg(t, 1, `[{"id":"a"},{"id":"b"}]`))
	m, _ = update(t, m, tickMsg(t, 2, `{"clients":"nope"}`))

	if m.Board().Len() != 0 {
		t.Fatalf("expected all cards removed, got %d", m.Board().Len())
	}
}

func TestBlurSuspendsAndFocusResumes(t *testing.T) {
	t.Parallel()

	poller := service.NewPoller(staticSource{body: []byte(`[]`)})
	m := NewModel(ModelOptions{Poller: poller, PollInterval: time.Second})
	staleGeneration := m.generation

	m, _ = update(t, m, tea.BlurMsg{})
	if !m.suspended {
		t.Fatalf("expected polling suspended on blur")
	}
	_, cmd := update(t, m, pollTickMsg{generation: m.generation})
	if cmd != nil {
		t.Fatalf("suspended model must not schedule ticks")
	}

	m, cmd = update(t, m, tea.FocusMsg{})
	if m.suspended || cmd == nil {
		t.Fatalf("expected focus to resume polling")
	}
	if _, cmd := update(t, m, pollTickMsg{generation: staleGeneration}); cmd != nil {
		t.Fatalf("timers from before the pause must be ignored")
	}
	if _, cmd := update(t, m, pollTickMsg{generation: m.generation}); cmd == nil {
		t.Fatalf("current timer should schedule the next tick")
	}
}

func TestPauseKeyToggles(t *testing.T) {
	t.Parallel()

	poller := service.NewPoller(staticSource{body: []byte(`[]`)})
	m := NewModel(ModelOptions{Poller: poller})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.paused {
		t.Fatalf("expected paused")
	}
	if !strings.Contains(m.statusSummary(), "paused") {
		t.Fatalf("status should mention pause: %q", m.statusSummary())
	}
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if m.paused || cmd == nil {
		t.Fatalf("expected resume with a fetch command")
	}
}

func TestPollerTickRoundTrip(t *testing.T) {
	t.Parallel()

	poller := service.NewPoller(staticSource{body: []byte(`{"clients":[{"hostname":"tv","signalDbm":[-82]}]}`)})
	m := NewModel(ModelOptions{Poller: poller})
	msg := fetchCmd(context.Background(), poller, poller.Next())()
	m, _ = update(t, m, msg)

	card, ok := m.Board().Card("tv")
	if !ok || card.Band() != client.BandPoor {
		t.Fatalf("expected poor card for tv, got %v %v", ok, card)
	}
	if m.inFlight != 0 {
		t.Fatalf("expected no fetch in flight, got %d", m.inFlight)
	}
}

func TestReplayExhaustionStopsPolling(t *testing.T) {
	t.Parallel()

	poller := service.NewPoller(staticSource{err: service.ErrExhausted})
	m := NewModel(ModelOptions{Poller: poller})
	m, _ = update(t, m, tickResultMsg{tick: poller.Poll(context.Background(), poller.Next())})

	if !m.exhausted || m.polling() {
		t.Fatalf("expected polling to stop after exhaustion")
	}
	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}); cmd != nil {
		t.Fatalf("refresh after exhaustion should do nothing")
	}
}

func TestStatusIncludesProgress(t *testing.T) {
	t.Parallel()

	m := NewModel(ModelOptions{Progress: func() string { return "3/9 frames left" }})
	if !strings.Contains(m.statusSummary(), "3/9 frames left") {
		t.Fatalf("status should include progress: %q", m.statusSummary())
	}
}

func TestExportWritesCharts(t *testing.T) {
	t.Parallel()

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	m := NewModel(ModelOptions{Store: store, Source: "test", ExportWidth: 64, ExportHeight: 24})
	m, _ = update(t, m, tickMsg(t, 1, `[{"id":"a","signal":-50},{"id":"b","signal":-75}]`))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if cmd == nil {
		t.Fatalf("expected export command")
	}
	m, _ = update(t, m, cmd())
	if m.errorText != "" {
		t.Fatalf("export failed: %s", m.errorText)
	}

	exports, err := store.List(0)
	if err != nil || len(exports) != 1 {
		t.Fatalf("expected one export, got %v, %v", exports, err)
	}
	for _, entry := range exports[0].Clients {
		if _, err := os.Stat(filepath.Join(exports[0].Directory, entry.Chart)); err != nil {
			t.Fatalf("missing chart %s: %v", entry.Chart, err)
		}
	}
}

func TestExportWithoutStoreShowsError(t *testing.T) {
	t.Parallel()

	m := NewModel(ModelOptions{})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if cmd != nil || m.errorText == "" {
		t.Fatalf("expected an error and no command")
	}
}

func TestViewStaysWithinWindowHeight(t *testing.T) {
	t.Parallel()

	m := NewModel(ModelOptions{Source: "http://ap.local/api/wifi-clients"})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 24})
	body := `[`
	for i := 0; i < 12; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"signal":-60}`
	}
	m, _ = update(t, m, tickMsg(t, 1, body+`]`))

	view := m.View()
	if lines := strings.Count(view, "\n") + 1; lines > 24 {
		t.Fatalf("view has %d lines, window is 24", lines)
	}
	if !strings.Contains(view, "Clients (12)") {
		t.Fatalf("expected client count in view")
	}
}

func TestChartCells(t *testing.T) {
	t.Parallel()

	if cols, rows := ChartCells(240, 60); cols != 30 || rows != 4 {
		t.Fatalf("ChartCells(240, 60) = %d, %d", cols, rows)
	}
	if cols, rows := ChartCells(0, 0); cols != 30 || rows != 4 {
		t.Fatalf("defaults not applied: %d, %d", cols, rows)
	}
	if cols, rows := ChartCells(8, 8); cols != 12 || rows != 2 {
		t.Fatalf("minimums not applied: %d, %d", cols, rows)
	}
}
