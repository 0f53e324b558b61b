package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"wifiwatch-tui/internal/app"
	"wifiwatch-tui/internal/reconcile"
	"wifiwatch-tui/internal/recording"
	"wifiwatch-tui/internal/service"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestCollectSnapshotDrainsReplay(t *testing.T) {
	t.Parallel()

	damaged := recording.NewFrame(2, time.Now(), []byte(`[{"id":"ghost"}]`))
	damaged.Verified = false
	source := recording.NewReplaySource([]recording.Frame{
		recording.NewFrame(1, time.Now(), []byte(`[{"id":"a","signal":-50},{"id":"b","signal":-70}]`)),
		damaged,
		recording.NewFrame(3, time.Now(), []byte(`[{"id":"a","signal":-52}]`)),
	}, false)

	board := app.NewBoard(0, 0)
	reconciler := reconcile.New(board)
	if err := collectSnapshot(context.Background(), service.NewPoller(source), reconciler, true); err != nil {
		t.Fatalf("collectSnapshot returned error: %v", err)
	}
	if board.Len() != 1 {
		t.Fatalf("expected only a to remain, got %d cards", board.Len())
	}
	if samples, _ := reconciler.History("a"); len(samples) != 2 {
		t.Fatalf("expected 2 samples for a, got %v", samples)
	}
}

func TestCollectSnapshotSingleFetchError(t *testing.T) {
	t.Parallel()

	source := recording.NewReplaySource(nil, false)
	err := collectSnapshot(context.Background(), service.NewPoller(source), reconcile.New(app.NewBoard(0, 0)), false)
	if err == nil {
		t.Fatalf("expected the fetch error to surface")
	}
}

func TestPrintSnapshotAlignsColumns(t *testing.T) {
	t.Parallel()

	board := app.NewBoard(0, 0)
	reconciler := reconcile.New(board)
	records := []byte(`[{"id":"aa:bb","name":"kitchen-ipad","signal":-48},{"id":"c","signal":null}]`)
	poller := service.NewPoller(recording.NewReplaySource([]recording.Frame{recording.NewFrame(1, time.Now(), records)}, false))
	if err := collectSnapshot(context.Background(), poller, reconciler, false); err != nil {
		t.Fatalf("collectSnapshot: %v", err)
	}

	var out bytes.Buffer
	printSnapshot(&out, board, reconciler)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[1], "aa:bb  kitchen-ipad  -48 dBm  strong") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "—") || !strings.Contains(lines[2], "unknown") {
		t.Fatalf("expected placeholder row, got %q", lines[2])
	}
}

func TestSnapshotCommandExportsCharts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"clients":[{"mac":"02:00:00:00:00:01","hostname":"tv","rssi":-77}]}`))
	}))
	defer server.Close()

	exportDir := t.TempDir()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"snapshot", "--endpoint", server.URL, "--export-dir", exportDir, "--png", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("snapshot returned error: %v", err)
	}
	if !strings.Contains(out.String(), "02:00:00:00:00:01") || !strings.Contains(out.String(), "weak") {
		t.Fatalf("unexpected snapshot output:\n%s", out.String())
	}
	matches, err := filepath.Glob(filepath.Join(exportDir, "exports", "*", "*.png"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one exported chart, got %v (%v)", matches, err)
	}
}

func TestReplayRejectsNonPositiveSpeed(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"replay", "--speed", "0", "missing.cbor.zst"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "--speed") {
		t.Fatalf("expected speed error, got %v", err)
	}
}

func TestConfigCommandPrintsFlags(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--history-limit", "12", "--token", "hunter2"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config returned error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "history_limit:") || !strings.Contains(text, "12") {
		t.Fatalf("expected history limit in output:\n%s", text)
	}
	if strings.Contains(text, "hunter2") {
		t.Fatalf("token must be masked:\n%s", text)
	}
}

func TestCollectSnapshotStopsWhenCancelled(t *testing.T) {
	t.Parallel()

	source := recording.NewReplaySource([]recording.Frame{
		recording.NewFrame(1, time.Now(), []byte(`[{"id":"a","signal":-50}]`)),
	}, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := collectSnapshot(ctx, service.NewPoller(source), reconcile.New(app.NewBoard(0, 0)), true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReplayProgressCountsFramesLeft(t *testing.T) {
	t.Parallel()

	source := recording.NewReplaySource([]recording.Frame{
		recording.NewFrame(1, time.Now(), []byte(`[]`)),
		recording.NewFrame(2, time.Now(), []byte(`[]`)),
	}, false)
	progress := replayProgress(source)
	if got := progress(); got != "2/2 frames left" {
		t.Fatalf("unexpected progress %q", got)
	}
	if _, err := source.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := progress(); got != "1/2 frames left" {
		t.Fatalf("unexpected progress %q", got)
	}
}
