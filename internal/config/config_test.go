package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func noEnv(string) (string, bool) { return "", false }

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Loader{EnvFiles: []string{}, LookupEnv: noEnv}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Endpoint != DefaultEndpoint || cfg.PollInterval != 3*time.Second || cfg.HistoryLimit != 60 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ChartWidth != 240 || cfg.ChartHeight != 60 {
		t.Fatalf("unexpected chart defaults: %dx%d", cfg.ChartWidth, cfg.ChartHeight)
	}
}

func TestLoadFileYAMLAndJSONC(t *testing.T) {
	t.Parallel()

	yamlPath := writeFile(t, "wifiwatch.yaml", "endpoint: http://ap.local/api/wifi-clients\npoll_interval: 1500\nchart:\n  width: 120\n")
	cfg, err := Loader{Path: yamlPath, EnvFiles: []string{}, LookupEnv: noEnv}.Load()
	if err != nil {
		t.Fatalf("yaml Load returned error: %v", err)
	}
	if cfg.Endpoint != "http://ap.local/api/wifi-clients" || cfg.PollInterval != 1500*time.Millisecond || cfg.ChartWidth != 120 {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}

	jsonPath := writeFile(t, "wifiwatch.jsonc", `{
		// comments are allowed
		"history_limit": 30,
		"mock": {"wrap": true, "churn": 0.25},
	}`)
	cfg, err = Loader{Path: jsonPath, EnvFiles: []string{}, LookupEnv: noEnv}.Load()
	if err != nil {
		t.Fatalf("jsonc Load returned error: %v", err)
	}
	if cfg.HistoryLimit != 30 || !cfg.Mock.Wrap || cfg.Mock.Churn != 0.25 {
		t.Fatalf("jsonc values not applied: %+v", cfg)
	}
}

func TestLoadFileRejectsNonObject(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `["not","an","object"]`)
	_, _, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "top-level object") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFileRejectsURL(t *testing.T) {
	t.Parallel()

	_, _, err := LoadFile("https://example.com/config.yaml")
	if err == nil || !strings.Contains(err.Error(), "local filesystem paths") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", "chart:\n  colour: red\n")
	_, err := Loader{Path: path, EnvFiles: []string{}, LookupEnv: noEnv}.Load()
	if err == nil || !strings.Contains(err.Error(), `"chart.colour"`) {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	t.Parallel()

	filePath := writeFile(t, "config.yaml", "history_limit: 10\ntoken: from-file\nlog_level: debug\n")
	envFile := writeFile(t, ".env", "WIFIWATCH_HISTORY_LIMIT=20\nWIFIWATCH_TOKEN=from-dotenv\nWIFIWATCH_CHART_HEIGHT=40\n")
	env := map[string]string{"WIFIWATCH_HISTORY_LIMIT": "30"}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	if err := flags.Parse([]string{"--chart-height=50", "--config", filePath}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Loader{
		EnvFiles:  []string{envFile},
		Flags:     flags,
		LookupEnv: func(name string) (string, bool) { value, ok := env[name]; return value, ok },
	}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HistoryLimit != 30 {
		t.Fatalf("process env should beat .env and file, got %d", cfg.HistoryLimit)
	}
	if cfg.Token != "from-dotenv" {
		t.Fatalf(".env should beat file, got %q", cfg.Token)
	}
	if cfg.ChartHeight != 50 {
		t.Fatalf("flag should beat env, got %d", cfg.ChartHeight)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("file value should survive, got %q", cfg.LogLevel)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Fatalf("unset flag must not override, got %s", cfg.PollInterval)
	}
}

func TestValidateNamesKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key   string
		value string
	}{
		{KeyEndpoint, "ftp://ap.local"},
		{KeyPollInterval, "10ms"},
		{KeyHistoryLimit, "0"},
		{KeyHistoryLimit, "61"},
		{KeyChartWidth, "4"},
		{KeyLogLevel, "loud"},
		{KeyMockChurn, "1.5"},
	}
	for _, tc := range tests {
		cfg := Default()
		if err := cfg.Set(tc.key, tc.value); err != nil {
			t.Fatalf("Set(%q) returned error: %v", tc.key, err)
		}
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.key) {
			t.Fatalf("expected validation error naming %q, got %v", tc.key, err)
		}
	}
}

func TestSetRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Set(KeyHistoryLimit, "many"); err == nil {
		t.Fatalf("expected integer parse error")
	}
	if err := cfg.Set("colour", "red"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestFormatMasksToken(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Token = "secret"
	text, err := Format(cfg)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if strings.Contains(text, "secret") {
		t.Fatalf("token leaked: %s", text)
	}
	if !strings.Contains(text, "width: \"240\"") && !strings.Contains(text, "width: '240'") {
		t.Fatalf("expected nested chart width in:\n%s", text)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	if got := EnvName(KeyChartWidth); got != "WIFIWATCH_CHART_WIDTH" {
		t.Fatalf("EnvName = %q", got)
	}
	if got := FlagName(KeyPollInterval); got != "poll-interval" {
		t.Fatalf("FlagName = %q", got)
	}
}
