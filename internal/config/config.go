// Package config resolves wifiwatch settings from defaults, an optional YAML
// or JSONC file, .env files, WIFIWATCH_* environment variables and flags, in
// that order of increasing precedence.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wifiwatch-tui/internal/history"
)

const (
	KeyEndpoint       = "endpoint"
	KeyToken          = "token"
	KeyPollInterval   = "poll_interval"
	KeyRequestTimeout = "request_timeout"
	KeyHistoryLimit   = "history_limit"
	KeyChartWidth     = "chart.width"
	KeyChartHeight    = "chart.height"
	KeyLogFile        = "log_file"
	KeyLogLevel       = "log_level"
	KeyMetricsAddr    = "metrics_addr"
	KeyRecordPath     = "record_path"
	KeyExportDir      = "export_dir"
	KeyNoColor        = "no_color"
	KeyMockAddr       = "mock.addr"
	KeyMockClients    = "mock.clients"
	KeyMockChurn      = "mock.churn"
	KeyMockWrap       = "mock.wrap"
)

// Keys lists every recognised key in display order.
var Keys = []string{
	KeyEndpoint,
	KeyToken,
	KeyPollInterval,
	KeyRequestTimeout,
	KeyHistoryLimit,
	KeyChartWidth,
	KeyChartHeight,
	KeyLogFile,
	KeyLogLevel,
	KeyMetricsAddr,
	KeyRecordPath,
	KeyExportDir,
	KeyNoColor,
	KeyMockAddr,
	KeyMockClients,
	KeyMockChurn,
	KeyMockWrap,
}

const (
	DefaultEndpoint       = "http://127.0.0.1:8080/api/wifi-clients"
	DefaultPollInterval   = 3000 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
	DefaultHistoryLimit   = 60
	DefaultChartWidth     = 240
	DefaultChartHeight    = 60
	DefaultLogLevel       = "info"
	DefaultExportDir      = "wifiwatch-exports"
	DefaultMockAddr       = "127.0.0.1:8080"
	DefaultMockClients    = 6
	DefaultMockChurn      = 0.1

	minPollInterval = 100 * time.Millisecond
	minChartSide    = 8
)

type MockConfig struct {
	Addr    string
	Clients int
	Churn   float64
	Wrap    bool
}

type Config struct {
	Endpoint       string
	Token          string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	HistoryLimit   int
	ChartWidth     int
	ChartHeight    int
	LogFile        string
	LogLevel       string
	MetricsAddr    string
	RecordPath     string
	ExportDir      string
	NoColor        bool
	Mock           MockConfig
}

func Default() Config {
	return Config{
		Endpoint:       DefaultEndpoint,
		PollInterval:   DefaultPollInterval,
		RequestTimeout: DefaultRequestTimeout,
		HistoryLimit:   DefaultHistoryLimit,
		ChartWidth:     DefaultChartWidth,
		ChartHeight:    DefaultChartHeight,
		LogLevel:       DefaultLogLevel,
		ExportDir:      DefaultExportDir,
		Mock: MockConfig{
			Addr:    DefaultMockAddr,
			Clients: DefaultMockClients,
			Churn:   DefaultMockChurn,
		},
	}
}

// Set assigns one key from its textual form. Durations accept Go duration
// syntax or a bare number of milliseconds.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case KeyEndpoint:
		c.Endpoint = value
	case KeyToken:
		c.Token = value
	case KeyPollInterval:
		c.PollInterval, err = parseDuration(value)
	case KeyRequestTimeout:
		c.RequestTimeout, err = parseDuration(value)
	case KeyHistoryLimit:
		c.HistoryLimit, err = strconv.Atoi(value)
	case KeyChartWidth:
		c.ChartWidth, err = strconv.Atoi(value)
	case KeyChartHeight:
		c.ChartHeight, err = strconv.Atoi(value)
	case KeyLogFile:
		c.LogFile = value
	case KeyLogLevel:
		c.LogLevel = strings.ToLower(value)
	case KeyMetricsAddr:
		c.MetricsAddr = value
	case KeyRecordPath:
		c.RecordPath = value
	case KeyExportDir:
		c.ExportDir = value
	case KeyNoColor:
		c.NoColor, err = strconv.ParseBool(value)
	case KeyMockAddr:
		c.Mock.Addr = value
	case KeyMockClients:
		c.Mock.Clients, err = strconv.Atoi(value)
	case KeyMockChurn:
		c.Mock.Churn, err = strconv.ParseFloat(value, 64)
	case KeyMockWrap:
		c.Mock.Wrap, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err != nil {
		return fmt.Errorf("config key %q: invalid value %q: %w", key, value, err)
	}
	return nil
}

// Get renders one key in the form Set accepts.
func (c Config) Get(key string) (string, bool) {
	switch key {
	case KeyEndpoint:
		return c.Endpoint, true
	case KeyToken:
		return c.Token, true
	case KeyPollInterval:
		return c.PollInterval.String(), true
	case KeyRequestTimeout:
		return c.RequestTimeout.String(), true
	case KeyHistoryLimit:
		return strconv.Itoa(c.HistoryLimit), true
	case KeyChartWidth:
		return strconv.Itoa(c.ChartWidth), true
	case KeyChartHeight:
		return strconv.Itoa(c.ChartHeight), true
	case KeyLogFile:
		return c.LogFile, true
	case KeyLogLevel:
		return c.LogLevel, true
	case KeyMetricsAddr:
		return c.MetricsAddr, true
	case KeyRecordPath:
		return c.RecordPath, true
	case KeyExportDir:
		return c.ExportDir, true
	case KeyNoColor:
		return strconv.FormatBool(c.NoColor), true
	case KeyMockAddr:
		return c.Mock.Addr, true
	case KeyMockClients:
		return strconv.Itoa(c.Mock.Clients), true
	case KeyMockChurn:
		return strconv.FormatFloat(c.Mock.Churn, 'f', -1, 64), true
	case KeyMockWrap:
		return strconv.FormatBool(c.Mock.Wrap), true
	}
	return "", false
}

func (c Config) Validate() error {
	endpoint, err := url.Parse(c.Endpoint)
	if err != nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return fmt.Errorf("config key %q: expected an http(s) URL, got %q", KeyEndpoint, c.Endpoint)
	}
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("config key %q: must be at least %s", KeyPollInterval, minPollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config key %q: must be positive", KeyRequestTimeout)
	}
	if c.HistoryLimit < 1 || c.HistoryLimit > history.MaxSamples {
		return fmt.Errorf("config key %q: must be between 1 and %d", KeyHistoryLimit, history.MaxSamples)
	}
	if c.ChartWidth < minChartSide {
		return fmt.Errorf("config key %q: must be at least %d", KeyChartWidth, minChartSide)
	}
	if c.ChartHeight < minChartSide {
		return fmt.Errorf("config key %q: must be at least %d", KeyChartHeight, minChartSide)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config key %q: unknown level %q", KeyLogLevel, c.LogLevel)
	}
	if c.Mock.Clients < 0 {
		return fmt.Errorf("config key %q: must not be negative", KeyMockClients)
	}
	if c.Mock.Churn < 0 || c.Mock.Churn > 1 {
		return fmt.Errorf("config key %q: must be between 0 and 1", KeyMockChurn)
	}
	return nil
}

func parseDuration(value string) (time.Duration, error) {
	if ms, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
	return time.ParseDuration(value)
}
