package config

import "github.com/spf13/pflag"

// BindFlags registers the shared client flags. Only flags the user actually
// sets override lower layers.
func BindFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.StringP(FlagConfigPath, "c", "", "path to a YAML or JSONC config file")
	fs.String(FlagName(KeyEndpoint), def.Endpoint, "wifi clients endpoint URL")
	fs.String(FlagName(KeyToken), "", "bearer token sent with each request")
	fs.Duration(FlagName(KeyPollInterval), def.PollInterval, "delay between polls")
	fs.Duration(FlagName(KeyRequestTimeout), def.RequestTimeout, "per-request timeout")
	fs.Int(FlagName(KeyHistoryLimit), def.HistoryLimit, "samples kept per client")
	fs.Int(FlagName(KeyChartWidth), def.ChartWidth, "chart width in pixels")
	fs.Int(FlagName(KeyChartHeight), def.ChartHeight, "chart height in pixels")
	fs.String(FlagName(KeyLogFile), "", "write logs to this file")
	fs.String(FlagName(KeyLogLevel), def.LogLevel, "log level: debug, info, warn, error")
	fs.String(FlagName(KeyMetricsAddr), "", "serve /metrics and /healthz on this address")
	fs.String(FlagName(KeyRecordPath), "", "record raw payloads to this file")
	fs.String(FlagName(KeyExportDir), def.ExportDir, "directory for chart exports")
	fs.Bool(FlagName(KeyNoColor), false, "disable colors")
}

func BindMockFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String(FlagName(KeyMockAddr), def.Mock.Addr, "listen address")
	fs.Int(FlagName(KeyMockClients), def.Mock.Clients, "number of simulated clients")
	fs.Float64(FlagName(KeyMockChurn), def.Mock.Churn, "probability a client joins or leaves per request")
	fs.Bool(FlagName(KeyMockWrap), false, `wrap the list in {"clients": [...]}`)
}
