package configstore

import (
	"path/filepath"
	"time"

	"utprint/lib/configutil"
	"utprint/lib/pharos"
	"utprint/lib/telemetry"
)

const (
	SettingsFilename   = "settings.json5"
	DefaultAddFundsUrl = "https://utdirect.utexas.edu/bevobucks/addBucks.WBX"
	historyDisabled    = "-"
)

// Settings are rarely changed knobs, read from settings.json5 and
// settings.local.json5 in the config directory.
type Settings struct {
	BaseUrl               string  `json:"base_url"`
	AddFundsUrl           string  `json:"add_funds_url"`
	PollIntervalSeconds   float64 `json:"poll_interval_seconds"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds"`
	// 0 waits forever
	JobTimeoutSeconds *int             `json:"job_timeout_seconds"`
	CloudflareBypass  bool             `json:"cloudflare_bypass"`
	HistoryFile       string           `json:"history_file"`
	Telemetry         telemetry.Config `json:"telemetry"`
}

func DefaultSettings() Settings {
	jobTimeout := 600
	return Settings{
		BaseUrl:               pharos.DefaultBaseUrl,
		AddFundsUrl:           DefaultAddFundsUrl,
		PollIntervalSeconds:   3,
		RequestTimeoutSeconds: 30,
		JobTimeoutSeconds:     &jobTimeout,
		HistoryFile:           "history.db",
	}
}

func (s Store) LoadSettings() (Settings, error) {
	return configutil.ReadConfigOr(filepath.Join(s.dir, SettingsFilename), DefaultSettings())
}

func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds * float64(time.Second))
}

func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

func (s Settings) JobTimeout() time.Duration {
	if s.JobTimeoutSeconds == nil {
		return 0
	}
	return time.Duration(*s.JobTimeoutSeconds) * time.Second
}

// HistoryPath resolves the history database relative to dir, it returns
// "" when history is disabled.
func (s Settings) HistoryPath(dir string) string {
	if s.HistoryFile == historyDisabled || s.HistoryFile == "" {
		return ""
	}
	if filepath.IsAbs(s.HistoryFile) {
		return s.HistoryFile
	}
	return filepath.Join(dir, s.HistoryFile)
}
