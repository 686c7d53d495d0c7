package config

// Config is the daemon configuration. Files may be JSON or YAML; both are
// decoded strictly (unknown fields are rejected).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging      LoggingConfig      `json:"logging"`
	Storage      StorageConfig      `json:"storage"`
	Materializer MaterializerConfig `json:"materializer"`
	Notifier     NotifierConfig     `json:"notifier,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the sqlite persistence layer.
//
// Example:
//
//	"storage": { "path": "./taskmill.db" }
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// MaterializerConfig controls the batch pass and its trigger.
//
// Defaults (when fields are omitted/zero):
//   - schedule: "@every 1m"
//   - workers: 2
//   - timeout: "30s"
type MaterializerConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// NotifierConfig controls best-effort owner notifications. When the telegram
// block is omitted, notifications go to the log.
type NotifierConfig struct {
	Enabled    bool                    `json:"enabled"`
	QueueSize  int                     `json:"queue_size,omitempty"`
	RatePerSec int                     `json:"rate_per_sec,omitempty"`
	Telegram   *TelegramNotifierConfig `json:"telegram,omitempty"`
}

type TelegramNotifierConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}
