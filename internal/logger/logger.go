// Package logger configures the process-wide structured logger and
// exposes component-scoped loggers used across the bot.
package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logFile *os.File

	// L is the base logger all component loggers derive from.
	L *slog.Logger

	// TG logs Telegram transport events.
	TG *slog.Logger
	// DB logs database events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// Flow logs conversation engine events.
	Flow *slog.Logger
	// Orders logs order commit service events.
	Orders *slog.Logger
	// Handoff logs operator handoff events.
	Handoff *slog.Logger
	// Sweep logs background sweep events.
	Sweep *slog.Logger
)

func init() {
	// Component loggers are usable before Init, e.g. from tests; Init rewires
	// them onto the configured handler.
	L = slog.Default()
	wireComponents()
}

// Config selects level, format and an optional file sink.
type Config struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	Dir    string `yaml:"dir" envconfig:"LOG_DIR"`
	File   string `yaml:"file" envconfig:"LOG_FILE"`
}

// Init configures the global structured logger. It may be called only once;
// later calls are no-ops.
func Init(cfg Config) error {
	var initErr error
	initOnce.Do(func() {
		writers := []io.Writer{os.Stdout}
		if dir, file := strings.TrimSpace(cfg.Dir), strings.TrimSpace(cfg.File); dir != "" && file != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Printf("logger: failed to create log dir %s: %v", dir, err)
			} else {
				path := filepath.Join(dir, file)
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					log.Printf("logger: failed to open log file %s: %v", path, err)
				} else {
					logFile = f
					writers = append(writers, f)
				}
			}
		}

		out := io.MultiWriter(writers...)
		opts := &slog.HandlerOptions{Level: selectLevel(cfg.Level)}

		var handler slog.Handler
		switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
		case "text", "kv", "pretty":
			handler = slog.NewTextHandler(out, opts)
		default:
			handler = slog.NewJSONHandler(out, opts)
		}

		L = slog.New(handler)
		slog.SetDefault(L)
		wireComponents()
	})
	return initErr
}

func wireComponents() {
	TG = L.With("component", "tg")
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	Flow = L.With("component", "flow")
	Orders = L.With("component", "service.orders")
	Handoff = L.With("component", "handoff")
	Sweep = L.With("component", "sweep")
}

// Shutdown closes the optional file sink. Safe to call more than once.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	if L == nil {
		return slog.Default()
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

// RoundMS trims durations to whole milliseconds for stable log output.
func RoundMS(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

func selectLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
