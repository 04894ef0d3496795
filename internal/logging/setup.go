package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fuelcoach-go/internal/config"
	log "github.com/sirupsen/logrus"
)

var (
	logMux        sync.Mutex
	logFileHandle *os.File

	// consoleOutput is stderr so command output on stdout stays machine-readable.
	consoleOutput io.Writer = os.Stderr
)

// Redacted replaces the value of sensitive fields.
const Redacted = "[redacted]"

var sensitiveFields = map[string]struct{}{
	"access_token":  {},
	"refresh_token": {},
	"password":      {},
	"authorization": {},
}

// Setup configures the global logrus logger using runtime configuration.
// It is idempotent; the most recent call wins.
//
// The console gets warnings (everything with debug on). The optional log file
// always gets JSON at info level or below, independent of the console.
func Setup(cfg *config.Config) error {
	logMux.Lock()
	defer logMux.Unlock()

	debug := cfg != nil && cfg.Security.Debug
	consoleLevel := log.WarnLevel
	var consoleFormatter log.Formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	if debug {
		consoleLevel = log.DebugLevel
		consoleFormatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		}
	}

	if logFileHandle != nil {
		_ = logFileHandle.Close()
		logFileHandle = nil
	}

	hooks := make(log.LevelHooks)
	hooks.Add(redactHook{})
	hooks.Add(newWriterHook(consoleOutput, consoleFormatter, consoleLevel))
	level := consoleLevel

	if cfg != nil && cfg.Security.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Security.LogFile), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.Security.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFileHandle = file
		fileLevel := log.InfoLevel
		if debug {
			fileLevel = log.DebugLevel
		}
		hooks.Add(newWriterHook(file, &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}, fileLevel))
		if fileLevel > level {
			level = fileLevel
		}
	}

	// Writers are hooks; the logger's own output would duplicate them.
	std := log.StandardLogger()
	std.ReplaceHooks(hooks)
	log.SetOutput(io.Discard)
	log.SetFormatter(consoleFormatter)
	log.SetLevel(level)
	return nil
}

// writerHook writes entries at or above its level to one destination.
type writerHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter log.Formatter
	levels    []log.Level
}

func newWriterHook(w io.Writer, formatter log.Formatter, threshold log.Level) *writerHook {
	return &writerHook{w: w, formatter: formatter, levels: log.AllLevels[:threshold+1]}
}

func (h *writerHook) Levels() []log.Level { return h.levels }

func (h *writerHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// redactHook must be registered before any writerHook.
type redactHook struct{}

func (redactHook) Levels() []log.Level { return log.AllLevels }

func (redactHook) Fire(entry *log.Entry) error {
	for k := range entry.Data {
		if _, ok := sensitiveFields[strings.ToLower(k)]; ok {
			entry.Data[k] = Redacted
		}
	}
	return nil
}
