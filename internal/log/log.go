// Package log holds the process-wide zerolog logger and the per-component
// loggers derived from it.
package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers. They are rebuilt by Init, so long-lived holders
// should take a copy after the process has configured logging.
var (
	API    zerolog.Logger
	Shield zerolog.Logger
	Pool   zerolog.Logger
	RPC    zerolog.Logger
	Simnet zerolog.Logger
)

var (
	mu      sync.Mutex
	logFile *os.File
)

func init() {
	Logger = New(os.Stdout, "info", false)
	initComponentLoggers()
}

// Init configures the global logger. When file is non-empty, every entry
// is also appended to it as JSON, whatever the console format. Calling
// Init again replaces (and closes) the previous file sink.
func Init(level string, jsonOutput bool, file string) error {
	mu.Lock()
	defer mu.Unlock()

	var f *os.File
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return err
		}
		var err error
		f, err = os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
	}

	if f != nil {
		multi := zerolog.MultiLevelWriter(consoleWriter(os.Stdout, jsonOutput), f)
		Logger = zerolog.New(multi).Level(parseLevel(level)).With().Timestamp().Logger()
	} else {
		Logger = New(os.Stdout, level, jsonOutput)
	}
	initComponentLoggers()

	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	return nil
}

// Close detaches and closes the file sink, if any. Console output
// continues at the current level.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	Logger = zerolog.New(consoleWriter(os.Stdout, false)).Level(Logger.GetLevel()).With().Timestamp().Logger()
	initComponentLoggers()
	err := logFile.Close()
	logFile = nil
	return err
}

// New creates a standalone logger writing to w, colored unless
// jsonOutput is set.
func New(w io.Writer, level string, jsonOutput bool) zerolog.Logger {
	return zerolog.New(consoleWriter(w, jsonOutput)).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func consoleWriter(w io.Writer, jsonOutput bool) io.Writer {
	if jsonOutput {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

// parseLevel maps a level name to zerolog, falling back to info.
func parseLevel(level string) zerolog.Level {
	if !ValidLevel(level) {
		return zerolog.InfoLevel
	}
	lvl, _ := zerolog.ParseLevel(strings.ToLower(level))
	return lvl
}

// ValidLevel reports whether level is one of trace, debug, info, warn
// or error (case-insensitive).
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

func initComponentLoggers() {
	API = WithComponent("api")
	Shield = WithComponent("shield")
	Pool = WithComponent("pool")
	RPC = WithComponent("rpc")
	Simnet = WithComponent("simnet")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithRequest returns a logger tagged with a component and an HTTP
// request ID.
func WithRequest(component, requestID string) zerolog.Logger {
	return Logger.With().
		Str("component", component).
		Str("request_id", requestID).
		Logger()
}
