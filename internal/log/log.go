// Package log provides structured file logging for passflow.
// Entries carry a level, a category and key=value fields. Logging stays off
// unless enabled with --debug or PASSFLOW_DEBUG.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/passflow/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Category groups related log messages.
type Category string

const (
	CatFlow    Category = "flow"    // Flow registration and resolution
	CatPass    Category = "pass"    // Pass execution
	CatBackend Category = "backend" // Backend bring-up and pipeline files
	CatConfig  Category = "config"  // Configuration loading/saving
	CatDB      Category = "db"      // Run history database
	CatCache   Category = "cache"   // Plan cache
	CatWatcher Category = "watcher" // Pipeline directory watcher
	CatTrace   Category = "trace"   // Tracing provider
)

// EntryEvent is the event type published for every written log line.
const EntryEvent pubsub.EventType = "log.entry"

// Logger provides structured logging.
type Logger struct {
	mu       sync.Mutex
	closer   io.Closer
	writer   io.Writer
	enabled  bool
	minLevel Level
	broker   *pubsub.Broker[string]
}

var defaultLogger *Logger

// InitWithTeaLog opens path through tea.LogToFile. Besides this package's
// output, the standard library logger used by dependencies is routed to the
// same file with prefix.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	defaultLogger = newLogger(f, f)
	return closeFunc(defaultLogger), nil
}

// InitWriter routes the global log to w. Intended for tests and for commands
// that stream log output to the terminal.
func InitWriter(w io.Writer) func() {
	defaultLogger = newLogger(w, nil)
	return closeFunc(defaultLogger)
}

func newLogger(w io.Writer, c io.Closer) *Logger {
	return &Logger{
		closer:   c,
		writer:   w,
		enabled:  true,
		minLevel: LevelDebug,
		broker:   pubsub.NewBroker[string](),
	}
}

func closeFunc(l *Logger) func() {
	return func() {
		l.broker.Close()
		if l.closer != nil {
			_ = l.closer.Close()
		}
	}
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if defaultLogger != nil {
		defaultLogger.mu.Lock()
		defaultLogger.enabled = enabled
		defaultLogger.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if defaultLogger != nil {
		defaultLogger.mu.Lock()
		defaultLogger.minLevel = level
		defaultLogger.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(LevelError, cat, msg, fields...)
}

// ErrorErr logs msg at error level with err attached as the error field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	write(LevelError, cat, msg, fields...)
}

// Format renders one log line without the trailing newline:
// 2025-12-06T10:45:00 [ERROR] [flow] message key=value key2=value2
func Format(ts time.Time, level Level, cat Category, msg string, fields ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", ts.Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	return b.String()
}

func write(level Level, cat Category, msg string, fields ...any) {
	l := defaultLogger
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel {
		return
	}

	entry := Format(time.Now(), level, cat, msg, fields...) + "\n"
	if l.writer != nil {
		_, _ = io.WriteString(l.writer, entry)
	}
	l.broker.Publish(EntryEvent, entry)
}

// Subscribe returns a channel receiving every log line written after the
// call. The channel closes when ctx is done. Returns nil when logging was
// never initialized.
func Subscribe(ctx context.Context) <-chan pubsub.Event[string] {
	if defaultLogger == nil {
		return nil
	}
	return defaultLogger.broker.Subscribe(ctx)
}
