package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	ERROR LogLevel = iota
	WARN
	INFO
	DEBUG
	TRACE
)

var levelNames = map[LogLevel]string{
	ERROR: "ERROR",
	WARN:  "WARN",
	INFO:  "INFO",
	DEBUG: "DEBUG",
	TRACE: "TRACE",
}

// Global is the process-wide logger. Packages that log without an injected
// logger check it for nil before use.
var Global *Logger

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Context   map[string]interface{}
}

// Logger provides structured logging with levels
type Logger struct {
	mu             sync.RWMutex
	level          LogLevel
	logDir         string
	fileName       string
	currentFile    *os.File
	buffer         []LogEntry
	maxBufferSize  int
	rotationPolicy RotationPolicy
	rateLimiters   map[string]time.Time
	console        io.Writer
	traceTags      map[string]bool
}

// RotationPolicy defines when log files are rotated and how many are kept.
type RotationPolicy struct {
	Enabled   bool
	MaxSizeMB int
	MaxFiles  int
}

// New creates a Logger writing to stdout and, when logDir is non-empty, to
// logDir/printmonitor.log.
func New(level LogLevel, logDir string, maxBufferSize int) *Logger {
	if maxBufferSize <= 0 {
		maxBufferSize = 1
	}
	return &Logger{
		level:         level,
		logDir:        logDir,
		fileName:      "printmonitor.log",
		buffer:        make([]LogEntry, 0, maxBufferSize),
		maxBufferSize: maxBufferSize,
		rateLimiters:  make(map[string]time.Time),
		console:       os.Stdout,
		traceTags:     make(map[string]bool),
		rotationPolicy: RotationPolicy{
			Enabled:   true,
			MaxSizeMB: 20,
			MaxFiles:  5,
		},
	}
}

// SetConsole replaces the console writer; nil disables console output.
func (l *Logger) SetConsole(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

// SetLevel changes the current log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetRotationPolicy configures log rotation
func (l *Logger) SetRotationPolicy(policy RotationPolicy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rotationPolicy = policy
}

func (l *Logger) Error(msg string, context ...interface{}) {
	l.log(ERROR, msg, context...)
}

func (l *Logger) Warn(msg string, context ...interface{}) {
	l.log(WARN, msg, context...)
}

// WarnRateLimited logs a warning at most once per interval for the given key.
// Used for devices that stay offline across many poll cycles.
func (l *Logger) WarnRateLimited(key string, interval time.Duration, msg string, context ...interface{}) {
	now := time.Now()
	l.mu.Lock()
	if last, ok := l.rateLimiters[key]; ok && now.Sub(last) < interval {
		l.mu.Unlock()
		return
	}
	l.rateLimiters[key] = now
	l.mu.Unlock()

	l.log(WARN, msg, context...)
}

func (l *Logger) Info(msg string, context ...interface{}) {
	l.log(INFO, msg, context...)
}

func (l *Logger) Debug(msg string, context ...interface{}) {
	l.log(DEBUG, msg, context...)
}

func (l *Logger) Trace(msg string, context ...interface{}) {
	l.log(TRACE, msg, context...)
}

// TraceTag logs at TRACE only if tag is enabled. With no tags enabled every
// trace message is logged.
func (l *Logger) TraceTag(tag string, msg string, context ...interface{}) {
	l.mu.RLock()
	enabled := l.traceTags[tag]
	anyEnabled := len(l.traceTags) > 0
	l.mu.RUnlock()

	if !anyEnabled || enabled {
		l.log(TRACE, msg, context...)
	}
}

// EnableTraceTag enables trace logging for a specific tag
func (l *Logger) EnableTraceTag(tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.traceTags[tag] = true
}

func (l *Logger) log(level LogLevel, msg string, context ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.level {
		return
	}

	ctx := make(map[string]interface{}, len(context)/2)
	for i := 0; i+1 < len(context); i += 2 {
		if key, ok := context[i].(string); ok {
			ctx[key] = context[i+1]
		}
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Context:   ctx,
	}

	if len(l.buffer) >= l.maxBufferSize {
		l.buffer = l.buffer[1:]
	}
	l.buffer = append(l.buffer, entry)

	line := formatLogEntry(entry)
	if l.console != nil {
		fmt.Fprintln(l.console, line)
	}
	if l.logDir != "" {
		l.writeToFile(line)
	}
}

func (l *Logger) writeToFile(line string) {
	if l.currentFile == nil {
		if err := os.MkdirAll(l.logDir, 0755); err != nil {
			return
		}
		f, err := os.OpenFile(filepath.Join(l.logDir, l.fileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		l.currentFile = f
	}

	if _, err := l.currentFile.WriteString(line + "\n"); err != nil {
		return
	}

	if l.shouldRotate() {
		l.rotate()
	}
}

// formatLogEntry renders "timestamp [LEVEL] message k=v ..." with context keys
// sorted so lines are stable across runs.
func formatLogEntry(entry LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("2006-01-02T15:04:05-07:00"))
	b.WriteString(" [")
	b.WriteString(levelNames[entry.Level])
	b.WriteString("] ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Context))
	for k := range entry.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Context[k])
	}
	return b.String()
}

func (l *Logger) shouldRotate() bool {
	if !l.rotationPolicy.Enabled || l.currentFile == nil || l.rotationPolicy.MaxSizeMB <= 0 {
		return false
	}
	stat, err := l.currentFile.Stat()
	if err != nil {
		return false
	}
	return stat.Size() >= int64(l.rotationPolicy.MaxSizeMB)*1024*1024
}

// rotate renames the current file with a timestamp suffix and prunes the
// oldest backups beyond MaxFiles.
func (l *Logger) rotate() {
	if l.currentFile == nil {
		return
	}
	l.currentFile.Close()
	l.currentFile = nil

	current := filepath.Join(l.logDir, l.fileName)
	base := strings.TrimSuffix(l.fileName, filepath.Ext(l.fileName))
	backup := filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", base, time.Now().Format("20060102_150405")))
	_ = os.Rename(current, backup)

	if l.rotationPolicy.MaxFiles <= 0 {
		return
	}
	files, err := filepath.Glob(filepath.Join(l.logDir, base+"_*.log"))
	if err != nil {
		return
	}
	sort.Strings(files)
	for i := 0; i < len(files)-l.rotationPolicy.MaxFiles; i++ {
		_ = os.Remove(files[i])
	}
}

// GetBuffer returns a copy of the in-memory log buffer
func (l *Logger) GetBuffer() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	buffer := make([]LogEntry, len(l.buffer))
	copy(buffer, l.buffer)
	return buffer
}

// Close closes the current log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentFile != nil {
		err := l.currentFile.Close()
		l.currentFile = nil
		return err
	}
	return nil
}

// LevelFromString converts a config string ("info", "DEBUG", ...) to a
// LogLevel, defaulting to INFO.
func LevelFromString(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return ERROR
	case "WARN", "WARNING":
		return WARN
	case "DEBUG":
		return DEBUG
	case "TRACE":
		return TRACE
	default:
		return INFO
	}
}

// LevelToString converts a LogLevel to a string
func LevelToString(level LogLevel) string {
	return levelNames[level]
}
