/**
 * Logger Implementation for SqlProvider
 *
 * Logging facade over zerolog. Every level is gated by an enabled check
 * before any field is formatted, components get their own child loggers,
 * and output can go to stdout, stderr or a size-rotated file.
 *
 * Author: SqlProvider Team
 * Created: 2025-01-29
 */

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with additional functionality.
type Logger struct {
	config *Config
	logger zerolog.Logger
}

// Config configures the logger behavior.
type Config struct {
	Output        io.Writer
	Fields        map[string]interface{}
	Level         string
	TimeFormat    string
	Pretty        bool
	IncludeCaller bool
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = &Config{
	Level:         "info",
	Output:        os.Stdout,
	Pretty:        false,
	IncludeCaller: false,
	Fields:        make(map[string]interface{}),
	TimeFormat:    time.RFC3339,
}

type contextKey struct{}

var loggerKey = contextKey{}

// New creates a new logger instance.
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig
	}

	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	timeFormat := config.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	if config.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: timeFormat,
			NoColor:    output != os.Stdout && output != os.Stderr,
		}
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	for k, v := range config.Fields {
		logger = logger.With().Interface(k, v).Logger()
	}

	if config.IncludeCaller {
		logger = logger.With().CallerWithSkipFrameCount(3).Logger()
	}

	return &Logger{
		logger: logger,
		config: config,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop(), config: DefaultConfig}
}

// WithContext adds the logger to context.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves logger from context, falling back to the global one.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Global()
}

// With creates a child logger with additional key/value fields.
func (l *Logger) With(fields ...interface{}) *Logger {
	child := l.logger.With()

	for i := 0; i < len(fields)-1; i += 2 {
		if key, ok := fields[i].(string); ok {
			child = child.Interface(key, fields[i+1])
		}
	}

	return &Logger{
		logger: child.Logger(),
		config: l.config,
	}
}

// WithFields creates a child logger from a field map.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	child := l.logger.With()
	for k, v := range fields {
		child = child.Interface(k, v)
	}
	return &Logger{
		logger: child.Logger(),
		config: l.config,
	}
}

// WithField creates a child logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
		config: l.config,
	}
}

// ForComponent returns a child logger tagged with the component name.
func (l *Logger) ForComponent(name string) *Logger {
	return l.WithField("component", name)
}

func (l *Logger) enabled(level zerolog.Level) bool {
	return level >= l.logger.GetLevel() && level >= zerolog.GlobalLevel()
}

// IsTraceEnabled reports whether trace messages are written.
func (l *Logger) IsTraceEnabled() bool { return l.enabled(zerolog.TraceLevel) }

// IsDebugEnabled reports whether debug messages are written.
func (l *Logger) IsDebugEnabled() bool { return l.enabled(zerolog.DebugLevel) }

// IsInfoEnabled reports whether info messages are written.
func (l *Logger) IsInfoEnabled() bool { return l.enabled(zerolog.InfoLevel) }

// IsWarnEnabled reports whether warnings are written.
func (l *Logger) IsWarnEnabled() bool { return l.enabled(zerolog.WarnLevel) }

// IsErrorEnabled reports whether errors are written.
func (l *Logger) IsErrorEnabled() bool { return l.enabled(zerolog.ErrorLevel) }

// IsFatalEnabled reports whether fatal messages are written.
func (l *Logger) IsFatalEnabled() bool { return l.enabled(zerolog.FatalLevel) }

// Trace logs a trace message for detailed debugging.
func (l *Logger) Trace(msg string, fields ...interface{}) {
	if !l.IsTraceEnabled() {
		return
	}
	l.logEvent(l.logger.Trace(), msg, fields...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...interface{}) {
	if !l.IsDebugEnabled() {
		return
	}
	l.logEvent(l.logger.Debug(), msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...interface{}) {
	if !l.IsInfoEnabled() {
		return
	}
	l.logEvent(l.logger.Info(), msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...interface{}) {
	if !l.IsWarnEnabled() {
		return
	}
	l.logEvent(l.logger.Warn(), msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(err error, msg string, fields ...interface{}) {
	if !l.IsErrorEnabled() {
		return
	}
	event := l.logger.Error()
	if err != nil {
		event = event.Err(err)
	}
	l.logEvent(event, msg, fields...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(err error, msg string, fields ...interface{}) {
	event := l.logger.Fatal()
	if err != nil {
		event = event.Err(err)
	}
	l.logEvent(event, msg, fields...)
}

// logEvent processes field pairs and sends the log event.
func (l *Logger) logEvent(event *zerolog.Event, msg string, fields ...interface{}) {
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}

	event.Msg(msg)
}

// LogOperation logs the start and end of an operation.
func (l *Logger) LogOperation(op string, fn func() error) error {
	start := time.Now()
	l.Debug("Operation started", "operation", op)

	err := fn()

	duration := time.Since(start)
	if err != nil {
		l.Error(err, "Operation failed",
			"operation", op,
			"duration", duration,
		)
	} else {
		l.Info("Operation completed",
			"operation", op,
			"duration", duration,
		)
	}

	return err
}

// SetLevel changes the logger level dynamically.
func (l *Logger) SetLevel(level string) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	l.logger = l.logger.Level(parsedLevel)
	return nil
}

// Level returns the current level name.
func (l *Logger) Level() string {
	return l.logger.GetLevel().String()
}

var global *Logger

// Init initializes the global logger.
func Init(config *Config) {
	global = New(config)
	log.Logger = global.logger
}

// SetGlobal installs l as the global logger.
func SetGlobal(l *Logger) {
	global = l
	log.Logger = l.logger
}

// Global returns the global logger instance.
func Global() *Logger {
	if global == nil {
		Init(DefaultConfig)
	}
	return global
}

// Debug logs a debug message using global logger.
func Debug(msg string, fields ...interface{}) {
	Global().Debug(msg, fields...)
}

// Info logs an info message using global logger.
func Info(msg string, fields ...interface{}) {
	Global().Info(msg, fields...)
}

// Warn logs a warning message using global logger.
func Warn(msg string, fields ...interface{}) {
	Global().Warn(msg, fields...)
}

// Error logs an error message using global logger.
func Error(err error, msg string, fields ...interface{}) {
	Global().Error(err, msg, fields...)
}

// Fatal logs a fatal message using global logger and exits.
func Fatal(err error, msg string, fields ...interface{}) {
	Global().Fatal(err, msg, fields...)
}

// NewDevelopmentConfig creates a config suitable for development.
func NewDevelopmentConfig() *Config {
	return &Config{
		Level:         "debug",
		Output:        os.Stderr,
		Pretty:        true,
		IncludeCaller: true,
		Fields: map[string]interface{}{
			"env": "development",
		},
		TimeFormat: "15:04:05",
	}
}

// NewProductionConfig creates a config suitable for production.
func NewProductionConfig() *Config {
	return &Config{
		Level:         "info",
		Output:        os.Stdout,
		Pretty:        false,
		IncludeCaller: false,
		Fields: map[string]interface{}{
			"env": "production",
		},
		TimeFormat: time.RFC3339,
	}
}

// OutputConfig describes where log lines go, as read from the log section
// of the configuration file.
type OutputConfig struct {
	Level      string
	Format     string // json, pretty
	Output     string // stdout, stderr, file
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// NewFromOutput builds a logger for cfg. The returned close function
// releases the log file, if any.
func NewFromOutput(cfg OutputConfig) (*Logger, func() error, error) {
	closer := func() error { return nil }

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	case "file":
		if cfg.File == "" {
			return nil, closer, fmt.Errorf("log output is file but no log file is configured")
		}
		maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
		if maxSize <= 0 {
			maxSize = 10 * 1024 * 1024
		}
		fw, err := NewFileWriter(cfg.File, maxSize, cfg.MaxBackups)
		if err != nil {
			return nil, closer, fmt.Errorf("failed to open log file: %w", err)
		}
		output = fw
		closer = fw.Close
	default:
		return nil, closer, fmt.Errorf("unknown log output %q", cfg.Output)
	}

	return New(&Config{
		Level:      cfg.Level,
		Output:     output,
		Pretty:     cfg.Format == "pretty",
		TimeFormat: time.RFC3339,
	}), closer, nil
}

// FileWriter creates a file writer with rotation support.
type FileWriter struct {
	file       *os.File
	filename   string
	maxSize    int64
	maxBackups int
}

// NewFileWriter creates a new file writer.
func NewFileWriter(filename string, maxSize int64, maxBackups int) (*FileWriter, error) {
	fw := &FileWriter{
		filename:   filename,
		maxSize:    maxSize,
		maxBackups: maxBackups,
	}

	if err := fw.openFile(); err != nil {
		return nil, err
	}

	return fw, nil
}

// Write implements io.Writer.
func (fw *FileWriter) Write(p []byte) (n int, err error) {
	if fw.file != nil {
		info, err := fw.file.Stat()
		if err == nil && info.Size() > 0 && info.Size()+int64(len(p)) > fw.maxSize {
			if err := fw.rotate(); err != nil {
				return 0, err
			}
		}
	}

	return fw.file.Write(p)
}

// Close closes the file writer.
func (fw *FileWriter) Close() error {
	if fw.file != nil {
		return fw.file.Close()
	}
	return nil
}

func (fw *FileWriter) openFile() error {
	if err := os.MkdirAll(filepath.Dir(fw.filename), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(fw.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	fw.file = file
	return nil
}

// rotate shifts file.N to file.N+1, keeping at most maxBackups.
func (fw *FileWriter) rotate() error {
	if err := fw.file.Close(); err != nil {
		return err
	}

	if fw.maxBackups <= 0 {
		if err := os.Remove(fw.filename); err != nil && !os.IsNotExist(err) {
			return err
		}
		return fw.openFile()
	}

	for i := fw.maxBackups - 1; i > 0; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", fw.filename, i), fmt.Sprintf("%s.%d", fw.filename, i+1))
	}

	if err := os.Rename(fw.filename, fw.filename+".1"); err != nil {
		return err
	}

	return fw.openFile()
}
