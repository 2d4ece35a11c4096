package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// LogOptions selects where the application logger writes.
type LogOptions struct {
	Dir     string
	Console bool
	Debug   bool
}

// Logs is the constructed application logger and the files behind it.
type Logs struct {
	Logger       zerolog.Logger
	AppLogPath   string
	ErrorLogPath string

	files []*os.File
}

// NewLogger opens a per-run app log, which receives every event at the
// configured level, and an error log, which receives error and above.
func NewLogger(opts LogOptions) (*Logs, error) {
	if err := EnsureDir(opts.Dir); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	logs := &Logs{
		AppLogPath:   filepath.Join(opts.Dir, "thoughtprint_app_"+stamp+".log"),
		ErrorLogPath: filepath.Join(opts.Dir, "thoughtprint_error_"+stamp+".log"),
	}

	appFile, err := openLogFile(logs.AppLogPath)
	if err != nil {
		return nil, err
	}
	errFile, err := openLogFile(logs.ErrorLogPath)
	if err != nil {
		appFile.Close()
		return nil, err
	}
	logs.files = []*os.File{appFile, errFile}

	writers := []io.Writer{appFile, errorOnly{w: errFile}}
	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	logs.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logs, nil
}

func (l *Logs) Close() error {
	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Create with secure permissions (0600 - logs may contain prompts)
func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

// errorOnly forwards events at error level and above.
type errorOnly struct {
	w io.Writer
}

func (e errorOnly) Write(p []byte) (int, error) {
	return len(p), nil
}

func (e errorOnly) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel {
		return len(p), nil
	}
	return e.w.Write(p)
}
