// Package logger builds the zap-backed logr.Logger used across hostbridge.
package logger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"

	diagnosticsFilePerm   = 0o600
	diagnosticsFolderPerm = 0o700
)

// Options controls where log output goes.
type Options struct {
	// Level is the console level name ("debug", "info", "error") or a
	// positive debug verbosity. Empty means info.
	Level string

	// DiagnosticsDir enables a JSON diagnostics log in this folder when set.
	DiagnosticsDir string

	// DiagnosticsLevel is the level for the diagnostics log. Empty means debug.
	DiagnosticsLevel string
}

type Logger struct {
	logr.Logger
	name        string
	atomicLevel zap.AtomicLevel
	logFile     string
	flush       func()
}

// New creates a logger writing human readable output to stderr and, if
// configured, machine readable output to a diagnostics file.
func New(name string, opts Options) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if runtime.GOOS == "windows" {
		encoderConfig.LineEnding = "\r\n"
	}

	consoleLevel := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	var levelErr error
	if opts.Level != "" {
		if lvl, err := ParseLevel(opts.Level); err != nil {
			levelErr = err
		} else {
			consoleLevel.SetLevel(lvl)
		}
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), consoleLevel),
	}

	var diagnosticsErr error
	var logFile string
	if opts.DiagnosticsDir != "" {
		core, path, err := diagnosticsCore(name, opts, encoderConfig)
		if err != nil {
			diagnosticsErr = err
		} else {
			cores = append(cores, core)
			logFile = path
		}
	}

	zapLogger := zap.New(zapcore.NewTee(cores...))
	log := zapr.NewLogger(zapLogger).WithName(name)

	if levelErr != nil {
		log.Error(levelErr, "ignoring log level setting")
	}
	if diagnosticsErr != nil {
		log.Error(diagnosticsErr, "failed to enable diagnostics log output")
	}

	return &Logger{
		Logger:      log,
		name:        name,
		atomicLevel: consoleLevel,
		logFile:     logFile,
		flush: func() {
			_ = zapLogger.Sync()
		},
	}
}

func (l *Logger) SetLevel(level zapcore.Level) {
	l.atomicLevel.SetLevel(level)
}

func (l *Logger) Level() zapcore.Level {
	return l.atomicLevel.Level()
}

// DiagnosticsFile returns the path of the diagnostics log, or "" if there is none.
func (l *Logger) DiagnosticsFile() string {
	return l.logFile
}

func (l *Logger) Flush() {
	l.flush()
}

// AddLevelFlag adds a verbosity flag that sets the console log level.
func (l *Logger) AddLevelFlag(fs *pflag.FlagSet) {
	levelVal := newLevelFlagValue(l.SetLevel)
	fs.VarP(&levelVal, verbosityFlagName, verbosityFlagShortName, "Logging verbosity level (e.g. -v=debug). Can be one of 'debug', 'info', or 'error', or any positive integer corresponding to increasing levels of debug verbosity.")
}

func diagnosticsCore(name string, opts Options, encoderConfig zapcore.EncoderConfig) (zapcore.Core, string, error) {
	level := zapcore.DebugLevel
	if opts.DiagnosticsLevel != "" {
		lvl, err := ParseLevel(opts.DiagnosticsLevel)
		if err != nil {
			return nil, "", err
		}
		level = lvl
	}

	if err := ensureFolder(opts.DiagnosticsDir); err != nil {
		return nil, "", err
	}

	// Two processes started in the same millisecond pick the same name, so
	// the file is created exclusively and the name retried.
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(20*time.Millisecond),
		backoff.WithMaxInterval(100*time.Millisecond),
		backoff.WithMaxElapsedTime(2*time.Second),
	)
	var path string
	file, err := backoff.RetryWithData(func() (*os.File, error) {
		path = filepath.Join(opts.DiagnosticsDir, fmt.Sprintf("%s-%d-%d.log", name, time.Now().UnixMilli(), os.Getpid()))
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, diagnosticsFilePerm)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return nil, backoff.Permanent(err)
		}
		return f, err
	}, b)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log file: %w", err)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), zap.NewAtomicLevelAt(level))
	return core, path, nil
}

func ensureFolder(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err = os.MkdirAll(dir, diagnosticsFolderPerm); err != nil {
			return fmt.Errorf("failed to create the diagnostics log folder '%s': %w", dir, err)
		}
	case err != nil:
		return fmt.Errorf("failed to verify the existence of the diagnostics log folder '%s': %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("'%s' is not a directory and cannot be used as a log folder", dir)
	}
	return nil
}
